package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/middleware"
	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(jwtService auth.JWTService, roles ...model.Role) *gin.Engine {
	m := middleware.NewAuthMiddleware(jwtService)
	r := gin.New()
	group := r.Group("/", m.Authenticate())
	if len(roles) > 0 {
		group.Use(m.RequireRole(roles...))
	}
	group.GET("/probe", func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user id in context"})
			return
		}
		role, ok := middleware.RoleFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no role in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	return r
}

func probe(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	user := &model.User{Role: model.RoleBDE}
	token, err := jwtService.GenerateToken(user)
	require.NoError(t, err)
	r := newAuthRouter(jwtService)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid bearer token", header: "Bearer " + token, want: http.StatusOK},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer notatoken", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := probe(r, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthenticateRejectsForeignSignature(t *testing.T) {
	issuer := auth.NewJWTService("other-secret", time.Hour)
	token, err := issuer.GenerateToken(&model.User{Role: model.RoleClient})
	require.NoError(t, err)

	r := newAuthRouter(auth.NewJWTService("test-secret", time.Hour))
	assert.Equal(t, http.StatusUnauthorized, probe(r, "Bearer "+token).Code)
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	bdeToken, err := jwtService.GenerateToken(&model.User{Role: model.RoleBDE})
	require.NoError(t, err)
	writerToken, err := jwtService.GenerateToken(&model.User{Role: model.RoleWriter})
	require.NoError(t, err)

	r := newAuthRouter(jwtService, model.RoleBDE, model.RoleAdmin)

	assert.Equal(t, http.StatusOK, probe(r, "Bearer "+bdeToken).Code)
	assert.Equal(t, http.StatusForbidden, probe(r, "Bearer "+writerToken).Code)
}
