package realtime_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/orderdesk/orderdesk-api/internal/handler/realtime"
	"github.com/orderdesk/orderdesk-api/internal/middleware"
	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository/repotest"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/internal/service/realtime"
	pkgauth "github.com/orderdesk/orderdesk-api/pkg/auth"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type realtimeFixture struct {
	router *gin.Engine
	jwt    pkgauth.JWTService
	orders *repotest.OrderRepo
}

func newRealtimeFixture(t *testing.T) *realtimeFixture {
	t.Helper()
	log := logger.NewLogger(nil)
	f := &realtimeFixture{
		orders: repotest.NewOrderRepo(),
		jwt:    pkgauth.NewJWTService("test-secret", time.Hour),
	}
	guard := realtime.NewGuard(f.orders, audit.NewLogger(audit.NewService(repotest.NewAuditRepo()), log), log)

	authMW := middleware.NewAuthMiddleware(f.jwt)
	f.router = gin.New()
	api := f.router.Group("/api/v1", authMW.Authenticate())
	handler.NewHandler(guard).RegisterRoutes(api)
	return f
}

func (f *realtimeFixture) authorize(t *testing.T, user *model.User, channels []string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(gin.H{"channels": channels})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/realtime/auth", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	token, err := f.jwt.GenerateToken(user)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decisions(t *testing.T, w *httptest.ResponseRecorder) map[string]bool {
	t.Helper()
	var body struct {
		Data []struct {
			Channel string `json:"channel"`
			Allowed bool   `json:"allowed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	out := make(map[string]bool, len(body.Data))
	for _, d := range body.Data {
		out[d.Channel] = d.Allowed
	}
	return out
}

func TestAuthorizeJoinDecidesPerChannel(t *testing.T) {
	f := newRealtimeFixture(t)
	client := &model.User{ID: uuid.New(), Role: model.RoleClient}
	f.orders.Seed(&model.Order{
		QueryCode: "Q-RT000001",
		Status:    model.StatusNewQuery,
		ClientID:  client.ID,
	})

	w := f.authorize(t, client, []string{
		realtime.UserChannel(client.ID),
		realtime.UserChannel(uuid.New()),
		realtime.RoleChannel(model.RoleClient),
		realtime.RoleChannel(model.RoleAdmin),
		realtime.ContextChannel("Q-RT000001"),
		realtime.ContextChannel("Q-MISSING1"),
		"garbage",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decisions(t, w)
	assert.True(t, got[realtime.UserChannel(client.ID)])
	assert.True(t, got[realtime.RoleChannel(model.RoleClient)])
	assert.True(t, got[realtime.ContextChannel("Q-RT000001")])
	assert.False(t, got[realtime.RoleChannel(model.RoleAdmin)])
	assert.False(t, got[realtime.ContextChannel("Q-MISSING1")])
	assert.False(t, got["garbage"])

	denied := 0
	for _, allowed := range got {
		if !allowed {
			denied++
		}
	}
	assert.Equal(t, 4, denied)
}

func TestAuthorizeJoinValidation(t *testing.T) {
	f := newRealtimeFixture(t)
	user := &model.User{ID: uuid.New(), Role: model.RoleClient}

	t.Run("empty channel list", func(t *testing.T) {
		w := f.authorize(t, user, []string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too many channels", func(t *testing.T) {
		channels := make([]string, 21)
		for i := range channels {
			channels[i] = realtime.UserChannel(user.ID)
		}
		w := f.authorize(t, user, channels)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
