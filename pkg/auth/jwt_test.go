package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/pkg/auth"
)

func testUser(role model.Role) *model.User {
	return &model.User{ID: uuid.New(), Name: "Test User", Email: "user@orderdesk.test", Role: role, Active: true}
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := auth.NewJWTService("test-secret", time.Hour)
	user := testUser(model.RoleBDE)

	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleBDE, claims.Role)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewJWTService("secret-one", time.Hour)
	verifier := auth.NewJWTService("secret-two", time.Hour)

	token, err := issuer.GenerateToken(testUser(model.RoleClient))
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	service := auth.NewJWTService("test-secret", -time.Minute)

	token, err := service.GenerateToken(testUser(model.RoleClient))
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := auth.NewJWTService("test-secret", time.Hour)
	_, err := service.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	service := auth.NewJWTService("test-secret", time.Hour)
	user := testUser(model.Role("superuser"))

	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Error(t, err)
}
