package auth

import (
	"context"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/pkg/auth"
	apperrors "github.com/orderdesk/orderdesk-api/pkg/errors"
	"github.com/orderdesk/orderdesk-api/pkg/security"
)

type Service struct {
	users   repository.UserRepository
	hasher  security.PasswordHasher
	jwt     auth.JWTService
	auditor *audit.Logger
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, jwt auth.JWTService, auditor *audit.Logger) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		jwt:     jwt,
		auditor: auditor,
	}
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login verifies credentials and issues a role-bearing token. Lookup and
// compare failures collapse into the same error so callers cannot probe
// which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !user.Active {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.auditor.Log(ctx, user.ID, user.Role, model.AuditActionLogin, model.AuditEntityUser, user.ID, nil)

	user.PasswordHash = ""
	return &LoginResult{Token: token, User: user}, nil
}
