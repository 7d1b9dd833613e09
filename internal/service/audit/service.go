package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Payload   interface{}
	IPAddress string
	UserAgent string
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, userID uuid.UUID, role model.Role, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	var payload json.RawMessage
	var ipAddress, userAgent string

	if opts != nil {
		if opts.Payload != nil {
			data, err := json.Marshal(opts.Payload)
			if err != nil {
				return err
			}
			payload = data
		}
		ipAddress = opts.IPAddress
		userAgent = opts.UserAgent
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		UserRole:   role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	}

	return s.repo.Create(ctx, entry)
}

func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
