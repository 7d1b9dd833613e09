package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

// Logger is the fire-and-forget front to the audit service. A write failure
// is logged and swallowed so it can never abort the business operation.
type Logger struct {
	service *Service
	log     *logger.Logger
}

func NewLogger(service *Service, log *logger.Logger) *Logger {
	return &Logger{service: service, log: log}
}

func (l *Logger) Log(ctx context.Context, userID uuid.UUID, role model.Role, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	if err := l.service.Log(ctx, userID, role, action, entityType, entityID, opts); err != nil {
		l.log.Error(err, "audit write failed",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID.String())
	}
}

// LogSync is for callers that need the write confirmed.
func (l *Logger) LogSync(ctx context.Context, userID uuid.UUID, role model.Role, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	return l.service.Log(ctx, userID, role, action, entityType, entityID, opts)
}
