package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

// Requester is the authenticated identity asking to join a channel.
type Requester struct {
	ID   uuid.UUID
	Role model.Role
}

// Guard authorizes channel joins. It holds no state: every decision is
// recomputed from the current order relationships, so a reassignment takes
// effect on the very next join attempt.
type Guard struct {
	orders  repository.OrderRepository
	auditor *audit.Logger
	log     *logger.Logger
}

func NewGuard(orders repository.OrderRepository, auditor *audit.Logger, log *logger.Logger) *Guard {
	return &Guard{orders: orders, auditor: auditor, log: log}
}

// CanJoin reports whether the requester may observe the channel.
func (g *Guard) CanJoin(ctx context.Context, requester Requester, channel string) bool {
	kind, value, err := ParseChannel(channel)
	if err != nil {
		g.log.Debug("rejected malformed channel", "channel", channel)
		return false
	}

	switch kind {
	case KindUser:
		return value == requester.ID.String()
	case KindRole:
		return requester.Role.Valid() && value == string(requester.Role)
	case KindContext:
		return g.canJoinContext(ctx, requester, channel, value)
	}
	return false
}

func (g *Guard) canJoinContext(ctx context.Context, requester Requester, channel, code string) bool {
	if requester.Role == model.RoleAdmin {
		return true
	}

	order, err := g.orders.GetByCode(ctx, code)
	if err != nil {
		g.log.Debug("context channel resolution failed", "channel", channel)
		return false
	}

	if order.ClientID == requester.ID {
		return true
	}
	if order.BDEID != nil && *order.BDEID == requester.ID {
		return true
	}
	if order.WriterID != nil && *order.WriterID == requester.ID {
		return true
	}

	g.auditor.Log(ctx, requester.ID, requester.Role, model.AuditActionUnauthorizedJoin, model.AuditEntityChannel, order.ID, &audit.LogOptions{
		Payload: map[string]interface{}{"channel": channel},
	})
	return false
}
