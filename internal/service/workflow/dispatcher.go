package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/internal/service/realtime"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
)

const adminListCacheKey = "admin_ids"

// Dispatcher fans a workflow event out into per-role notifications and
// realtime emissions. Everything after the notification row insert is
// best-effort: a queue failure is logged, never propagated.
type Dispatcher struct {
	registry      *Registry
	notifications repository.NotificationRepository
	orders        repository.OrderRepository
	users         repository.UserRepository
	queue         *sideeffect.Queue
	adminCache    *cache.Cache
	log           *logger.Logger
	metrics       *metrics.Metrics
}

// NewDispatcher builds a dispatcher; a nil metrics disables counters.
func NewDispatcher(
	registry *Registry,
	notifications repository.NotificationRepository,
	orders repository.OrderRepository,
	users repository.UserRepository,
	queue *sideeffect.Queue,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		notifications: notifications,
		orders:        orders,
		users:         users,
		queue:         queue,
		adminCache:    cache.New(time.Minute, 5*time.Minute),
		log:           log,
		metrics:       m,
	}
}

// Dispatch resolves recipients for every role template of the event, persists
// one notification per recipient, and queues the realtime emissions. It
// returns the notifications created.
func (d *Dispatcher) Dispatch(ctx context.Context, eventName string, order *model.Order, actorID uuid.UUID, actorRole model.Role, vars Vars) ([]*model.Notification, error) {
	ev, ok := d.registry.Event(eventName)
	if !ok {
		return nil, fmt.Errorf("unknown workflow event %q", eventName)
	}

	parties := order.Parties()
	var created []*model.Notification

	for _, role := range model.AllRoles {
		tmpl, ok := ev.Templates[role]
		if !ok {
			continue
		}

		for _, recipient := range d.resolveRecipients(ctx, role, parties) {
			n, err := d.notify(ctx, order, recipient, tmpl, vars)
			if err != nil {
				d.log.Error(err, "failed to create notification",
					"event", eventName,
					"role", string(role),
					"recipient", recipient.String())
				continue
			}
			created = append(created, n)
		}
	}

	// Watchers of the order's context channel get one state-change emit per
	// event, not a copy per recipient.
	if code := order.ContextCode(); code != "" {
		if err := d.queue.EmitRealtime(ctx, realtime.ContextChannel(code), realtime.EventOrderUpdate, order); err != nil {
			d.log.Error(err, "failed to queue context emit", "event", eventName, "order_id", order.ID.String())
		}
	}

	// One history row per event no matter how many recipients were reachable.
	entry := &model.OrderHistoryEntry{
		OrderID:     order.ID,
		ActorID:     actorID,
		ActorRole:   actorRole,
		Action:      eventName,
		Description: fmt.Sprintf("event %s, %d notification(s) sent", eventName, len(created)),
	}
	if err := d.orders.AppendHistory(ctx, entry); err != nil {
		d.log.Error(err, "failed to append event history", "event", eventName, "order_id", order.ID.String())
	}

	return created, nil
}

// resolveRecipients maps a template role to user ids. Admin templates
// broadcast to every admin; other roles resolve through the order's bound
// parties and are skipped when unbound.
func (d *Dispatcher) resolveRecipients(ctx context.Context, role model.Role, parties model.Parties) []uuid.UUID {
	if role == model.RoleAdmin {
		return d.adminIDs(ctx)
	}
	id, ok := parties[role]
	if !ok {
		d.log.Debug("no recipient bound for role", "role", string(role))
		return nil
	}
	return []uuid.UUID{id}
}

func (d *Dispatcher) notify(ctx context.Context, order *model.Order, recipient uuid.UUID, tmpl Template, vars Vars) (*model.Notification, error) {
	title, message, link := tmpl.Render(vars)
	n := &model.Notification{
		UserID:        recipient,
		Severity:      tmpl.Severity,
		Title:         title,
		Message:       message,
		Link:          link,
		NeedsReminder: tmpl.Severity.NeedsReminder(),
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.NotificationsCreated.WithLabelValues(string(tmpl.Severity)).Inc()
	}

	if err := d.queue.EmitRealtime(ctx, realtime.UserChannel(recipient), realtime.EventNotification, n); err != nil {
		d.log.Error(err, "failed to queue realtime emit", "notification_id", n.ID.String())
	}
	return n, nil
}

// adminIDs caches the admin broadcast list briefly. This cache never feeds
// authorization decisions.
func (d *Dispatcher) adminIDs(ctx context.Context) []uuid.UUID {
	if cached, ok := d.adminCache.Get(adminListCacheKey); ok {
		return cached.([]uuid.UUID)
	}
	admins, err := d.users.ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		d.log.Error(err, "failed to list admins for broadcast")
		return nil
	}
	ids := make([]uuid.UUID, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, admin.ID)
	}
	d.adminCache.Set(adminListCacheKey, ids, cache.DefaultExpiration)
	return ids
}
