package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
)

// All repository interfaces in one file
type (
	// OrderRepository persists orders and their append-only history.
	OrderRepository interface {
		Create(ctx context.Context, order *model.Order) error
		Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
		// GetByCode resolves an order by its query-phase or work-phase code.
		GetByCode(ctx context.Context, code string) (*model.Order, error)
		Update(ctx context.Context, order *model.Order) error
		List(ctx context.Context, filter *model.OrderFilter) ([]*model.Order, error)

		// ApplyTransition locks the order row, hands the current persisted
		// state to decide, and writes the returned status and history entry
		// in the same transaction. decide returning an error rolls back.
		ApplyTransition(ctx context.Context, orderID uuid.UUID, decide TransitionFunc) error

		AppendHistory(ctx context.Context, entry *model.OrderHistoryEntry) error
		ListHistory(ctx context.Context, orderID uuid.UUID) ([]*model.OrderHistoryEntry, error)

		// ListDueWithin returns active assigned orders whose deadline falls
		// inside the horizon, ordered by deadline.
		ListDueWithin(ctx context.Context, horizon time.Duration, limit int) ([]*model.Order, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		ListForUser(ctx context.Context, userID uuid.UUID, filter *model.NotificationFilter) ([]*model.Notification, error)
		CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID) error
		Delete(ctx context.Context, id, userID uuid.UUID) error

		// ListUnreadForReminder returns unread reminder-tracked notifications
		// of the given severity created before cutoff with a reminder count
		// below maxCount.
		ListUnreadForReminder(ctx context.Context, severity model.Severity, cutoff time.Time, maxCount, limit int) ([]*model.Notification, error)
		// BumpReminderCount increments the reminder count only when it still
		// equals expect, reporting whether this call won the increment.
		BumpReminderCount(ctx context.Context, id uuid.UUID, expect int) (bool, error)
	}

	ReminderRepository interface {
		// Fire marks the (subject, band) marker fired, creating it if absent,
		// and reports whether this call transitioned it to fired.
		Fire(ctx context.Context, kind model.ReminderSubject, subjectID, recipientID uuid.UUID, band string) (bool, error)
		ListForSubject(ctx context.Context, kind model.ReminderSubject, subjectID uuid.UUID) ([]*model.ReminderMarker, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// TransitionFunc inspects the currently persisted order and returns the
// status to write plus the history entry recording it.
type TransitionFunc func(current *model.Order) (model.OrderStatus, *model.OrderHistoryEntry, error)
