package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, severity, title, message, link, is_read,
			needs_reminder, reminder_count, source_id, created_at
		) VALUES (
			:id, :user_id, :severity, :title, :message, :link, :is_read,
			:needs_reminder, :reminder_count, :source_id, :created_at
		)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	query := `SELECT * FROM notifications WHERE id = $1`
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification not found")
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter *model.NotificationFilter) ([]*model.Notification, error) {
	query := `SELECT * FROM notifications WHERE user_id = $1`
	args := []interface{}{userID}
	i := 2

	if filter != nil {
		if filter.UnreadOnly {
			query += " AND is_read = FALSE"
		}
		if filter.Severity != nil {
			query += fmt.Sprintf(" AND severity = $%d", i)
			args = append(args, *filter.Severity)
			i++
		}
	}

	query += " ORDER BY created_at DESC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", i, i+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (r *notificationRepository) ListUnreadForReminder(ctx context.Context, severity model.Severity, cutoff time.Time, maxCount, limit int) ([]*model.Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE is_read = FALSE
		AND needs_reminder = TRUE
		AND severity = $1
		AND created_at < $2
		AND reminder_count < $3
		ORDER BY created_at ASC
		LIMIT $4
	`
	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, severity, cutoff, maxCount, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications for reminder: %w", err)
	}
	return notifications, nil
}

// BumpReminderCount uses the current count as an optimistic guard so two
// overlapping sweep ticks cannot both win the same increment.
func (r *notificationRepository) BumpReminderCount(ctx context.Context, id uuid.UUID, expect int) (bool, error) {
	query := `
		UPDATE notifications
		SET reminder_count = reminder_count + 1
		WHERE id = $1 AND reminder_count = $2 AND is_read = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, id, expect)
	if err != nil {
		return false, fmt.Errorf("failed to bump reminder count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
