package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(base BaseRepository) repository.ReminderRepository {
	return &reminderRepository{base}
}

// Fire upserts the (subject, band) marker. The WHERE guard on the conflict
// branch makes a second call a no-op, which is the at-most-once guarantee.
func (r *reminderRepository) Fire(ctx context.Context, kind model.ReminderSubject, subjectID, recipientID uuid.UUID, band string) (bool, error) {
	query := `
		INSERT INTO deadline_reminders (
			id, subject_kind, subject_id, recipient_id, band, fired, fired_at, created_at
		) VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		ON CONFLICT (subject_kind, subject_id, band)
		DO UPDATE SET fired = TRUE, fired_at = NOW(), recipient_id = EXCLUDED.recipient_id
		WHERE deadline_reminders.fired = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, uuid.New(), kind, subjectID, recipientID, band)
	if err != nil {
		return false, fmt.Errorf("failed to fire reminder marker: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *reminderRepository) ListForSubject(ctx context.Context, kind model.ReminderSubject, subjectID uuid.UUID) ([]*model.ReminderMarker, error) {
	var markers []*model.ReminderMarker
	query := `SELECT * FROM deadline_reminders WHERE subject_kind = $1 AND subject_id = $2 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &markers, query, kind, subjectID); err != nil {
		return nil, fmt.Errorf("failed to list reminder markers: %w", err)
	}
	return markers, nil
}
