package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, user_role, action, entity_type, entity_id,
			payload, ip_address, user_agent, created_at
		) VALUES (
			:id, :user_id, :user_role, :action, :entity_type, :entity_id,
			:payload, :ip_address, :user_agent, :created_at
		)
	`
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	query := `SELECT * FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	i := 1

	for _, key := range []string{"user_id", "action", "entity_type", "entity_id"} {
		if v, ok := filters[key]; ok {
			query += fmt.Sprintf(" AND %s = $%d", key, i)
			args = append(args, v)
			i++
		}
	}
	if v, ok := filters["since"]; ok {
		query += fmt.Sprintf(" AND created_at >= $%d", i)
		args = append(args, v)
		i++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", i)
	limit := 100
	if v, ok := filters["limit"].(int); ok && v > 0 {
		limit = v
	}
	args = append(args, limit)

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit logs: %w", err)
	}
	return result.RowsAffected()
}
