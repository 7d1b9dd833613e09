package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

type orderRepository struct {
	BaseRepository
}

func NewOrderRepository(base BaseRepository) repository.OrderRepository {
	return &orderRepository{base}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, query_code, work_code, title, status, client_id, bde_id,
			writer_id, deadline, accepted, created_at, updated_at
		) VALUES (
			:id, :query_code, :work_code, :title, :status, :client_id, :bde_id,
			:writer_id, :deadline, :accepted, :created_at, :updated_at
		)
	`
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	query := `SELECT * FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	var order model.Order
	query := `SELECT * FROM orders WHERE query_code = $1 OR work_code = $1`
	if err := r.db.GetContext(ctx, &order, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order by code: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	query := `
		UPDATE orders SET
			work_code = :work_code, title = :title, bde_id = :bde_id,
			writer_id = :writer_id, deadline = :deadline, accepted = :accepted,
			updated_at = :updated_at
		WHERE id = :id
	`
	order.UpdatedAt = time.Now()
	result, err := r.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("order not found")
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, filter *model.OrderFilter) ([]*model.Order, error) {
	query := `SELECT * FROM orders WHERE 1=1`
	args := []interface{}{}
	i := 1

	if filter != nil {
		if filter.Status != nil {
			query += fmt.Sprintf(" AND status = $%d", i)
			args = append(args, *filter.Status)
			i++
		}
		if filter.ClientID != nil {
			query += fmt.Sprintf(" AND client_id = $%d", i)
			args = append(args, *filter.ClientID)
			i++
		}
		if filter.BDEID != nil {
			query += fmt.Sprintf(" AND bde_id = $%d", i)
			args = append(args, *filter.BDEID)
			i++
		}
		if filter.WriterID != nil {
			query += fmt.Sprintf(" AND writer_id = $%d", i)
			args = append(args, *filter.WriterID)
			i++
		}
	}

	query += " ORDER BY created_at DESC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", i, i+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var orders []*model.Order
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ApplyTransition serializes concurrent writers on the order row: the SELECT
// FOR UPDATE blocks until a competing transaction commits, so decide always
// sees the now-current status.
func (r *orderRepository) ApplyTransition(ctx context.Context, orderID uuid.UUID, decide repository.TransitionFunc) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current model.Order
		query := `SELECT * FROM orders WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &current, query, orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("order not found")
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		newStatus, entry, err := decide(&current)
		if err != nil {
			return err
		}

		update := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, update, newStatus, time.Now(), orderID); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if entry != nil {
			if err := insertHistoryTx(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertHistoryTx(ctx context.Context, tx *sqlx.Tx, entry *model.OrderHistoryEntry) error {
	query := `
		INSERT INTO order_history (
			id, order_id, actor_id, actor_role, action, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.OrderID, entry.ActorID, entry.ActorRole,
		entry.Action, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append order history: %w", err)
	}
	return nil
}

func (r *orderRepository) AppendHistory(ctx context.Context, entry *model.OrderHistoryEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insertHistoryTx(ctx, tx, entry)
	})
}

func (r *orderRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]*model.OrderHistoryEntry, error) {
	var entries []*model.OrderHistoryEntry
	query := `SELECT * FROM order_history WHERE order_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &entries, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to list order history: %w", err)
	}
	return entries, nil
}

func (r *orderRepository) ListDueWithin(ctx context.Context, horizon time.Duration, limit int) ([]*model.Order, error) {
	query := `
		SELECT * FROM orders
		WHERE writer_id IS NOT NULL
		AND deadline IS NOT NULL
		AND deadline > NOW()
		AND deadline <= NOW() + $1::interval
		AND status NOT IN ($2, $3, $4)
		ORDER BY deadline ASC
		LIMIT $5
	`
	interval := fmt.Sprintf("%d seconds", int(horizon.Seconds()))
	var orders []*model.Order
	err := r.db.SelectContext(ctx, &orders, query, interval,
		model.StatusCompleted, model.StatusCancelled, model.StatusQuotationRejected, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due orders: %w", err)
	}
	return orders, nil
}
