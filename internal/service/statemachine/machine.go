package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
)

// Machine validates and applies order status transitions. The status write
// and its history entry land in one transaction; everything else (audit,
// notifications) happens strictly after commit.
type Machine struct {
	table   Table
	orders  repository.OrderRepository
	auditor *audit.Logger
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewMachine validates the table up front; a nil metrics disables counters.
func NewMachine(table Table, orders repository.OrderRepository, auditor *audit.Logger, log *logger.Logger, m *metrics.Metrics) (*Machine, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transition table: %w", err)
	}
	return &Machine{table: table, orders: orders, auditor: auditor, log: log, metrics: m}, nil
}

// ApplyRequest carries everything one transition attempt needs.
type ApplyRequest struct {
	OrderID          uuid.UUID
	Role             model.Role
	ActorID          uuid.UUID
	To               model.OrderStatus
	Action           string
	Reason           string
	OverrideTerminal bool
}

// ApplyResult reports the landed transition for the dispatcher.
type ApplyResult struct {
	Order *model.Order
	Old   model.OrderStatus
	New   model.OrderStatus
	// Applied is false only for the EnsureStatus no-op path.
	Applied bool
}

// Validate reports whether role may move an order from one status to
// another. It returns the allowed target set alongside any refusal so
// callers can surface it.
func (m *Machine) Validate(role model.Role, from, to model.OrderStatus, overrideTerminal bool) ([]model.OrderStatus, *TransitionError) {
	if !role.Valid() {
		return nil, &TransitionError{Kind: ErrUnknownRole, Role: role, From: from, To: to}
	}

	if from.IsTerminal() {
		if role == model.RoleAdmin && overrideTerminal {
			if to.Valid() && to != from {
				return m.overrideTargets(from), nil
			}
			return m.overrideTargets(from), &TransitionError{Kind: ErrInvalidTransition, Role: role, From: from, To: to, Allowed: m.overrideTargets(from)}
		}
		return nil, &TransitionError{Kind: ErrTerminalState, Role: role, From: from, To: to}
	}

	allowed := m.table.Allowed(role, from)
	if allowed == nil {
		return nil, &TransitionError{Kind: ErrNoTransitions, Role: role, From: from, To: to}
	}
	if !containsStatus(allowed, to) {
		return allowed, &TransitionError{Kind: ErrInvalidTransition, Role: role, From: from, To: to, Allowed: allowed}
	}
	return allowed, nil
}

// overrideTargets is the admin escape hatch out of a closed order: any
// defined status other than the current one.
func (m *Machine) overrideTargets(from model.OrderStatus) []model.OrderStatus {
	targets := make([]model.OrderStatus, 0, len(model.AllStatuses)-1)
	for _, s := range model.AllStatuses {
		if s != from {
			targets = append(targets, s)
		}
	}
	return targets
}

// Apply re-reads the order under a row lock and re-validates against the
// now-current status before writing, so a losing concurrent writer cannot
// overwrite blindly.
func (m *Machine) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	result := &ApplyResult{New: req.To, Applied: true}

	err := m.orders.ApplyTransition(ctx, req.OrderID, func(current *model.Order) (model.OrderStatus, *model.OrderHistoryEntry, error) {
		if _, verr := m.Validate(req.Role, current.Status, req.To, req.OverrideTerminal); verr != nil {
			return 0, nil, verr
		}

		result.Old = current.Status
		result.Order = current

		entry := &model.OrderHistoryEntry{
			OrderID:     current.ID,
			ActorID:     req.ActorID,
			ActorRole:   req.Role,
			Action:      req.Action,
			Description: transitionDescription(current.Status, req.To, req.Reason),
		}
		return req.To, entry, nil
	})
	if err != nil {
		var terr *TransitionError
		if m.metrics != nil && errors.As(err, &terr) {
			m.metrics.TransitionsRejected.WithLabelValues(string(req.Role), string(terr.Kind)).Inc()
		}
		return nil, err
	}

	result.Order.Status = req.To
	if m.metrics != nil {
		m.metrics.TransitionsApplied.WithLabelValues(string(req.Role), req.To.String()).Inc()
	}

	auditAction := model.AuditActionTransition
	if req.OverrideTerminal {
		auditAction = model.AuditActionOverride
	}
	m.auditor.Log(ctx, req.ActorID, req.Role, auditAction, model.AuditEntityOrder, req.OrderID, &audit.LogOptions{
		Payload: map[string]interface{}{
			"action": req.Action,
			"from":   result.Old.String(),
			"to":     result.New.String(),
			"reason": req.Reason,
		},
	})

	return result, nil
}

// EnsureStatus is the idempotent variant of Apply: when the order already
// sits at the target it reports success without writing anything.
func (m *Machine) EnsureStatus(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	current, err := m.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if current.Status == req.To {
		m.log.Debug("ensure-status no-op",
			"order_id", req.OrderID.String(),
			"status", req.To.String())
		return &ApplyResult{Order: current, Old: req.To, New: req.To, Applied: false}, nil
	}
	return m.Apply(ctx, req)
}

func transitionDescription(from, to model.OrderStatus, reason string) string {
	if reason == "" {
		return fmt.Sprintf("status changed from %s to %s", from, to)
	}
	return fmt.Sprintf("status changed from %s to %s: %s", from, to, reason)
}
