package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/internal/service/statemachine"
	"github.com/orderdesk/orderdesk-api/internal/service/workflow"
	apperrors "github.com/orderdesk/orderdesk-api/pkg/errors"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

// Business action names, written to order history.
const (
	ActionCreateQuery     = "create-query"
	ActionSendQuotation   = "send-quotation"
	ActionAcceptQuotation = "accept-quotation"
	ActionRejectQuotation = "reject-quotation"
	ActionRequestPayment  = "request-payment"
	ActionUploadPayment   = "upload-payment"
	ActionVerifyPayment   = "verify-payment"
	ActionRejectPayment   = "reject-payment"
	ActionAssignWriter    = "assign-writer"
	ActionStartWork       = "start-work"
	ActionSubmitReview    = "submit-for-review"
	ActionApproveReview   = "approve-review"
	ActionRejectReview    = "reject-review"
	ActionDeliver         = "deliver"
	ActionComplete        = "complete"
	ActionCancel          = "cancel"
	ActionReopen          = "reopen"
	ActionEnsureStatus    = "ensure-status"
)

// Service orchestrates the named business actions: party checks, the state
// machine transition, assignment-field updates, and the workflow dispatch.
type Service struct {
	machine    *statemachine.Machine
	dispatcher *workflow.Dispatcher
	orders     repository.OrderRepository
	users      repository.UserRepository
	log        *logger.Logger
}

func NewService(
	machine *statemachine.Machine,
	dispatcher *workflow.Dispatcher,
	orders repository.OrderRepository,
	users repository.UserRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		machine:    machine,
		dispatcher: dispatcher,
		orders:     orders,
		users:      users,
		log:        log,
	}
}

// ActionRequest carries the caller identity and optional action parameters.
type ActionRequest struct {
	OrderID  uuid.UUID
	ActorID  uuid.UUID
	Role     model.Role
	Reason   string
	Amount   string
	WriterID *uuid.UUID
	Deadline *time.Time
}

// CreateQuery opens a new order in the query phase for a client.
func (s *Service) CreateQuery(ctx context.Context, clientID uuid.UUID, title string) (*model.Order, error) {
	order := &model.Order{
		QueryCode: newCode("Q"),
		Title:     title,
		Status:    model.StatusNewQuery,
		ClientID:  clientID,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	if err := s.orders.AppendHistory(ctx, &model.OrderHistoryEntry{
		OrderID:     order.ID,
		ActorID:     clientID,
		ActorRole:   model.RoleClient,
		Action:      ActionCreateQuery,
		Description: fmt.Sprintf("query %s opened", order.QueryCode),
	}); err != nil {
		s.log.Error(err, "failed to record query creation", "order_id", order.ID.String())
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("order", err)
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, filter *model.OrderFilter) ([]*model.Order, error) {
	return s.orders.List(ctx, filter)
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*model.OrderHistoryEntry, error) {
	return s.orders.ListHistory(ctx, id)
}

func (s *Service) SendQuotation(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusQuotationSent, ActionSendQuotation, workflow.EventQuotationSent, nil)
}

func (s *Service) AcceptQuotation(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusQuotationAccepted, ActionAcceptQuotation, workflow.EventQuotationAccepted,
		func(o *model.Order) { o.Accepted = true })
}

func (s *Service) RejectQuotation(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusQuotationRejected, ActionRejectQuotation, workflow.EventQuotationRejected, nil)
}

func (s *Service) RequestPayment(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusPaymentRequested, ActionRequestPayment, workflow.EventPaymentRequested, nil)
}

func (s *Service) UploadPayment(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusPaymentUploaded, ActionUploadPayment, workflow.EventPaymentUploaded, nil)
}

func (s *Service) VerifyPayment(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusPaymentVerified, ActionVerifyPayment, workflow.EventPaymentVerified, nil)
}

// RejectPayment sends the order back to payment-requested so the client can
// upload a corrected receipt.
func (s *Service) RejectPayment(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusPaymentRequested, ActionRejectPayment, workflow.EventPaymentRejected, nil)
}

func (s *Service) AssignWriter(ctx context.Context, req ActionRequest) (*model.Order, error) {
	if req.WriterID == nil {
		return nil, apperrors.BadRequest("writer id is required", nil)
	}
	if req.Deadline == nil {
		return nil, apperrors.BadRequest("deadline is required", nil)
	}
	writer, err := s.users.Get(ctx, *req.WriterID)
	if err != nil {
		return nil, apperrors.NotFound("writer", err)
	}
	if writer.Role != model.RoleWriter {
		return nil, apperrors.BadRequest(fmt.Sprintf("user %s is not a writer", writer.ID), nil)
	}
	return s.transition(ctx, req, model.StatusWriterAssigned, ActionAssignWriter, workflow.EventWriterAssigned,
		func(o *model.Order) {
			o.WriterID = req.WriterID
			o.Deadline = req.Deadline
			if o.WorkCode == "" {
				o.WorkCode = newCode("W")
			}
		})
}

func (s *Service) StartWork(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusInProgress, ActionStartWork, workflow.EventWorkStarted, nil)
}

func (s *Service) SubmitReview(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusPendingReview, ActionSubmitReview, workflow.EventReviewSubmitted, nil)
}

func (s *Service) ApproveReview(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusReviewApproved, ActionApproveReview, workflow.EventReviewApproved, nil)
}

func (s *Service) RejectReview(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusRevisionRequired, ActionRejectReview, workflow.EventRevisionRequired, nil)
}

func (s *Service) Deliver(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusDelivered, ActionDeliver, workflow.EventDelivered, nil)
}

func (s *Service) Complete(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusCompleted, ActionComplete, workflow.EventCompleted, nil)
}

func (s *Service) Cancel(ctx context.Context, req ActionRequest) (*model.Order, error) {
	return s.transition(ctx, req, model.StatusCancelled, ActionCancel, workflow.EventCancelled, nil)
}

// Reopen is the admin-only recovery path out of a terminal state.
func (s *Service) Reopen(ctx context.Context, req ActionRequest, to model.OrderStatus) (*model.Order, error) {
	if req.Role != model.RoleAdmin {
		return nil, &statemachine.TransitionError{Kind: statemachine.ErrTerminalState, Role: req.Role, To: to}
	}
	return s.apply(ctx, req, to, ActionReopen, workflow.EventReopened, true, nil)
}

// EnsureStatus is the idempotent "treat as already done" variant: callers
// that re-request a landed transition get success without a second dispatch.
func (s *Service) EnsureStatus(ctx context.Context, req ActionRequest, to model.OrderStatus) (*model.Order, error) {
	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, apperrors.NotFound("order", err)
	}
	if err := s.checkParty(order, req); err != nil {
		return nil, err
	}

	result, err := s.machine.EnsureStatus(ctx, statemachine.ApplyRequest{
		OrderID: req.OrderID,
		Role:    req.Role,
		ActorID: req.ActorID,
		To:      to,
		Action:  ActionEnsureStatus,
		Reason:  req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

func (s *Service) transition(ctx context.Context, req ActionRequest, to model.OrderStatus, action, event string, mutate func(*model.Order)) (*model.Order, error) {
	return s.apply(ctx, req, to, action, event, false, mutate)
}

func (s *Service) apply(ctx context.Context, req ActionRequest, to model.OrderStatus, action, event string, override bool, mutate func(*model.Order)) (*model.Order, error) {
	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, apperrors.NotFound("order", err)
	}
	claiming := req.Role == model.RoleBDE && order.BDEID == nil
	if err := s.checkParty(order, req); err != nil {
		return nil, err
	}

	result, err := s.machine.Apply(ctx, statemachine.ApplyRequest{
		OrderID:          req.OrderID,
		Role:             req.Role,
		ActorID:          req.ActorID,
		To:               to,
		Action:           action,
		Reason:           req.Reason,
		OverrideTerminal: override,
	})
	if err != nil {
		return nil, err
	}
	order = result.Order

	if claiming {
		order.BDEID = &req.ActorID
	}
	if mutate != nil || claiming {
		if mutate != nil {
			mutate(order)
		}
		if err := s.orders.Update(ctx, order); err != nil {
			s.log.Error(err, "failed to update order fields after transition",
				"order_id", order.ID.String(), "action", action)
		}
	}

	// Dispatch is strictly post-commit and best-effort: the transition stands
	// even if no notification goes out.
	if _, err := s.dispatcher.Dispatch(ctx, event, order, req.ActorID, req.Role, s.buildVars(ctx, order, req)); err != nil {
		s.log.Error(err, "workflow dispatch failed", "event", event, "order_id", order.ID.String())
	}

	return order, nil
}

// checkParty enforces that non-admin actors act only on orders they are
// bound to. A BDE claims an unassigned order with its first action.
func (s *Service) checkParty(order *model.Order, req ActionRequest) error {
	switch req.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleClient:
		if order.ClientID != req.ActorID {
			return apperrors.Forbidden("order belongs to another client", nil)
		}
	case model.RoleWriter:
		if order.WriterID == nil || *order.WriterID != req.ActorID {
			return apperrors.Forbidden("order is not assigned to this writer", nil)
		}
	case model.RoleBDE:
		if order.BDEID == nil {
			order.BDEID = &req.ActorID
		} else if *order.BDEID != req.ActorID {
			return apperrors.Forbidden("order is handled by another contact", nil)
		}
	default:
		return apperrors.Forbidden(fmt.Sprintf("unknown role %q", req.Role), nil)
	}
	return nil
}

func (s *Service) buildVars(ctx context.Context, order *model.Order, req ActionRequest) workflow.Vars {
	vars := workflow.Vars{
		OrderCode:  order.ContextCode(),
		OrderTitle: order.Title,
		Reason:     req.Reason,
		Amount:     req.Amount,
	}
	if order.Deadline != nil {
		vars.Deadline = order.Deadline.Format(time.RFC822)
	}
	if actor, err := s.users.Get(ctx, req.ActorID); err == nil {
		vars.ActorName = actor.Name
	}
	return vars
}

func newCode(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.NewString()[:8]))
}
