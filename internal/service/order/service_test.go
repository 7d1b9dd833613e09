package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository/repotest"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/internal/service/order"
	"github.com/orderdesk/orderdesk-api/internal/service/statemachine"
	"github.com/orderdesk/orderdesk-api/internal/service/workflow"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	apperrors "github.com/orderdesk/orderdesk-api/pkg/errors"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

type serviceFixture struct {
	service       *order.Service
	orders        *repotest.OrderRepo
	notifications *repotest.NotificationRepo
	outbox        *repotest.OutboxRepo
	users         *repotest.UserRepo
	client        *model.User
	bde           *model.User
	writer        *model.User
	admin         *model.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	log := logger.NewLogger(nil)
	f := &serviceFixture{
		orders:        repotest.NewOrderRepo(),
		notifications: repotest.NewNotificationRepo(),
		outbox:        repotest.NewOutboxRepo(),
	}
	f.client = &model.User{Name: "Asha Client", Email: "asha@orderdesk.test", Role: model.RoleClient, Active: true}
	f.bde = &model.User{Name: "Ravi BDE", Email: "ravi@orderdesk.test", Role: model.RoleBDE, Active: true}
	f.writer = &model.User{Name: "Dev Writer", Email: "dev@orderdesk.test", Role: model.RoleWriter, Active: true}
	f.admin = &model.User{Name: "Ops Admin", Email: "ops@orderdesk.test", Role: model.RoleAdmin, Active: true}
	f.users = repotest.NewUserRepo(f.client, f.bde, f.writer, f.admin)

	auditor := audit.NewLogger(audit.NewService(repotest.NewAuditRepo()), log)
	machine, err := statemachine.NewMachine(statemachine.DefaultTable(), f.orders, auditor, log, nil)
	require.NoError(t, err)
	registry, err := workflow.NewRegistry(workflow.DefaultEvents())
	require.NoError(t, err)
	dispatcher := workflow.NewDispatcher(registry, f.notifications, f.orders, f.users,
		sideeffect.NewQueue(f.outbox), log, nil)

	f.service = order.NewService(machine, dispatcher, f.orders, f.users, log)
	return f
}

func (f *serviceFixture) seed(status model.OrderStatus, mutate func(*model.Order)) *model.Order {
	o := &model.Order{
		QueryCode: "Q-SEED0001",
		Title:     "case study",
		Status:    status,
		ClientID:  f.client.ID,
	}
	if mutate != nil {
		mutate(o)
	}
	return f.orders.Seed(o)
}

func (f *serviceFixture) req(o *model.Order, u *model.User) order.ActionRequest {
	return order.ActionRequest{OrderID: o.ID, ActorID: u.ID, Role: u.Role}
}

func TestCreateQuery(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.CreateQuery(context.Background(), f.client.ID, "dissertation proposal")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNewQuery, created.Status)
	assert.Equal(t, f.client.ID, created.ClientID)
	assert.Regexp(t, `^Q-[0-9A-F]{8}$`, created.QueryCode)
	assert.Empty(t, created.WorkCode)

	history, err := f.service.History(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, order.ActionCreateQuery, history[0].Action)
}

func TestAcceptQuotationSetsAcceptedFlag(t *testing.T) {
	f := newServiceFixture(t)
	o := f.seed(model.StatusQuotationSent, nil)

	updated, err := f.service.AcceptQuotation(context.Background(), f.req(o, f.client))
	require.NoError(t, err)
	assert.Equal(t, model.StatusQuotationAccepted, updated.Status)
	assert.True(t, updated.Accepted)

	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)
}

func TestTransitionDispatchesWorkflowEvent(t *testing.T) {
	f := newServiceFixture(t)
	bdeID := f.bde.ID
	o := f.seed(model.StatusQuotationSent, func(o *model.Order) { o.BDEID = &bdeID })

	_, err := f.service.AcceptQuotation(context.Background(), f.req(o, f.client))
	require.NoError(t, err)

	bdeRows := f.notifications.ForUser(f.bde.ID)
	require.Len(t, bdeRows, 1)
	assert.Contains(t, bdeRows[0].Message, f.client.Name)
	assert.NotEmpty(t, f.outbox.OfType(model.OutboxEventRealtimeEmit))
}

func TestClientCannotActOnForeignOrder(t *testing.T) {
	f := newServiceFixture(t)
	o := f.seed(model.StatusQuotationSent, func(o *model.Order) { o.ClientID = uuid.New() })

	_, err := f.service.AcceptQuotation(context.Background(), f.req(o, f.client))
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)

	stored, _ := f.orders.Get(context.Background(), o.ID)
	assert.Equal(t, model.StatusQuotationSent, stored.Status)
}

func TestWriterMustBeAssigned(t *testing.T) {
	f := newServiceFixture(t)
	o := f.seed(model.StatusWriterAssigned, nil)

	_, err := f.service.StartWork(context.Background(), f.req(o, f.writer))
	assert.Error(t, err)
}

func TestBDEClaimsUnassignedOrder(t *testing.T) {
	f := newServiceFixture(t)
	o := f.seed(model.StatusNewQuery, nil)

	updated, err := f.service.SendQuotation(context.Background(), f.req(o, f.bde))
	require.NoError(t, err)
	require.NotNil(t, updated.BDEID)
	assert.Equal(t, f.bde.ID, *updated.BDEID)

	// A second BDE cannot take over a claimed order.
	other := f.users.Seed(&model.User{Name: "Second BDE", Email: "second@orderdesk.test", Role: model.RoleBDE, Active: true})
	_, err = f.service.RequestPayment(context.Background(), order.ActionRequest{
		OrderID: o.ID, ActorID: other.ID, Role: model.RoleBDE,
	})
	assert.Error(t, err)
}

func TestAssignWriter(t *testing.T) {
	f := newServiceFixture(t)
	bdeID := f.bde.ID
	o := f.seed(model.StatusPaymentVerified, func(o *model.Order) { o.BDEID = &bdeID })
	deadline := time.Now().Add(72 * time.Hour)

	req := f.req(o, f.bde)
	req.WriterID = &f.writer.ID
	req.Deadline = &deadline

	updated, err := f.service.AssignWriter(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWriterAssigned, updated.Status)
	require.NotNil(t, updated.WriterID)
	assert.Equal(t, f.writer.ID, *updated.WriterID)
	require.NotNil(t, updated.Deadline)
	assert.Regexp(t, `^W-[0-9A-F]{8}$`, updated.WorkCode)

	// Assignment fields survive the write.
	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.WorkCode, stored.WorkCode)
	require.NotNil(t, stored.WriterID)

	// The writer hears about the assignment.
	assert.NotEmpty(t, f.notifications.ForUser(f.writer.ID))
}

func TestAssignWriterValidation(t *testing.T) {
	f := newServiceFixture(t)
	bdeID := f.bde.ID
	o := f.seed(model.StatusPaymentVerified, func(o *model.Order) { o.BDEID = &bdeID })
	deadline := time.Now().Add(72 * time.Hour)

	t.Run("missing writer", func(t *testing.T) {
		req := f.req(o, f.bde)
		req.Deadline = &deadline
		_, err := f.service.AssignWriter(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("missing deadline", func(t *testing.T) {
		req := f.req(o, f.bde)
		req.WriterID = &f.writer.ID
		_, err := f.service.AssignWriter(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("assignee is not a writer", func(t *testing.T) {
		req := f.req(o, f.bde)
		req.WriterID = &f.client.ID
		req.Deadline = &deadline
		_, err := f.service.AssignWriter(context.Background(), req)
		assert.Error(t, err)
	})
}

func TestRejectPaymentReturnsToRequested(t *testing.T) {
	f := newServiceFixture(t)
	bdeID := f.bde.ID
	o := f.seed(model.StatusPaymentUploaded, func(o *model.Order) { o.BDEID = &bdeID })

	req := f.req(o, f.bde)
	req.Reason = "receipt unreadable"
	updated, err := f.service.RejectPayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentRequested, updated.Status)

	clientRows := f.notifications.ForUser(f.client.ID)
	require.Len(t, clientRows, 1)
	assert.Contains(t, clientRows[0].Message, "receipt unreadable")
}

func TestReopen(t *testing.T) {
	f := newServiceFixture(t)

	t.Run("admin reopens a cancelled order", func(t *testing.T) {
		o := f.seed(model.StatusCancelled, nil)
		req := f.req(o, f.admin)
		req.Reason = "client returned"

		updated, err := f.service.Reopen(context.Background(), req, model.StatusNewQuery)
		require.NoError(t, err)
		assert.Equal(t, model.StatusNewQuery, updated.Status)
	})

	t.Run("non-admin refused", func(t *testing.T) {
		o := f.seed(model.StatusCancelled, nil)

		_, err := f.service.Reopen(context.Background(), f.req(o, f.bde), model.StatusNewQuery)
		var terr *statemachine.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, statemachine.ErrTerminalState, terr.Kind)
	})
}

func TestEnsureStatusIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	o := f.seed(model.StatusPaymentUploaded, nil)

	updated, err := f.service.EnsureStatus(context.Background(), f.req(o, f.client), model.StatusPaymentUploaded)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentUploaded, updated.Status)

	// No transition landed, so nothing was recorded or dispatched.
	history, err := f.service.History(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.notifications.All())
}

func TestFullLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	o, err := f.service.CreateQuery(ctx, f.client.ID, "capstone project")
	require.NoError(t, err)

	steps := []struct {
		name string
		act  func(context.Context, order.ActionRequest) (*model.Order, error)
		as   *model.User
		want model.OrderStatus
	}{
		{"send quotation", f.service.SendQuotation, f.bde, model.StatusQuotationSent},
		{"accept quotation", f.service.AcceptQuotation, f.client, model.StatusQuotationAccepted},
		{"request payment", f.service.RequestPayment, f.bde, model.StatusPaymentRequested},
		{"upload payment", f.service.UploadPayment, f.client, model.StatusPaymentUploaded},
		{"verify payment", f.service.VerifyPayment, f.bde, model.StatusPaymentVerified},
	}
	for _, step := range steps {
		updated, err := step.act(context.Background(), f.req(o, step.as))
		require.NoError(t, err, step.name)
		require.Equal(t, step.want, updated.Status, step.name)
	}

	deadline := time.Now().Add(96 * time.Hour)
	assignReq := f.req(o, f.bde)
	assignReq.WriterID = &f.writer.ID
	assignReq.Deadline = &deadline
	_, err = f.service.AssignWriter(ctx, assignReq)
	require.NoError(t, err)

	tail := []struct {
		name string
		act  func(context.Context, order.ActionRequest) (*model.Order, error)
		as   *model.User
		want model.OrderStatus
	}{
		{"start work", f.service.StartWork, f.writer, model.StatusInProgress},
		{"submit review", f.service.SubmitReview, f.writer, model.StatusPendingReview},
		{"approve review", f.service.ApproveReview, f.admin, model.StatusReviewApproved},
		{"deliver", f.service.Deliver, f.bde, model.StatusDelivered},
		{"complete", f.service.Complete, f.client, model.StatusCompleted},
	}
	for _, step := range tail {
		updated, err := step.act(ctx, f.req(o, step.as))
		require.NoError(t, err, step.name)
		require.Equal(t, step.want, updated.Status, step.name)
	}

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.IsTerminal())
}
