package scheduler_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository/repotest"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/internal/service/realtime"
	"github.com/orderdesk/orderdesk-api/internal/service/scheduler"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

type schedulerFixture struct {
	scheduler     *scheduler.Scheduler
	orders        *repotest.OrderRepo
	notifications *repotest.NotificationRepo
	reminders     *repotest.ReminderRepo
	users         *repotest.UserRepo
	outbox        *repotest.OutboxRepo
	audits        *repotest.AuditRepo
	writer        *model.User
	admin         *model.User
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		orders:        repotest.NewOrderRepo(),
		notifications: repotest.NewNotificationRepo(),
		reminders:     repotest.NewReminderRepo(),
		outbox:        repotest.NewOutboxRepo(),
		audits:        repotest.NewAuditRepo(),
	}
	f.writer = &model.User{Name: "Dev Writer", Email: "writer@orderdesk.test", Role: model.RoleWriter, Active: true}
	f.admin = &model.User{Name: "Ops Admin", Email: "ops@orderdesk.test", Role: model.RoleAdmin, Active: true}
	f.users = repotest.NewUserRepo(f.writer, f.admin)

	log := logger.NewLogger(nil)
	f.scheduler = scheduler.New(
		scheduler.Config{},
		f.orders,
		f.notifications,
		f.reminders,
		f.users,
		sideeffect.NewQueue(f.outbox),
		audit.NewLogger(audit.NewService(f.audits), log),
		log,
		nil,
	)
	return f
}

func (f *schedulerFixture) seedDueOrder(until time.Duration) *model.Order {
	deadline := time.Now().Add(until)
	return f.orders.Seed(&model.Order{
		QueryCode: "Q-DEAD0001",
		WorkCode:  "W-DEAD0001",
		Title:     "thesis chapter",
		Status:    model.StatusInProgress,
		ClientID:  uuid.New(),
		WriterID:  &f.writer.ID,
		Deadline:  &deadline,
	})
}

func TestDeadlineSweepFiresTightestBand(t *testing.T) {
	f := newSchedulerFixture(t)
	order := f.seedDueOrder(50 * time.Minute)

	require.NoError(t, f.scheduler.DeadlineSweep(context.Background()))

	writerRows := f.notifications.ForUser(f.writer.ID)
	require.Len(t, writerRows, 1)
	assert.Equal(t, model.SeverityCritical, writerRows[0].Severity)
	assert.Contains(t, writerRows[0].Title, "1h")
	assert.Contains(t, writerRows[0].Message, order.WorkCode)
	assert.True(t, writerRows[0].NeedsReminder)

	// The 1h band also mails the writer and broadcasts to the admins, with
	// one emit on the shared admin channel.
	mails := f.outbox.OfType(model.OutboxEventMailSend)
	require.Len(t, mails, 1)
	require.Len(t, f.notifications.ForUser(f.admin.ID), 1)
	require.Len(t, f.audits.ByAction(model.AuditActionEscalate), 1)

	var adminChannelEmits int
	for _, event := range f.outbox.OfType(model.OutboxEventRealtimeEmit) {
		var payload model.RealtimeEmitPayload
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
		if payload.Channel == realtime.RoleChannel(model.RoleAdmin) {
			adminChannelEmits++
		}
	}
	assert.Equal(t, 1, adminChannelEmits)
}

func TestDeadlineSweepIsIdempotent(t *testing.T) {
	f := newSchedulerFixture(t)
	f.seedDueOrder(50 * time.Minute)

	require.NoError(t, f.scheduler.DeadlineSweep(context.Background()))
	require.NoError(t, f.scheduler.DeadlineSweep(context.Background()))

	assert.Len(t, f.notifications.ForUser(f.writer.ID), 1)
	assert.Len(t, f.outbox.OfType(model.OutboxEventMailSend), 1)
}

func TestDeadlineSweepOuterBand(t *testing.T) {
	f := newSchedulerFixture(t)
	f.seedDueOrder(20 * time.Hour)

	require.NoError(t, f.scheduler.DeadlineSweep(context.Background()))

	writerRows := f.notifications.ForUser(f.writer.ID)
	require.Len(t, writerRows, 1)
	assert.Equal(t, model.SeverityWarning, writerRows[0].Severity)
	assert.Contains(t, writerRows[0].Title, "24h")

	// Warning bands neither mail nor wake the admins.
	assert.Empty(t, f.outbox.OfType(model.OutboxEventMailSend))
	assert.Empty(t, f.notifications.ForUser(f.admin.ID))
}

// Firing a tight band retires the looser ones so a slow sweep cannot follow
// up a 1h reminder with a stale 24h one.
func TestDeadlineSweepRetiresLooserBands(t *testing.T) {
	f := newSchedulerFixture(t)
	order := f.seedDueOrder(50 * time.Minute)

	require.NoError(t, f.scheduler.DeadlineSweep(context.Background()))

	markers, err := f.reminders.ListForSubject(context.Background(), model.ReminderSubjectOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, markers, len(scheduler.DefaultDeadlineBands))
	for _, marker := range markers {
		assert.True(t, marker.Fired, "band %s not retired", marker.Band)
	}
}

func TestDeadlineSweepSkipsUnassignedAndOverdue(t *testing.T) {
	f := newSchedulerFixture(t)

	// No writer bound.
	deadline := time.Now().Add(30 * time.Minute)
	f.orders.Seed(&model.Order{
		QueryCode: "Q-NOWRITER",
		Status:    model.StatusPaymentVerified,
		ClientID:  uuid.New(),
		Deadline:  &deadline,
	})
	// Already past due.
	past := time.Now().Add(-time.Hour)
	f.orders.Seed(&model.Order{
		QueryCode: "Q-OVERDUE1",
		Status:    model.StatusInProgress,
		ClientID:  uuid.New(),
		WriterID:  &f.writer.ID,
		Deadline:  &past,
	})

	require.NoError(t, f.scheduler.DeadlineSweep(context.Background()))
	assert.Empty(t, f.notifications.All())
}

// A failing row is logged and skipped; the sweep itself still succeeds.
func TestDeadlineSweepIsolatesRowFailures(t *testing.T) {
	f := newSchedulerFixture(t)
	f.seedDueOrder(50 * time.Minute)
	f.notifications.CreateErr = errors.New("disk full")

	assert.NoError(t, f.scheduler.DeadlineSweep(context.Background()))
}

func TestUnreadSweepRemindsAlongAgeBands(t *testing.T) {
	f := newSchedulerFixture(t)
	userID := uuid.New()
	original := f.notifications.Seed(&model.Notification{
		UserID:        userID,
		Severity:      model.SeverityCritical,
		Title:         "Revision required",
		Message:       "Order W-DEAD0001 was sent back for revision",
		Link:          "/work/W-DEAD0001",
		NeedsReminder: true,
		CreatedAt:     time.Now().Add(-40 * time.Minute),
	})

	require.NoError(t, f.scheduler.UnreadSweep(context.Background()))

	rows := f.notifications.ForUser(userID)
	require.Len(t, rows, 2)
	for _, n := range rows {
		if n.ID == original.ID {
			assert.Equal(t, 1, n.ReminderCount)
			continue
		}
		assert.Contains(t, n.Title, "Reminder")
		require.NotNil(t, n.SourceID)
		assert.Equal(t, original.ID, *n.SourceID)
		// Reminders of reminders would cascade forever.
		assert.False(t, n.NeedsReminder)
	}
}

func TestUnreadSweepWaitsForNextBand(t *testing.T) {
	f := newSchedulerFixture(t)
	f.notifications.Seed(&model.Notification{
		UserID:        uuid.New(),
		Severity:      model.SeverityCritical,
		Title:         "Payment rejected",
		NeedsReminder: true,
		ReminderCount: 1,
		CreatedAt:     time.Now().Add(-40 * time.Minute),
	})

	// Count 1 needs the 60m band; the row is only 40m old.
	require.NoError(t, f.scheduler.UnreadSweep(context.Background()))
	assert.Len(t, f.notifications.All(), 1)
}

func TestUnreadSweepIgnoresReadAndInfoRows(t *testing.T) {
	f := newSchedulerFixture(t)
	f.notifications.Seed(&model.Notification{
		UserID:        uuid.New(),
		Severity:      model.SeverityCritical,
		Title:         "already read",
		NeedsReminder: true,
		IsRead:        true,
		CreatedAt:     time.Now().Add(-2 * time.Hour),
	})
	f.notifications.Seed(&model.Notification{
		UserID:    uuid.New(),
		Severity:  model.SeverityInfo,
		Title:     "fyi",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})

	require.NoError(t, f.scheduler.UnreadSweep(context.Background()))
	assert.Len(t, f.notifications.All(), 2)
}

func TestUnreadSweepEscalatesOnceAtThreshold(t *testing.T) {
	f := newSchedulerFixture(t)
	userID := uuid.New()
	original := f.notifications.Seed(&model.Notification{
		UserID:        userID,
		Severity:      model.SeverityCritical,
		Title:         "Delivery unconfirmed",
		Message:       "Order W-DEAD0001 awaits confirmation",
		NeedsReminder: true,
		ReminderCount: 2,
		CreatedAt:     time.Now().Add(-100 * time.Minute),
	})

	require.NoError(t, f.scheduler.UnreadSweep(context.Background()))

	// Crossing the third reminder wakes the admins in-app and by mail.
	adminRows := f.notifications.ForUser(f.admin.ID)
	require.Len(t, adminRows, 1)
	assert.Contains(t, adminRows[0].Title, "Unacknowledged")
	require.NotNil(t, adminRows[0].SourceID)
	assert.Equal(t, original.ID, *adminRows[0].SourceID)

	require.Len(t, f.outbox.OfType(model.OutboxEventMailSend), 1)
	require.Len(t, f.audits.ByAction(model.AuditActionEscalate), 1)

	// The next tick finds the row at count 3, below the 120m band age, and
	// must not escalate again.
	require.NoError(t, f.scheduler.UnreadSweep(context.Background()))
	assert.Len(t, f.notifications.ForUser(f.admin.ID), 1)
	assert.Len(t, f.audits.ByAction(model.AuditActionEscalate), 1)
}
