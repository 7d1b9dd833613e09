package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/internal/service/realtime"
)

// DeadlineBand is one escalation step of the deadline sweep. Bands are
// ordered tightest first; an order fires each band at most once.
type DeadlineBand struct {
	Label          string
	Within         time.Duration
	Severity       model.Severity
	Email          bool
	AdminBroadcast bool
}

// DefaultDeadlineBands is the escalation ladder for approaching deadlines.
var DefaultDeadlineBands = []DeadlineBand{
	{Label: "1h", Within: time.Hour, Severity: model.SeverityCritical, Email: true, AdminBroadcast: true},
	{Label: "6h", Within: 6 * time.Hour, Severity: model.SeverityCritical, Email: true},
	{Label: "12h", Within: 12 * time.Hour, Severity: model.SeverityCritical},
	{Label: "24h", Within: 24 * time.Hour, Severity: model.SeverityWarning},
}

// DeadlineSweep re-derives reminder state from the orders table: it walks
// active assigned orders inside the 24h horizon and fires the tightest
// unfired band for each. A crash that dropped an earlier notification is
// compensated here because nothing depends on that notification existing.
func (s *Scheduler) DeadlineSweep(ctx context.Context) error {
	horizon := DefaultDeadlineBands[len(DefaultDeadlineBands)-1].Within
	orders, err := s.orders.ListDueWithin(ctx, horizon, s.cfg.PageSize)
	if err != nil {
		return fmt.Errorf("failed to list due orders: %w", err)
	}

	for _, order := range orders {
		if err := s.remindOrder(ctx, order); err != nil {
			s.rowError("deadline", err, "order_id", order.ID.String())
		}
	}
	return nil
}

func (s *Scheduler) remindOrder(ctx context.Context, order *model.Order) error {
	if order.Deadline == nil || order.WriterID == nil {
		return nil
	}
	remaining := order.Deadline.Sub(s.now())
	if remaining <= 0 {
		return nil
	}

	band, ok := tightestBand(remaining)
	if !ok {
		return nil
	}

	assignee := *order.WriterID
	fired, err := s.reminders.Fire(ctx, model.ReminderSubjectOrder, order.ID, assignee, band.Label)
	if err != nil {
		return err
	}
	if !fired {
		return nil
	}

	// Moving to a tighter band retires the looser ones so they cannot fire
	// late and duplicate the reminder.
	for _, looser := range DefaultDeadlineBands {
		if looser.Within > band.Within {
			if _, err := s.reminders.Fire(ctx, model.ReminderSubjectOrder, order.ID, assignee, looser.Label); err != nil {
				s.log.Error(err, "failed to retire superseded band", "order_id", order.ID.String(), "band", looser.Label)
			}
		}
	}

	if s.metrics != nil {
		s.metrics.RemindersFired.WithLabelValues("deadline_" + band.Label).Inc()
	}

	title := fmt.Sprintf("Deadline in %s", band.Label)
	message := fmt.Sprintf("Order %s (%s) is due at %s with %s remaining.",
		order.ContextCode(), order.Title,
		order.Deadline.Format(time.RFC822), remaining.Round(time.Minute))
	link := fmt.Sprintf("/work/%s", order.ContextCode())

	if err := s.notifyUser(ctx, assignee, band.Severity, title, message, link, nil); err != nil {
		return err
	}

	if band.Email {
		if err := s.mailUser(ctx, assignee, title, message); err != nil {
			s.log.Error(err, "failed to queue deadline mail", "order_id", order.ID.String())
		}
	}

	if band.AdminBroadcast {
		s.broadcastAdmins(ctx, band.Severity,
			fmt.Sprintf("Order %s due in under %s", order.ContextCode(), band.Label),
			message, fmt.Sprintf("/orders/%s", order.ContextCode()), nil)
		s.auditor.Log(ctx, assignee, model.RoleWriter, model.AuditActionEscalate, model.AuditEntityOrder, order.ID, &audit.LogOptions{
			Payload: map[string]interface{}{"band": band.Label, "deadline": order.Deadline},
		})
	}
	return nil
}

// tightestBand picks the band with the smallest window still covering the
// remaining time.
func tightestBand(remaining time.Duration) (DeadlineBand, bool) {
	for _, band := range DefaultDeadlineBands {
		if remaining <= band.Within {
			return band, true
		}
	}
	return DeadlineBand{}, false
}

func (s *Scheduler) notifyUser(ctx context.Context, userID uuid.UUID, severity model.Severity, title, message, link string, sourceID *uuid.UUID) error {
	n := &model.Notification{
		UserID:        userID,
		Severity:      severity,
		Title:         title,
		Message:       message,
		Link:          link,
		NeedsReminder: sourceID == nil && severity.NeedsReminder(),
		SourceID:      sourceID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.NotificationsCreated.WithLabelValues(string(severity)).Inc()
	}
	if err := s.queue.EmitRealtime(ctx, realtime.UserChannel(userID), realtime.EventNotification, n); err != nil {
		s.log.Error(err, "failed to queue realtime emit", "notification_id", n.ID.String())
	}
	return nil
}

func (s *Scheduler) mailUser(ctx context.Context, userID uuid.UUID, subject, body string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	html := fmt.Sprintf("<p>%s</p>", body)
	return s.queue.SendMail(ctx, user.Email, subject, html)
}

func (s *Scheduler) broadcastAdmins(ctx context.Context, severity model.Severity, title, message, link string, sourceID *uuid.UUID) {
	admins, err := s.users.ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		s.log.Error(err, "failed to list admins for broadcast")
		return
	}
	for _, admin := range admins {
		if err := s.notifyUser(ctx, admin.ID, severity, title, message, link, sourceID); err != nil {
			s.log.Error(err, "failed to notify admin", "admin_id", admin.ID.String())
		}
	}

	// One emit on the shared admin channel regardless of headcount, for
	// dashboards subscribed to the role rather than a user feed.
	notice := &model.Notification{Severity: severity, Title: title, Message: message, Link: link}
	if err := s.queue.EmitRealtime(ctx, realtime.RoleChannel(model.RoleAdmin), realtime.EventNotification, notice); err != nil {
		s.log.Error(err, "failed to queue admin channel emit")
	}
}
