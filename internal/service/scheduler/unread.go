package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/service/audit"
)

// UnreadSweep re-fires unread warning and critical notifications along their
// severity's age-band ladder, escalating to the admins once a critical
// notification crosses the configured reminder count.
func (s *Scheduler) UnreadSweep(ctx context.Context) error {
	if err := s.sweepSeverity(ctx, model.SeverityCritical, s.cfg.CriticalAges); err != nil {
		return err
	}
	return s.sweepSeverity(ctx, model.SeverityWarning, s.cfg.WarningAges)
}

func (s *Scheduler) sweepSeverity(ctx context.Context, severity model.Severity, ages []time.Duration) error {
	cutoff := s.now().Add(-ages[0])
	rows, err := s.notifications.ListUnreadForReminder(ctx, severity, cutoff, len(ages), s.cfg.PageSize)
	if err != nil {
		return fmt.Errorf("failed to list unread %s notifications: %w", severity, err)
	}

	for _, n := range rows {
		if err := s.remindNotification(ctx, n, ages); err != nil {
			s.rowError("unread", err, "notification_id", n.ID.String())
		}
	}
	return nil
}

func (s *Scheduler) remindNotification(ctx context.Context, n *model.Notification, ages []time.Duration) error {
	count := n.ReminderCount
	if count >= len(ages) {
		return nil
	}
	age := s.now().Sub(n.CreatedAt)
	if age < ages[count] {
		return nil
	}

	// The guarded increment is the once-per-band gate: a concurrent tick that
	// lost the compare-and-bump skips the row entirely.
	won, err := s.notifications.BumpReminderCount(ctx, n.ID, count)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	newCount := count + 1

	if s.metrics != nil {
		s.metrics.RemindersFired.WithLabelValues(fmt.Sprintf("unread_%d", newCount)).Inc()
	}

	title := fmt.Sprintf("Reminder: %s", n.Title)
	message := fmt.Sprintf("%s (unread for %s, reminder %d)",
		n.Message, age.Round(time.Minute), newCount)
	if err := s.notifyUser(ctx, n.UserID, n.Severity, title, message, n.Link, &n.ID); err != nil {
		return err
	}

	// The crossing fires exactly once because only the tick that moved the
	// count onto the threshold gets here with newCount equal to it.
	if n.Severity == model.SeverityCritical && newCount == s.cfg.EscalationCount {
		s.escalate(ctx, n, newCount)
	}
	return nil
}

func (s *Scheduler) escalate(ctx context.Context, n *model.Notification, count int) {
	title := fmt.Sprintf("Unacknowledged critical notification (%d reminders)", count)
	message := fmt.Sprintf("A critical notification has gone unread through %d reminders: %s", count, n.Title)

	s.broadcastAdmins(ctx, model.SeverityCritical, title, message, n.Link, &n.ID)

	admins, err := s.users.ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		s.log.Error(err, "failed to list admins for escalation mail")
	} else {
		html := fmt.Sprintf("<p>%s</p><p>Original: %s</p>", message, n.Message)
		for _, admin := range admins {
			if err := s.queue.SendMail(ctx, admin.Email, title, html); err != nil {
				s.log.Error(err, "failed to queue escalation mail", "admin_id", admin.ID.String())
			}
		}
	}

	s.auditor.Log(ctx, n.UserID, model.RoleAdmin, model.AuditActionEscalate, model.AuditEntityNotification, n.ID, &audit.LogOptions{
		Payload: map[string]interface{}{"reminder_count": count, "severity": n.Severity},
	})
}
