package model

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// NeedsReminder reports whether notifications of this severity are tracked by
// the unread sweep.
func (s Severity) NeedsReminder() bool {
	return s == SeverityWarning || s == SeverityCritical
}

// Notification is a persisted in-app message. ReminderCount is incremented
// only by the unread sweep and never decreases.
type Notification struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	Severity      Severity   `json:"severity" db:"severity"`
	Title         string     `json:"title" db:"title"`
	Message       string     `json:"message" db:"message"`
	Link          string     `json:"link" db:"link"`
	IsRead        bool       `json:"is_read" db:"is_read"`
	NeedsReminder bool       `json:"needs_reminder" db:"needs_reminder"`
	ReminderCount int        `json:"reminder_count" db:"reminder_count"`
	SourceID      *uuid.UUID `json:"source_id,omitempty" db:"source_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// NotificationFilter narrows notification listings for a user.
type NotificationFilter struct {
	UnreadOnly bool
	Severity   *Severity
	Limit      int
	Offset     int
}
