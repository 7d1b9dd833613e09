package model

import (
	"time"

	"github.com/google/uuid"
)

// ReminderSubject names what a reminder marker is tracking.
type ReminderSubject string

const (
	ReminderSubjectOrder        ReminderSubject = "order"
	ReminderSubjectNotification ReminderSubject = "notification"
)

// ReminderMarker guarantees at-most-once firing per (subject, band). Rows are
// created lazily the first time a sweep considers the subject.
type ReminderMarker struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SubjectKind ReminderSubject `json:"subject_kind" db:"subject_kind"`
	SubjectID   uuid.UUID       `json:"subject_id" db:"subject_id"`
	RecipientID uuid.UUID       `json:"recipient_id" db:"recipient_id"`
	Band        string          `json:"band" db:"band"`
	Fired       bool            `json:"fired" db:"fired"`
	FiredAt     *time.Time      `json:"fired_at,omitempty" db:"fired_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
