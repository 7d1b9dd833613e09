package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is the compliance record of sensitive actions. It is independent
// of order history; a failed audit write never aborts the business operation.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	UserRole   Role            `json:"user_role" db:"user_role"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionTransition       = "transition"
	AuditActionOverride         = "terminal_override"
	AuditActionNotify           = "notify"
	AuditActionEscalate         = "escalate"
	AuditActionUnauthorizedJoin = "unauthorized_channel_join"
	AuditActionLogin            = "login"

	// Entity types
	AuditEntityOrder        = "order"
	AuditEntityNotification = "notification"
	AuditEntityChannel      = "channel"
	AuditEntityUser         = "user"
)
