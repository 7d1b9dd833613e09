package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of the workflow a user acts from.
type Role string

const (
	RoleClient Role = "client"
	RoleBDE    Role = "bde"
	RoleWriter Role = "writer"
	RoleAdmin  Role = "admin"
)

// AllRoles lists every role the transition table knows about.
var AllRoles = []Role{RoleClient, RoleBDE, RoleWriter, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleBDE, RoleWriter, RoleAdmin:
		return true
	}
	return false
}

// Order is the unit of work moving through the lifecycle. Its status is
// mutated only through the state machine, never written directly.
type Order struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	QueryCode string      `json:"query_code" db:"query_code"`
	WorkCode  string      `json:"work_code" db:"work_code"`
	Title     string      `json:"title" db:"title"`
	Status    OrderStatus `json:"status" db:"status"`
	ClientID  uuid.UUID   `json:"client_id" db:"client_id"`
	BDEID     *uuid.UUID  `json:"bde_id,omitempty" db:"bde_id"`
	WriterID  *uuid.UUID  `json:"writer_id,omitempty" db:"writer_id"`
	Deadline  *time.Time  `json:"deadline,omitempty" db:"deadline"`
	Accepted  bool        `json:"accepted" db:"accepted"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// ContextCode is the code a realtime context channel is addressed by. The
// work code takes over once the order leaves the query phase.
func (o *Order) ContextCode() string {
	if o.WorkCode != "" {
		return o.WorkCode
	}
	return o.QueryCode
}

// Parties holds the user ids bound to an order, keyed by role. Roles with no
// bound user are absent from the map.
type Parties map[Role]uuid.UUID

func (o *Order) Parties() Parties {
	p := Parties{RoleClient: o.ClientID}
	if o.BDEID != nil {
		p[RoleBDE] = *o.BDEID
	}
	if o.WriterID != nil {
		p[RoleWriter] = *o.WriterID
	}
	return p
}

// OrderHistoryEntry is the append-only per-order activity record. Entries are
// written in the same transaction as the status change they describe.
type OrderHistoryEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	ActorID     uuid.UUID `json:"actor_id" db:"actor_id"`
	ActorRole   Role      `json:"actor_role" db:"actor_role"`
	Action      string    `json:"action" db:"action"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status   *OrderStatus
	ClientID *uuid.UUID
	BDEID    *uuid.UUID
	WriterID *uuid.UUID
	Limit    int
	Offset   int
}
