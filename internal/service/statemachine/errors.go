package statemachine

import (
	"fmt"
	"strings"

	"github.com/orderdesk/orderdesk-api/internal/model"
)

// ErrorKind classifies why a transition was refused.
type ErrorKind string

const (
	ErrUnknownRole       ErrorKind = "UNKNOWN_ROLE"
	ErrNoTransitions     ErrorKind = "NO_TRANSITIONS"
	ErrInvalidTransition ErrorKind = "INVALID_TRANSITION"
	ErrTerminalState     ErrorKind = "TERMINAL_STATE"
)

// TransitionError is the typed result for an expected business-rule refusal.
// Allowed carries the legal targets so handlers can name them to the caller.
type TransitionError struct {
	Kind    ErrorKind
	Role    model.Role
	From    model.OrderStatus
	To      model.OrderStatus
	Allowed []model.OrderStatus
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case ErrUnknownRole:
		return fmt.Sprintf("unknown role %q", e.Role)
	case ErrNoTransitions:
		return fmt.Sprintf("role %s cannot act on status %s", e.Role, e.From)
	case ErrTerminalState:
		return fmt.Sprintf("order is closed at %s; only an admin override may reopen it", e.From)
	default:
		return fmt.Sprintf("role %s cannot move %s to %s; allowed: %s",
			e.Role, e.From, e.To, formatStatuses(e.Allowed))
	}
}

func formatStatuses(statuses []model.OrderStatus) string {
	if len(statuses) == 0 {
		return "none"
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
