package realtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
)

// Channel kinds. A channel name is "<kind>:<value>".
const (
	KindUser    = "user"
	KindRole    = "role"
	KindContext = "context"
)

// Realtime event names emitted on channels.
const (
	EventNotification = "notification"
	EventOrderUpdate  = "order.update"
)

func UserChannel(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", KindUser, id)
}

func RoleChannel(role model.Role) string {
	return fmt.Sprintf("%s:%s", KindRole, role)
}

func ContextChannel(code string) string {
	return fmt.Sprintf("%s:%s", KindContext, code)
}

// ParseChannel splits a channel name into kind and value.
func ParseChannel(channel string) (kind, value string, err error) {
	parts := strings.SplitN(channel, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed channel %q", channel)
	}
	switch parts[0] {
	case KindUser, KindRole, KindContext:
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("unknown channel kind %q", parts[0])
}
