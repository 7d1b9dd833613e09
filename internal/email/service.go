package email

import (
	"context"
)

// Sender delivers outbound mail. The outbox processor is the only caller in
// the delivery path; tests substitute a recording fake.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
