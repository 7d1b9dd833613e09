package sideeffect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

// Queue turns fire-and-forget side effects into durable outbox events. The
// processor in pkg/worker delivers them with retry and backoff, so a broker
// or SMTP outage is observable and recoverable instead of silently dropped.
type Queue struct {
	outbox repository.OutboxRepository
}

func NewQueue(outbox repository.OutboxRepository) *Queue {
	return &Queue{outbox: outbox}
}

// EmitRealtime queues a realtime emission on the given channel.
func (q *Queue) EmitRealtime(ctx context.Context, channel, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime payload: %w", err)
	}
	body, err := json.Marshal(model.RealtimeEmitPayload{
		Channel: channel,
		Event:   event,
		Payload: data,
	})
	if err != nil {
		return err
	}
	return q.outbox.Create(ctx, &model.OutboxEvent{
		EventType: model.OutboxEventRealtimeEmit,
		Payload:   body,
	})
}

// SendMail queues an outbound mail.
func (q *Queue) SendMail(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(model.MailSendPayload{
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return err
	}
	return q.outbox.Create(ctx, &model.OutboxEvent{
		EventType: model.OutboxEventMailSend,
		Payload:   body,
	})
}
