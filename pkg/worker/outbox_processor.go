package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/orderdesk/orderdesk-api/internal/email"
	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/messaging"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor drains the side-effect queue: realtime emits go to the
// pub/sub broker, queued mail goes to the SMTP sender. A failing event is
// rescheduled with linear backoff until its retry budget runs out, then
// parked as failed with the last error recorded.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	mailer  email.Sender
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	mailer email.Sender,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		mailer:  mailer,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

func (p *OutboxProcessor) ProcessEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingWithLock(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.deliver(ctx, event)
	if err != nil {
		return p.reschedule(ctx, event, err)
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, event *model.OutboxEvent) error {
	switch event.EventType {
	case model.OutboxEventRealtimeEmit:
		var payload model.RealtimeEmitPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("malformed realtime payload: %w", err)
		}
		return p.broker.Publish(ctx, payload.Channel, messaging.Envelope{
			Event:   payload.Event,
			Payload: payload.Payload,
		})
	case model.OutboxEventMailSend:
		var payload model.MailSendPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("malformed mail payload: %w", err)
		}
		return p.mailer.Send(ctx, payload.To, payload.Subject, payload.HTML)
	default:
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
}

// reschedule moves a failing event to retry with backoff, or parks it as
// failed once its retry budget is spent.
func (p *OutboxProcessor) reschedule(ctx context.Context, event *model.OutboxEvent, cause error) error {
	errStr := cause.Error()

	if event.RetryCount+1 >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); err != nil {
			p.logger.Error(err, "Failed to park event as failed", "event_id", event.ID.String())
		}
		return cause
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
	if err := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); err != nil {
		p.logger.Error(err, "Failed to reschedule event", "event_id", event.ID.String())
	}
	return cause
}
