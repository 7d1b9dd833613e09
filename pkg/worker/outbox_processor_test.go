package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository/repotest"
	"github.com/orderdesk/orderdesk-api/internal/sideeffect"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/messaging"
	"github.com/orderdesk/orderdesk-api/pkg/metrics"
	"github.com/orderdesk/orderdesk-api/pkg/worker"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.New("worker_test")

type publishedMessage struct {
	Channel  string
	Envelope messaging.Envelope
}

type fakeBroker struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, publishedMessage{Channel: channel, Envelope: message.(messaging.Envelope)})
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: htmlBody})
	return nil
}

type processorFixture struct {
	processor *worker.OutboxProcessor
	repo      *repotest.OutboxRepo
	queue     *sideeffect.Queue
	broker    *fakeBroker
	mailer    *fakeMailer
}

func newProcessorFixture(t *testing.T, config worker.OutboxProcessorConfig) *processorFixture {
	t.Helper()
	f := &processorFixture{
		repo:   repotest.NewOutboxRepo(),
		broker: &fakeBroker{},
		mailer: &fakeMailer{},
	}
	f.queue = sideeffect.NewQueue(f.repo)
	f.processor = worker.NewOutboxProcessor(f.repo, f.broker, f.mailer, config, logger.NewLogger(nil), testMetrics)
	return f
}

func defaultConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}
}

func TestProcessEventsDeliversRealtimeEmit(t *testing.T) {
	f := newProcessorFixture(t, defaultConfig())
	payload := map[string]string{"title": "Quotation ready"}
	require.NoError(t, f.queue.EmitRealtime(context.Background(), "user:abc", "notification", payload))

	require.NoError(t, f.processor.ProcessEvents(context.Background()))

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, "user:abc", f.broker.published[0].Channel)
	assert.Equal(t, "notification", f.broker.published[0].Envelope.Event)

	raw, ok := f.broker.published[0].Envelope.Payload.(json.RawMessage)
	require.True(t, ok)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, payload, decoded)

	events := f.repo.All()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusProcessed, events[0].Status)
	assert.NotNil(t, events[0].ProcessedAt)
}

func TestProcessEventsDeliversMail(t *testing.T) {
	f := newProcessorFixture(t, defaultConfig())
	require.NoError(t, f.queue.SendMail(context.Background(), "writer@orderdesk.test", "Deadline in 1h", "<p>hurry</p>"))

	require.NoError(t, f.processor.ProcessEvents(context.Background()))

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "writer@orderdesk.test", f.mailer.sent[0].To)
	assert.Equal(t, "Deadline in 1h", f.mailer.sent[0].Subject)
	assert.Empty(t, f.broker.published)
}

func TestProcessEventsReschedulesFailureWithBackoff(t *testing.T) {
	f := newProcessorFixture(t, defaultConfig())
	f.broker.err = errors.New("broker down")
	require.NoError(t, f.queue.EmitRealtime(context.Background(), "user:abc", "notification", "x"))

	require.NoError(t, f.processor.ProcessEvents(context.Background()))

	events := f.repo.All()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusRetry, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Contains(t, *events[0].ErrorMessage, "broker down")
	require.NotNil(t, events[0].RetryAt)
	assert.True(t, events[0].RetryAt.After(time.Now()))
}

func TestProcessEventsParksAfterRetryBudget(t *testing.T) {
	config := defaultConfig()
	config.RetryDelay = time.Nanosecond
	f := newProcessorFixture(t, config)
	f.broker.err = errors.New("broker down")
	require.NoError(t, f.queue.EmitRealtime(context.Background(), "user:abc", "notification", "x"))

	for i := 0; i < config.RetryAttempts; i++ {
		require.NoError(t, f.processor.ProcessEvents(context.Background()))
		time.Sleep(time.Millisecond)
	}

	events := f.repo.All()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusFailed, events[0].Status)

	// A parked event is never picked up again.
	f.broker.err = nil
	require.NoError(t, f.processor.ProcessEvents(context.Background()))
	assert.Empty(t, f.broker.published)
}

func TestProcessEventsRejectsUnknownType(t *testing.T) {
	f := newProcessorFixture(t, defaultConfig())
	require.NoError(t, f.repo.Create(context.Background(), &model.OutboxEvent{
		EventType: "sms.send",
		Payload:   json.RawMessage(`{}`),
	}))

	require.NoError(t, f.processor.ProcessEvents(context.Background()))

	events := f.repo.All()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusRetry, events[0].Status)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Contains(t, *events[0].ErrorMessage, "sms.send")
}

func TestProcessEventsSkipsEventsNotYetDue(t *testing.T) {
	f := newProcessorFixture(t, defaultConfig())
	f.broker.err = errors.New("broker down")
	require.NoError(t, f.queue.EmitRealtime(context.Background(), "user:abc", "notification", "x"))
	require.NoError(t, f.processor.ProcessEvents(context.Background()))

	// Backoff has not elapsed; a recovered broker still must wait.
	f.broker.err = nil
	require.NoError(t, f.processor.ProcessEvents(context.Background()))
	assert.Empty(t, f.broker.published)
}

func TestNewOutboxProcessorRejectsZeroConfig(t *testing.T) {
	f := newProcessorFixture(t, defaultConfig())

	assert.Panics(t, func() {
		worker.NewOutboxProcessor(f.repo, f.broker, f.mailer, worker.OutboxProcessorConfig{}, logger.NewLogger(nil), testMetrics)
	})
}
