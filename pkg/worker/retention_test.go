package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository/repotest"
	"github.com/orderdesk/orderdesk-api/pkg/logger"
	"github.com/orderdesk/orderdesk-api/pkg/worker"
)

func TestRetentionWorkerPrunesOldRows(t *testing.T) {
	audits := repotest.NewAuditRepo()
	outbox := repotest.NewOutboxRepo()

	old := time.Now().AddDate(0, 0, -120)
	require.NoError(t, audits.Create(context.Background(), &model.AuditLog{
		ID: uuid.New(), Action: model.AuditActionTransition, CreatedAt: old,
	}))
	require.NoError(t, audits.Create(context.Background(), &model.AuditLog{
		ID: uuid.New(), Action: model.AuditActionTransition, CreatedAt: time.Now(),
	}))

	// A delivered event past retention and an undelivered one that must stay.
	outbox.Seed(&model.OutboxEvent{
		EventType:   model.OutboxEventMailSend,
		Payload:     []byte(`{}`),
		Status:      model.OutboxStatusProcessed,
		ProcessedAt: &old,
	})
	pending := &model.OutboxEvent{EventType: model.OutboxEventMailSend, Payload: []byte(`{}`)}
	require.NoError(t, outbox.Create(context.Background(), pending))

	w := worker.NewRetentionWorker(audits, outbox, 90, 5*time.Millisecond, logger.NewLogger(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	remaining, err := audits.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	events := outbox.All()
	require.Len(t, events, 1)
	assert.Equal(t, pending.ID, events[0].ID)
}
