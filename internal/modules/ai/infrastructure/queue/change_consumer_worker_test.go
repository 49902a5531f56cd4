package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/infrastructure/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeConsumerEnqueuesJob(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := NewChangeConsumerWorker(q)

	payload, err := json.Marshal(rag.EntityChangeEvent{
		TenantID:   "t1",
		EntityType: "product",
		EntityID:   "p1",
		ChangeType: rag.ChangeUpdated,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, w.Handle(ctx, mq.Message{Topic: "prodhub.entity.changed", Value: payload}))

	msgs, err := q.Receive(ctx, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "t1", msgs[0].Job.TenantID)
	assert.Equal(t, rag.JobOpUpsert, msgs[0].Job.Op)
}

func TestChangeConsumerDeleteMapsToDeleteOp(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := NewChangeConsumerWorker(q)

	payload, err := json.Marshal(rag.EntityChangeEvent{
		TenantID:   "t1",
		EntityType: "feature",
		EntityID:   "f1",
		ChangeType: rag.ChangeDeleted,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, mq.Message{Value: payload}))

	msgs, err := q.Receive(ctx, time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, rag.JobOpDelete, msgs[0].Job.Op)
}

func TestChangeConsumerDropsBadMessages(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := NewChangeConsumerWorker(q)

	// 坏 JSON 与缺字段消息都不进队列，也不阻塞消费
	require.NoError(t, w.Handle(ctx, mq.Message{Value: []byte("{not json")}))
	require.NoError(t, w.Handle(ctx, mq.Message{Value: []byte(`{"tenantId":"","entityType":"product","entityId":"p1"}`)}))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}
