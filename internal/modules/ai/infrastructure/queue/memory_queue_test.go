package queue

import (
	"context"
	"testing"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(entityID string) rag.EmbeddingJob {
	return rag.EmbeddingJob{
		TenantID:   "t1",
		EntityType: "product",
		EntityID:   entityID,
		Op:         rag.JobOpUpsert,
	}
}

func TestMemoryQueueLease(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.SetClock(func() time.Time { return now })

	require.NoError(t, q.Enqueue(ctx, testJob("p1")))
	require.NoError(t, q.Enqueue(ctx, testJob("p2")))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)

	msgs, err := q.Receive(ctx, 30*time.Second, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// FIFO 按入队顺序
	assert.Equal(t, "p1", msgs[0].Job.EntityID)
	assert.Equal(t, "p2", msgs[1].Job.EntityID)
	assert.Equal(t, 1, msgs[0].ReadCount)

	// 租约期内不可重复领取
	again, err := q.Receive(ctx, 30*time.Second, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	// 租约到期后重投，ReadCount 递增
	now = now.Add(31 * time.Second)
	redelivered, err := q.Receive(ctx, 30*time.Second, 10)
	require.NoError(t, err)
	require.Len(t, redelivered, 2)
	assert.Equal(t, 2, redelivered[0].ReadCount)
}

func TestMemoryQueueDeletePreventsRedelivery(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.SetClock(func() time.Time { return now })

	require.NoError(t, q.Enqueue(ctx, testJob("p1")))
	msgs, err := q.Receive(ctx, 30*time.Second, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, q.Delete(ctx, msgs[0].MessageID))

	now = now.Add(time.Minute)
	again, err := q.Receive(ctx, 30*time.Second, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestMemoryQueueMaxCount(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, testJob("p"+string(rune('0'+i)))))
	}
	msgs, err := q.Receive(ctx, time.Minute, 3)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestMemoryQueuePurge(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, testJob("p1")))
	require.NoError(t, q.Enqueue(ctx, testJob("p2")))
	require.NoError(t, q.Purge(ctx))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)

	msgs, err := q.Receive(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
