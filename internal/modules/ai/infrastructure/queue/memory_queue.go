package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
)

type memoryJob struct {
	id        int64
	job       rag.EmbeddingJob
	visibleAt time.Time
	readCount int
}

// MemoryQueue 与数据库实现同语义的内存队列（测试与单机开发用）
type MemoryQueue struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*memoryJob
	now    func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{jobs: make(map[int64]*memoryJob), now: time.Now}
}

// SetClock 注入时钟（测试用）
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *MemoryQueue) Enqueue(_ context.Context, job rag.EmbeddingJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.jobs[q.nextID] = &memoryJob{
		id:        q.nextID,
		job:       job,
		visibleAt: q.now(),
	}
	return nil
}

func (q *MemoryQueue) Receive(_ context.Context, visibilityTimeout time.Duration, maxCount int) ([]*rag.QueueMessage, error) {
	if maxCount <= 0 {
		maxCount = 10
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	eligible := make([]*memoryJob, 0)
	for _, j := range q.jobs {
		if !j.visibleAt.After(now) {
			eligible = append(eligible, j)
		}
	}
	sort.Slice(eligible, func(i, k int) bool { return eligible[i].id < eligible[k].id })
	if len(eligible) > maxCount {
		eligible = eligible[:maxCount]
	}

	out := make([]*rag.QueueMessage, 0, len(eligible))
	for _, j := range eligible {
		j.visibleAt = now.Add(visibilityTimeout)
		j.readCount++
		out = append(out, &rag.QueueMessage{
			MessageID: j.id,
			ReadCount: j.readCount,
			Job:       j.job,
		})
	}
	return out, nil
}

func (q *MemoryQueue) Delete(_ context.Context, messageID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, messageID)
	return nil
}

func (q *MemoryQueue) Purge(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = make(map[int64]*memoryJob)
	return nil
}

func (q *MemoryQueue) Depth(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

var _ repository.JobQueue = (*MemoryQueue)(nil)
