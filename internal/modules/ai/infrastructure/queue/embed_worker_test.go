package queue

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	embedmod "ProdHub/internal/modules/ai/infrastructure/embedding"
	"ProdHub/internal/modules/ai/infrastructure/vectordb"
	productRepo "ProdHub/internal/modules/product/domain/repository"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 8

type fakeReader struct {
	records map[string]*productRepo.EntityRecord
}

func newFakeReader() *fakeReader {
	return &fakeReader{records: make(map[string]*productRepo.EntityRecord)}
}

func (r *fakeReader) add(rec *productRepo.EntityRecord) {
	r.records[rec.TenantID+"|"+rec.EntityType+"|"+rec.EntityID] = rec
}

func (r *fakeReader) FetchRecord(_ context.Context, tenantID, entityType, entityID string) (*productRepo.EntityRecord, error) {
	return r.records[tenantID+"|"+entityType+"|"+entityID], nil
}

func (r *fakeReader) ListTenantRecords(_ context.Context, tenantID string) ([]*productRepo.EntityRecord, error) {
	out := make([]*productRepo.EntityRecord, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeReader) ListTenants(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, rec := range r.records {
		if !seen[rec.TenantID] {
			seen[rec.TenantID] = true
			out = append(out, rec.TenantID)
		}
	}
	return out, nil
}

type fakeRecordRepo struct {
	rows map[string]*rag.AIEmbeddingRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{rows: make(map[string]*rag.AIEmbeddingRecord)}
}

func (f *fakeRecordRepo) UpsertRecord(_ context.Context, rec *rag.AIEmbeddingRecord) error {
	cp := *rec
	f.rows[rec.TenantId+"|"+rec.EntityType+"|"+rec.EntityId] = &cp
	return nil
}

func (f *fakeRecordRepo) Find(_ context.Context, tenantID, entityType, entityID string) (*rag.AIEmbeddingRecord, error) {
	return f.rows[tenantID+"|"+entityType+"|"+entityID], nil
}

func (f *fakeRecordRepo) DeleteRecord(_ context.Context, tenantID, entityType, entityID string) error {
	delete(f.rows, tenantID+"|"+entityType+"|"+entityID)
	return nil
}

func (f *fakeRecordRepo) CountByStatus(_ context.Context, tenantID string, status int8) (int64, error) {
	var n int64
	for _, rec := range f.rows {
		if rec.TenantId == tenantID && rec.EmbedStatus == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordRepo) ListByStatus(_ context.Context, status int8, limit int) ([]*rag.AIEmbeddingRecord, error) {
	out := make([]*rag.AIEmbeddingRecord, 0)
	for _, rec := range f.rows {
		if rec.EmbedStatus == status && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedStrings(_ context.Context, _ []string, _ ...embedding.Option) ([][]float64, error) {
	return nil, errors.New("upstream unavailable")
}

type workerFixture struct {
	queue   *MemoryQueue
	reader  *fakeReader
	store   *vectordb.MemoryStore
	records *fakeRecordRepo
	worker  *EmbedWorker
}

func newWorkerFixture(t *testing.T, embedder embedding.Embedder, maxAttempts int) *workerFixture {
	t.Helper()
	q := NewMemoryQueue()
	reader := newFakeReader()
	store := vectordb.NewMemoryStore(testDim)
	records := newFakeRecordRepo()
	w := NewEmbedWorker(q, reader, embedder, embedmod.EmbedderMeta{
		Provider: "mock", Model: "mock", Dim: testDim,
	}, store, records, WorkerConfig{
		VisibilityTimeout: 30 * time.Second,
		MaxAttempts:       maxAttempts,
	})
	return &workerFixture{queue: q, reader: reader, store: store, records: records, worker: w}
}

func TestProcessBatchPartialSuccess(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, embedmod.NewMockEmbedder(testDim), 5)

	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p1",
		Title: "Alpha", Text: "Product: Alpha", UpdatedAt: time.Now(),
	})
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "feature", EntityID: "f1",
		Title: "Login", Text: "Feature: Login", UpdatedAt: time.Now(),
	})

	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpUpsert}))
	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "feature", EntityID: "f1", Op: rag.JobOpUpsert}))
	// 实体不存在
	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "ghost", Op: rag.JobOpUpsert}))
	// 载荷残缺
	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", Op: rag.JobOpUpsert}))

	res, err := fx.worker.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Received)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 0, res.Abandoned)

	// 成功任务入库且出队，失败任务留在队列等待重投
	assert.Equal(t, 2, fx.store.Count())
	depth, err := fx.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)

	rec, err := fx.records.Find(ctx, "t1", "product", "p1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, rag.EmbedStatusDone, rec.EmbedStatus)
	assert.Equal(t, testDim, rec.Dim)

	failed, err := fx.records.Find(ctx, "t1", "product", "ghost")
	require.NoError(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, rag.EmbedStatusFailed, failed.EmbedStatus)
	assert.NotEmpty(t, failed.ErrorMsg)
}

func TestProcessBatchUsesPayloadContent(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, embedmod.NewMockEmbedder(testDim), 5)

	// 实体不在目录里，内容只存在于任务载荷
	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{
		TenantID:   "t1",
		EntityType: "feature",
		EntityID:   "f1",
		Op:         rag.JobOpUpsert,
		Content:    "Feature: X\nPriority: High",
		Metadata:   map[string]string{"title": "X"},
	}))

	res, err := fx.worker.ProcessBatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Failed)

	item, ok := fx.store.Get(VectorID("t1", "feature", "f1"))
	require.True(t, ok)
	assert.Len(t, item.Vector, testDim)
	assert.Equal(t, "Feature: X\nPriority: High", item.Content)
	assert.Contains(t, item.MetadataJSON, `"title":"X"`)

	depth, err := fx.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestProcessBatchFallsBackToCatalogFetch(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, embedmod.NewMockEmbedder(testDim), 5)
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p1",
		Title: "Alpha", Text: "Product: Alpha", UpdatedAt: time.Now(),
	})

	// 载荷无内容时回源目录渲染
	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpUpsert}))

	res, err := fx.worker.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	item, ok := fx.store.Get(VectorID("t1", "product", "p1"))
	require.True(t, ok)
	assert.Equal(t, "Product: Alpha", item.Content)
}

func TestProcessBatchIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, embedmod.NewMockEmbedder(testDim), 5)
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p1",
		Title: "Alpha", Text: "Product: Alpha", UpdatedAt: time.Now(),
	})

	job := rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpUpsert}
	for i := 0; i < 2; i++ {
		require.NoError(t, fx.queue.Enqueue(ctx, job))
		res, err := fx.worker.ProcessBatch(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
	}

	// 同一实体重复嵌入只占一个向量位
	assert.Equal(t, 1, fx.store.Count())
	_, ok := fx.store.Get(VectorID("t1", "product", "p1"))
	assert.True(t, ok)
}

func TestProcessBatchDeleteOp(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, embedmod.NewMockEmbedder(testDim), 5)
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p1",
		Title: "Alpha", Text: "Product: Alpha", UpdatedAt: time.Now(),
	})

	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpUpsert}))
	_, err := fx.worker.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, fx.store.Count())

	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpDelete}))
	res, err := fx.worker.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, fx.store.Count())

	rec, err := fx.records.Find(ctx, "t1", "product", "p1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestProcessBatchModelFailureFailsWholeCall(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, failingEmbedder{}, 5)
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p1",
		Title: "Alpha", Text: "Product: Alpha", UpdatedAt: time.Now(),
	})
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p2",
		Title: "Beta", Text: "Product: Beta", UpdatedAt: time.Now(),
	})

	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpUpsert}))
	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p2", Op: rag.JobOpUpsert}))

	res, err := fx.worker.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 0, fx.store.Count())

	// 消息留在队列等待重投
	depth, err := fx.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}

func TestProcessBatchAbandonAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture(t, failingEmbedder{}, 2)
	fx.reader.add(&productRepo.EntityRecord{
		TenantID: "t1", EntityType: "product", EntityID: "p1",
		Title: "Alpha", Text: "Product: Alpha", UpdatedAt: time.Now(),
	})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fx.queue.SetClock(func() time.Time { return now })

	require.NoError(t, fx.queue.Enqueue(ctx, rag.EmbeddingJob{TenantID: "t1", EntityType: "product", EntityID: "p1", Op: rag.JobOpUpsert}))

	// 前两次投递嵌入失败，消息留队
	for i := 0; i < 2; i++ {
		res, err := fx.worker.ProcessBatch(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		now = now.Add(31 * time.Second)
	}

	// 第三次投递超出上限，消息被丢弃
	res, err := fx.worker.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Abandoned)
	assert.Equal(t, 0, res.Failed)

	depth, err := fx.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	fx := newWorkerFixture(t, embedmod.NewMockEmbedder(testDim), 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fx.worker.Run(ctx) }()

	// 队列为空，worker 处于空转退避中
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker still running after cancel")
	}
}

func TestVectorIDDeterministic(t *testing.T) {
	a := VectorID("t1", "product", "p1")
	b := VectorID("t1", "product", "p1")
	c := VectorID("t2", "product", "p1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 50)
	assert.Equal(t, "v_", a[:2])
}

func TestToFloat32Checked(t *testing.T) {
	ok, err := toFloat32Checked([]float64{0.1, 0.2, 0.3}, 3)
	require.NoError(t, err)
	assert.Len(t, ok, 3)

	_, err = toFloat32Checked([]float64{0.1, 0.2}, 3)
	assert.Error(t, err)

	_, err = toFloat32Checked([]float64{0.1, math.NaN(), 0.3}, 3)
	assert.Error(t, err)

	_, err = toFloat32Checked([]float64{0.1, math.Inf(1), 0.3}, 3)
	assert.Error(t, err)
}

func TestMockEmbedderFullDimension(t *testing.T) {
	vecs, err := embedmod.NewMockEmbedder(1536).EmbedStrings(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)

	vec, err := toFloat32Checked(vecs[0], 1536)
	require.NoError(t, err)
	assert.Len(t, vec, 1536)
}
