package pipeline

import (
	"context"
	"errors"
	"testing"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	embedmod "ProdHub/internal/modules/ai/infrastructure/embedding"
	"ProdHub/internal/modules/ai/infrastructure/vectordb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 8

// stubStore 返回预置命中，用于覆盖后处理分支
type stubStore struct {
	hits []repository.VectorSearchHit
	err  error
}

func (s *stubStore) Upsert(_ context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids, nil
}

func (s *stubStore) DeleteByIDs(_ context.Context, _ []string) error { return nil }

func (s *stubStore) Search(_ context.Context, _ []float32, _ int, _ repository.VectorFilter) ([]repository.VectorSearchHit, error) {
	return s.hits, s.err
}

func newTestPipeline(t *testing.T, vs repository.VectorStore) *RetrievePipeline {
	t.Helper()
	p, err := NewRetrievePipeline(embedmod.NewMockEmbedder(testDim), vs, testDim)
	require.NoError(t, err)
	return p
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	vecs, err := embedmod.NewMockEmbedder(testDim).EmbedStrings(context.Background(), []string{text})
	require.NoError(t, err)
	out := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		out[i] = float32(v)
	}
	return out
}

func TestRetrieveEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := vectordb.NewMemoryStore(testDim)
	_, err := store.Upsert(ctx, []repository.VectorUpsertItem{
		{ID: "v1", Vector: mustEmbed(t, "login feature"), TenantID: "t1", EntityType: "feature", EntityID: "f1", Content: "Feature: Login"},
		{ID: "v2", Vector: mustEmbed(t, "release notes"), TenantID: "t1", EntityType: "release", EntityID: "r1", Content: "Release: 1.0"},
	})
	require.NoError(t, err)

	p := newTestPipeline(t, store)
	res, err := p.Retrieve(ctx, &RetrieveRequest{TenantID: "t1", Question: "login feature", TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	// 同文本向量完全一致，必然排第一
	assert.Equal(t, "f1", res.Chunks[0].EntityID)
	assert.InDelta(t, 1.0, float64(res.Chunks[0].Score), 1e-5)
	assert.False(t, res.IsEmpty)
	assert.NotEmpty(t, res.QueryID)
}

func TestRetrieveEmptyResult(t *testing.T) {
	p := newTestPipeline(t, vectordb.NewMemoryStore(testDim))
	res, err := p.Retrieve(context.Background(), &RetrieveRequest{TenantID: "t1", Question: "anything"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, 0, res.ReturnedCount)
}

func TestRetrieveValidation(t *testing.T) {
	p := newTestPipeline(t, vectordb.NewMemoryStore(testDim))

	_, err := p.Retrieve(context.Background(), &RetrieveRequest{Question: "q"})
	assert.Error(t, err)
}

func TestRetrieveBlankQuestionReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	store := vectordb.NewMemoryStore(testDim)
	_, err := store.Upsert(ctx, []repository.VectorUpsertItem{
		{ID: "v1", Vector: mustEmbed(t, "login feature"), TenantID: "t1", EntityType: "feature", EntityID: "f1", Content: "Feature: Login"},
	})
	require.NoError(t, err)
	p := newTestPipeline(t, store)

	// 空问题与纯空白问题都按无命中处理，不报错
	for _, q := range []string{"", "   "} {
		res, err := p.Retrieve(ctx, &RetrieveRequest{TenantID: "t1", Question: q})
		require.NoError(t, err)
		assert.True(t, res.IsEmpty)
		assert.Empty(t, res.Chunks)
		assert.Equal(t, 0, res.ReturnedCount)
	}
}

func TestRetrieveTenantIsolationViolation(t *testing.T) {
	// 底层过滤失效时命中了其他租户的数据，必须当成内部错误暴露
	vs := &stubStore{hits: []repository.VectorSearchHit{
		{ID: "v1", Score: 0.9, TenantID: "t2", EntityType: "product", EntityID: "p1"},
	}}
	p := newTestPipeline(t, vs)

	_, err := p.Retrieve(context.Background(), &RetrieveRequest{TenantID: "t1", Question: "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rag.ErrTenantIsolation))
}

func TestRetrievePostProcessFilterAndOrder(t *testing.T) {
	vs := &stubStore{hits: []repository.VectorSearchHit{
		{ID: "old", Score: 0.9, TenantID: "t1", EntityType: "product", EntityID: "old", UpdatedAt: 100},
		{ID: "low", Score: 0.2, TenantID: "t1", EntityType: "product", EntityID: "low", UpdatedAt: 100},
		{ID: "neg", Score: -0.1, TenantID: "t1", EntityType: "product", EntityID: "neg", UpdatedAt: 100},
		{ID: "new", Score: 0.9, TenantID: "t1", EntityType: "product", EntityID: "new", UpdatedAt: 200},
		{ID: "mid", Score: 0.5, TenantID: "t1", EntityType: "product", EntityID: "mid", UpdatedAt: 100},
	}}
	p := newTestPipeline(t, vs)

	res, err := p.Retrieve(context.Background(), &RetrieveRequest{
		TenantID:       "t1",
		Question:       "q",
		TopK:           10,
		ScoreThreshold: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 3)
	// 平分时 UpdatedAt 新的在前；阈值与非正得分被过滤
	assert.Equal(t, "new", res.Chunks[0].EntityID)
	assert.Equal(t, "old", res.Chunks[1].EntityID)
	assert.Equal(t, "mid", res.Chunks[2].EntityID)
	assert.Equal(t, 5, res.TotalHits)
	assert.Equal(t, 3, res.ReturnedCount)
}

func TestRetrieveTopKTruncation(t *testing.T) {
	vs := &stubStore{hits: []repository.VectorSearchHit{
		{ID: "a", Score: 0.9, TenantID: "t1", EntityID: "a"},
		{ID: "b", Score: 0.8, TenantID: "t1", EntityID: "b"},
		{ID: "c", Score: 0.7, TenantID: "t1", EntityID: "c"},
	}}
	p := newTestPipeline(t, vs)

	res, err := p.Retrieve(context.Background(), &RetrieveRequest{TenantID: "t1", Question: "q", TopK: 2})
	require.NoError(t, err)
	assert.Len(t, res.Chunks, 2)
	assert.Equal(t, "a", res.Chunks[0].EntityID)
}

func TestNormalizeTopK(t *testing.T) {
	assert.Equal(t, 5, normalizeTopK(0))
	assert.Equal(t, 5, normalizeTopK(-3))
	assert.Equal(t, 7, normalizeTopK(7))
	assert.Equal(t, 50, normalizeTopK(500))
}
