package vectordb

import (
	"context"
	"math"
	"testing"

	"ProdHub/internal/modules/ai/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, tenant, entityType string, vec []float32) repository.VectorUpsertItem {
	return repository.VectorUpsertItem{
		ID:         id,
		Vector:     vec,
		TenantID:   tenant,
		EntityType: entityType,
		EntityID:   id,
		Content:    "content of " + id,
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, math.Sqrt2/2, float64(Cosine([]float32{1, 0}, []float32{1, 1})), 1e-6)

	// 零向量与长度不一致
	assert.Equal(t, float32(0), Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, float32(0), Cosine([]float32{1}, []float32{1, 0}))
}

func TestMemoryStoreTenantFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{
		item("a1", "t1", "product", []float32{1, 0}),
		item("a2", "t1", "feature", []float32{0.9, 0.1}),
		item("b1", "t2", "product", []float32{1, 0}),
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, []float32{1, 0}, 10, repository.VectorFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "t1", h.TenantID)
	}

	// 类型过滤
	hits, err = s.Search(ctx, []float32{1, 0}, 10, repository.VectorFilter{
		TenantID:    "t1",
		EntityTypes: []string{"feature"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a2", hits[0].ID)

	// 租户过滤是强制项
	_, err = s.Search(ctx, []float32{1, 0}, 10, repository.VectorFilter{})
	assert.Error(t, err)
}

func TestMemoryStoreTopKAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{
		item("close", "t1", "product", []float32{1, 0}),
		item("mid", "t1", "product", []float32{1, 1}),
		item("far", "t1", "product", []float32{0, 1}),
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, []float32{1, 0}, 2, repository.VectorFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "close", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
}

func TestMemoryStoreUpsertReplacesAndDeletes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{item("a1", "t1", "product", []float32{1, 0})})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []repository.VectorUpsertItem{item("a1", "t1", "product", []float32{0, 1})})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())

	row, ok := s.Get("a1")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1}, row.Vector)

	require.NoError(t, s.DeleteByIDs(ctx, []string{"a1"}))
	assert.Equal(t, 0, s.Count())
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{item("", "t1", "product", []float32{1, 0})})
	assert.Error(t, err)

	_, err = s.Upsert(ctx, []repository.VectorUpsertItem{item("a1", "", "product", []float32{1, 0})})
	assert.Error(t, err)

	_, err = s.Upsert(ctx, []repository.VectorUpsertItem{item("a1", "t1", "product", []float32{1, 0, 0})})
	assert.Error(t, err)
}

func TestBuildFilterExpr(t *testing.T) {
	expr, err := BuildFilterExpr(repository.VectorFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, `tenant_id == "t1"`, expr)

	expr, err = BuildFilterExpr(repository.VectorFilter{
		TenantID:    "t1",
		EntityTypes: []string{"product", "feature"},
	})
	require.NoError(t, err)
	assert.Equal(t, `tenant_id == "t1" && entity_type in ["product", "feature"]`, expr)

	// 引号与反斜杠转义
	expr, err = BuildFilterExpr(repository.VectorFilter{TenantID: `t"1\x`})
	require.NoError(t, err)
	assert.Equal(t, `tenant_id == "t\"1\\x"`, expr)

	_, err = BuildFilterExpr(repository.VectorFilter{})
	assert.Error(t, err)
}
