package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"ProdHub/internal/modules/ai/domain/repository"
)

// MemoryStore 内存向量库：余弦相似度在进程内计算，测试与单机开发用
type MemoryStore struct {
	mu   sync.RWMutex
	dim  int
	rows map[string]repository.VectorUpsertItem
}

func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, rows: make(map[string]repository.VectorUpsertItem)}
}

func (s *MemoryStore) Upsert(_ context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("upsert item missing ID")
		}
		if it.TenantID == "" {
			return nil, errors.New("upsert item missing tenant id")
		}
		if len(it.Vector) != s.dim {
			return nil, fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", it.ID, len(it.Vector), s.dim)
		}
		s.rows[it.ID] = it
		ids = append(ids, it.ID)
	}
	return ids, nil
}

func (s *MemoryStore) DeleteByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, topK int, filter repository.VectorFilter) ([]repository.VectorSearchHit, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("vector dim mismatch, got=%d want=%d", len(vector), s.dim)
	}
	if strings.TrimSpace(filter.TenantID) == "" {
		return nil, errors.New("filter missing tenant id")
	}
	if topK <= 0 {
		topK = 5
	}

	typeSet := make(map[string]struct{}, len(filter.EntityTypes))
	for _, t := range filter.EntityTypes {
		if t = strings.TrimSpace(t); t != "" {
			typeSet[t] = struct{}{}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]repository.VectorSearchHit, 0)
	for _, row := range s.rows {
		if row.TenantID != filter.TenantID {
			continue
		}
		if len(typeSet) > 0 {
			if _, ok := typeSet[row.EntityType]; !ok {
				continue
			}
		}
		hits = append(hits, repository.VectorSearchHit{
			ID:           row.ID,
			Score:        Cosine(vector, row.Vector),
			TenantID:     row.TenantID,
			EntityType:   row.EntityType,
			EntityID:     row.EntityID,
			Content:      row.Content,
			MetadataJSON: row.MetadataJSON,
			UpdatedAt:    row.UpdatedAt,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count 当前行数（测试用）
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Get 按 id 取一行（测试用）
func (s *MemoryStore) Get(id string) (repository.VectorUpsertItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	return row, ok
}

// Cosine 余弦相似度；零向量返回 0
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ repository.VectorStore = (*MemoryStore)(nil)
