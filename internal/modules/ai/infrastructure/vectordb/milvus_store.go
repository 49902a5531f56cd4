package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ProdHub/internal/modules/ai/domain/repository"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

type MilvusStore struct {
	cli         mclient.Client
	collection  string
	vectorField string
	metricType  entity.MetricType
	vectorDim   int
	searchParam entity.SearchParam
}

func NewMilvusStore(cli mclient.Client, collection string, vectorDim int, metricType entity.MetricType) (*MilvusStore, error) {
	if cli == nil {
		return nil, errors.New("milvus client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, err
	}
	return &MilvusStore{
		cli:         cli,
		collection:  collection,
		vectorField: "vector",
		metricType:  metricType,
		vectorDim:   vectorDim,
		searchParam: sp,
	}, nil
}

func (s *MilvusStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	ids := make([]string, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	tenantIDs := make([]string, 0, len(items))
	entityTypes := make([]string, 0, len(items))
	entityIDs := make([]string, 0, len(items))
	contents := make([]string, 0, len(items))
	metas := make([]string, 0, len(items))
	updatedAts := make([]int64, 0, len(items))

	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("upsert item missing ID")
		}
		if it.TenantID == "" {
			return nil, errors.New("upsert item missing tenant id")
		}
		if len(it.Vector) != s.vectorDim {
			return nil, fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", it.ID, len(it.Vector), s.vectorDim)
		}
		ids = append(ids, it.ID)
		vectors = append(vectors, it.Vector)
		tenantIDs = append(tenantIDs, it.TenantID)
		entityTypes = append(entityTypes, it.EntityType)
		entityIDs = append(entityIDs, it.EntityID)
		contents = append(contents, it.Content)
		meta := it.MetadataJSON
		if strings.TrimSpace(meta) == "" {
			meta = "{}"
		}
		metas = append(metas, meta)
		updatedAts = append(updatedAts, it.UpdatedAt)
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector(s.vectorField, s.vectorDim, vectors),
		entity.NewColumnVarChar("tenant_id", tenantIDs),
		entity.NewColumnVarChar("entity_type", entityTypes),
		entity.NewColumnVarChar("entity_id", entityIDs),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnJSONBytes("metadata", stringSliceToJSONBytes(metas)),
		entity.NewColumnInt64("updated_at", updatedAts),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *MilvusStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	expr := fmt.Sprintf(`id in ["%s"]`, strings.Join(ids, `","`))
	return s.cli.Delete(ctx, s.collection, "", expr)
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, filter repository.VectorFilter) ([]repository.VectorSearchHit, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("vector dim mismatch, got=%d want=%d", len(vector), s.vectorDim)
	}
	if topK <= 0 {
		topK = 5
	}
	expr, err := BuildFilterExpr(filter)
	if err != nil {
		return nil, err
	}
	res, err := s.cli.Search(
		ctx,
		s.collection,
		[]string{},
		expr,
		[]string{"tenant_id", "entity_type", "entity_id", "content", "metadata", "updated_at"},
		[]entity.Vector{entity.FloatVector(vector)},
		s.vectorField,
		s.metricType,
		topK,
		s.searchParam,
	)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return []repository.VectorSearchHit{}, nil
	}
	return parseSearchResult(res[0])
}

// BuildFilterExpr 把 VectorFilter 翻译成 Milvus 布尔表达式；租户过滤是强制项
func BuildFilterExpr(filter repository.VectorFilter) (string, error) {
	tenant := strings.TrimSpace(filter.TenantID)
	if tenant == "" {
		return "", errors.New("filter missing tenant id")
	}
	parts := []string{fmt.Sprintf(`tenant_id == "%s"`, escapeExprString(tenant))}
	if len(filter.EntityTypes) > 0 {
		quoted := make([]string, 0, len(filter.EntityTypes))
		for _, t := range filter.EntityTypes {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			quoted = append(quoted, fmt.Sprintf(`"%s"`, escapeExprString(t)))
		}
		if len(quoted) > 0 {
			parts = append(parts, fmt.Sprintf("entity_type in [%s]", strings.Join(quoted, ", ")))
		}
	}
	return strings.Join(parts, " && "), nil
}

func escapeExprString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func parseSearchResult(sr mclient.SearchResult) ([]repository.VectorSearchHit, error) {
	if sr.Err != nil {
		return nil, sr.Err
	}
	hits := make([]repository.VectorSearchHit, 0, sr.ResultCount)

	idCol := sr.IDs
	tenantCol := columnByName(sr.Fields, "tenant_id")
	entityTypeCol := columnByName(sr.Fields, "entity_type")
	entityIDCol := columnByName(sr.Fields, "entity_id")
	contentCol := columnByName(sr.Fields, "content")
	metaCol := columnByName(sr.Fields, "metadata")
	updatedAtCol := columnByName(sr.Fields, "updated_at")

	for i := 0; i < sr.ResultCount; i++ {
		id, _ := idCol.GetAsString(i)
		score := float32(0)
		if i < len(sr.Scores) {
			score = sr.Scores[i]
		}

		h := repository.VectorSearchHit{ID: id, Score: score}
		if tenantCol != nil {
			v, _ := tenantCol.GetAsString(i)
			h.TenantID = v
		}
		if entityTypeCol != nil {
			v, _ := entityTypeCol.GetAsString(i)
			h.EntityType = v
		}
		if entityIDCol != nil {
			v, _ := entityIDCol.GetAsString(i)
			h.EntityID = v
		}
		if contentCol != nil {
			v, _ := contentCol.GetAsString(i)
			h.Content = v
		}
		if metaCol != nil {
			v, _ := metaCol.Get(i)
			if bs, ok := v.([]byte); ok {
				h.MetadataJSON = string(bs)
			}
		}
		if updatedAtCol != nil {
			v, _ := updatedAtCol.GetAsInt64(i)
			h.UpdatedAt = v
		}
		hits = append(hits, h)
	}

	return hits, nil
}

func columnByName(cols mclient.ResultSet, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

func stringSliceToJSONBytes(values []string) [][]byte {
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out
}

var _ repository.VectorStore = (*MilvusStore)(nil)
