package repository

import "context"

// VectorStore 是 domain 层定义的“向量库能力抽象”。
//
// 设计约束：
// 1) application / domain 只能依赖本接口，不应直接依赖 Milvus SDK。
// 2) infrastructure 通过适配器实现本接口（Milvus 或内存实现），从而做到可替换。
//
// 多租户约定：TenantID 是强制过滤维度，写入与检索都必须携带；
// 过滤条件用 VectorFilter 表达，由各实现翻译为自己的查询语法。

// VectorUpsertItem 向量写入所需的标准字段
type VectorUpsertItem struct {
	ID           string
	Vector       []float32
	TenantID     string
	EntityType   string
	EntityID     string
	Content      string
	MetadataJSON string
	UpdatedAt    int64
}

type VectorSearchHit struct {
	ID           string
	Score        float32
	TenantID     string
	EntityType   string
	EntityID     string
	Content      string
	MetadataJSON string
	UpdatedAt    int64
}

// VectorFilter 检索过滤条件；TenantID 必填
type VectorFilter struct {
	TenantID    string
	EntityTypes []string
}

// VectorStore 向量数据库接口（Upsert/Delete/Search）
type VectorStore interface {
	Upsert(ctx context.Context, items []VectorUpsertItem) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	Search(ctx context.Context, vector []float32, topK int, filter VectorFilter) ([]VectorSearchHit, error)
}
