package pipeline

import (
	"ProdHub/internal/modules/ai/application/dto/respond"
	"ProdHub/internal/modules/ai/domain/repository"
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"
)

// RetrieveRequest 检索 Pipeline 的输入请求
type RetrieveRequest struct {
	TenantID string // 租户 ID（必填，从 JWT 提取）
	Question string // 用户问题（必填）
	TopK     int    // 返回 Top-K 条（默认 5，范围 1-50）
	// 可选过滤条件
	EntityTypes []string // 只检索这些实体类型
	// 召回质量控制参数
	ScoreThreshold float32 // 相似度得分阈值（低于此值的结果会被过滤）
}

// RetrieveResult 检索 Pipeline 的输出结果
type RetrieveResult struct {
	QueryID       string                       // 本次查询唯一 ID（便于追踪回放）
	Question      string                       // 原始用户问题
	Hits          []repository.VectorSearchHit // 向量库原始命中结果
	Chunks        []respond.KnowledgeHit       // 最终返回的命中列表
	TotalHits     int                          // 向量库实际返回的结果数（过滤前）
	ReturnedCount int                          // 最终返回数量（过滤后）
	DurationMs    int64                        // 召回总耗时（毫秒）
	EmbeddingMs   int64                        // 向量化耗时（毫秒）
	SearchMs      int64                        // 向量检索耗时（毫秒）
	PostProcessMs int64                        // 后处理耗时（毫秒）
	IsEmpty       bool                         // 是否未命中任何结果
}

// RetrievePipeline 检索 Pipeline（基于 Eino compose.Graph）
//
// 设计原则：
// 1. 只依赖 domain 层接口（VectorStore, Embedder），不直接依赖 Milvus SDK
// 2. 权限隔离内建：过滤条件必须携带 tenant_id，检索结果再做一次租户校验
// 3. 观测优先：记录 query_id、各阶段耗时、命中实体列表
type RetrievePipeline struct {
	embedder  embedding.Embedder
	vs        repository.VectorStore
	vectorDim int
	r         compose.Runnable[*RetrieveRequest, *RetrieveResult]
}

func NewRetrievePipeline(
	embedder embedding.Embedder,
	vs repository.VectorStore,
	vectorDim int,
) (*RetrievePipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	p := &RetrievePipeline{
		embedder:  embedder,
		vs:        vs,
		vectorDim: vectorDim,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Retrieve 执行检索（封装 Eino Runnable.Invoke）
func (p *RetrievePipeline) Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResult, error) {
	if req == nil {
		return nil, fmt.Errorf("retrieve request is nil")
	}
	if p.r == nil {
		return nil, fmt.Errorf("pipeline runnable is nil")
	}
	return p.r.Invoke(ctx, req)
}

// normalizeTopK 规范化 TopK 参数（默认 5，范围 1-50）
func normalizeTopK(topK int) int {
	if topK <= 0 {
		return 5
	}
	if topK > 50 {
		return 50
	}
	return topK
}
