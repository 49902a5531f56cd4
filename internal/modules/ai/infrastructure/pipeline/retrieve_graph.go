package pipeline

import (
	"ProdHub/internal/modules/ai/application/dto/respond"
	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/pkg/util"
	"ProdHub/pkg/zlog"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"
)

// retrieveState 检索 Pipeline 的中间状态（在节点间传递）
type retrieveState struct {
	Req           *RetrieveRequest             // 原始请求
	Filter        repository.VectorFilter      // 向量库过滤条件
	QueryVec      []float32                    // Query 向量
	Hits          []repository.VectorSearchHit // 向量库原始命中
	FilteredHits  []repository.VectorSearchHit // 过滤后的命中
	Start         time.Time                    // 开始时间
	EmbeddingMs   int64                        // 向量化耗时
	SearchMs      int64                        // 检索耗时
	PostProcessMs int64                        // 后处理耗时
	Blank         bool                         // 空问题，跳过检索直接返回空结果
	Err           error                        // 错误（如果有）
}

// buildGraph 构建检索 Pipeline 的 Eino Graph
//
// 节点顺序：Validate → EmbedQuery → SearchVector → PostProcess → BuildResult
func (p *RetrievePipeline) buildGraph(ctx context.Context) (compose.Runnable[*RetrieveRequest, *RetrieveResult], error) {
	const (
		Validate     = "Validate"
		EmbedQuery   = "EmbedQuery"
		SearchVector = "SearchVector"
		PostProcess  = "PostProcess"
		BuildResult  = "BuildResult"
	)
	g := compose.NewGraph[*RetrieveRequest, *RetrieveResult]()
	_ = g.AddLambdaNode(Validate, compose.InvokableLambdaWithOption(p.validateNode), compose.WithNodeName(Validate))
	_ = g.AddLambdaNode(EmbedQuery, compose.InvokableLambdaWithOption(p.embedQueryNode), compose.WithNodeName(EmbedQuery))
	_ = g.AddLambdaNode(SearchVector, compose.InvokableLambdaWithOption(p.searchVectorNode), compose.WithNodeName(SearchVector))
	_ = g.AddLambdaNode(PostProcess, compose.InvokableLambdaWithOption(p.postProcessNode), compose.WithNodeName(PostProcess))
	_ = g.AddLambdaNode(BuildResult, compose.InvokableLambdaWithOption(p.buildResultNode), compose.WithNodeName(BuildResult))
	_ = g.AddEdge(compose.START, Validate)
	_ = g.AddEdge(Validate, EmbedQuery)
	_ = g.AddEdge(EmbedQuery, SearchVector)
	_ = g.AddEdge(SearchVector, PostProcess)
	_ = g.AddEdge(PostProcess, BuildResult)
	_ = g.AddEdge(BuildResult, compose.END)
	return g.Compile(ctx, compose.WithGraphName("KnowledgeRetrievePipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

// validateNode 节点 1：校验请求参数并构造过滤条件
func (p *RetrievePipeline) validateNode(ctx context.Context, req *RetrieveRequest, _ ...any) (*retrieveState, error) {
	_ = ctx
	st := &retrieveState{
		Req:   req,
		Start: time.Now(),
	}
	if req == nil {
		st.Err = fmt.Errorf("retrieve request is nil")
		return st, nil
	}
	tenant := strings.TrimSpace(req.TenantID)
	req.TenantID = tenant
	if tenant == "" {
		st.Err = fmt.Errorf("missing tenant_id")
		return st, nil
	}
	question := strings.TrimSpace(req.Question)
	req.Question = question
	if question == "" {
		// 空问题按无命中处理，不算错误
		st.Blank = true
		return st, nil
	}
	req.TopK = normalizeTopK(req.TopK)
	// 过滤条件必须携带 tenant_id，防止越权
	st.Filter = repository.VectorFilter{
		TenantID:    tenant,
		EntityTypes: req.EntityTypes,
	}
	return st, nil
}

// embedQueryNode 节点 2：将用户问题向量化
func (p *RetrievePipeline) embedQueryNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st == nil {
		return &retrieveState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil || st.Blank {
		return st, nil
	}
	if st.Req == nil {
		st.Err = fmt.Errorf("nil request")
		return st, nil
	}
	embStart := time.Now()
	vecs, err := p.embedder.EmbedStrings(ctx, []string{st.Req.Question})
	if err != nil {
		st.Err = rag.Errf(rag.ErrModelError, "%v", err)
		return st, nil
	}
	if len(vecs) == 0 {
		st.Err = rag.Errf(rag.ErrModelError, "embedding result is empty")
		return st, nil
	}
	vec64 := vecs[0]
	if len(vec64) != p.vectorDim {
		st.Err = rag.Errf(rag.ErrModelError, "embedding dim mismatch: got=%d want=%d", len(vec64), p.vectorDim)
		return st, nil
	}
	vec32 := make([]float32, len(vec64))
	for i := range vec64 {
		vec32[i] = float32(vec64[i])
	}
	st.QueryVec = vec32
	st.EmbeddingMs = time.Since(embStart).Milliseconds()
	return st, nil
}

// searchVectorNode 节点 3：执行向量检索
func (p *RetrievePipeline) searchVectorNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st == nil {
		return &retrieveState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil || st.Blank {
		return st, nil
	}
	if st.Req == nil {
		st.Err = fmt.Errorf("nil request")
		return st, nil
	}
	if len(st.QueryVec) == 0 {
		st.Err = fmt.Errorf("query vector is empty")
		return st, nil
	}
	searchStart := time.Now()
	hits, err := p.vs.Search(ctx, st.QueryVec, st.Req.TopK, st.Filter)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Hits = hits
	st.SearchMs = time.Since(searchStart).Milliseconds()
	return st, nil
}

// postProcessNode 节点 4：后处理（租户校验、过滤、排序、截断）
func (p *RetrievePipeline) postProcessNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	_ = ctx
	if st == nil {
		return &retrieveState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil || st.Blank {
		return st, nil
	}
	if st.Req == nil {
		st.Err = fmt.Errorf("nil request")
		return st, nil
	}
	ppStart := time.Now()
	hits := st.Hits
	if len(hits) == 0 {
		st.FilteredHits = []repository.VectorSearchHit{}
		st.PostProcessMs = time.Since(ppStart).Milliseconds()
		return st, nil
	}
	// 1. 租户复核：命中里出现其他租户的数据说明底层过滤失效
	for _, h := range hits {
		if h.TenantID != st.Req.TenantID {
			zlog.Error("retrieve hit crossed tenant boundary",
				zap.String("want", st.Req.TenantID),
				zap.String("got", h.TenantID),
				zap.String("vectorId", h.ID))
			st.Err = rag.Errf(rag.ErrTenantIsolation, "hit %s belongs to tenant %s", h.ID, h.TenantID)
			return st, nil
		}
	}
	// 2. 非正得分丢弃，相似度约定落在 (0,1]
	filtered := make([]repository.VectorSearchHit, 0, len(hits))
	for _, h := range hits {
		if h.Score <= 0 {
			continue
		}
		if st.Req.ScoreThreshold > 0 && h.Score < st.Req.ScoreThreshold {
			continue
		}
		filtered = append(filtered, h)
	}
	hits = filtered
	// 3. 排序：score 降序，平分时新数据在前
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].UpdatedAt > hits[j].UpdatedAt
	})
	// 4. TopK 截断
	if len(hits) > st.Req.TopK {
		hits = hits[:st.Req.TopK]
	}
	st.FilteredHits = hits
	st.PostProcessMs = time.Since(ppStart).Milliseconds()
	return st, nil
}

// buildResultNode 节点 5：组装最终响应结构
func (p *RetrievePipeline) buildResultNode(ctx context.Context, st *retrieveState, _ ...any) (*RetrieveResult, error) {
	_ = ctx
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	req := st.Req
	res := &RetrieveResult{}
	if req != nil {
		res.Question = req.Question
	}
	res.QueryID = fmt.Sprintf("q_%s", util.GenerateShortUUID())
	res.Hits = st.Hits
	res.TotalHits = len(st.Hits)
	res.ReturnedCount = len(st.FilteredHits)
	res.EmbeddingMs = st.EmbeddingMs
	res.SearchMs = st.SearchMs
	res.PostProcessMs = st.PostProcessMs
	res.DurationMs = time.Since(st.Start).Milliseconds()

	chunks := make([]respond.KnowledgeHit, 0, len(st.FilteredHits))
	entityKeys := make([]string, 0, len(st.FilteredHits))
	for _, h := range st.FilteredHits {
		chunks = append(chunks, respond.KnowledgeHit{
			EntityType: h.EntityType,
			EntityID:   h.EntityID,
			Score:      h.Score,
			Content:    h.Content,
			Metadata:   h.MetadataJSON,
			UpdatedAt:  h.UpdatedAt,
		})
		entityKeys = append(entityKeys, h.EntityType+"/"+h.EntityID)
	}
	res.Chunks = chunks
	if res.ReturnedCount == 0 {
		res.IsEmpty = true
	}

	tenantID := ""
	topK := 0
	if req != nil {
		tenantID = req.TenantID
		topK = req.TopK
	}
	zlog.Info(
		"knowledge retrieve done",
		zap.String("query_id", res.QueryID),
		zap.String("tenant_id", tenantID),
		zap.Int("top_k", topK),
		zap.Int("total_hits", res.TotalHits),
		zap.Int("returned_count", res.ReturnedCount),
		zap.String("entities", strings.Join(entityKeys, ",")),
		zap.Int64("embedding_ms", res.EmbeddingMs),
		zap.Int64("search_ms", res.SearchMs),
		zap.Int64("post_process_ms", res.PostProcessMs),
		zap.Int64("duration_ms", res.DurationMs),
		zap.Bool("is_empty", res.IsEmpty),
	)
	return res, st.Err
}
