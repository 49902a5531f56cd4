package service

import (
	"context"
	"errors"

	"ProdHub/internal/modules/ai/application/dto/request"
	"ProdHub/internal/modules/ai/application/dto/respond"
	"ProdHub/internal/modules/ai/infrastructure/pipeline"
)

// RetrieveService 检索服务：校验入参后委托给检索 Pipeline
type RetrieveService struct {
	pipeline *pipeline.RetrievePipeline
}

func NewRetrieveService(p *pipeline.RetrievePipeline) *RetrieveService {
	return &RetrieveService{pipeline: p}
}

func (s *RetrieveService) Query(ctx context.Context, tenantID string, req request.QueryRequest) (*respond.QueryRespond, error) {
	if s.pipeline == nil {
		return nil, errors.New("retrieve pipeline is nil")
	}

	res, err := s.pipeline.Retrieve(ctx, &pipeline.RetrieveRequest{
		TenantID:       tenantID,
		Question:       req.Question,
		TopK:           req.TopK,
		EntityTypes:    req.EntityTypes,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		return nil, err
	}

	return &respond.QueryRespond{
		QueryID:       res.QueryID,
		Question:      res.Question,
		Hits:          res.Chunks,
		TotalHits:     res.TotalHits,
		ReturnedCount: res.ReturnedCount,
		DurationMs:    res.DurationMs,
		EmbeddingMs:   res.EmbeddingMs,
		SearchMs:      res.SearchMs,
		PostProcessMs: res.PostProcessMs,
		IsEmpty:       res.IsEmpty,
	}, nil
}

// Retrieve 原始检索入口（Chat 上下文拼装用）
func (s *RetrieveService) Retrieve(ctx context.Context, req *pipeline.RetrieveRequest) (*pipeline.RetrieveResult, error) {
	if s.pipeline == nil {
		return nil, errors.New("retrieve pipeline is nil")
	}
	return s.pipeline.Retrieve(ctx, req)
}
