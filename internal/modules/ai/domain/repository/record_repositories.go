package repository

import (
	"context"

	"ProdHub/internal/modules/ai/domain/rag"
)

// EmbeddingRecordRepository 嵌入台账仓储
type EmbeddingRecordRepository interface {
	// UpsertRecord 按 (tenant, entityType, entityId) 幂等写入
	UpsertRecord(ctx context.Context, rec *rag.AIEmbeddingRecord) error
	Find(ctx context.Context, tenantID, entityType, entityID string) (*rag.AIEmbeddingRecord, error)
	DeleteRecord(ctx context.Context, tenantID, entityType, entityID string) error
	CountByStatus(ctx context.Context, tenantID string, status int8) (int64, error)
	ListByStatus(ctx context.Context, status int8, limit int) ([]*rag.AIEmbeddingRecord, error)
}

// AssistantRecordRepository 租户助手记录仓储
type AssistantRecordRepository interface {
	FindByTenant(ctx context.Context, tenantID string) (*rag.AIAssistantRecord, error)
	Save(ctx context.Context, rec *rag.AIAssistantRecord) error
}

// ThreadRecordRepository 用户线程记录仓储
type ThreadRecordRepository interface {
	FindByUser(ctx context.Context, tenantID, userID string) (*rag.AIThreadRecord, error)
	Save(ctx context.Context, rec *rag.AIThreadRecord) error
}

// SyncedFileRepository 导出文件台账仓储
type SyncedFileRepository interface {
	Add(ctx context.Context, rec *rag.AISyncedFile) error
	ListByTenant(ctx context.Context, tenantID string) ([]*rag.AISyncedFile, error)
}
