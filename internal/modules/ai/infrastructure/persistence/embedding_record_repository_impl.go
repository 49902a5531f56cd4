package persistence

import (
	"context"
	"errors"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type embeddingRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewEmbeddingRecordRepository(db *gorm.DB) repository.EmbeddingRecordRepository {
	return &embeddingRecordRepositoryImpl{db: db}
}

func (r *embeddingRecordRepositoryImpl) UpsertRecord(ctx context.Context, rec *rag.AIEmbeddingRecord) error {
	if rec == nil {
		return nil
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "entity_type"}, {Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"vector_id", "embedding_provider", "embedding_model", "dim",
			"content_hash", "embed_status", "error_msg", "embedded_at", "updated_at",
		}),
	}).Create(rec).Error
}

func (r *embeddingRecordRepositoryImpl) Find(ctx context.Context, tenantID, entityType, entityID string) (*rag.AIEmbeddingRecord, error) {
	var rec rag.AIEmbeddingRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *embeddingRecordRepositoryImpl) DeleteRecord(ctx context.Context, tenantID, entityType, entityID string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Delete(&rag.AIEmbeddingRecord{}).Error
}

func (r *embeddingRecordRepositoryImpl) CountByStatus(ctx context.Context, tenantID string, status int8) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&rag.AIEmbeddingRecord{}).
		Where("tenant_id = ? AND embed_status = ?", tenantID, status).
		Count(&n).Error
	return n, err
}

func (r *embeddingRecordRepositoryImpl) ListByStatus(ctx context.Context, status int8, limit int) ([]*rag.AIEmbeddingRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []*rag.AIEmbeddingRecord
	err := r.db.WithContext(ctx).
		Where("embed_status = ?", status).
		Order("updated_at ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
