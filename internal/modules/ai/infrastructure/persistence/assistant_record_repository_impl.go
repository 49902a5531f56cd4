package persistence

import (
	"context"
	"errors"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
)

type assistantRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewAssistantRecordRepository(db *gorm.DB) repository.AssistantRecordRepository {
	return &assistantRecordRepositoryImpl{db: db}
}

func (r *assistantRecordRepositoryImpl) FindByTenant(ctx context.Context, tenantID string) (*rag.AIAssistantRecord, error) {
	var rec rag.AIAssistantRecord
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *assistantRecordRepositoryImpl) Save(ctx context.Context, rec *rag.AIAssistantRecord) error {
	if rec == nil {
		return nil
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return r.db.WithContext(ctx).Save(rec).Error
}
