package persistence

import (
	"context"
	"errors"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
)

type threadRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewThreadRecordRepository(db *gorm.DB) repository.ThreadRecordRepository {
	return &threadRecordRepositoryImpl{db: db}
}

func (r *threadRecordRepositoryImpl) FindByUser(ctx context.Context, tenantID, userID string) (*rag.AIThreadRecord, error) {
	var rec rag.AIThreadRecord
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND user_id = ?", tenantID, userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *threadRecordRepositoryImpl) Save(ctx context.Context, rec *rag.AIThreadRecord) error {
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
