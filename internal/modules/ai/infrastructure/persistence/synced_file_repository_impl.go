package persistence

import (
	"context"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
)

type syncedFileRepositoryImpl struct {
	db *gorm.DB
}

func NewSyncedFileRepository(db *gorm.DB) repository.SyncedFileRepository {
	return &syncedFileRepositoryImpl{db: db}
}

func (r *syncedFileRepositoryImpl) Add(ctx context.Context, rec *rag.AISyncedFile) error {
	if rec == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *syncedFileRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]*rag.AISyncedFile, error) {
	var out []*rag.AISyncedFile
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id desc").
		Find(&out).Error
	return out, err
}
