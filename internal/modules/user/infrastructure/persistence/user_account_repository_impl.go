package persistence

import (
	"context"

	"ProdHub/internal/modules/user/domain/entity"
	"ProdHub/internal/modules/user/domain/repository"

	"gorm.io/gorm"
)

type userAccountRepositoryImpl struct {
	db *gorm.DB
}

func NewUserAccountRepository(db *gorm.DB) repository.UserAccountRepository {
	return &userAccountRepositoryImpl{db: db}
}

func (r *userAccountRepositoryImpl) Create(ctx context.Context, user *entity.UserAccount) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userAccountRepositoryImpl) GetByTenantAndUsername(ctx context.Context, tenantID, username string) (*entity.UserAccount, error) {
	var user entity.UserAccount
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND username = ?", tenantID, username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userAccountRepositoryImpl) GetByUUID(ctx context.Context, userUUID string) (*entity.UserAccount, error) {
	var user entity.UserAccount
	err := r.db.WithContext(ctx).Where("user_uuid = ?", userUUID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
