package repository

import (
	"context"

	"ProdHub/internal/modules/user/domain/entity"
)

type UserAccountRepository interface {
	Create(ctx context.Context, user *entity.UserAccount) error
	GetByTenantAndUsername(ctx context.Context, tenantID, username string) (*entity.UserAccount, error)
	GetByUUID(ctx context.Context, userUUID string) (*entity.UserAccount, error)
}
