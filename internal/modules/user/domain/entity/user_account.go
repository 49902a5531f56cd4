package entity

import (
	"time"
)

type UserAccount struct {
	Id           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserUuid     string    `gorm:"column:user_uuid;type:varchar(64);not null;uniqueIndex:uniq_user_uuid"`
	TenantId     string    `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex:uniq_tenant_username,priority:1"`
	Username     string    `gorm:"column:username;type:varchar(64);not null;uniqueIndex:uniq_tenant_username,priority:2"`
	Nickname     string    `gorm:"column:nickname;type:varchar(64)"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(64);not null"`
	Status       int8      `gorm:"column:status;not null;default:0"`
	IsAdmin      int8      `gorm:"column:is_admin;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (UserAccount) TableName() string { return "pm_user_account" }
