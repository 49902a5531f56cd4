package entity

import (
	"time"
)

type Product struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductUuid string    `gorm:"column:product_uuid;type:varchar(64);not null;uniqueIndex:uniq_product_uuid"`
	TenantId    string    `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_product_tenant"`
	Name        string    `gorm:"column:name;type:varchar(128);not null"`
	Description string    `gorm:"column:description;type:text"`
	Status      string    `gorm:"column:status;type:varchar(20);not null;default:'active'"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Product) TableName() string { return "pm_product" }

type Feature struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FeatureUuid string    `gorm:"column:feature_uuid;type:varchar(64);not null;uniqueIndex:uniq_feature_uuid"`
	TenantId    string    `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_feature_tenant"`
	ProductUuid string    `gorm:"column:product_uuid;type:varchar(64);not null;index:idx_feature_product"`
	Title       string    `gorm:"column:title;type:varchar(128);not null"`
	Description string    `gorm:"column:description;type:text"`
	Priority    string    `gorm:"column:priority;type:varchar(20);not null;default:'medium'"`
	Status      string    `gorm:"column:status;type:varchar(20);not null;default:'planned'"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Feature) TableName() string { return "pm_feature" }

type Requirement struct {
	Id              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RequirementUuid string    `gorm:"column:requirement_uuid;type:varchar(64);not null;uniqueIndex:uniq_requirement_uuid"`
	TenantId        string    `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_requirement_tenant"`
	FeatureUuid     string    `gorm:"column:feature_uuid;type:varchar(64);not null;index:idx_requirement_feature"`
	Title           string    `gorm:"column:title;type:varchar(128);not null"`
	Body            string    `gorm:"column:body;type:mediumtext"`
	AcceptanceCrit  string    `gorm:"column:acceptance_criteria;type:text"`
	Status          string    `gorm:"column:status;type:varchar(20);not null;default:'draft'"`
	CreatedAt       time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Requirement) TableName() string { return "pm_requirement" }

type Release struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ReleaseUuid string    `gorm:"column:release_uuid;type:varchar(64);not null;uniqueIndex:uniq_release_uuid"`
	TenantId    string    `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_release_tenant"`
	ProductUuid string    `gorm:"column:product_uuid;type:varchar(64);not null;index:idx_release_product"`
	Version     string    `gorm:"column:version;type:varchar(40);not null"`
	Notes       string    `gorm:"column:notes;type:text"`
	ReleaseDate time.Time `gorm:"column:release_date;type:datetime"`
	Status      string    `gorm:"column:status;type:varchar(20);not null;default:'planned'"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Release) TableName() string { return "pm_release" }
