package repository

import (
	"context"
	"time"
)

// 目录实体类型
const (
	EntityTypeProduct     = "product"
	EntityTypeFeature     = "feature"
	EntityTypeRequirement = "requirement"
	EntityTypeRelease     = "release"
)

// EntityRecord 目录记录的规范化读视图：Text 为已渲染的扁平文本
type EntityRecord struct {
	TenantID   string
	EntityType string
	EntityID   string
	Title      string
	Text       string
	UpdatedAt  time.Time
}

// RecordReader 管道的只读目录访问接口
type RecordReader interface {
	// FetchRecord 读取并渲染单条记录；记录不存在返回 (nil, nil)
	FetchRecord(ctx context.Context, tenantID, entityType, entityID string) (*EntityRecord, error)
	// ListTenantRecords 按固定顺序（product/feature/requirement/release，各按 uuid 升序）列出租户全部记录
	ListTenantRecords(ctx context.Context, tenantID string) ([]*EntityRecord, error)
	// ListTenants 列出当前存在目录数据的租户
	ListTenants(ctx context.Context) ([]string, error)
}
