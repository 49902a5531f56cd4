package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ProdHub/internal/modules/product/domain/entity"
	"ProdHub/internal/modules/product/domain/repository"

	"gorm.io/gorm"
)

type RecordReaderImpl struct {
	db *gorm.DB
}

func NewRecordReader(db *gorm.DB) repository.RecordReader {
	return &RecordReaderImpl{db: db}
}

func (r *RecordReaderImpl) FetchRecord(ctx context.Context, tenantID, entityType, entityID string) (*repository.EntityRecord, error) {
	switch entityType {
	case repository.EntityTypeProduct:
		var p entity.Product
		err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND product_uuid = ?", tenantID, entityID).
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return productRecord(&p), nil
	case repository.EntityTypeFeature:
		var f entity.Feature
		err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND feature_uuid = ?", tenantID, entityID).
			First(&f).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return featureRecord(&f), nil
	case repository.EntityTypeRequirement:
		var q entity.Requirement
		err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND requirement_uuid = ?", tenantID, entityID).
			First(&q).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return requirementRecord(&q), nil
	case repository.EntityTypeRelease:
		var rel entity.Release
		err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND release_uuid = ?", tenantID, entityID).
			First(&rel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return releaseRecord(&rel), nil
	default:
		return nil, fmt.Errorf("unknown entity type: %s", entityType)
	}
}

// ListTenantRecords 输出顺序固定，供导出指纹比较使用
func (r *RecordReaderImpl) ListTenantRecords(ctx context.Context, tenantID string) ([]*repository.EntityRecord, error) {
	var out []*repository.EntityRecord

	var products []entity.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("product_uuid asc").
		Find(&products).Error; err != nil {
		return nil, err
	}
	for i := range products {
		out = append(out, productRecord(&products[i]))
	}

	var features []entity.Feature
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("feature_uuid asc").
		Find(&features).Error; err != nil {
		return nil, err
	}
	for i := range features {
		out = append(out, featureRecord(&features[i]))
	}

	var requirements []entity.Requirement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("requirement_uuid asc").
		Find(&requirements).Error; err != nil {
		return nil, err
	}
	for i := range requirements {
		out = append(out, requirementRecord(&requirements[i]))
	}

	var releases []entity.Release
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("release_uuid asc").
		Find(&releases).Error; err != nil {
		return nil, err
	}
	for i := range releases {
		out = append(out, releaseRecord(&releases[i]))
	}

	return out, nil
}

func (r *RecordReaderImpl) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Distinct("tenant_id").
		Order("tenant_id asc").
		Pluck("tenant_id", &tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func productRecord(p *entity.Product) *repository.EntityRecord {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", p.Name)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	if strings.TrimSpace(p.Description) != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	return &repository.EntityRecord{
		TenantID:   p.TenantId,
		EntityType: repository.EntityTypeProduct,
		EntityID:   p.ProductUuid,
		Title:      p.Name,
		Text:       b.String(),
		UpdatedAt:  p.UpdatedAt,
	}
}

func featureRecord(f *entity.Feature) *repository.EntityRecord {
	var b strings.Builder
	fmt.Fprintf(&b, "Feature: %s\n", f.Title)
	fmt.Fprintf(&b, "Product: %s\n", f.ProductUuid)
	fmt.Fprintf(&b, "Priority: %s\n", f.Priority)
	fmt.Fprintf(&b, "Status: %s\n", f.Status)
	if strings.TrimSpace(f.Description) != "" {
		fmt.Fprintf(&b, "Description: %s\n", f.Description)
	}
	return &repository.EntityRecord{
		TenantID:   f.TenantId,
		EntityType: repository.EntityTypeFeature,
		EntityID:   f.FeatureUuid,
		Title:      f.Title,
		Text:       b.String(),
		UpdatedAt:  f.UpdatedAt,
	}
}

func requirementRecord(q *entity.Requirement) *repository.EntityRecord {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement: %s\n", q.Title)
	fmt.Fprintf(&b, "Feature: %s\n", q.FeatureUuid)
	fmt.Fprintf(&b, "Status: %s\n", q.Status)
	if strings.TrimSpace(q.Body) != "" {
		fmt.Fprintf(&b, "Body: %s\n", q.Body)
	}
	if strings.TrimSpace(q.AcceptanceCrit) != "" {
		fmt.Fprintf(&b, "Acceptance Criteria: %s\n", q.AcceptanceCrit)
	}
	return &repository.EntityRecord{
		TenantID:   q.TenantId,
		EntityType: repository.EntityTypeRequirement,
		EntityID:   q.RequirementUuid,
		Title:      q.Title,
		Text:       b.String(),
		UpdatedAt:  q.UpdatedAt,
	}
}

func releaseRecord(rel *entity.Release) *repository.EntityRecord {
	var b strings.Builder
	fmt.Fprintf(&b, "Release: %s\n", rel.Version)
	fmt.Fprintf(&b, "Product: %s\n", rel.ProductUuid)
	fmt.Fprintf(&b, "Status: %s\n", rel.Status)
	if !rel.ReleaseDate.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", rel.ReleaseDate.Format("2006-01-02"))
	}
	if strings.TrimSpace(rel.Notes) != "" {
		fmt.Fprintf(&b, "Notes: %s\n", rel.Notes)
	}
	return &repository.EntityRecord{
		TenantID:   rel.TenantId,
		EntityType: repository.EntityTypeRelease,
		EntityID:   rel.ReleaseUuid,
		Title:      rel.Version,
		Text:       b.String(),
		UpdatedAt:  rel.UpdatedAt,
	}
}
