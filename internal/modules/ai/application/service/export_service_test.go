package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	productRepo "ProdHub/internal/modules/product/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportRecords() []*productRepo.EntityRecord {
	now := time.Now()
	// 故意乱序，导出必须按固定小节顺序
	return []*productRepo.EntityRecord{
		{TenantID: "t1", EntityType: "release", EntityID: "r1", Title: "1.0", Text: "Release: 1.0", UpdatedAt: now},
		{TenantID: "t1", EntityType: "product", EntityID: "p1", Title: "Alpha", Text: "Product: Alpha", UpdatedAt: now},
		{TenantID: "t1", EntityType: "feature", EntityID: "f1", Title: "Login", Text: "Feature: Login", UpdatedAt: now},
		{TenantID: "t2", EntityType: "product", EntityID: "p9", Title: "Other", Text: "Product: Other", UpdatedAt: now},
	}
}

func newExportFixture(reader *fakeExportReader) (*ExportService, *fakeHosted, *fakeAssistantRepo, *fakeFileRepo) {
	hosted := newFakeHosted()
	assistants := newFakeAssistantRepo()
	files := &fakeFileRepo{}
	svc := NewExportService(reader, hosted, assistants, files, ExportConfig{})
	return svc, hosted, assistants, files
}

func TestExportSectionOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newExportFixture(&fakeExportReader{records: exportRecords()})

	out, err := svc.ExportTenantData(ctx, "t1")
	require.NoError(t, err)

	iProducts := strings.Index(out, "# Products")
	iFeatures := strings.Index(out, "# Features")
	iRequirements := strings.Index(out, "# Requirements")
	iReleases := strings.Index(out, "# Releases")
	require.True(t, iProducts >= 0 && iFeatures >= 0 && iRequirements >= 0 && iReleases >= 0)
	assert.True(t, iProducts < iFeatures && iFeatures < iRequirements && iRequirements < iReleases)

	// 其他租户的数据不会混入
	assert.NotContains(t, out, "Other")

	// 指纹依赖输出稳定
	again, err := svc.ExportTenantData(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestEnsureSyncUploadsOnceThenSkips(t *testing.T) {
	ctx := context.Background()
	svc, hosted, assistants, files := newExportFixture(&fakeExportReader{records: exportRecords()})

	res, err := svc.EnsureTenantDataSynced(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res.Uploaded)
	assert.True(t, res.Synced)
	assert.NotEmpty(t, res.FileID)
	assert.Equal(t, 1, hosted.assistants)
	assert.Equal(t, 1, hosted.uploads)

	rec, err := assistants.FindByTenant(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, res.Hash, rec.LastSyncedHash)
	assert.True(t, rec.LastSyncedAt.Valid)

	listed, err := files.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// 数据未变化，第二次零上传
	res2, err := svc.EnsureTenantDataSynced(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res2.Synced)
	assert.False(t, res2.Uploaded)
	assert.Equal(t, 1, hosted.uploads)
	assert.Equal(t, 1, hosted.assistants)
}

func TestEnsureSyncReuploadsAfterChange(t *testing.T) {
	ctx := context.Background()
	reader := &fakeExportReader{records: exportRecords()}
	svc, hosted, _, _ := newExportFixture(reader)

	_, err := svc.EnsureTenantDataSynced(ctx, "t1")
	require.NoError(t, err)

	reader.records[1].Text = "Product: Alpha v2"
	res, err := svc.EnsureTenantDataSynced(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res.Uploaded)
	assert.Equal(t, 2, hosted.uploads)
	// 旧文件被替换
	assert.Contains(t, hosted.deletedFiles, "file_1")
	// 助手只建一次
	assert.Equal(t, 1, hosted.assistants)
}

func TestEnsureSyncConflictOnMidSyncDrift(t *testing.T) {
	ctx := context.Background()
	reader := &fakeExportReader{
		records:     exportRecords(),
		mutateAfter: 1,
		mutateFn: func(recs []*productRepo.EntityRecord) {
			recs[1].Text = "Product: Alpha drifted"
		},
	}
	svc, hosted, _, _ := newExportFixture(reader)

	res, err := svc.EnsureTenantDataSynced(ctx, "t1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rag.ErrSyncConflict))
	require.NotNil(t, res)
	assert.True(t, res.Uploaded)
	assert.False(t, res.Synced)

	// 下一次调用检测到指纹不一致并重新同步
	res2, err := svc.EnsureTenantDataSynced(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res2.Synced)
	assert.True(t, res2.Uploaded)
	assert.Equal(t, 2, hosted.uploads)
}

func TestAssistantForTenantProvisions(t *testing.T) {
	ctx := context.Background()
	svc, hosted, _, _ := newExportFixture(&fakeExportReader{records: exportRecords()})

	rec, err := svc.AssistantForTenant(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "asst_1", rec.AssistantId)
	assert.Equal(t, "vs_1", rec.VectorStoreId)
	assert.Equal(t, 1, hosted.assistants)

	// 已有记录直接复用
	again, err := svc.AssistantForTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, rec.AssistantId, again.AssistantId)
	assert.Equal(t, 1, hosted.assistants)
}
