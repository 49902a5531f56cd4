package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ProdHub/internal/modules/ai/application/dto/respond"
	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	productRepo "ProdHub/internal/modules/product/domain/repository"
	"ProdHub/pkg/util"
	"ProdHub/pkg/xerr"
	"ProdHub/pkg/zlog"

	"go.uber.org/zap"
)

// 导出各实体类型的小节标题；顺序即导出顺序，指纹比较依赖它的稳定性
var exportSections = []struct {
	entityType string
	header     string
}{
	{productRepo.EntityTypeProduct, "# Products"},
	{productRepo.EntityTypeFeature, "# Features"},
	{productRepo.EntityTypeRequirement, "# Requirements"},
	{productRepo.EntityTypeRelease, "# Releases"},
}

// ExportConfig 托管助手参数
type ExportConfig struct {
	Model        string
	Instructions string
}

// ExportService 知识导出与同步：把租户目录渲染成一份文件，
// 指纹未变化时跳过上传，变化时上传并挂到租户助手的向量库。
type ExportService struct {
	reader     productRepo.RecordReader
	hosted     repository.HostedAIClient
	assistants repository.AssistantRecordRepository
	files      repository.SyncedFileRepository
	cfg        ExportConfig
}

func NewExportService(
	reader productRepo.RecordReader,
	hosted repository.HostedAIClient,
	assistants repository.AssistantRecordRepository,
	files repository.SyncedFileRepository,
	cfg ExportConfig,
) *ExportService {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if strings.TrimSpace(cfg.Instructions) == "" {
		cfg.Instructions = "You are a product knowledge assistant. Answer using the attached tenant knowledge files only."
	}
	return &ExportService{
		reader:     reader,
		hosted:     hosted,
		assistants: assistants,
		files:      files,
		cfg:        cfg,
	}
}

// ExportTenantData 渲染租户全部目录记录，输出顺序稳定
func (s *ExportService) ExportTenantData(ctx context.Context, tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", errors.New("tenant id is empty")
	}

	records, err := s.reader.ListTenantRecords(ctx, tenantID)
	if err != nil {
		return "", err
	}

	byType := make(map[string][]*productRepo.EntityRecord)
	for _, rec := range records {
		byType[rec.EntityType] = append(byType[rec.EntityType], rec)
	}

	var b strings.Builder
	for _, section := range exportSections {
		b.WriteString(section.header)
		b.WriteString("\n\n")
		for _, rec := range byType[section.entityType] {
			b.WriteString(rec.Text)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// EnsureTenantDataSynced 无变化时零上传；有变化时上传新文件并替换旧文件。
// 上传后重渲染发现数据又变了，返回 SyncConflict，下一次调用会重新同步。
func (s *ExportService) EnsureTenantDataSynced(ctx context.Context, tenantID string) (*respond.SyncRespond, error) {
	if s.hosted == nil {
		return nil, xerr.ErrDisabled
	}
	content, err := s.ExportTenantData(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	hash := util.Sha256Hex(content)

	rec, err := s.assistants.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.LastSyncedHash == hash {
		return &respond.SyncRespond{Synced: true, Uploaded: false, Hash: hash}, nil
	}

	if rec == nil {
		rec, err = s.provisionAssistant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
	}

	filename := fmt.Sprintf("tenant_%s_knowledge.md", tenantID)
	fileID, err := s.hosted.UploadFile(ctx, filename, []byte(content))
	if err != nil {
		return nil, err
	}
	if err := s.hosted.AddFileToVectorStore(ctx, rec.VectorStoreId, fileID); err != nil {
		return nil, err
	}

	// 旧文件在提供方侧清理，失败只记日志
	var oldFileIDs []string
	if strings.TrimSpace(rec.FileIdsJson) != "" {
		_ = json.Unmarshal([]byte(rec.FileIdsJson), &oldFileIDs)
	}
	for _, old := range oldFileIDs {
		if err := s.hosted.DeleteFile(ctx, old); err != nil {
			zlog.Warn("stale knowledge file delete failed",
				zap.String("tenantId", tenantID),
				zap.String("fileId", old),
				zap.Error(err))
		}
	}

	fileIDs, _ := json.Marshal([]string{fileID})
	rec.FileIdsJson = string(fileIDs)
	rec.LastSyncedHash = hash
	rec.LastSyncedAt.Time = time.Now()
	rec.LastSyncedAt.Valid = true
	if err := s.assistants.Save(ctx, rec); err != nil {
		return nil, err
	}

	if s.files != nil {
		_ = s.files.Add(ctx, &rag.AISyncedFile{
			TenantId:    tenantID,
			FileId:      fileID,
			Filename:    filename,
			ContentHash: hash,
			ByteSize:    len(content),
		})
	}

	// 上传后重渲染，检测同步期间的数据漂移
	recheck, err := s.ExportTenantData(ctx, tenantID)
	if err == nil && util.Sha256Hex(recheck) != hash {
		zlog.Warn("tenant data changed during sync", zap.String("tenantId", tenantID))
		return &respond.SyncRespond{Synced: false, Uploaded: true, FileID: fileID, Hash: hash},
			rag.Errf(rag.ErrSyncConflict, "tenant %s data changed during sync", tenantID)
	}

	return &respond.SyncRespond{Synced: true, Uploaded: true, FileID: fileID, Hash: hash}, nil
}

// AssistantForTenant 返回租户助手记录；不存在时先走一次同步建出来
func (s *ExportService) AssistantForTenant(ctx context.Context, tenantID string) (*rag.AIAssistantRecord, error) {
	rec, err := s.assistants.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	if _, err := s.EnsureTenantDataSynced(ctx, tenantID); err != nil && !errors.Is(err, rag.ErrSyncConflict) {
		return nil, err
	}
	return s.assistants.FindByTenant(ctx, tenantID)
}

func (s *ExportService) provisionAssistant(ctx context.Context, tenantID string) (*rag.AIAssistantRecord, error) {
	assistantID, err := s.hosted.CreateAssistant(ctx, repository.AssistantSpec{
		Name:         fmt.Sprintf("prodhub-%s", tenantID),
		Instructions: s.cfg.Instructions,
		Model:        s.cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	vectorStoreID, err := s.hosted.CreateVectorStore(ctx, fmt.Sprintf("prodhub-%s-knowledge", tenantID))
	if err != nil {
		return nil, err
	}
	if err := s.hosted.AttachVectorStore(ctx, assistantID, vectorStoreID); err != nil {
		return nil, err
	}
	rec := &rag.AIAssistantRecord{
		TenantId:      tenantID,
		AssistantId:   assistantID,
		VectorStoreId: vectorStoreID,
	}
	if err := s.assistants.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
