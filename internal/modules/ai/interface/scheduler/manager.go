package scheduler

import (
	"context"
	"errors"
	"time"

	"ProdHub/internal/config"
	"ProdHub/internal/modules/ai/application/service"
	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/internal/modules/ai/infrastructure/queue"
	productRepo "ProdHub/internal/modules/product/domain/repository"
	"ProdHub/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerManager 后台任务入口：
//   - syncSpec: 周期性把各租户知识同步到托管助手
//   - retrySpec: 重新入队嵌入失败的实体
//   - drainInterval: 队列兜底轮询（事件驱动 worker 未运行时的降级路径）
type SchedulerManager struct {
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	exportSvc *service.ExportService
	reader    productRepo.RecordReader
	records   repository.EmbeddingRecordRepository
	jobQueue  repository.JobQueue
	worker    *queue.EmbedWorker
	stopChan  chan struct{}
}

func NewSchedulerManager(
	cfg config.SchedulerConfig,
	exportSvc *service.ExportService,
	reader productRepo.RecordReader,
	records repository.EmbeddingRecordRepository,
	jobQueue repository.JobQueue,
	worker *queue.EmbedWorker,
) *SchedulerManager {
	return &SchedulerManager{
		// 使用标准5段Cron表达式（不含秒）
		cron:      cron.New(),
		cfg:       cfg,
		exportSvc: exportSvc,
		reader:    reader,
		records:   records,
		jobQueue:  jobQueue,
		worker:    worker,
		stopChan:  make(chan struct{}),
	}
}

func (m *SchedulerManager) Start() {
	if !m.cfg.Enabled {
		zlog.Info("scheduler disabled")
		return
	}
	if m.cfg.SyncSpec != "" && m.exportSvc != nil && m.reader != nil {
		if _, err := m.cron.AddFunc(m.cfg.SyncSpec, m.sweepTenantSync); err != nil {
			zlog.Error("cron schedule failed: " + err.Error())
		}
	}
	if m.cfg.RetrySpec != "" && m.records != nil && m.jobQueue != nil {
		if _, err := m.cron.AddFunc(m.cfg.RetrySpec, m.retryFailedEmbeddings); err != nil {
			zlog.Error("cron schedule failed: " + err.Error())
		}
	}
	m.cron.Start()
	if m.cfg.DrainInterval > 0 && m.worker != nil {
		go m.runDrain()
	}
	zlog.Info("AI Scheduler started")
}

func (m *SchedulerManager) Stop() {
	m.cron.Stop()
	close(m.stopChan)
}

// sweepTenantSync 遍历活跃租户做知识同步；单租户失败不影响其余租户
func (m *SchedulerManager) sweepTenantSync() {
	ctx := context.Background()
	tenants, err := m.reader.ListTenants(ctx)
	if err != nil {
		zlog.Error("tenant sweep list failed", zap.Error(err))
		return
	}
	limit := m.cfg.SweepTenants
	if limit <= 0 {
		limit = 50
	}
	if len(tenants) > limit {
		tenants = tenants[:limit]
	}
	synced, uploaded := 0, 0
	for _, tenantID := range tenants {
		res, err := m.exportSvc.EnsureTenantDataSynced(ctx, tenantID)
		if err != nil {
			if errors.Is(err, rag.ErrSyncConflict) {
				zlog.Warn("tenant sync conflict, next sweep retries", zap.String("tenantId", tenantID))
				continue
			}
			zlog.Warn("tenant sync failed", zap.String("tenantId", tenantID), zap.Error(err))
			continue
		}
		synced++
		if res != nil && res.Uploaded {
			uploaded++
		}
	}
	zlog.Info("tenant sync sweep done",
		zap.Int("tenants", len(tenants)),
		zap.Int("synced", synced),
		zap.Int("uploaded", uploaded))
}

// retryFailedEmbeddings 把嵌入失败的实体重新入队
func (m *SchedulerManager) retryFailedEmbeddings() {
	ctx := context.Background()
	recs, err := m.records.ListByStatus(ctx, rag.EmbedStatusFailed, 200)
	if err != nil {
		zlog.Error("failed-record scan failed", zap.Error(err))
		return
	}
	requeued := 0
	for _, rec := range recs {
		err := m.jobQueue.Enqueue(ctx, rag.EmbeddingJob{
			TenantID:   rec.TenantId,
			EntityType: rec.EntityType,
			EntityID:   rec.EntityId,
			Op:         rag.JobOpUpsert,
		})
		if err != nil {
			zlog.Warn("requeue failed embedding", zap.String("tenantId", rec.TenantId), zap.Error(err))
			continue
		}
		requeued++
	}
	if requeued > 0 {
		zlog.Info("failed embeddings requeued", zap.Int("count", requeued))
	}
}

func (m *SchedulerManager) runDrain() {
	ticker := time.NewTicker(time.Duration(m.cfg.DrainInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			res, err := m.worker.ProcessBatch(context.Background(), 0)
			if err != nil {
				zlog.Warn("queue drain failed", zap.Error(err))
				continue
			}
			if res.Received > 0 {
				zlog.Info("queue drained",
					zap.Int("received", res.Received),
					zap.Int("processed", res.Processed),
					zap.Int("failed", res.Failed))
			}
		case <-m.stopChan:
			return
		}
	}
}
