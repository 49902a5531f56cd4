package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	embedmod "ProdHub/internal/modules/ai/infrastructure/embedding"
	productRepo "ProdHub/internal/modules/product/domain/repository"
	"ProdHub/pkg/util"
	"ProdHub/pkg/zlog"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"
)

// EmbedWorker 消费嵌入任务队列：读取目录记录、调用嵌入模型、写入向量库。
// 失败的消息留在队列里等租约到期重投；投递次数超过上限后丢弃。
type EmbedWorker struct {
	queue       repository.JobQueue
	reader      productRepo.RecordReader
	embedder    embedding.Embedder
	meta        embedmod.EmbedderMeta
	store       repository.VectorStore
	records     repository.EmbeddingRecordRepository
	visibility  time.Duration
	maxAttempts int
	batchSize   int
	interval    time.Duration
	idleBackoff time.Duration
}

// BatchResult 一次批处理的统计
type BatchResult struct {
	Received  int
	Processed int
	Failed    int
	Abandoned int
}

type WorkerConfig struct {
	VisibilityTimeout time.Duration
	MaxAttempts       int
	BatchSize         int
	PollInterval      time.Duration
	IdleBackoff       time.Duration
}

func NewEmbedWorker(
	queue repository.JobQueue,
	reader productRepo.RecordReader,
	embedder embedding.Embedder,
	meta embedmod.EmbedderMeta,
	store repository.VectorStore,
	records repository.EmbeddingRecordRepository,
	cfg WorkerConfig,
) *EmbedWorker {
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = 2 * time.Second
	}
	return &EmbedWorker{
		queue:       queue,
		reader:      reader,
		embedder:    embedder,
		meta:        meta,
		store:       store,
		records:     records,
		visibility:  cfg.VisibilityTimeout,
		maxAttempts: cfg.MaxAttempts,
		batchSize:   cfg.BatchSize,
		interval:    cfg.PollInterval,
		idleBackoff: cfg.IdleBackoff,
	}
}

// Run 轮询消费，空转与出错时退避
func (w *EmbedWorker) Run(ctx context.Context) error {
	if w.queue == nil {
		return errors.New("job queue is nil")
	}

	backoff := w.interval
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		res, err := w.ProcessBatch(ctx, w.batchSize)
		if err != nil {
			if serr := sleepCtx(ctx, backoff); serr != nil {
				return serr
			}
			backoff = backoff * 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			continue
		}
		backoff = w.interval

		if res.Received == 0 {
			if serr := sleepCtx(ctx, w.idleBackoff); serr != nil {
				return serr
			}
		}
	}
}

// sleepCtx 退避休眠，ctx 取消时立即返回
func sleepCtx(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		time.Sleep(d)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

type pendingJob struct {
	msg  *rag.QueueMessage
	text string
	rec  *productRepo.EntityRecord
}

// ProcessBatch 领取一批消息并处理；单条失败不影响其余
func (w *EmbedWorker) ProcessBatch(ctx context.Context, maxJobs int) (*BatchResult, error) {
	if maxJobs <= 0 {
		maxJobs = w.batchSize
	}
	res := &BatchResult{}

	msgs, err := w.queue.Receive(ctx, w.visibility, maxJobs)
	if err != nil {
		zlog.Warn("embed worker receive failed", zap.Error(err))
		return res, err
	}
	res.Received = len(msgs)
	if len(msgs) == 0 {
		return res, nil
	}

	pending := make([]*pendingJob, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ReadCount > w.maxAttempts {
			w.abandon(ctx, msg)
			res.Abandoned++
			continue
		}

		if err := validateJob(&msg.Job); err != nil {
			w.fail(ctx, msg, err)
			res.Failed++
			continue
		}

		if msg.Job.Op == rag.JobOpDelete {
			if err := w.removeEntity(ctx, msg); err != nil {
				w.fail(ctx, msg, err)
				res.Failed++
				continue
			}
			_ = w.queue.Delete(ctx, msg.MessageID)
			res.Processed++
			continue
		}

		rec, err := w.sourceRecord(ctx, &msg.Job)
		if err != nil {
			w.fail(ctx, msg, err)
			res.Failed++
			continue
		}
		pending = append(pending, &pendingJob{msg: msg, text: rec.Text, rec: rec})
	}

	if len(pending) == 0 {
		return res, nil
	}

	// 有效任务合并成一次嵌入调用
	texts := make([]string, 0, len(pending))
	for _, p := range pending {
		texts = append(texts, p.text)
	}
	vectors, err := w.embedder.EmbedStrings(ctx, texts)
	if err != nil || len(vectors) != len(pending) {
		if err == nil {
			err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(pending))
		}
		modelErr := rag.Errf(rag.ErrModelError, "%v", err)
		for _, p := range pending {
			w.fail(ctx, p.msg, modelErr)
			res.Failed++
		}
		return res, nil
	}

	for i, p := range pending {
		vec, err := toFloat32Checked(vectors[i], w.meta.Dim)
		if err != nil {
			w.fail(ctx, p.msg, rag.Errf(rag.ErrModelError, "%v", err))
			res.Failed++
			continue
		}
		if err := w.upsertEntity(ctx, p, vec); err != nil {
			w.fail(ctx, p.msg, err)
			res.Failed++
			continue
		}
		_ = w.queue.Delete(ctx, p.msg.MessageID)
		res.Processed++
	}

	return res, nil
}

// ProcessOne 处理单个任务（手动补偿路径）
func (w *EmbedWorker) ProcessOne(ctx context.Context, msg *rag.QueueMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}
	if err := validateJob(&msg.Job); err != nil {
		w.fail(ctx, msg, err)
		return err
	}
	if msg.Job.Op == rag.JobOpDelete {
		if err := w.removeEntity(ctx, msg); err != nil {
			w.fail(ctx, msg, err)
			return err
		}
		return w.queue.Delete(ctx, msg.MessageID)
	}

	rec, err := w.sourceRecord(ctx, &msg.Job)
	if err != nil {
		w.fail(ctx, msg, err)
		return err
	}

	vectors, err := w.embedder.EmbedStrings(ctx, []string{rec.Text})
	if err != nil || len(vectors) != 1 {
		if err == nil {
			err = fmt.Errorf("embedder returned %d vectors for 1 text", len(vectors))
		}
		err = rag.Errf(rag.ErrModelError, "%v", err)
		w.fail(ctx, msg, err)
		return err
	}
	vec, err := toFloat32Checked(vectors[0], w.meta.Dim)
	if err != nil {
		err = rag.Errf(rag.ErrModelError, "%v", err)
		w.fail(ctx, msg, err)
		return err
	}
	if err := w.upsertEntity(ctx, &pendingJob{msg: msg, text: rec.Text, rec: rec}, vec); err != nil {
		w.fail(ctx, msg, err)
		return err
	}
	return w.queue.Delete(ctx, msg.MessageID)
}

// sourceRecord 嵌入内容的取值顺序：优先用任务载荷里入队时渲染好的摘要，
// 载荷为空时再回源目录重新渲染。
func (w *EmbedWorker) sourceRecord(ctx context.Context, job *rag.EmbeddingJob) (*productRepo.EntityRecord, error) {
	if content := strings.TrimSpace(job.Content); content != "" {
		return &productRepo.EntityRecord{
			TenantID:   job.TenantID,
			EntityType: job.EntityType,
			EntityID:   job.EntityID,
			Title:      job.Metadata["title"],
			Text:       content,
			UpdatedAt:  time.Now(),
		}, nil
	}
	rec, err := w.reader.FetchRecord(ctx, job.TenantID, job.EntityType, job.EntityID)
	if err != nil {
		return nil, err
	}
	if rec == nil || strings.TrimSpace(rec.Text) == "" {
		return nil, rag.Errf(rag.ErrMalformedJob, "entity not found: %s/%s", job.EntityType, job.EntityID)
	}
	return rec, nil
}

func (w *EmbedWorker) upsertEntity(ctx context.Context, p *pendingJob, vec []float32) error {
	job := p.msg.Job
	vectorID := VectorID(job.TenantID, job.EntityType, job.EntityID)
	contentHash := util.Sha256Hex(p.text)
	now := time.Now()

	_, err := w.store.Upsert(ctx, []repository.VectorUpsertItem{{
		ID:           vectorID,
		Vector:       vec,
		TenantID:     job.TenantID,
		EntityType:   job.EntityType,
		EntityID:     job.EntityID,
		Content:      p.text,
		MetadataJSON: metadataJSON(p),
		UpdatedAt:    p.rec.UpdatedAt.UnixMilli(),
	}})
	if err != nil {
		return err
	}

	return w.records.UpsertRecord(ctx, &rag.AIEmbeddingRecord{
		TenantId:          job.TenantID,
		EntityType:        job.EntityType,
		EntityId:          job.EntityID,
		VectorId:          vectorID,
		EmbeddingProvider: w.meta.Provider,
		EmbeddingModel:    w.meta.Model,
		Dim:               w.meta.Dim,
		ContentHash:       contentHash,
		EmbedStatus:       rag.EmbedStatusDone,
		ErrorMsg:          "",
		EmbeddedAt:        sql.NullTime{Time: now, Valid: true},
	})
}

func (w *EmbedWorker) removeEntity(ctx context.Context, msg *rag.QueueMessage) error {
	job := msg.Job
	vectorID := VectorID(job.TenantID, job.EntityType, job.EntityID)
	if err := w.store.DeleteByIDs(ctx, []string{vectorID}); err != nil {
		return err
	}
	return w.records.DeleteRecord(ctx, job.TenantID, job.EntityType, job.EntityID)
}

func (w *EmbedWorker) fail(ctx context.Context, msg *rag.QueueMessage, cause error) {
	zlog.Warn("embed job failed",
		zap.Int64("messageId", msg.MessageID),
		zap.Int("readCount", msg.ReadCount),
		zap.String("tenantId", msg.Job.TenantID),
		zap.String("entity", msg.Job.EntityType+"/"+msg.Job.EntityID),
		zap.Error(cause))
	if w.records != nil && msg.Job.TenantID != "" && msg.Job.EntityType != "" && msg.Job.EntityID != "" {
		_ = w.records.UpsertRecord(ctx, &rag.AIEmbeddingRecord{
			TenantId:          msg.Job.TenantID,
			EntityType:        msg.Job.EntityType,
			EntityId:          msg.Job.EntityID,
			VectorId:          VectorID(msg.Job.TenantID, msg.Job.EntityType, msg.Job.EntityID),
			EmbeddingProvider: w.meta.Provider,
			EmbeddingModel:    w.meta.Model,
			Dim:               w.meta.Dim,
			EmbedStatus:       rag.EmbedStatusFailed,
			ErrorMsg:          scrubErrMsg(cause),
		})
	}
}

func (w *EmbedWorker) abandon(ctx context.Context, msg *rag.QueueMessage) {
	zlog.Error("embed job abandoned after max attempts",
		zap.Int64("messageId", msg.MessageID),
		zap.Int("readCount", msg.ReadCount),
		zap.String("tenantId", msg.Job.TenantID),
		zap.String("entity", msg.Job.EntityType+"/"+msg.Job.EntityID))
	_ = w.queue.Delete(ctx, msg.MessageID)
}

func validateJob(job *rag.EmbeddingJob) error {
	if strings.TrimSpace(job.TenantID) == "" {
		return rag.Errf(rag.ErrMalformedJob, "missing tenantId")
	}
	if strings.TrimSpace(job.EntityType) == "" {
		return rag.Errf(rag.ErrMalformedJob, "missing entityType")
	}
	if strings.TrimSpace(job.EntityID) == "" {
		return rag.Errf(rag.ErrMalformedJob, "missing entityId")
	}
	switch job.Op {
	case rag.JobOpUpsert, rag.JobOpDelete:
		return nil
	case "":
		job.Op = rag.JobOpUpsert
		return nil
	default:
		return rag.Errf(rag.ErrMalformedJob, "unknown op: %s", job.Op)
	}
}

func metadataJSON(p *pendingJob) string {
	if len(p.msg.Job.Metadata) > 0 {
		if b, err := json.Marshal(p.msg.Job.Metadata); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf(`{"title":%q}`, p.rec.Title)
}

// VectorID 向量主键由 (tenant, entityType, entityId) 确定，保证重复嵌入幂等
func VectorID(tenantID, entityType, entityID string) string {
	return "v_" + util.Sha256Hex(tenantID+"|"+entityType+"|"+entityID)[:48]
}

func toFloat32Checked(vec []float64, dim int) ([]float32, error) {
	if len(vec) != dim {
		return nil, fmt.Errorf("vector dim mismatch, got=%d want=%d", len(vec), dim)
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("vector component %d is not finite", i)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func scrubErrMsg(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if len(msg) > 255 {
		msg = msg[:255]
	}
	return msg
}
