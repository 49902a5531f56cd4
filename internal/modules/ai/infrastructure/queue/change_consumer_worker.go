package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/internal/modules/ai/infrastructure/mq"
	"ProdHub/pkg/zlog"

	"go.uber.org/zap"
)

// ChangeConsumerWorker 消费目录变更事件，转成嵌入任务入队
type ChangeConsumerWorker struct {
	queue repository.JobQueue
}

func NewChangeConsumerWorker(queue repository.JobQueue) *ChangeConsumerWorker {
	return &ChangeConsumerWorker{queue: queue}
}

func (w *ChangeConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	if w.queue == nil {
		return errors.New("job queue is nil")
	}

	var ev rag.EntityChangeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// 坏消息直接丢弃，重试不会让它变好
		zlog.Warn("change event unmarshal failed", zap.Error(err))
		return nil
	}

	if strings.TrimSpace(ev.TenantID) == "" || strings.TrimSpace(ev.EntityType) == "" || strings.TrimSpace(ev.EntityID) == "" {
		zlog.Warn("change event missing fields",
			zap.String("tenantId", ev.TenantID),
			zap.String("entity", ev.EntityType+"/"+ev.EntityID))
		return nil
	}

	job := rag.EmbeddingJob{
		TenantID:   ev.TenantID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Op:         ev.Op(),
		Content:    ev.Content,
		Metadata:   ev.Metadata,
	}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		zlog.Warn("change event enqueue failed",
			zap.String("tenantId", ev.TenantID),
			zap.String("entity", ev.EntityType+"/"+ev.EntityID),
			zap.Error(err))
		return err
	}
	return nil
}

var _ mq.Handler = (*ChangeConsumerWorker)(nil)
