package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	aiRepo "ProdHub/internal/modules/ai/domain/repository"
	"ProdHub/internal/modules/ai/infrastructure/mq"
	"ProdHub/internal/modules/product/domain/repository"
	"ProdHub/pkg/zlog"

	"go.uber.org/zap"
)

// ChangeTriggerService 目录实体变更触发器。
// 实体创建/更新/删除后调用 EntityChanged，事件带上渲染好的文本摘要，
// 进入 Kafka 由消费者落队列；未配置 Kafka 时退化为直接入队。
type ChangeTriggerService struct {
	reader    repository.RecordReader
	publisher mq.Publisher
	queue     aiRepo.JobQueue
	topic     string
	enabled   bool
}

func NewChangeTriggerService(reader repository.RecordReader, publisher mq.Publisher, queue aiRepo.JobQueue, topic string, enabled bool) *ChangeTriggerService {
	return &ChangeTriggerService{
		reader:    reader,
		publisher: publisher,
		queue:     queue,
		topic:     topic,
		enabled:   enabled,
	}
}

var validEntityTypes = map[string]bool{
	repository.EntityTypeProduct:     true,
	repository.EntityTypeFeature:     true,
	repository.EntityTypeRequirement: true,
	repository.EntityTypeRelease:     true,
}

var validChangeTypes = map[string]bool{
	rag.ChangeCreated: true,
	rag.ChangeUpdated: true,
	rag.ChangeDeleted: true,
}

// EntityChanged 发布一条实体变更事件
func (s *ChangeTriggerService) EntityChanged(ctx context.Context, tenantID, entityType, entityID, changeType string) error {
	if !s.enabled {
		zlog.Info("embedding disabled, change trigger skipped",
			zap.String("tenantId", tenantID),
			zap.String("entityType", entityType),
			zap.String("entityId", entityID))
		return nil
	}

	tenantID = strings.TrimSpace(tenantID)
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	if tenantID == "" || entityID == "" {
		return fmt.Errorf("tenantId and entityId are required")
	}
	if !validEntityTypes[entityType] {
		return fmt.Errorf("unknown entity type: %s", entityType)
	}
	if !validChangeTypes[changeType] {
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	ev := rag.EntityChangeEvent{
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		ChangeType: changeType,
		OccurredAt: time.Now(),
	}
	if changeType != rag.ChangeDeleted {
		s.renderSummary(ctx, &ev)
	}

	if s.publisher != nil && s.topic != "" {
		return s.publish(ctx, &ev)
	}
	return s.enqueueDirect(ctx, &ev)
}

// renderSummary 在触发点渲染实体摘要附到事件上；
// 渲染不到时事件照常发出，消费端回源重新渲染。
func (s *ChangeTriggerService) renderSummary(ctx context.Context, ev *rag.EntityChangeEvent) {
	if s.reader == nil {
		return
	}
	rec, err := s.reader.FetchRecord(ctx, ev.TenantID, ev.EntityType, ev.EntityID)
	if err != nil {
		zlog.Warn("change summary render failed",
			zap.String("tenantId", ev.TenantID),
			zap.String("entity", ev.EntityType+"/"+ev.EntityID),
			zap.Error(err))
		return
	}
	if rec == nil || strings.TrimSpace(rec.Text) == "" {
		return
	}
	ev.Content = rec.Text
	ev.Metadata = map[string]string{"title": rec.Title}
}

func (s *ChangeTriggerService) publish(ctx context.Context, ev *rag.EntityChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	res, err := s.publisher.Publish(ctx, mq.Message{
		Topic: s.topic,
		Key:   []byte(ev.TenantID + "|" + ev.EntityType + "|" + ev.EntityID),
		Value: payload,
		Headers: map[string]string{
			"eventType": "entity.changed",
		},
	})
	if err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	zlog.Info("entity change published",
		zap.String("tenantId", ev.TenantID),
		zap.String("entityType", ev.EntityType),
		zap.String("entityId", ev.EntityID),
		zap.String("changeType", ev.ChangeType),
		zap.Int32("partition", res.Partition),
		zap.Int64("offset", res.Offset))
	return nil
}

func (s *ChangeTriggerService) enqueueDirect(ctx context.Context, ev *rag.EntityChangeEvent) error {
	if s.queue == nil {
		return fmt.Errorf("no publisher and no job queue configured")
	}
	err := s.queue.Enqueue(ctx, rag.EmbeddingJob{
		TenantID:   ev.TenantID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Op:         ev.Op(),
		Content:    ev.Content,
		Metadata:   ev.Metadata,
	})
	if err != nil {
		return fmt.Errorf("enqueue embedding job: %w", err)
	}
	zlog.Info("entity change enqueued directly",
		zap.String("tenantId", ev.TenantID),
		zap.String("entityType", ev.EntityType),
		zap.String("entityId", ev.EntityID),
		zap.String("op", ev.Op()))
	return nil
}
