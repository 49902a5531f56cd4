package persistence

import (
	"context"
	"encoding/json"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type jobQueueImpl struct {
	db *gorm.DB
}

func NewJobQueue(db *gorm.DB) repository.JobQueue {
	return &jobQueueImpl{db: db}
}

func (q *jobQueueImpl) Enqueue(ctx context.Context, job rag.EmbeddingJob) error {
	now := time.Now()
	row := rag.AIEmbeddingJob{
		TenantId:   job.TenantID,
		EntityType: job.EntityType,
		EntityId:   job.EntityID,
		Op:         job.Op,
		Content:    job.Content,
		Metadata:   marshalMetadata(job.Metadata),
		VisibleAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return q.db.WithContext(ctx).Create(&row).Error
}

func marshalMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalMetadata(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

// Receive 领取一批消息并设置租约：visible_at 推到租约到期，read_count 递增。
// 使用 SKIP LOCKED，支持多实例并发消费。
func (q *jobQueueImpl) Receive(ctx context.Context, visibilityTimeout time.Duration, maxCount int) ([]*rag.QueueMessage, error) {
	if maxCount <= 0 {
		maxCount = 10
	}
	now := time.Now()

	var out []*rag.QueueMessage
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []rag.AIEmbeddingJob
		err := tx.Model(&rag.AIEmbeddingJob{}).
			Where("visible_at <= ?", now).
			Order("id ASC").
			Limit(maxCount).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			out = []*rag.QueueMessage{}
			return nil
		}

		ids := make([]int64, 0, len(rows))
		for i := range rows {
			ids = append(ids, rows[i].Id)
		}
		if err := tx.Model(&rag.AIEmbeddingJob{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"visible_at": now.Add(visibilityTimeout),
				"read_count": gorm.Expr("read_count + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		out = make([]*rag.QueueMessage, 0, len(rows))
		for i := range rows {
			out = append(out, &rag.QueueMessage{
				MessageID: rows[i].Id,
				ReadCount: rows[i].ReadCount + 1,
				Job: rag.EmbeddingJob{
					TenantID:   rows[i].TenantId,
					EntityType: rows[i].EntityType,
					EntityID:   rows[i].EntityId,
					Op:         rows[i].Op,
					Content:    rows[i].Content,
					Metadata:   unmarshalMetadata(rows[i].Metadata),
				},
			})
		}
		return nil
	})
	return out, err
}

func (q *jobQueueImpl) Delete(ctx context.Context, messageID int64) error {
	return q.db.WithContext(ctx).Where("id = ?", messageID).Delete(&rag.AIEmbeddingJob{}).Error
}

func (q *jobQueueImpl) Purge(ctx context.Context) error {
	return q.db.WithContext(ctx).Where("1 = 1").Delete(&rag.AIEmbeddingJob{}).Error
}

func (q *jobQueueImpl) Depth(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&rag.AIEmbeddingJob{}).Count(&n).Error
	return n, err
}
