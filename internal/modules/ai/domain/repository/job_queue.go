package repository

import (
	"context"
	"time"

	"ProdHub/internal/modules/ai/domain/rag"
)

// JobQueue 嵌入任务队列抽象（租约语义）。
//
// Receive 取出的消息在 visibilityTimeout 内对其他消费者不可见；
// 处理成功后必须 Delete，否则租约到期消息会被重新投递。
// 每次投递 ReadCount 递增，由消费侧据此实现重试上限。
type JobQueue interface {
	Enqueue(ctx context.Context, job rag.EmbeddingJob) error
	Receive(ctx context.Context, visibilityTimeout time.Duration, maxCount int) ([]*rag.QueueMessage, error)
	Delete(ctx context.Context, messageID int64) error
	Purge(ctx context.Context) error
	Depth(ctx context.Context) (int64, error)
}
