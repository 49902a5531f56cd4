package rag

import "time"

// 任务操作类型
const (
	JobOpUpsert = "upsert"
	JobOpDelete = "delete"
)

// 实体变更事件类型（Kafka 消息）
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// EmbeddingJob 一次嵌入任务的载荷。
// Content 是入队时渲染好的文本摘要；为空时由消费端按实体重新渲染。
type EmbeddingJob struct {
	TenantID   string            `json:"tenantId"`
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Op         string            `json:"op"`
	Content    string            `json:"content,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// QueueMessage 队列投递的一条消息；MessageID 用于确认删除
type QueueMessage struct {
	MessageID int64
	ReadCount int
	Job       EmbeddingJob
}

// EntityChangeEvent 目录实体变更事件（发布到 Kafka）
type EntityChangeEvent struct {
	TenantID   string            `json:"tenantId"`
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityId"`
	ChangeType string            `json:"changeType"`
	Content    string            `json:"content,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Op 变更事件对应的队列操作
func (e *EntityChangeEvent) Op() string {
	if e.ChangeType == ChangeDeleted {
		return JobOpDelete
	}
	return JobOpUpsert
}
