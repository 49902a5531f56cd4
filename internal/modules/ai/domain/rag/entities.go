package rag

import (
	"database/sql"
	"time"
)

// AIEmbeddingJob 嵌入任务队列表：id 即队列消息 id，FIFO 按 id 升序
// visible_at 为租约到期时间，read_count 为投递次数
type AIEmbeddingJob struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId   string    `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_ai_job_tenant"`
	EntityType string    `gorm:"column:entity_type;type:varchar(30);not null"`
	EntityId   string    `gorm:"column:entity_id;type:varchar(64);not null"`
	Op         string    `gorm:"column:op;type:varchar(10);not null;default:'upsert'"`
	Content    string    `gorm:"column:content;type:text"`
	Metadata   string    `gorm:"column:metadata;type:varchar(2048)"`
	VisibleAt  time.Time `gorm:"column:visible_at;type:datetime;not null;index:idx_ai_job_visible"`
	ReadCount  int       `gorm:"column:read_count;type:int;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (AIEmbeddingJob) TableName() string { return "ai_embedding_job" }

// AIEmbeddingRecord 每个目录实体一条嵌入台账
type AIEmbeddingRecord struct {
	Id                int64        `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId          string       `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex:uniq_ai_embed_entity"`
	EntityType        string       `gorm:"column:entity_type;type:varchar(30);not null;uniqueIndex:uniq_ai_embed_entity"`
	EntityId          string       `gorm:"column:entity_id;type:varchar(64);not null;uniqueIndex:uniq_ai_embed_entity"`
	VectorId          string       `gorm:"column:vector_id;type:varchar(128);not null;index:idx_ai_embed_vector"`
	EmbeddingProvider string       `gorm:"column:embedding_provider;type:varchar(30);not null"`
	EmbeddingModel    string       `gorm:"column:embedding_model;type:varchar(64);not null"`
	Dim               int          `gorm:"column:dim;type:int;not null"`
	ContentHash       string       `gorm:"column:content_hash;type:char(64);not null"`
	EmbedStatus       int8         `gorm:"column:embed_status;type:tinyint;not null;default:0;index:idx_ai_embed_status"`
	ErrorMsg          string       `gorm:"column:error_msg;type:varchar(255)"`
	EmbeddedAt        sql.NullTime `gorm:"column:embedded_at;type:datetime"`
	CreatedAt         time.Time    `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt         time.Time    `gorm:"column:updated_at;type:datetime;not null"`
}

func (AIEmbeddingRecord) TableName() string { return "ai_embedding_record" }

// 嵌入台账状态
const (
	EmbedStatusPending int8 = 0
	EmbedStatusDone    int8 = 1
	EmbedStatusFailed  int8 = 2
)

// AIAssistantRecord 每租户一条托管助手记录
type AIAssistantRecord struct {
	Id             int64        `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId       string       `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex:uniq_ai_assistant_tenant"`
	AssistantId    string       `gorm:"column:assistant_id;type:varchar(128);not null"`
	VectorStoreId  string       `gorm:"column:vector_store_id;type:varchar(128);not null"`
	FileIdsJson    string       `gorm:"column:file_ids_json;type:json"`
	LastSyncedHash string       `gorm:"column:last_synced_hash;type:char(64)"`
	LastSyncedAt   sql.NullTime `gorm:"column:last_synced_at;type:datetime"`
	CreatedAt      time.Time    `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;type:datetime;not null"`
}

func (AIAssistantRecord) TableName() string { return "ai_assistant_record" }

// AIThreadRecord 每个 用户+租户 一条会话线程
type AIThreadRecord struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId  string    `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex:uniq_ai_thread_user"`
	UserId    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uniq_ai_thread_user"`
	ThreadId  string    `gorm:"column:thread_id;type:varchar(128);not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (AIThreadRecord) TableName() string { return "ai_thread_record" }

// AISyncedFile 每次导出上传的文件台账
type AISyncedFile struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId    string    `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_ai_synced_tenant"`
	FileId      string    `gorm:"column:file_id;type:varchar(128);not null;uniqueIndex:uniq_ai_synced_file"`
	Filename    string    `gorm:"column:filename;type:varchar(255);not null"`
	ContentHash string    `gorm:"column:content_hash;type:char(64);not null;index:idx_ai_synced_hash"`
	ByteSize    int       `gorm:"column:byte_size;type:int;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (AISyncedFile) TableName() string { return "ai_synced_file" }
