package repository

import "context"

// 托管运行终态
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
	RunStatusCancelled  = "cancelled"
	RunStatusExpired    = "expired"
)

// RunState 托管运行的当前状态
type RunState struct {
	Status    string
	LastError string
}

// Terminal 是否已到终态
func (s *RunState) Terminal() bool {
	switch s.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// AssistantSpec 创建助手所需参数
type AssistantSpec struct {
	Name         string
	Instructions string
	Model        string
}

// HostedAIClient 托管 AI 服务抽象（助手/线程/运行/文件/向量库）。
// application 层只依赖本接口；go-openai 适配器在 infrastructure/assistant。
type HostedAIClient interface {
	CreateAssistant(ctx context.Context, spec AssistantSpec) (assistantID string, err error)
	CreateVectorStore(ctx context.Context, name string) (vectorStoreID string, err error)
	AttachVectorStore(ctx context.Context, assistantID, vectorStoreID string) error
	UploadFile(ctx context.Context, filename string, content []byte) (fileID string, err error)
	AddFileToVectorStore(ctx context.Context, vectorStoreID, fileID string) error
	DeleteFile(ctx context.Context, fileID string) error

	CreateThread(ctx context.Context) (threadID string, err error)
	AddMessage(ctx context.Context, threadID, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (runID string, err error)
	GetRun(ctx context.Context, threadID, runID string) (*RunState, error)
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}
