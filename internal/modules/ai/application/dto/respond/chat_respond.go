package respond

// ChatRespond 聊天响应
type ChatRespond struct {
	Answer   string `json:"answer"`
	ThreadID string `json:"threadId,omitempty"`
}

// IndexRespond 手动索引响应
type IndexRespond struct {
	Received  int   `json:"received"`
	Processed int   `json:"processed"`
	Failed    int   `json:"failed"`
	Abandoned int   `json:"abandoned"`
	Depth     int64 `json:"depth"`
}

// SyncRespond 知识同步响应
type SyncRespond struct {
	Synced   bool   `json:"synced"`
	Uploaded bool   `json:"uploaded"`
	FileID   string `json:"fileId,omitempty"`
	Hash     string `json:"hash"`
}

// QueueStatsRespond 队列状态
type QueueStatsRespond struct {
	Depth int64 `json:"depth"`
}
