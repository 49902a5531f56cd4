package request

// ChatRequest 聊天入口请求；Action 为 "index" 时走手动补偿索引
type ChatRequest struct {
	Action  string `json:"action"`
	Message string `json:"message"`
	MaxJobs int    `json:"maxJobs"`
}
