package request

// QueryRequest 检索请求
type QueryRequest struct {
	Question       string   `json:"question" binding:"required"`
	TopK           int      `json:"topK"`
	EntityTypes    []string `json:"entityTypes"`
	ScoreThreshold float32  `json:"scoreThreshold"`
}
