package respond

// KnowledgeHit 单条检索命中
type KnowledgeHit struct {
	EntityType string  `json:"entityType"`
	EntityID   string  `json:"entityId"`
	Score      float32 `json:"score"`
	Content    string  `json:"content"`
	Metadata   string  `json:"metadata,omitempty"`
	UpdatedAt  int64   `json:"updatedAt"`
}

// QueryRespond 检索响应
type QueryRespond struct {
	QueryID       string         `json:"queryId"`
	Question      string         `json:"question"`
	Hits          []KnowledgeHit `json:"hits"`
	TotalHits     int            `json:"totalHits"`
	ReturnedCount int            `json:"returnedCount"`
	DurationMs    int64          `json:"durationMs"`
	EmbeddingMs   int64          `json:"embeddingMs"`
	SearchMs      int64          `json:"searchMs"`
	PostProcessMs int64          `json:"postProcessMs"`
	IsEmpty       bool           `json:"isEmpty"`
}
