package model

// SearchResultDTO 定义了返回给调用方的单条检索结果。
type SearchResultDTO struct {
	DocumentID   string  `json:"documentId"`
	FileName     string  `json:"fileName"`
	ChunkID      string  `json:"chunkId"`
	ChunkIndex   int     `json:"chunkIndex"`
	TotalChunks  int     `json:"totalChunks"`
	ChunkType    string  `json:"chunkType"`
	SectionTitle string  `json:"sectionTitle"`
	Content      string  `json:"content"`
	Summary      string  `json:"summary"`
	Topic        string  `json:"topic"`
	Score        float64 `json:"score"`

	// 富化信息
	Breadcrumbs []string `json:"breadcrumbs"` // 按 '/' 拆分的层级路径
	Position    string   `json:"position"`    // "3 of 7"
	HasPrevious bool     `json:"hasPrevious"`
	HasNext     bool     `json:"hasNext"`
	Quality     string   `json:"quality"` // high | medium | low
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
}

// SearchResponseDTO 包装一次检索的结果集。检索失败不抛错，
// 而是返回空结果集并在 Status/Error 字段中说明。
type SearchResponseDTO struct {
	Results []SearchResultDTO `json:"results"`
	Status  string            `json:"status"` // ok | error
	Error   string            `json:"error,omitempty"`
}

// RunStatusDTO 描述一个项目当前的处理状态。
type RunStatusDTO struct {
	ProjectID          string `json:"projectId"`
	CollectionName     string `json:"collectionName"`
	CollectionStatus   string `json:"collectionStatus"`
	TotalDocuments     int    `json:"totalDocuments"`
	PendingDocuments   int    `json:"pendingDocuments"`
	ProcessedDocuments int    `json:"processedDocuments"`
	FailedDocuments    int    `json:"failedDocuments"`
	CurrentDocumentID  string `json:"currentDocumentId,omitempty"`
	IsProcessing       bool   `json:"isProcessing"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
}

// CollectionStatsDTO 描述集合的行数与标识。
type CollectionStatsDTO struct {
	ProjectID      string `json:"projectId"`
	CollectionName string `json:"collectionName"`
	ChunkCount     int64  `json:"chunkCount"`
}

// FullContentDTO 是全文重建的结果。
type FullContentDTO struct {
	DocumentID  string `json:"documentId"`
	FileName    string `json:"fileName"`
	TotalChunks int    `json:"totalChunks"`
	Content     string `json:"content"`
}
