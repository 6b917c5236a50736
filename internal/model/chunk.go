package model

// 分块类型。complete_document 表示整篇文档装入单个分块。
const (
	ChunkTypeCompleteDocument = "complete_document"
	ChunkTypeIntroduction     = "introduction"
	ChunkTypeSection          = "section"
	ChunkTypeSectionPart      = "section_part"
	ChunkTypeContent          = "content"
)

// ChunkDocument 定义了存储在 Elasticsearch 集合中的分块行结构。
// 一个文档的全部分块通过单次 _bulk 请求原子写入。
type ChunkDocument struct {
	// 标识与向量
	VectorID   string    `json:"vector_id"` // 唯一标识：<document_id>_chunk_<NNN>
	DocumentID string    `json:"document_id"`
	Vector     []float32 `json:"vector,omitempty"` // 提取失败的占位记录不带向量
	Content    string    `json:"content"`

	// 文件元数据
	FileName string `json:"file_name"`

	// 层级字段，来自文件名分类器
	Category          string `json:"category"`
	Subcategory       string `json:"subcategory"`
	DocumentType      string `json:"document_type"`
	VirtualPath       string `json:"virtual_path"`
	HierarchicalPath  string `json:"hierarchical_path"` // <virtual_path>#chunk_NNN
	HierarchyLevel    int    `json:"hierarchy_level"`
	OrganizationLevel string `json:"organization_level"`

	// 分块字段
	ChunkID      string `json:"chunk_id"`
	ChunkIndex   int    `json:"chunk_index"`
	TotalChunks  int    `json:"total_chunks"`
	ChunkType    string `json:"chunk_type"`
	SectionTitle string `json:"section_title"`
	IsComplete   bool   `json:"is_complete"` // chunk_type == complete_document
	Truncated    bool   `json:"truncated"`   // 超长句子被硬截断
	WordCount    int    `json:"word_count"`
	ContentLen   int    `json:"content_length"`

	// 富化字段
	Summary          string `json:"summary"`
	SummaryWordCount int    `json:"summary_word_count"`
	SummaryModel     string `json:"summary_model"`
	Topic            string `json:"topic"`
	TopicWordCount   int    `json:"topic_word_count"`
	TopicModel       string `json:"topic_model"`

	// 处理元数据
	HasEmbedding     bool   `json:"has_embedding"`
	ModelVersion     string `json:"model_version"` // embedding 模型版本
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	ErrorMessage     string `json:"error_message,omitempty"`
}
