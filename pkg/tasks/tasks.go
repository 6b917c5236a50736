// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentIngestedTask 是外部上传/提取层在文本提取完成后发布的事件。
// ExtractedText 可为空：为空时管道在处理阶段从 MinIO 取原始对象重新提取。
type DocumentIngestedTask struct {
	DocumentID    string `json:"document_id"`
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	FileName      string `json:"file_name"`
	ObjectKey     string `json:"object_key"`
	ContentLength int    `json:"content_length"`
	UploadStatus  string `json:"upload_status"` // extracted | extraction_failed
	ExtractedText string `json:"extracted_text,omitempty"`
}
