// Package model 定义了与数据库表对应的 Go 结构体以及核心领域对象。
package model

import "time"

// 文档上传状态，由外部上传/提取层写入。
const (
	UploadStatusExtracted        = "extracted"         // 文本提取成功，可进入向量化管道
	UploadStatusExtractionFailed = "extraction_failed" // 文本提取失败
)

// Document 对应于数据库中的 documents 表。
// 记录由外部上传层通过 Kafka 事件注册，本核心只读取，
// 唯一的例外是缓存提取出的文本（缓存在 Redis 中，不在此表）。
type Document struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID    string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"documentId"`
	ProjectID     string    `gorm:"type:varchar(64);not null;index" json:"projectId"`
	FileName      string    `gorm:"type:varchar(255);not null" json:"fileName"`
	ObjectKey     string    `gorm:"type:varchar(512)" json:"objectKey"` // MinIO 中原始对象的 key
	ContentLength int       `gorm:"not null;default:0" json:"contentLength"`
	UploadStatus  string    `gorm:"type:varchar(32);not null" json:"uploadStatus"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// Project 对应于数据库中的 projects 表。
// 项目本身由外部协作方管理，这里只保存派生集合名所需的最小信息。
type Project struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"projectId"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Project) TableName() string {
	return "projects"
}
