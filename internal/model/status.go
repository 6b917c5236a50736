package model

import "time"

// 单文档向量化状态机：PENDING → PROCESSING → {COMPLETED | FAILED}。
// 取消时回退到 PENDING（记录保留，不删除）。
const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// 集合（项目级）状态机：NOT_CREATED → PROCESSING → {COMPLETED | FAILED | PENDING}。
const (
	CollectionStatusNotCreated = "not_created"
	CollectionStatusPending    = "pending"
	CollectionStatusProcessing = "processing"
	CollectionStatusCompleted  = "completed"
	CollectionStatusFailed     = "failed"
)

// DocumentVectorStatus 对应于数据库中的 document_vector_status 表。
// 每个 (文档, 集合) 对一条记录，首次进入管道时惰性创建。
type DocumentVectorStatus struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID       string     `gorm:"type:varchar(64);not null;index" json:"documentId"`
	ProjectID        string     `gorm:"type:varchar(64);not null;index:idx_status_project" json:"projectId"`
	Status           string     `gorm:"type:varchar(16);not null;default:'pending';index:idx_status_project" json:"status"`
	ContentLength    int        `gorm:"not null;default:0" json:"contentLength"`
	ProcessingTimeMs int64      `gorm:"not null;default:0" json:"processingTimeMs"`
	ErrorMessage     string     `gorm:"type:text" json:"errorMessage"`
	SummaryGenerated bool       `gorm:"not null;default:false" json:"summaryGenerated"`
	TopicGenerated   bool       `gorm:"not null;default:false" json:"topicGenerated"`
	GeneratorModel   string     `gorm:"type:varchar(100)" json:"generatorModel"`
	ProcessedAt      *time.Time `gorm:"default:null" json:"processedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentVectorStatus) TableName() string {
	return "document_vector_status"
}

// CollectionStatus 对应于数据库中的 collection_status 表。
// 每个项目一条记录，首次处理时创建，每轮运行结束后由文档状态聚合重算。
type CollectionStatus struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID          string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"projectId"`
	CollectionName     string     `gorm:"type:varchar(255);not null" json:"collectionName"`
	Status             string     `gorm:"type:varchar(16);not null;default:'not_created'" json:"status"`
	TotalDocuments     int        `gorm:"not null;default:0" json:"totalDocuments"`
	ProcessedDocuments int        `gorm:"not null;default:0" json:"processedDocuments"`
	FailedDocuments    int        `gorm:"not null;default:0" json:"failedDocuments"`
	ErrorMessage       string     `gorm:"type:text" json:"errorMessage"`
	LastProcessedAt    *time.Time `gorm:"default:null" json:"lastProcessedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CollectionStatus) TableName() string {
	return "collection_status"
}
