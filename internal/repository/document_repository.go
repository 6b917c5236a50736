// Package repository 提供元数据表的数据访问层。
package repository

import (
	"doc-vector-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository 定义了对 documents 表的数据操作接口。
type DocumentRepository interface {
	Upsert(doc *model.Document) error
	FindByDocumentID(documentID string) (*model.Document, error)
	FindReadyByProject(projectID string) ([]*model.Document, error)
	CountByProject(projectID string) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Upsert 按 document_id 插入或更新文档记录。
func (r *documentRepository) Upsert(doc *model.Document) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"project_id", "file_name", "object_key", "content_length", "upload_status"}),
	}).Create(doc).Error
}

// FindByDocumentID 根据文档标识查找文档记录。
func (r *documentRepository) FindByDocumentID(documentID string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindReadyByProject 返回项目下提取成功、可进入管道的文档，按创建时间排序。
func (r *documentRepository) FindReadyByProject(projectID string) ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.
		Where("project_id = ? AND upload_status = ?", projectID, model.UploadStatusExtracted).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// CountByProject 统计项目下可处理文档总数。
func (r *documentRepository) CountByProject(projectID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Document{}).
		Where("project_id = ? AND upload_status = ?", projectID, model.UploadStatusExtracted).
		Count(&count).Error
	return count, err
}

// ProjectRepository 定义了对 projects 表的数据操作接口。
type ProjectRepository interface {
	Upsert(project *model.Project) error
	FindByProjectID(projectID string) (*model.Project, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建一个新的 ProjectRepository 实例。
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Upsert 按 project_id 插入或更新项目记录。
func (r *projectRepository) Upsert(project *model.Project) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(project).Error
}

// FindByProjectID 根据项目标识查找项目记录。
func (r *projectRepository) FindByProjectID(projectID string) (*model.Project, error) {
	var project model.Project
	if err := r.db.Where("project_id = ?", projectID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}
