package repository

import (
	"errors"
	"time"

	"doc-vector-go/internal/model"

	"gorm.io/gorm"
)

// CollectionRepository 定义了对 collection_status 表的数据操作接口。
type CollectionRepository interface {
	GetOrCreate(projectID, collectionName string) (*model.CollectionStatus, error)
	Find(projectID string) (*model.CollectionStatus, error)
	UpdateStatus(projectID, status, errorMessage string) error
	UpdateCounts(projectID string, total, processed, failed int) error
}

type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository 创建一个新的 CollectionRepository 实例。
func NewCollectionRepository(db *gorm.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

// GetOrCreate 返回项目的集合状态记录，首次处理时以 not_created 创建。
func (r *collectionRepository) GetOrCreate(projectID, collectionName string) (*model.CollectionStatus, error) {
	var cs model.CollectionStatus
	err := r.db.Where("project_id = ?", projectID).First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cs = model.CollectionStatus{
			ProjectID:      projectID,
			CollectionName: collectionName,
			Status:         model.CollectionStatusNotCreated,
		}
		if err := r.db.Create(&cs).Error; err != nil {
			return nil, err
		}
		return &cs, nil
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// Find 查找项目的集合状态记录。
func (r *collectionRepository) Find(projectID string) (*model.CollectionStatus, error) {
	var cs model.CollectionStatus
	if err := r.db.Where("project_id = ?", projectID).First(&cs).Error; err != nil {
		return nil, err
	}
	return &cs, nil
}

// UpdateStatus 更新集合状态并刷新最后处理时间。
func (r *collectionRepository) UpdateStatus(projectID, status, errorMessage string) error {
	now := time.Now()
	return r.db.Model(&model.CollectionStatus{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"status":            status,
			"error_message":     errorMessage,
			"last_processed_at": &now,
		}).Error
}

// UpdateCounts 更新文档计数。
func (r *collectionRepository) UpdateCounts(projectID string, total, processed, failed int) error {
	return r.db.Model(&model.CollectionStatus{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"total_documents":     total,
			"processed_documents": processed,
			"failed_documents":    failed,
		}).Error
}
