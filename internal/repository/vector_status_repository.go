package repository

import (
	"errors"
	"time"

	"doc-vector-go/internal/model"

	"gorm.io/gorm"
)

// StatusCounts 是一个项目下各状态的文档计数。
type StatusCounts struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// VectorStatusRepository 定义了对 document_vector_status 表的数据操作接口。
// 状态迁移由管道控制器独占，其他组件只读。
type VectorStatusRepository interface {
	GetOrCreate(documentID, projectID string) (*model.DocumentVectorStatus, error)
	Find(documentID, projectID string) (*model.DocumentVectorStatus, error)
	UpdateStatus(documentID, projectID, status, errorMessage string) error
	MarkCompleted(status *model.DocumentVectorStatus) error
	ResetToPending(documentID, projectID string) error
	CountByProject(projectID string) (StatusCounts, error)
}

type vectorStatusRepository struct {
	db *gorm.DB
}

// NewVectorStatusRepository 创建一个新的 VectorStatusRepository 实例。
func NewVectorStatusRepository(db *gorm.DB) VectorStatusRepository {
	return &vectorStatusRepository{db: db}
}

// GetOrCreate 返回 (文档, 集合) 对的状态记录，不存在时以 pending 创建。
func (r *vectorStatusRepository) GetOrCreate(documentID, projectID string) (*model.DocumentVectorStatus, error) {
	var status model.DocumentVectorStatus
	err := r.db.Where("document_id = ? AND project_id = ?", documentID, projectID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		status = model.DocumentVectorStatus{
			DocumentID: documentID,
			ProjectID:  projectID,
			Status:     model.DocStatusPending,
		}
		if err := r.db.Create(&status).Error; err != nil {
			return nil, err
		}
		return &status, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Find 查找状态记录。
func (r *vectorStatusRepository) Find(documentID, projectID string) (*model.DocumentVectorStatus, error) {
	var status model.DocumentVectorStatus
	if err := r.db.Where("document_id = ? AND project_id = ?", documentID, projectID).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// UpdateStatus 更新状态与错误信息。
func (r *vectorStatusRepository) UpdateStatus(documentID, projectID, status, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	if status == model.DocStatusFailed {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&model.DocumentVectorStatus{}).
		Where("document_id = ? AND project_id = ?", documentID, projectID).
		Updates(updates).Error
}

// MarkCompleted 写入处理完成的完整状态（时长、富化标志、生成器身份）。
func (r *vectorStatusRepository) MarkCompleted(status *model.DocumentVectorStatus) error {
	now := time.Now()
	status.Status = model.DocStatusCompleted
	status.ErrorMessage = ""
	status.ProcessedAt = &now
	return r.db.Save(status).Error
}

// ResetToPending 将状态回退为 pending（取消时调用，记录不删除）。
func (r *vectorStatusRepository) ResetToPending(documentID, projectID string) error {
	return r.db.Model(&model.DocumentVectorStatus{}).
		Where("document_id = ? AND project_id = ?", documentID, projectID).
		Updates(map[string]interface{}{
			"status":        model.DocStatusPending,
			"error_message": "",
		}).Error
}

// CountByProject 统计一个项目下各状态的文档数。
func (r *vectorStatusRepository) CountByProject(projectID string) (StatusCounts, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := r.db.Model(&model.DocumentVectorStatus{}).
		Select("status, count(*) as count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return StatusCounts{}, err
	}

	var counts StatusCounts
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case model.DocStatusPending:
			counts.Pending = row.Count
		case model.DocStatusProcessing:
			counts.Processing = row.Count
		case model.DocStatusCompleted:
			counts.Completed = row.Count
		case model.DocStatusFailed:
			counts.Failed = row.Count
		}
	}
	return counts, nil
}
