package service

import (
	"context"

	"doc-vector-go/internal/model"
	"doc-vector-go/internal/repository"
	"doc-vector-go/pkg/log"
	"doc-vector-go/pkg/tasks"
)

// IngestService 登记上传层发布的文档事件。实现 kafka.TaskHandler。
type IngestService interface {
	HandleDocumentIngested(ctx context.Context, task tasks.DocumentIngestedTask) error
}

type ingestService struct {
	docRepo     repository.DocumentRepository
	projectRepo repository.ProjectRepository
	statusRepo  repository.VectorStatusRepository
	textCache   repository.TextCacheRepository
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(
	docRepo repository.DocumentRepository,
	projectRepo repository.ProjectRepository,
	statusRepo repository.VectorStatusRepository,
	textCache repository.TextCacheRepository,
) IngestService {
	return &ingestService{
		docRepo:     docRepo,
		projectRepo: projectRepo,
		statusRepo:  statusRepo,
		textCache:   textCache,
	}
}

// HandleDocumentIngested 将事件落库：项目与文档 upsert，状态记录
// 以 pending 创建，随事件携带的提取文本写入缓存。
func (s *ingestService) HandleDocumentIngested(ctx context.Context, task tasks.DocumentIngestedTask) error {
	if err := s.projectRepo.Upsert(&model.Project{
		ProjectID: task.ProjectID,
		Name:      task.ProjectName,
	}); err != nil {
		return err
	}

	if err := s.docRepo.Upsert(&model.Document{
		DocumentID:    task.DocumentID,
		ProjectID:     task.ProjectID,
		FileName:      task.FileName,
		ObjectKey:     task.ObjectKey,
		ContentLength: task.ContentLength,
		UploadStatus:  task.UploadStatus,
	}); err != nil {
		return err
	}

	if _, err := s.statusRepo.GetOrCreate(task.DocumentID, task.ProjectID); err != nil {
		return err
	}

	if task.ExtractedText != "" {
		if err := s.textCache.Put(ctx, task.DocumentID, task.ExtractedText); err != nil {
			log.Warnf("[IngestService] 缓存提取文本失败, DocumentID: %s, err: %v", task.DocumentID, err)
		}
	}

	log.Infof("[IngestService] 文档已登记, DocumentID: %s, ProjectID: %s, status: %s",
		task.DocumentID, task.ProjectID, task.UploadStatus)
	return nil
}
