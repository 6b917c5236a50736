package service

import (
	"context"
	"errors"
	"strings"

	"doc-vector-go/internal/model"
	"doc-vector-go/internal/repository"
	"doc-vector-go/pkg/es"
	"doc-vector-go/pkg/log"
)

// ErrDocumentNotFound 表示集合中没有该文档的任何分块。
var ErrDocumentNotFound = errors.New("service: document not found in collection")

// ChunkFetcher 是文档服务对存储层的依赖面。由 *es.Store 实现。
type ChunkFetcher interface {
	FetchDocumentChunks(ctx context.Context, collection, documentID string) ([]model.ChunkDocument, error)
	DeleteDocumentChunks(ctx context.Context, collection, documentID string) error
}

// DocumentService 定义了面向单文档的服务接口：全文重建与删除。
type DocumentService interface {
	GetStatus(documentID, projectID string) (*model.DocumentVectorStatus, error)
	GetFullContent(ctx context.Context, projectID, documentID string) (model.FullContentDTO, error)
	DeleteDocument(ctx context.Context, projectID, documentID string) error
}

type documentService struct {
	fetcher        ChunkFetcher
	statusRepo     repository.VectorStatusRepository
	collectionRepo repository.CollectionRepository
	textCache      repository.TextCacheRepository
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	fetcher ChunkFetcher,
	statusRepo repository.VectorStatusRepository,
	collectionRepo repository.CollectionRepository,
	textCache repository.TextCacheRepository,
) DocumentService {
	return &documentService{
		fetcher:        fetcher,
		statusRepo:     statusRepo,
		collectionRepo: collectionRepo,
		textCache:      textCache,
	}
}

// GetStatus 返回文档的向量化状态记录。
func (s *documentService) GetStatus(documentID, projectID string) (*model.DocumentVectorStatus, error) {
	return s.statusRepo.Find(documentID, projectID)
}

// GetFullContent 从集合中取出文档的全部分块并按序重建全文。
// 重建是尽力而为的：按 chunk_index 升序拼接现存分块，不因缺块报错。
func (s *documentService) GetFullContent(ctx context.Context, projectID, documentID string) (model.FullContentDTO, error) {
	cs, err := s.collectionRepo.Find(projectID)
	if err != nil {
		return model.FullContentDTO{}, err
	}

	chunks, err := s.fetcher.FetchDocumentChunks(ctx, cs.CollectionName, documentID)
	if err != nil {
		if errors.Is(err, es.ErrCollectionMissing) {
			return model.FullContentDTO{}, ErrDocumentNotFound
		}
		return model.FullContentDTO{}, err
	}
	if len(chunks) == 0 {
		return model.FullContentDTO{}, ErrDocumentNotFound
	}

	return model.FullContentDTO{
		DocumentID:  documentID,
		FileName:    chunks[0].FileName,
		TotalChunks: chunks[0].TotalChunks,
		Content:     Reassemble(chunks),
	}, nil
}

// DeleteDocument 删除文档在集合中的全部分块，状态回退 pending，
// 并清掉提取文本缓存。
func (s *documentService) DeleteDocument(ctx context.Context, projectID, documentID string) error {
	cs, err := s.collectionRepo.Find(projectID)
	if err != nil {
		return err
	}
	if err := s.fetcher.DeleteDocumentChunks(ctx, cs.CollectionName, documentID); err != nil {
		return err
	}
	if err := s.statusRepo.ResetToPending(documentID, projectID); err != nil {
		log.Warnf("[DocumentService] 回退文档状态失败, DocumentID: %s, err: %v", documentID, err)
	}
	if err := s.textCache.Delete(ctx, documentID); err != nil {
		log.Warnf("[DocumentService] 清理文本缓存失败, DocumentID: %s, err: %v", documentID, err)
	}
	log.Infof("[DocumentService] 文档已删除, ProjectID: %s, DocumentID: %s", projectID, documentID)
	return nil
}

// Reassemble 按分块类型拼接全文：complete_document 原样返回；
// introduction 与 section 前插入空行，其余分块以换行衔接。
// 输入要求已按 chunk_index 升序。
func Reassemble(chunks []model.ChunkDocument) string {
	if len(chunks) == 1 && chunks[0].ChunkType == model.ChunkTypeCompleteDocument {
		return chunks[0].Content
	}

	var sb strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			switch chunk.ChunkType {
			case model.ChunkTypeIntroduction, model.ChunkTypeSection:
				sb.WriteString("\n\n")
			default:
				sb.WriteString("\n")
			}
		}
		sb.WriteString(chunk.Content)
	}
	return sb.String()
}
