// Package service 实现面向接口层的业务逻辑。
package service

import (
	"context"
	"fmt"
	"strings"

	"doc-vector-go/internal/model"
	"doc-vector-go/internal/repository"
	"doc-vector-go/pkg/embedding"
	"doc-vector-go/pkg/es"
	"doc-vector-go/pkg/log"
)

// 结果质量按分块内容长度分档。
const (
	qualityHighMinLen   = 1000
	qualityMediumMinLen = 300
)

// ChunkSearcher 是检索服务对存储层的依赖面。由 *es.Store 实现。
type ChunkSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, filters map[string]interface{}, limit int) ([]es.ScoredChunk, error)
	Stats(ctx context.Context, collection string) (int64, error)
}

// SearchService 定义了相似度检索的服务接口。
type SearchService interface {
	Search(ctx context.Context, projectID, query string, filters map[string]interface{}, limit int) model.SearchResponseDTO
	Stats(ctx context.Context, projectID string) (model.CollectionStatsDTO, error)
}

type searchService struct {
	searcher        ChunkSearcher
	embeddingClient embedding.Client
	collectionRepo  repository.CollectionRepository
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(
	searcher ChunkSearcher,
	embeddingClient embedding.Client,
	collectionRepo repository.CollectionRepository,
) SearchService {
	return &searchService{
		searcher:        searcher,
		embeddingClient: embeddingClient,
		collectionRepo:  collectionRepo,
	}
}

// Search 在项目的集合内做过滤相似度检索。检索只读且永不抛错：
// 任何失败（集合不存在、向量化失败、查询失败）都返回空结果集，
// 并在 Status/Error 字段中说明原因。
func (s *searchService) Search(ctx context.Context, projectID, query string, filters map[string]interface{}, limit int) model.SearchResponseDTO {
	resp := model.SearchResponseDTO{Results: []model.SearchResultDTO{}, Status: "ok"}

	cs, err := s.collectionRepo.Find(projectID)
	if err != nil {
		log.Warnf("[SearchService] 项目集合不存在, ProjectID: %s, err: %v", projectID, err)
		resp.Status = "error"
		resp.Error = "collection not found for project"
		return resp
	}

	vector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[SearchService] 查询向量化失败, ProjectID: %s, err: %v", projectID, err)
		resp.Status = "error"
		resp.Error = "failed to embed query"
		return resp
	}

	hits, err := s.searcher.Search(ctx, cs.CollectionName, vector, filters, limit)
	if err != nil {
		log.Errorf("[SearchService] 检索失败, ProjectID: %s, collection: %s, err: %v",
			projectID, cs.CollectionName, err)
		resp.Status = "error"
		resp.Error = "search failed"
		return resp
	}

	for _, hit := range hits {
		resp.Results = append(resp.Results, enrichResult(hit))
	}
	log.Infof("[SearchService] 检索完成, ProjectID: %s, 命中 %d 条", projectID, len(resp.Results))
	return resp
}

// Stats 返回项目集合的行数统计。
func (s *searchService) Stats(ctx context.Context, projectID string) (model.CollectionStatsDTO, error) {
	cs, err := s.collectionRepo.Find(projectID)
	if err != nil {
		return model.CollectionStatsDTO{}, err
	}
	count, err := s.searcher.Stats(ctx, cs.CollectionName)
	if err != nil {
		return model.CollectionStatsDTO{}, err
	}
	return model.CollectionStatsDTO{
		ProjectID:      projectID,
		CollectionName: cs.CollectionName,
		ChunkCount:     count,
	}, nil
}

// enrichResult 将命中行转换为带导航与质量信息的结果。
func enrichResult(hit es.ScoredChunk) model.SearchResultDTO {
	chunk := hit.Chunk
	return model.SearchResultDTO{
		DocumentID:   chunk.DocumentID,
		FileName:     chunk.FileName,
		ChunkID:      chunk.ChunkID,
		ChunkIndex:   chunk.ChunkIndex,
		TotalChunks:  chunk.TotalChunks,
		ChunkType:    chunk.ChunkType,
		SectionTitle: chunk.SectionTitle,
		Content:      chunk.Content,
		Summary:      chunk.Summary,
		Topic:        chunk.Topic,
		Score:        hit.Score,
		Breadcrumbs:  breadcrumbs(chunk.HierarchicalPath),
		Position:     fmt.Sprintf("%d of %d", chunk.ChunkIndex+1, chunk.TotalChunks),
		HasPrevious:  chunk.ChunkIndex > 0,
		HasNext:      chunk.ChunkIndex < chunk.TotalChunks-1,
		Quality:      quality(chunk.ContentLen),
		Category:     chunk.Category,
		Subcategory:  chunk.Subcategory,
	}
}

// breadcrumbs 按 '/' 拆分层级路径，先去掉分块片段（# 之后的部分）。
func breadcrumbs(hierarchicalPath string) []string {
	if i := strings.Index(hierarchicalPath, "#"); i >= 0 {
		hierarchicalPath = hierarchicalPath[:i]
	}
	if hierarchicalPath == "" {
		return []string{}
	}
	return strings.Split(hierarchicalPath, "/")
}

// quality 依据分块内容长度分档。
func quality(contentLen int) string {
	switch {
	case contentLen >= qualityHighMinLen:
		return "high"
	case contentLen >= qualityMediumMinLen:
		return "medium"
	default:
		return "low"
	}
}
