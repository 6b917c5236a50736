package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"doc-vector-go/internal/model"
	"doc-vector-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// 可用于等值/范围过滤的字段白名单。
var filterableFields = map[string]bool{
	"document_id":        true,
	"category":           true,
	"subcategory":        true,
	"document_type":      true,
	"virtual_path":       true,
	"hierarchical_path":  true,
	"hierarchy_level":    true,
	"organization_level": true,
	"chunk_type":         true,
	"chunk_index":        true,
	"section_title":      true,
	"file_name":          true,
}

// ErrCollectionMissing 表示目标集合（索引）不存在。
var ErrCollectionMissing = errors.New("es: collection does not exist")

// ScoredChunk 是一次检索命中的分块行与得分。
type ScoredChunk struct {
	Chunk model.ChunkDocument
	Score float64
}

// Store 封装对分块集合的全部读写操作。
type Store struct {
	client *elasticsearch.Client
	dims   int
}

// NewStore 创建一个新的 Store 实例。dims 为集合向量维度。
func NewStore(client *elasticsearch.Client, dims int) *Store {
	return &Store{client: client, dims: dims}
}

// EnsureCollection 保证集合存在且可查询。不存在则以固定 schema 创建；
// 存在但探测查询失败时，先删除重建一次，仍失败才上抛致命错误。
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	res, err := s.client.Indices.Exists([]string{name}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查集合是否存在失败: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		if probeErr := s.probe(ctx, name); probeErr == nil {
			return nil
		}
		log.Warnf("[VectorStore] 集合 '%s' 存在但不可查询, 删除重建", name)
		if err := s.dropCollection(ctx, name); err != nil {
			return fmt.Errorf("删除不可查询的集合失败: %w", err)
		}
	} else if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查集合是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	if err := s.createCollection(ctx, name); err != nil {
		return err
	}
	if err := s.probe(ctx, name); err != nil {
		return fmt.Errorf("集合 '%s' 重建后仍不可查询: %w", name, err)
	}
	return nil
}

// probe 对集合做一次零结果查询，验证其可查询性。
func (s *Store) probe(ctx context.Context, name string) error {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(name),
		s.client.Search.WithSize(0),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("probe search failed: %s", res.String())
	}
	return nil
}

func (s *Store) createCollection(ctx context.Context, name string) error {
	res, err := s.client.Indices.Create(
		name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(chunkMapping(s.dims))),
	)
	if err != nil {
		return fmt.Errorf("创建集合 '%s' 失败: %w", name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("创建集合 '%s' 时 Elasticsearch 返回错误: %s", name, res.String())
	}
	log.Infof("[VectorStore] 集合 '%s' 创建成功, 向量维度: %d", name, s.dims)
	return nil
}

func (s *Store) dropCollection(ctx context.Context, name string) error {
	res, err := s.client.Indices.Delete([]string{name}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("删除集合失败: %s", res.String())
	}
	return nil
}

// InsertDocumentChunks 原子写入一个文档的全部分块：整批组装为单次
// _bulk 请求提交；任何条目失败都会触发对该文档已写入行的清理，
// 保证失败后该文档零行可查。
func (s *Store) InsertDocumentChunks(ctx context.Context, collection, documentID string, chunks []model.ChunkDocument) error {
	if len(chunks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, chunk := range chunks {
		meta := fmt.Sprintf(`{"index":{"_id":%q}}`, chunk.VectorID)
		docBytes, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("序列化分块 %s 失败: %w", chunk.VectorID, err)
		}
		buf.WriteString(meta)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(collection),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		// 请求本身失败时 ES 可能已写入部分行，同样触发清理
		s.cleanupPartial(ctx, collection, documentID)
		return fmt.Errorf("批量写入请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		s.cleanupPartial(ctx, collection, documentID)
		return fmt.Errorf("批量写入返回错误: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		s.cleanupPartial(ctx, collection, documentID)
		return fmt.Errorf("解析批量写入响应失败: %w", err)
	}
	if bulkResp.Errors {
		// 部分条目失败即违反全有或全无契约：删除该文档的所有行
		s.cleanupPartial(ctx, collection, documentID)
		return fmt.Errorf("批量写入部分失败, 已清理文档 %s 的全部行", documentID)
	}

	log.Infof("[VectorStore] 文档 %s 的 %d 个分块已原子写入集合 '%s'", documentID, len(chunks), collection)
	return nil
}

func (s *Store) cleanupPartial(ctx context.Context, collection, documentID string) {
	if err := s.DeleteDocumentChunks(ctx, collection, documentID); err != nil {
		log.Errorf("[VectorStore] 清理文档 %s 的部分写入行失败: %v", documentID, err)
	}
}

// DeleteDocumentChunks 删除一个文档的全部分块行。
func (s *Store) DeleteDocumentChunks(ctx context.Context, collection, documentID string) error {
	query := fmt.Sprintf(`{"query":{"term":{"document_id":%q}}}`, documentID)
	res, err := s.client.DeleteByQuery(
		[]string{collection},
		strings.NewReader(query),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("按文档删除失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("按文档删除返回错误: %s", res.String())
	}
	return nil
}

// BuildFilterClauses 将过滤条件表合取地转换为 ES bool filter 子句。
// 标量值生成 term，切片生成 terms，形如 {"gte":..,"lte":..} 的 map 生成 range。
// 白名单外的键被忽略。
func BuildFilterClauses(filters map[string]interface{}) []map[string]interface{} {
	var clauses []map[string]interface{}
	for field, value := range filters {
		if !filterableFields[field] || value == nil {
			continue
		}
		switch v := value.(type) {
		case []string:
			clauses = append(clauses, map[string]interface{}{"terms": map[string]interface{}{field: v}})
		case []interface{}:
			clauses = append(clauses, map[string]interface{}{"terms": map[string]interface{}{field: v}})
		case map[string]interface{}:
			clauses = append(clauses, map[string]interface{}{"range": map[string]interface{}{field: v}})
		default:
			clauses = append(clauses, map[string]interface{}{"term": map[string]interface{}{field: v}})
		}
	}
	return clauses
}

// Search 在集合内执行过滤相似度检索，返回按得分排序的前 limit 条。
func (s *Store) Search(ctx context.Context, collection string, vector []float32, filters map[string]interface{}, limit int) ([]ScoredChunk, error) {
	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              limit,
		"num_candidates": limit * 10,
	}
	if clauses := BuildFilterClauses(filters); len(clauses) > 0 {
		knn["filter"] = map[string]interface{}{
			"bool": map[string]interface{}{"must": clauses},
		}
	}
	esQuery := map[string]interface{}{
		"knn":  knn,
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("序列化检索请求失败: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(collection),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, ErrCollectionMissing
		}
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch returned an error: %s", string(bodyBytes))
	}
	return decodeHits(res.Body)
}

// FetchDocumentChunks 取回一个文档的全部分块，按 chunk_index 升序。
func (s *Store) FetchDocumentChunks(ctx context.Context, collection, documentID string) ([]model.ChunkDocument, error) {
	query := fmt.Sprintf(`{
		"query": {"term": {"document_id": %q}},
		"sort": [{"chunk_index": {"order": "asc"}}],
		"size": 10000
	}`, documentID)

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(collection),
		s.client.Search.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return nil, fmt.Errorf("取回文档分块失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, ErrCollectionMissing
		}
		return nil, fmt.Errorf("取回文档分块返回错误: %s", res.String())
	}
	hits, err := decodeHits(res.Body)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.ChunkDocument, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, h.Chunk)
	}
	return chunks, nil
}

// Stats 返回集合的行数。
func (s *Store) Stats(ctx context.Context, collection string) (int64, error) {
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(collection),
	)
	if err != nil {
		return 0, fmt.Errorf("统计集合行数失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("统计集合行数返回错误: %s", res.String())
	}
	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("解析统计响应失败: %w", err)
	}
	return countResp.Count, nil
}

func decodeHits(body io.Reader) ([]ScoredChunk, error) {
	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.ChunkDocument `json:"_source"`
				Score  float64             `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解析 Elasticsearch 响应失败: %w", err)
	}
	out := make([]ScoredChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		out = append(out, ScoredChunk{Chunk: hit.Source, Score: hit.Score})
	}
	return out, nil
}

