// Package es 实现基于 Elasticsearch 的批量向量存储：
// 每个项目一个隔离的索引（集合），提供原子批量写入、按文档删除、
// 过滤相似度检索与统计。
package es

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"doc-vector-go/internal/config"
	"doc-vector-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端。集合按需创建，这里只建连接。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	log.Info("Elasticsearch 客户端初始化成功")
	return nil
}

var collectionNameRe = regexp.MustCompile(`[^a-z0-9]+`)

// CollectionName 从项目标识（及可用的项目名）确定性地派生集合名，
// 保证人可读且项目间互相隔离。
func CollectionName(projectID, projectName string) string {
	name := fmt.Sprintf("proj_%s", sanitize(projectID))
	if projectName != "" {
		name = fmt.Sprintf("%s_%s", name, sanitize(projectName))
	}
	// ES 索引名长度上限为 255 字节，留出余量
	if len(name) > 200 {
		name = name[:200]
	}
	return strings.Trim(name, "_")
}

func sanitize(s string) string {
	s = strings.ToLower(s)
	s = collectionNameRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// chunkMapping 生成集合的固定 schema。向量字段建相似度索引（cosine），
// 所有用于等值/范围过滤的字段均为 keyword/integer/boolean。
func chunkMapping(dims int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id":          { "type": "keyword" },
				"document_id":        { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"content":            { "type": "text" },
				"file_name":          { "type": "keyword" },
				"category":           { "type": "keyword" },
				"subcategory":        { "type": "keyword" },
				"document_type":      { "type": "keyword" },
				"virtual_path":       { "type": "keyword" },
				"hierarchical_path":  { "type": "keyword" },
				"hierarchy_level":    { "type": "integer" },
				"organization_level": { "type": "keyword" },
				"chunk_id":           { "type": "keyword" },
				"chunk_index":        { "type": "integer" },
				"total_chunks":       { "type": "integer" },
				"chunk_type":         { "type": "keyword" },
				"section_title":      { "type": "keyword" },
				"is_complete":        { "type": "boolean" },
				"truncated":          { "type": "boolean" },
				"word_count":         { "type": "integer" },
				"content_length":     { "type": "integer" },
				"summary":            { "type": "text" },
				"summary_word_count": { "type": "integer" },
				"summary_model":      { "type": "keyword" },
				"topic":              { "type": "text" },
				"topic_word_count":   { "type": "integer" },
				"topic_model":        { "type": "keyword" },
				"has_embedding":      { "type": "boolean" },
				"model_version":      { "type": "keyword" },
				"processing_time_ms": { "type": "long" },
				"error_message":      { "type": "text" }
			}
		}
	}`, dims)
}
