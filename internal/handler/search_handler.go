package handler

import (
	"net/http"
	"strconv"

	"doc-vector-go/internal/service"
	"doc-vector-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// 可用作过滤条件的查询参数到集合可过滤字段的映射。
var filterParams = map[string]string{
	"category":          "category",
	"subcategory":       "subcategory",
	"documentType":      "document_type",
	"chunkType":         "chunk_type",
	"hierarchyLevel":    "hierarchy_level",
	"organizationLevel": "organization_level",
}

// SearchHandler 结构体定义了检索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 是处理相似度检索请求的 Gin 处理函数。检索层永不抛错，
// 响应始终为 200，失败原因在响应体的 status/error 字段中。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到检索请求, query: %s", query)

	if query == "" {
		log.Warnf("[SearchHandler] 检索请求失败: query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}

	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId 参数为空"})
		return
	}

	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}

	filters := make(map[string]interface{})
	for param, field := range filterParams {
		if v := c.Query(param); v != "" {
			if field == "hierarchy_level" {
				if lvl, err := strconv.Atoi(v); err == nil {
					filters[field] = lvl
				}
				continue
			}
			filters[field] = v
		}
	}
	log.Infof("[SearchHandler] 解析参数, limit: %d, filters: %d 个", limit, len(filters))

	resp := h.searchService.Search(c.Request.Context(), projectID, query, filters, limit)
	log.Infof("[SearchHandler] 检索完成, query: '%s', status: %s, 返回 %d 条结果", query, resp.Status, len(resp.Results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp, "message": "success"})
}
