package handler

import (
	"errors"
	"net/http"

	"doc-vector-go/internal/service"
	"doc-vector-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DocumentHandler 结构体定义了文档相关的处理器。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// Status 是查询单文档向量化状态的 Gin 处理函数。
func (h *DocumentHandler) Status(c *gin.Context) {
	documentID := c.Param("documentId")
	projectID := c.Query("projectId")
	if documentID == "" || projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId 或 projectId 参数为空"})
		return
	}

	status, err := h.documentService.GetStatus(documentID, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文档状态记录不存在"})
			return
		}
		log.Errorf("[DocumentHandler] 查询文档状态失败, DocumentID: %s, error: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询文档状态失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": status, "message": "success"})
}

// FullContent 是全文重建的 Gin 处理函数：取出文档的全部分块并按序拼接。
func (h *DocumentHandler) FullContent(c *gin.Context) {
	documentID := c.Param("documentId")
	projectID := c.Query("projectId")
	if documentID == "" || projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId 或 projectId 参数为空"})
		return
	}
	log.Infof("[DocumentHandler] 收到全文重建请求, DocumentID: %s", documentID)

	content, err := h.documentService.GetFullContent(c.Request.Context(), projectID, documentID)
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
			return
		}
		log.Errorf("[DocumentHandler] 全文重建失败, DocumentID: %s, error: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "全文重建失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": content, "message": "success"})
}

// Delete 是删除文档全部分块的 Gin 处理函数。
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID := c.Param("documentId")
	projectID := c.Query("projectId")
	if documentID == "" || projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId 或 projectId 参数为空"})
		return
	}
	log.Infof("[DocumentHandler] 收到删除文档请求, DocumentID: %s", documentID)

	if err := h.documentService.DeleteDocument(c.Request.Context(), projectID, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "项目集合不存在"})
			return
		}
		log.Errorf("[DocumentHandler] 删除文档失败, DocumentID: %s, error: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除文档失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "success"})
}
