// Package handler 实现 HTTP 接口层。
package handler

import (
	"errors"
	"net/http"
	"time"

	"doc-vector-go/internal/pipeline"
	"doc-vector-go/internal/service"
	"doc-vector-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 状态推送的采样间隔。
const statusStreamInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 服务间调用，来源校验交给令牌认证
	CheckOrigin: func(r *http.Request) bool { return true },
}

// runRequest 是启动/停止处理的请求体。projectId 也可经查询参数传入。
type runRequest struct {
	ProjectID string `json:"projectId"`
}

// projectIDFrom 从请求体或查询参数解析 projectId。
func projectIDFrom(c *gin.Context) string {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.ProjectID != "" {
		return req.ProjectID
	}
	return c.Query("projectId")
}

// PipelineHandler 结构体定义了管道控制相关的处理器。
type PipelineHandler struct {
	controller    *pipeline.Controller
	searchService service.SearchService
}

// NewPipelineHandler 创建一个新的 PipelineHandler 实例。
func NewPipelineHandler(controller *pipeline.Controller, searchService service.SearchService) *PipelineHandler {
	return &PipelineHandler{
		controller:    controller,
		searchService: searchService,
	}
}

// Start 是启动项目处理运行的 Gin 处理函数。
func (h *PipelineHandler) Start(c *gin.Context) {
	projectID := projectIDFrom(c)
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId 参数为空"})
		return
	}
	log.Infof("[PipelineHandler] 收到启动处理请求, ProjectID: %s", projectID)

	if err := h.controller.StartRun(projectID); err != nil {
		if errors.Is(err, pipeline.ErrRunConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "该项目已有处理运行在进行中"})
			return
		}
		log.Errorf("[PipelineHandler] 启动处理失败, ProjectID: %s, error: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "启动处理失败"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"code": 202, "message": "processing started"})
}

// Stop 是请求取消项目处理运行的 Gin 处理函数。
func (h *PipelineHandler) Stop(c *gin.Context) {
	projectID := projectIDFrom(c)
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId 参数为空"})
		return
	}
	log.Infof("[PipelineHandler] 收到取消处理请求, ProjectID: %s", projectID)

	if err := h.controller.StopRun(projectID); err != nil {
		if errors.Is(err, pipeline.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "该项目没有活动的处理运行"})
			return
		}
		log.Errorf("[PipelineHandler] 取消处理失败, ProjectID: %s, error: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "取消处理失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "cancellation requested"})
}

// Status 是查询项目处理状态的 Gin 处理函数。
func (h *PipelineHandler) Status(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId 参数为空"})
		return
	}

	status, err := h.controller.GetRunStatus(projectID)
	if err != nil {
		log.Errorf("[PipelineHandler] 查询处理状态失败, ProjectID: %s, error: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询处理状态失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": status, "message": "success"})
}

// StatusStream 通过 WebSocket 周期推送项目处理状态，直到连接关闭
// 或运行结束后推送最终快照。
func (h *PipelineHandler) StatusStream(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId 参数为空"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("[PipelineHandler] WebSocket 升级失败, error: %v", err)
		return
	}
	defer conn.Close()
	log.Infof("[PipelineHandler] 状态推送连接建立, ProjectID: %s", projectID)

	ticker := time.NewTicker(statusStreamInterval)
	defer ticker.Stop()

	for range ticker.C {
		status, err := h.controller.GetRunStatus(projectID)
		if err != nil {
			log.Warnf("[PipelineHandler] 查询处理状态失败, ProjectID: %s, error: %v", projectID, err)
			return
		}
		if err := conn.WriteJSON(status); err != nil {
			log.Infof("[PipelineHandler] 状态推送连接断开, ProjectID: %s", projectID)
			return
		}
		if !status.IsProcessing {
			return
		}
	}
}

// Stats 是查询集合行数统计的 Gin 处理函数。
func (h *PipelineHandler) Stats(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId 参数为空"})
		return
	}

	stats, err := h.searchService.Stats(c.Request.Context(), projectID)
	if err != nil {
		log.Errorf("[PipelineHandler] 查询集合统计失败, ProjectID: %s, error: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询集合统计失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": stats, "message": "success"})
}
