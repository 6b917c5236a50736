package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"doc-vector-go/internal/model"
	"doc-vector-go/internal/repository"
	"doc-vector-go/pkg/es"
	"doc-vector-go/pkg/log"
)

// runState 是一个项目的活动运行。cancel 触发协作式取消，
// worker 在检查点观察到取消后自行清理并从注册表摘除。
type runState struct {
	cancel     context.CancelFunc
	currentDoc string
	startedAt  time.Time
}

// Controller 管理每个项目至多一个的后台处理运行。
type Controller struct {
	mu   sync.Mutex
	runs map[string]*runState

	processor      DocumentProcessor
	store          VectorStore
	docRepo        repository.DocumentRepository
	projectRepo    repository.ProjectRepository
	statusRepo     repository.VectorStatusRepository
	collectionRepo repository.CollectionRepository
	credentialsOK  bool
}

// NewController 创建一个新的 Controller 实例。credentialsOK 为模型服务
// 凭证前置条件（embedding 与 LLM 的 API key 均已配置）。
func NewController(
	processor DocumentProcessor,
	store VectorStore,
	docRepo repository.DocumentRepository,
	projectRepo repository.ProjectRepository,
	statusRepo repository.VectorStatusRepository,
	collectionRepo repository.CollectionRepository,
	credentialsOK bool,
) *Controller {
	return &Controller{
		runs:           make(map[string]*runState),
		processor:      processor,
		store:          store,
		docRepo:        docRepo,
		projectRepo:    projectRepo,
		statusRepo:     statusRepo,
		collectionRepo: collectionRepo,
		credentialsOK:  credentialsOK,
	}
}

// StartRun 为项目启动一轮后台处理。同一项目已有活动运行时返回
// ErrRunConflict，请求不排队。启动本身立即返回，处理在后台进行。
func (c *Controller) StartRun(projectID string) error {
	c.mu.Lock()
	if _, active := c.runs[projectID]; active {
		c.mu.Unlock()
		return ErrRunConflict
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.runs[projectID] = &runState{cancel: cancel, startedAt: time.Now()}
	c.mu.Unlock()

	log.Infof("[Controller] 启动项目处理运行, ProjectID: %s", projectID)
	go c.runProject(ctx, projectID)
	return nil
}

// StopRun 请求取消项目的活动运行。没有活动运行时返回 ErrRunNotFound。
// 取消是协作式的：正在进行的原子写入不会被打断。
func (c *Controller) StopRun(projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, active := c.runs[projectID]
	if !active {
		return ErrRunNotFound
	}
	log.Infof("[Controller] 请求取消项目处理运行, ProjectID: %s", projectID)
	run.cancel()
	return nil
}

// GetRunStatus 返回项目的运行状态快照：集合状态、各状态文档计数、
// 当前正在处理的文档。
func (c *Controller) GetRunStatus(projectID string) (model.RunStatusDTO, error) {
	var dto model.RunStatusDTO
	dto.ProjectID = projectID

	cs, err := c.collectionRepo.Find(projectID)
	if err != nil {
		dto.CollectionStatus = model.CollectionStatusNotCreated
	} else {
		dto.CollectionStatus = cs.Status
		dto.CollectionName = cs.CollectionName
		dto.ErrorMessage = cs.ErrorMessage
	}

	counts, err := c.statusRepo.CountByProject(projectID)
	if err != nil {
		return dto, err
	}
	dto.TotalDocuments = counts.Total
	dto.PendingDocuments = counts.Pending
	dto.ProcessedDocuments = counts.Completed
	dto.FailedDocuments = counts.Failed

	c.mu.Lock()
	if run, active := c.runs[projectID]; active {
		dto.IsProcessing = true
		dto.CurrentDocumentID = run.currentDoc
	}
	c.mu.Unlock()

	return dto, nil
}

// ActiveRuns 返回当前有活动运行的项目 ID 列表。
func (c *Controller) ActiveRuns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.runs))
	for id := range c.runs {
		ids = append(ids, id)
	}
	return ids
}

// setCurrentDoc 更新运行的当前文档标记，供状态查询展示。
func (c *Controller) setCurrentDoc(projectID, documentID string) {
	c.mu.Lock()
	if run, active := c.runs[projectID]; active {
		run.currentDoc = documentID
	}
	c.mu.Unlock()
}

// finishRun 将运行从注册表摘除并释放其 context。
func (c *Controller) finishRun(projectID string) {
	c.mu.Lock()
	if run, active := c.runs[projectID]; active {
		run.cancel()
		delete(c.runs, projectID)
	}
	c.mu.Unlock()
}

// runProject 是一轮运行的 worker：确保集合存在，按上传顺序逐个
// 处理就绪文档，最后根据聚合结果回写集合状态。
func (c *Controller) runProject(ctx context.Context, projectID string) {
	defer c.finishRun(projectID)

	project, err := c.projectRepo.FindByProjectID(projectID)
	if err != nil {
		log.Errorf("[Controller] 项目不存在, ProjectID: %s, err: %v", projectID, err)
		return
	}

	collectionName := es.CollectionName(projectID, project.Name)
	if _, err := c.collectionRepo.GetOrCreate(projectID, collectionName); err != nil {
		log.Errorf("[Controller] 创建集合状态记录失败, ProjectID: %s, err: %v", projectID, err)
		return
	}

	// 运行级前置条件：模型服务凭证缺失时整轮立即失败，不处理任何文档
	if !c.credentialsOK {
		log.Errorf("[Controller] %v, ProjectID: %s", ErrConfiguration, projectID)
		_ = c.collectionRepo.UpdateStatus(projectID, model.CollectionStatusFailed, ErrConfiguration.Error())
		return
	}

	if err := c.store.EnsureCollection(ctx, collectionName); err != nil {
		log.Errorf("[Controller] 集合不可用, ProjectID: %s, err: %v", projectID, err)
		_ = c.collectionRepo.UpdateStatus(projectID, model.CollectionStatusFailed, err.Error())
		return
	}

	docs, err := c.docRepo.FindReadyByProject(projectID)
	if err != nil {
		log.Errorf("[Controller] 查询就绪文档失败, ProjectID: %s, err: %v", projectID, err)
		_ = c.collectionRepo.UpdateStatus(projectID, model.CollectionStatusFailed, err.Error())
		return
	}
	log.Infof("[Controller] 项目 %s 共 %d 个就绪文档", projectID, len(docs))

	_ = c.collectionRepo.UpdateStatus(projectID, model.CollectionStatusProcessing, "")
	c.refreshCounts(projectID)

	cancelled := false
	for i, doc := range docs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		c.setCurrentDoc(projectID, doc.DocumentID)
		log.Infof("[Controller] 处理文档 %d/%d, DocumentID: %s", i+1, len(docs), doc.DocumentID)

		err := c.processor.Process(ctx, doc, collectionName)
		switch {
		case err == nil:
			// 正常完成
		case errors.Is(err, ErrCancelled):
			// 被取消的文档回退 pending，已写入的分块清理掉
			log.Infof("[Controller] 文档处理被取消, DocumentID: %s", doc.DocumentID)
			_ = c.statusRepo.ResetToPending(doc.DocumentID, projectID)
			if derr := c.store.DeleteDocumentChunks(context.Background(), collectionName, doc.DocumentID); derr != nil {
				log.Warnf("[Controller] 清理取消文档的分块失败, DocumentID: %s, err: %v", doc.DocumentID, derr)
			}
			cancelled = true
		default:
			// 单文档失败不终止运行，Process 已写入失败状态
			log.Errorf("[Controller] 文档处理失败, DocumentID: %s, err: %v", doc.DocumentID, err)
		}

		c.setCurrentDoc(projectID, "")
		c.refreshCounts(projectID)
		if cancelled {
			break
		}
	}

	c.finalizeCollectionStatus(projectID, cancelled)
	log.Infof("[Controller] 项目处理运行结束, ProjectID: %s, cancelled: %v", projectID, cancelled)
}

// refreshCounts 将文档状态聚合回写到集合状态记录。
func (c *Controller) refreshCounts(projectID string) {
	counts, err := c.statusRepo.CountByProject(projectID)
	if err != nil {
		log.Warnf("[Controller] 统计文档状态失败, ProjectID: %s, err: %v", projectID, err)
		return
	}
	if err := c.collectionRepo.UpdateCounts(projectID, counts.Total, counts.Completed, counts.Failed); err != nil {
		log.Warnf("[Controller] 更新集合计数失败, ProjectID: %s, err: %v", projectID, err)
	}
}

// finalizeCollectionStatus 依据聚合结果回写运行结束后的集合状态：
// 全部完成为 completed；有尝试且全部失败为 failed；取消后还有剩余
// 文档为 pending；其余混合情形为 processing。
func (c *Controller) finalizeCollectionStatus(projectID string, cancelled bool) {
	counts, err := c.statusRepo.CountByProject(projectID)
	if err != nil {
		log.Warnf("[Controller] 统计文档状态失败, ProjectID: %s, err: %v", projectID, err)
		return
	}

	var status string
	switch {
	case cancelled && counts.Pending > 0:
		status = model.CollectionStatusPending
	case counts.Total > 0 && counts.Completed == counts.Total:
		status = model.CollectionStatusCompleted
	case counts.Total > 0 && counts.Failed == counts.Total:
		status = model.CollectionStatusFailed
	case counts.Completed > 0 || counts.Failed > 0:
		status = model.CollectionStatusProcessing
	default:
		status = model.CollectionStatusPending
	}

	if err := c.collectionRepo.UpdateStatus(projectID, status, ""); err != nil {
		log.Warnf("[Controller] 回写集合状态失败, ProjectID: %s, err: %v", projectID, err)
	}
	if err := c.collectionRepo.UpdateCounts(projectID, counts.Total, counts.Completed, counts.Failed); err != nil {
		log.Warnf("[Controller] 更新集合计数失败, ProjectID: %s, err: %v", projectID, err)
	}
}
