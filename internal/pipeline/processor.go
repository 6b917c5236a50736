package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"doc-vector-go/internal/chunker"
	"doc-vector-go/internal/config"
	"doc-vector-go/internal/enrich"
	"doc-vector-go/internal/hierarchy"
	"doc-vector-go/internal/model"
	"doc-vector-go/internal/repository"
	"doc-vector-go/pkg/embedding"
	"doc-vector-go/pkg/log"
	"doc-vector-go/pkg/storage"
	"doc-vector-go/pkg/tika"

	"github.com/google/uuid"
)

// VectorStore 是管道对批量向量存储的依赖面。由 *es.Store 实现。
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string) error
	InsertDocumentChunks(ctx context.Context, collection, documentID string, chunks []model.ChunkDocument) error
	DeleteDocumentChunks(ctx context.Context, collection, documentID string) error
}

// ChunkEnricher 是管道对富化适配器的依赖面。由 *enrich.Enricher 实现。
type ChunkEnricher interface {
	EnrichChunk(ctx context.Context, content string, meta enrich.ChunkContext) enrich.Result
}

// DocumentProcessor 是控制器对单文档处理的依赖面。
type DocumentProcessor interface {
	Process(ctx context.Context, doc *model.Document, collectionName string) error
}

// Processor 封装了单个文档向量化处理的所有依赖和逻辑。
type Processor struct {
	tikaClient      *tika.Client
	embeddingClient embedding.Client
	enricher        ChunkEnricher
	store           VectorStore
	textCache       repository.TextCacheRepository
	statusRepo      repository.VectorStatusRepository
	minioCfg        config.MinIOConfig
	embeddingCfg    config.EmbeddingConfig
	chunkingCfg     config.ChunkingConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	enricher ChunkEnricher,
	store VectorStore,
	textCache repository.TextCacheRepository,
	statusRepo repository.VectorStatusRepository,
	minioCfg config.MinIOConfig,
	embeddingCfg config.EmbeddingConfig,
	chunkingCfg config.ChunkingConfig,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		enricher:        enricher,
		store:           store,
		textCache:       textCache,
		statusRepo:      statusRepo,
		minioCfg:        minioCfg,
		embeddingCfg:    embeddingCfg,
		chunkingCfg:     chunkingCfg,
	}
}

// Process 处理单个文档：取文本 → 层级分类 → 结构分析 → 分块 →
// 逐块富化与向量化 → 单次原子批量写入。取消检查点位于向量化循环
// 之前、每个分块之间以及写入之前。
func (p *Processor) Process(ctx context.Context, doc *model.Document, collectionName string) error {
	start := time.Now()
	log.Infof("[Processor] 开始处理文档, DocumentID: %s, FileName: %s", doc.DocumentID, doc.FileName)

	if _, err := p.statusRepo.GetOrCreate(doc.DocumentID, doc.ProjectID); err != nil {
		return fmt.Errorf("创建向量化状态记录失败: %w", err)
	}
	if err := p.statusRepo.UpdateStatus(doc.DocumentID, doc.ProjectID, model.DocStatusProcessing, ""); err != nil {
		return fmt.Errorf("更新向量化状态失败: %w", err)
	}

	// 1. 获取提取文本（缓存优先，未命中则从 MinIO 取原始对象重新提取）
	log.Infof("[Processor] 步骤1: 获取提取文本, DocumentID: %s", doc.DocumentID)
	text, err := p.extractedText(ctx, doc)
	if err != nil {
		// 存入描述性占位记录而非索引噪声，文档标记失败，继续下一文档
		p.storePlaceholder(ctx, doc, collectionName, err)
		_ = p.statusRepo.UpdateStatus(doc.DocumentID, doc.ProjectID, model.DocStatusFailed, err.Error())
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	log.Infof("[Processor] 步骤1: 文本获取成功, 长度: %d 字符", utf8.RuneCountInString(text))

	// 2. 层级分类与结构分析
	info := hierarchy.Classify(doc.FileName)
	cm := chunker.Analyze(text, p.chunkingCfg.MaxChunkSize)
	log.Infof("[Processor] 步骤2: 分类完成, category: %s, structure: %s, headings: %d",
		info.Category, cm.Structure, len(cm.Headings))

	// 3. 分块切分（两阶段构造，finalize 后 total 不再变化）
	chunks := chunker.Split(text, cm, p.chunkingCfg.MaxChunkSize)
	if len(chunks) == 0 {
		err := errors.New("文本为空，未产生任何分块")
		_ = p.statusRepo.UpdateStatus(doc.DocumentID, doc.ProjectID, model.DocStatusFailed, err.Error())
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	log.Infof("[Processor] 步骤3: 分块完成, 共 %d 个分块", len(chunks))

	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	// 4. 逐块富化与向量化
	rows := make([]model.ChunkDocument, 0, len(chunks))
	var summaryGenerated, topicGenerated bool
	generatorModel := ""
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}

		enrichment := p.enricher.EnrichChunk(ctx, chunk.Content, enrich.ChunkContext{
			FileName:     doc.FileName,
			SectionTitle: chunk.SectionTitle,
			Category:     info.Category,
		})
		summaryGenerated = summaryGenerated || enrichment.SummaryGenerated
		topicGenerated = topicGenerated || enrichment.TopicGenerated
		if generatorModel == "" {
			generatorModel = enrichment.SummaryModel
		}

		vector, err := p.embeddingClient.CreateEmbedding(ctx, chunk.Content)
		if err != nil {
			// 取消请求落在向量化调用进行中时以客户端错误现身，
			// 仍按取消处理：文档回退 pending，不标记失败
			if ctx.Err() != nil {
				return ErrCancelled
			}
			// 任一分块向量化失败即中止整批，保证不出现部分插入
			_ = p.statusRepo.UpdateStatus(doc.DocumentID, doc.ProjectID, model.DocStatusFailed, err.Error())
			return fmt.Errorf("%w: 分块 %d: %v", ErrEmbeddingFailed, chunk.Index, err)
		}

		rows = append(rows, p.buildRow(doc, info, chunk, enrichment, vector, start))
		log.Infof("[Processor] 分块 %d/%d 富化与向量化完成", i+1, len(chunks))
	}

	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}

	// 5. 原子批量写入
	log.Infof("[Processor] 步骤4: 原子批量写入 %d 个分块到集合 '%s'", len(rows), collectionName)
	if err := p.store.InsertDocumentChunks(ctx, collectionName, doc.DocumentID, rows); err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		_ = p.statusRepo.UpdateStatus(doc.DocumentID, doc.ProjectID, model.DocStatusFailed, err.Error())
		return fmt.Errorf("%w: %v", ErrInsertionFailed, err)
	}

	// 6. 写入完成状态
	status, err := p.statusRepo.Find(doc.DocumentID, doc.ProjectID)
	if err != nil {
		return fmt.Errorf("读取向量化状态失败: %w", err)
	}
	status.ContentLength = utf8.RuneCountInString(text)
	status.ProcessingTimeMs = time.Since(start).Milliseconds()
	status.SummaryGenerated = summaryGenerated
	status.TopicGenerated = topicGenerated
	status.GeneratorModel = generatorModel
	if err := p.statusRepo.MarkCompleted(status); err != nil {
		return fmt.Errorf("写入完成状态失败: %w", err)
	}

	log.Infof("[Processor] 文档处理成功, DocumentID: %s, 分块数: %d, 耗时: %s",
		doc.DocumentID, len(rows), time.Since(start))
	return nil
}

// extractedText 获取文档的提取文本：缓存命中直接返回；否则从 MinIO
// 下载原始对象并调用 Tika 提取，成功后写回缓存。
func (p *Processor) extractedText(ctx context.Context, doc *model.Document) (string, error) {
	if text, ok, err := p.textCache.Get(ctx, doc.DocumentID); err == nil && ok && text != "" {
		return text, nil
	} else if err != nil {
		log.Warnf("[Processor] 读取文本缓存失败, DocumentID: %s, err: %v", doc.DocumentID, err)
	}

	if doc.ObjectKey == "" {
		return "", errors.New("无提取文本缓存且缺少原始对象 key")
	}

	buf, err := storage.FetchObject(ctx, p.minioCfg.BucketName, doc.ObjectKey)
	if err != nil {
		return "", err
	}
	if buf.Len() == 0 {
		return "", errors.New("原始对象内容为空")
	}

	text, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), doc.FileName)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("提取的文本内容为空")
	}

	if err := p.textCache.Put(ctx, doc.DocumentID, text); err != nil {
		log.Warnf("[Processor] 写入文本缓存失败, DocumentID: %s, err: %v", doc.DocumentID, err)
	}
	return text, nil
}

// storePlaceholder 为提取失败的文档写入单条无向量的占位记录。
func (p *Processor) storePlaceholder(ctx context.Context, doc *model.Document, collectionName string, cause error) {
	info := hierarchy.Classify(doc.FileName)
	row := model.ChunkDocument{
		VectorID:          fmt.Sprintf("%s_chunk_000", doc.DocumentID),
		DocumentID:        doc.DocumentID,
		Content:           fmt.Sprintf("[extraction failed] %s", doc.FileName),
		FileName:          doc.FileName,
		Category:          info.Category,
		Subcategory:       info.Subcategory,
		DocumentType:      info.DocumentType,
		VirtualPath:       info.VirtualPath,
		HierarchicalPath:  hierarchy.ChunkPath(info.VirtualPath, 0),
		HierarchyLevel:    info.HierarchyLevel,
		OrganizationLevel: info.OrganizationLevel,
		ChunkID:           uuid.NewString(),
		ChunkIndex:        0,
		TotalChunks:       1,
		ChunkType:         model.ChunkTypeContent,
		HasEmbedding:      false,
		ErrorMessage:      cause.Error(),
	}
	if err := p.store.InsertDocumentChunks(ctx, collectionName, doc.DocumentID, []model.ChunkDocument{row}); err != nil {
		log.Warnf("[Processor] 写入占位记录失败, DocumentID: %s, err: %v", doc.DocumentID, err)
	}
}

// buildRow 将分块、层级信息、富化产出与向量组装为集合行。
func (p *Processor) buildRow(
	doc *model.Document,
	info model.HierarchyInfo,
	chunk chunker.Chunk,
	enrichment enrich.Result,
	vector []float32,
	start time.Time,
) model.ChunkDocument {
	content := chunk.Content
	return model.ChunkDocument{
		VectorID:          fmt.Sprintf("%s_chunk_%03d", doc.DocumentID, chunk.Index),
		DocumentID:        doc.DocumentID,
		Vector:            vector,
		Content:           content,
		FileName:          doc.FileName,
		Category:          info.Category,
		Subcategory:       info.Subcategory,
		DocumentType:      info.DocumentType,
		VirtualPath:       info.VirtualPath,
		HierarchicalPath:  hierarchy.ChunkPath(info.VirtualPath, chunk.Index),
		HierarchyLevel:    info.HierarchyLevel,
		OrganizationLevel: info.OrganizationLevel,
		ChunkID:           uuid.NewString(),
		ChunkIndex:        chunk.Index,
		TotalChunks:       chunk.TotalChunks,
		ChunkType:         chunk.Type,
		SectionTitle:      chunk.SectionTitle,
		IsComplete:        chunk.Type == model.ChunkTypeCompleteDocument,
		Truncated:         chunk.Truncated,
		WordCount:         wordCount(content),
		ContentLen:        utf8.RuneCountInString(content),
		Summary:           enrichment.Summary,
		SummaryWordCount:  enrichment.SummaryWordCount,
		SummaryModel:      enrichment.SummaryModel,
		Topic:             enrichment.Topic,
		TopicWordCount:    enrichment.TopicWordCount,
		TopicModel:        enrichment.TopicModel,
		HasEmbedding:      true,
		ModelVersion:      p.embeddingCfg.Model,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			inWord = false
		} else if !inWord {
			inWord = true
			n++
		}
	}
	return n
}
