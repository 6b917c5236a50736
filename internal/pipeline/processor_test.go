package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"doc-vector-go/internal/config"
	"doc-vector-go/internal/enrich"
	"doc-vector-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTextCache 以内存 map 实现提取文本缓存。
type fakeTextCache struct {
	mu    sync.Mutex
	texts map[string]string
}

func newFakeTextCache() *fakeTextCache {
	return &fakeTextCache{texts: make(map[string]string)}
}

func (f *fakeTextCache) Put(ctx context.Context, documentID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[documentID] = text
	return nil
}

func (f *fakeTextCache) Get(ctx context.Context, documentID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.texts[documentID]
	return text, ok, nil
}

func (f *fakeTextCache) Delete(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.texts, documentID)
	return nil
}

type fakeEnricher struct{}

func (f *fakeEnricher) EnrichChunk(ctx context.Context, content string, meta enrich.ChunkContext) enrich.Result {
	return enrich.Result{
		Summary: "a summary", SummaryModel: "fake-model", SummaryGenerated: true,
		Topic: "A Topic", TopicModel: "fake-model", TopicGenerated: true,
	}
}

// fakeEmbedder 可配置为在调用期间触发取消（模拟停止请求落在 HTTP 调用进行中）。
type fakeEmbedder struct {
	cancelDuringCall context.CancelFunc
	err              error
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.cancelDuringCall != nil {
		f.cancelDuringCall()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// capturingStore 记录写入的行。
type capturingStore struct {
	fakeStore
	mu   sync.Mutex
	rows []model.ChunkDocument
}

func (c *capturingStore) InsertDocumentChunks(ctx context.Context, collection, documentID string, chunks []model.ChunkDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, chunks...)
	return nil
}

// cancellingStore 在写入调用期间触发取消并返回客户端错误。
type cancellingStore struct {
	fakeStore
	cancel context.CancelFunc
}

func (c *cancellingStore) InsertDocumentChunks(ctx context.Context, collection, documentID string, chunks []model.ChunkDocument) error {
	c.cancel()
	return ctx.Err()
}

func newTestProcessor(embedder *fakeEmbedder, store VectorStore, statusRepo *fakeStatusRepo, cache *fakeTextCache) *Processor {
	return NewProcessor(
		nil, // 文本走缓存，不触达 Tika
		embedder,
		&fakeEnricher{},
		store,
		cache,
		statusRepo,
		config.MinIOConfig{BucketName: "documents"},
		config.EmbeddingConfig{Model: "fake-embed", Dimensions: 3},
		config.ChunkingConfig{MaxChunkSize: 35000},
	)
}

func testDoc() *model.Document {
	return &model.Document{DocumentID: "d1", ProjectID: "p1", FileName: "Legal_Agreement_2024.txt"}
}

func TestProcessHappyPath(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	cache := newFakeTextCache()
	require.NoError(t, cache.Put(context.Background(), "d1", "short contract text. nothing else."))
	store := &capturingStore{}
	p := newTestProcessor(&fakeEmbedder{}, store, statusRepo, cache)

	require.NoError(t, p.Process(context.Background(), testDoc(), "proj_p1"))

	assert.Equal(t, model.DocStatusCompleted, statusRepo.statusOf("d1"))
	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "d1_chunk_000", row.VectorID)
	assert.Equal(t, model.ChunkTypeCompleteDocument, row.ChunkType)
	assert.Equal(t, "legal", row.Category)
	assert.True(t, row.HasEmbedding)
	assert.Equal(t, 1, row.TotalChunks)
	assert.Equal(t, "fake-embed", row.ModelVersion)
}

func TestProcessCancelDuringEmbeddingRevertsCleanly(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	cache := newFakeTextCache()
	require.NoError(t, cache.Put(context.Background(), "d1", "some contract text. more text."))
	store := &capturingStore{}

	// 取消请求落在向量化调用进行中：客户端返回 context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newTestProcessor(&fakeEmbedder{cancelDuringCall: cancel}, store, statusRepo, cache)

	err := p.Process(ctx, testDoc(), "proj_p1")
	require.ErrorIs(t, err, ErrCancelled)

	// 取消不是失败：文档不得被标记 failed，也不得写入任何行
	assert.NotEqual(t, model.DocStatusFailed, statusRepo.statusOf("d1"))
	assert.Empty(t, store.rows)
}

func TestProcessCancelDuringInsertRevertsCleanly(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	cache := newFakeTextCache()
	require.NoError(t, cache.Put(context.Background(), "d1", "some contract text. more text."))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{cancel: cancel}
	p := newTestProcessor(&fakeEmbedder{}, store, statusRepo, cache)

	err := p.Process(ctx, testDoc(), "proj_p1")
	require.ErrorIs(t, err, ErrCancelled)
	assert.NotEqual(t, model.DocStatusFailed, statusRepo.statusOf("d1"))
}

func TestProcessEmbeddingFailureMarksDocumentFailed(t *testing.T) {
	statusRepo := newFakeStatusRepo()
	cache := newFakeTextCache()
	require.NoError(t, cache.Put(context.Background(), "d1", "some contract text."))
	store := &capturingStore{}
	p := newTestProcessor(&fakeEmbedder{err: errors.New("model down")}, store, statusRepo, cache)

	err := p.Process(context.Background(), testDoc(), "proj_p1")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Equal(t, model.DocStatusFailed, statusRepo.statusOf("d1"))
	assert.Empty(t, store.rows)
}

func TestProcessCancelAfterNDocumentsLeavesRemainderPending(t *testing.T) {
	// 取消落在第二个文档的向量化期间：第一个 completed，第二个回退
	// pending，第三个从未被触碰
	statusRepo := newFakeStatusRepo()
	collectionRepo := &fakeCollectionRepo{}
	store := &fakeStore{}
	cache := newFakeTextCache()
	docs := []*model.Document{
		{DocumentID: "d1", ProjectID: "p1", FileName: "a.txt"},
		{DocumentID: "d2", ProjectID: "p1", FileName: "b.txt"},
		{DocumentID: "d3", ProjectID: "p1", FileName: "c.txt"},
	}
	for _, d := range docs {
		require.NoError(t, cache.Put(context.Background(), d.DocumentID, "text for "+d.DocumentID+"."))
	}

	var c *Controller
	embedder := &switchingEmbedder{cancelOnDoc: "d2"}
	p := NewProcessor(nil, embedder, &fakeEnricher{}, store, cache, statusRepo,
		config.MinIOConfig{}, config.EmbeddingConfig{Model: "fake-embed"}, config.ChunkingConfig{MaxChunkSize: 35000})
	c = newTestController(docs, p, store, statusRepo, collectionRepo, true)
	embedder.stop = func() { _ = c.StopRun("p1") }

	require.NoError(t, c.StartRun("p1"))
	waitFor(t, func() bool { return collectionRepo.status() == model.CollectionStatusPending })

	assert.Equal(t, model.DocStatusCompleted, statusRepo.statusOf("d1"))
	assert.Equal(t, model.DocStatusPending, statusRepo.statusOf("d2"))
	assert.Empty(t, statusRepo.statusOf("d3"))
	assert.Contains(t, store.deletedDocs(), "d2")
}

// switchingEmbedder 处理到指定文档的内容时发出停止请求。
type switchingEmbedder struct {
	cancelOnDoc string
	stop        func()
}

func (s *switchingEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.stop != nil && text == "text for "+s.cancelOnDoc+"." {
		s.stop()
		// 停止请求取消运行的 context，调用以客户端错误返回
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []float32{0.1, 0.2, 0.3}, nil
}
