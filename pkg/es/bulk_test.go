package es

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"doc-vector-go/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 记录收到的请求并按路径返回预设响应。
type fakeES struct {
	mu        sync.Mutex
	requests  []recordedRequest
	bulkReply string
}

type recordedRequest struct {
	method string
	path   string
	body   string
}

func (f *fakeES) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		f.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			_, _ = w.Write([]byte(f.bulkReply))
		case strings.HasSuffix(r.URL.Path, "/_delete_by_query"):
			_, _ = w.Write([]byte(`{"deleted":3}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
}

func (f *fakeES) requestsTo(suffix string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, req := range f.requests {
		if strings.HasSuffix(req.path, suffix) {
			out = append(out, req)
		}
	}
	return out
}

func newTestStore(t *testing.T, fake *fakeES) (*Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewStore(client, 4), srv
}

func sampleChunks() []model.ChunkDocument {
	return []model.ChunkDocument{
		{VectorID: "d1_chunk_000", DocumentID: "d1", Content: "first", ChunkIndex: 0, TotalChunks: 2},
		{VectorID: "d1_chunk_001", DocumentID: "d1", Content: "second", ChunkIndex: 1, TotalChunks: 2},
	}
}

func TestInsertDocumentChunksSingleBulkRequest(t *testing.T) {
	fake := &fakeES{bulkReply: `{"errors":false,"items":[{"index":{"status":201}},{"index":{"status":201}}]}`}
	store, _ := newTestStore(t, fake)

	err := store.InsertDocumentChunks(context.Background(), "proj_p1", "d1", sampleChunks())
	require.NoError(t, err)

	bulks := fake.requestsTo("/_bulk")
	require.Len(t, bulks, 1, "one document must be exactly one bulk request")
	assert.Contains(t, bulks[0].body, `"d1_chunk_000"`)
	assert.Contains(t, bulks[0].body, `"d1_chunk_001"`)
	assert.Empty(t, fake.requestsTo("/_delete_by_query"))
}

func TestInsertDocumentChunksPartialFailureCleansUp(t *testing.T) {
	fake := &fakeES{bulkReply: `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400,"error":{"type":"mapper_parsing_exception"}}}]}`}
	store, _ := newTestStore(t, fake)

	err := store.InsertDocumentChunks(context.Background(), "proj_p1", "d1", sampleChunks())
	require.Error(t, err)

	// 任一条目失败后，该文档的所有行被按 document_id 清理
	deletes := fake.requestsTo("/_delete_by_query")
	require.Len(t, deletes, 1)
	assert.Contains(t, deletes[0].body, `"document_id":"d1"`)
}

func TestInsertDocumentChunksEmptyBatchIsNoOp(t *testing.T) {
	fake := &fakeES{}
	store, _ := newTestStore(t, fake)

	require.NoError(t, store.InsertDocumentChunks(context.Background(), "proj_p1", "d1", nil))
	assert.Empty(t, fake.requestsTo("/_bulk"))
}
