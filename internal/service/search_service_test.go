package service

import (
	"context"
	"errors"
	"testing"

	"doc-vector-go/internal/model"
	"doc-vector-go/pkg/es"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searcherFake struct {
	hits []es.ScoredChunk
	err  error
}

func (f *searcherFake) Search(ctx context.Context, collection string, vector []float32, filters map[string]interface{}, limit int) ([]es.ScoredChunk, error) {
	return f.hits, f.err
}

func (f *searcherFake) Stats(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.hits)), nil
}

type embedderFake struct{ err error }

func (f *embedderFake) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func TestSearchEnrichesResults(t *testing.T) {
	searcher := &searcherFake{hits: []es.ScoredChunk{
		{
			Score: 0.92,
			Chunk: model.ChunkDocument{
				DocumentID:       "d1",
				FileName:         "Legal_Agreement_2024.txt",
				VirtualPath:      "documents/legal/contracts/2024/Legal_Agreement_2024.txt",
				HierarchicalPath: "documents/legal/contracts/2024/Legal_Agreement_2024.txt#chunk_002",
				ChunkIndex:       2,
				TotalChunks:      7,
				ChunkType:        model.ChunkTypeSection,
				ContentLen:       1500,
				Category:         "legal",
				Subcategory:      "contracts",
			},
		},
	}}
	svc := NewSearchService(searcher, &embedderFake{}, &collectionRepoFake{})

	resp := svc.Search(context.Background(), "p1", "termination clause", nil, 10)

	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Results, 1)
	r := resp.Results[0]
	assert.Equal(t, 0.92, r.Score)
	assert.Equal(t, []string{"documents", "legal", "contracts", "2024", "Legal_Agreement_2024.txt"}, r.Breadcrumbs)
	assert.Equal(t, "3 of 7", r.Position)
	assert.True(t, r.HasPrevious)
	assert.True(t, r.HasNext)
	assert.Equal(t, "high", r.Quality)
}

func TestSearchNeverErrors(t *testing.T) {
	cases := []struct {
		name string
		svc  SearchService
	}{
		{"collection missing", NewSearchService(&searcherFake{}, &embedderFake{}, &collectionRepoFake{missing: true})},
		{"embedding fails", NewSearchService(&searcherFake{}, &embedderFake{err: errors.New("down")}, &collectionRepoFake{})},
		{"search fails", NewSearchService(&searcherFake{err: errors.New("down")}, &embedderFake{}, &collectionRepoFake{})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := tc.svc.Search(context.Background(), "p1", "q", nil, 10)
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, resp.Results)
		})
	}
}

func TestResultNavigationAtEdges(t *testing.T) {
	first := enrichResult(es.ScoredChunk{Chunk: model.ChunkDocument{ChunkIndex: 0, TotalChunks: 3}})
	assert.False(t, first.HasPrevious)
	assert.True(t, first.HasNext)
	assert.Equal(t, "1 of 3", first.Position)

	last := enrichResult(es.ScoredChunk{Chunk: model.ChunkDocument{ChunkIndex: 2, TotalChunks: 3}})
	assert.True(t, last.HasPrevious)
	assert.False(t, last.HasNext)
	assert.Equal(t, "3 of 3", last.Position)
}

func TestBreadcrumbsStripChunkFragment(t *testing.T) {
	assert.Equal(t, []string{"documents", "legal", "contracts", "2024", "a.txt"},
		breadcrumbs("documents/legal/contracts/2024/a.txt#chunk_005"))
	assert.Equal(t, []string{"documents", "general"}, breadcrumbs("documents/general"))
	assert.Equal(t, []string{}, breadcrumbs(""))
	assert.Equal(t, []string{}, breadcrumbs("#chunk_000"))
}

func TestQualityBands(t *testing.T) {
	assert.Equal(t, "high", quality(1000))
	assert.Equal(t, "medium", quality(999))
	assert.Equal(t, "medium", quality(300))
	assert.Equal(t, "low", quality(299))
	assert.Equal(t, "low", quality(0))
}
