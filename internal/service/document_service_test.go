package service

import (
	"context"
	"testing"

	"doc-vector-go/internal/model"
	"doc-vector-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReassembleCompleteDocument(t *testing.T) {
	chunks := []model.ChunkDocument{
		{ChunkIndex: 0, ChunkType: model.ChunkTypeCompleteDocument, Content: "the whole document.\nwith its own newlines."},
	}
	assert.Equal(t, "the whole document.\nwith its own newlines.", Reassemble(chunks))
}

func TestReassembleSectionedDocument(t *testing.T) {
	chunks := []model.ChunkDocument{
		{ChunkIndex: 0, ChunkType: model.ChunkTypeIntroduction, Content: "intro"},
		{ChunkIndex: 1, ChunkType: model.ChunkTypeSection, Content: "section one"},
		{ChunkIndex: 2, ChunkType: model.ChunkTypeSectionPart, Content: "part of one"},
		{ChunkIndex: 3, ChunkType: model.ChunkTypeSection, Content: "section two"},
	}
	// introduction/section 之前空行，其余换行衔接
	assert.Equal(t, "intro\n\nsection one\npart of one\n\nsection two", Reassemble(chunks))
}

func TestReassembleContentChunks(t *testing.T) {
	chunks := []model.ChunkDocument{
		{ChunkIndex: 0, ChunkType: model.ChunkTypeContent, Content: "first"},
		{ChunkIndex: 1, ChunkType: model.ChunkTypeContent, Content: "second"},
	}
	assert.Equal(t, "first\nsecond", Reassemble(chunks))
}

// fetchFake 返回预设分块，并记录删除调用。
type fetchFake struct {
	chunks  []model.ChunkDocument
	err     error
	deleted []string
}

func (f *fetchFake) FetchDocumentChunks(ctx context.Context, collection, documentID string) ([]model.ChunkDocument, error) {
	return f.chunks, f.err
}

func (f *fetchFake) DeleteDocumentChunks(ctx context.Context, collection, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type collectionRepoFake struct{ missing bool }

func (f *collectionRepoFake) GetOrCreate(projectID, collectionName string) (*model.CollectionStatus, error) {
	return f.Find(projectID)
}

func (f *collectionRepoFake) Find(projectID string) (*model.CollectionStatus, error) {
	if f.missing {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.CollectionStatus{ProjectID: projectID, CollectionName: "proj_" + projectID}, nil
}

func (f *collectionRepoFake) UpdateStatus(projectID, status, errorMessage string) error { return nil }

func (f *collectionRepoFake) UpdateCounts(projectID string, total, processed, failed int) error {
	return nil
}

type statusRepoFake struct{ resets []string }

func (f *statusRepoFake) GetOrCreate(documentID, projectID string) (*model.DocumentVectorStatus, error) {
	return &model.DocumentVectorStatus{DocumentID: documentID, ProjectID: projectID}, nil
}

func (f *statusRepoFake) Find(documentID, projectID string) (*model.DocumentVectorStatus, error) {
	return &model.DocumentVectorStatus{DocumentID: documentID, ProjectID: projectID}, nil
}

func (f *statusRepoFake) UpdateStatus(documentID, projectID, status, errorMessage string) error {
	return nil
}

func (f *statusRepoFake) MarkCompleted(status *model.DocumentVectorStatus) error { return nil }

func (f *statusRepoFake) ResetToPending(documentID, projectID string) error {
	f.resets = append(f.resets, documentID)
	return nil
}

func (f *statusRepoFake) CountByProject(projectID string) (repository.StatusCounts, error) {
	return repository.StatusCounts{}, nil
}

type textCacheFake struct{ deleted []string }

func (f *textCacheFake) Put(ctx context.Context, documentID, text string) error { return nil }

func (f *textCacheFake) Get(ctx context.Context, documentID string) (string, bool, error) {
	return "", false, nil
}

func (f *textCacheFake) Delete(ctx context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func TestGetFullContent(t *testing.T) {
	fetcher := &fetchFake{chunks: []model.ChunkDocument{
		{ChunkIndex: 0, ChunkType: model.ChunkTypeIntroduction, Content: "intro", FileName: "a.txt", TotalChunks: 2},
		{ChunkIndex: 1, ChunkType: model.ChunkTypeSection, Content: "body", FileName: "a.txt", TotalChunks: 2},
	}}
	svc := NewDocumentService(fetcher, &statusRepoFake{}, &collectionRepoFake{}, &textCacheFake{})

	dto, err := svc.GetFullContent(context.Background(), "p1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", dto.DocumentID)
	assert.Equal(t, "a.txt", dto.FileName)
	assert.Equal(t, 2, dto.TotalChunks)
	assert.Equal(t, "intro\n\nbody", dto.Content)
}

func TestGetFullContentNoChunks(t *testing.T) {
	svc := NewDocumentService(&fetchFake{}, &statusRepoFake{}, &collectionRepoFake{}, &textCacheFake{})

	_, err := svc.GetFullContent(context.Background(), "p1", "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteDocument(t *testing.T) {
	fetcher := &fetchFake{}
	statusRepo := &statusRepoFake{}
	cache := &textCacheFake{}
	svc := NewDocumentService(fetcher, statusRepo, &collectionRepoFake{}, cache)

	require.NoError(t, svc.DeleteDocument(context.Background(), "p1", "d1"))
	assert.Equal(t, []string{"d1"}, fetcher.deleted)
	assert.Equal(t, []string{"d1"}, statusRepo.resets)
	assert.Equal(t, []string{"d1"}, cache.deleted)
}
