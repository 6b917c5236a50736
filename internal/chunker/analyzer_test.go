package chunker

import (
	"testing"

	"doc-vector-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeEmptyText(t *testing.T) {
	cm := Analyze("", 1000)

	assert.Equal(t, 0, cm.TotalLength)
	assert.Equal(t, 0, cm.EstimatedChunks)
	assert.Equal(t, model.StructureLinear, cm.Structure)
	assert.Empty(t, cm.Headings)
}

func TestAnalyzeLinearText(t *testing.T) {
	text := "just some prose without any headings.\nmore prose follows here."
	cm := Analyze(text, 1000)

	assert.Equal(t, model.StructureLinear, cm.Structure)
	assert.Empty(t, cm.Headings)
	assert.Equal(t, len(text), cm.TotalLength)
	assert.Equal(t, 1, cm.EstimatedChunks)
}

func TestAnalyzeDetectsHeadingStyles(t *testing.T) {
	text := "1. Introduction\nbody\n" +
		"## Background\nbody\n" +
		"Chapter 3\nbody\n" +
		"IV. Discussion\nbody\n" +
		"FINAL REMARKS\nbody\n"
	cm := Analyze(text, 1000)

	require.Equal(t, model.StructureSectioned, cm.Structure)
	require.Len(t, cm.Headings, 5)
	assert.Equal(t, "1. Introduction", cm.Headings[0].Title)
	assert.Equal(t, "## Background", cm.Headings[1].Title)
	assert.Equal(t, "Chapter 3", cm.Headings[2].Title)
	assert.Equal(t, "IV. Discussion", cm.Headings[3].Title)
	assert.Equal(t, "FINAL REMARKS", cm.Headings[4].Title)
}

func TestAnalyzeHeadingCharPositions(t *testing.T) {
	text := "intro text\n1. First\nbody\n2.1 Second\nbody"
	cm := Analyze(text, 1000)

	require.Len(t, cm.Headings, 2)
	assert.Equal(t, 1, cm.Headings[0].LineIndex)
	assert.Equal(t, 11, cm.Headings[0].CharPos)
	assert.Equal(t, "1. First", text[cm.Headings[0].CharPos:cm.Headings[0].CharPos+8])
	assert.Equal(t, "2.1 Second", cm.Headings[1].Title)
}

func TestAnalyzeRejectsProseStartingWithYear(t *testing.T) {
	// 以年份开头的普通句子不是编号标题
	cm := Analyze("2024 was a year of change for the project.\nmore text", 1000)
	assert.Empty(t, cm.Headings)
}

func TestAnalyzeRejectsOverlongHeadingLine(t *testing.T) {
	long := "1. "
	for len(long) < maxHeadingLen+10 {
		long += "word "
	}
	cm := Analyze(long+"\nbody", 1000)
	assert.Empty(t, cm.Headings)
}

func TestAnalyzeEstimatedChunks(t *testing.T) {
	text := make([]byte, 2500)
	for i := range text {
		text[i] = 'a'
	}
	cm := Analyze(string(text), 1000)
	assert.Equal(t, 3, cm.EstimatedChunks)
}
