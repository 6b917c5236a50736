package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"doc-vector-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM 按预设应答或错误响应每次调用。
type fakeLLM struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) Model() string { return "fake-model" }

func TestEnrichChunkSuccess(t *testing.T) {
	client := &fakeLLM{replies: []string{"A concise summary.", "Contract Terms"}}
	e := NewEnricher(client)

	res := e.EnrichChunk(context.Background(), "some chunk content.", ChunkContext{FileName: "a.txt"})

	assert.True(t, res.SummaryGenerated)
	assert.Equal(t, "A concise summary.", res.Summary)
	assert.Equal(t, "fake-model", res.SummaryModel)
	assert.Equal(t, 3, res.SummaryWordCount)
	assert.True(t, res.TopicGenerated)
	assert.Equal(t, "Contract Terms", res.Topic)
	assert.Equal(t, "fake-model", res.TopicModel)
	assert.Equal(t, 2, res.TopicWordCount)
	assert.Equal(t, 2, client.calls)
}

func TestEnrichChunkFallsBackOnError(t *testing.T) {
	client := &fakeLLM{err: errors.New("model unavailable")}
	e := NewEnricher(client)

	content := "First sentence here. Second sentence here. Third one. Fourth never appears."
	res := e.EnrichChunk(context.Background(), content, ChunkContext{
		FileName:     "a.txt",
		SectionTitle: "1. Overview",
		Category:     "legal",
	})

	// 摘要降级：取开头句子
	assert.False(t, res.SummaryGenerated)
	assert.Equal(t, FallbackModel, res.SummaryModel)
	assert.Contains(t, res.Summary, "First sentence here.")
	assert.NotContains(t, res.Summary, "Fourth")

	// 主题降级：节标题加正文起始词，词数不超上限
	assert.False(t, res.TopicGenerated)
	assert.Equal(t, FallbackModel, res.TopicModel)
	assert.NotEmpty(t, res.Topic)
	assert.LessOrEqual(t, len(strings.Fields(res.Topic)), maxTopicWords)
}

func TestClampSummaryLines(t *testing.T) {
	in := "l1\nl2\nl3\nl4\nl5\nl6\nl7"
	out := clampSummary(in)
	assert.Equal(t, "l1\nl2\nl3\nl4\nl5", out)
}

func TestClampSummaryWords(t *testing.T) {
	words := make([]string, maxSummaryWords+50)
	for i := range words {
		words[i] = "w"
	}
	out := clampSummary(strings.Join(words, " "))
	assert.Len(t, strings.Fields(out), maxSummaryWords)
}

func TestClampTopic(t *testing.T) {
	out := clampTopic(`"data retention and archival policy for enterprise systems overview"`)
	fields := strings.Fields(out)
	require.Len(t, fields, maxTopicWords)
	assert.NotContains(t, out, `"`)
	for _, w := range fields {
		first := []rune(w)[0]
		assert.True(t, first >= 'A' && first <= 'Z', "word not title case: %q", w)
	}
}

func TestClampTopicShortInputKept(t *testing.T) {
	assert.Equal(t, "Billing Records", clampTopic("billing records"))
}

func TestFallbackTopicUsesCategoryWhenNoTitle(t *testing.T) {
	topic := fallbackTopic("quarterly revenue figures exceeded expectations", ChunkContext{Category: "financial"})
	assert.True(t, strings.HasPrefix(topic, "Financial"))
	assert.LessOrEqual(t, len(strings.Fields(topic)), maxTopicWords)
}

func TestEnrichmentIsIndependentPerSide(t *testing.T) {
	// 第一次调用（摘要）成功，第二次（主题）失败
	client := &sequencedLLM{results: []result{{reply: "A good summary."}, {err: errors.New("boom")}}}
	e := NewEnricher(client)

	res := e.EnrichChunk(context.Background(), "content here.", ChunkContext{})

	assert.True(t, res.SummaryGenerated)
	assert.Equal(t, "fake-model", res.SummaryModel)
	assert.False(t, res.TopicGenerated)
	assert.Equal(t, FallbackModel, res.TopicModel)
}

type result struct {
	reply string
	err   error
}

type sequencedLLM struct {
	results []result
	idx     int
}

func (s *sequencedLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	r := s.results[s.idx]
	s.idx++
	return r.reply, r.err
}

func (s *sequencedLLM) Model() string { return "fake-model" }
