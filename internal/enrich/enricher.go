// Package enrich 负责分块富化：调用外部模型为每个分块生成摘要与主题，
// 校验产出契约，并在外部调用失败时以确定性的本地降级兜底。
// 单次富化失败绝不阻塞管道；缺少凭证属于运行级前置条件失败，在管道入口检查。
package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"doc-vector-go/pkg/llm"
	"doc-vector-go/pkg/log"
)

// 产出契约：摘要 ≤5 行且 ≤200 词；主题 ≤8 词、Title Case、无引号。
const (
	maxSummaryLines = 5
	maxSummaryWords = 200
	maxTopicWords   = 8
)

// FallbackModel 是本地降级产出记录的生成器身份。
const FallbackModel = "local-fallback"

// ChunkContext 是随分块内容一起传给生成器的少量元数据。
type ChunkContext struct {
	FileName     string
	SectionTitle string
	Category     string
}

// Result 是一个分块的富化产出。
type Result struct {
	Summary          string
	SummaryWordCount int
	SummaryModel     string
	SummaryGenerated bool // 外部生成成功（降级产出为 false）
	Topic            string
	TopicWordCount   int
	TopicModel       string
	TopicGenerated   bool
}

// Enricher 封装富化逻辑。
type Enricher struct {
	llmClient llm.Client
}

// NewEnricher 创建一个新的 Enricher 实例。
func NewEnricher(llmClient llm.Client) *Enricher {
	return &Enricher{llmClient: llmClient}
}

// EnrichChunk 为单个分块生成摘要与主题。摘要与主题各自独立失败，
// 失败侧落入本地降级，整体永不返回错误。
func (e *Enricher) EnrichChunk(ctx context.Context, content string, meta ChunkContext) Result {
	var res Result

	summary, err := e.generateSummary(ctx, content, meta)
	if err != nil {
		log.Warnf("[Enricher] 摘要生成失败, 使用本地降级, file: %s, err: %v", meta.FileName, err)
		res.Summary = fallbackSummary(content)
		res.SummaryModel = FallbackModel
	} else {
		res.Summary = clampSummary(summary)
		res.SummaryModel = e.llmClient.Model()
		res.SummaryGenerated = true
	}
	res.SummaryWordCount = wordCount(res.Summary)

	topic, err := e.generateTopic(ctx, content, meta)
	if err != nil {
		log.Warnf("[Enricher] 主题生成失败, 使用本地降级, file: %s, err: %v", meta.FileName, err)
		res.Topic = fallbackTopic(content, meta)
		res.TopicModel = FallbackModel
	} else {
		res.Topic = clampTopic(topic)
		res.TopicModel = e.llmClient.Model()
		res.TopicGenerated = true
	}
	res.TopicWordCount = wordCount(res.Topic)

	return res
}

func (e *Enricher) generateSummary(ctx context.Context, content string, meta ChunkContext) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following document excerpt in at most %d lines and %d words. "+
			"Reply with the summary only.\n\nFile: %s\nSection: %s\nCategory: %s\n\n%s",
		maxSummaryLines, maxSummaryWords, meta.FileName, meta.SectionTitle, meta.Category, content)
	return e.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
}

func (e *Enricher) generateTopic(ctx context.Context, content string, meta ChunkContext) (string, error) {
	prompt := fmt.Sprintf(
		"Give a topic label for the following document excerpt: at most %d words, title case, no quotes. "+
			"Reply with the label only.\n\nFile: %s\nSection: %s\nCategory: %s\n\n%s",
		maxTopicWords, meta.FileName, meta.SectionTitle, meta.Category, content)
	return e.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
}

// clampSummary 将越界的摘要确定性地截断到最近的满足边界：先截行，再截词。
func clampSummary(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > maxSummaryLines {
		lines = lines[:maxSummaryLines]
		s = strings.Join(lines, "\n")
	}
	words := strings.Fields(s)
	if len(words) > maxSummaryWords {
		s = strings.Join(words[:maxSummaryWords], " ")
	}
	return s
}

// clampTopic 去引号、截到词数上限并转为 Title Case。
func clampTopic(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'“”‘’`)
	words := strings.Fields(s)
	if len(words) > maxTopicWords {
		words = words[:maxTopicWords]
	}
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

// fallbackSummary 取分块开头的若干句子作为降级摘要。
func fallbackSummary(content string) string {
	sentences := leadingSentences(content, 3)
	return clampSummary(strings.Join(sentences, " "))
}

// fallbackTopic 由节标题或类别加上正文起始词构成降级主题。
func fallbackTopic(content string, meta ChunkContext) string {
	base := meta.SectionTitle
	if base == "" {
		base = meta.Category
	}
	words := strings.Fields(base)
	for _, w := range strings.Fields(content) {
		if len(words) >= maxTopicWords {
			break
		}
		words = append(words, w)
	}
	if len(words) > maxTopicWords {
		words = words[:maxTopicWords]
	}
	for i, w := range words {
		words[i] = titleWord(strings.Trim(w, `.,;:!?"'`))
	}
	return strings.Join(words, " ")
}

// leadingSentences 取文本开头最多 n 个句子。
func leadingSentences(text string, n int) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
			if len(out) >= n {
				return out
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" && len(out) < n {
		out = append(out, s)
	}
	return out
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(w)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
