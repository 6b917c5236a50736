package chunker

import (
	"strings"
	"unicode/utf8"

	"doc-vector-go/internal/model"
)

// DefaultMaxChunkSize 是未配置时的分块大小上限（字符数）。
const DefaultMaxChunkSize = 35000

// Chunk 是切分产物。TotalChunks 在 finalize 之前恒为 0，
// 由 finalize 一次性写入，持久化前不可再变。
type Chunk struct {
	Index        int
	Type         string
	SectionTitle string
	Content      string
	Truncated    bool
	TotalChunks  int
}

// builder 实现两阶段构造：先以 TotalChunks=0 暂存分块，
// 全部产出后统一补齐总数，避免对已持久化记录的原地修改。
type builder struct {
	max    int
	chunks []Chunk
}

func (b *builder) emit(typ, title, content string, truncated bool) {
	b.chunks = append(b.chunks, Chunk{
		Index:        len(b.chunks),
		Type:         typ,
		SectionTitle: title,
		Content:      content,
		Truncated:    truncated,
	})
}

func (b *builder) finalize() []Chunk {
	total := len(b.chunks)
	for i := range b.chunks {
		b.chunks[i].TotalChunks = total
	}
	return b.chunks
}

// Split 根据内容地图将文本切分为有序分块。
// 判定规则：文本长度 ≤ max 且结构为 linear 时，产出单个 complete_document
// 分块（边界含等于）；否则按结构切分。空文本产出零个分块。
func Split(text string, cm model.ContentMap, maxChunkSize int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	b := &builder{max: maxChunkSize}

	if runeLen(text) <= maxChunkSize && cm.Structure == model.StructureLinear {
		b.emit(model.ChunkTypeCompleteDocument, "", text, false)
		return b.finalize()
	}

	if cm.Structure == model.StructureSectioned {
		splitSectioned(b, text, cm)
	} else {
		// 线性但超长：顺序切为 content 分块
		b.splitSpan(text, model.ChunkTypeContent, model.ChunkTypeContent, "")
	}
	return b.finalize()
}

// splitSectioned 按标题切分：首个标题之前的非空文本为 introduction，
// 其后每个标题到下一标题（或文末）为一个 section 跨段。
func splitSectioned(b *builder, text string, cm model.ContentMap) {
	headings := cm.Headings
	if intro := text[:headings[0].CharPos]; strings.TrimSpace(intro) != "" {
		b.splitSpan(intro, model.ChunkTypeIntroduction, model.ChunkTypeSectionPart, "")
	}
	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].CharPos
		}
		span := text[h.CharPos:end]
		if strings.TrimSpace(span) == "" {
			continue
		}
		b.splitSpan(span, model.ChunkTypeSection, model.ChunkTypeSectionPart, h.Title)
	}
}

// splitSpan 切分单个跨段。跨段放得下时产出一个 wholeType 分块；
// 超长时递归降级切分，首个分块保持 wholeType，其余为 partType。
func (b *builder) splitSpan(span, wholeType, partType, title string) {
	if runeLen(span) <= b.max {
		b.emit(wholeType, title, span, false)
		return
	}
	pieces := splitLarge(span, b.max)
	for i, p := range pieces {
		typ := partType
		if i == 0 {
			typ = wholeType
		}
		b.emit(typ, title, p.content, p.truncated)
	}
}

type piece struct {
	content   string
	truncated bool
}

// splitLarge 对超长跨段做三级降级切分：段落边界（\n\n）累积、
// 单段超长时句子边界累积、单句超长时硬截断（唯一允许丢弃内容的
// 情形，以 truncated 标记）。
func splitLarge(span string, max int) []piece {
	var pieces []piece
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			pieces = append(pieces, piece{content: cur.String()})
			cur.Reset()
			curLen = 0
		}
	}
	appendPart := func(part string) {
		n := runeLen(part)
		sep := 0
		if curLen > 0 {
			sep = 2 // "\n\n"
		}
		if curLen+sep+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(part)
		curLen += n
	}

	for _, para := range strings.Split(span, "\n\n") {
		if para == "" {
			continue
		}
		if runeLen(para) <= max {
			appendPart(para)
			continue
		}
		// 单段超长：落到句子边界
		flush()
		for _, sp := range splitOversizedParagraph(para, max) {
			if sp.truncated {
				flush()
				pieces = append(pieces, sp)
				continue
			}
			appendPart(sp.content)
		}
	}
	flush()
	return pieces
}

// splitOversizedParagraph 将超长段落按句子累积切分；
// 仍然超长的单句截断到 max。
func splitOversizedParagraph(para string, max int) []piece {
	var pieces []piece
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			pieces = append(pieces, piece{content: cur.String()})
			cur.Reset()
			curLen = 0
		}
	}

	for _, sentence := range splitSentences(para) {
		n := runeLen(sentence)
		if n > max {
			flush()
			runes := []rune(sentence)
			pieces = append(pieces, piece{content: string(runes[:max]), truncated: true})
			continue
		}
		sep := 0
		if curLen > 0 {
			sep = 1 // 空格
		}
		if curLen+sep+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteString(" ")
			curLen++
		}
		cur.WriteString(sentence)
		curLen += n
	}
	flush()
	return pieces
}

// splitSentences 在 .!? 后接空白处断句。
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				s := strings.TrimSpace(string(runes[start : i+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
