// Package chunker 实现文档的结构分析与分块切分。
package chunker

import (
	"regexp"
	"strings"

	"doc-vector-go/internal/model"
)

// 标题行的长度上限（字符数）。超过该长度的行不视为标题。
const maxHeadingLen = 100

// 标题模式表是有序的，逐行按序尝试。
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+[.)]\s+\S|^\d+(\.\d+)+\s+\S`),           // 1. / 4) / 2.3 编号标题
	regexp.MustCompile(`^#{1,6}\s+\S`),                              // Markdown 标题
	regexp.MustCompile(`^(?i:(chapter|section|part))\s+\d+`),        // Chapter/Section/Part N
	regexp.MustCompile(`^[IVXLCDM]+[.)]\s+\S`),                      // 罗马数字标题
	regexp.MustCompile(`^[A-Z][A-Z0-9][A-Z0-9 \-:,&']{1,}$`),        // 全大写标题行
}

// Analyze 扫描提取文本，产出内容地图：总长度、预估分块数、
// 结构类型（sectioned/linear）与检测到的标题列表。
// 只要检出至少一个标题即判定为 sectioned。
func Analyze(text string, maxChunkSize int) model.ContentMap {
	cm := model.ContentMap{
		TotalLength: len(text),
		Structure:   model.StructureLinear,
	}
	if maxChunkSize > 0 {
		cm.EstimatedChunks = (len(text) + maxChunkSize - 1) / maxChunkSize
	}
	if text == "" {
		return cm
	}

	lines := strings.Split(text, "\n")
	pos := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && len(trimmed) < maxHeadingLen && isHeading(trimmed) {
			cm.Headings = append(cm.Headings, model.Heading{
				LineIndex: i,
				Title:     trimmed,
				CharPos:   pos,
			})
		}
		pos += len(line) + 1 // 含换行符
	}

	if len(cm.Headings) > 0 {
		cm.Structure = model.StructureSectioned
	}
	return cm
}

func isHeading(line string) bool {
	for _, p := range headingPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
