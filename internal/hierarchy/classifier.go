// Package hierarchy 根据文件名推导文档的分类层级与虚拟路径。
// Classify 是纯函数，不做任何 I/O，相同输入永远得到相同输出。
package hierarchy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"doc-vector-go/internal/model"
)

// categoryRule 定义一个类别及其有序的子类别关键词表。
type categoryRule struct {
	name        string
	keywords    []string
	subcategory []subcategoryRule
}

type subcategoryRule struct {
	name     string
	keywords []string
}

// 类别表是有序的：先匹配先赢。子类别同理。
var categoryRules = []categoryRule{
	{
		name:     "legal",
		keywords: []string{"legal", "contract", "agreement", "law", "court", "compliance", "policy"},
		subcategory: []subcategoryRule{
			{name: "contracts", keywords: []string{"contract", "agreement", "nda"}},
			{name: "compliance", keywords: []string{"compliance", "policy", "regulation"}},
			{name: "litigation", keywords: []string{"court", "lawsuit", "litigation", "case"}},
		},
	},
	{
		name:     "medical",
		keywords: []string{"medical", "health", "patient", "clinical", "diagnosis", "treatment"},
		subcategory: []subcategoryRule{
			{name: "records", keywords: []string{"record", "history", "chart"}},
			{name: "clinical", keywords: []string{"clinical", "trial", "diagnosis", "treatment"}},
		},
	},
	{
		name:     "technical",
		keywords: []string{"technical", "manual", "spec", "specification", "api", "guide", "handbook", "documentation"},
		subcategory: []subcategoryRule{
			{name: "manuals", keywords: []string{"manual", "guide", "handbook"}},
			{name: "specifications", keywords: []string{"spec", "specification", "design", "api"}},
		},
	},
	{
		name:     "research",
		keywords: []string{"research", "paper", "thesis", "journal", "study", "analysis"},
		subcategory: []subcategoryRule{
			{name: "papers", keywords: []string{"paper", "article", "journal", "thesis"}},
			{name: "reports", keywords: []string{"report", "analysis", "study"}},
		},
	},
	{
		name:     "financial",
		keywords: []string{"financial", "finance", "invoice", "budget", "tax", "audit", "statement", "receipt"},
		subcategory: []subcategoryRule{
			{name: "invoices", keywords: []string{"invoice", "receipt", "bill"}},
			{name: "statements", keywords: []string{"statement", "budget", "audit", "tax"}},
		},
	},
}

// markerRule 定义一个组织性标记的正则。表是有序的，每命中一项
// 追加一个 indicator 并使 hierarchy level +1。
type markerRule struct {
	indicator string
	re        *regexp.Regexp
}

var markerRules = []markerRule{
	{indicator: "dated", re: regexp.MustCompile(`(19|20)\d{2}([-_.](0?[1-9]|1[0-2])([-_.](0?[1-9]|[12]\d|3[01]))?)?`)},
	{indicator: "versioned", re: regexp.MustCompile(`(^|[-_ .])(v\d+(\.\d+)*|version[-_ ]?\d+|rev[-_ ]?\d+|draft|final)([-_ .]|$)`)},
	{indicator: "sectioned", re: regexp.MustCompile(`(^|[-_ .])(section|part|chapter)[-_ ]?\d+`)},
	{indicator: "numbered", re: regexp.MustCompile(`^\d+[-_. )]`)},
}

var yearRe = regexp.MustCompile(`(19|20)\d{2}`)

// Classify 从文件名推导 HierarchyInfo。无任何错误分支：
// 不匹配的输入得到 category=general、level 0。
func Classify(fileName string) model.HierarchyInfo {
	ext := filepath.Ext(fileName)
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(fileName), ext))

	info := model.HierarchyInfo{
		Category:     "general",
		DocumentType: documentType(ext),
	}

	// 1. 类别与子类别：首个命中的类别生效，其内首个命中的子类别生效
	for _, rule := range categoryRules {
		if !matchAny(stem, rule.keywords) {
			continue
		}
		info.Category = rule.name
		info.HierarchyLevel = 1
		for _, sub := range rule.subcategory {
			if matchAny(stem, sub.keywords) {
				info.Subcategory = sub.name
				info.HierarchyLevel = 2
				break
			}
		}
		break
	}

	// 2. 组织性标记独立扫描，每命中一项 level +1
	for _, m := range markerRules {
		if m.re.MatchString(stem) {
			info.FolderIndicators = append(info.FolderIndicators, m.indicator)
			info.HierarchyLevel++
		}
	}

	// 3. 组装虚拟路径
	info.VirtualPath = buildVirtualPath(info, stem, fileName)

	// 4. 组织程度
	switch {
	case info.HierarchyLevel == 0:
		info.OrganizationLevel = model.OrgLevelFlat
	case info.HierarchyLevel <= 2:
		info.OrganizationLevel = model.OrgLevelStructured
	default:
		info.OrganizationLevel = model.OrgLevelHighlyOrganized
	}

	return info
}

// buildVirtualPath 拼接 documents/[category/][subcategory/][year/][versions/]filename。
func buildVirtualPath(info model.HierarchyInfo, stem, fileName string) string {
	parts := []string{"documents"}
	if info.Category != "general" {
		parts = append(parts, info.Category)
	}
	if info.Subcategory != "" {
		parts = append(parts, info.Subcategory)
	}
	if hasIndicator(info.FolderIndicators, "dated") {
		if year := yearRe.FindString(stem); year != "" {
			parts = append(parts, year)
		}
	}
	if hasIndicator(info.FolderIndicators, "versioned") {
		parts = append(parts, "versions")
	}
	parts = append(parts, filepath.Base(fileName))
	return strings.Join(parts, "/")
}

// documentType 根据扩展名归类文档类型。
func documentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "pdf"
	case "doc", "docx":
		return "word"
	case "xls", "xlsx", "csv":
		return "spreadsheet"
	case "ppt", "pptx":
		return "presentation"
	case "md", "markdown":
		return "markdown"
	case "html", "htm":
		return "html"
	default:
		return "text"
	}
}

// ChunkPath 生成分块的层级路径：<virtual_path>#chunk_NNN。
func ChunkPath(virtualPath string, chunkIndex int) string {
	return fmt.Sprintf("%s#chunk_%03d", virtualPath, chunkIndex)
}

func matchAny(stem string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(stem, kw) {
			return true
		}
	}
	return false
}

func hasIndicator(indicators []string, name string) bool {
	for _, in := range indicators {
		if in == name {
			return true
		}
	}
	return false
}
