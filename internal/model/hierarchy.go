package model

// 组织程度，由层级分类器根据 hierarchy level 推断。
const (
	OrgLevelFlat            = "flat"             // level 0
	OrgLevelStructured      = "structured"       // level 1-2
	OrgLevelHighlyOrganized = "highly_organized" // level > 2
)

// 文档结构类型，由结构分析器判定。
const (
	StructureSectioned = "sectioned"
	StructureLinear    = "linear"
)

// HierarchyInfo 是文件名分类器的输出，仅派生，不独立持久化。
type HierarchyInfo struct {
	Category          string   `json:"category"`
	Subcategory       string   `json:"subcategory"`
	DocumentType      string   `json:"documentType"`
	HierarchyLevel    int      `json:"hierarchyLevel"`
	OrganizationLevel string   `json:"organizationLevel"`
	VirtualPath       string   `json:"virtualPath"`
	FolderIndicators  []string `json:"folderIndicators"` // dated / versioned / sectioned / numbered
}

// Heading 描述一处检测到的标题行。
type Heading struct {
	LineIndex int    `json:"lineIndex"`
	Title     string `json:"title"`
	CharPos   int    `json:"charPos"`
}

// ContentMap 是结构分析器对提取文本的扫描结果。
type ContentMap struct {
	TotalLength     int       `json:"totalLength"`
	EstimatedChunks int       `json:"estimatedChunks"`
	Structure       string    `json:"structure"` // sectioned | linear
	Headings        []Heading `json:"headings"`
}
