package models

// ReportItem 去重后的报告条目
type ReportItem struct {
	Statement    string   `json:"statement"`     // 陈述句
	SourceChunks []string `json:"source_chunks"` // 来源分块ID列表
	Quote        string   `json:"quote"`         // 原文引用
	ContentType  string   `json:"content_type"`  // 内容类型
}

// SummaryItem 执行摘要条目
type SummaryItem struct {
	Statement    string   `json:"statement"`     // 陈述句
	SourceChunks []string `json:"source_chunks"` // 来源分块ID列表
	Priority     string   `json:"priority"`      // 所属类别，即优先级标签
}

// Contradiction 潜在冲突记录
type Contradiction struct {
	Statement1        string `json:"statement_1"`
	SourceChunk1      string `json:"source_chunk_1"`
	Statement2        string `json:"statement_2"`
	SourceChunk2      string `json:"source_chunk_2"`
	ContradictionType string `json:"contradiction_type"`
}

// ContradictionPotentialConflict 目前唯一的冲突类型
const ContradictionPotentialConflict = "potential_conflict"

// ExplainRecord 可解释性记录
// 入选记录的 RemovedContentReason 为 nil，排除记录的 IncludedBecause 为 nil
type ExplainRecord struct {
	Statement            string  `json:"statement"`
	IncludedBecause      *string `json:"included_because"`
	SourceChunk          string  `json:"source_chunk"`
	ContentType          string  `json:"content_type"`
	RemovedContentReason *string `json:"removed_content_reason"`
}

// Metadata 处理元数据
type Metadata struct {
	TotalChunks         int     `json:"total_chunks"`          // 分块总数
	TotalExtractedItems int     `json:"total_extracted_items"` // 抽取条目总数（去重前）
	CompressionRatio    float64 `json:"compression_ratio"`     // 压缩比
	ChunkStrategy       string  `json:"chunk_strategy"`        // 分块策略
}

// Report 分层压缩报告
type Report struct {
	ExecutiveSummary        []SummaryItem   `json:"executive_compressed_summary"`
	KeyFacts                []ReportItem    `json:"key_facts"`
	NumbersAndLimits        []ReportItem    `json:"numbers_and_limits"`
	DatesAndTimelines       []ReportItem    `json:"dates_and_timelines"`
	ExceptionsAndConditions []ReportItem    `json:"exceptions_and_conditions"`
	RisksAndConstraints     []ReportItem    `json:"risks_and_constraints"`
	Contradictions          []Contradiction `json:"contradictions"`
}

// Result 一次处理的完整输出
type Result struct {
	Report
	TraceabilityMap map[string][]string `json:"traceability_map"`
	Explainability  []ExplainRecord     `json:"explainability"`
	Metadata        Metadata            `json:"metadata"`
}

// 报告类别键，顺序即溯源编号顺序
const (
	CategoryExecutiveSummary = "executive_compressed_summary"
	CategoryKeyFacts         = "key_facts"
	CategoryNumbers          = "numbers_and_limits"
	CategoryDates            = "dates_and_timelines"
	CategoryExceptions       = "exceptions_and_conditions"
	CategoryRisks            = "risks_and_constraints"
)

// TracedCategories 参与溯源编号的六个类别，顺序固定
var TracedCategories = []string{
	CategoryExecutiveSummary,
	CategoryKeyFacts,
	CategoryNumbers,
	CategoryDates,
	CategoryExceptions,
	CategoryRisks,
}

// CategorySources 返回指定类别下每个条目的来源分块列表
func (r *Report) CategorySources(category string) [][]string {
	var sources [][]string
	switch category {
	case CategoryExecutiveSummary:
		for _, item := range r.ExecutiveSummary {
			sources = append(sources, item.SourceChunks)
		}
		return sources
	case CategoryKeyFacts:
		return itemSources(r.KeyFacts)
	case CategoryNumbers:
		return itemSources(r.NumbersAndLimits)
	case CategoryDates:
		return itemSources(r.DatesAndTimelines)
	case CategoryExceptions:
		return itemSources(r.ExceptionsAndConditions)
	case CategoryRisks:
		return itemSources(r.RisksAndConstraints)
	}
	return nil
}

// Normalize 将所有nil切片替换为空切片，保证JSON输出为 [] 而不是 null
func (r *Report) Normalize() {
	if r.ExecutiveSummary == nil {
		r.ExecutiveSummary = []SummaryItem{}
	}
	for _, list := range []*[]ReportItem{
		&r.KeyFacts, &r.NumbersAndLimits, &r.DatesAndTimelines,
		&r.ExceptionsAndConditions, &r.RisksAndConstraints,
	} {
		if *list == nil {
			*list = []ReportItem{}
		}
	}
	if r.Contradictions == nil {
		r.Contradictions = []Contradiction{}
	}
}

func itemSources(items []ReportItem) [][]string {
	sources := make([][]string, 0, len(items))
	for _, item := range items {
		sources = append(sources, item.SourceChunks)
	}
	return sources
}
