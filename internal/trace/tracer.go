package trace

import (
	"fmt"
	"regexp"

	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/extract"
	"github.com/fyerfyer/doc-compression/internal/models"
)

const (
	// ExcludedContentType 排除记录使用的内容类型
	ExcludedContentType = "excluded"
	// ExcludedReason 排除记录的固定原因
	ExcludedReason = "Generic narrative or background content without decision-critical information"

	// DefaultSampleChunks 排除记录只扫描前若干个分块
	DefaultSampleChunks = 5

	statementRunes = 100
)

// inclusionReasons 各内容类型的入选原因
var inclusionReasons = map[models.ContentType]string{
	models.ObjectiveFact:         "Contains objective factual assertion",
	models.NumberLimit:           "Contains specific numerical threshold or limit",
	models.DateTimeline:          "Contains date or timeline information",
	models.ExceptionCondition:    "Contains exception or conditional requirement",
	models.RiskPenalty:           "Contains risk, penalty, or mandatory requirement",
	models.ComplianceRequirement: "Contains compliance or regulatory requirement",
}

// genericPatterns 背景或叙述性内容的特征
var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:This document|This section|The purpose|Background|Introduction|Overview)`),
	regexp.MustCompile(`(?i)(?:for example|such as|including but not limited to)`),
	regexp.MustCompile(`(?i)(?:In general|Generally speaking|Typically)`),
}

// InclusionReason 返回内容类型对应的入选原因
func InclusionReason(ct models.ContentType) string {
	if reason, ok := inclusionReasons[ct]; ok {
		return reason
	}
	return "Decision-critical information"
}

// StatementID 第n条陈述的ID，从1开始
func StatementID(n int) string {
	return fmt.Sprintf("stmt_%d", n)
}

// Entry 编号后的报告条目
type Entry struct {
	ID           string   `json:"stmt_id"`
	Category     string   `json:"category"`
	Statement    string   `json:"statement"`
	SourceChunks []string `json:"source_chunks"`
}

// Entries 按固定类别顺序为报告条目编号，编号跨类别连续
func Entries(report *models.Report) []Entry {
	var entries []Entry
	for _, category := range models.TracedCategories {
		statements := categoryStatements(report, category)
		for i, sources := range report.CategorySources(category) {
			if sources == nil {
				sources = []string{}
			}
			entries = append(entries, Entry{
				ID:           StatementID(len(entries) + 1),
				Category:     category,
				Statement:    statements[i],
				SourceChunks: sources,
			})
		}
	}
	return entries
}

// BuildTraceability 构建陈述ID到来源分块的映射
func BuildTraceability(report *models.Report) map[string][]string {
	mapping := make(map[string][]string)
	for _, e := range Entries(report) {
		mapping[e.ID] = e.SourceChunks
	}
	return mapping
}

// Lookup 按陈述ID查找报告条目
func Lookup(report *models.Report, stmtID string) (Entry, bool) {
	for _, e := range Entries(report) {
		if e.ID == stmtID {
			return e, true
		}
	}
	return Entry{}, false
}

func categoryStatements(r *models.Report, category string) []string {
	var out []string
	switch category {
	case models.CategoryExecutiveSummary:
		for _, it := range r.ExecutiveSummary {
			out = append(out, it.Statement)
		}
		return out
	case models.CategoryKeyFacts:
		return reportStatements(r.KeyFacts)
	case models.CategoryNumbers:
		return reportStatements(r.NumbersAndLimits)
	case models.CategoryDates:
		return reportStatements(r.DatesAndTimelines)
	case models.CategoryExceptions:
		return reportStatements(r.ExceptionsAndConditions)
	case models.CategoryRisks:
		return reportStatements(r.RisksAndConstraints)
	}
	return nil
}

func reportStatements(items []models.ReportItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Statement)
	}
	return out
}

// BuildExplainability 为每个抽取条目生成入选记录，并对前几个分块抽样生成排除记录
func BuildExplainability(items []models.ExtractedItem, chunks []models.Chunk) []models.ExplainRecord {
	records := make([]models.ExplainRecord, 0, len(items))

	for _, it := range items {
		reason := InclusionReason(it.ContentType)
		records = append(records, models.ExplainRecord{
			Statement:       extract.Truncate(it.Statement, statementRunes),
			IncludedBecause: &reason,
			SourceChunk:     it.ChunkID,
			ContentType:     it.ContentType.String(),
		})
	}

	sample := chunks
	if len(sample) > DefaultSampleChunks {
		sample = sample[:DefaultSampleChunks]
	}
	for _, c := range sample {
		generic := GenericSentence(c.Content)
		if generic == "" {
			continue
		}
		reason := ExcludedReason
		records = append(records, models.ExplainRecord{
			Statement:            truncateExcluded(generic),
			SourceChunk:          c.ID,
			ContentType:          ExcludedContentType,
			RemovedContentReason: &reason,
		})
	}
	return records
}

// GenericSentence 返回分块中第一个命中背景内容特征的句子，未命中返回空串
func GenericSentence(content string) string {
	for _, p := range genericPatterns {
		if !p.MatchString(content) {
			continue
		}
		for _, sentence := range document.SplitSentences(content) {
			if p.MatchString(sentence) {
				return sentence
			}
		}
	}
	return ""
}

// truncateExcluded 排除记录的陈述总是带省略号
func truncateExcluded(s string) string {
	runes := []rune(s)
	if len(runes) > statementRunes {
		runes = runes[:statementRunes]
	}
	return string(runes) + "..."
}
