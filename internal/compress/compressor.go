package compress

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/fyerfyer/doc-compression/internal/models"
)

const (
	// DefaultMaxSummaryItems 执行摘要条目上限
	DefaultMaxSummaryItems = 10
	// DefaultMaxPerCategory 执行摘要中每个类别的条目上限
	DefaultMaxPerCategory = 3
)

// SummaryPriority 执行摘要的类别顺序
var SummaryPriority = []models.ContentType{
	models.RiskPenalty,
	models.ComplianceRequirement,
	models.NumberLimit,
	models.DateTimeline,
	models.ExceptionCondition,
	models.ObjectiveFact,
}

// Compressor 分层压缩器
type Compressor struct {
	mergeSources    bool
	maxSummaryItems int
	maxPerCategory  int
	detector        *ContradictionDetector
}

// Option 压缩器配置选项
type Option func(*Compressor)

// WithMergeSources 合并重复陈述的来源分块
// 默认只保留首次出现的分块
func WithMergeSources(merge bool) Option {
	return func(c *Compressor) {
		c.mergeSources = merge
	}
}

// WithSummaryLimits 设置执行摘要的总上限和每类上限
func WithSummaryLimits(total, perCategory int) Option {
	return func(c *Compressor) {
		if total > 0 {
			c.maxSummaryItems = total
		}
		if perCategory > 0 {
			c.maxPerCategory = perCategory
		}
	}
}

// WithContradictionDetector 替换冲突检测器
func WithContradictionDetector(d *ContradictionDetector) Option {
	return func(c *Compressor) {
		if d != nil {
			c.detector = d
		}
	}
}

// NewCompressor 创建压缩器
func NewCompressor(opts ...Option) *Compressor {
	c := &Compressor{
		maxSummaryItems: DefaultMaxSummaryItems,
		maxPerCategory:  DefaultMaxPerCategory,
		detector:        NewContradictionDetector(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entry 去重后的条目，sources 可能在合并模式下增长
type entry struct {
	item    models.ExtractedItem
	sources []string
}

// Compress 分组、去重、排序并组装分层报告
// 冲突检测作用于去重前的完整条目列表
func (c *Compressor) Compress(items []models.ExtractedItem) models.Report {
	deduped := c.deduplicate(items)

	risks := append(formatEntries(deduped[models.RiskPenalty]), formatEntries(deduped[models.ComplianceRequirement])...)

	report := models.Report{
		ExecutiveSummary:        c.executiveSummary(deduped),
		KeyFacts:                formatEntries(deduped[models.ObjectiveFact]),
		NumbersAndLimits:        formatEntries(deduped[models.NumberLimit]),
		DatesAndTimelines:       formatEntries(deduped[models.DateTimeline]),
		ExceptionsAndConditions: formatEntries(deduped[models.ExceptionCondition]),
		RisksAndConstraints:     risks,
		Contradictions:          c.detector.Detect(items),
	}
	report.Normalize()
	return report
}

// deduplicate 按内容类型分组后，在组内按规范化陈述去重，保持首次出现顺序
func (c *Compressor) deduplicate(items []models.ExtractedItem) map[models.ContentType][]*entry {
	grouped := make(map[models.ContentType][]*entry)
	seen := make(map[models.ContentType]map[string]*entry)

	for _, item := range items {
		if seen[item.ContentType] == nil {
			seen[item.ContentType] = make(map[string]*entry)
		}
		key := NormalizeStatement(item.Statement)

		if existing, ok := seen[item.ContentType][key]; ok {
			if c.mergeSources && !slices.Contains(existing.sources, item.ChunkID) {
				existing.sources = append(existing.sources, item.ChunkID)
			}
			continue
		}

		e := &entry{item: item, sources: []string{item.ChunkID}}
		seen[item.ContentType][key] = e
		grouped[item.ContentType] = append(grouped[item.ContentType], e)
	}
	return grouped
}

// executiveSummary 按类别优先级取每类置信度最高的若干条，再截断总数
func (c *Compressor) executiveSummary(deduped map[models.ContentType][]*entry) []models.SummaryItem {
	summary := []models.SummaryItem{}

	for _, ct := range SummaryPriority {
		entries := append([]*entry(nil), deduped[ct]...)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].item.Confidence > entries[j].item.Confidence
		})
		if len(entries) > c.maxPerCategory {
			entries = entries[:c.maxPerCategory]
		}
		for _, e := range entries {
			summary = append(summary, models.SummaryItem{
				Statement:    e.item.Statement,
				SourceChunks: copySources(e.sources),
				Priority:     ct.String(),
			})
		}
	}

	if len(summary) > c.maxSummaryItems {
		summary = summary[:c.maxSummaryItems]
	}
	return summary
}

func formatEntries(entries []*entry) []models.ReportItem {
	out := make([]models.ReportItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.ReportItem{
			Statement:    e.item.Statement,
			SourceChunks: copySources(e.sources),
			Quote:        e.item.Quote,
			ContentType:  e.item.ContentType.String(),
		})
	}
	return out
}

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	trailingEndings = regexp.MustCompile(`[.!?]+$`)
)

// NormalizeStatement 去重用的规范化形式：小写、压缩空白、去掉句末标点
func NormalizeStatement(s string) string {
	normalized := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
	return trailingEndings.ReplaceAllString(normalized, "")
}

func copySources(s []string) []string {
	return append([]string(nil), s...)
}
