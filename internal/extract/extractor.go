package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/models"
)

const (
	// PatternConfidence 规则命中的置信度
	PatternConfidence = 1.0
	// SpecificFactConfidence 含数值或日期的事实陈述置信度
	SpecificFactConfidence = 0.8
	// GeneralFactConfidence 普通事实陈述置信度
	GeneralFactConfidence = 0.6

	minFactWords   = 5
	factQuoteRunes = 50
)

// Extractor 关键内容抽取器
// Extract 只依赖分块内容，可以在多个goroutine中并发调用
type Extractor struct {
	rules []RuleSet
	facts RuleSet
}

// NewExtractor 使用给定规则集创建抽取器，未指定时使用默认规则集
func NewExtractor(rules ...RuleSet) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRuleSets()
	}
	return &Extractor{rules: rules, facts: FactIndicators}
}

// Extract 从单个分块中抽取所有关键内容
// 先按规则集顺序输出逐匹配条目，最后输出事实陈述
func (e *Extractor) Extract(chunk models.Chunk) []models.ExtractedItem {
	var items []models.ExtractedItem

	for _, rs := range e.rules {
		for _, p := range rs.patterns {
			for _, loc := range p.FindAllStringIndex(chunk.Content, -1) {
				statement := SentenceContext(chunk.Content, loc[0])
				if statement == "" {
					continue
				}
				items = append(items, models.ExtractedItem{
					Statement:   statement,
					ChunkID:     chunk.ID,
					Quote:       chunk.Content[loc[0]:loc[1]],
					ContentType: rs.ContentType,
					Confidence:  PatternConfidence,
				})
			}
		}
	}

	return append(items, e.extractFacts(chunk)...)
}

// ExtractAll 按分块顺序抽取并拼接结果
func (e *Extractor) ExtractAll(chunks []models.Chunk) []models.ExtractedItem {
	items := []models.ExtractedItem{}
	for _, c := range chunks {
		items = append(items, e.Extract(c)...)
	}
	return items
}

// extractFacts 句子级事实陈述抽取
func (e *Extractor) extractFacts(chunk models.Chunk) []models.ExtractedItem {
	var items []models.ExtractedItem

	for _, sentence := range document.SplitSentences(chunk.Content) {
		if !e.facts.matchesAny(sentence) || len(strings.Fields(sentence)) <= minFactWords {
			continue
		}

		confidence := GeneralFactConfidence
		if NumberRules.matchesAny(sentence) || DateRules.matchesAny(sentence) {
			confidence = SpecificFactConfidence
		}

		items = append(items, models.ExtractedItem{
			Statement:   sentence,
			ChunkID:     chunk.ID,
			Quote:       Truncate(sentence, factQuoteRunes),
			ContentType: models.ObjectiveFact,
			Confidence:  confidence,
		})
	}
	return items
}

// SentenceContext 返回包含pos的句子
// 向前找到上一个句号（或文本开头），向后找到下一个句号（或文本结尾），去除首尾空白
func SentenceContext(text string, pos int) string {
	start := strings.LastIndexByte(text[:pos], '.')
	if start == -1 {
		start = 0
	} else {
		start++
	}

	end := strings.IndexByte(text[pos:], '.')
	if end == -1 {
		end = len(text)
	} else {
		end += pos + 1
	}

	return strings.TrimSpace(text[start:end])
}

// Truncate 超过n个字符时截断并追加省略号
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
