package extract

import (
	"regexp"

	"github.com/fyerfyer/doc-compression/internal/models"
)

// RuleSet 一组具名的匹配规则，所有命中都归入同一内容类型
// 规则集创建后不可修改，按声明顺序依次匹配
type RuleSet struct {
	Name        string
	ContentType models.ContentType
	patterns    []*regexp.Regexp
}

// Patterns 返回规则集中的正则表达式副本
func (r RuleSet) Patterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(r.patterns))
	copy(out, r.patterns)
	return out
}

// NewRuleSet 编译一组规则，所有规则均大小写不敏感
func NewRuleSet(name string, contentType models.ContentType, exprs ...string) RuleSet {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+expr))
	}
	return RuleSet{Name: name, ContentType: contentType, patterns: patterns}
}

// 金额与百分比：货币符号在前或单位在后两种写法
const amountExpr = `(?:[$€£]\s?\d+(?:,\d{3})*(?:\.\d+)?|\b\d+(?:,\d{3})*(?:\.\d+)?\s*(?:%|percent\b|dollars?\b|USD\b|EUR\b|GBP\b|[$€£]))`

var (
	// NumberRules 数值、阈值与期限
	NumberRules = NewRuleSet("numbers", models.NumberLimit,
		amountExpr,
		`\b(?:maximum|minimum|max|min|up to|at least|no more than|threshold|limit)\s+\d+`,
		`\b\d+\s*(?:days|hours|minutes|months|years|weeks)\b`,
	)

	// DateRules 日期与时间线
	DateRules = NewRuleSet("dates", models.DateTimeline,
		`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`,
		`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`,
		`\b\d{4}-\d{2}-\d{2}\b`,
		`\b(?:by|before|after|until|from|effective)\s+[A-Z][a-z]+\s+\d{1,2},?\s+\d{4}\b`,
	)

	// ExceptionRules 例外与条件
	ExceptionRules = NewRuleSet("exceptions", models.ExceptionCondition,
		`\b(?:unless|except|excluding|with the exception of|only if|provided that|subject to)\b`,
		`\b(?:however|but|although|whereas|notwithstanding)\b`,
		`\b(?:if and only if|conditional upon|contingent on)\b`,
		`\bif\b`,
	)

	// RiskRules 风险、处罚与强制义务
	RiskRules = NewRuleSet("risks", models.RiskPenalty,
		`\b(?:penalty|fine|violation|breach|non-compliance|failure to|risk|liability|damages)\b`,
		`\b(?:must|shall|required|mandatory|obligated|prohibited|forbidden)\b`,
		`\b(?:may result in|subject to|punishable by)\b`,
	)

	// ComplianceRules 合规与监管
	ComplianceRules = NewRuleSet("compliance", models.ComplianceRequirement,
		`\b(?:comply|compliance|regulation|regulatory|standard|requirement|pursuant to)\b`,
		`\b(?:certif[iy]|audit|inspection|verification|validation)\b`,
	)

	// FactIndicators 事实陈述的判定词，只用于句子级判断
	FactIndicators = NewRuleSet("facts", models.ObjectiveFact,
		`\b(?:is|are|was|were|will be|has been|have been)\b`,
		`\b(?:defines|means|refers to|indicates|specifies)\b`,
		`\b(?:includes|consists of|comprises)\b`,
	)
)

// DefaultRuleSets 逐匹配抽取的规则集，顺序固定
func DefaultRuleSets() []RuleSet {
	return []RuleSet{NumberRules, DateRules, ExceptionRules, RiskRules, ComplianceRules}
}

// matchesAny 判断文本是否命中规则集中的任意规则
func (r RuleSet) matchesAny(text string) bool {
	for _, p := range r.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
