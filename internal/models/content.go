package models

import "fmt"

// ContentType 决策关键内容的类型
// 固定六种取值，不允许扩展
type ContentType int

const (
	// ObjectiveFact 客观事实陈述
	ObjectiveFact ContentType = iota
	// NumberLimit 数值、金额、期限等限制
	NumberLimit
	// DateTimeline 日期与时间线
	DateTimeline
	// ExceptionCondition 例外与条件
	ExceptionCondition
	// RiskPenalty 风险、处罚与强制义务
	RiskPenalty
	// ComplianceRequirement 合规与监管要求
	ComplianceRequirement
)

// contentTypeNames 各类型对应的序列化字符串
var contentTypeNames = [...]string{
	ObjectiveFact:         "objective_fact",
	NumberLimit:           "number_limit",
	DateTimeline:          "date_timeline",
	ExceptionCondition:    "exception_condition",
	RiskPenalty:           "risk_penalty",
	ComplianceRequirement: "compliance_requirement",
}

// AllContentTypes 按声明顺序返回所有内容类型
func AllContentTypes() []ContentType {
	return []ContentType{
		ObjectiveFact,
		NumberLimit,
		DateTimeline,
		ExceptionCondition,
		RiskPenalty,
		ComplianceRequirement,
	}
}

// String 返回内容类型的字符串值
func (t ContentType) String() string {
	if t < 0 || int(t) >= len(contentTypeNames) {
		return fmt.Sprintf("content_type(%d)", int(t))
	}
	return contentTypeNames[t]
}

// Valid 判断是否为合法的内容类型
func (t ContentType) Valid() bool {
	return t >= 0 && int(t) < len(contentTypeNames)
}

// ParseContentType 将字符串解析为内容类型
func ParseContentType(s string) (ContentType, error) {
	for i, name := range contentTypeNames {
		if name == s {
			return ContentType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown content type: %q", s)
}

// MarshalText 实现encoding.TextMarshaler
func (t ContentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid content type: %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText 实现encoding.TextUnmarshaler
func (t *ContentType) UnmarshalText(text []byte) error {
	parsed, err := ParseContentType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Chunk 文档分块
// Start/End 为分块策略维护的位置游标，并不保证等于原文偏移
type Chunk struct {
	ID      string `json:"chunk_id"` // 分块ID，形如 chunk_1
	Content string `json:"content"`  // 分块文本
	Start   int    `json:"start"`    // 起始位置
	End     int    `json:"end"`      // 结束位置
}

// ExtractedItem 从分块中抽取出的单条关键内容
type ExtractedItem struct {
	Statement   string      `json:"statement"`    // 命中所在的完整句子
	ChunkID     string      `json:"chunk_id"`     // 来源分块ID
	Quote       string      `json:"quote"`        // 命中的原文片段
	ContentType ContentType `json:"content_type"` // 内容类型
	Confidence  float64     `json:"confidence"`   // 置信度(0-1)
}
