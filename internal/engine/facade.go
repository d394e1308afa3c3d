package engine

import (
	"context"

	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/trace"
)

// ProcessFile 提取文件文本后执行流水线
// 文件不可读或格式不支持时返回 *models.InputError，流水线不会执行
func (e *Engine) ProcessFile(ctx context.Context, path string) (*models.Result, error) {
	text, err := document.ExtractText(path)
	if err != nil {
		return nil, err
	}
	return e.Process(ctx, text)
}

// ExecutiveSummary 只返回执行摘要的前maxItems条，maxItems<=0时返回全部
func (e *Engine) ExecutiveSummary(ctx context.Context, text string, maxItems int) ([]models.SummaryItem, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	summary := result.ExecutiveSummary
	if maxItems > 0 && len(summary) > maxItems {
		summary = summary[:maxItems]
	}
	return summary, nil
}

// CriticalNumbers 只返回数值与限制
func (e *Engine) CriticalNumbers(ctx context.Context, text string) ([]models.ReportItem, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.NumbersAndLimits, nil
}

// RisksAndCompliance 只返回风险与合规条目
func (e *Engine) RisksAndCompliance(ctx context.Context, text string) ([]models.ReportItem, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.RisksAndConstraints, nil
}

// Exceptions 只返回例外与条件
func (e *Engine) Exceptions(ctx context.Context, text string) ([]models.ReportItem, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.ExceptionsAndConditions, nil
}

// Contradictions 只返回潜在冲突
func (e *Engine) Contradictions(ctx context.Context, text string) ([]models.Contradiction, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.Contradictions, nil
}

// Traceability 返回溯源映射，stmtID非空时只返回该条，未知ID映射为空列表
func (e *Engine) Traceability(ctx context.Context, text, stmtID string) (map[string][]string, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return nil, err
	}
	if stmtID == "" {
		return result.TraceabilityMap, nil
	}
	sources, ok := result.TraceabilityMap[stmtID]
	if !ok {
		sources = []string{}
	}
	return map[string][]string{stmtID: sources}, nil
}

// TraceStatement 按陈述ID返回条目详情
func (e *Engine) TraceStatement(ctx context.Context, text, stmtID string) (trace.Entry, bool, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return trace.Entry{}, false, err
	}
	entry, ok := trace.Lookup(&result.Report, stmtID)
	return entry, ok, nil
}

// Metadata 只返回处理元数据
func (e *Engine) Metadata(ctx context.Context, text string) (models.Metadata, error) {
	result, err := e.Process(ctx, text)
	if err != nil {
		return models.Metadata{}, err
	}
	return result.Metadata, nil
}
