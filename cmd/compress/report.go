package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/fyerfyer/doc-compression/internal/models"
)

// 报告页只展示前若干条摘要与冲突，完整内容见JSON输出
const (
	htmlMaxSummary        = 10
	htmlMaxContradictions = 10
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"badge": priorityBadge,
	"join":  func(ids []string) string { return strings.Join(ids, ", ") },
	"inc":   func(i int) int { return i + 1 },
	"section": func(id, title string, items []models.ReportItem) reportSection {
		return reportSection{ID: id, Title: title, Items: items}
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

// htmlReport 报告页的模板数据
type htmlReport struct {
	Source         string
	Generated      time.Time
	Result         *models.Result
	Summary        []models.SummaryItem
	Contradictions []models.Contradiction
}

type reportSection struct {
	ID    string
	Title string
	Items []models.ReportItem
}

type badge struct {
	Class string
	Label string
}

// priorityBadges 执行摘要优先级对应的徽标
var priorityBadges = map[string]badge{
	models.RiskPenalty.String():           {"badge-danger", "Risk/Penalty"},
	models.ComplianceRequirement.String(): {"badge-danger", "Compliance"},
	models.NumberLimit.String():           {"", "Number/Limit"},
	models.DateTimeline.String():          {"", "Date/Timeline"},
	models.ExceptionCondition.String():    {"badge-warning", "Exception"},
	models.ObjectiveFact.String():         {"badge-success", "Fact"},
}

func priorityBadge(priority string) badge {
	if b, ok := priorityBadges[priority]; ok {
		return b
	}
	return badge{Label: "Info"}
}

// renderHTML 把完整结果渲染为单文件HTML报告，文本内容由模板转义
func renderHTML(source string, generated time.Time, result *models.Result) ([]byte, error) {
	data := htmlReport{
		Source:         source,
		Generated:      generated,
		Result:         result,
		Summary:        result.ExecutiveSummary[:min(len(result.ExecutiveSummary), htmlMaxSummary)],
		Contradictions: result.Contradictions[:min(len(result.Contradictions), htmlMaxContradictions)],
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}
	return buf.Bytes(), nil
}
