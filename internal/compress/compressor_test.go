package compress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-compression/internal/models"
)

func item(stmt, chunk string, ct models.ContentType, conf float64) models.ExtractedItem {
	return models.ExtractedItem{Statement: stmt, ChunkID: chunk, Quote: stmt, ContentType: ct, Confidence: conf}
}

func TestCompressDeduplicatesDropSources(t *testing.T) {
	items := []models.ExtractedItem{
		item("Payment is $100,000", "chunk_1", models.NumberLimit, 1),
		item("payment  is $100,000.", "chunk_2", models.NumberLimit, 1),
	}

	report := NewCompressor().Compress(items)
	require.Len(t, report.NumbersAndLimits, 1)
	assert.Equal(t, []string{"chunk_1"}, report.NumbersAndLimits[0].SourceChunks)
	assert.Equal(t, "number_limit", report.NumbersAndLimits[0].ContentType)
}

func TestCompressMergeSources(t *testing.T) {
	items := []models.ExtractedItem{
		item("Payment is $100,000", "chunk_1", models.NumberLimit, 1),
		item("Payment is $100,000", "chunk_2", models.NumberLimit, 1),
		item("Payment is $100,000", "chunk_2", models.NumberLimit, 1),
	}

	report := NewCompressor(WithMergeSources(true)).Compress(items)
	require.Len(t, report.NumbersAndLimits, 1)
	assert.Equal(t, []string{"chunk_1", "chunk_2"}, report.NumbersAndLimits[0].SourceChunks)
	require.Len(t, report.ExecutiveSummary, 1)
	assert.Equal(t, []string{"chunk_1", "chunk_2"}, report.ExecutiveSummary[0].SourceChunks)
}

func TestCompressDedupIsPerCategory(t *testing.T) {
	items := []models.ExtractedItem{
		item("Use is subject to approval.", "chunk_1", models.ExceptionCondition, 1),
		item("Use is subject to approval.", "chunk_1", models.RiskPenalty, 1),
	}
	report := NewCompressor().Compress(items)
	assert.Len(t, report.ExceptionsAndConditions, 1)
	assert.Len(t, report.RisksAndConstraints, 1)
}

func TestCompressRisksMergeCompliance(t *testing.T) {
	items := []models.ExtractedItem{
		item("Vendors must comply.", "chunk_1", models.ComplianceRequirement, 1),
		item("Breach triggers damages.", "chunk_2", models.RiskPenalty, 1),
	}
	report := NewCompressor().Compress(items)
	require.Len(t, report.RisksAndConstraints, 2)
	// 风险在前，合规在后
	assert.Equal(t, "risk_penalty", report.RisksAndConstraints[0].ContentType)
	assert.Equal(t, "compliance_requirement", report.RisksAndConstraints[1].ContentType)
}

func TestExecutiveSummaryOrderingAndLimits(t *testing.T) {
	var items []models.ExtractedItem
	for _, ct := range models.AllContentTypes() {
		for i := 0; i < 5; i++ {
			items = append(items, item(fmt.Sprintf("%s statement %d", ct, i), "chunk_1", ct, 1))
		}
	}

	summary := NewCompressor().Compress(items).ExecutiveSummary
	require.Len(t, summary, DefaultMaxSummaryItems)

	counts := map[string]int{}
	for _, s := range summary {
		counts[s.Priority]++
	}
	for p, n := range counts {
		assert.LessOrEqual(t, n, DefaultMaxPerCategory, p)
	}

	// 类别顺序优先：风险3条、合规3条、数值3条、日期1条
	assert.Equal(t, "risk_penalty", summary[0].Priority)
	assert.Equal(t, "compliance_requirement", summary[3].Priority)
	assert.Equal(t, "number_limit", summary[6].Priority)
	assert.Equal(t, "date_timeline", summary[9].Priority)
}

func TestExecutiveSummaryStableConfidenceSort(t *testing.T) {
	items := []models.ExtractedItem{
		item("Fact A is general here ok", "chunk_1", models.ObjectiveFact, 0.6),
		item("Fact B is specific here 5", "chunk_1", models.ObjectiveFact, 0.8),
		item("Fact C is general here ok", "chunk_2", models.ObjectiveFact, 0.6),
		item("Fact D is general here ok", "chunk_3", models.ObjectiveFact, 0.6),
	}

	summary := NewCompressor().Compress(items).ExecutiveSummary
	require.Len(t, summary, 3)
	assert.Equal(t, "Fact B is specific here 5", summary[0].Statement)
	assert.Equal(t, "Fact A is general here ok", summary[1].Statement)
	assert.Equal(t, "Fact C is general here ok", summary[2].Statement)

	// 报告中的 key_facts 保持原始顺序
	facts := NewCompressor().Compress(items).KeyFacts
	assert.Equal(t, "Fact A is general here ok", facts[0].Statement)
}

func TestSummaryLimitsOption(t *testing.T) {
	var items []models.ExtractedItem
	for i := 0; i < 4; i++ {
		items = append(items, item(fmt.Sprintf("Tenant must pay item %d", i), "chunk_1", models.RiskPenalty, 1))
	}
	summary := NewCompressor(WithSummaryLimits(2, 1)).Compress(items).ExecutiveSummary
	assert.Len(t, summary, 1)
}

func TestCompressEmpty(t *testing.T) {
	report := NewCompressor().Compress(nil)
	assert.NotNil(t, report.ExecutiveSummary)
	assert.NotNil(t, report.KeyFacts)
	assert.NotNil(t, report.RisksAndConstraints)
	assert.NotNil(t, report.Contradictions)
	assert.Empty(t, report.Contradictions)
}

func TestNormalizeStatement(t *testing.T) {
	assert.Equal(t, "payment is due", NormalizeStatement("  Payment\n is   DUE?!. "))
	assert.Equal(t, "v1.2 released", NormalizeStatement("v1.2 released"))
}
