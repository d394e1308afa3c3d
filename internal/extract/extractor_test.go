package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-compression/internal/models"
)

func itemsOfType(items []models.ExtractedItem, ct models.ContentType) []models.ExtractedItem {
	var out []models.ExtractedItem
	for _, it := range items {
		if it.ContentType == ct {
			out = append(out, it)
		}
	}
	return out
}

func quotes(items []models.ExtractedItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Quote)
	}
	return out
}

func TestExtractPaymentClause(t *testing.T) {
	chunk := models.Chunk{
		ID:      "chunk_1",
		Content: "Payment of $100,000 is due by December 31, 2024. A penalty of 5% applies if late.",
	}
	items := NewExtractor().Extract(chunk)

	numbers := itemsOfType(items, models.NumberLimit)
	assert.Equal(t, []string{"$100,000", "5%"}, quotes(numbers))
	assert.Equal(t, "Payment of $100,000 is due by December 31, 2024.", numbers[0].Statement)
	assert.Equal(t, "A penalty of 5% applies if late.", numbers[1].Statement)
	for _, n := range numbers {
		assert.Equal(t, PatternConfidence, n.Confidence)
		assert.Equal(t, "chunk_1", n.ChunkID)
	}

	dates := itemsOfType(items, models.DateTimeline)
	require.NotEmpty(t, dates)
	assert.Equal(t, "December 31, 2024", dates[0].Quote)

	exceptions := itemsOfType(items, models.ExceptionCondition)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "if", exceptions[0].Quote)
	assert.Equal(t, "A penalty of 5% applies if late.", exceptions[0].Statement)

	risks := itemsOfType(items, models.RiskPenalty)
	assert.Equal(t, []string{"penalty"}, quotes(risks))

	facts := itemsOfType(items, models.ObjectiveFact)
	require.Len(t, facts, 1)
	assert.Equal(t, SpecificFactConfidence, facts[0].Confidence)
	assert.Equal(t, "Payment of $100,000 is due by December 31, 2024.", facts[0].Statement)
}

func TestExtractNumbers(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		quote string
	}{
		{"trailing currency code", "The cap is 500 USD per claim.", "500 USD"},
		{"percent word", "Interest accrues at 3.5 percent annually.", "3.5 percent"},
		{"euro symbol", "A fee of €250 is charged.", "€250"},
		{"qualifier", "Submit no more than 3 requests.", "no more than 3"},
		{"duration", "Notice must be given within 30 days.", "30 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := NewExtractor().Extract(models.Chunk{ID: "chunk_1", Content: tt.text})
			assert.Contains(t, quotes(itemsOfType(items, models.NumberLimit)), tt.quote)
		})
	}
}

func TestExtractDates(t *testing.T) {
	text := "Signed 01/15/2024. Renewal on 2025-03-01. Effective March 3, 2025 the terms change."
	items := NewExtractor().Extract(models.Chunk{ID: "chunk_2", Content: text})
	q := quotes(itemsOfType(items, models.DateTimeline))

	assert.Contains(t, q, "01/15/2024")
	assert.Contains(t, q, "2025-03-01")
	assert.Contains(t, q, "March 3, 2025")
	assert.Contains(t, q, "Effective March 3, 2025")
}

func TestExtractCaseInsensitive(t *testing.T) {
	items := NewExtractor().Extract(models.Chunk{ID: "chunk_1", Content: "Vendors MUST COMPLY with the AUDIT."})
	assert.Equal(t, []string{"MUST"}, quotes(itemsOfType(items, models.RiskPenalty)))
	assert.Equal(t, []string{"COMPLY", "AUDIT"}, quotes(itemsOfType(items, models.ComplianceRequirement)))
}

func TestExtractOverlappingMatchesKept(t *testing.T) {
	// subject to 同时属于例外和风险两类
	items := NewExtractor().Extract(models.Chunk{ID: "chunk_1", Content: "Use is subject to approval."})
	assert.Len(t, itemsOfType(items, models.ExceptionCondition), 1)
	assert.Len(t, itemsOfType(items, models.RiskPenalty), 1)
}

func TestExtractFacts(t *testing.T) {
	text := "The agreement is binding on both parties here. It is short. Term means the initial period of service."
	facts := itemsOfType(NewExtractor().Extract(models.Chunk{ID: "chunk_1", Content: text}), models.ObjectiveFact)

	require.Len(t, facts, 2)
	assert.Equal(t, GeneralFactConfidence, facts[0].Confidence)
	assert.Equal(t, "The agreement is binding on both parties here.", facts[0].Quote)
	assert.Equal(t, "Term means the initial period of service.", facts[1].Statement)

	long := "The service level is defined as ninety nine point nine availability measured monthly across regions."
	facts = itemsOfType(NewExtractor().Extract(models.Chunk{ID: "chunk_1", Content: long}), models.ObjectiveFact)
	require.Len(t, facts, 1)
	assert.Equal(t, long[:50]+"...", facts[0].Quote)
}

func TestExtractAllPreservesChunkOrder(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "chunk_1", Content: "Tenants must pay rent."},
		{ID: "chunk_2", Content: "Landlord shall repair."},
	}
	items := NewExtractor().ExtractAll(chunks)
	require.Len(t, items, 2)
	assert.Equal(t, "chunk_1", items[0].ChunkID)
	assert.Equal(t, "chunk_2", items[1].ChunkID)

	assert.NotNil(t, NewExtractor().ExtractAll(nil))
}

func TestSentenceContext(t *testing.T) {
	text := "First part. Second part has 5 days. Third"
	assert.Equal(t, "Second part has 5 days.", SentenceContext(text, 28))
	assert.Equal(t, "First part.", SentenceContext(text, 0))
	assert.Equal(t, "Third", SentenceContext(text, len(text)-2))
}

func TestCustomRuleSets(t *testing.T) {
	rs := NewRuleSet("custom", models.RiskPenalty, `\bindemnif(?:y|ies|ication)\b`)
	items := NewExtractor(rs).Extract(models.Chunk{ID: "chunk_1", Content: "Seller will indemnify buyer."})
	assert.Equal(t, []string{"indemnify"}, quotes(itemsOfType(items, models.RiskPenalty)))
	assert.Len(t, rs.Patterns(), 1)
}
