package trace

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-compression/internal/models"
)

func sampleReport() *models.Report {
	r := &models.Report{
		ExecutiveSummary: []models.SummaryItem{
			{Statement: "Penalty applies.", SourceChunks: []string{"chunk_2"}, Priority: "risk_penalty"},
		},
		NumbersAndLimits: []models.ReportItem{
			{Statement: "Fee is $5.", SourceChunks: []string{"chunk_1"}},
			{Statement: "Cap is 10%.", SourceChunks: []string{"chunk_3"}},
		},
		RisksAndConstraints: []models.ReportItem{
			{Statement: "Penalty applies.", SourceChunks: []string{"chunk_2"}},
		},
		Contradictions: []models.Contradiction{{Statement1: "x", Statement2: "y"}},
	}
	r.Normalize()
	return r
}

func TestBuildTraceability(t *testing.T) {
	mapping := BuildTraceability(sampleReport())

	// 冲突记录不参与编号
	require.Len(t, mapping, 4)
	assert.Equal(t, []string{"chunk_2"}, mapping["stmt_1"])
	assert.Equal(t, []string{"chunk_1"}, mapping["stmt_2"])
	assert.Equal(t, []string{"chunk_3"}, mapping["stmt_3"])
	assert.Equal(t, []string{"chunk_2"}, mapping["stmt_4"])
}

func TestBuildTraceabilityEmpty(t *testing.T) {
	r := &models.Report{}
	r.Normalize()
	mapping := BuildTraceability(r)
	assert.NotNil(t, mapping)
	assert.Empty(t, mapping)
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(sampleReport(), "stmt_3")
	require.True(t, ok)
	assert.Equal(t, models.CategoryNumbers, e.Category)
	assert.Equal(t, "Cap is 10%.", e.Statement)
	assert.Equal(t, []string{"chunk_3"}, e.SourceChunks)

	_, ok = Lookup(sampleReport(), "stmt_99")
	assert.False(t, ok)
}

func TestBuildExplainabilityIncluded(t *testing.T) {
	long := strings.Repeat("a", 120)
	items := []models.ExtractedItem{
		{Statement: "Fee is $5.", ChunkID: "chunk_1", ContentType: models.NumberLimit},
		{Statement: long, ChunkID: "chunk_2", ContentType: models.ComplianceRequirement},
	}

	records := BuildExplainability(items, nil)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].IncludedBecause)
	assert.Equal(t, "Contains specific numerical threshold or limit", *records[0].IncludedBecause)
	assert.Nil(t, records[0].RemovedContentReason)
	assert.Equal(t, "number_limit", records[0].ContentType)

	assert.Equal(t, strings.Repeat("a", 100)+"...", records[1].Statement)
	assert.Equal(t, "Contains compliance or regulatory requirement", *records[1].IncludedBecause)
}

func TestBuildExplainabilityExcludedSample(t *testing.T) {
	var chunks []models.Chunk
	for i := 1; i <= 7; i++ {
		chunks = append(chunks, models.Chunk{
			ID:      fmt.Sprintf("chunk_%d", i),
			Content: "Introduction to the policy. Staff must comply.",
		})
	}
	chunks[1].Content = "Nothing generic here."

	records := BuildExplainability(nil, chunks)
	// 只抽样前5个分块，其中一个无背景内容
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Nil(t, r.IncludedBecause)
		require.NotNil(t, r.RemovedContentReason)
		assert.Equal(t, ExcludedReason, *r.RemovedContentReason)
		assert.Equal(t, ExcludedContentType, r.ContentType)
		assert.Equal(t, "Introduction to the policy....", r.Statement)
	}
	assert.Equal(t, "chunk_1", records[0].SourceChunk)
	assert.Equal(t, "chunk_3", records[1].SourceChunk)
}

func TestGenericSentence(t *testing.T) {
	assert.Equal(t, "Fees vary, for example by region.",
		GenericSentence("Payment is due. Fees vary, for example by region. Done."))
	assert.Equal(t, "", GenericSentence("Payment is due."))
	// 开头锚定的规则只匹配分块开头
	assert.Equal(t, "", GenericSentence("Payment is due. Overview of terms."))
}

func TestInclusionReasonCoversAllTypes(t *testing.T) {
	for _, ct := range models.AllContentTypes() {
		assert.NotEqual(t, "Decision-critical information", InclusionReason(ct))
	}
}
