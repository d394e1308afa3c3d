package document

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-compression/internal/models"
)

func chunkWith(t *testing.T, strategy ChunkStrategy, maxSize int, text string) []models.Chunk {
	t.Helper()
	chunks, err := NewChunker(ChunkerConfig{Strategy: strategy, MaxChunkSize: maxSize}).Chunk(text)
	require.NoError(t, err)
	return chunks
}

func assertSequentialIDs(t *testing.T, chunks []models.Chunk) {
	t.Helper()
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%d", i+1), c.ID)
		assert.NotEmpty(t, c.Content)
	}
}

// TestChunkByParagraph 测试按段落分块
func TestChunkByParagraph(t *testing.T) {
	t.Run("blank line boundaries", func(t *testing.T) {
		text := "First paragraph.\n\nSecond paragraph.\n   \n\nThird one."
		chunks := chunkWith(t, ByParagraph, 0, text)

		require.Len(t, chunks, 3)
		assertSequentialIDs(t, chunks)
		assert.Equal(t, "First paragraph.", chunks[0].Content)
		assert.Equal(t, "Third one.", chunks[2].Content)
	})

	t.Run("cumulative offsets", func(t *testing.T) {
		chunks := chunkWith(t, ByParagraph, 0, "abc\n\n\n\ndefgh")
		require.Len(t, chunks, 2)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 3, chunks[0].End)
		assert.Equal(t, 3, chunks[1].Start)
		assert.Equal(t, 8, chunks[1].End)
	})

	t.Run("empty pieces keep ids contiguous", func(t *testing.T) {
		chunks := chunkWith(t, ByParagraph, 0, "\n\nA.\n\n \n\n\n\nB.")
		require.Len(t, chunks, 2)
		assertSequentialIDs(t, chunks)
	})

	t.Run("single newline stays in paragraph", func(t *testing.T) {
		chunks := chunkWith(t, ByParagraph, 0, "line one\nline two")
		require.Len(t, chunks, 1)
		assert.Equal(t, "line one\nline two", chunks[0].Content)
	})
}

// TestChunkBySection 测试按标题分节
func TestChunkBySection(t *testing.T) {
	text := strings.Join([]string{
		"Preamble text.",
		"# Payment",
		"Payment is due monthly.",
		"TERMINATION RIGHTS",
		"Either party may terminate.",
		"3. Liability",
		"Liability is capped.",
		"ARTICLE 9 misc",
	}, "\n")

	chunks := chunkWith(t, BySection, 0, text)
	require.Len(t, chunks, 5)
	assertSequentialIDs(t, chunks)

	assert.Equal(t, "Preamble text.", chunks[0].Content)
	assert.Equal(t, "# Payment\nPayment is due monthly.", chunks[1].Content)
	assert.True(t, strings.HasPrefix(chunks[2].Content, "TERMINATION RIGHTS"))
	assert.True(t, strings.HasPrefix(chunks[3].Content, "3. Liability"))
	assert.Equal(t, "ARTICLE 9 misc", chunks[4].Content)

	t.Run("leading header does not emit empty chunk", func(t *testing.T) {
		chunks := chunkWith(t, BySection, 0, "# Title\nbody")
		require.Len(t, chunks, 1)
		assert.Equal(t, "# Title\nbody", chunks[0].Content)
	})

	t.Run("lowercase lines are not headers", func(t *testing.T) {
		chunks := chunkWith(t, BySection, 0, "intro\nthis is not a header line\nmore")
		assert.Len(t, chunks, 1)
	})
}

// TestChunkBySentence 测试按句子分块
func TestChunkBySentence(t *testing.T) {
	chunks := chunkWith(t, BySentence, 0, "Fees apply. Is it due?  Yes!\nDone")
	require.Len(t, chunks, 4)
	assertSequentialIDs(t, chunks)
	assert.Equal(t, "Fees apply.", chunks[0].Content)
	assert.Equal(t, "Is it due?", chunks[1].Content)
	assert.Equal(t, "Yes!", chunks[2].Content)
	assert.Equal(t, "Done", chunks[3].Content)

	// 小数点后无空白不切分
	chunks = chunkWith(t, BySentence, 0, "Rate is 2.5 percent. Next.")
	require.Len(t, chunks, 2)
	assert.Equal(t, "Rate is 2.5 percent.", chunks[0].Content)
}

// TestChunkByFixedSize 测试固定长度分块
func TestChunkByFixedSize(t *testing.T) {
	t.Run("breaks at late period", func(t *testing.T) {
		text := "aaaaaaa. bbbbbbbbbbbb"
		chunks := chunkWith(t, ByFixedSize, 10, text)
		require.NotEmpty(t, chunks)
		assertSequentialIDs(t, chunks)
		assert.Equal(t, "aaaaaaa.", chunks[0].Content)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 8, chunks[0].End)
		assert.Equal(t, 8, chunks[1].Start)
	})

	t.Run("ignores early period", func(t *testing.T) {
		chunks := chunkWith(t, ByFixedSize, 10, "ab. cdefghijklmnop")
		require.NotEmpty(t, chunks)
		assert.Equal(t, 10, chunks[0].End)
	})

	t.Run("covers whole document", func(t *testing.T) {
		text := strings.Repeat("word ", 500)
		chunks := chunkWith(t, ByFixedSize, 100, text)
		assertSequentialIDs(t, chunks)
		assert.Equal(t, len(text), chunks[len(chunks)-1].End)
		for i := 1; i < len(chunks); i++ {
			assert.Equal(t, chunks[i-1].End, chunks[i].Start)
		}
	})

	t.Run("non-positive size uses default", func(t *testing.T) {
		chunks := chunkWith(t, ByFixedSize, -5, strings.Repeat("x", 1500))
		require.Len(t, chunks, 2)
		assert.Equal(t, DefaultMaxChunkSize, chunks[0].End)
	})
}

func TestChunkEmptyDocument(t *testing.T) {
	for _, s := range []ChunkStrategy{ByParagraph, BySection, BySentence, ByFixedSize} {
		t.Run(string(s), func(t *testing.T) {
			chunks := chunkWith(t, s, 0, "")
			assert.NotNil(t, chunks)
			assert.Empty(t, chunks)
		})
	}
}

func TestChunkInvalidEncoding(t *testing.T) {
	_, err := NewChunker(DefaultChunkerConfig()).Chunk("ok\xffbad")
	var encErr *models.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 2, encErr.Offset)
}

func TestParseChunkStrategy(t *testing.T) {
	s, err := ParseChunkStrategy("Fixed_Size")
	require.NoError(t, err)
	assert.Equal(t, ByFixedSize, s)

	s, err = ParseChunkStrategy("bogus")
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ByParagraph, s)

	// 未知策略静默回退
	c := NewChunker(ChunkerConfig{Strategy: "bogus"})
	assert.Equal(t, ByParagraph, c.Strategy())
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"A.", "B?", "C"}, SplitSentences("A. B?\n\tC"))
	assert.Nil(t, SplitSentences("   "))
}
