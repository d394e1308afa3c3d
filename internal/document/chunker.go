package document

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fyerfyer/doc-compression/internal/models"
)

// ChunkStrategy 分块策略
type ChunkStrategy string

const (
	// ByParagraph 按空行分段
	ByParagraph ChunkStrategy = "paragraph"
	// BySection 按标题行分节
	BySection ChunkStrategy = "section"
	// BySentence 按句子分割
	BySentence ChunkStrategy = "sentence"
	// ByFixedSize 按固定长度分割，优先在句号处断开
	ByFixedSize ChunkStrategy = "fixed_size"
)

// DefaultMaxChunkSize 固定长度分块的默认窗口大小（字符数）
const DefaultMaxChunkSize = 1000

// ParseChunkStrategy 解析分块策略名称
// 未知名称返回 ByParagraph 和 ConfigError，调用方决定是否忽略该错误
func ParseChunkStrategy(name string) (ChunkStrategy, error) {
	switch s := ChunkStrategy(strings.ToLower(strings.TrimSpace(name))); s {
	case ByParagraph, BySection, BySentence, ByFixedSize:
		return s, nil
	case "":
		return ByParagraph, nil
	default:
		return ByParagraph, &models.ConfigError{Field: "chunk_strategy", Value: name}
	}
}

// ChunkerConfig 分块器配置
type ChunkerConfig struct {
	Strategy     ChunkStrategy // 分块策略
	MaxChunkSize int           // 固定长度窗口大小，仅 fixed_size 使用
}

// DefaultChunkerConfig 返回默认分块器配置
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		Strategy:     ByParagraph,
		MaxChunkSize: DefaultMaxChunkSize,
	}
}

// Chunker 文档分块器
// 对同一输入的输出是确定的，不持有跨调用的状态
type Chunker struct {
	config ChunkerConfig
}

// NewChunker 创建分块器，未知策略回退为按段落分块
func NewChunker(config ChunkerConfig) *Chunker {
	config.Strategy, _ = ParseChunkStrategy(string(config.Strategy))
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = DefaultMaxChunkSize
	}
	return &Chunker{config: config}
}

// Strategy 返回当前生效的分块策略
func (c *Chunker) Strategy() ChunkStrategy {
	return c.config.Strategy
}

// Chunk 将文档切分为有序分块，空文档返回空切片
func (c *Chunker) Chunk(text string) ([]models.Chunk, error) {
	if !utf8.ValidString(text) {
		return nil, &models.EncodingError{Offset: invalidUTF8Offset(text)}
	}
	if text == "" {
		return []models.Chunk{}, nil
	}

	switch c.config.Strategy {
	case BySection:
		return c.chunkBySection(text), nil
	case BySentence:
		return c.chunkBySentence(text), nil
	case ByFixedSize:
		return c.chunkByFixedSize(text), nil
	default:
		return c.chunkByParagraph(text), nil
	}
}

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sectionHeader  = regexp.MustCompile(`^(#{1,6}\s|[A-Z\s]{10,}$|\d+\.\s+[A-Z]|SECTION|ARTICLE)`)
)

// cursorBuilder 按累计内容长度分配位置，段落/章节/句子策略共用
type cursorBuilder struct {
	chunks []models.Chunk
	pos    int
}

func (b *cursorBuilder) add(content string) {
	n := utf8.RuneCountInString(content)
	b.chunks = append(b.chunks, models.Chunk{
		ID:      chunkID(len(b.chunks) + 1),
		Content: content,
		Start:   b.pos,
		End:     b.pos + n,
	})
	b.pos += n
}

func (b *cursorBuilder) result() []models.Chunk {
	if b.chunks == nil {
		return []models.Chunk{}
	}
	return b.chunks
}

// chunkByParagraph 按空行分段
func (c *Chunker) chunkByParagraph(text string) []models.Chunk {
	var b cursorBuilder
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.add(para)
	}
	return b.result()
}

// chunkBySection 遇到标题行时开始新的分块，标题行属于新分块
func (c *Chunker) chunkBySection(text string) []models.Chunk {
	var b cursorBuilder
	var current []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, "\n"))
		if content != "" {
			b.add(content)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if len(current) > 0 && sectionHeader.MatchString(strings.TrimSpace(line)) {
			flush()
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		flush()
	}
	return b.result()
}

// chunkBySentence 每个句子一个分块
func (c *Chunker) chunkBySentence(text string) []models.Chunk {
	var b cursorBuilder
	for _, sentence := range SplitSentences(text) {
		b.add(sentence)
	}
	return b.result()
}

// chunkByFixedSize 滑动窗口分块
// 窗口内最后一个句号位于窗口一半之后时在句号处断开，位置为原文中的真实字符偏移
func (c *Chunker) chunkByFixedSize(text string) []models.Chunk {
	runes := []rune(text)
	maxSize := c.config.MaxChunkSize
	chunks := []models.Chunk{}

	pos := 0
	for pos < len(runes) {
		end := pos + maxSize
		if end > len(runes) {
			end = len(runes)
		}

		if lastPeriod := lastIndexRune(runes[pos:end], '.'); float64(lastPeriod) > float64(maxSize)*0.5 {
			end = pos + lastPeriod + 1
		}

		content := strings.TrimSpace(string(runes[pos:end]))
		if content != "" {
			chunks = append(chunks, models.Chunk{
				ID:      chunkID(len(chunks) + 1),
				Content: content,
				Start:   pos,
				End:     end,
			})
		}
		pos = end
	}
	return chunks
}

// SplitSentences 在 . ! ? 后跟空白处切分句子，结果已去除首尾空白并丢弃空句
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func lastIndexRune(runes []rune, target rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

func chunkID(n int) string {
	return fmt.Sprintf("chunk_%d", n)
}

func invalidUTF8Offset(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(s)
}
