package document

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownParser Markdown文档解析器
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 解析Markdown文件并提取文本内容
func (p *MarkdownParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open markdown file: %v", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader解析Markdown内容
// 块级元素之间保留空行，以便按段落分块
func (p *MarkdownParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown content: %v", err)
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)
	doc := mdParser.Parse(content)

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	htmlContent := markdown.Render(doc, renderer)

	return extractTextFromHTML(string(htmlContent)), nil
}

var (
	blockCloseTag = regexp.MustCompile(`(?i)</(p|h[1-6]|ul|ol|table|blockquote|pre)>`)
	lineBreakTag  = regexp.MustCompile(`(?i)<br\s*/?>|</li>|</tr>`)
	listItemTag   = regexp.MustCompile(`(?i)<li>`)
	anyTag        = regexp.MustCompile(`<[^>]*>`)
	htmlEntities  = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ")
)

// extractTextFromHTML 从渲染后的HTML中提取纯文本
func extractTextFromHTML(htmlText string) string {
	result := blockCloseTag.ReplaceAllString(htmlText, "\n\n")
	result = lineBreakTag.ReplaceAllString(result, "\n")
	result = listItemTag.ReplaceAllString(result, "- ")
	result = anyTag.ReplaceAllString(result, "")
	result = htmlEntities.Replace(result)

	return normalizeWhitespace(result)
}

// normalizeWhitespace 压缩行内空白，连续空行最多保留一个
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
