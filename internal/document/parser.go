package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/doc-compression/internal/models"
)

var (
	// ErrUnsupportedFormat 文件格式不受支持
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrExtractionFailure 文件存在但无法提取文本
	ErrExtractionFailure = errors.New("text extraction failed")
)

// Parser 文档解析器接口
// 负责将不同格式的文档解析为纯文本
type Parser interface {
	// Parse 解析文档，返回文本内容
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回文本内容
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) (string, error)
}

// Format 表示源文档的文件格式
type Format string

const (
	// PDF 文档类型
	PDF Format = "pdf"
	// Word Word文档类型
	Word Format = "docx"
	// Markdown 文档类型
	Markdown Format = "markdown"
	// PlainText 纯文本类型
	PlainText Format = "plaintext"
	// Unknown 未知类型
	Unknown Format = "unknown"
)

// SupportedExtensions 支持的文件扩展名
var SupportedExtensions = []string{".txt", ".md", ".markdown", ".pdf", ".docx", ".doc"}

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	switch DetectFormat(filePath) {
	case PDF:
		return NewPDFParser(), nil
	case Word:
		return NewDocxParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, fmt.Errorf("%w: %s. Supported: %s", ErrUnsupportedFormat,
			strings.ToLower(filepath.Ext(filePath)), strings.Join(SupportedExtensions, ", "))
	}
}

// DetectFormat 根据文件扩展名检测文件格式
func DetectFormat(filePath string) Format {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".docx", ".doc":
		return Word
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// IsSupported 判断文件名是否为支持的格式
func IsSupported(filename string) bool {
	return DetectFormat(filename) != Unknown
}

// ExtractText 从文件中提取纯文本
// 文件不存在、格式不支持或提取失败时返回 *models.InputError
func ExtractText(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		return "", &models.InputError{Path: filePath, Err: fmt.Errorf("file not found: %s", filePath)}
	}

	parser, err := ParserFactory(filePath)
	if err != nil {
		return "", &models.InputError{Path: filePath, Err: err}
	}

	text, err := parser.Parse(filePath)
	if err != nil {
		return "", &models.InputError{Path: filePath, Err: fmt.Errorf("%w: %v", ErrExtractionFailure, err)}
	}
	return text, nil
}

// ExtractTextReader 从Reader中提取纯文本，filename决定解析器
func ExtractTextReader(r io.Reader, filename string) (string, error) {
	parser, err := ParserFactory(filename)
	if err != nil {
		return "", &models.InputError{Path: filename, Err: err}
	}

	text, err := parser.ParseReader(r, filename)
	if err != nil {
		return "", &models.InputError{Path: filename, Err: fmt.Errorf("%w: %v", ErrExtractionFailure, err)}
	}
	return text, nil
}
