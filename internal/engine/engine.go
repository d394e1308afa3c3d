package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fyerfyer/doc-compression/internal/compress"
	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/extract"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/trace"
)

// Engine 压缩流水线编排器
// 依次执行 分块 -> 抽取 -> 压缩 -> 溯源，每次调用相互独立
type Engine struct {
	strategyName      string
	maxChunkSize      int
	strictStrategy    bool
	mergeSources      bool
	contradictionMode compress.ContradictionMode
	minSharedTokens   int
	workers           int
	batchConcurrency  int
	logger            *logrus.Logger

	chunker    *document.Chunker
	extractor  *extract.Extractor
	compressor *compress.Compressor
}

// Option 编排器配置选项
type Option func(*Engine)

// WithChunkStrategy 设置分块策略名称
func WithChunkStrategy(name string) Option {
	return func(e *Engine) {
		e.strategyName = name
	}
}

// WithMaxChunkSize 设置固定长度分块的窗口大小
func WithMaxChunkSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.maxChunkSize = size
		}
	}
}

// WithStrictStrategy 未知分块策略时返回 ConfigError 而不是回退
func WithStrictStrategy(strict bool) Option {
	return func(e *Engine) {
		e.strictStrategy = strict
	}
}

// WithMergeSources 去重时合并重复陈述的来源分块
func WithMergeSources(merge bool) Option {
	return func(e *Engine) {
		e.mergeSources = merge
	}
}

// WithContradictionMode 设置冲突检测模式
func WithContradictionMode(mode compress.ContradictionMode) Option {
	return func(e *Engine) {
		if mode != "" {
			e.contradictionMode = mode
		}
	}
}

// WithMinSharedTokens 设置冲突检测的共享词阈值
func WithMinSharedTokens(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minSharedTokens = n
		}
	}
}

// WithParallelExtraction 使用n个goroutine并行抽取，结果仍按分块顺序合并
func WithParallelExtraction(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithBatchConcurrency 设置批量处理同时运行的文档数
func WithBatchConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchConcurrency = n
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New 创建编排器
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		strategyName:      string(document.ByParagraph),
		maxChunkSize:      document.DefaultMaxChunkSize,
		contradictionMode: compress.PairwiseMode,
		minSharedTokens:   compress.DefaultMinSharedTokens,
		workers:           1,
		batchConcurrency:  DefaultBatchConcurrency,
		logger:            logrus.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.build(); err != nil {
		return nil, err
	}
	return e, nil
}

// build 根据配置组装各阶段组件
func (e *Engine) build() error {
	strategy, err := document.ParseChunkStrategy(e.strategyName)
	if err != nil {
		if e.strictStrategy {
			return err
		}
		e.logger.WithField("chunk_strategy", e.strategyName).Debug("Unknown chunk strategy, falling back to paragraph")
	}

	e.chunker = document.NewChunker(document.ChunkerConfig{Strategy: strategy, MaxChunkSize: e.maxChunkSize})
	e.extractor = extract.NewExtractor()

	detector := compress.NewContradictionDetector().
		WithMode(e.contradictionMode).
		WithMinSharedTokens(e.minSharedTokens)
	e.compressor = compress.NewCompressor(
		compress.WithMergeSources(e.mergeSources),
		compress.WithContradictionDetector(detector),
	)
	return nil
}

// WithStrategy 返回使用另一分块策略的编排器副本，其他配置不变
func (e *Engine) WithStrategy(name string) (*Engine, error) {
	if name == "" || name == e.strategyName {
		return e, nil
	}
	cp := *e
	cp.strategyName = name
	if err := cp.build(); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Strategy 返回生效的分块策略
func (e *Engine) Strategy() document.ChunkStrategy {
	return e.chunker.Strategy()
}

// Process 对文档执行完整流水线
// 只有文本不是合法UTF-8时才返回错误
func (e *Engine) Process(ctx context.Context, text string) (*models.Result, error) {
	startTime := time.Now()

	chunks, err := e.chunker.Chunk(text)
	if err != nil {
		return nil, err
	}

	items, err := e.extractItems(ctx, chunks)
	if err != nil {
		return nil, err
	}

	report := e.compressor.Compress(items)

	result := &models.Result{
		Report:          report,
		TraceabilityMap: trace.BuildTraceability(&report),
		Explainability:  trace.BuildExplainability(items, chunks),
	}
	result.Metadata = models.Metadata{
		TotalChunks:         len(chunks),
		TotalExtractedItems: len(items),
		CompressionRatio:    compressionRatio(text, result),
		ChunkStrategy:       string(e.chunker.Strategy()),
	}

	e.logger.WithFields(logrus.Fields{
		"chunk_strategy":    result.Metadata.ChunkStrategy,
		"total_chunks":      result.Metadata.TotalChunks,
		"total_items":       result.Metadata.TotalExtractedItems,
		"contradictions":    len(result.Contradictions),
		"compression_ratio": result.Metadata.CompressionRatio,
		"duration_ms":       time.Since(startTime).Milliseconds(),
	}).Debug("Document compressed")

	return result, nil
}

// extractItems 逐块抽取，并行时在汇合点按分块顺序重新拼接
func (e *Engine) extractItems(ctx context.Context, chunks []models.Chunk) ([]models.ExtractedItem, error) {
	if e.workers <= 1 || len(chunks) <= 1 {
		return e.extractor.ExtractAll(chunks), nil
	}

	perChunk := make([][]models.ExtractedItem, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range chunks {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perChunk[i] = e.extractor.Extract(chunks[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := []models.ExtractedItem{}
	for _, part := range perChunk {
		items = append(items, part...)
	}
	return items, nil
}

// compressionRatio 输出（不含元数据）序列化后的字符数与原文字符数之比，保留三位小数
// 两侧都按 rune 计数，序列化时不转义 HTML 字符
func compressionRatio(text string, result *models.Result) float64 {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0.0
	}

	payload := struct {
		models.Report
		TraceabilityMap map[string][]string    `json:"traceability_map"`
		Explainability  []models.ExplainRecord `json:"explainability"`
	}{result.Report, result.TraceabilityMap, result.Explainability}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return 0.0
	}
	size := utf8.RuneCount(bytes.TrimRight(buf.Bytes(), "\n"))
	return math.Round(float64(size)/float64(n)*1000) / 1000
}
