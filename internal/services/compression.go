package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-compression/internal/cache"
	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/engine"
	"github.com/fyerfyer/doc-compression/internal/llm"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/trace"
	"github.com/fyerfyer/doc-compression/pkg/storage"
	"github.com/fyerfyer/doc-compression/pkg/taskqueue"
)

// 可用的报告分区
const (
	SectionSummary        = "summary"
	SectionNumbers        = "numbers"
	SectionRisks          = "risks"
	SectionExceptions     = "exceptions"
	SectionContradictions = "contradictions"
	SectionMetadata       = "metadata"
)

// MissingKeySummaryError 未配置密钥时写入结果的提示
const MissingKeySummaryError = "No API key. Set GEMINI_API_KEY in your environment or .env file, or send X-API-Key."

var (
	// ErrUnknownSection 未知的报告分区
	ErrUnknownSection = errors.New("unknown report section")
	// ErrQueueDisabled 未启用异步任务队列
	ErrQueueDisabled = errors.New("task queue is not enabled")
)

// Summarizer 模型摘要与问答能力，由 llm.Summarizer 实现
type Summarizer interface {
	Summarize(ctx context.Context, document, apiKey string) (string, error)
	Chat(ctx context.Context, question, documentContext, apiKey string, history []llm.Message) (string, error)
}

// UploadResult 上传接口的返回值，在压缩结果上附加模型摘要
type UploadResult struct {
	*models.Result
	SessionID       string  `json:"session_id"`
	FileName        string  `json:"filename"`
	LLMSummary      *string `json:"llm_summary"`
	LLMSummaryError string  `json:"llm_summary_error,omitempty"`
}

// CompressionService 压缩服务
// 负责协调文本提取、压缩流水线、结果缓存、会话和可选的模型摘要
type CompressionService struct {
	engine     *engine.Engine  // 压缩流水线
	cache      cache.Cache     // 结果缓存
	cacheTTL   time.Duration   // 结果缓存时间
	storage    storage.Storage // 上传文件暂存
	summarizer Summarizer      // 模型摘要（可选）
	sessions   *SessionStore   // 会话存储（可选）
	queue      taskqueue.Queue // 异步任务队列（可选）
	logger     *logrus.Logger  // 日志记录器
}

// CompressionOption 压缩服务配置选项
type CompressionOption func(*CompressionService)

// WithResultCache 设置结果缓存
func WithResultCache(c cache.Cache, ttl time.Duration) CompressionOption {
	return func(s *CompressionService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithStorage 设置上传文件暂存
func WithStorage(st storage.Storage) CompressionOption {
	return func(s *CompressionService) {
		s.storage = st
	}
}

// WithSummarizer 设置模型摘要
func WithSummarizer(summarizer Summarizer) CompressionOption {
	return func(s *CompressionService) {
		s.summarizer = summarizer
	}
}

// WithSessions 设置会话存储
func WithSessions(sessions *SessionStore) CompressionOption {
	return func(s *CompressionService) {
		s.sessions = sessions
	}
}

// WithTaskQueue 设置异步任务队列
func WithTaskQueue(queue taskqueue.Queue) CompressionOption {
	return func(s *CompressionService) {
		s.queue = queue
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) CompressionOption {
	return func(s *CompressionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCompressionService 创建压缩服务
func NewCompressionService(eng *engine.Engine, opts ...CompressionOption) *CompressionService {
	srv := &CompressionService{
		engine: eng,
		logger: logrus.New(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// AsyncEnabled 是否可以提交异步任务
func (s *CompressionService) AsyncEnabled() bool {
	return s.queue != nil
}

// engineFor 返回指定分块策略的流水线，空策略使用默认配置
func (s *CompressionService) engineFor(strategy string) (*engine.Engine, error) {
	return s.engine.WithStrategy(strings.TrimSpace(strategy))
}

// CompressText 压缩文本，结果按分块策略与内容缓存
func (s *CompressionService) CompressText(ctx context.Context, text, strategy string) (*models.Result, error) {
	eng, err := s.engineFor(strategy)
	if err != nil {
		return nil, err
	}

	key := cache.ResultKey(string(eng.Strategy()), text)
	if s.cache != nil {
		var cached models.Result
		found, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read cached result")
		} else if found {
			s.logger.WithField("cache_key", key).Debug("Compression result served from cache")
			return &cached, nil
		}
	}

	result, err := eng.Process(ctx, text)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, result, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache compression result")
		}
	}
	return result, nil
}

// CompressFile 提取本地文件文本后压缩
func (s *CompressionService) CompressFile(ctx context.Context, path, strategy string) (*models.Result, error) {
	text, err := document.ExtractText(path)
	if err != nil {
		return nil, err
	}
	return s.CompressText(ctx, text, strategy)
}

// CompressUpload 处理上传文件
// 文件先写入暂存区，提取文本后立即删除。模型摘要失败只记录在结果中，不影响压缩结果
func (s *CompressionService) CompressUpload(ctx context.Context, sessionID string, r io.Reader, filename, strategy, apiKey string) (*UploadResult, error) {
	if !document.IsSupported(filename) {
		return nil, &models.InputError{Path: filename, Err: fmt.Errorf("%w: supported types are %s",
			document.ErrUnsupportedFormat, strings.Join(document.SupportedExtensions, ", "))}
	}

	text, err := s.extractUpload(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrEmptyDocument
	}

	result, err := s.CompressText(ctx, text, strategy)
	if err != nil {
		return nil, err
	}

	upload := &UploadResult{
		Result:    result,
		SessionID: sessionID,
		FileName:  filename,
	}

	switch {
	case s.summarizer == nil:
		upload.LLMSummaryError = "LLM summarization is not configured"
	case strings.TrimSpace(apiKey) == "":
		upload.LLMSummaryError = MissingKeySummaryError
	default:
		summary, err := s.summarizer.Summarize(ctx, text, apiKey)
		if err != nil {
			s.logger.WithError(err).WithField("filename", filename).Warn("LLM summarization failed")
			upload.LLMSummaryError = remoteMessage(err)
		} else {
			upload.LLMSummary = &summary
		}
	}

	if s.sessions != nil && sessionID != "" {
		session := &models.Session{
			ID:       sessionID,
			FileName: filename,
			Document: text,
			Result:   result,
		}
		if upload.LLMSummary != nil {
			session.LLMSummary = *upload.LLMSummary
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"filename":       filename,
		"session_id":     sessionID,
		"total_chunks":   result.Metadata.TotalChunks,
		"has_summary":    upload.LLMSummary != nil,
		"chunk_strategy": result.Metadata.ChunkStrategy,
	}).Info("Document uploaded and compressed")

	return upload, nil
}

// extractUpload 暂存上传内容并提取文本，结束后删除暂存文件
func (s *CompressionService) extractUpload(ctx context.Context, r io.Reader, filename string) (string, error) {
	if s.storage == nil {
		return document.ExtractTextReader(r, filename)
	}

	info, err := s.storage.Save(ctx, r, filename)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	defer func() {
		if err := s.storage.Delete(context.WithoutCancel(ctx), info.ID); err != nil {
			s.logger.WithError(err).WithField("file_id", info.ID).Warn("Failed to delete staged upload")
		}
	}()

	rc, err := s.storage.Open(ctx, info.ID)
	if err != nil {
		return "", fmt.Errorf("failed to open staged upload: %w", err)
	}
	defer rc.Close()

	return document.ExtractTextReader(rc, filename)
}

// Section 返回报告的单个分区
func (s *CompressionService) Section(ctx context.Context, text, strategy, section string, maxItems int) (interface{}, error) {
	result, err := s.CompressText(ctx, text, strategy)
	if err != nil {
		return nil, err
	}

	switch section {
	case SectionSummary:
		summary := result.ExecutiveSummary
		if maxItems > 0 && len(summary) > maxItems {
			summary = summary[:maxItems]
		}
		return summary, nil
	case SectionNumbers:
		return result.NumbersAndLimits, nil
	case SectionRisks:
		return result.RisksAndConstraints, nil
	case SectionExceptions:
		return result.ExceptionsAndConditions, nil
	case SectionContradictions:
		return result.Contradictions, nil
	case SectionMetadata:
		return result.Metadata, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
}

// Traceability 返回溯源映射，stmtID非空时只返回该条及其详情
func (s *CompressionService) Traceability(ctx context.Context, text, strategy, stmtID string) (map[string][]string, *trace.Entry, error) {
	result, err := s.CompressText(ctx, text, strategy)
	if err != nil {
		return nil, nil, err
	}
	if stmtID == "" {
		return result.TraceabilityMap, nil, nil
	}

	entry, ok := trace.Lookup(&result.Report, stmtID)
	if !ok {
		return map[string][]string{stmtID: {}}, nil, nil
	}
	return map[string][]string{stmtID: entry.SourceChunks}, &entry, nil
}

// Compare 比较两份文档的执行摘要
func (s *CompressionService) Compare(ctx context.Context, doc1, doc2, strategy string) (*engine.Comparison, error) {
	eng, err := s.engineFor(strategy)
	if err != nil {
		return nil, err
	}
	return eng.CompareDocuments(ctx, doc1, doc2)
}

// Batch 并发压缩多份文档，结果顺序与输入一致
func (s *CompressionService) Batch(ctx context.Context, docs []string, strategy string) ([]*models.Result, error) {
	eng, err := s.engineFor(strategy)
	if err != nil {
		return nil, err
	}
	return eng.BatchProcess(ctx, docs)
}

// SubmitTask 提交异步压缩任务
func (s *CompressionService) SubmitTask(ctx context.Context, sessionID string, payload taskqueue.CompressPayload) (string, error) {
	if s.queue == nil {
		return "", ErrQueueDisabled
	}
	if _, err := s.engineFor(payload.ChunkStrategy); err != nil {
		return "", err
	}
	return s.queue.Enqueue(ctx, taskqueue.TaskCompress, sessionID, payload)
}

// TaskInfo 查询异步任务
func (s *CompressionService) TaskInfo(ctx context.Context, taskID string) (*taskqueue.TaskInfo, error) {
	if s.queue == nil {
		return nil, ErrQueueDisabled
	}
	task, err := s.queue.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return taskqueue.NewTaskInfo(task), nil
}

// ProcessTask 实现 taskqueue.Handler，执行异步压缩任务
// 输入错误不会重试
func (s *CompressionService) ProcessTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.CompressPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, taskqueue.Permanent(fmt.Errorf("%w: %v", taskqueue.ErrInvalidPayload, err))
	}

	result, err := s.CompressText(ctx, payload.Text, payload.ChunkStrategy)
	if err != nil {
		var encErr *models.EncodingError
		var cfgErr *models.ConfigError
		if errors.As(err, &encErr) || errors.As(err, &cfgErr) {
			return nil, taskqueue.Permanent(err)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":      task.ID,
		"total_chunks": result.Metadata.TotalChunks,
	}).Info("Compression task completed")
	return result, nil
}

// remoteMessage 远程错误只取可展示的消息
func remoteMessage(err error) string {
	var llmErr llm.LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Message
	}
	return err.Error()
}
