package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDocChars 摘要时文档的最大字符数
	MaxDocChars = 120000
	// MaxContextChars 问答时上下文的最大字符数
	MaxContextChars = 100000
	// MaxHistoryMessages 问答时携带的历史消息条数上限
	MaxHistoryMessages = 10

	summaryMaxTokens = 4096
	chatMaxTokens    = 2048

	truncatedSuffix = "\n\n[... document truncated for context limit ...]"

	// FallbackSummary 模型未返回内容时的摘要
	FallbackSummary = "Summary could not be generated."
	// FallbackAnswer 模型未返回内容时的回答
	FallbackAnswer = "I couldn't generate an answer."
)

const summarizePrompt = `You are a precise assistant that summarizes documents. Produce a clear, structured summary.
Include: main topic, key points, important numbers/dates, risks or obligations, and any notable exceptions or conditions.
Use short paragraphs or bullet points.

Summarize the following document:

`

const chatInstruction = "You are a helpful assistant that answers questions based ONLY on the provided document. " +
	"Answer using only information from the document. If the document does not contain relevant information, say so. Be concise and accurate."

// ClientFactory 按API密钥创建客户端，密钥可能来自请求而非配置
type ClientFactory func(apiKey string) (Client, error)

// Summarizer 基于大模型的文档摘要与问答
type Summarizer struct {
	factory ClientFactory
}

// SummarizerOption 摘要器选项
type SummarizerOption func(*summarizerConfig)

type summarizerConfig struct {
	provider string
	opts     []Option
	factory  ClientFactory
}

// WithProvider 设置提供方名称，默认为gemini
func WithProvider(provider string) SummarizerOption {
	return func(c *summarizerConfig) {
		c.provider = provider
	}
}

// WithClientOptions 追加创建客户端时使用的配置选项
func WithClientOptions(opts ...Option) SummarizerOption {
	return func(c *summarizerConfig) {
		c.opts = append(c.opts, opts...)
	}
}

// WithClientFactory 替换客户端工厂，测试中用于注入模拟客户端
func WithClientFactory(factory ClientFactory) SummarizerOption {
	return func(c *summarizerConfig) {
		c.factory = factory
	}
}

// NewSummarizer 创建摘要器
func NewSummarizer(options ...SummarizerOption) *Summarizer {
	cfg := &summarizerConfig{provider: ProviderGemini}
	for _, opt := range options {
		opt(cfg)
	}

	factory := cfg.factory
	if factory == nil {
		provider, opts := cfg.provider, cfg.opts
		factory = func(apiKey string) (Client, error) {
			return NewClient(provider, append(slices.Clone(opts), WithAPIKey(apiKey))...)
		}
	}
	return &Summarizer{factory: factory}
}

// Summarize 生成文档摘要，文档超过 MaxDocChars 时截断
func (s *Summarizer) Summarize(ctx context.Context, document, apiKey string) (string, error) {
	client, err := s.client(apiKey)
	if err != nil {
		return "", err
	}

	prompt := summarizePrompt + TruncateText(document, MaxDocChars)
	resp, err := client.Generate(ctx, prompt, WithGenerateMaxTokens(summaryMaxTokens))
	return responseOrFallback(resp, err, FallbackSummary)
}

// Chat 基于文档上下文回答问题
// history 只取最后 MaxHistoryMessages 条
func (s *Summarizer) Chat(ctx context.Context, question, documentContext, apiKey string, history []Message) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", NewLLMError(ErrCodeEmptyPrompt, "question is required")
	}

	client, err := s.client(apiKey)
	if err != nil {
		return "", err
	}

	prompt := BuildChatPrompt(question, TruncateText(documentContext, MaxContextChars), history)
	resp, err := client.Generate(ctx, prompt, WithGenerateMaxTokens(chatMaxTokens))
	return responseOrFallback(resp, err, FallbackAnswer)
}

func (s *Summarizer) client(apiKey string) (Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgMissingAPIKey)
	}
	client, err := s.factory(apiKey)
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidRequest)
	}
	return client, nil
}

// BuildChatPrompt 组装问答提示词：指令、文档上下文、历史对话、问题
func BuildChatPrompt(question, context string, history []Message) string {
	parts := []string{
		chatInstruction,
		"",
		"Document content to use as context:",
		"---",
		context,
		"---",
	}

	if len(history) > 0 {
		if len(history) > MaxHistoryMessages {
			history = history[len(history)-MaxHistoryMessages:]
		}
		parts = append(parts, "", "Previous conversation:")
		for _, msg := range history {
			role := "Assistant"
			if msg.Role == RoleUser {
				role = "User"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", role, msg.Content))
		}
		parts = append(parts, "")
	}

	parts = append(parts, "User: "+question, "Assistant:")
	return strings.Join(parts, "\n")
}

// TruncateText 超过 maxChars 个字符时截断并追加提示
func TruncateText(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars]) + truncatedSuffix
}

// responseOrFallback 空响应使用兜底文本，其余错误原样返回
func responseOrFallback(resp *Response, err error, fallback string) (string, error) {
	if err != nil {
		var llmErr LLMError
		if errors.As(err, &llmErr) && llmErr.Message == ErrMsgEmptyResponse {
			return fallback, nil
		}
		return "", WrapError(err, ErrCodeServerError)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return fallback, nil
	}
	return strings.TrimSpace(resp.Text), nil
}
