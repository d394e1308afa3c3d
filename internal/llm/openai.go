package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient OpenAI兼容接口的客户端，BaseURL可指向任意兼容服务
type OpenAIClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewOpenAIClient 创建OpenAI兼容客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgMissingAPIKey)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = ModelGPT4oMini
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Generate 以单条用户消息调用 chat completions
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	s := resolveSampling(c.maxTokens, c.temperature, options)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, mapOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeServerError, ErrMsgEmptyResponse)
	}

	return &Response{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokenCount: resp.Usage.TotalTokens,
		ModelName:  c.model,
	}, nil
}

// mapOpenAIError 将SDK错误映射为带错误码的LLMError
func mapOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return NewLLMError(ErrCodeTimeout, ErrMsgTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewLLMError(statusErrorCode(apiErr.HTTPStatusCode), apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewLLMError(statusErrorCode(reqErr.HTTPStatusCode), reqErr.Error())
	}
	return NewLLMError(ErrCodeNetworkError, err.Error())
}

// statusErrorCode HTTP状态码对应的错误码
func statusErrorCode(status int) int {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeInvalidAPIKey
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	}
	return ErrCodeServerError
}

func init() {
	RegisterClient(ProviderOpenAI, NewOpenAIClient)
}
