package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient Google Gemini客户端
// 每次调用创建并关闭底层连接，密钥可以随请求变化
type GeminiClient struct {
	apiKey      string
	endpoint    string
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewGeminiClient 创建Gemini客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgMissingAPIKey)
	}
	model := cfg.Model
	if model == "" {
		model = ModelGeminiFlash
	}

	return &GeminiClient{
		apiKey:      apiKey,
		endpoint:    cfg.BaseURL,
		model:       model,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.model
}

// Generate 对提示词生成一次回答
func (c *GeminiClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(c.apiKey)}
	if c.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.endpoint))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, NewLLMError(ErrCodeNetworkError, "failed to create gemini client: "+err.Error())
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	applySampling(model, resolveSampling(c.maxTokens, c.temperature, options))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewLLMError(ErrCodeTimeout, ErrMsgTimeout)
		}
		return nil, NewLLMError(ErrCodeServerError, "gemini request failed: "+err.Error())
	}

	text := responseText(resp)
	if text == "" {
		return nil, NewLLMError(ErrCodeServerError, ErrMsgEmptyResponse)
	}

	result := &Response{Text: text, ModelName: c.model}
	if resp.UsageMetadata != nil {
		result.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// applySampling 把生成参数写入模型配置，非正的输出上限不设置
func applySampling(model *genai.GenerativeModel, s sampling) {
	if s.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(s.MaxTokens))
	}
	model.SetTemperature(s.Temperature)
}

// responseText 拼接首个候选中的文本片段
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

func init() {
	RegisterClient(ProviderGemini, NewGeminiClient)
}
