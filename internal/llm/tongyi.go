package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// tongyiRequest DashScope 文本生成请求
type tongyiRequest struct {
	Model      string           `json:"model"`
	Input      tongyiInput      `json:"input"`
	Parameters tongyiParameters `json:"parameters"`
}

type tongyiInput struct {
	Messages []Message `json:"messages"`
}

type tongyiParameters struct {
	ResultFormat string  `json:"result_format"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float32 `json:"temperature"`
}

// tongyiResponse 只解析用到的字段，text 与 choices 二选一
type tongyiResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Output  struct {
		Text    *string `json:"text"`
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// TongyiClient 通义千问 DashScope 客户端，5xx 和网络错误按指数退避重试
type TongyiClient struct {
	apiKey      string
	endpoint    string
	model       string
	httpClient  *http.Client
	maxRetries  int
	maxTokens   int
	temperature float32
}

// NewTongyiClient 创建通义千问客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgMissingAPIKey)
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultTongyiEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = ModelQwenTurbo
	}

	return &TongyiClient{
		apiKey:      apiKey,
		endpoint:    endpoint,
		model:       model,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.model
}

// Generate 对提示词生成一次回答
func (c *TongyiClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	s := resolveSampling(c.maxTokens, c.temperature, options)
	body, err := json.Marshal(tongyiRequest{
		Model: c.model,
		Input: tongyiInput{Messages: []Message{{Role: RoleUser, Content: prompt}}},
		Parameters: tongyiParameters{
			ResultFormat: "message",
			MaxTokens:    s.MaxTokens,
			Temperature:  s.Temperature,
		},
	})
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, "failed to marshal request: "+err.Error())
	}

	status, data, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, tongyiStatusError(status, data)
	}

	var resp tongyiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, NewLLMError(ErrCodeServerError, "failed to parse response: "+err.Error())
	}
	if resp.Code != "" {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("API error: %s (%s)", resp.Message, resp.Code))
	}

	var text string
	switch {
	case resp.Output.Text != nil:
		text = *resp.Output.Text
	case len(resp.Output.Choices) > 0:
		text = resp.Output.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewLLMError(ErrCodeServerError, ErrMsgEmptyResponse)
	}
	return &Response{Text: strings.TrimSpace(text), TokenCount: resp.Usage.TotalTokens, ModelName: c.model}, nil
}

// post 发送请求并读取响应体，4xx 不重试
func (c *TongyiClient) post(ctx context.Context, body []byte) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, NewLLMError(ErrCodeTimeout, ErrMsgTimeout)
			case <-time.After(time.Duration(1<<attempt) * 100 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return 0, nil, NewLLMError(ErrCodeInvalidRequest, "failed to create request: "+err.Error())
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		return resp.StatusCode, data, nil
	}

	if ctx.Err() != nil {
		return 0, nil, NewLLMError(ErrCodeTimeout, ErrMsgTimeout)
	}
	return 0, nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", lastErr))
}

// tongyiStatusError 非200响应转换为LLMError，优先使用响应体里的错误信息
func tongyiStatusError(status int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		return NewLLMError(statusErrorCode(status), fmt.Sprintf("API error: %s (%s)", errResp.Message, errResp.Code))
	}
	return NewLLMError(statusErrorCode(status), fmt.Sprintf("API error (status %d): %s", status, body))
}

func init() {
	RegisterClient(ProviderTongyi, NewTongyiClient)
}
