package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTongyiTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(1),
		WithTimeout(5 * time.Second),
	}, opts...)
	client, err := NewTongyiClient(opts...)
	require.NoError(t, err)
	return client
}

// TestTongyiClientGenerate 测试请求格式与消息格式响应
func TestTongyiClientGenerate(t *testing.T) {
	client := newTongyiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req tongyiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ModelQwenTurbo, req.Model)
		assert.Equal(t, "message", req.Parameters.ResultFormat)
		assert.Equal(t, 16, req.Parameters.MaxTokens)
		assert.Equal(t, float32(0.4), req.Parameters.Temperature)
		require.Len(t, req.Input.Messages, 1)
		assert.Equal(t, RoleUser, req.Input.Messages[0].Role)
		assert.Equal(t, "Summarize the lease.", req.Input.Messages[0].Content)

		_, _ = w.Write([]byte(`{
			"output": {"choices": [{"finish_reason": "stop", "message": {"role": "assistant", "content": " Rent is $1,200 per month. "}}]},
			"usage": {"total_tokens": 7}
		}`))
	}, WithTemperature(0.4))

	resp, err := client.Generate(context.Background(), "Summarize the lease.", WithGenerateMaxTokens(16))
	require.NoError(t, err)
	assert.Equal(t, "Rent is $1,200 per month.", resp.Text)
	assert.Equal(t, 7, resp.TokenCount)
	assert.Equal(t, ModelQwenTurbo, resp.ModelName)
}

// TestTongyiClientRetry 测试5xx后重试，且每次请求体完整
func TestTongyiClientRetry(t *testing.T) {
	var calls int32
	client := newTongyiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req tongyiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Input.Messages)

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"output": {"text": "ok"}}`))
	})

	resp, err := client.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestTongyiClientErrors 测试状态码到错误码的映射
func TestTongyiClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":"InvalidApiKey","message":"bad key"}`, ErrCodeInvalidAPIKey},
		{"rate limited", http.StatusTooManyRequests, `throttled`, ErrCodeRateLimited},
		{"bad request", http.StatusBadRequest, `{"code":"InvalidParameter","message":"bad"}`, ErrCodeInvalidRequest},
		{"empty output", http.StatusOK, `{"output":{}}`, ErrCodeServerError},
		{"error in body", http.StatusOK, `{"code":"DataInspectionFailed","message":"blocked"}`, ErrCodeServerError},
		{"retries exhausted", http.StatusServiceUnavailable, ``, ErrCodeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTongyiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Generate(context.Background(), "hi")
			var llmErr LLMError
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, tt.code, llmErr.Code)
		})
	}
}

// TestTongyiClientEmptyPrompt 测试空提示词不发请求
func TestTongyiClientEmptyPrompt(t *testing.T) {
	client := newTongyiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Generate(context.Background(), "")
	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)
}
