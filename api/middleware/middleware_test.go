package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/llm"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/services"
	"github.com/fyerfyer/doc-compression/pkg/taskqueue"
)

// TestFromError 测试服务层错误到HTTP状态码的映射
func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		typ  string
	}{
		{"input", &models.InputError{Path: "a.xlsx", Err: document.ErrUnsupportedFormat}, http.StatusBadRequest, ErrorTypeValidation},
		{"encoding", &models.EncodingError{Offset: 3}, http.StatusBadRequest, ErrorTypeValidation},
		{"config", &models.ConfigError{Field: "chunk_strategy", Value: "x"}, http.StatusBadRequest, ErrorTypeValidation},
		{"empty document", fmt.Errorf("upload: %w", models.ErrEmptyDocument), http.StatusBadRequest, ErrorTypeValidation},
		{"unknown section", services.ErrUnknownSection, http.StatusBadRequest, ErrorTypeValidation},
		{"session", models.ErrSessionNotFound, http.StatusNotFound, ErrorTypeNotFound},
		{"task", taskqueue.ErrTaskNotFound, http.StatusNotFound, ErrorTypeNotFound},
		{"queue disabled", services.ErrQueueDisabled, http.StatusServiceUnavailable, ErrorTypeUnavailable},
		{"remote", llm.NewLLMError(llm.ErrCodeTimeout, llm.ErrMsgTimeout), http.StatusBadGateway, ErrorTypeRemote},
		{"app error", NewRateLimitError(), http.StatusTooManyRequests, ErrorTypeRateLimited},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromError(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.typ, appErr.Type)
		})
	}

	assert.Equal(t, llm.ErrMsgTimeout, FromError(llm.NewLLMError(llm.ErrCodeTimeout, llm.ErrMsgTimeout)).Message)
}

// TestRateLimiter 测试按客户端限流与空闲清理
func TestRateLimiter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limiter := NewRateLimiter(1, 2)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "clients are limited independently")

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("a"))

	now = now.Add(limiterIdleTimeout + time.Second)
	limiter.Allow("c")
	assert.NotContains(t, limiter.clients, "a")
	assert.NotContains(t, limiter.clients, "b")

	unlimited := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow("a"))
	}
}

// TestRateLimiterSweepInterval 测试清理按间隔进行而非每次请求
func TestRateLimiterSweepInterval(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now := start
	limiter := NewRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.Allow("x")

	now = start.Add(limiterIdleTimeout - 10*time.Second)
	limiter.Allow("y")
	assert.Contains(t, limiter.clients, "x", "x is not idle yet")

	// x 已空闲，但距上次清理不足一个间隔
	now = start.Add(limiterIdleTimeout + 5*time.Second)
	limiter.Allow("y")
	assert.Contains(t, limiter.clients, "x")

	now = start.Add(limiterIdleTimeout + time.Minute)
	limiter.Allow("y")
	assert.NotContains(t, limiter.clients, "x")
	assert.Contains(t, limiter.clients, "y")
}
