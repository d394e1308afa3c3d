package services

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-compression/internal/cache"
	"github.com/fyerfyer/doc-compression/internal/engine"
	"github.com/fyerfyer/doc-compression/internal/llm"
)

const paymentClause = "Payment of $100,000 is due by December 31, 2024. A penalty of 5% applies if late."

const contractText = `This document describes the service agreement between the parties.

Payment of $100,000 is due by December 31, 2024. A penalty of 5% applies if late.

The supplier must comply with ISO 27001 and shall pass an annual audit. Failure to comply may result in termination.

Unless otherwise agreed, notice must be given at least 30 days before renewal. The renewal fee is $2,000 per year.

In general, the parties will cooperate in good faith. The renewal fee is $2,500 per year.`

// mockSummarizer 模拟模型摘要与问答
type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, document, apiKey string) (string, error) {
	args := m.Called(ctx, document, apiKey)
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) Chat(ctx context.Context, question, documentContext, apiKey string, history []llm.Message) (string, error) {
	args := m.Called(ctx, question, documentContext, apiKey, history)
	return args.String(0), args.Error(1)
}

func newMockSummarizer(t *testing.T) *mockSummarizer {
	m := &mockSummarizer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	eng, err := engine.New(append([]engine.Option{engine.WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return eng
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)
	return c
}
