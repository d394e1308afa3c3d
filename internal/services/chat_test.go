package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/doc-compression/internal/llm"
	"github.com/fyerfyer/doc-compression/internal/models"
)

func setupChatEnv(t *testing.T) (*ChatService, *SessionStore, *mockSummarizer) {
	t.Helper()
	sessions := NewSessionStore(newTestCache(t), 0)
	summarizer := newMockSummarizer(t)
	return NewChatService(sessions, summarizer, WithChatLogger(quietLogger())), sessions, summarizer
}

// TestChatService_Validation 测试问题与密钥校验
func TestChatService_Validation(t *testing.T) {
	chat, _, _ := setupChatEnv(t)
	ctx := context.Background()

	_, err := chat.Ask(ctx, "s", "   ", "key")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = chat.Ask(ctx, "s", "What is the fee?", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

// TestChatService_NoDocument 测试没有文档时返回提示
func TestChatService_NoDocument(t *testing.T) {
	chat, sessions, _ := setupChatEnv(t)
	ctx := context.Background()

	answer, err := chat.Ask(ctx, "unknown", "What is the fee?", "key")
	require.NoError(t, err)
	assert.Equal(t, NoDocumentAnswer, answer.Answer)

	require.NoError(t, sessions.Save(ctx, &models.Session{ID: "empty", FileName: "blank.txt"}))
	answer, err = chat.Ask(ctx, "empty", "What is the fee?", "key")
	require.NoError(t, err)
	assert.Equal(t, NoDocumentAnswer, answer.Answer)
}

// TestChatService_Ask 测试上下文组装与历史记录
func TestChatService_Ask(t *testing.T) {
	chat, sessions, summarizer := setupChatEnv(t)
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, &models.Session{
		ID:         "s-1",
		FileName:   "terms.txt",
		Document:   paymentClause,
		LLMSummary: "A payment is due.",
	}))

	expectedContext := "A payment is due.\n\n---\n\n" + paymentClause
	summarizer.On("Chat", mock.Anything, "When is payment due?", expectedContext, "key", []llm.Message{}).
		Return("By December 31, 2024.", nil).Once()

	answer, err := chat.Ask(ctx, "s-1", " When is payment due? ", "key")
	require.NoError(t, err)
	assert.Equal(t, "By December 31, 2024.", answer.Answer)
	assert.Equal(t, "terms.txt", answer.Document)

	// 第二轮携带上一轮的问答
	summarizer.On("Chat", mock.Anything, "And the penalty?", expectedContext, "key", []llm.Message{
		{Role: llm.RoleUser, Content: "When is payment due?"},
		{Role: llm.RoleAssistant, Content: "By December 31, 2024."},
	}).Return("5%.", nil).Once()

	_, err = chat.Ask(ctx, "s-1", "And the penalty?", "key")
	require.NoError(t, err)

	session, err := sessions.Get(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, session.History, 4)
	assert.Equal(t, models.RoleAssistant, session.History[3].Role)
	assert.Equal(t, "5%.", session.History[3].Content)
}

// TestChatService_RemoteError 测试模型错误不写入历史
func TestChatService_RemoteError(t *testing.T) {
	chat, sessions, summarizer := setupChatEnv(t)
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, &models.Session{ID: "s-2", Document: paymentClause}))
	summarizer.On("Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", llm.NewLLMError(llm.ErrCodeRateLimited, llm.ErrMsgRateLimited)).Once()

	_, err := chat.Ask(ctx, "s-2", "Anything?", "key")
	assert.True(t, llm.IsRemoteError(err))

	session, err := sessions.Get(ctx, "s-2")
	require.NoError(t, err)
	assert.Empty(t, session.History)
}

// TestSessionStore 测试会话读写
func TestSessionStore(t *testing.T) {
	store := NewSessionStore(newTestCache(t), 0)
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	id := NewSessionID()
	require.NoError(t, store.Save(ctx, &models.Session{ID: id, Document: "doc"}))
	session, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "doc", session.Document)
	assert.NotNil(t, session.History)
	assert.False(t, session.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
