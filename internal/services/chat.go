package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-compression/internal/llm"
	"github.com/fyerfyer/doc-compression/internal/models"
)

// NoDocumentAnswer 会话中没有文档时的回答
const NoDocumentAnswer = "Please upload and summarize a document first, then ask your question."

var (
	// ErrEmptyQuestion 问题为空
	ErrEmptyQuestion = errors.New("no question provided")
	// ErrMissingAPIKey 问答需要API密钥
	ErrMissingAPIKey = errors.New("API key required for chat")
)

// ChatAnswer 问答结果
type ChatAnswer struct {
	Answer   string `json:"answer"`
	Document string `json:"document,omitempty"`
}

// ChatService 文档问答服务
// 基于会话中的文档与模型摘要回答问题，并记录对话历史
type ChatService struct {
	sessions   *SessionStore  // 会话存储
	summarizer Summarizer     // 模型问答
	logger     *logrus.Logger // 日志记录器
}

// ChatOption 问答服务配置选项
type ChatOption func(*ChatService)

// WithChatLogger 设置日志记录器
func WithChatLogger(logger *logrus.Logger) ChatOption {
	return func(s *ChatService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewChatService 创建问答服务
func NewChatService(sessions *SessionStore, summarizer Summarizer, opts ...ChatOption) *ChatService {
	service := &ChatService{
		sessions:   sessions,
		summarizer: summarizer,
		logger:     logrus.New(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Ask 针对会话中的文档提问
// 会话不存在或没有文档时返回提示回答而不是错误
func (s *ChatService) Ask(ctx context.Context, sessionID, question, apiKey string) (*ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return &ChatAnswer{Answer: NoDocumentAnswer}, nil
	} else if err != nil {
		return nil, err
	}
	if !session.HasDocument() {
		return &ChatAnswer{Answer: NoDocumentAnswer, Document: session.FileName}, nil
	}

	answer, err := s.summarizer.Chat(ctx, question, ChatContext(session), apiKey, toLLMHistory(session.History))
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Chat request failed")
		return nil, err
	}

	session.History = append(session.History,
		models.ChatMessage{Role: models.RoleUser, Content: question},
		models.ChatMessage{Role: models.RoleAssistant, Content: answer},
	)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"history_count": len(session.History),
	}).Debug("Chat answered")

	return &ChatAnswer{Answer: answer, Document: session.FileName}, nil
}

// ChatContext 问答上下文：模型摘要、分隔线、文档全文
func ChatContext(session *models.Session) string {
	return session.LLMSummary + "\n\n---\n\n" + session.Document
}

func toLLMHistory(history []models.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		role := llm.RoleAssistant
		if msg.Role == models.RoleUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	return messages
}
