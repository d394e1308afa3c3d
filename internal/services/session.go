package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyerfyer/doc-compression/internal/cache"
	"github.com/fyerfyer/doc-compression/internal/models"
)

// DefaultSessionTTL 会话默认保留时间
const DefaultSessionTTL = 24 * time.Hour

// SessionStore 会话状态存储
// 每个会话保存当前文档、压缩结果、模型摘要和聊天记录
type SessionStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewSessionStore 创建会话存储，ttl<=0时使用默认值
func NewSessionStore(c cache.Cache, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{cache: c, ttl: ttl}
}

// NewSessionID 生成新的会话ID
func NewSessionID() string {
	return uuid.New().String()
}

// Get 读取会话，不存在时返回 models.ErrSessionNotFound
func (s *SessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, models.ErrSessionNotFound
	}

	var session models.Session
	found, err := cache.GetJSON(ctx, s.cache, cache.SessionKey(id), &session)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return nil, models.ErrSessionNotFound
	}
	return &session, nil
}

// Save 保存会话并刷新过期时间
func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now()
	if session.History == nil {
		session.History = []models.ChatMessage{}
	}
	if err := cache.SetJSON(ctx, s.cache, cache.SessionKey(session.ID), session, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, cache.SessionKey(id))
}
