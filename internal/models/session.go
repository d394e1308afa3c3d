package models

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage 会话中的一条聊天消息
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Session 服务层的会话状态
// 核心流水线不读取会话，会话内容作为显式参数传入
type Session struct {
	ID         string        `json:"id"`
	FileName   string        `json:"filename"`
	Document   string        `json:"document"`
	Result     *Result       `json:"result,omitempty"`
	LLMSummary string        `json:"llm_summary,omitempty"`
	History    []ChatMessage `json:"history"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// HasDocument 会话中是否已加载文档或摘要
func (s *Session) HasDocument() bool {
	return s != nil && (s.Document != "" || s.LLMSummary != "")
}
