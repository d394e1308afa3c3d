package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument 提取后文档内容为空
	ErrEmptyDocument = errors.New("no text could be extracted from the document")

	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
)

// InputError 源文档不可读或格式不受支持，流水线不会被调用
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("input error: %v", e.Err)
	}
	return fmt.Sprintf("input error (%s): %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigError 配置错误，例如严格模式下的未知分块策略
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: unsupported %s %q", e.Field, e.Value)
}

// EncodingError 文本编码非法
type EncodingError struct {
	Offset int // 首个非法字节的位置
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: invalid UTF-8 at byte offset %d", e.Offset)
}
