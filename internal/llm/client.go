package llm

import (
	"context"
	"sort"
	"time"
)

// Client 单轮文本生成客户端
// 摘要和文档问答都把上下文拼进一个提示词，不需要多轮接口
type Client interface {
	// Generate 对提示词生成一次回答
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error)

	// Name 返回模型名称
	Name() string
}

// Config 提供方客户端的创建参数
type Config struct {
	APIKey      string
	BaseURL     string        // 为空时使用提供方默认端点
	Model       string        // 为空时使用提供方默认模型
	Timeout     time.Duration // 单次请求超时
	MaxRetries  int           // 仅对支持重试的提供方生效
	MaxTokens   int           // 请求未指定时的输出上限
	Temperature float32       // 请求未指定时的采样温度
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:     60 * time.Second,
		MaxRetries:  3,
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// Option 客户端配置选项
type Option func(*Config)

// WithAPIKey 设置API密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Config) { c.APIKey = apiKey }
}

// WithBaseURL 设置API端点
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTimeout 设置请求超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(retries int) Option {
	return func(c *Config) { c.MaxRetries = retries }
}

// WithMaxTokens 设置默认输出上限
func WithMaxTokens(tokens int) Option {
	return func(c *Config) { c.MaxTokens = tokens }
}

// WithTemperature 设置默认采样温度
func WithTemperature(temp float32) Option {
	return func(c *Config) { c.Temperature = temp }
}

// NewConfig 在默认配置上应用选项
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// GenerateOption 单次生成请求的选项
type GenerateOption func(*generateParams)

// generateParams 单次请求的生成参数，零值字段回落到客户端配置
type generateParams struct {
	maxTokens   int
	temperature *float32
}

// WithGenerateMaxTokens 覆盖本次请求的输出上限
func WithGenerateMaxTokens(tokens int) GenerateOption {
	return func(p *generateParams) { p.maxTokens = tokens }
}

// WithGenerateTemperature 覆盖本次请求的采样温度
func WithGenerateTemperature(temp float32) GenerateOption {
	return func(p *generateParams) { p.temperature = &temp }
}

// sampling 客户端最终使用的生成参数
type sampling struct {
	MaxTokens   int
	Temperature float32
}

// resolveSampling 请求选项优先，其次是客户端配置
func resolveSampling(maxTokens int, temperature float32, options []GenerateOption) sampling {
	p := generateParams{}
	for _, opt := range options {
		opt(&p)
	}
	s := sampling{MaxTokens: maxTokens, Temperature: temperature}
	if p.maxTokens > 0 {
		s.MaxTokens = p.maxTokens
	}
	if p.temperature != nil {
		s.Temperature = *p.temperature
	}
	return s
}

// Factory 按配置选项创建客户端
type Factory func(opts ...Option) (Client, error)

var providers = make(map[string]Factory)

// RegisterClient 注册提供方，同名注册会覆盖
func RegisterClient(name string, factory Factory) {
	providers[name] = factory
}

// Providers 返回已注册的提供方名称，按字母序
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient 创建指定提供方的客户端
func NewClient(provider string, opts ...Option) (Client, error) {
	factory, ok := providers[provider]
	if !ok {
		return nil, NewLLMError(ErrCodeInvalidRequest, "unknown llm provider: "+provider)
	}
	return factory(opts...)
}
