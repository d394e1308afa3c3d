package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Compression CompressionConfig `mapstructure:"compression"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Queue       QueueConfig       `mapstructure:"queue"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`                                     // 服务器主机
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`          // 服务器端口
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"` // gin运行模式
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`                             // 读取超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"`                            // 写入超时，需要覆盖模型调用时间
	MaxUploadMB  int           `mapstructure:"max_upload_mb" validate:"min=1,max=1024"`  // 上传文件大小上限(MB)
	EnableCORS   bool          `mapstructure:"enable_cors"`                              // 是否允许跨域
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"` // 日志级别
	Format     string `mapstructure:"format" validate:"oneof=json text"`            // 输出格式
	File       string `mapstructure:"file"`                                         // 日志文件，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=1"`                 // 单个日志文件大小上限
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`                 // 保留的旧文件数量
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`                // 旧文件保留天数
}

// CompressionConfig 压缩流水线配置
type CompressionConfig struct {
	ChunkStrategy         string `mapstructure:"chunk_strategy"`                                        // 默认分块策略
	MaxChunkSize          int    `mapstructure:"max_chunk_size" validate:"min=1"`                       // fixed_size策略的分块大小
	MergeDuplicateSources bool   `mapstructure:"merge_duplicate_sources"`                               // 去重时是否合并来源分块
	ContradictionMode     string `mapstructure:"contradiction_mode" validate:"oneof=pairwise bucketed"` // 冲突检测模式
	MinSharedTokens       int    `mapstructure:"min_shared_tokens" validate:"min=1"`                    // 判定冲突所需的共享关键词数
	StrictStrategy        bool   `mapstructure:"strict_strategy"`                                       // 未知分块策略时报错而不是回退
	ExtractWorkers        int    `mapstructure:"extract_workers" validate:"min=1,max=64"`               // 并行抽取的协程数
	BatchConcurrency      int    `mapstructure:"batch_concurrency" validate:"min=1,max=64"`             // 批处理并发数
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=gemini openai tongyi"` // 提供商
	Model       string        `mapstructure:"model"`                                          // 模型名称，为空时使用提供商默认模型
	APIKey      string        `mapstructure:"api_key"`                                        // 服务端API密钥，可为空
	Endpoint    string        `mapstructure:"endpoint" validate:"omitempty,url"`              // API端点
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=1"`                    // 最大生成token数量
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`             // 采样温度
	Timeout     time.Duration `mapstructure:"timeout"`                                        // 请求超时
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`            // 最大重试次数
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type       string `mapstructure:"type" validate:"oneof=memory redis"`        // 缓存类型：memory 或 redis
	Address    string `mapstructure:"address" validate:"required_if=Type redis"` // Redis地址
	Password   string `mapstructure:"password"`                                  // Redis密码
	DB         int    `mapstructure:"db" validate:"min=0"`                       // Redis数据库
	KeyPrefix  string `mapstructure:"key_prefix"`                                // 键前缀
	TTL        int    `mapstructure:"ttl" validate:"min=0"`                      // 结果缓存TTL（秒）
	SessionTTL int    `mapstructure:"session_ttl" validate:"min=0"`              // 会话TTL（秒）
}

// StorageConfig 上传文件暂存配置
type StorageConfig struct {
	Type      string `mapstructure:"type" validate:"oneof=local minio"`          // 存储类型：local 或 minio
	Path      string `mapstructure:"path" validate:"required_if=Type local"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket" validate:"required_if=Type minio"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Type minio"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`                                        // 是否启用任务队列
	Type          string `mapstructure:"type" validate:"oneof=redis"`                   // 队列类型
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Enable true"` // Redis地址
	RedisPassword string `mapstructure:"redis_password"`                                // Redis密码
	RedisDB       int    `mapstructure:"redis_db" validate:"min=0"`                     // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency" validate:"min=1"`                  // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit" validate:"min=0"`                  // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay" validate:"min=0"`                  // 重试延迟(秒)
	TaskTTL       int    `mapstructure:"task_ttl" validate:"min=0"`                     // 任务记录保留时间(秒)
	Worker        bool   `mapstructure:"worker"`                                        // 是否在服务进程内启动工作者
}

// RateLimitConfig 调用模型的接口的限流配置
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"` // 每个客户端每秒请求数，0表示不限流
	Burst             int     `mapstructure:"burst" validate:"min=0"`               // 突发容量
}

// 各提供商读取API密钥的环境变量，按顺序查找
var providerKeyEnv = map[string][]string{
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
	"tongyi": {"TONGYI_API_KEY", "DASHSCOPE_API_KEY"},
}

// Load 从文件和环境变量加载配置
// 配置文件不存在时使用默认值，工作目录和配置文件所在目录下的 .env 会先被加载
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}
	loadDotEnv(".env", filepath.Join(filepath.Dir(configPath), ".env"))

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 支持环境变量覆盖，例如 LLM_API_KEY 覆盖 llm.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadDotEnv 加载 .env 文件，已存在的环境变量不会被覆盖
func loadDotEnv(paths ...string) {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err == nil {
			_ = godotenv.Load(abs)
		}
	}
}

// processEnvironmentVariables 展开 ${VAR} 形式的取值，并为空的API密钥查找提供商的环境变量
func processEnvironmentVariables(cfg *Config) {
	for _, field := range []*string{
		&cfg.LLM.APIKey,
		&cfg.Cache.Password,
		&cfg.Storage.AccessKey,
		&cfg.Storage.SecretKey,
		&cfg.Queue.RedisPassword,
	} {
		*field = expandEnv(*field)
	}

	if cfg.LLM.APIKey == "" {
		for _, name := range providerKeyEnv[cfg.LLM.Provider] {
			if val := os.Getenv(name); val != "" {
				cfg.LLM.APIKey = val
				break
			}
		}
	}
}

// expandEnv 整个取值形如 ${VAR} 时替换为环境变量的值
func expandEnv(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// CacheTTL 结果缓存时间
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// SessionTTL 会话保留时间
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Cache.SessionTTL) * time.Second
}

// MaxUploadSize 上传文件大小上限(字节)
func (c *Config) MaxUploadSize() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.enable_cors", false)

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	// 压缩默认配置
	v.SetDefault("compression.chunk_strategy", "paragraph")
	v.SetDefault("compression.max_chunk_size", 1000)
	v.SetDefault("compression.merge_duplicate_sources", false)
	v.SetDefault("compression.contradiction_mode", "pairwise")
	v.SetDefault("compression.min_shared_tokens", 3)
	v.SetDefault("compression.strict_strategy", false)
	v.SetDefault("compression.extract_workers", 1)
	v.SetDefault("compression.batch_concurrency", 4)

	// LLM默认配置
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.max_retries", 2)

	// 缓存默认配置
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.key_prefix", "compress")
	v.SetDefault("cache.ttl", 3600)
	v.SetDefault("cache.session_ttl", 86400)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/uploads")
	v.SetDefault("storage.bucket", "compress-uploads")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 10)
	v.SetDefault("queue.task_ttl", 86400)
	v.SetDefault("queue.worker", true)

	// 限流默认配置
	v.SetDefault("rate_limit.requests_per_second", 1)
	v.SetDefault("rate_limit.burst", 5)
}
