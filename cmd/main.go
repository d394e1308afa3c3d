package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/doc-compression/api"
	"github.com/fyerfyer/doc-compression/api/handler"
	"github.com/fyerfyer/doc-compression/api/middleware"
	"github.com/fyerfyer/doc-compression/config"
	"github.com/fyerfyer/doc-compression/internal/cache"
	"github.com/fyerfyer/doc-compression/internal/compress"
	"github.com/fyerfyer/doc-compression/internal/engine"
	"github.com/fyerfyer/doc-compression/internal/llm"
	"github.com/fyerfyer/doc-compression/internal/services"
	"github.com/fyerfyer/doc-compression/pkg/storage"
	"github.com/fyerfyer/doc-compression/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 命令行参数
type flags struct {
	ConfigFile string // 配置文件路径
	Port       int    // 覆盖配置中的端口，0表示不覆盖
	Mode       string // 覆盖配置中的运行模式
}

func main() {
	// 解析命令行参数
	f := parseFlags()

	// 加载配置
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if f.Port > 0 {
		cfg.Server.Port = f.Port
	}
	if f.Mode != "" {
		cfg.Server.Mode = f.Mode
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化日志
	logger := setupLogger(cfg)
	logger.Info("Starting document compression service...")

	// 创建压缩引擎
	eng, err := setupEngine(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize engine: %v", err)
	}

	// 创建缓存服务
	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	// 创建上传文件暂存
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建摘要器，API密钥可由请求提供
	summarizer := setupSummarizer(cfg)
	if cfg.LLM.APIKey == "" {
		logger.Warn("No server-side LLM API key configured, clients must send their own key")
	}

	sessions := services.NewSessionStore(cacheService, cfg.SessionTTL())

	serviceOptions := []services.CompressionOption{
		services.WithResultCache(cacheService, cfg.CacheTTL()),
		services.WithStorage(fileStorage),
		services.WithSummarizer(summarizer),
		services.WithSessions(sessions),
		services.WithLogger(logger),
	}

	// 初始化任务队列（如果启用）
	var queue *taskqueue.RedisQueue
	if cfg.Queue.Enable {
		queue, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		serviceOptions = append(serviceOptions, services.WithTaskQueue(queue))
		logger.Info("Task queue initialized successfully")
	}

	compressionService := services.NewCompressionService(eng, serviceOptions...)
	chatService := services.NewChatService(sessions, summarizer, services.WithChatLogger(logger))

	// 进程内工作者
	if queue != nil && cfg.Queue.Worker {
		worker := taskqueue.NewRedisWorker(queue, queueConfig(cfg))
		worker.RegisterHandler(taskqueue.TaskCompress, compressionService)
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start task worker: %v", err)
		}
		defer worker.Stop()
		logger.Info("Task worker started")
	}

	// 初始化API处理器并设置路由
	r := api.SetupRouter(api.Handlers{
		Compress: handler.NewCompressHandler(compressionService, cfg.LLM.APIKey, cfg.MaxUploadSize()),
		Chat:     handler.NewChatHandler(chatService, cfg.LLM.APIKey),
		Session:  handler.NewSessionHandler(sessions, cfg.LLM.APIKey != "", compressionService.AsyncEnabled()),
		Task:     handler.NewTaskHandler(compressionService),
	}, api.RouterConfig{
		RateLimit:     cfg.RateLimit.RequestsPerSecond,
		RateBurst:     cfg.RateLimit.Burst,
		EnableCORS:    cfg.Server.EnableCORS,
		MaxUploadSize: cfg.MaxUploadSize(),
	})

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 优雅关闭
	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	var f flags
	flag.StringVar(&f.ConfigFile, "config", "config.yaml", "Path to config file")
	flag.IntVar(&f.Port, "port", 0, "Server port (overrides config)")
	flag.StringVar(&f.Mode, "mode", "", "Run mode debug/release (overrides config)")
	flag.Parse()
	return f
}

// setupLogger 初始化日志
func setupLogger(cfg *config.Config) *logrus.Logger {
	middleware.ConfigureLogger(middleware.LogConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	return middleware.GetLogger()
}

// setupEngine 创建压缩引擎
func setupEngine(cfg *config.Config, logger *logrus.Logger) (*engine.Engine, error) {
	mode, err := compress.ParseContradictionMode(cfg.Compression.ContradictionMode)
	if err != nil {
		return nil, err
	}

	return engine.New(
		engine.WithChunkStrategy(cfg.Compression.ChunkStrategy),
		engine.WithMaxChunkSize(cfg.Compression.MaxChunkSize),
		engine.WithStrictStrategy(cfg.Compression.StrictStrategy),
		engine.WithMergeSources(cfg.Compression.MergeDuplicateSources),
		engine.WithContradictionMode(mode),
		engine.WithMinSharedTokens(cfg.Compression.MinSharedTokens),
		engine.WithParallelExtraction(cfg.Compression.ExtractWorkers),
		engine.WithBatchConcurrency(cfg.Compression.BatchConcurrency),
		engine.WithLogger(logger),
	)
}

// setupCache 创建缓存服务
func setupCache(cfg *config.Config) (cache.Cache, error) {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Type = cfg.Cache.Type
	cacheCfg.KeyPrefix = cfg.Cache.KeyPrefix
	cacheCfg.RedisAddr = cfg.Cache.Address
	cacheCfg.RedisPassword = cfg.Cache.Password
	cacheCfg.RedisDB = cfg.Cache.DB
	cacheCfg.DefaultTTL = cfg.CacheTTL()
	return cache.NewCache(cacheCfg)
}

// setupStorage 创建上传文件暂存
func setupStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.New(storage.Config{
		Type:  cfg.Storage.Type,
		Local: storage.LocalConfig{Path: cfg.Storage.Path},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		},
	})
}

// setupSummarizer 创建大语言模型摘要器
func setupSummarizer(cfg *config.Config) *llm.Summarizer {
	opts := []llm.Option{
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxRetries(cfg.LLM.MaxRetries),
	}
	if cfg.LLM.Model != "" {
		opts = append(opts, llm.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.Endpoint != "" {
		opts = append(opts, llm.WithBaseURL(cfg.LLM.Endpoint))
	}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, llm.WithTimeout(cfg.LLM.Timeout))
	}

	return llm.NewSummarizer(
		llm.WithProvider(cfg.LLM.Provider),
		llm.WithClientOptions(opts...),
	)
}

// queueConfig 转换任务队列配置
func queueConfig(cfg *config.Config) *taskqueue.Config {
	qc := taskqueue.DefaultConfig()
	qc.RedisAddr = cfg.Queue.RedisAddr
	qc.RedisPassword = cfg.Queue.RedisPassword
	qc.RedisDB = cfg.Queue.RedisDB
	qc.Concurrency = cfg.Queue.Concurrency
	qc.RetryLimit = cfg.Queue.RetryLimit
	qc.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second
	qc.TaskTTL = time.Duration(cfg.Queue.TaskTTL) * time.Second
	return qc
}

// setupTaskQueue 初始化任务队列
func setupTaskQueue(cfg *config.Config, logger *logrus.Logger) (*taskqueue.RedisQueue, error) {
	return taskqueue.NewRedisQueue(queueConfig(cfg), taskqueue.WithQueueLogger(logger))
}
