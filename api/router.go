package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fyerfyer/doc-compression/api/handler"
	"github.com/fyerfyer/doc-compression/api/middleware"
	"github.com/fyerfyer/doc-compression/api/model"
)

// Handlers 路由使用的全部处理器
type Handlers struct {
	Compress *handler.CompressHandler
	Chat     *handler.ChatHandler
	Session  *handler.SessionHandler
	Task     *handler.TaskHandler
}

// RouterConfig 路由配置
type RouterConfig struct {
	RateLimit     float64 // 模型相关接口每个客户端每秒请求数，<=0不限流
	RateBurst     int     // 限流突发容量
	EnableCORS    bool    // 是否允许跨域请求
	MaxUploadSize int64   // multipart表单在内存中的最大大小
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	if cfg.MaxUploadSize > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadSize
	}

	router.Use(middleware.Logger())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SessionID())
	if cfg.EnableCORS {
		router.Use(Cors())
	}

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
		router.Use(middleware.ResponseLogger())
	}

	// 调用模型服务的接口共用一个限流器
	llmLimit := middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst))

	api := router.Group("/api")
	{
		// 上传文档并生成摘要 - POST /api/upload
		api.POST("/upload", llmLimit, h.Compress.Upload)

		// 压缩文本 - POST /api/compress
		api.POST("/compress", h.Compress.Compress)

		// 单个报告分区 - POST /api/compress/:section
		api.POST("/compress/:section", h.Compress.Section)

		// 溯源查询 - POST /api/traceability
		api.POST("/traceability", h.Compress.Traceability)

		// 比较两份文档 - POST /api/compare
		api.POST("/compare", h.Compress.Compare)

		// 批量压缩 - POST /api/batch
		api.POST("/batch", h.Compress.Batch)

		// 文档问答 - POST /api/chat
		api.POST("/chat", llmLimit, h.Chat.Ask)

		// 会话状态与内容
		api.GET("/status", h.Session.Status)
		api.GET("/session", h.Session.Get)
		api.DELETE("/session", h.Session.Delete)

		// 异步压缩任务
		taskGroup := api.Group("/tasks")
		{
			taskGroup.POST("", h.Task.Submit)
			taskGroup.GET("/:id", h.Task.Get)
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{
				"status": "ok",
			}))
		})
	}

	router.NoRoute(func(c *gin.Context) {
		middleware.HandleError(c, middleware.NewNotFoundError("route not found"))
	})

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID, X-Session-ID, X-API-Key")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Trace-ID, X-Session-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
