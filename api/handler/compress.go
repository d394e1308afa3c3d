package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-compression/api/middleware"
	"github.com/fyerfyer/doc-compression/api/model"
	"github.com/fyerfyer/doc-compression/internal/services"
)

// DefaultMaxUploadSize 默认的上传文件大小上限
const DefaultMaxUploadSize int64 = 32 << 20

// CompressHandler 处理压缩相关的API请求
type CompressHandler struct {
	service       *services.CompressionService // 压缩服务
	apiKey        string                       // 服务端配置的模型API密钥
	maxUploadSize int64                        // 上传文件大小上限
	logger        *logrus.Logger               // 日志记录器
}

// NewCompressHandler 创建压缩处理器
func NewCompressHandler(service *services.CompressionService, apiKey string, maxUploadSize int64) *CompressHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &CompressHandler{
		service:       service,
		apiKey:        apiKey,
		maxUploadSize: maxUploadSize,
		logger:        middleware.GetLogger(),
	}
}

// Upload 上传文档，返回压缩结果和模型摘要
// POST /api/upload
func (h *CompressHandler) Upload(c *gin.Context) {
	var req model.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("no file in request", err.Error()))
		return
	}
	if req.File.Size > h.maxUploadSize {
		middleware.HandleError(c, middleware.NewValidationError(
			fmt.Sprintf("file too large, the limit is %d MB", h.maxUploadSize>>20)))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithError(err).WithField("filename", req.File.Filename).Error("Failed to open uploaded file")
		middleware.HandleError(c, middleware.NewInternalError("failed to read file", err.Error()))
		return
	}
	defer file.Close()

	sessionID := middleware.GetSessionID(c)
	apiKey := resolveAPIKey(c, req.APIKey, h.apiKey)

	result, err := h.service.CompressUpload(c.Request.Context(), sessionID, file, req.File.Filename, req.ChunkStrategy, apiKey)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// Compress 压缩请求体中的文本
// POST /api/compress
func (h *CompressHandler) Compress(c *gin.Context) {
	var req model.CompressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	result, err := h.service.CompressText(c.Request.Context(), req.Text, req.ChunkStrategy)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// Section 只返回报告的一个分区
// POST /api/compress/:section
func (h *CompressHandler) Section(c *gin.Context) {
	var req model.CompressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	section := c.Param("section")
	items, err := h.service.Section(c.Request.Context(), req.Text, req.ChunkStrategy, section, req.MaxItems)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SectionResponse{
		Section: section,
		Items:   items,
	}))
}

// Traceability 返回溯源映射
// POST /api/traceability
func (h *CompressHandler) Traceability(c *gin.Context) {
	var req model.TraceabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	traceMap, entry, err := h.service.Traceability(c.Request.Context(), req.Text, req.ChunkStrategy, req.StatementID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.TraceabilityResponse{
		TraceabilityMap: traceMap,
		Entry:           entry,
	}))
}

// Compare 比较两份文档
// POST /api/compare
func (h *CompressHandler) Compare(c *gin.Context) {
	var req model.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	comparison, err := h.service.Compare(c.Request.Context(), req.Doc1, req.Doc2, req.ChunkStrategy)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(comparison))
}

// Batch 批量压缩多份文档
// POST /api/batch
func (h *CompressHandler) Batch(c *gin.Context) {
	var req model.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	results, err := h.service.Batch(c.Request.Context(), req.Documents, req.ChunkStrategy)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"documents":      len(req.Documents),
		"chunk_strategy": req.ChunkStrategy,
	}).Info("Batch compression finished")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.BatchResponse{
		Total:   len(results),
		Results: results,
	}))
}
