package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-compression/api/middleware"
	"github.com/fyerfyer/doc-compression/api/model"
	"github.com/fyerfyer/doc-compression/internal/services"
	"github.com/fyerfyer/doc-compression/pkg/taskqueue"
)

// TaskHandler 处理异步压缩任务请求
type TaskHandler struct {
	service *services.CompressionService // 压缩服务
	logger  *logrus.Logger               // 日志记录器
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(service *services.CompressionService) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  middleware.GetLogger(),
	}
}

// Submit 提交异步压缩任务
// POST /api/tasks
func (h *TaskHandler) Submit(c *gin.Context) {
	var req model.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	sessionID := middleware.GetSessionID(c)
	taskID, err := h.service.SubmitTask(c.Request.Context(), sessionID, taskqueue.CompressPayload{
		Text:          req.Text,
		FileName:      req.FileName,
		ChunkStrategy: req.ChunkStrategy,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":    taskID,
		"session_id": sessionID,
	}).Info("Compression task submitted")

	c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.TaskSubmitResponse{
		TaskID: taskID,
		Status: string(taskqueue.StatusPending),
	}))
}

// Get 查询任务状态，完成的任务携带压缩结果
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	var uri model.TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	info, err := h.service.TaskInfo(c.Request.Context(), uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(info))
}
