package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-compression/api/middleware"
	"github.com/fyerfyer/doc-compression/api/model"
	"github.com/fyerfyer/doc-compression/internal/services"
)

// ChatHandler 处理文档问答请求
type ChatHandler struct {
	chatService *services.ChatService // 问答服务
	apiKey      string                // 服务端配置的模型API密钥
	logger      *logrus.Logger        // 日志记录器
}

// NewChatHandler 创建问答处理器
func NewChatHandler(chatService *services.ChatService, apiKey string) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		apiKey:      apiKey,
		logger:      middleware.GetLogger(),
	}
}

// Ask 针对当前会话的文档提问
// POST /api/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	sessionID := middleware.GetSessionID(c)
	answer, err := h.chatService.Ask(c.Request.Context(), sessionID, req.Question, resolveAPIKey(c, req.APIKey, h.apiKey))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(answer))
}
