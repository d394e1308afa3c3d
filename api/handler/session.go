package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fyerfyer/doc-compression/api/middleware"
	"github.com/fyerfyer/doc-compression/api/model"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/services"
)

// SessionHandler 处理会话查询请求
type SessionHandler struct {
	sessions     *services.SessionStore // 会话存储
	hasAPIKey    bool                   // 服务端是否配置了API密钥
	asyncEnabled bool                   // 是否启用异步任务
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *services.SessionStore, hasAPIKey, asyncEnabled bool) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		hasAPIKey:    hasAPIKey,
		asyncEnabled: asyncEnabled,
	}
}

// Status 返回会话是否已加载文档以及服务端能力
// GET /api/status
func (h *SessionHandler) Status(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	resp := model.StatusResponse{
		SessionID:    sessionID,
		HasAPIKey:    h.hasAPIKey,
		AsyncEnabled: h.asyncEnabled,
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil && !errors.Is(err, models.ErrSessionNotFound) {
		middleware.HandleError(c, err)
		return
	}
	if err == nil {
		resp.HasDocument = session.Result != nil
		resp.FileName = session.FileName
		resp.HasLLMSummary = session.LLMSummary != ""
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// Get 返回当前会话的压缩结果与对话历史
// GET /api/session
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionResponse{
		SessionID:  session.ID,
		FileName:   session.FileName,
		Result:     session.Result,
		LLMSummary: session.LLMSummary,
		History:    session.History,
	}))
}

// Delete 清除当前会话
// DELETE /api/session
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(nil))
}
