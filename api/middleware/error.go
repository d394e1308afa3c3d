package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-compression/api/model"
	"github.com/fyerfyer/doc-compression/internal/llm"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/services"
	"github.com/fyerfyer/doc-compression/pkg/taskqueue"
)

// 定义应用中的错误类型常量
const (
	ErrorTypeValidation  = "VALIDATION_ERROR"  // 输入验证错误
	ErrorTypeNotFound    = "NOT_FOUND_ERROR"   // 资源不存在错误
	ErrorTypeInternal    = "INTERNAL_ERROR"    // 内部服务器错误
	ErrorTypeRemote      = "REMOTE_ERROR"      // 模型服务错误
	ErrorTypeRateLimited = "RATE_LIMITED"      // 请求过于频繁
	ErrorTypeUnavailable = "UNAVAILABLE_ERROR" // 功能未启用
)

// AppError 应用错误结构体
type AppError struct {
	Type    string // 错误类型
	Message string // 错误消息
	Details string // 详细错误信息
	Code    int    // HTTP状态码
}

// Error 实现error接口的方法
func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError 创建输入验证错误
func NewValidationError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadRequest,
	}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) AppError {
	return AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewInternalError 创建内部服务器错误
func NewInternalError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusInternalServerError,
	}
}

// NewRemoteError 创建模型服务错误，只影响当前请求
func NewRemoteError(message string) AppError {
	return AppError{
		Type:    ErrorTypeRemote,
		Message: message,
		Code:    http.StatusBadGateway,
	}
}

// NewRateLimitError 创建限流错误
func NewRateLimitError() AppError {
	return AppError{
		Type:    ErrorTypeRateLimited,
		Message: "too many requests, please retry later",
		Code:    http.StatusTooManyRequests,
	}
}

// NewUnavailableError 创建功能未启用错误
func NewUnavailableError(message string) AppError {
	return AppError{
		Type:    ErrorTypeUnavailable,
		Message: message,
		Code:    http.StatusServiceUnavailable,
	}
}

// FromError 将服务层错误转换为应用错误
func FromError(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var appErrPtr *AppError
	if errors.As(err, &appErrPtr) {
		return *appErrPtr
	}

	var (
		inputErr  *models.InputError
		encErr    *models.EncodingError
		cfgErr    *models.ConfigError
		llmErr    llm.LLMError
		validErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &validErrs):
		return NewValidationError("invalid request parameters", validErrs.Error())
	case errors.As(err, &inputErr), errors.As(err, &encErr), errors.As(err, &cfgErr):
		return NewValidationError(err.Error())
	case errors.Is(err, models.ErrEmptyDocument),
		errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrMissingAPIKey),
		errors.Is(err, services.ErrUnknownSection):
		return NewValidationError(err.Error())
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, taskqueue.ErrTaskNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, services.ErrQueueDisabled):
		return NewUnavailableError(err.Error())
	case errors.As(err, &llmErr):
		return NewRemoteError(llmErr.Message)
	default:
		return NewInternalError("internal server error", err.Error())
	}
}

// ErrorHandler 统一错误处理中间件
// 捕获panic，并把处理器记录的最后一个错误转换为统一响应
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					FieldError: err,
					"stack":    string(debug.Stack()),
					FieldPath:  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				errorResponse := model.NewErrorResponse(
					http.StatusInternalServerError,
					"An unexpected error occurred",
				)
				if gin.Mode() == gin.DebugMode {
					errorResponse.Message = fmt.Sprintf("Panic: %v", err)
				}
				errorResponse.TraceID = GetTraceID(c)

				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		traceID := GetTraceID(c)
		appErr := FromError(c.Errors.Last().Err)

		entry := log.WithFields(logrus.Fields{
			"error_type": appErr.Type,
			FieldTraceID: traceID,
			FieldPath:    c.Request.URL.Path,
		})
		if appErr.Code >= http.StatusInternalServerError {
			entry.WithField("details", appErr.Details).Error(appErr.Message)
		} else {
			entry.Warn(appErr.Message)
		}

		errResp := model.NewErrorResponse(appErr.Code, appErr.Message)
		errResp.TraceID = traceID
		// 内部错误的细节只在调试模式下返回
		if appErr.Details != "" && (appErr.Code < http.StatusInternalServerError || gin.Mode() == gin.DebugMode) {
			errResp.Data = gin.H{"details": appErr.Details}
		}

		c.AbortWithStatusJSON(appErr.Code, errResp)
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
