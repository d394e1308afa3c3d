package model

import (
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/trace"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// SectionResponse 单个报告分区的响应
type SectionResponse struct {
	Section string      `json:"section"` // 分区名称
	Items   interface{} `json:"items"`   // 分区内容
}

// TraceabilityResponse 溯源查询响应
type TraceabilityResponse struct {
	TraceabilityMap map[string][]string `json:"traceability_map"` // 陈述ID到来源分块的映射
	Entry           *trace.Entry        `json:"entry,omitempty"`  // 指定陈述的详情
}

// BatchResponse 批量压缩响应
type BatchResponse struct {
	Total   int              `json:"total"`   // 文档数量
	Results []*models.Result `json:"results"` // 与输入顺序一致的结果
}

// StatusResponse 会话状态响应
type StatusResponse struct {
	SessionID     string `json:"session_id"`      // 会话ID
	HasDocument   bool   `json:"has_document"`    // 是否已加载文档
	FileName      string `json:"filename"`        // 文件名
	HasLLMSummary bool   `json:"has_llm_summary"` // 是否有模型摘要
	HasAPIKey     bool   `json:"has_api_key"`     // 服务端是否配置了API密钥
	AsyncEnabled  bool   `json:"async_enabled"`   // 是否启用异步任务
}

// SessionResponse 当前会话内容
type SessionResponse struct {
	SessionID  string               `json:"session_id"`            // 会话ID
	FileName   string               `json:"filename"`              // 文件名
	Result     *models.Result       `json:"result"`                // 压缩结果
	LLMSummary string               `json:"llm_summary,omitempty"` // 模型摘要
	History    []models.ChatMessage `json:"history"`               // 对话历史
}

// TaskSubmitResponse 异步任务提交响应
type TaskSubmitResponse struct {
	TaskID string `json:"task_id"` // 任务ID
	Status string `json:"status"`  // 初始状态
}
