package model

import (
	"mime/multipart"
)

// UploadRequest 文档上传请求
type UploadRequest struct {
	File          *multipart.FileHeader `form:"file" binding:"required"`                    // 文件对象
	ChunkStrategy string                `form:"chunk_strategy" json:"chunk_strategy"`       // 分块策略，默认paragraph
	APIKey        string                `form:"api_key" json:"api_key" binding:"omitempty"` // 可选的模型API密钥
}

// CompressRequest 文本压缩请求
type CompressRequest struct {
	Text          string `json:"text"`                                         // 文档文本，可以为空
	ChunkStrategy string `json:"chunk_strategy"`                               // 分块策略
	MaxItems      int    `json:"max_items" binding:"omitempty,min=1,max=1000"` // 执行摘要最多返回的条数
}

// TraceabilityRequest 溯源查询请求
type TraceabilityRequest struct {
	Text          string `json:"text"`                                              // 文档文本
	ChunkStrategy string `json:"chunk_strategy"`                                    // 分块策略
	StatementID   string `json:"statement_id" binding:"omitempty,startswith=stmt_"` // 可选的陈述ID
}

// CompareRequest 文档比较请求
type CompareRequest struct {
	Doc1          string `json:"doc1" binding:"required"` // 第一份文档
	Doc2          string `json:"doc2" binding:"required"` // 第二份文档
	ChunkStrategy string `json:"chunk_strategy"`          // 分块策略
}

// BatchRequest 批量压缩请求
type BatchRequest struct {
	Documents     []string `json:"documents" binding:"required,min=1,max=50"` // 文档列表
	ChunkStrategy string   `json:"chunk_strategy"`                            // 分块策略
}

// ChatRequest 问答请求
type ChatRequest struct {
	Question string `json:"question"`                            // 问题内容
	APIKey   string `json:"api_key" binding:"omitempty,max=256"` // 可选的模型API密钥
}

// TaskRequest 异步压缩任务请求
type TaskRequest struct {
	Text          string `json:"text" binding:"required"` // 文档文本
	FileName      string `json:"filename"`                // 可选的来源文件名
	ChunkStrategy string `json:"chunk_strategy"`          // 分块策略
}

// TaskURI 任务ID路径参数
type TaskURI struct {
	ID string `uri:"id" binding:"required,uuid"` // 任务ID
}
