package llm

// MessageRole 问答历史中的发言方
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message 问答历史中的一条消息，拼入提示词时使用
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Response 一次生成的结果
type Response struct {
	Text       string // 去除首尾空白后的文本
	TokenCount int    // 提供方报告的总token数，未报告时为0
	ModelName  string
}

// 各提供方的默认模型
const (
	ModelGeminiFlash = "gemini-2.5-flash"
	ModelGPT4oMini   = "gpt-4o-mini"
	ModelQwenTurbo   = "qwen-turbo"
)

// 提供方名称，与配置项 llm.provider 对应
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderTongyi = "tongyi"
)
