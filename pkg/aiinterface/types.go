package aiinterface

import "context"

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message 消息结构（OpenAI 对话格式，其他提供方在适配器内转换）
type Message struct {
	Role       string     `json:"role"`                   // system, user, assistant, tool
	Content    string     `json:"content"`                // 消息内容
	Name       string     `json:"name,omitempty"`         // role=tool 时为工具名
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // 模型请求的工具调用 (role=assistant)
	ToolCallID string     `json:"tool_call_id,omitempty"` // 对应的工具调用 ID (role=tool)
}

// ChatCompletionRequest 对话补全请求
type ChatCompletionRequest struct {
	Model       string    `json:"model,omitempty"`       // 为空时使用客户端默认模型
	Messages    []Message `json:"messages"`              // 消息列表
	Temperature float64   `json:"temperature"`           // 温度参数（0-2）
	MaxTokens   int       `json:"max_tokens"`            // 最大 Token 数
	Tools       []Tool    `json:"tools,omitempty"`       // 可用工具列表（Function Calling）
	ToolChoice  string    `json:"tool_choice,omitempty"` // "auto", "none"
}

// ChatCompletionResponse 对话补全响应
type ChatCompletionResponse struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Content      string     `json:"content"`
	FinishReason string     `json:"finish_reason,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Usage        Usage      `json:"usage"`
}

// Usage Token 使用情况
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Tool 工具定义（OpenAI Function Calling 格式）
type Tool struct {
	Type     string      `json:"type"` // 固定为 "function"
	Function FunctionDef `json:"function"`
}

// FunctionDef 函数定义
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema 参数定义
}

// ToolCall 工具调用请求（模型返回）
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // 固定为 "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall 工具调用的函数名与参数
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON 格式的参数
}

// EmbeddingRequest 向量化请求
type EmbeddingRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

// EmbeddingResponse 向量化响应
type EmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Usage      Usage       `json:"usage"`
}

// ModelClient AI 模型客户端统一接口
type ModelClient interface {
	// ChatCompletion 对话补全（非流式）
	ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// Name 返回客户端名称（如 "openai", "anthropic"）
	Name() string

	// Close 关闭客户端连接
	Close() error
}

// Embedder 文本向量化接口
type Embedder interface {
	Embedding(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}

// ClientConfig 客户端配置
type ClientConfig struct {
	Provider string // openai, anthropic
	APIKey   string
	BaseURL  string
	Model    string
	OrgID    string // OpenAI
	Timeout  int    // 秒
}

// ErrorType 错误类型
type ErrorType string

const (
	ErrorTypeAuth          ErrorType = "auth"           // 认证错误
	ErrorTypeRateLimit     ErrorType = "rate_limit"     // 速率限制
	ErrorTypeInvalidParams ErrorType = "invalid_params" // 参数错误
	ErrorTypeServerError   ErrorType = "server_error"   // 服务器错误
	ErrorTypeNetwork       ErrorType = "network"        // 网络错误
	ErrorTypeEmpty         ErrorType = "empty"          // 空响应
	ErrorTypeUnknown       ErrorType = "unknown"        // 未知错误
)

// ClientError 客户端错误
type ClientError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error 实现error接口
func (e *ClientError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始错误
func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否可重试
func (e *ClientError) IsRetryable() bool {
	return e.Type == ErrorTypeRateLimit || e.Type == ErrorTypeNetwork || e.Type == ErrorTypeServerError
}

// ErrorTypeForStatus 按 HTTP 状态码归类错误
func ErrorTypeForStatus(status int) ErrorType {
	switch {
	case status == 401 || status == 403:
		return ErrorTypeAuth
	case status == 429:
		return ErrorTypeRateLimit
	case status >= 500:
		return ErrorTypeServerError
	case status >= 400:
		return ErrorTypeInvalidParams
	default:
		return ErrorTypeUnknown
	}
}
