package ai

import (
	"shopassist/pkg/aiinterface"
)

// 重新导出 aiinterface 包的类型，上层只依赖 ai 包
type (
	Message                = aiinterface.Message
	ChatCompletionRequest  = aiinterface.ChatCompletionRequest
	ChatCompletionResponse = aiinterface.ChatCompletionResponse
	Usage                  = aiinterface.Usage
	EmbeddingRequest       = aiinterface.EmbeddingRequest
	EmbeddingResponse      = aiinterface.EmbeddingResponse
	Tool                   = aiinterface.Tool
	FunctionDef            = aiinterface.FunctionDef
	ToolCall               = aiinterface.ToolCall
	FunctionCall           = aiinterface.FunctionCall
	ModelClient            = aiinterface.ModelClient
	Embedder               = aiinterface.Embedder
	ClientConfig           = aiinterface.ClientConfig
	ClientError            = aiinterface.ClientError
	ErrorType              = aiinterface.ErrorType
)

const (
	RoleSystem    = aiinterface.RoleSystem
	RoleUser      = aiinterface.RoleUser
	RoleAssistant = aiinterface.RoleAssistant
	RoleTool      = aiinterface.RoleTool
)

const (
	ErrorTypeAuth          = aiinterface.ErrorTypeAuth
	ErrorTypeRateLimit     = aiinterface.ErrorTypeRateLimit
	ErrorTypeInvalidParams = aiinterface.ErrorTypeInvalidParams
	ErrorTypeServerError   = aiinterface.ErrorTypeServerError
	ErrorTypeNetwork       = aiinterface.ErrorTypeNetwork
	ErrorTypeEmpty         = aiinterface.ErrorTypeEmpty
	ErrorTypeUnknown       = aiinterface.ErrorTypeUnknown
)
