package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"shopassist/pkg/aiinterface"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Client Anthropic Messages API 适配器
// 对外暴露 OpenAI 风格的消息与工具调用，内部转换为 tool_use / tool_result 块
type Client struct {
	client  anthropic.Client
	modelID string
}

// NewClient 创建 Anthropic 客户端
func NewClient(config *aiinterface.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, &aiinterface.ClientError{
			Type:    aiinterface.ErrorTypeAuth,
			Message: "Anthropic API Key 不能为空",
		}
	}

	timeout := 60 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		// 重试由上层统一控制
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Client{
		client:  anthropic.NewClient(opts...),
		modelID: config.Model,
	}, nil
}

// ChatCompletion 对话补全
func (c *Client) ChatCompletion(ctx context.Context, req *aiinterface.ChatCompletionRequest) (*aiinterface.ChatCompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.modelID
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, messages := convertMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 && req.ToolChoice != "none" {
		params.Tools = convertTools(req.Tools)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	out := &aiinterface.ChatCompletionResponse{
		ID:           message.ID,
		Model:        string(message.Model),
		FinishReason: string(message.StopReason),
		Usage: aiinterface.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			args := string(variant.Input)
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, aiinterface.ToolCall{
				ID:   variant.ID,
				Type: "function",
				Function: aiinterface.FunctionCall{
					Name:      variant.Name,
					Arguments: args,
				},
			})
		}
	}
	out.Content = text.String()

	if out.Content == "" && len(out.ToolCalls) == 0 {
		return nil, &aiinterface.ClientError{
			Type:    aiinterface.ErrorTypeEmpty,
			Message: "API 返回空响应",
		}
	}
	return out, nil
}

// Name 返回客户端名称
func (c *Client) Name() string {
	return "anthropic"
}

// Close 关闭客户端
func (c *Client) Close() error {
	return nil
}

// convertMessages 转换为 Anthropic 消息
// system 消息合并为独立字段；连续的 tool 消息合并到同一条 user 消息
func convertMessages(msgs []aiinterface.Message) (string, []anthropic.MessageParam) {
	var systemParts []string
	var result []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			result = append(result, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case aiinterface.RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case aiinterface.RoleUser:
			flushResults()
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case aiinterface.RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil || input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Function.Name,
						Input: input,
					},
				})
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}

		case aiinterface.RoleTool:
			content := msg.Content
			if content == "" {
				content = "[empty result]"
			}
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, content, false))
		}
	}
	flushResults()

	return strings.Join(systemParts, "\n\n"), result
}

// convertTools 工具定义转换，只保留 properties 与 required
func convertTools(tools []aiinterface.Tool) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))

	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.Function.Parameters["properties"],
		}
		switch required := t.Function.Parameters["required"].(type) {
		case []string:
			schema.Required = required
		case []any:
			for _, r := range required {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}

		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Function.Name,
				Description: anthropic.String(t.Function.Description),
				InputSchema: schema,
			},
		})
	}

	return result
}

func wrapError(err error) *aiinterface.ClientError {
	errType := aiinterface.ErrorTypeUnknown

	var apiErr *anthropic.Error
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		errType = aiinterface.ErrorTypeForStatus(apiErr.StatusCode)
		// 529 overloaded
		if apiErr.StatusCode == 529 {
			errType = aiinterface.ErrorTypeServerError
		}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		errType = aiinterface.ErrorTypeNetwork
	}

	return &aiinterface.ClientError{
		Type:    errType,
		Message: "Anthropic API 错误",
		Err:     err,
	}
}
