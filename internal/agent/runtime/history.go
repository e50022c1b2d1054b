package runtime

import (
	"unicode/utf8"

	"shopassist/internal/ai"
	"shopassist/internal/logger"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// 每条消息的角色等额外开销
const messageOverhead = 4

// TokenCounter 估算单条消息的 token 数
type TokenCounter func(msg ai.Message) int

// NewTokenCounter 使用模型对应的 tiktoken 编码；编码不可用时按字符数估算
func NewTokenCounter(model string) TokenCounter {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		logger.Warn("tiktoken 编码不可用，改用字符估算", zap.String("model", model), zap.Error(err))
		return EstimateTokens
	}

	return func(msg ai.Message) int {
		n := messageOverhead + len(tkm.Encode(msg.Content, nil, nil))
		for _, tc := range msg.ToolCalls {
			n += len(tkm.Encode(tc.Function.Name, nil, nil)) + len(tkm.Encode(tc.Function.Arguments, nil, nil))
		}
		return n
	}
}

// EstimateTokens 约 4 个字符一个 token
func EstimateTokens(msg ai.Message) int {
	chars := utf8.RuneCountInString(msg.Content)
	for _, tc := range msg.ToolCalls {
		chars += utf8.RuneCountInString(tc.Function.Name) + utf8.RuneCountInString(tc.Function.Arguments)
	}
	return messageOverhead + (chars+3)/4
}

// TrimHistory 按 token 预算截断历史
// 只在 user 消息处切分，工具调用与其结果不会被拆开；最后一段（当前轮）总是保留
func TrimHistory(history []ai.Message, maxTokens int, count TokenCounter) []ai.Message {
	if maxTokens <= 0 || len(history) == 0 {
		return history
	}
	if count == nil {
		count = EstimateTokens
	}

	// 每段从一条 user 消息开始
	var starts []int
	for i, msg := range history {
		if msg.Role == ai.RoleUser || i == 0 {
			if len(starts) == 0 || starts[len(starts)-1] != i {
				starts = append(starts, i)
			}
		}
	}

	total := 0
	keepFrom := len(history)
	for s := len(starts) - 1; s >= 0; s-- {
		end := len(history)
		if s+1 < len(starts) {
			end = starts[s+1]
		}
		segment := 0
		for _, msg := range history[starts[s]:end] {
			segment += count(msg)
		}
		if total+segment > maxTokens && keepFrom < len(history) {
			break
		}
		total += segment
		keepFrom = starts[s]
	}
	return history[keepFrom:]
}
