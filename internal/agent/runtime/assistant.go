package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopassist/internal/ai"
	"shopassist/internal/logger"
	"shopassist/internal/metrics"
	"shopassist/internal/tools"
	"shopassist/pkg/retry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrEmptyMessage 用户消息为空
	ErrEmptyMessage = errors.New("message is required")
	// ErrInvalidSession 会话 ID 格式错误
	ErrInvalidSession = errors.New("session_id must be a UUID")
)

// 单轮对话结果，同时作为指标 outcome 标签
const (
	OutcomeAnswered  = "answered"
	OutcomeApology   = "apology"
	OutcomeMaxRounds = "max_rounds"
	OutcomeError     = "error"
)

// Options 助手配置
type Options struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	MaxRounds        int           // 单轮对话内最多调用模型的次数
	ModelTimeout     time.Duration // 单次模型调用超时
	Retry            retry.Policy  // 模型调用重试策略
	HistoryMaxTokens int
	SystemPrompt     string
}

func (o *Options) withDefaults() {
	if o.MaxRounds <= 0 {
		o.MaxRounds = 5
	}
	if o.ModelTimeout <= 0 {
		o.ModelTimeout = 60 * time.Second
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = retry.Default()
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
}

// ChatRequest 一轮用户输入
type ChatRequest struct {
	SessionID string // 为空时新建会话
	Message   string
	UserID    uint // 未登录为 0
}

// ChatResult 一轮对话结果
type ChatResult struct {
	SessionID string
	Response  string
	Outcome   string
	Rounds    int
	ToolCalls []string // 按调用顺序的工具名
}

// Assistant 工具调用对话循环
type Assistant struct {
	client   ai.ModelClient
	executor *tools.Executor
	sessions SessionStore
	locker   SessionLocker
	count    TokenCounter
	opts     Options
	tracer   trace.Tracer
}

// NewAssistant 创建助手；sessions/locker 为空时使用内存实现
func NewAssistant(client ai.ModelClient, executor *tools.Executor, sessions SessionStore, locker SessionLocker, opts Options) *Assistant {
	opts.withDefaults()
	if sessions == nil {
		sessions = NewMemorySessionStore(0)
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	count := TokenCounter(EstimateTokens)
	if opts.HistoryMaxTokens > 0 {
		count = NewTokenCounter(opts.Model)
	}
	return &Assistant{
		client:   client,
		executor: executor,
		sessions: sessions,
		locker:   locker,
		count:    count,
		opts:     opts,
		tracer:   otel.Tracer("shopassist/internal/agent/runtime"),
	}
}

// History 返回会话已保存的全部消息
func (a *Assistant) History(ctx context.Context, sessionID string) ([]ai.Message, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSession
	}
	return a.sessions.Load(ctx, sessionID)
}

// Chat 处理一轮用户输入：调用模型，执行工具，直到得到最终回答
// 模型或工具故障转换为致歉回复；只有会话存储故障等内部错误才返回 error
func (a *Assistant) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSession
	}
	ctx = logger.WithSessionID(ctx, sessionID)

	ctx, span := a.tracer.Start(ctx, "Assistant.Chat", trace.WithAttributes(
		attribute.String("session_id", sessionID),
		attribute.Int("user_id", int(req.UserID)),
	))
	defer span.End()

	started := time.Now()
	unlock, err := a.locker.Lock(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		metrics.ChatTurnsTotal.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}
	defer unlock()

	history, err := a.sessions.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		span.RecordError(err)
		metrics.ChatTurnsTotal.WithLabelValues(OutcomeError).Inc()
		return nil, err
	}

	result := &ChatResult{SessionID: sessionID}
	turns := a.resolve(ctx, history, ai.Message{Role: ai.RoleUser, Content: message}, result)

	// 整轮一次性追加，失败时会话保持原状
	if err := a.sessions.Append(ctx, sessionID, turns...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append session failed")
		metrics.ChatTurnsTotal.WithLabelValues(OutcomeError).Inc()
		return nil, fmt.Errorf("保存会话失败: %w", err)
	}

	span.SetAttributes(
		attribute.String("outcome", result.Outcome),
		attribute.Int("rounds", result.Rounds),
	)
	metrics.ChatTurnsTotal.WithLabelValues(result.Outcome).Inc()
	metrics.ChatTurnDuration.Observe(time.Since(started).Seconds())
	metrics.ChatModelRounds.Observe(float64(result.Rounds))

	logger.WithContext(ctx).Info("助手对话完成",
		zap.String("outcome", result.Outcome),
		zap.Int("rounds", result.Rounds),
		zap.Strings("tools", result.ToolCalls),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

// resolve 循环调用模型并执行其请求的工具，返回本轮需要追加的消息
// 成功时包含工具调用与结果；失败时只保留用户消息与致歉，避免留下未配对的工具调用
func (a *Assistant) resolve(ctx context.Context, history []ai.Message, userMsg ai.Message, result *ChatResult) []ai.Message {
	pending := []ai.Message{userMsg}
	fail := func(outcome, reply string) []ai.Message {
		result.Outcome = outcome
		result.Response = reply
		return []ai.Message{userMsg, {Role: ai.RoleAssistant, Content: reply}}
	}

	definitions := a.executor.Registry().Definitions()
	for round := 0; round < a.opts.MaxRounds; round++ {
		result.Rounds = round + 1
		roundCtx, roundSpan := a.tracer.Start(ctx, fmt.Sprintf("Round-%d", round))

		resp, err := a.callModel(roundCtx, a.buildMessages(history, pending), definitions)
		if err != nil {
			roundSpan.RecordError(err)
			roundSpan.SetStatus(codes.Error, "AI Model call failed")
			roundSpan.End()
			logger.WithContext(ctx).Error("模型调用失败", zap.Int("round", round), zap.Error(err))
			return fail(OutcomeApology, apologyMessage)
		}

		if len(resp.ToolCalls) == 0 {
			roundSpan.End()
			answer := strings.TrimSpace(resp.Content)
			if answer == "" {
				logger.WithContext(ctx).Warn("模型返回空回复", zap.Int("round", round), zap.String("finish_reason", resp.FinishReason))
				return fail(OutcomeApology, apologyMessage)
			}
			result.Outcome = OutcomeAnswered
			result.Response = answer
			return append(pending, ai.Message{Role: ai.RoleAssistant, Content: answer})
		}

		// 最后一轮已无法再把工具结果交给模型，不再执行
		if round == a.opts.MaxRounds-1 {
			roundSpan.End()
			break
		}

		calls := make([]tools.Call, len(resp.ToolCalls))
		for i := range resp.ToolCalls {
			tc := &resp.ToolCalls[i]
			if tc.ID == "" {
				tc.ID = fmt.Sprintf("call_%d_%d", round, i)
			}
			if tc.Type == "" {
				tc.Type = "function"
			}
			calls[i] = tools.Call{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
				SessionID: result.SessionID,
			}
			result.ToolCalls = append(result.ToolCalls, tc.Function.Name)
		}
		roundSpan.SetAttributes(attribute.Int("tool_calls_count", len(calls)))

		// 同一轮的工具并发执行，全部结束后再进入下一轮
		results := a.executor.ExecuteBatch(roundCtx, calls)
		roundSpan.End()

		pending = append(pending, ai.Message{
			Role:      ai.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, res := range results {
			if res.Fatal() {
				logger.WithContext(ctx).Error("工具调用无法完成",
					zap.String("tool", res.Name),
					zap.String("status", res.Status),
					zap.Error(res.Err),
				)
				return fail(OutcomeApology, apologyMessage)
			}
			pending = append(pending, ai.Message{
				Role:       ai.RoleTool,
				Content:    res.Content,
				Name:       res.Name,
				ToolCallID: res.CallID,
			})
		}
	}

	logger.WithContext(ctx).Warn("超过最大工具调用轮次", zap.Int("max_rounds", a.opts.MaxRounds))
	return fail(OutcomeMaxRounds, fallbackMessage)
}

// buildMessages 系统提示词 + 按预算截断的历史 + 本轮消息
func (a *Assistant) buildMessages(history, pending []ai.Message) []ai.Message {
	system := ai.Message{Role: ai.RoleSystem, Content: a.opts.SystemPrompt}

	all := make([]ai.Message, 0, len(history)+len(pending))
	all = append(all, history...)
	all = append(all, pending...)

	budget := a.opts.HistoryMaxTokens
	if budget > 0 {
		budget -= a.count(system)
		if budget <= 0 {
			budget = 1
		}
	}
	trimmed := TrimHistory(all, budget, a.count)

	messages := make([]ai.Message, 0, len(trimmed)+1)
	messages = append(messages, system)
	return append(messages, trimmed...)
}

// callModel 带超时与重试的模型调用；模型客户端 panic 视为调用失败
func (a *Assistant) callModel(ctx context.Context, messages []ai.Message, definitions []ai.Tool) (*ai.ChatCompletionResponse, error) {
	req := &ai.ChatCompletionRequest{
		Model:       a.opts.Model,
		Messages:    messages,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		Tools:       definitions,
	}
	if len(definitions) > 0 {
		req.ToolChoice = "auto"
	}

	var resp *ai.ChatCompletionResponse
	err := retry.Do(ctx, a.opts.Retry, func(ctx context.Context) (err error) {
		attemptCtx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("模型客户端 panic: %v", r)
			}
		}()

		out, err := a.client.ChatCompletion(attemptCtx, req)
		if err != nil {
			return err
		}
		if out == nil {
			return &ai.ClientError{Type: ai.ErrorTypeEmpty, Message: "模型返回空响应"}
		}
		resp = out
		return nil
	})
	return resp, err
}
