package ai

import (
	"context"
	"errors"
	"time"

	"shopassist/internal/logger"
	"shopassist/internal/metrics"

	"go.uber.org/zap"
)

// LoggingClient 记录调用日志与 Prometheus 指标的客户端包装器
type LoggingClient struct {
	client ModelClient
	model  string
}

// NewLoggingClient 创建带日志记录的客户端
func NewLoggingClient(client ModelClient, model string) *LoggingClient {
	return &LoggingClient{client: client, model: model}
}

// ChatCompletion 对话补全（带日志记录）
func (c *LoggingClient) ChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	start := time.Now()
	resp, err := c.client.ChatCompletion(ctx, req)
	latency := time.Since(start)

	model := req.Model
	if model == "" {
		model = c.model
	}
	provider := c.client.Name()

	metrics.ModelCallDuration.WithLabelValues(provider, model).Observe(latency.Seconds())

	log := logger.WithContext(ctx).With(
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Duration("latency", latency),
	)

	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(provider, model, errorLabel(err)).Inc()
		log.Warn("模型调用失败", zap.Error(err))
		return nil, err
	}

	metrics.ModelCallsTotal.WithLabelValues(provider, model, "success").Inc()
	metrics.ModelCallTokens.WithLabelValues(provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ModelCallTokens.WithLabelValues(provider, model, "completion").Add(float64(resp.Usage.CompletionTokens))

	log.Debug("模型调用完成",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.String("finish_reason", resp.FinishReason),
	)
	return resp, nil
}

// Name 返回客户端名称
func (c *LoggingClient) Name() string {
	return c.client.Name()
}

// Close 关闭客户端
func (c *LoggingClient) Close() error {
	return c.client.Close()
}

func errorLabel(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return string(ce.Type)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	return "error"
}
