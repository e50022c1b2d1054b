package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"shopassist/internal/agent/parser"
	"shopassist/internal/logger"
	"shopassist/internal/metrics"
	"shopassist/pkg/httputil"
	"shopassist/pkg/retry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrToolPanic 工具处理函数 panic
var ErrToolPanic = errors.New("tool panicked")

// Call 模型发起的一次工具调用
type Call struct {
	ID        string
	Name      string
	Arguments string // 模型给出的原始 JSON
	SessionID string
}

// Result 工具执行结果；Content 为回传模型的 JSON
type Result struct {
	CallID   string
	Name     string
	Status   string
	Output   any
	Content  string
	Err      error
	Duration time.Duration
}

// Fatal 是否应终止本轮对话（调用无法解析或工具 panic）
func (r Result) Fatal() bool {
	return r.Status == StatusInvalid || r.Status == StatusPanic
}

// Executor 工具执行引擎：参数校验、超时、重试、panic 恢复、审计与指标
type Executor struct {
	registry  *Registry
	db        *gorm.DB
	validator Validator
	timeout   time.Duration
	retry     retry.Policy
	tracer    trace.Tracer
}

// ExecutorOption 执行器选项
type ExecutorOption func(*Executor)

// WithTimeout 单次尝试超时
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetry 重试策略
func WithRetry(p retry.Policy) ExecutorOption {
	return func(e *Executor) { e.retry = p }
}

// WithAudit 写入 tool_executions 审计表
func WithAudit(db *gorm.DB) ExecutorOption {
	return func(e *Executor) { e.db = db }
}

// WithValidator 替换参数校验器
func WithValidator(v Validator) ExecutorOption {
	return func(e *Executor) {
		if v != nil {
			e.validator = v
		}
	}
}

// NewExecutor 创建执行器
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:  registry,
		validator: DefaultValidator{},
		timeout:   10 * time.Second,
		retry:     retry.Default(),
		tracer:    otel.Tracer("shopassist/internal/tools"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry 执行器使用的注册表
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute 执行单个工具调用；失败不会返回 error，而是体现在 Result 中
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	ctx, span := e.tracer.Start(ctx, "ToolExecute:"+call.Name, trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	started := time.Now()
	res := Result{CallID: call.ID, Name: call.Name}

	var args map[string]any
	tool, err := e.registry.Lookup(call.Name)
	if err == nil {
		args, err = decodeArguments(call.Arguments)
	}
	if err != nil {
		res.Status, res.Err = StatusInvalid, err
	} else if err := e.validator.Validate(args, tool.Schema); err != nil {
		res.Status, res.Err = StatusError, err
	} else {
		res.Output, res.Err = e.invoke(ctx, tool, args)
		switch {
		case errors.Is(res.Err, ErrToolPanic):
			res.Status = StatusPanic
		case res.Err != nil:
			res.Status = StatusError
		default:
			res.Status = StatusSuccess
		}
	}
	res.Duration = time.Since(started)

	if res.Err == nil {
		data, err := json.Marshal(res.Output)
		if err != nil {
			res.Status, res.Err = StatusError, fmt.Errorf("encode tool output: %w", err)
		} else {
			res.Content = string(data)
		}
	}
	if res.Err != nil {
		data, _ := json.Marshal(map[string]string{"error": failureReason(res.Err)})
		res.Content = string(data)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Status)
		logger.WithContext(ctx).Warn("工具调用失败",
			zap.String("tool", call.Name),
			zap.String("status", res.Status),
			zap.Duration("duration", res.Duration),
			zap.Error(res.Err),
		)
	}
	span.SetAttributes(attribute.String("tool.status", res.Status))

	metrics.ToolCallsTotal.WithLabelValues(metricName(call.Name), res.Status).Inc()
	metrics.ToolCallDuration.WithLabelValues(metricName(call.Name)).Observe(res.Duration.Seconds())

	e.audit(ctx, call, args, res, started)
	return res
}

// ExecuteBatch 并发执行同一轮的全部调用，全部完成后按原顺序返回
func (e *Executor) ExecuteBatch(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c Call) {
			defer wg.Done()
			results[idx] = e.Execute(ctx, c)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (e *Executor) invoke(ctx context.Context, tool Tool, args map[string]any) (any, error) {
	var output any
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		v, err := safeCall(attemptCtx, tool, args)
		if err != nil {
			return err
		}
		output = v
		return nil
	})
	return output, err
}

func safeCall(ctx context.Context, tool Tool, args map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %s: %v", ErrToolPanic, tool.Name, r)
		}
	}()
	return tool.Call(ctx, args)
}

func (e *Executor) audit(ctx context.Context, call Call, args map[string]any, res Result, started time.Time) {
	if e.db == nil {
		return
	}

	completed := started.Add(res.Duration)
	record := &ToolExecution{
		ID:          uuid.New().String(),
		SessionID:   call.SessionID,
		CallID:      call.ID,
		ToolName:    call.Name,
		Input:       datatypes.JSONMap(args),
		Status:      res.Status,
		StartedAt:   started,
		CompletedAt: &completed,
		Duration:    res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		msg := res.Err.Error()
		record.ErrorMessage = &msg
		record.Output = datatypes.JSONMap{"error": failureReason(res.Err)}
	} else {
		record.Output = datatypes.JSONMap{"result": json.RawMessage(res.Content)}
	}
	if record.Input == nil {
		record.Input = datatypes.JSONMap{"raw": call.Arguments}
	}

	// 审计失败不影响对话
	if err := e.db.WithContext(context.WithoutCancel(ctx)).Create(record).Error; err != nil {
		logger.WithContext(ctx).Warn("写入工具执行记录失败", zap.String("tool", call.Name), zap.Error(err))
	}
}

// decodeArguments 解析模型给出的参数；空串视为空对象
func decodeArguments(raw string) (map[string]any, error) {
	cleaned := parser.RepairJSON(raw)
	if cleaned == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(cleaned), &args); err != nil {
		return nil, fmt.Errorf("%w: arguments are not a JSON object: %v", ErrInvalidArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// failureReason 回传模型的错误说明
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return ErrProductNotFound.Error()
	case errors.Is(err, ErrUnknownTool), errors.Is(err, ErrInvalidArguments):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "the store service did not respond in time"
	}

	var se *httputil.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("the store service returned status %d", se.StatusCode)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return "the store service is unavailable"
	}
	return err.Error()
}

// metricName 限制标签基数
func metricName(name string) string {
	if Name(name).Valid() {
		return name
	}
	return "unknown"
}
