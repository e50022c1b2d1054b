// Package retry 提供有界重试与指数退避
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"shopassist/pkg/aiinterface"
	"shopassist/pkg/httputil"
)

// Policy 重试策略
type Policy struct {
	// MaxAttempts 总尝试次数（含首次），<=1 表示不重试
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Multiplier 退避倍数，<=1 时按 2 处理
	Multiplier float64

	Jitter bool

	// RetryIf 判断错误是否可重试，为空时使用 IsTransient
	RetryIf func(error) bool
}

// Default 默认策略：失败后重试一次
func Default() Policy {
	return Policy{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// None 不重试
func None() Policy {
	return Policy{MaxAttempts: 1}
}

// Do 按策略执行 fn；上下文结束时立即返回
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = IsTransient
	}
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	delay := p.InitialDelay
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := delay
			if p.Jitter && wait > 0 {
				wait = wait/2 + time.Duration(rand.Int63n(int64(wait/2)+1))
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("重试已取消: %w", errors.Join(ctx.Err(), lastErr))
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * multiplier)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !retryIf(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// IsTransient 判断是否为瞬时故障：限流、5xx、网络错误或单次调用超时
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ce *aiinterface.ClientError
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}

	var se *httputil.StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}

	var ne net.Error
	return errors.As(err, &ne)
}
