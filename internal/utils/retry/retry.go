package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Policy 有界重试策略：最多 Retries+1 次，等待 InitialDelay*Factor^n
type Policy struct {
	Retries      int
	InitialDelay time.Duration
	Factor       float64
}

// DefaultPolicy 3 次重试，500ms 起步，倍数 2
func DefaultPolicy() Policy {
	return Policy{Retries: 3, InitialDelay: 500 * time.Millisecond, Factor: 2}
}

// Delay 第 attempt 次失败后的等待时间（attempt 从 0 开始）
func (p Policy) Delay(attempt int) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(attempt)))
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 标记不可重试的错误（如 4xx），Do 立即返回
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent 是否为 Permanent 包装的错误
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do 按策略执行 fn，直到成功、遇到 Permanent 错误、ctx 结束或次数耗尽
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == retries {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("重试 %d 次后仍失败: %w", retries, lastErr)
}
