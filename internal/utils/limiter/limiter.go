package limiter

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter 出站请求限制：同时在途数 + 每秒请求数。显式构造后注入，不使用全局实例
type Limiter struct {
	sem  *semaphore.Weighted
	rate *rate.Limiter
}

// New concurrency<=0 视为 1；ratePerSecond<=0 表示不限速
func New(concurrency int, ratePerSecond float64) *Limiter {
	if concurrency <= 0 {
		concurrency = 1
	}
	r := rate.NewLimiter(rate.Inf, 1)
	if ratePerSecond > 0 {
		burst := int(ratePerSecond)
		if burst < 1 {
			burst = 1
		}
		r = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(concurrency)), rate: r}
}

// Do 获取并发名额并等待速率令牌后执行 fn
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("等待并发名额失败: %w", err)
	}
	defer l.sem.Release(1)

	if err := l.rate.Wait(ctx); err != nil {
		return fmt.Errorf("等待限速令牌失败: %w", err)
	}
	return fn(ctx)
}
