package xretry

import (
	"context"
	"time"
)

// RetryPolicy 判断是否应该继续重试。
//
// 通过 Retryer 使用时：
//   - MaxAttempts() 设置 retry-go 的 Attempts 上限
//   - ShouldRetry() 在每次失败后被调用
//   - Unrecoverable 错误会在 ShouldRetry 之前被短路拦截
type RetryPolicy interface {
	// MaxAttempts 返回最大尝试次数（包含首次尝试），至少为 1。
	MaxAttempts() int

	// ShouldRetry 判断是否应该重试，attempt 从 1 开始。
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 计算重试间隔。
type BackoffPolicy interface {
	// NextDelay 返回第 attempt 次失败后的等待时间，attempt 从 1 开始。
	NextDelay(attempt int) time.Duration
}

// Executor 重试执行器接口。调用方需要 mock 重试时以此作为参数类型。
type Executor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
