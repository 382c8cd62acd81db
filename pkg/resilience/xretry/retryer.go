package xretry

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// DefaultDelay 是 Retryer 与 Transport 的默认重试间隔。
const DefaultDelay = time.Second

// DefaultMaxAttempts 是默认最大尝试次数（包含首次）。
const DefaultMaxAttempts = 3

// safeUintToInt 将 retry-go 的计数 (uint) 转换为 int，超出 MaxInt 时截断。
func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}

var _ Executor = (*Retryer)(nil)

// Retryer 组合 RetryPolicy 与 BackoffPolicy，底层使用 avast/retry-go/v5。
type Retryer struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, err error)
	timer         Timer
}

// NewRetryer 创建重试执行器，默认 UpToAttempts(3) 与 ConstantDelay(1s)。
func NewRetryer(opts ...Option) *Retryer {
	o := &options{
		retryPolicy:   UpToAttempts(DefaultMaxAttempts),
		backoffPolicy: ConstantDelay(DefaultDelay),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return newRetryer(o)
}

func newRetryer(o *options) *Retryer {
	return &Retryer{
		retryPolicy:   o.retryPolicy,
		backoffPolicy: o.backoffPolicy,
		onRetry:       o.onRetry,
		timer:         o.timer,
	}
}

// Do 执行带重试的操作，返回最后一次的错误。
// 延迟期间 ctx 取消会立即返回。nil 接收者返回 ErrNilRetryer。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil {
		return ErrNilRetryer
	}
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	return retry.New(r.buildOptions(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// buildOptions 每次 Do 重建选项，RetryIf 闭包内的计数因此不会跨调用累积。
func (r *Retryer) buildOptions(ctx context.Context) []retry.Option {
	retryPolicy := r.retryPolicy
	if retryPolicy == nil {
		retryPolicy = UpToAttempts(DefaultMaxAttempts)
	}
	backoffPolicy := r.backoffPolicy
	if backoffPolicy == nil {
		backoffPolicy = ConstantDelay(DefaultDelay)
	}

	maxAttempts := retryPolicy.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	opts := make([]retry.Option, 0, 7)
	opts = append(opts,
		retry.Context(ctx),
		retry.Attempts(uint(maxAttempts)),
	)

	// attemptCount 为已失败次数（1-based），与 ShouldRetry 的 attempt 语义一致
	var attemptCount atomic.Int64
	opts = append(opts, retry.RetryIf(func(err error) bool {
		count := int(attemptCount.Add(1))
		if !retry.IsRecoverable(err) {
			return false
		}
		return retryPolicy.ShouldRetry(ctx, count, err)
	}))

	// retry-go v5 中 DelayType 的 n 从 1 开始
	opts = append(opts, retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
		return backoffPolicy.NextDelay(safeUintToInt(n))
	}))

	if r.onRetry != nil {
		// retry-go 在最后一次失败后也会回调，这里只通知真正发生的重试
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			attempt := safeUintToInt(n) + 1
			if attempt < maxAttempts {
				r.onRetry(attempt, err)
			}
		}))
	}

	if r.timer != nil {
		opts = append(opts, retry.WithTimer(r.timer))
	}

	return append(opts, retry.LastErrorOnly(true))
}

// RetryPolicy 返回当前重试策略，nil 接收者返回 nil。
func (r *Retryer) RetryPolicy() RetryPolicy {
	if r == nil {
		return nil
	}
	return r.retryPolicy
}

// BackoffPolicy 返回当前退避策略，nil 接收者返回 nil。
func (r *Retryer) BackoffPolicy() BackoffPolicy {
	if r == nil {
		return nil
	}
	return r.backoffPolicy
}
