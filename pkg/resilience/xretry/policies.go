package xretry

import "context"

// FixedRetryPolicy 最多尝试固定次数。
type FixedRetryPolicy struct {
	maxAttempts int
}

// UpToAttempts 创建最多尝试 n 次（包含首次）的策略。n < 1 按 1 处理，等同 Never。
func UpToAttempts(n int) *FixedRetryPolicy {
	if n < 1 {
		n = 1
	}
	return &FixedRetryPolicy{maxAttempts: n}
}

func (p *FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry 在 ctx 未取消、未达上限且错误可重试时返回 true。
func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	return IsRetryable(err)
}

// NeverRetryPolicy 永不重试。
type NeverRetryPolicy struct{}

// Never 创建永不重试策略：只调用一次，结果原样返回。
func Never() NeverRetryPolicy {
	return NeverRetryPolicy{}
}

func (NeverRetryPolicy) MaxAttempts() int {
	return 1
}

func (NeverRetryPolicy) ShouldRetry(context.Context, int, error) bool {
	return false
}

var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = NeverRetryPolicy{}
)
