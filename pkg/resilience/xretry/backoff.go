package xretry

import "time"

// FixedBackoff 固定延迟。
type FixedBackoff struct {
	delay time.Duration
}

// ConstantDelay 创建每次重试前等待 d 的策略，负数按 0 处理。
func ConstantDelay(d time.Duration) *FixedBackoff {
	if d < 0 {
		d = 0
	}
	return &FixedBackoff{delay: d}
}

func (b *FixedBackoff) NextDelay(int) time.Duration {
	return b.delay
}

// Delay 返回配置的延迟。
func (b *FixedBackoff) Delay() time.Duration {
	return b.delay
}

// NoBackoff 立即重试。
type NoBackoff struct{}

// NoDelay 创建无延迟策略。
func NoDelay() NoBackoff {
	return NoBackoff{}
}

func (NoBackoff) NextDelay(int) time.Duration {
	return 0
}

var (
	_ BackoffPolicy = (*FixedBackoff)(nil)
	_ BackoffPolicy = NoBackoff{}
)
