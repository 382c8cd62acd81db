package xretry

import (
	"log/slog"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
)

// Timer 是 retry-go 用于等待的计时器接口，测试中可替换。
type Timer = retry.Timer

// options 是 Retryer 与 Transport 共用的配置。
type options struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, err error)
	timer         Timer

	// 以下仅 Transport 使用
	signals  Signals
	logger   *slog.Logger
	observer xmetrics.Observer
}

// Option 配置 Retryer 或 Transport。
type Option func(*options)

// WithRetryPolicy 设置重试策略，nil 被忽略。
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.retryPolicy = p
		}
	}
}

// WithBackoffPolicy 设置延迟策略，nil 被忽略。
func WithBackoffPolicy(p BackoffPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.backoffPolicy = p
		}
	}
}

// WithOnRetry 设置重试回调，attempt 为刚失败的尝试序号（从 1 开始）。
func WithOnRetry(f func(attempt int, err error)) Option {
	return func(o *options) {
		if f != nil {
			o.onRetry = f
		}
	}
}

// WithTimer 替换等待使用的计时器，主要用于测试。
func WithTimer(t Timer) Option {
	return func(o *options) {
		if t != nil {
			o.timer = t
		}
	}
}

// WithSignals 设置 Transport 的重试信号，替换默认值。
// 不传任何信号表示不基于任何结果重试。
func WithSignals(signals ...Signal) Option {
	return func(o *options) {
		o.signals = append(Signals(nil), signals...)
	}
}

// WithLogger 设置 Transport 的日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置 Transport 的可观测性接口。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
