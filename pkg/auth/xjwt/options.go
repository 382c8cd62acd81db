package xjwt

import (
	"log/slog"
	"time"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
)

// cacheOptions 定义 TokenCache 的可选配置。
type cacheOptions struct {
	clock    func() time.Time
	logger   *slog.Logger
	observer xmetrics.Observer
}

// CacheOption 定义配置 TokenCache 的函数类型。
type CacheOption func(*cacheOptions)

func defaultCacheOptions() *cacheOptions {
	return &cacheOptions{
		clock:    time.Now,
		logger:   slog.Default(),
		observer: xmetrics.NoopObserver{},
	}
}

// WithClock 设置时间来源，主要用于测试。
func WithClock(clock func() time.Time) CacheOption {
	return func(o *cacheOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置可观测性接口。
func WithObserver(observer xmetrics.Observer) CacheOption {
	return func(o *cacheOptions) {
		if observer != nil {
			o.observer = observer
		}
	}
}
