package xlimit

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
)

// options 内部配置结构
type options struct {
	logger        *slog.Logger
	observer      xmetrics.Observer
	meterProvider metric.MeterProvider
	onSnapshot    func(Snapshot)
	onDeny        func(*LimitError)
}

// Option 配置选项函数
type Option func(*options)

// defaultOptions 返回默认配置
func defaultOptions() *options {
	return &options{
		logger:   slog.Default(),
		observer: xmetrics.NoopObserver{},
	}
}

// WithLogger 设置日志记录器，nil 被忽略
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置追踪接口，nil 被忽略
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithMeterProvider 设置 OTel MeterProvider，用于配额指标
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithOnSnapshot 设置成功解析配额后的回调（包括配额耗尽的响应）
func WithOnSnapshot(fn func(Snapshot)) Option {
	return func(o *options) {
		o.onSnapshot = fn
	}
}

// WithOnDeny 设置配额耗尽时的回调
func WithOnDeny(fn func(*LimitError)) Option {
	return func(o *options) {
		o.onDeny = fn
	}
}
