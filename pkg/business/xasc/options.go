package xasc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
	"github.com/omeyang/xasc/pkg/resilience/xlimit"
	"github.com/omeyang/xasc/pkg/resilience/xretry"
)

// Options 定义客户端的可选配置。
type Options struct {
	// Transport 管线最内层的基础 Transport，默认克隆 http.DefaultTransport。
	Transport http.RoundTripper

	// Logger 日志记录器，默认 slog.Default()。
	Logger *slog.Logger

	// Observer 追踪接口，默认 NoopObserver。
	Observer xmetrics.Observer

	// MeterProvider 用于配额指标，nil 时不收集。
	MeterProvider metric.MeterProvider

	// Clock TokenCache 使用的时钟，主要用于测试。
	Clock func() time.Time

	// RetryTimer 重试等待使用的计时器，主要用于测试。
	RetryTimer xretry.Timer

	// Signals 替换默认的重试信号。
	Signals []xretry.Signal

	// OnSnapshot 每个响应解析出配额后回调。
	OnSnapshot func(xlimit.Snapshot)

	// RetryOn401 遇到 401 时丢弃缓存的 Token 并重新签发后重试一次。
	RetryOn401 bool

	// Redis 共享节流使用的客户端，由调用方关闭。
	// 为 nil 且配置了 throttle.redis_addr 时由 Client 自行创建。
	Redis redis.UniversalClient
}

// Option 定义配置客户端的函数类型。
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Logger:   slog.Default(),
		Observer: xmetrics.NoopObserver{},
	}
}

// WithTransport 设置基础 Transport。
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) {
		if rt != nil {
			o.Transport = rt
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithObserver 设置追踪接口。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *Options) {
		if observer != nil {
			o.Observer = observer
		}
	}
}

// WithMeterProvider 设置 OTel MeterProvider。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) {
		o.MeterProvider = mp
	}
}

// WithClock 设置 TokenCache 时钟。
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithRetryTimer 设置重试计时器。
func WithRetryTimer(t xretry.Timer) Option {
	return func(o *Options) {
		o.RetryTimer = t
	}
}

// WithSignals 替换默认重试信号。
func WithSignals(signals ...xretry.Signal) Option {
	return func(o *Options) {
		o.Signals = append([]xretry.Signal{}, signals...)
	}
}

// WithOnSnapshot 设置配额回调。
func WithOnSnapshot(fn func(xlimit.Snapshot)) Option {
	return func(o *Options) {
		o.OnSnapshot = fn
	}
}

// WithRedis 设置共享节流使用的 Redis 客户端。
func WithRedis(rdb redis.UniversalClient) Option {
	return func(o *Options) {
		o.Redis = rdb
	}
}

// WithRetryOn401 启用 401 后重新签发 Token 并重试一次。
func WithRetryOn401(enable bool) Option {
	return func(o *Options) {
		o.RetryOn401 = enable
	}
}
