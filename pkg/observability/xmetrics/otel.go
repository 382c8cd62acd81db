package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xasc/xmetrics"
	unknownName                = "unknown"

	metricOperationTotal    = "xasc.operation.total"
	metricOperationDuration = "xasc.operation.duration"
	metricOperationActive   = "xasc.operation.active"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// instruments 是管线操作共用的指标。
type instruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	// active 为进行中的操作数，节流排队时会持续升高
	active metric.Int64UpDownCounter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	total, err := meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("pipeline operations by component, operation and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	duration, err := meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("pipeline operation duration, including retries and throttle waits"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}
	active, err := meter.Int64UpDownCounter(metricOperationActive,
		metric.WithDescription("pipeline operations in flight"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	return &instruments{total: total, duration: duration, active: active}, nil
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
// 未指定 provider 时使用 otel 全局 provider。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	inst, err := newInstruments(cfg.meterProvider.Meter(cfg.instrumentationName))
	if err != nil {
		return nil, err
	}
	return &otelObserver{
		tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName),
		inst:   inst,
	}, nil
}

type otelObserver struct {
	tracer trace.Tracer
	inst   *instruments
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := orUnknown(opts.Component)
	operation := orUnknown(opts.Operation)

	spanKind := trace.SpanKindInternal
	if opts.Kind == KindClient {
		spanKind = trace.SpanKindClient
	}

	base := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}
	ctx, span := o.tracer.Start(ctx, component+"/"+operation,
		trace.WithSpanKind(spanKind),
		trace.WithAttributes(base...),
		trace.WithAttributes(attrsToOTel(opts.Attrs)...),
	)

	metricsCtx := context.WithoutCancel(ctx)
	scope := metric.WithAttributes(base...)
	o.inst.active.Add(metricsCtx, 1, scope)

	return ctx, &otelSpan{
		span:       span,
		inst:       o.inst,
		metricsCtx: metricsCtx,
		base:       base,
		scope:      scope,
		start:      time.Now(),
	}
}

type otelSpan struct {
	span       trace.Span
	inst       *instruments
	metricsCtx context.Context
	base       []attribute.KeyValue
	scope      metric.MeasurementOption
	start      time.Time
	endOnce    sync.Once
}

// End 结束观测并记录结果。多次调用只记录一次。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.endOnce.Do(func() {
		status := ResolveStatus(result)
		setSpanStatus(s.span, status, result.Err)
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		// 请求 context 可能已取消，指标仍需记录
		withStatus := metric.WithAttributes(append(s.base, attribute.String("status", string(status)))...)
		s.inst.active.Add(s.metricsCtx, -1, s.scope)
		s.inst.total.Add(s.metricsCtx, 1, withStatus)
		s.inst.duration.Record(s.metricsCtx, time.Since(s.start).Seconds(), withStatus)
	})
}

// setSpanStatus 只有 StatusError 标记为 span 错误，取消与配额耗尽保留错误事件但不算失败。
func setSpanStatus(span trace.Span, status Status, err error) {
	if err != nil {
		span.RecordError(err)
	}
	switch status {
	case StatusError:
		msg := "operation failed"
		if err != nil {
			msg = err.Error()
		}
		span.SetStatus(codes.Error, msg)
	case StatusOK:
		span.SetStatus(codes.Ok, "")
	default:
		span.SetAttributes(attribute.String("outcome", string(status)))
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownName
	}
	return s
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		converted = append(converted, toKeyValue(attr))
	}
	return converted
}

func toKeyValue(attr Attr) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case float64:
		return attribute.Float64(attr.Key, v)
	case time.Duration:
		return attribute.Int64(attr.Key, v.Nanoseconds())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}
