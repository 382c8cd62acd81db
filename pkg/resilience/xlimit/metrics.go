package xlimit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameResponsesTotal 经过检查的响应总数
	metricNameResponsesTotal = "xlimit.responses.total"
	// metricNameRemaining 最近一次响应声明的剩余配额
	metricNameRemaining = "xlimit.budget.remaining"
	// metricNameLimit 最近一次响应声明的配额上限
	metricNameLimit = "xlimit.budget.limit"
	// metricNameThrottleWait 节流等待耗时
	metricNameThrottleWait = "xlimit.throttle.wait"
)

// 检查结果取值
const (
	outcomeOK            = "ok"
	outcomeDenied        = "denied"
	outcomeHeaderMissing = "header_missing"
	outcomeInvalidValues = "invalid_values"
)

// MetricsComponent 是追踪 span 的组件名。
const MetricsComponent = "xlimit"

// MetricsOpWait 是节流等待的操作名。
const MetricsOpWait = "throttle_wait"

// Metrics 配额指标收集器
type Metrics struct {
	responsesTotal metric.Int64Counter
	remaining      metric.Int64Gauge
	limit          metric.Int64Gauge
	throttleWait   metric.Float64Histogram
}

// NewMetrics 创建指标收集器
// 如果 meterProvider 为 nil，返回 nil（不收集指标）
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xlimit")

	responsesTotal, err := meter.Int64Counter(
		metricNameResponsesTotal,
		metric.WithDescription("经过配额检查的响应数"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	remaining, err := meter.Int64Gauge(
		metricNameRemaining,
		metric.WithDescription("服务端声明的剩余配额"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	limit, err := meter.Int64Gauge(
		metricNameLimit,
		metric.WithDescription("服务端声明的小时配额"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	throttleWait, err := meter.Float64Histogram(
		metricNameThrottleWait,
		metric.WithDescription("客户端节流等待耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		responsesTotal: responsesTotal,
		remaining:      remaining,
		limit:          limit,
		throttleWait:   throttleWait,
	}, nil
}

// RecordResponse 记录一次配额检查
func (m *Metrics) RecordResponse(ctx context.Context, outcome string, snap *Snapshot) {
	if m == nil {
		return
	}

	// 使用 context.WithoutCancel 确保即使 ctx 被取消，指标仍能记录
	metricsCtx := context.WithoutCancel(ctx)

	m.responsesTotal.Add(metricsCtx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if snap != nil {
		m.remaining.Record(metricsCtx, int64(snap.Remaining))
		m.limit.Record(metricsCtx, int64(snap.Limit))
	}
}

// RecordWait 记录一次节流等待
func (m *Metrics) RecordWait(ctx context.Context, seconds float64, ok bool) {
	if m == nil {
		return
	}
	m.throttleWait.Record(context.WithoutCancel(ctx), seconds,
		metric.WithAttributes(attribute.Bool("ok", ok)))
}
