package xlimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
)

// NewHourlyLimiter 按每小时 perHour 次创建令牌桶，burst 为突发容量。
func NewHourlyLimiter(perHour, burst int) (*rate.Limiter, error) {
	if perHour <= 0 {
		return nil, fmt.Errorf("%w: per hour must be positive, got %d", ErrInvalidRate, perHour)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), burst), nil
}

// Waiter 阻塞直到允许发送一个请求。*rate.Limiter 与 *SharedLimiter 均实现该接口。
type Waiter interface {
	Wait(ctx context.Context) error
}

// Throttle 在发送前排队等待令牌，平滑客户端请求速率。
type Throttle struct {
	next    http.RoundTripper
	limiter Waiter
	opts    *options
	metrics *Metrics
}

// NewThrottle 创建节流阶段。limiter 为 nil 时返回 ErrInvalidRate。
func NewThrottle(next http.RoundTripper, limiter Waiter, opts ...Option) (*Throttle, error) {
	if isNilWaiter(limiter) {
		return nil, fmt.Errorf("%w: nil limiter", ErrInvalidRate)
	}
	if next == nil {
		next = http.DefaultTransport
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}
	return &Throttle{next: next, limiter: limiter, opts: o, metrics: metrics}, nil
}

// RoundTrip 实现 http.RoundTripper。等待期间 ctx 取消时返回 ctx 错误并关闭请求体。
func (t *Throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := xmetrics.Start(req.Context(), t.opts.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpWait,
		Kind:      xmetrics.KindInternal,
	})
	start := time.Now()
	err := t.limiter.Wait(ctx)
	waited := time.Since(start)
	t.metrics.RecordWait(ctx, waited.Seconds(), err == nil)
	span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Duration("waited", waited)}})

	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close() //nolint:errcheck // RoundTripper 必须关闭请求体
		}
		return nil, err
	}
	return t.next.RoundTrip(req)
}

func isNilWaiter(w Waiter) bool {
	switch v := w.(type) {
	case nil:
		return true
	case *rate.Limiter:
		return v == nil
	case *SharedLimiter:
		return v == nil
	}
	return false
}

var (
	_ http.RoundTripper = (*Throttle)(nil)
	_ Waiter            = (*rate.Limiter)(nil)
)
