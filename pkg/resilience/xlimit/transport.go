package xlimit

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// drainLimit 丢弃响应体时最多读取的字节数。
const drainLimit = 64 << 10

// Transport 是管线的限流阶段：在响应返回后检查服务端声明的配额。
type Transport struct {
	next    http.RoundTripper
	opts    *options
	metrics *Metrics
}

// NewTransport 创建限流阶段，next 为 nil 时使用 http.DefaultTransport。
func NewTransport(next http.RoundTripper, opts ...Option) (*Transport, error) {
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
	return &Transport{next: next, opts: o, metrics: metrics}, nil
}

// RoundTrip 实现 http.RoundTripper。
//
// 下一阶段的错误原样返回。限流头缺失、格式错误或配额耗尽时，
// 响应体被读尽并关闭，调用方只得到错误。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}

	ctx := req.Context()
	snap, err := FromResponse(resp)
	if err != nil {
		discard(resp)
		outcome := outcomeInvalidValues
		var he *HeaderError
		if errors.As(err, &he) {
			outcome = outcomeHeaderMissing
		}
		t.metrics.RecordResponse(ctx, outcome, nil)
		t.opts.logger.WarnContext(ctx, "xlimit: unreadable rate limit header",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.Any("error", err),
		)
		return nil, err
	}

	if t.opts.onSnapshot != nil {
		t.opts.onSnapshot(snap)
	}

	if snap.Exhausted() {
		discard(resp)
		t.metrics.RecordResponse(ctx, outcomeDenied, &snap)
		limitErr := &LimitError{Limit: snap.Limit, Remaining: snap.Remaining}
		t.opts.logger.WarnContext(ctx, "xlimit: rate limit exhausted",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("limit", snap.Limit),
			slog.Int("remaining", snap.Remaining),
		)
		if t.opts.onDeny != nil {
			t.opts.onDeny(limitErr)
		}
		return nil, limitErr
	}

	t.metrics.RecordResponse(ctx, outcomeOK, &snap)
	t.opts.logger.DebugContext(ctx, "xlimit: budget",
		slog.String("path", req.URL.Path),
		slog.Int("limit", snap.Limit),
		slog.Int("remaining", snap.Remaining),
	)
	return resp, nil
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, drainLimit) //nolint:errcheck // 仅为复用连接
	_ = resp.Body.Close()                              //nolint:errcheck // 响应被丢弃
}

var _ http.RoundTripper = (*Transport)(nil)
