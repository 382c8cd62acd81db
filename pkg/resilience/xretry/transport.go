package xretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
)

// drainLimit 丢弃重试前响应体时最多读取的字节数，便于连接复用。
const drainLimit = 64 << 10

// statusError 表示命中了状态码信号，仅在 Retryer 内部流转。
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("xretry: retryable status %d", e.code)
}

// Transport 是管线的重试阶段。
type Transport struct {
	next     http.RoundTripper
	signals  Signals
	opts     *options
	logger   *slog.Logger
	observer xmetrics.Observer
}

// NewTransport 创建重试阶段，next 为 nil 时使用 http.DefaultTransport。
// 默认信号 DefaultSignals()，默认策略 UpToAttempts(3)，默认延迟 ConstantDelay(1s)。
func NewTransport(next http.RoundTripper, opts ...Option) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	o := &options{
		retryPolicy:   UpToAttempts(DefaultMaxAttempts),
		backoffPolicy: ConstantDelay(DefaultDelay),
		signals:       DefaultSignals(),
		logger:        slog.Default(),
		observer:      xmetrics.NoopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Transport{
		next:     next,
		signals:  o.signals,
		opts:     o,
		logger:   o.logger,
		observer: o.observer,
	}
}

// Signals 返回生效的重试信号。
func (t *Transport) Signals() Signals {
	return append(Signals(nil), t.signals...)
}

// RoundTrip 实现 http.RoundTripper。
func (t *Transport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	maxAttempts := t.opts.retryPolicy.MaxAttempts()

	// Never 策略或不可重放的请求体：只调用一次，结果原样返回
	if maxAttempts <= 1 || !Replayable(req) {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	ctx, span := xmetrics.Start(ctx, t.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpRoundTrip,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrHTTPMethod, req.Method),
			xmetrics.String(MetricsAttrHTTPPath, req.URL.Path),
		},
	})
	attempt := 0
	defer func() {
		attrs := []xmetrics.Attr{xmetrics.Int(MetricsAttrAttempts, attempt)}
		if resp != nil {
			attrs = append(attrs, xmetrics.Int(MetricsAttrStatus, resp.StatusCode))
		}
		span.End(xmetrics.Result{Err: err, Attrs: attrs})
	}()

	o := *t.opts
	o.onRetry = func(n int, cause error) {
		t.logger.WarnContext(ctx, "xretry: retrying request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("attempt", n),
			slog.Int("max_attempts", maxAttempts),
			slog.String("reason", cause.Error()),
		)
	}
	retryer := newRetryer(&o)

	doErr := retryer.Do(ctx, func(context.Context) error {
		attempt++
		out, rtErr := t.send(req, attempt)
		if rtErr != nil {
			if !t.signals.RetriesErrors() {
				return retry.Unrecoverable(rtErr)
			}
			return rtErr
		}
		if out == nil {
			return NewPermanentError(ErrNilResponse)
		}
		if attempt < maxAttempts && t.signals.MatchStatus(out.StatusCode) {
			discard(out)
			return &statusError{code: out.StatusCode}
		}
		resp = out
		return nil
	})

	if doErr == nil {
		return resp, nil
	}
	return nil, t.finalError(ctx, doErr, attempt, maxAttempts)
}

// finalError 将 Retryer 返回的错误整理为调用方可见的错误。
func (t *Transport) finalError(ctx context.Context, err error, attempt, maxAttempts int) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		var se *statusError
		if errors.As(err, &se) || errors.Is(err, ctxErr) {
			return ctxErr
		}
	}
	if attempt >= maxAttempts && t.signals.RetriesErrors() && IsRetryable(err) {
		return &ExhaustedError{Attempts: attempt, Err: err}
	}
	return err
}

// send 发送第 attempt 次请求。首次使用原请求，之后克隆并经 GetBody 重建请求体。
func (t *Transport) send(req *http.Request, attempt int) (*http.Response, error) {
	if attempt == 1 {
		return t.next.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	if hasBody(req) {
		body, err := req.GetBody()
		if err != nil {
			return nil, NewPermanentError(fmt.Errorf("xretry: rewind request body: %w", err))
		}
		out.Body = body
	}
	return t.next.RoundTrip(out)
}

// Replayable 报告请求体是否可以在重试时重新发送。
func Replayable(req *http.Request) bool {
	return !hasBody(req) || req.GetBody != nil
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, drainLimit) //nolint:errcheck // 仅为复用连接
	_ = resp.Body.Close()                              //nolint:errcheck // 响应被丢弃
}

var _ http.RoundTripper = (*Transport)(nil)
