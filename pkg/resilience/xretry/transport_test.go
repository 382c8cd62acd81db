package xretry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// closeTracker 记录响应体是否被关闭。
type closeTracker struct {
	io.Reader
	closed atomic.Bool
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return nil
}

func statusResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// sequence 依次返回给定状态码，超出后重复最后一个。
func sequence(calls *atomic.Int32, codes ...int) http.RoundTripper {
	return roundTripperFunc(func(*http.Request) (*http.Response, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(codes) {
			i = len(codes) - 1
		}
		return statusResponse(codes[i], http.StatusText(codes[i])), nil
	})
}

func newGet(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		"https://api.appstoreconnect.apple.com/v1/apps", nil)
	require.NoError(t, err)
	return req
}

func TestTransport_RetryBoundReturnsFinalResponse(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5} {
		var calls atomic.Int32
		rt := NewTransport(sequence(&calls, http.StatusServiceUnavailable),
			WithRetryPolicy(UpToAttempts(n)),
			WithBackoffPolicy(NoDelay()),
		)

		resp, err := rt.RoundTrip(newGet(t))
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, int32(n), calls.Load(), "n=%d", n)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "Service Unavailable", string(body))
		_ = resp.Body.Close()
	}
}

func TestTransport_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	timer := &recordingTimer{}
	rt := NewTransport(sequence(&calls, 500, 429, 200), WithTimer(timer))

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, time.Second}, timer.Delays())
}

func TestTransport_NoDelayBeforeFirstAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	timer := &recordingTimer{}
	rt := NewTransport(sequence(&calls, 200), WithTimer(timer))

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, timer.Delays())
}

func TestTransport_DiscardsIntermediateResponses(t *testing.T) {
	t.Parallel()

	var bodies []*closeTracker
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		b := &closeTracker{Reader: strings.NewReader("busy")}
		bodies = append(bodies, b)
		return &http.Response{StatusCode: 503, Body: b}, nil
	}), WithBackoffPolicy(NoDelay()))

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	require.Len(t, bodies, 3)
	assert.True(t, bodies[0].closed.Load())
	assert.True(t, bodies[1].closed.Load())
	assert.False(t, bodies[2].closed.Load())
	_ = resp.Body.Close()
}

func TestTransport_NonMatchingStatusNotRetried(t *testing.T) {
	t.Parallel()

	for _, code := range []int{200, 400, 404, 600} {
		var calls atomic.Int32
		rt := NewTransport(sequence(&calls, code), WithBackoffPolicy(NoDelay()))

		resp, err := rt.RoundTrip(newGet(t))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, code, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load(), "status %d", code)
	}
}

func TestTransport_CustomSignals(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(sequence(&calls, 409, 200),
		WithSignals(StatusCode(409)),
		WithBackoffPolicy(NoDelay()),
	)

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, Signals{StatusCode(409)}, rt.Signals())
}

func TestTransport_NeverPolicy(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(sequence(&calls, 503, 200), WithRetryPolicy(Never()))

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_NonReplayableBodySentOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(sequence(&calls, 503, 200), WithBackoffPolicy(NoDelay()))

	req, err := http.NewRequest(http.MethodPost, "https://api.appstoreconnect.apple.com/v1/apps",
		io.NopCloser(strings.NewReader(`{"data":{}}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)
	require.False(t, Replayable(req))

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_ReplaysBody(t *testing.T) {
	t.Parallel()

	var seen []string
	rt := NewTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		seen = append(seen, string(b))
		if len(seen) < 3 {
			return statusResponse(500, ""), nil
		}
		return statusResponse(201, ""), nil
	}), WithBackoffPolicy(NoDelay()))

	req, err := http.NewRequest(http.MethodPost, "https://api.appstoreconnect.apple.com/v1/apps",
		bytes.NewReader([]byte(`{"data":{}}`)))
	require.NoError(t, err)
	require.True(t, Replayable(req))

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, []string{`{"data":{}}`, `{"data":{}}`, `{"data":{}}`}, seen)
}

func TestTransport_RewindFailureIsTerminal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(sequence(&calls, 503), WithBackoffPolicy(NoDelay()))

	rewind := errors.New("body gone")
	req, err := http.NewRequest(http.MethodPost, "https://api.appstoreconnect.apple.com/v1/apps",
		strings.NewReader("x"))
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) { return nil, rewind }

	resp, err := rt.RoundTrip(req)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, rewind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_TransportErrorExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	cause := errors.New("connection reset by peer")
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, cause
	}), WithBackoffPolicy(NoDelay()))

	resp, err := rt.RoundTrip(newGet(t))
	assert.Nil(t, resp)
	assert.Equal(t, int32(3), calls.Load())
	assert.ErrorIs(t, err, ErrMaxAttemptsReached)
	assert.ErrorIs(t, err, cause)

	var ee *ExhaustedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.Attempts)
}

func TestTransport_TransportErrorThenSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("dial tcp: i/o timeout")
		}
		return statusResponse(200, "ok"), nil
	}), WithBackoffPolicy(NoDelay()))

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransport_TransportErrorWithoutSignal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	cause := errors.New("connection refused")
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, cause
	}), WithSignals(StatusCode(429), StatusRange(500, 600)), WithBackoffPolicy(NoDelay()))

	_, err := rt.RoundTrip(newGet(t))
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMaxAttemptsReached)
	assert.Equal(t, int32(1), calls.Load())
}

// terminalError 模拟下游阶段声明的不可重试错误。
type terminalError struct{}

func (terminalError) Error() string   { return "quota exhausted" }
func (terminalError) Retryable() bool { return false }

func TestTransport_NonRetryableErrorPassesThrough(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, terminalError{}
	}), WithBackoffPolicy(NoDelay()))

	_, err := rt.RoundTrip(newGet(t))
	var te terminalError
	assert.ErrorAs(t, err, &te)
	assert.NotErrorIs(t, err, ErrMaxAttemptsReached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_NilResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, nil
	}), WithBackoffPolicy(NoDelay()))

	resp, err := rt.RoundTrip(newGet(t))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNilResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_ContextCanceledDuringDelay(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			time.AfterFunc(10*time.Millisecond, cancel)
		}
		return statusResponse(503, ""), nil
	}), WithBackoffPolicy(ConstantDelay(time.Hour)))

	req := newGet(t).WithContext(ctx)
	start := time.Now()
	resp, err := rt.RoundTrip(req)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestTransport_ContextCanceledBetweenAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := NewTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		cancel()
		return statusResponse(500, ""), nil
	}), WithBackoffPolicy(NoDelay()))

	_, err := rt.RoundTrip(newGet(t).WithContext(ctx))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

// TestTransport_DelayDoesNotBlockOtherCalls 一个调用处于重试等待时，
// 同一个 Transport 上的其他调用照常完成。
func TestTransport_DelayDoesNotBlockOtherCalls(t *testing.T) {
	t.Parallel()

	waiting := make(chan struct{})
	var slowCalls atomic.Int32
	rt := NewTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/slow" {
			if slowCalls.Add(1) == 1 {
				close(waiting)
			}
			return statusResponse(http.StatusServiceUnavailable, ""), nil
		}
		return statusResponse(http.StatusOK, "ok"), nil
	}), WithBackoffPolicy(ConstantDelay(time.Hour)))

	slowCtx, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()
	slowDone := make(chan error, 1)
	go func() {
		req, err := http.NewRequestWithContext(slowCtx, http.MethodGet,
			"https://api.appstoreconnect.apple.com/slow", nil)
		if err != nil {
			slowDone <- err
			return
		}
		_, err = rt.RoundTrip(req)
		slowDone <- err
	}()
	<-waiting

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	resp, err := rt.RoundTrip(newGet(t).WithContext(ctx))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, time.Since(start), time.Second)

	select {
	case err := <-slowDone:
		t.Fatalf("slow call returned early: %v", err)
	default:
	}
	assert.Equal(t, int32(1), slowCalls.Load())

	cancelSlow()
	assert.ErrorIs(t, <-slowDone, context.Canceled)
}

func TestTransport_LogsRetries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var calls atomic.Int32
	rt := NewTransport(sequence(&calls, 503), WithBackoffPolicy(NoDelay()), WithLogger(logger))

	resp, err := rt.RoundTrip(newGet(t))
	require.NoError(t, err)
	_ = resp.Body.Close()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "xretry: retrying request"))
	assert.Contains(t, out, "attempt=1")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, "max_attempts=3")
}

func TestTransport_OverHTTP(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(srv.Client().Transport, WithBackoffPolicy(NoDelay()))}
	resp, err := client.Get(srv.URL + "/v1/apps")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}
