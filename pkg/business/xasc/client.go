package xasc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xasc/pkg/auth/xjwt"
	"github.com/omeyang/xasc/pkg/observability/xmetrics"
	"github.com/omeyang/xasc/pkg/resilience/xlimit"
	"github.com/omeyang/xasc/pkg/resilience/xretry"
)

// maxResponseSize 最大响应体大小（10MB）。
const maxResponseSize = 10 * 1024 * 1024

// maxRedirects 与 net/http 默认的重定向上限一致。
const maxRedirects = 10

// Client App Store Connect API 客户端，并发安全。
type Client struct {
	http       *http.Client
	baseURL    string
	cache      *xjwt.TokenCache
	logger     *slog.Logger
	observer   xmetrics.Observer
	retryOn401 bool
	budget     atomic.Pointer[xlimit.Snapshot]

	// ownedRedis 由 Client 创建的 Redis 客户端，Close 时关闭
	ownedRedis redis.UniversalClient
}

// NewClient 校验配置、解析私钥并组装请求管线。
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	signer, err := xjwt.NewSigner(creds)
	if err != nil {
		return nil, err
	}
	cache, err := xjwt.NewTokenCache(signer,
		xjwt.WithClock(o.Clock),
		xjwt.WithLogger(o.Logger),
		xjwt.WithObserver(o.Observer),
	)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cache:      cache,
		logger:     o.Logger,
		observer:   o.Observer,
		retryOn401: o.RetryOn401,
	}

	rt, err := c.buildChain(cfg, o)
	if err != nil {
		_ = c.Close() //nolint:errcheck // 构造失败，尽力释放
		return nil, err
	}
	c.http = &http.Client{
		Transport:     rt,
		Timeout:       cfg.Timeout,
		CheckRedirect: c.checkRedirect,
	}
	return c, nil
}

// checkRedirect 只跟随 BaseURL 之下的重定向。
// 认证阶段位于 Transport 内，会为每一跳附加 Token，跨主机跳转必须在此拦截。
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("xasc: stopped after %d redirects", maxRedirects)
	}
	_, err := c.buildURL(req.URL.String())
	return err
}

// buildChain 由内向外组装：基础 Transport → 节流 → 限流 → 重试 → 认证。
func (c *Client) buildChain(cfg *Config, o *Options) (http.RoundTripper, error) {
	base := o.Transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Throttle.PerHour > 0 {
		limiter, err := c.newLimiter(cfg, o)
		if err != nil {
			return nil, err
		}
		base, err = xlimit.NewThrottle(base, limiter,
			xlimit.WithObserver(o.Observer),
			xlimit.WithMeterProvider(o.MeterProvider),
		)
		if err != nil {
			return nil, err
		}
	}

	onSnapshot := o.OnSnapshot
	limited, err := xlimit.NewTransport(base,
		xlimit.WithLogger(o.Logger),
		xlimit.WithObserver(o.Observer),
		xlimit.WithMeterProvider(o.MeterProvider),
		xlimit.WithOnSnapshot(func(s xlimit.Snapshot) {
			c.budget.Store(&s)
			if onSnapshot != nil {
				onSnapshot(s)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	var backoff xretry.BackoffPolicy = xretry.NoDelay()
	if cfg.Retry.Delay > 0 {
		backoff = xretry.ConstantDelay(cfg.Retry.Delay)
	}
	retryOpts := []xretry.Option{
		xretry.WithRetryPolicy(xretry.UpToAttempts(cfg.Retry.MaxAttempts)),
		xretry.WithBackoffPolicy(backoff),
		xretry.WithLogger(o.Logger),
		xretry.WithObserver(o.Observer),
		xretry.WithTimer(o.RetryTimer),
	}
	if o.Signals != nil {
		retryOpts = append(retryOpts, xretry.WithSignals(o.Signals...))
	}
	retried := xretry.NewTransport(limited, retryOpts...)

	return xjwt.NewTransport(c.cache, retried)
}

// newLimiter 选择节流实现：配置了 Redis 时使用共享节流，否则使用进程内令牌桶。
func (c *Client) newLimiter(cfg *Config, o *Options) (xlimit.Waiter, error) {
	rdb := o.Redis
	if rdb == nil && cfg.Throttle.RedisAddr != "" {
		c.ownedRedis = redis.NewClient(&redis.Options{
			Addr:     cfg.Throttle.RedisAddr,
			Password: cfg.Throttle.RedisPassword,
			DB:       cfg.Throttle.RedisDB,
		})
		rdb = c.ownedRedis
	}
	if rdb == nil {
		return xlimit.NewHourlyLimiter(cfg.Throttle.PerHour, cfg.Throttle.Burst)
	}
	return xlimit.NewSharedLimiter(rdb, cfg.Auth.KeyID, cfg.Throttle.PerHour, cfg.Throttle.Burst)
}

// Close 释放 Client 自行创建的资源。注入的 Transport 与 Redis 客户端不会被关闭。
func (c *Client) Close() error {
	if c.ownedRedis == nil {
		return nil
	}
	err := c.ownedRedis.Close()
	c.ownedRedis = nil
	return err
}

// =============================================================================
// 请求方法
// =============================================================================

// Do 通过管线发送原始请求，调用方负责关闭响应体。非 2xx 响应不会转为错误。
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	return c.http.Do(req)
}

// Get 发送 GET 请求，响应解码到 out（可为 nil）。
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.request(ctx, http.MethodGet, path, nil, out)
}

// Post 发送 POST 请求，body 序列化为 JSON。
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPost, path, body, out)
}

// Patch 发送 PATCH 请求，body 序列化为 JSON。
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPatch, path, body, out)
}

// Delete 发送 DELETE 请求。
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

// Token 返回当前可用的 Token，必要时签发新 Token。
func (c *Client) Token(ctx context.Context) (xjwt.SignedToken, error) {
	return c.cache.GetToken(ctx)
}

// TokenStats 返回 Token 缓存统计。
func (c *Client) TokenStats() xjwt.CacheStats {
	return c.cache.Stats()
}

// Budget 返回最近一次响应声明的配额，尚无响应时 ok 为 false。
func (c *Client) Budget() (xlimit.Snapshot, bool) {
	s := c.budget.Load()
	if s == nil {
		return xlimit.Snapshot{}, false
	}
	return *s, true
}

// request 发送 JSON 请求。path 可以是相对路径或完整 URL（分页链接）。
func (c *Client) request(ctx context.Context, method, path string, body, out any) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := c.buildURL(path)
	if err != nil {
		return err
	}

	// 每次调用（含全部重试）一个 ID，用于关联日志与追踪
	reqID := uuid.NewString()
	urlPath := sanitizeURL(target)
	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpRequest,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrRequestID, reqID),
			xmetrics.String(MetricsAttrHTTPMethod, method),
			xmetrics.String(MetricsAttrHTTPPath, urlPath),
		},
	})
	start := time.Now()
	status := 0
	defer func() {
		result := xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Int(MetricsAttrHTTPStatus, status)}}
		if xlimit.IsDenied(err) {
			result.Status = xmetrics.StatusDenied
		}
		span.End(result)
		c.logger.DebugContext(ctx, "xasc: request completed",
			slog.String("request_id", reqID),
			slog.String("method", method),
			slog.String("path", urlPath),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
	}()

	payload, err := encodeBody(body)
	if err != nil {
		return err
	}

	status, err = c.send(ctx, method, target, payload, out)
	if c.retryOn401 && errors.Is(err, ErrUnauthorized) {
		c.logger.WarnContext(ctx, "xasc: unauthorized, reissuing token",
			slog.String("request_id", reqID),
			slog.String("method", method),
			slog.String("path", urlPath),
		)
		c.cache.Invalidate()
		status, err = c.send(ctx, method, target, payload, out)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, out any) (int, error) {
	var reader io.Reader
	if payload != nil {
		// bytes.Reader 让 NewRequest 设置 GetBody，请求体可被重试阶段重放
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("xasc: create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Close 错误无法传播

	return resp.StatusCode, handleResponse(resp, out)
}

// buildURL 构建请求 URL。baseURL 不含尾部斜杠，path 以斜杠开头。
// 绝对 URL（如分页链接）必须位于 baseURL 之下。
func (c *Client) buildURL(path string) (string, error) {
	if isAbsoluteURL(path) {
		if path != c.baseURL && !strings.HasPrefix(path, c.baseURL+"/") {
			return "", fmt.Errorf("%w: %s", ErrForeignURL, sanitizeURL(path))
		}
		return path, nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path, nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case json.RawMessage:
		return v, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("xasc: marshal request body failed: %w", err)
		}
		return data, nil
	}
}

// handleResponse 读取响应体（最多 maxResponseSize），非 2xx 转为 *APIError。
func handleResponse(resp *http.Response, out any) error {
	lr := &io.LimitedReader{R: resp.Body, N: maxResponseSize + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return fmt.Errorf("xasc: read response body failed: %w", err)
	}
	if len(data) > maxResponseSize {
		return fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("xasc: unmarshal response failed: %w", err)
		}
	}
	return nil
}

// parseAPIError 解析 App Store Connect 错误文档，解析失败时 Errors 为空。
func parseAPIError(statusCode int, data []byte) error {
	var doc struct {
		Errors []ErrorItem `json:"errors"`
	}
	_ = json.Unmarshal(data, &doc) //nolint:errcheck // 解析失败使用零值即可
	return &APIError{StatusCode: statusCode, Errors: doc.Errors}
}

// isAbsoluteURL 判断 path 是否为绝对 URL（大小写不敏感）。
func isAbsoluteURL(path string) bool {
	if len(path) >= 8 && strings.EqualFold(path[:8], "https://") {
		return true
	}
	return len(path) >= 7 && strings.EqualFold(path[:7], "http://")
}

// sanitizeURL 只保留路径，避免观测指标高基数问题。
func sanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		if p, _, found := strings.Cut(rawURL, "?"); found {
			return p
		}
		return rawURL
	}
	return u.Path
}
