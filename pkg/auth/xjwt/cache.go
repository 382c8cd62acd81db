package xjwt

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xasc/pkg/observability/xmetrics"
)

// =============================================================================
// TokenCache
// =============================================================================

// singleflightKey 缓存只持有一个 Token，所有未命中共享同一个 key。
const singleflightKey = "token"

// TokenCache 持有最近一次签发的 Token。
//
// 未过期时直接返回缓存值；冷启动或过期时，并发调用方经 singleflight 合并，
// 每个过期周期最多触发一次签名，其余调用方等待并获得同一个 Token。
type TokenCache struct {
	signer Signer
	opts   *cacheOptions

	mu      sync.RWMutex
	current SignedToken

	sf singleflight.Group

	issued atomic.Int64
	hits   atomic.Int64
}

// CacheStats 是 TokenCache 的计数快照。
type CacheStats struct {
	// Issued 是底层签名次数。
	Issued int64
	// Hits 是直接命中缓存的次数。
	Hits int64
}

// NewTokenCache 创建 TokenCache。signer 为 nil 时返回 ErrMissingCredentials。
func NewTokenCache(signer Signer, opts ...CacheOption) (*TokenCache, error) {
	if signer == nil {
		return nil, ErrMissingCredentials
	}
	o := defaultCacheOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &TokenCache{signer: signer, opts: o}, nil
}

// GetToken 返回未过期的 Token，必要时签发新 Token。
//
// 等待其他调用方签名期间 ctx 取消会立即返回 ctx.Err()，进行中的签名不受影响。
func (c *TokenCache) GetToken(ctx context.Context) (tok SignedToken, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpGetToken,
		Kind:      xmetrics.KindInternal,
	})
	hit := false
	defer func() {
		span.End(xmetrics.Result{
			Err:   err,
			Attrs: []xmetrics.Attr{xmetrics.Bool(MetricsAttrCacheHit, hit)},
		})
	}()

	if cached, ok := c.cached(); ok {
		c.hits.Add(1)
		hit = true
		return cached, nil
	}

	ch := c.sf.DoChan(singleflightKey, func() (any, error) {
		// double-check: 前一轮 flight 可能刚刚写入
		if cached, ok := c.cached(); ok {
			return cached, nil
		}
		return c.issue(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return SignedToken{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return SignedToken{}, res.Err
		}
		issued, ok := res.Val.(SignedToken)
		if !ok {
			return SignedToken{}, ErrSigningFailed
		}
		return issued, nil
	}
}

// Invalidate 丢弃缓存的 Token，下一次 GetToken 会重新签发。
// 用于服务端以 401 拒绝了仍在有效期内的 Token 的场景。
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.current = SignedToken{}
	c.mu.Unlock()
}

// Stats 返回计数快照。
func (c *TokenCache) Stats() CacheStats {
	return CacheStats{Issued: c.issued.Load(), Hits: c.hits.Load()}
}

func (c *TokenCache) cached() (SignedToken, bool) {
	c.mu.RLock()
	tok := c.current
	c.mu.RUnlock()

	if tok.Value == "" || IsExpired(tok.Value, c.opts.clock()) {
		return SignedToken{}, false
	}
	return tok, true
}

func (c *TokenCache) issue(ctx context.Context) (tok SignedToken, err error) {
	_, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpIssueToken,
		Kind:      xmetrics.KindInternal,
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	now := c.opts.clock()
	tok, err = c.signer.Issue(now)
	if err != nil {
		c.opts.logger.ErrorContext(ctx, "xjwt: issue token failed", slog.Any("error", err))
		return SignedToken{}, err
	}
	c.issued.Add(1)

	c.mu.Lock()
	c.current = tok
	c.mu.Unlock()

	c.opts.logger.DebugContext(ctx, "xjwt: token issued",
		slog.Time("expires_at", tok.ExpiresAt),
		slog.Duration(MetricsAttrExpiresIn, tok.ExpiresAt.Sub(now)),
	)
	return tok, nil
}
