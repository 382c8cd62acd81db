package xjwt

import (
	"context"
	"net/http"
)

// TokenSource 提供可直接使用的 Token，*TokenCache 实现此接口。
type TokenSource interface {
	GetToken(ctx context.Context) (SignedToken, error)
}

// Transport 是管线的认证阶段：为每个请求附加 Authorization: Bearer 头。
//
// 不做任何重试，签名失败直接作为本次调用的错误返回。
type Transport struct {
	source TokenSource
	next   http.RoundTripper
}

// NewTransport 创建认证阶段。source 为 nil 返回 ErrMissingCredentials，
// next 为 nil 时使用 http.DefaultTransport。
func NewTransport(source TokenSource, next http.RoundTripper) (*Transport, error) {
	if source == nil {
		return nil, ErrMissingCredentials
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{source: source, next: next}, nil
}

// RoundTrip 实现 http.RoundTripper。原请求不会被修改。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.source.GetToken(req.Context())
	if err != nil {
		// RoundTripper 约定：出错时也要关闭请求体
		if req.Body != nil {
			_ = req.Body.Close() //nolint:errcheck // 已有错误返回
		}
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+tok.Value)
	return t.next.RoundTrip(out)
}

var _ http.RoundTripper = (*Transport)(nil)
