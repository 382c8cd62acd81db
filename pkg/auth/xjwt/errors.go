package xjwt

import "errors"

// =============================================================================
// 配置错误
// =============================================================================

var (
	// ErrMissingCredentials 表示凭据缺失（issuer、key id 或私钥为空，或未提供 Token 来源）。
	ErrMissingCredentials = errors.New("xjwt: missing credentials")

	// ErrInvalidPrivateKey 表示 PEM 无法解析为 P-256 ECDSA 私钥。
	ErrInvalidPrivateKey = errors.New("xjwt: invalid private key")

	// ErrInvalidLifetime 表示 Token 有效期小于 1 秒。
	ErrInvalidLifetime = errors.New("xjwt: token lifetime must be at least 1s")
)

// =============================================================================
// 签名错误
// =============================================================================

var (
	// ErrSigningFailed 表示签名过程失败。
	ErrSigningFailed = errors.New("xjwt: signing failed")
)
