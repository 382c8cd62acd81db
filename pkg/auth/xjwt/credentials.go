package xjwt

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	// Audience 是 App Store Connect API 要求的固定 aud 声明。
	Audience = "appstoreconnect-v1"

	// MinLifetime 是允许的最短 Token 有效期，受 NumericDate 秒级精度约束。
	MinLifetime = time.Second

	// DefaultLifetime 是 App Store Connect 接受的最长有效期。
	DefaultLifetime = 20 * time.Minute
)

// Credentials 是签发 Token 所需的凭据，构造客户端时提供一次，之后不再修改。
type Credentials struct {
	// IssuerID 对应 iss 声明。
	IssuerID string

	// KeyID 对应 JWT 头部的 kid。
	KeyID string

	// PrivateKeyPEM 是 PEM 编码的 P-256 私钥（PKCS#8 或 SEC1）。
	PrivateKeyPEM string

	// Lifetime 是每个 Token 的有效期。
	Lifetime time.Duration

	// Scopes 可选，限制 Token 可访问的请求，对应 scope 声明。
	Scopes []string
}

// Validate 校验凭据完整性，不解析私钥。
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.IssuerID) == "" {
		return fmt.Errorf("%w: empty issuer id", ErrMissingCredentials)
	}
	if strings.TrimSpace(c.KeyID) == "" {
		return fmt.Errorf("%w: empty key id", ErrMissingCredentials)
	}
	if strings.TrimSpace(c.PrivateKeyPEM) == "" {
		return fmt.Errorf("%w: empty private key", ErrMissingCredentials)
	}
	if c.Lifetime < MinLifetime {
		return fmt.Errorf("%w: got %s", ErrInvalidLifetime, c.Lifetime)
	}
	return nil
}

// String 返回不含私钥的描述。
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{IssuerID:%s KeyID:%s Lifetime:%s PrivateKey:[REDACTED]}",
		c.IssuerID, c.KeyID, c.Lifetime)
}

// LogValue 实现 slog.LogValuer，私钥始终脱敏。
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer_id", c.IssuerID),
		slog.String("key_id", c.KeyID),
		slog.Duration("lifetime", c.Lifetime),
		slog.String("private_key", "[REDACTED]"),
	)
}

// LoadPrivateKey 读取 App Store Connect 下载的 .p8 私钥文件。
func LoadPrivateKey(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 路径来自调用方配置
	if err != nil {
		return "", fmt.Errorf("xjwt: read private key %q: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("%w: empty key file %q", ErrMissingCredentials, path)
	}
	return string(data), nil
}
