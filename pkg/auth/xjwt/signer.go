package xjwt

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -source=signer.go -destination=mock_signer_test.go -package=xjwt

// Signer 签发紧凑 JWT。TokenCache 通过此接口获取新 Token。
type Signer interface {
	// Issue 以 now 作为 iat 签发 Token，exp 为 now + Lifetime。
	Issue(now time.Time) (SignedToken, error)
}

// SignedToken 是签发结果。签发后不再修改，过期即丢弃。
type SignedToken struct {
	// Value 是 header.payload.signature 形式的紧凑 Token。
	Value string

	// ExpiresAt 与 exp 声明一致（秒级）。
	ExpiresAt time.Time
}

// String 避免在日志中输出 Token 本身。
func (t SignedToken) String() string {
	return fmt.Sprintf("SignedToken{ExpiresAt:%s}", t.ExpiresAt.UTC().Format(time.RFC3339))
}

// ES256Signer 使用 P-256 私钥签名，私钥在构造时解析一次。
type ES256Signer struct {
	creds Credentials
	key   *ecdsa.PrivateKey
}

// NewSigner 校验凭据并解析私钥。
// 凭据不完整返回 ErrMissingCredentials，私钥无效返回 ErrInvalidPrivateKey。
func NewSigner(creds Credentials) (*ES256Signer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(creds.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &ES256Signer{creds: creds, key: key}, nil
}

// Issue 签发 Token。
func (s *ES256Signer) Issue(now time.Time) (SignedToken, error) {
	claims := newClaims(s.creds, now)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = s.creds.KeyID

	value, err := token.SignedString(s.key)
	if err != nil {
		return SignedToken{}, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return SignedToken{Value: value, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// KeyID 返回签名使用的 kid。
func (s *ES256Signer) KeyID() string {
	return s.creds.KeyID
}

// Issue 解析凭据中的私钥并签发一个 Token，适用于一次性签发。
// 需要重复签发时使用 NewSigner 避免每次解析私钥。
func Issue(creds Credentials, now time.Time) (SignedToken, error) {
	s, err := NewSigner(creds)
	if err != nil {
		return SignedToken{}, err
	}
	return s.Issue(now)
}

// ParsePrivateKey 解析 PEM 编码的 ECDSA 私钥，只接受 P-256 曲线。
func ParsePrivateKey(pemData string) (*ecdsa.PrivateKey, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	if key.Curve == nil || key.Curve.Params().Name != "P-256" {
		return nil, fmt.Errorf("%w: curve must be P-256", ErrInvalidPrivateKey)
	}
	return key, nil
}

var _ Signer = (*ES256Signer)(nil)
