package xjwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 测试辅助
// =============================================================================

const (
	testIssuerID = "57246542-96fe-1a63-e053-0824d011072a"
	testKeyID    = "2X9R4HXF34"
)

func newTestKey(t *testing.T, curve elliptic.Curve) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)
	return key
}

// pkcs8PEM 与 App Store Connect 下载的 .p8 文件格式一致。
func pkcs8PEM(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func sec1PEM(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func testCredentials(t *testing.T, lifetime time.Duration) (Credentials, *ecdsa.PrivateKey) {
	t.Helper()
	key := newTestKey(t, elliptic.P256())
	return Credentials{
		IssuerID:      testIssuerID,
		KeyID:         testKeyID,
		PrivateKeyPEM: pkcs8PEM(t, key),
		Lifetime:      lifetime,
	}, key
}

// unsignedToken 生成结构合法但未签名的 Token，供 mock Signer 返回。
func unsignedToken(t *testing.T, exp time.Time) SignedToken {
	t.Helper()
	claims := &Claims{
		Issuer:    testIssuerID,
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(exp),
		Audience:  Audience,
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return SignedToken{Value: value, ExpiresAt: claims.ExpiresAt.Time}
}

// fakeClock 是可手动推进的时钟。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
