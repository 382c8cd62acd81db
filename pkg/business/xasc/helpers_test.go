package xasc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xasc/pkg/resilience/xlimit"
)

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func testConfig(t *testing.T, baseURL, keyPEM string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.AllowInsecure = true
	cfg.Timeout = 10 * time.Second
	cfg.Retry.Delay = 0
	cfg.Auth.IssuerID = "57246542-96fe-1a63-e053-0824d011072a"
	cfg.Auth.KeyID = "2X9R4HXF34"
	cfg.Auth.PrivateKey = keyPEM
	return cfg
}

// fakeAPI 模拟 App Store Connect：校验 Bearer Token 并在每个响应上附加配额头。
type fakeAPI struct {
	t         *testing.T
	key       *ecdsa.PrivateKey
	remaining atomic.Int64
	hits      atomic.Int32
	handler   http.HandlerFunc
}

func newFakeAPI(t *testing.T, key *ecdsa.PrivateKey, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	api := &fakeAPI{t: t, key: key, handler: handler}
	api.remaining.Store(3600)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.hits.Add(1)
	xlimit.Snapshot{Limit: 3600, Remaining: int(a.remaining.Add(-1))}.SetHeader(w.Header())

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	_, err := jwt.Parse(raw,
		func(*jwt.Token) (any, error) { return &a.key.PublicKey, nil },
		jwt.WithValidMethods([]string{"ES256"}),
		jwt.WithAudience("appstoreconnect-v1"),
	)
	if err != nil {
		a.t.Errorf("invalid bearer token: %v", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	a.handler(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
