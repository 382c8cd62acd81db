package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xasc/pkg/auth/xjwt"
	"github.com/omeyang/xasc/pkg/resilience/xlimit"
)

// writeConfig 生成测试私钥并写入指向 baseURL 的 JSON 配置文件。
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	cfg := map[string]any{
		"base_url":       baseURL,
		"allow_insecure": true,
		"auth": map[string]any{
			"issuer_id":   "issuer",
			"key_id":      "KEY123",
			"private_key": string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		},
		"retry": map[string]any{"max_attempts": 2, "delay": "0s"},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "xasc.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newServer(t *testing.T, remaining int, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xlimit.Snapshot{Limit: 3600, Remaining: remaining}.SetHeader(w.Header())
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := createApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err = app.Run(context.Background(), append([]string{"xascctl"}, args...))
	return out.String(), errOut.String(), err
}

func TestCreateCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range createCommands() {
		names[cmd.Name] = true
	}
	for _, name := range []string{"token", "get", "apps", "versions", "budget"} {
		assert.True(t, names[name], "missing command %q", name)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(&exitError{code: 1}))
	assert.Equal(t, 2, exitCode(&usageError{msg: "bad"}))
	assert.Equal(t, 2, exitCode(errors.New("flag provided but not defined: -x")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, "exit status 3", (&exitError{code: 3}).Error())
}

func TestTokenCommand(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	cfg := writeConfig(t, srv.URL)

	out, _, err := runApp(t, "--config", cfg, "token")
	require.NoError(t, err)
	tok := strings.TrimSpace(out)
	assert.Len(t, strings.Split(tok, "."), 3)
	assert.False(t, xjwt.IsExpired(tok, time.Now()))

	out, _, err = runApp(t, "--config", cfg, "token", "--json")
	require.NoError(t, err)
	var doc struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.Token)
	assert.NotEmpty(t, doc.ExpiresAt)
}

func TestGetCommand(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/apps/1", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	})
	cfg := writeConfig(t, srv.URL)

	out, _, err := runApp(t, "-c", cfg, "get", "/v1/apps/1")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"data\": {\n    \"id\": \"1\"\n  }\n}\n", out)

	_, _, err = runApp(t, "-c", cfg, "get")
	var usageErr *usageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestGetCommandAPIError(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"code":"NOT_FOUND","detail":"gone"}]}`))
	})
	cfg := writeConfig(t, srv.URL)

	_, _, err := runApp(t, "-c", cfg, "get", "/v1/apps/404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND: gone")
	assert.Equal(t, 1, exitCode(err))
}

func TestAppsCommand(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"type":"apps","id":"42","attributes":{"bundleId":"com.example.app","name":"Example","sku":"EX"}}],"links":{}}`))
	})
	cfg := writeConfig(t, srv.URL)

	out, _, err := runApp(t, "-c", cfg, "apps")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"ID", "BUNDLE", "ID", "NAME", "SKU"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"42", "com.example.app", "Example", "EX"}, strings.Fields(lines[1]))
}

func TestVersionsCommand(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/apps/42/appStoreVersions", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"type":"appStoreVersions","id":"v1","attributes":{"versionString":"1.2.3","appStoreState":"READY_FOR_SALE","platform":"IOS"}}],"links":{}}`))
	})
	cfg := writeConfig(t, srv.URL)

	out, _, err := runApp(t, "-c", cfg, "versions", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "READY_FOR_SALE")

	_, _, err = runApp(t, "-c", cfg, "versions")
	var usageErr *usageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestBudgetCommand(t *testing.T) {
	srv := newServer(t, 3000, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	cfg := writeConfig(t, srv.URL)

	out, _, err := runApp(t, "-c", cfg, "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "limit:     3600")
	assert.Contains(t, out, "remaining: 3000")
	assert.Contains(t, out, "used:      600")
}

func TestBudgetCommandExhausted(t *testing.T) {
	srv := newServer(t, 0, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	cfg := writeConfig(t, srv.URL)

	out, _, err := runApp(t, "-c", cfg, "budget")
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.code)
	assert.Contains(t, out, "status:    exhausted")
}

func TestInvalidLogLevel(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	cfg := writeConfig(t, srv.URL)

	_, _, err := runApp(t, "-c", cfg, "--log-level", "verbose", "token")
	assert.Equal(t, 2, exitCode(err))
}

func TestJSONLogsToFile(t *testing.T) {
	srv := newServer(t, 100, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	cfg := writeConfig(t, srv.URL)
	logFile := filepath.Join(t.TempDir(), "xascctl.log")

	_, _, err := runApp(t, "-c", cfg, "--log-level", "debug", "--log-format", "json", "--log-file", logFile, "budget")
	require.NoError(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"xascctl: rate limit budget"`)
	assert.NotContains(t, string(data), "PRIVATE KEY")
}
