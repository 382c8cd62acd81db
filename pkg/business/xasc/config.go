package xasc

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/omeyang/xasc/pkg/auth/xjwt"
	"github.com/omeyang/xasc/pkg/config/xconf"
	"github.com/omeyang/xasc/pkg/resilience/xretry"
)

// =============================================================================
// 默认值
// =============================================================================

const (
	// DefaultBaseURL App Store Connect API 地址。
	DefaultBaseURL = "https://api.appstoreconnect.apple.com"

	// DefaultTimeout 单次调用（含全部重试）的超时时间。
	DefaultTimeout = 60 * time.Second

	// EnvPrefix 环境变量前缀，例如 XASC_AUTH__KEY_ID。
	EnvPrefix = "XASC_"
)

// Config 客户端配置，字段使用 koanf 标签，可直接由 xconf 反序列化。
type Config struct {
	// BaseURL API 地址，不含尾部斜杠。
	BaseURL string `koanf:"base_url"`

	// Timeout 单次调用的总超时，0 表示不限。
	Timeout time.Duration `koanf:"timeout"`

	// AllowInsecure 允许 http:// 地址，仅用于测试。
	AllowInsecure bool `koanf:"allow_insecure"`

	Auth     AuthConfig     `koanf:"auth"`
	Retry    RetryConfig    `koanf:"retry"`
	Throttle ThrottleConfig `koanf:"throttle"`
}

// AuthConfig API 密钥配置。PrivateKey 与 PrivateKeyPath 二选一，PrivateKey 优先。
type AuthConfig struct {
	IssuerID       string        `koanf:"issuer_id"`
	KeyID          string        `koanf:"key_id"`
	PrivateKey     string        `koanf:"private_key"`
	PrivateKeyPath string        `koanf:"private_key_path"`
	Lifetime       time.Duration `koanf:"lifetime"`
	Scopes         []string      `koanf:"scopes"`
}

// RetryConfig 重试配置。MaxAttempts 包含首次，1 表示不重试。
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Delay       time.Duration `koanf:"delay"`
}

// ThrottleConfig 客户端节流配置，PerHour 为 0 时关闭。
// 设置 RedisAddr 后改用 Redis 共享节流，同一 KeyID 的所有进程共用速率。
type ThrottleConfig struct {
	PerHour int `koanf:"per_hour"`
	Burst   int `koanf:"burst"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// DefaultConfig 返回默认配置，凭据需由调用方补全。
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Auth: AuthConfig{
			Lifetime: xjwt.DefaultLifetime,
		},
		Retry: RetryConfig{
			MaxAttempts: xretry.DefaultMaxAttempts,
			Delay:       xretry.DefaultDelay,
		},
	}
}

// Defaults 以 koanf 路径形式返回默认值，用于 xconf.WithDefaults。
func Defaults() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"base_url":           d.BaseURL,
		"timeout":            d.Timeout.String(),
		"allow_insecure":     d.AllowInsecure,
		"auth.lifetime":      d.Auth.Lifetime.String(),
		"retry.max_attempts": d.Retry.MaxAttempts,
		"retry.delay":        d.Retry.Delay.String(),
		"throttle.per_hour":  0,
		"throttle.burst":     1,
		"throttle.redis_db":  0,
	}
}

// LoadConfig 依次加载默认值、配置文件（path 为空时跳过）与 XASC_ 环境变量。
func LoadConfig(path string, opts ...xconf.Option) (*Config, error) {
	opts = append([]xconf.Option{
		xconf.WithDefaults(Defaults()),
		xconf.WithEnvPrefix(EnvPrefix),
	}, opts...)

	var (
		src xconf.Config
		err error
	)
	if path == "" {
		src, err = xconf.NewFromEnv(opts...)
	} else {
		src, err = xconf.New(path, opts...)
	}
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := src.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置有效性，不读取私钥文件。
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := c.validateBaseURL(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be >= 1, got %d", ErrInvalidRetry, c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("%w: negative delay %s", ErrInvalidRetry, c.Retry.Delay)
	}
	if c.Throttle.PerHour < 0 || c.Throttle.Burst < 0 || c.Throttle.RedisDB < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidThrottle)
	}
	if strings.TrimSpace(c.Auth.PrivateKey) == "" && strings.TrimSpace(c.Auth.PrivateKeyPath) == "" {
		return fmt.Errorf("%w: private_key or private_key_path required", xjwt.ErrMissingCredentials)
	}
	// 私钥在 credentials 中解析，这里用占位值校验其余字段
	probe := c.Auth.credentials("-")
	return probe.Validate()
}

func (c *Config) validateBaseURL() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return nil
	case "http":
		if c.AllowInsecure {
			return nil
		}
		return ErrInsecureBaseURL
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
}

// Credentials 解析私钥来源并返回签名凭据。
func (c *Config) Credentials() (xjwt.Credentials, error) {
	if c == nil {
		return xjwt.Credentials{}, ErrNilConfig
	}
	key := c.Auth.PrivateKey
	if strings.TrimSpace(key) == "" {
		if c.Auth.PrivateKeyPath == "" {
			return xjwt.Credentials{}, fmt.Errorf("%w: private_key or private_key_path required", xjwt.ErrMissingCredentials)
		}
		loaded, err := xjwt.LoadPrivateKey(c.Auth.PrivateKeyPath)
		if err != nil {
			return xjwt.Credentials{}, err
		}
		key = loaded
	}
	creds := c.Auth.credentials(key)
	return creds, creds.Validate()
}

func (a AuthConfig) credentials(key string) xjwt.Credentials {
	return xjwt.Credentials{
		IssuerID:      a.IssuerID,
		KeyID:         a.KeyID,
		PrivateKeyPEM: key,
		Lifetime:      a.Lifetime,
		Scopes:        a.Scopes,
	}
}
