package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// koanfConfig 是 Config 接口的 koanf 实现。
type koanfConfig struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	path   string
	format Format
	opts   *Options
}

// New 从文件路径创建配置实例。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func New(path string, opts ...Option) (Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	c := &koanfConfig{path: path, format: format, opts: applyOptions(opts)}
	k, err := c.loadFile()
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

// NewFromBytes 从字节数据创建配置实例，需要显式指定格式。
// 空数据会创建仅包含默认值与环境变量的配置。
func NewFromBytes(data []byte, format Format, opts ...Option) (Config, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}
	c := &koanfConfig{format: format, opts: applyOptions(opts)}
	var provider koanf.Provider
	if len(data) > 0 {
		provider = rawbytes.Provider(data)
	}
	k, err := c.load(provider)
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

// NewFromEnv 仅从默认值与环境变量创建配置实例。
func NewFromEnv(opts ...Option) (Config, error) {
	c := &koanfConfig{opts: applyOptions(opts)}
	k, err := c.load(nil)
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

// Client 返回底层的 koanf 实例。
func (c *koanfConfig) Client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

// Unmarshal 将指定路径的配置反序列化到目标结构体。
func (c *koanfConfig) Unmarshal(path string, target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{
		Tag: c.opts.Tag,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Reload 重新加载全部配置层。
func (c *koanfConfig) Reload() error {
	if c.path == "" {
		return ErrReloadUnsupported
	}
	k, err := c.loadFile()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	return nil
}

// Path 返回配置文件路径。
func (c *koanfConfig) Path() string {
	return c.path
}

// Format 返回配置格式。
func (c *koanfConfig) Format() Format {
	return c.format
}

// =============================================================================
// 内部辅助函数
// =============================================================================

func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// loadFile 先确认文件可读，区分读取失败与解析失败。
func (c *koanfConfig) loadFile() (*koanf.Koanf, error) {
	if _, err := os.Stat(c.path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return c.load(file.Provider(c.path))
}

// load 依次加载默认值、数据源（可为 nil）与环境变量到新的 koanf 实例。
func (c *koanfConfig) load(source koanf.Provider) (*koanf.Koanf, error) {
	k := koanf.New(c.opts.Delim)

	if len(c.opts.Defaults) > 0 {
		if err := k.Load(confmap.Provider(c.opts.Defaults, c.opts.Delim), nil); err != nil {
			return nil, fmt.Errorf("%w: defaults: %w", ErrLoadFailed, err)
		}
	}

	if source != nil {
		parser, err := parserFor(c.format)
		if err != nil {
			return nil, err
		}
		if err := k.Load(source, parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	if c.opts.EnvPrefix != "" {
		if err := k.Load(envProvider(c.opts), nil); err != nil {
			return nil, fmt.Errorf("%w: env: %w", ErrLoadFailed, err)
		}
	}
	return k, nil
}

// envProvider 把 PREFIX_A__B_C 映射为 a.b_c。
func envProvider(o *Options) *env.Env {
	prefix := o.EnvPrefix
	delim := o.Delim
	environ := o.Environ
	if environ == nil {
		environ = os.Environ
	}
	return env.Provider(delim, env.Opt{
		Prefix: prefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ToLower(strings.TrimPrefix(k, prefix))
			if k == "" {
				return "", nil
			}
			return strings.ReplaceAll(k, "__", delim), v
		},
		EnvironFunc: environ,
	})
}

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
