package xconf

import "maps"

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，用于 Unmarshal，默认为 "koanf"。
	Tag string

	// Defaults 最低优先级的默认值，键使用 Delim 分隔的完整路径。
	Defaults map[string]any

	// EnvPrefix 环境变量前缀（例如 "XASC_"），为空时不加载环境变量。
	EnvPrefix string

	// Environ 提供环境变量列表，默认 os.Environ，主要用于测试。
	Environ func() []string
}

// Option 定义配置选项函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置选项。
func defaultOptions() *Options {
	return &Options{
		Delim: ".",
		Tag:   "koanf",
	}
}

// WithDelim 设置配置键分隔符。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置结构体标签名。
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}

// WithDefaults 设置默认值，多次调用会合并，后者覆盖前者。
func WithDefaults(defaults map[string]any) Option {
	return func(o *Options) {
		if o.Defaults == nil {
			o.Defaults = make(map[string]any, len(defaults))
		}
		maps.Copy(o.Defaults, defaults)
	}
}

// WithEnvPrefix 启用环境变量覆盖。
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithEnviron 替换环境变量来源。
func WithEnviron(fn func() []string) Option {
	return func(o *Options) {
		o.Environ = fn
	}
}
