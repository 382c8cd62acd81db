package xlog

import (
	"fmt"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultMaxSizeMB 单个日志文件最大大小（MB）
	DefaultMaxSizeMB = 100
	// DefaultMaxBackups 保留的旧文件数量
	DefaultMaxBackups = 7
	// DefaultMaxAgeDays 旧文件保留天数
	DefaultMaxAgeDays = 30

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

type rotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	LocalTime  bool
}

// RotationOption 配置日志轮转
type RotationOption func(*rotationConfig)

// WithMaxSize 设置单个文件最大大小（MB）
func WithMaxSize(mb int) RotationOption {
	return func(c *rotationConfig) { c.MaxSizeMB = mb }
}

// WithMaxBackups 设置保留的旧文件数量，0 表示不限
func WithMaxBackups(n int) RotationOption {
	return func(c *rotationConfig) { c.MaxBackups = n }
}

// WithMaxAge 设置旧文件保留天数，0 表示不限
func WithMaxAge(days int) RotationOption {
	return func(c *rotationConfig) { c.MaxAgeDays = days }
}

// WithCompress 设置是否压缩旧文件
func WithCompress(compress bool) RotationOption {
	return func(c *rotationConfig) { c.Compress = compress }
}

// WithLocalTime 设置备份文件名是否使用本地时间
func WithLocalTime(local bool) RotationOption {
	return func(c *rotationConfig) { c.LocalTime = local }
}

func (c *rotationConfig) validate() error {
	if c.MaxSizeMB <= 0 || c.MaxSizeMB > maxSizeMB {
		return fmt.Errorf("%w: max size %d MB out of range (0, %d]", ErrInvalidRotation, c.MaxSizeMB, maxSizeMB)
	}
	if c.MaxBackups < 0 || c.MaxBackups > maxBackups {
		return fmt.Errorf("%w: max backups %d out of range [0, %d]", ErrInvalidRotation, c.MaxBackups, maxBackups)
	}
	if c.MaxAgeDays < 0 || c.MaxAgeDays > maxAgeDays {
		return fmt.Errorf("%w: max age %d days out of range [0, %d]", ErrInvalidRotation, c.MaxAgeDays, maxAgeDays)
	}
	return nil
}

// newRotator 创建按大小轮转的文件 writer。
func newRotator(filename string, opts ...RotationOption) (*lumberjack.Logger, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	cfg := rotationConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  cfg.LocalTime,
	}, nil
}
