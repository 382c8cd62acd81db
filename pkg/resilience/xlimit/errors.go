package xlimit

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// 预定义错误
// =============================================================================

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrRateLimited 表示服务端声明的配额已耗尽
	ErrRateLimited = errors.New("xlimit: rate limited")

	// ErrHeaderNotFound 表示响应缺少限流头
	ErrHeaderNotFound = errors.New("xlimit: rate limit header not found")

	// ErrInvalidValues 表示限流头缺少预期的键或值不是整数
	ErrInvalidValues = errors.New("xlimit: invalid rate limit values")

	// ErrInvalidRate 表示节流器参数无效
	ErrInvalidRate = errors.New("xlimit: invalid rate")

	// ErrNilResponse 表示下一阶段同时返回了 nil 响应和 nil 错误
	ErrNilResponse = errors.New("xlimit: transport returned nil response and nil error")
)

// =============================================================================
// 错误类型
// =============================================================================

// LimitError 配额耗尽错误。
type LimitError struct {
	// Limit 小时配额上限
	Limit int
	// Remaining 剩余配额，总是 <= 0
	Remaining int
}

// Error 实现 error 接口
func (e *LimitError) Error() string {
	return fmt.Sprintf("xlimit: rate limit exceeded, remaining=%d of %d", e.Remaining, e.Limit)
}

// Is 支持 errors.Is 检查
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Retryable 返回是否可重试
//
// 配额按小时重置，在同一次调用内重试没有意义。
func (e *LimitError) Retryable() bool {
	return false
}

// HeaderError 限流头缺失错误。
type HeaderError struct {
	// Header 期望的头名称
	Header string
	// StatusCode 响应状态码，便于诊断
	StatusCode int
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("xlimit: header %q not found in response (status %d)", e.Header, e.StatusCode)
}

func (e *HeaderError) Is(target error) bool {
	return target == ErrHeaderNotFound
}

func (e *HeaderError) Retryable() bool {
	return false
}

// ValuesError 限流头格式错误，保留原始片段用于诊断。
type ValuesError struct {
	// Raw 原始头值
	Raw string
	// Fragments 按 ';' 切分后的片段
	Fragments []string
	// Missing 缺失或无法解析的键
	Missing []string
}

func (e *ValuesError) Error() string {
	return fmt.Sprintf("xlimit: invalid rate limit values %q, missing or malformed: %s",
		e.Raw, strings.Join(e.Missing, ", "))
}

func (e *ValuesError) Is(target error) bool {
	return target == ErrInvalidValues
}

func (e *ValuesError) Retryable() bool {
	return false
}

// =============================================================================
// 错误检查函数
// =============================================================================

// IsDenied 检查错误是否为配额耗尽
func IsDenied(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsProtocolError 检查错误是否为限流头缺失或格式错误
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrHeaderNotFound) || errors.Is(err, ErrInvalidValues)
}
