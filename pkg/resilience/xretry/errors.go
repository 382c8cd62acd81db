package xretry

import (
	"errors"
	"fmt"
)

var (
	// ErrNilRetryer 表示在 nil *Retryer 上调用 Do。
	ErrNilRetryer = errors.New("xretry: nil retryer")

	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xretry: nil context")

	// ErrNilFunc 表示传入的执行函数为 nil。
	ErrNilFunc = errors.New("xretry: nil func")

	// ErrMaxAttemptsReached 表示传输错误在所有尝试后仍未恢复。
	ErrMaxAttemptsReached = errors.New("xretry: max attempts reached")

	// ErrNilResponse 表示下一阶段同时返回了 nil 响应和 nil 错误。
	ErrNilResponse = errors.New("xretry: transport returned nil response and nil error")
)

// RetryableError 可重试错误接口。
// 实现此接口的错误会被自动识别为可重试或不可重试。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误（不应重试）。
type PermanentError struct {
	Err error
}

// NewPermanentError 创建永久性错误。
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "xretry: permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 临时性错误（应该重试）。
type TemporaryError struct {
	Err error
}

// NewTemporaryError 创建临时性错误。
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "xretry: temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error { return e.Err }

func (e *TemporaryError) Retryable() bool { return true }

// ExhaustedError 表示所有尝试均以传输错误结束，Err 为最后一次的错误。
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("xretry: giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrMaxAttemptsReached) 成立。
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrMaxAttemptsReached
}

// Retryable 已耗尽的错误不应再被外层重试。
func (e *ExhaustedError) Retryable() bool { return false }

// IsRetryable 检查错误是否可重试。
// 规则：
//   - nil 错误：不需要重试
//   - 实现 RetryableError 接口：根据 Retryable() 返回值判断
//   - 其他错误：默认视为可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}

// IsPermanent 检查错误是否为永久性错误。
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return !IsRetryable(err)
}
