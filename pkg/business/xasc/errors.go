package xasc

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// 配置错误
// =============================================================================

var (
	// ErrNilConfig 表示传入的配置为 nil。
	ErrNilConfig = errors.New("xasc: nil config")

	// ErrInvalidBaseURL 表示 BaseURL 缺少协议或主机名。
	ErrInvalidBaseURL = errors.New("xasc: invalid base url: must include scheme and host")

	// ErrInsecureBaseURL 表示 BaseURL 使用了非 HTTPS 协议。
	// 如需在测试环境中使用 HTTP，请设置 Config.AllowInsecure = true。
	ErrInsecureBaseURL = errors.New("xasc: base url must use https:// (set allow_insecure for testing)")

	// ErrInvalidTimeout 表示超时配置无效。
	ErrInvalidTimeout = errors.New("xasc: invalid timeout")

	// ErrInvalidRetry 表示重试配置无效。
	ErrInvalidRetry = errors.New("xasc: invalid retry config")

	// ErrInvalidThrottle 表示节流配置无效。
	ErrInvalidThrottle = errors.New("xasc: invalid throttle config")
)

// =============================================================================
// 请求错误
// =============================================================================

var (
	// ErrNilRequest 表示传入的请求为 nil。
	ErrNilRequest = errors.New("xasc: nil request")

	// ErrForeignURL 表示绝对 URL 不属于 BaseURL，Token 不会发往其他主机。
	ErrForeignURL = errors.New("xasc: url outside base url")

	// ErrResponseTooLarge 表示响应体超过最大限制。
	ErrResponseTooLarge = errors.New("xasc: response body exceeds maximum size limit")

	// ErrBadRequest 表示请求无效（400）。
	ErrBadRequest = errors.New("xasc: bad request")

	// ErrUnauthorized 表示认证失败（401）。
	ErrUnauthorized = errors.New("xasc: unauthorized")

	// ErrForbidden 表示权限不足（403）。
	ErrForbidden = errors.New("xasc: forbidden")

	// ErrNotFound 表示资源不存在（404）。
	ErrNotFound = errors.New("xasc: not found")

	// ErrServerError 表示服务端错误（5xx）。
	ErrServerError = errors.New("xasc: server error")
)

// ErrorItem 是 App Store Connect 错误文档中的单个错误。
type ErrorItem struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// APIError 表示 API 返回的非 2xx 响应。
type APIError struct {
	StatusCode int
	Errors     []ErrorItem
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("xasc: api error: status=%d", e.StatusCode)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msg := item.Code
		if item.Detail != "" {
			msg += ": " + item.Detail
		} else if item.Title != "" {
			msg += ": " + item.Title
		}
		parts = append(parts, msg)
	}
	return fmt.Sprintf("xasc: api error: status=%d, %s", e.StatusCode, strings.Join(parts, "; "))
}

// Retryable 5xx 视为可重试，4xx 不可重试。
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// Is 实现 errors.Is 接口。
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 400:
		return target == ErrBadRequest
	case e.StatusCode == 401:
		return target == ErrUnauthorized
	case e.StatusCode == 403:
		return target == ErrForbidden
	case e.StatusCode == 404:
		return target == ErrNotFound
	case e.StatusCode >= 500:
		return target == ErrServerError
	}
	return false
}
