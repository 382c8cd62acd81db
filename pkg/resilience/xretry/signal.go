package xretry

import (
	"fmt"
	"strings"
)

type signalKind uint8

const (
	kindStatusCode signalKind = iota + 1
	kindStatusRange
	kindTransportError
)

// Signal 描述哪种调用结果值得重试。零值不匹配任何结果。
type Signal struct {
	kind signalKind
	low  int
	high int
}

// StatusCode 匹配单个 HTTP 状态码。
func StatusCode(code int) Signal {
	return Signal{kind: kindStatusCode, low: code, high: code + 1}
}

// StatusRange 匹配 [low, highExclusive) 区间内的状态码。low >= highExclusive 时为空区间。
func StatusRange(low, highExclusive int) Signal {
	return Signal{kind: kindStatusRange, low: low, high: highExclusive}
}

// TransportError 表示下一阶段返回错误（而非响应）时重试。
func TransportError() Signal {
	return Signal{kind: kindTransportError}
}

// Contains 报告状态码是否落在信号范围内。TransportError 信号不包含任何状态码。
func (s Signal) Contains(code int) bool {
	switch s.kind {
	case kindStatusCode, kindStatusRange:
		return s.low <= code && code < s.high
	default:
		return false
	}
}

// IsTransportError 报告是否为 TransportError 信号。
func (s Signal) IsTransportError() bool {
	return s.kind == kindTransportError
}

func (s Signal) String() string {
	switch s.kind {
	case kindStatusCode:
		return fmt.Sprintf("status(%d)", s.low)
	case kindStatusRange:
		return fmt.Sprintf("status[%d,%d)", s.low, s.high)
	case kindTransportError:
		return "transport-error"
	default:
		return "none"
	}
}

// Signals 是一组重试信号，任一匹配即重试。
type Signals []Signal

// DefaultSignals 返回 {429, [500,600), 传输错误}。
func DefaultSignals() Signals {
	return Signals{StatusCode(429), StatusRange(500, 600), TransportError()}
}

// MatchStatus 报告是否有状态码信号匹配 code。
func (ss Signals) MatchStatus(code int) bool {
	for _, s := range ss {
		if s.Contains(code) {
			return true
		}
	}
	return false
}

// RetriesErrors 报告是否包含 TransportError 信号。
func (ss Signals) RetriesErrors() bool {
	for _, s := range ss {
		if s.IsTransportError() {
			return true
		}
	}
	return false
}

func (ss Signals) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
