package xlog

import (
	"log/slog"
	"strings"
)

// RedactedValue 是脱敏后的占位值。
const RedactedValue = "***REDACTED***"

// DefaultRedactKeys 返回默认脱敏的键。
func DefaultRedactKeys() []string {
	return []string{"authorization", "private_key", "token"}
}

// ReplaceAttrFunc 属性替换函数类型
//
// 返回空 Key 的 Attr 时该属性会被移除。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Redact 返回把给定键的值替换为 RedactedValue 的 ReplaceAttrFunc。
// 键比较大小写不敏感。
func Redact(keys ...string) ReplaceAttrFunc {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			set[k] = struct{}{}
		}
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		if _, ok := set[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, RedactedValue)
		}
		return a
	}
}

// chain 依次执行多个 ReplaceAttrFunc，任一返回空 Key 即停止。
func chain(fns ...ReplaceAttrFunc) ReplaceAttrFunc {
	active := make([]ReplaceAttrFunc, 0, len(fns))
	for _, fn := range fns {
		if fn != nil {
			active = append(active, fn)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		for _, fn := range active {
			a = fn(groups, a)
			if a.Key == "" {
				return a
			}
		}
		return a
	}
}
