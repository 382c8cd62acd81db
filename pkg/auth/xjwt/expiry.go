package xjwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// unverifiedParser 只解码不验签，解析器本身无状态，可并发复用。
var unverifiedParser = jwt.NewParser()

// IsExpired 判断紧凑 Token 在 now 时刻是否已过期（now >= exp）。
//
// 段数不为 3、base64url/JSON 解码失败或缺少 exp 时一律视为已过期，
// 促使调用方重新签发而不是复用有效性未知的 Token。不返回错误，不会 panic。
func IsExpired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return true
	}
	return !now.Before(exp)
}

// ExpiresAt 解码 Token 的 exp 声明，不校验签名。
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims Claims
	if _, _, err := unverifiedParser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
