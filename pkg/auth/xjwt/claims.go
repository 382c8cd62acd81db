package xjwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 是签发 Token 使用的声明集合，每次签名时根据 Credentials 与当前时间重新构建。
//
// aud 按单个字符串编码（jwt.RegisteredClaims 默认编码为数组）。
type Claims struct {
	Issuer    string           `json:"iss"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Audience  string           `json:"aud"`
	Scope     []string         `json:"scope,omitempty"`
}

// newClaims 构建声明，时间按 jwt.TimePrecision（秒）截断。
func newClaims(creds Credentials, now time.Time) *Claims {
	return &Claims{
		Issuer:    creds.IssuerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(creds.Lifetime)),
		Audience:  Audience,
		Scope:     creds.Scopes,
	}
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error) { return c.Issuer, nil }
func (c *Claims) GetSubject() (string, error) { return "", nil }

func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

var _ jwt.Claims = (*Claims)(nil)
