// Package xjwt 为 App Store Connect API 签发并缓存 ES256 JWT，
// 并以 http.RoundTripper 的形式为请求附加 Bearer 认证头。
//
// # 组成
//
//   - ES256Signer：用 P-256 私钥对 {iss, iat, exp, aud} 声明签名，生成紧凑 JWT
//   - IsExpired：不验签地解析 exp，任何解析失败均视为已过期
//   - TokenCache：持有最近一次签发的 Token，并发未命中经 singleflight 合并为一次签名
//   - Transport：认证阶段，克隆请求并设置 Authorization 头后交给下一阶段
//
// # 使用示例
//
//	signer, err := xjwt.NewSigner(xjwt.Credentials{
//		IssuerID:      "57246542-96fe-1a63-e053-0824d011072a",
//		KeyID:         "2X9R4HXF34",
//		PrivateKeyPEM: pem,
//		Lifetime:      20 * time.Minute,
//	})
//	cache, _ := xjwt.NewTokenCache(signer)
//	rt, _ := xjwt.NewTransport(cache, http.DefaultTransport)
//	client := &http.Client{Transport: rt}
//
// # 时间精度
//
// exp/iat 以秒为单位编码，签发时 exp 向下取整到整秒，因此 Lifetime 至少为 1 秒。
// 不内置时钟偏差容忍，Lifetime 应明显大于预期的时钟漂移。
package xjwt
