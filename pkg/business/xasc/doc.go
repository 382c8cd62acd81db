// Package xasc 提供 App Store Connect API 客户端。
//
// # 请求管线
//
// Client 发出的每个请求依次经过（外层在前）：
//
//	xjwt.Transport   附加 Bearer Token（TokenCache 复用未过期的 ES256 JWT）
//	xretry.Transport 按 {429, [500,600), 传输错误} 重试，默认 3 次、间隔 1 秒
//	xlimit.Transport 解析 x-rate-limit 头，配额耗尽时返回 *xlimit.LimitError
//	xlimit.Throttle  可选的客户端节流（throttle.per_hour > 0 时启用，
//	                 配置 throttle.redis_addr 后由同一 KeyID 的进程共享）
//	基础 Transport   默认 http.DefaultTransport 的克隆
//
// # 快速开始
//
//	cfg, err := xasc.LoadConfig("xasc.yaml")
//	if err != nil {
//	    return err
//	}
//	client, err := xasc.NewClient(cfg, xasc.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	apps, err := client.Apps(ctx)
//
// # 错误
//
// 非 2xx 响应返回 *APIError，可用 errors.Is 匹配 ErrBadRequest、ErrUnauthorized、
// ErrForbidden、ErrNotFound、ErrServerError。配额耗尽与限流头错误来自 xlimit，
// 重试耗尽的传输错误来自 xretry，签名失败来自 xjwt。
// 重定向只跟随 BaseURL 之下的地址，其他目标返回 ErrForeignURL。
package xasc
