// Package xlimit 提供基于服务端声明配额的限流阶段。
//
// # 设计理念
//
// App Store Connect 在每个响应的 x-rate-limit 头中声明当前小时的配额：
//
//	x-rate-limit: user-hour-lim:3600; user-hour-rem:3599
//
// Transport 在下一阶段返回响应之后解析该头：
//   - 头缺失：返回 *HeaderError（ErrHeaderNotFound）
//   - 键缺失或值不是整数：返回 *ValuesError（ErrInvalidValues）
//   - remaining <= 0：丢弃响应并返回 *LimitError（ErrRateLimited）
//   - 其他情况：响应原样返回
//
// 三类错误都实现 Retryable() == false，外层的 xretry.Transport 不会重试它们。
// 配额耗尽只能等待下一个小时窗口。
//
// # 客户端节流
//
// NewThrottle 在发送前排队，用于把请求速率平滑到配额以内。它是可选的，
// 不替代服务端配额检查。等待由 Waiter 完成：
//   - NewHourlyLimiter: 进程内令牌桶（golang.org/x/time/rate）
//   - NewSharedLimiter: Redis 共享令牌桶（go-redis/redis_rate），
//     使用同一 API 密钥的多个进程共享速率
//
// # 快速开始
//
//	rt, err := xlimit.NewTransport(http.DefaultTransport,
//	    xlimit.WithOnSnapshot(func(s xlimit.Snapshot) {
//	        log.Printf("剩余配额: %d/%d", s.Remaining, s.Limit)
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	client := &http.Client{Transport: rt}
package xlimit
