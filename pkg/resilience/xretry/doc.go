// Package xretry 提供管线的重试阶段，以及其底层的通用重试执行器。
//
// # 重试阶段
//
// Transport 是一个 http.RoundTripper，由三部分配置：
//   - Signals：哪些结果值得重试，StatusCode(c)、StatusRange(lo, hi)（左闭右开）、TransportError()
//   - RetryPolicy：Never() 或 UpToAttempts(n)
//   - BackoffPolicy：NoDelay() 或 ConstantDelay(d)
//
// 默认配置为 {429, [500,600), 传输错误}、最多 3 次、固定 1 秒延迟。
//
//	rt := xretry.NewTransport(next,
//		xretry.WithSignals(xretry.StatusCode(429), xretry.TransportError()),
//		xretry.WithRetryPolicy(xretry.UpToAttempts(5)),
//		xretry.WithBackoffPolicy(xretry.ConstantDelay(2*time.Second)),
//	)
//
// 语义：
//   - 请求体不可重放（Body 非空且 GetBody 为 nil）时只发送一次
//   - 最后一次尝试仍命中状态码信号时，原样返回该响应，不转换为错误
//   - 传输错误重试耗尽后返回 *ExhaustedError，errors.Is(err, ErrMaxAttemptsReached) 成立且可 Unwrap 到原因
//   - 实现 Retryable() bool 且返回 false 的错误（如限额耗尽）不会被重试
//   - 延迟期间请求 context 取消会立即返回
//
// # 重试执行器
//
// Retryer 组合 RetryPolicy 与 BackoffPolicy，底层使用 [avast/retry-go/v5]。
//
//	r := xretry.NewRetryer(xretry.WithRetryPolicy(xretry.UpToAttempts(3)))
//	err := r.Do(ctx, func(ctx context.Context) error { return doSomething(ctx) })
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
