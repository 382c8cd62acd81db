// Package xmetrics 提供请求管线使用的最小观测接口（metrics + tracing）。
//
// 管线各阶段（签名、重试、限额检查）只依赖 Observer/Span/Attr 三个类型，
// 默认实现基于 OpenTelemetry；未配置时使用 NoopObserver。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xjwt",
//		Operation: "IssueToken",
//		Kind:      xmetrics.KindInternal,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xasc.operation.total     按 component / operation / status 计数
//   - xasc.operation.duration  耗时（秒），属性同上
//   - xasc.operation.active    进行中的操作数，属性为 component / operation
//
// status 取值 ok / error / canceled / denied，调用方取消与服务端配额耗尽
// 不标记为 span 错误。
package xmetrics
