// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 基于 log/slog 的 Logger 构建器，支持敏感字段脱敏与文件轮转
//   - xmetrics: 统一可观测性接口（追踪与指标），基于 OpenTelemetry
package observability
