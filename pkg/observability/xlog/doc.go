// Package xlog 基于 log/slog 构建结构化日志。
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，后续 Set 操作被跳过）：
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xasc.log", xlog.WithMaxSize(100)).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// Build 返回标准 *slog.Logger，可直接注入 xjwt、xretry、xlimit 的 WithLogger 选项。
//
// # 脱敏
//
// 默认对 authorization、private_key、token 三个键脱敏（大小写不敏感，
// 分组内同样生效）。SetRedactKeys 替换默认列表，SetRedactKeys() 关闭脱敏。
// SetReplaceAttr 在脱敏之后执行，用于字段重命名或过滤。
//
// # 轮转
//
// SetRotation 使用 gopkg.in/natefinch/lumberjack.v2 写入文件并按大小轮转，
// cleanup 负责关闭文件。
package xlog
