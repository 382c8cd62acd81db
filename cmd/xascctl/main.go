// xascctl 是 App Store Connect API 的命令行客户端。
//
// 用法:
//
//	xascctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径（YAML/JSON），为空时仅读取 XASC_ 环境变量
//	    --log-level   日志级别 (debug/info/warn/error，默认: warn)
//	    --log-format  日志格式 (text/json，默认: text)
//	    --log-file    日志文件路径，设置后按大小轮转
//
// 命令:
//
//	token             签发并输出 Bearer Token
//	get <path>        发送 GET 请求并输出格式化的 JSON
//	apps              列出账号下的 App
//	versions <appID>  列出 App 的 App Store 版本
//	budget            查看当前小时配额
//
// 退出码:
//
//	0: 成功
//	1: 请求失败（budget 命令: 配额耗尽）
//	2: 参数错误
//
// 示例:
//
//	XASC_AUTH__ISSUER_ID=... XASC_AUTH__KEY_ID=... XASC_AUTH__PRIVATE_KEY_PATH=AuthKey.p8 xascctl apps
//	xascctl -c xasc.yaml versions 1234567890
//	xascctl -c xasc.yaml get /v1/apps/1234567890/builds
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xascctl",
		Usage:   "App Store Connect API 命令行客户端",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（YAML/JSON）",
				Sources: cli.EnvVars("XASC_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径，为空时输出到 stderr",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 退出码由 run() 统一映射
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run(args []string) int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	return exitCode(app.Run(ctx, args))
}

// exitCode 将命令错误映射为退出码，并输出尚未输出的错误信息。
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return 1
}
