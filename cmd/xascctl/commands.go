package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xasc/pkg/business/xasc"
	"github.com/omeyang/xasc/pkg/observability/xlog"
	"github.com/omeyang/xasc/pkg/resilience/xlimit"
)

// budgetProbePath 是 budget 命令用于读取配额头的轻量请求。
const budgetProbePath = "/v1/apps?limit=1"

// exitError 表示命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 表示命令参数错误（退出码 2）。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// isCLIUsageError 识别 urfave/cli 自身产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"flag needs an argument",
		"invalid value",
		"No help topic for",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createTokenCommand(),
		createGetCommand(),
		createAppsCommand(),
		createVersionsCommand(),
		createBudgetCommand(),
	}
}

func createTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "签发并输出 Bearer Token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "以 JSON 输出 Token 与过期时间",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, func(ctx context.Context, s *session) error {
				return cmdToken(ctx, s, cmd.Bool("json"))
			})
		},
	}
}

func createGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "发送 GET 请求并输出格式化的 JSON",
		ArgsUsage: "<path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "get 需要且仅需要一个路径参数"}
			}
			return withSession(ctx, cmd, func(ctx context.Context, s *session) error {
				return cmdGet(ctx, s, cmd.Args().First())
			})
		},
	}
}

func createAppsCommand() *cli.Command {
	return &cli.Command{
		Name:  "apps",
		Usage: "列出账号下的 App",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, cmdApps)
		},
	}
}

func createVersionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "versions",
		Usage:     "列出 App 的 App Store 版本",
		ArgsUsage: "<appID>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			appID := strings.TrimSpace(cmd.Args().First())
			if appID == "" || cmd.Args().Len() != 1 {
				return &usageError{msg: "versions 需要一个 appID 参数"}
			}
			return withSession(ctx, cmd, func(ctx context.Context, s *session) error {
				return cmdVersions(ctx, s, appID)
			})
		},
	}
}

func createBudgetCommand() *cli.Command {
	return &cli.Command{
		Name:  "budget",
		Usage: "查看当前小时配额",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, cmdBudget)
		},
	}
}

// =============================================================================
// 会话
// =============================================================================

// session 持有一次命令执行所需的客户端与输出。
type session struct {
	client *xasc.Client
	logger *slog.Logger
	out    io.Writer
}

// withSession 创建日志与客户端，执行 fn 后释放资源。
func withSession(ctx context.Context, cmd *cli.Command, fn func(context.Context, *session) error) error {
	root := cmd.Root()

	b := xlog.New().
		SetOutput(root.ErrWriter).
		SetLevelString(cmd.String("log-level")).
		SetFormat(cmd.String("log-format"))
	if file := cmd.String("log-file"); file != "" {
		b.SetRotation(file, xlog.WithMaxSize(10), xlog.WithMaxBackups(3))
	}
	logger, closeLog, err := b.Build()
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	defer func() { _ = closeLog() }() //nolint:errcheck // 退出前尽力关闭

	cfg, err := xasc.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	defer base.CloseIdleConnections()

	client, err := xasc.NewClient(cfg,
		xasc.WithTransport(base),
		xasc.WithLogger(logger),
		xasc.WithOnSnapshot(func(snap xlimit.Snapshot) {
			logger.DebugContext(ctx, "xascctl: rate limit budget", slog.String("budget", snap.String()))
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // 退出前尽力关闭

	return fn(ctx, &session{client: client, logger: logger, out: root.Writer})
}

// =============================================================================
// 命令实现
// =============================================================================

func cmdToken(ctx context.Context, s *session, asJSON bool) error {
	tok, err := s.client.Token(ctx)
	if err != nil {
		return err
	}
	if !asJSON {
		_, err = fmt.Fprintln(s.out, tok.Value)
		return err
	}
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func cmdGet(ctx context.Context, s *session, path string) error {
	var raw json.RawMessage
	if err := s.client.Get(ctx, path, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("xascctl: format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(s.out)
	return err
}

func cmdApps(ctx context.Context, s *session) error {
	apps, err := s.client.Apps(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBUNDLE ID\tNAME\tSKU")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", app.ID, app.BundleID, app.Name, app.SKU)
	}
	return w.Flush()
}

func cmdVersions(ctx context.Context, s *session, appID string) error {
	releases, err := s.client.Versions(ctx, appID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tSTATE\tPLATFORM")
	for _, r := range releases {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Version, r.AppStoreState, r.Platform)
	}
	return w.Flush()
}

// cmdBudget 发送一次轻量请求并输出响应声明的配额。配额耗尽时退出码为 1。
func cmdBudget(ctx context.Context, s *session) error {
	err := s.client.Get(ctx, budgetProbePath, nil)
	if err != nil && !xlimit.IsDenied(err) {
		return err
	}
	snap, ok := s.client.Budget()
	if !ok {
		return errors.New("xascctl: response carried no rate limit budget")
	}
	fmt.Fprintf(s.out, "limit:     %d\nremaining: %d\nused:      %d\n", snap.Limit, snap.Remaining, snap.Used())
	if snap.Exhausted() {
		fmt.Fprintln(s.out, "status:    exhausted")
		return &exitError{code: 1}
	}
	return nil
}

// setupSignalHandler 第一次信号取消上下文，第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
