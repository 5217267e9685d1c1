package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/calc-engine/api/rest"
	"yqhp/calc-engine/pkg/logger"
)

var (
	// serve 命令的 flags
	serveAddress string
	serveCORS    bool
)

// serveCmd 是 serve 子命令
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 REST API 服务",
	Long: `启动 HTTP 服务，提供以下接口：
  POST /api/v1/tokenize           词法分析
  POST /api/v1/postfix            转换为后缀表达式
  POST /api/v1/evaluate           计算中缀表达式
  POST /api/v1/evaluate/postfix   计算后缀表达式
  GET  /api/v1/stats              求值统计
  GET  /api/v1/stream             WebSocket 流式求值`,
	Example: `  calc serve
  calc serve --address :9090 --cors`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", "", "监听地址 (覆盖配置)")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", false, "启用 CORS (覆盖配置)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := rest.FromAppConfig(appConfig)
	if serveAddress != "" {
		cfg.Address = serveAddress
	}
	if serveCORS {
		cfg.EnableCORS = true
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), Banner, Version)
		fmt.Fprintf(cmd.OutOrStdout(), "\n  监听地址: %s\n\n", cfg.Address)
	}

	// 处理关闭信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := rest.NewServer(nil, nil, cfg)
	if err := server.StartWithContext(ctx); err != nil {
		return fmt.Errorf("服务运行失败: %w", err)
	}

	snap := server.Recorder().Snapshot()
	logger.Info("server stopped",
		zap.Int64("total", snap.Total),
		zap.Int64("failed", snap.Failed),
	)
	return nil
}
