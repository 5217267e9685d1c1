package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"yqhp/calc-engine/api/mcpserver"
	"yqhp/calc-engine/pkg/logger"
)

// mcpCmd 是 mcp 子命令
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "以 MCP 服务器方式运行 (stdio)",
	Long: `通过标准输入输出提供 MCP 工具：
  calculate    计算表达式
  to_postfix   转换为后缀表达式
  tokenize     词法分析

日志写入 stderr，stdout 只用于协议消息。`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if out := appConfig.Logging.Output; logger.WritesToStdout(out) {
		return fmt.Errorf("mcp 模式下日志不能输出到 stdout (logging.output=%s)", out)
	}

	s := mcpserver.NewServer(nil, nil, mcpserver.Config{
		Name:      appConfig.MCP.Name,
		Version:   appConfig.MCP.Version,
		Precision: appConfig.Eval.Precision,
	})
	return s.ServeStdio()
}
