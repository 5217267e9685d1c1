// Package cmd 提供 calc CLI 的命令实现
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"yqhp/calc-engine/internal/config"
	"yqhp/calc-engine/pkg/logger"
)

const (
	// Version 是当前版本号
	Version = "0.1.0"
	// Banner 是启动时显示的 ASCII 艺术
	Banner = `
   ___      _        |‾‾| Calc Engine %s
  / __|__ _| |__     |  |
 | (__/ _' | / _|    |  |
  \___\__,_|_\__|    |__|
`
)

var (
	// 全局配置
	cfgFile string
	envFile string
	debug   bool
	quiet   bool

	// appConfig 在 PersistentPreRunE 中加载
	appConfig *config.Config
)

// rootCmd 是根命令
var rootCmd = &cobra.Command{
	Use:   "calc",
	Short: "四则运算表达式引擎",
	Long: `calc 对包含 + - * / 和括号的中缀表达式进行词法分析、
转换为后缀表达式并求值。支持命令行、批量用例、REST API 和 MCP 工具。`,
	Version:           Version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
}

// Execute 执行根命令
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportedError 已经输出给用户的错误
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

// reportError 输出命令返回的错误，已输出过的错误跳过
func reportError(w io.Writer, err error) {
	var reported reportedError
	if errors.As(err, &reported) {
		return
	}
	fmt.Fprintln(w, color.RedString("错误: %v", err))
}

func init() {
	// 全局 flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", ".env 文件路径 (不存在时忽略)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "静默模式")

	// 禁用默认的 completion 命令
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// 自定义版本模板
	rootCmd.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")
}

// initApp 加载配置并初始化日志
func initApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().
		WithConfigPath(cfgFile).
		WithEnvFile(envFile).
		Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	appConfig = cfg

	logger.Init(cfg.Logging.Logger())
	switch {
	case debug:
		logger.EnableDebug()
	case quiet:
		logger.Quiet()
	}

	logger.Debug("配置已加载")
	return nil
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}
