package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"yqhp/calc-engine/api/rest/client"
	"yqhp/calc-engine/internal/format"
	"yqhp/calc-engine/pkg/expression"
)

var (
	// eval 命令的 flags
	evalPrecision   int
	evalRaw         bool
	evalShowPostfix bool
	evalServer      string
	evalTimeout     time.Duration
)

// evalCmd 是 eval 子命令
var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "计算表达式",
	Long: `计算一个中缀表达式并输出结果。

表达式只能包含数字、小数点、+ - * / 和括号，不能有内部空格。
位于开头或紧跟 '(' 的 '-' 表示负数。除以零得到 +Inf、-Inf 或 NaN。`,
	Example: `  # 基本计算
  calc eval "(1+8-5/2)*2+4"

  # 指定小数位数
  calc eval -p 4 "2/3"

  # 以 '-' 开头的表达式需要放在 -- 之后
  calc eval -- "-5*(2-3)"

  # 同时输出后缀表达式
  calc eval --show-postfix "4*2+3-(6/8)"

  # 交给远程服务计算
  calc eval --server http://localhost:8080 "(4*2+3-2)/(6/8)"`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().IntVarP(&evalPrecision, "precision", "p", -1, "结果保留的小数位数 (默认使用配置)")
	evalCmd.Flags().BoolVar(&evalRaw, "raw", false, "输出未舍入的结果")
	evalCmd.Flags().BoolVar(&evalShowPostfix, "show-postfix", false, "同时输出后缀表达式")
	evalCmd.Flags().StringVar(&evalServer, "server", "", "远程服务地址，例如 http://localhost:8080")
	evalCmd.Flags().DurationVar(&evalTimeout, "timeout", 10*time.Second, "远程请求超时时间")
}

func runEval(cmd *cobra.Command, args []string) error {
	expr := args[0]
	out := cmd.OutOrStdout()

	precision := appConfig.Eval.Precision
	if evalPrecision >= 0 {
		precision = evalPrecision
	}

	if evalServer != "" {
		return evalRemote(cmd, expr, precision)
	}

	tokens, err := expression.Tokenize(expr)
	if err != nil {
		return exprFailure(cmd, expr, err)
	}
	postfix, err := expression.ToPostfix(tokens)
	if err != nil {
		return exprFailure(cmd, expr, err)
	}
	result, err := expression.Evaluate(postfix)
	if err != nil {
		return exprFailure(cmd, expr, err)
	}

	if evalShowPostfix {
		fmt.Fprintf(out, "postfix: %s\n", expression.Join(postfix, " "))
	}
	if evalRaw {
		fmt.Fprintln(out, format.Result(result, -1))
	} else {
		fmt.Fprintln(out, format.Result(result, precision))
	}
	return nil
}

func evalRemote(cmd *cobra.Command, expr string, precision int) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	c := client.NewClient(&client.Config{
		BaseURL:        evalServer,
		RequestTimeout: evalTimeout,
	})
	defer c.Close()

	resp, err := c.Evaluate(ctx, expr, &precision)
	if err != nil {
		if expression.KindOf(err) != "" {
			return exprFailure(cmd, expr, err)
		}
		return err
	}

	if evalShowPostfix {
		fmt.Fprintf(out, "postfix: %s\n", strings.Join(resp.Postfix, " "))
	}
	if evalRaw {
		fmt.Fprintln(out, jsonNumber(resp.Result))
	} else {
		fmt.Fprintln(out, jsonNumber(resp.Rounded))
	}
	return nil
}

// exprFailure 输出错误位置提示，返回的错误不会被 Execute 再次打印
func exprFailure(cmd *cobra.Command, expr string, err error) error {
	printExprError(cmd.ErrOrStderr(), expr, err)
	return reportedError{err: err}
}

// printExprError 在表达式下方用 ^ 标出出错位置。位置基于去掉首尾空白后的表达式
func printExprError(w io.Writer, expr string, err error) {
	kind := expression.KindOf(err)
	pos := expression.PositionOf(err)
	expr = strings.TrimSpace(expr)

	fmt.Fprintf(w, "%s %s\n", color.RedString(string(kind)), kind.Message())
	if pos < 0 || pos > len(expr) {
		return
	}
	fmt.Fprintf(w, "  %s\n", expr)
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pos), color.YellowString("^"))
}

// jsonNumber 格式化 API 返回的数值或特殊值字符串
func jsonNumber(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	default:
		return fmt.Sprint(v)
	}
}
