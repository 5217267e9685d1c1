package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"yqhp/calc-engine/pkg/expression"
)

var (
	// postfix 命令的 flags
	postfixSep string
)

// postfixCmd 是 postfix 子命令
var postfixCmd = &cobra.Command{
	Use:   "postfix <expression>",
	Short: "转换为后缀表达式",
	Long:  `使用调度场算法将中缀表达式转换为后缀表达式（逆波兰式）。`,
	Example: `  calc postfix "4*2+3-(6/8)"
  # 4 2 * 3 + 6 8 / -

  calc postfix --sep , "(1+2)*3"
  # 1,2,+,3,*`,
	Args: cobra.ExactArgs(1),
	RunE: runPostfix,
}

func init() {
	rootCmd.AddCommand(postfixCmd)

	postfixCmd.Flags().StringVar(&postfixSep, "sep", " ", "输出元素之间的分隔符")
}

func runPostfix(cmd *cobra.Command, args []string) error {
	expr := args[0]

	tokens, err := expression.Tokenize(expr)
	if err != nil {
		return exprFailure(cmd, expr, err)
	}
	postfix, err := expression.ToPostfix(tokens)
	if err != nil {
		return exprFailure(cmd, expr, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), expression.Join(postfix, postfixSep))
	return nil
}
