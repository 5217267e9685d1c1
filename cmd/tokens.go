package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"yqhp/calc-engine/pkg/expression"
)

// tokensCmd 是 tokens 子命令
var tokensCmd = &cobra.Command{
	Use:     "tokens <expression>",
	Short:   "输出词法分析结果",
	Long:    `校验表达式并列出每个记号的位置、类型和字面值。`,
	Example: `  calc tokens "-5*(2-3)"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}

func runTokens(cmd *cobra.Command, args []string) error {
	expr := args[0]

	tokens, err := expression.Tokenize(expr)
	if err != nil {
		return exprFailure(cmd, expr, err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tTYPE\tLITERAL")
	for _, tok := range tokens {
		fmt.Fprintf(w, "%d\t%s\t%s\n", tok.Pos, tok.Type, tok.Literal)
	}
	return w.Flush()
}
