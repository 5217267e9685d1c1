package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yqhp/calc-engine/internal/format"
	"yqhp/calc-engine/internal/metrics"
	"yqhp/calc-engine/pkg/expression"
)

var (
	// batch 命令的 flags
	batchJSONOutput string
	batchPrecision  int
)

// batchCmd 是 batch 子命令
var batchCmd = &cobra.Command{
	Use:   "batch <cases.yaml>",
	Short: "批量执行表达式用例",
	Long: `从 YAML 文件读取表达式用例并逐个求值。

每个用例可以给出期望结果 expect，或者期望的错误类型 error，例如：

  name: smoke
  precision: 2
  cases:
    - name: mixed
      expression: "(1+8-5/2)*2+4"
      expect: 17
    - name: dangling operator
      expression: "5+"
      error: ENDING

存在失败用例时命令返回非零退出码。`,
	Example: `  calc batch cases.yaml
  calc batch --out-json report.json cases.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchJSONOutput, "out-json", "", "输出 JSON 报告到文件")
	batchCmd.Flags().IntVarP(&batchPrecision, "precision", "p", -1, "比较结果时的小数位数 (覆盖用例文件)")
}

// BatchFile 用例文件
type BatchFile struct {
	Name      string      `yaml:"name"`
	Precision *int        `yaml:"precision,omitempty"`
	Cases     []BatchCase `yaml:"cases"`
}

// BatchCase 单个用例；Expect 与 Error 至多设置一个
type BatchCase struct {
	Name       string   `yaml:"name"`
	Expression string   `yaml:"expression"`
	Expect     *float64 `yaml:"expect,omitempty"`
	Error      string   `yaml:"error,omitempty"`
}

// CaseResult 单个用例的执行结果
type CaseResult struct {
	Name       string   `json:"name"`
	Expression string   `json:"expression"`
	Passed     bool     `json:"passed"`
	Postfix    []string `json:"postfix,omitempty"`
	Result     any      `json:"result,omitempty"`
	Expect     any      `json:"expect,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Position   *int     `json:"position,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// BatchReport 批量执行报告
type BatchReport struct {
	RunID      string           `json:"run_id"`
	Name       string           `json:"name"`
	StartedAt  time.Time        `json:"started_at"`
	DurationMS int64            `json:"duration_ms"`
	Precision  int              `json:"precision"`
	Total      int              `json:"total"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	Stats      metrics.Snapshot `json:"stats"`
	Results    []CaseResult     `json:"results"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file, err := loadBatchFile(args[0])
	if err != nil {
		return err
	}

	precision := appConfig.Eval.Precision
	if file.Precision != nil {
		precision = *file.Precision
	}
	if batchPrecision >= 0 {
		precision = batchPrecision
	}

	report := executeBatch(file, precision)
	printBatchReport(cmd.OutOrStdout(), report)

	if batchJSONOutput != "" {
		if err := writeBatchJSONOutput(batchJSONOutput, report); err != nil {
			return fmt.Errorf("写入 JSON 输出失败: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "\n结果已写入: %s\n", batchJSONOutput)
		}
	}

	if report.Failed > 0 {
		return fmt.Errorf("用例失败: %d/%d", report.Failed, report.Total)
	}
	return nil
}

func loadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取用例文件失败: %w", err)
	}

	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析用例文件失败: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("用例文件 %s 中没有用例", path)
	}
	for i, c := range file.Cases {
		if c.Expect != nil && c.Error != "" {
			return nil, fmt.Errorf("用例 %d (%s) 不能同时指定 expect 和 error", i+1, c.Name)
		}
	}
	return &file, nil
}

func executeBatch(file *BatchFile, precision int) *BatchReport {
	recorder := metrics.NewRecorder()
	report := &BatchReport{
		RunID:     uuid.NewString(),
		Name:      file.Name,
		StartedAt: time.Now(),
		Precision: precision,
		Total:     len(file.Cases),
		Results:   make([]CaseResult, 0, len(file.Cases)),
	}

	for i, c := range file.Cases {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("case-%d", i+1)
		}
		res := runCase(recorder, name, c, precision)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	report.DurationMS = time.Since(report.StartedAt).Milliseconds()
	report.Stats = recorder.Snapshot()
	return report
}

func runCase(recorder *metrics.Recorder, name string, c BatchCase, precision int) CaseResult {
	res := CaseResult{Name: name, Expression: c.Expression}

	var postfix []expression.Token
	var result float64
	err := recorder.Time(func() error {
		tokens, err := expression.Tokenize(c.Expression)
		if err != nil {
			return err
		}
		if postfix, err = expression.ToPostfix(tokens); err != nil {
			return err
		}
		result, err = expression.Evaluate(postfix)
		return err
	})

	if err != nil {
		res.ErrorKind = string(expression.KindOf(err))
		pos := expression.PositionOf(err)
		res.Position = &pos
		switch {
		case c.Error == "":
			res.Reason = err.Error()
		case c.Error != res.ErrorKind:
			res.Reason = fmt.Sprintf("期望错误 %s，实际 %s", c.Error, res.ErrorKind)
		default:
			res.Passed = true
		}
		return res
	}

	res.Postfix = expression.Strings(postfix)
	res.Result = format.JSONValue(format.Round(result, precision))

	switch {
	case c.Error != "":
		res.Reason = fmt.Sprintf("期望错误 %s，实际得到结果", c.Error)
	case c.Expect == nil:
		res.Passed = true
	default:
		res.Expect = format.JSONValue(*c.Expect)
		got, want := format.Result(result, precision), format.Result(*c.Expect, precision)
		res.Passed = got == want
		if !res.Passed {
			res.Reason = fmt.Sprintf("期望 %s，实际 %s", want, got)
		}
	}
	return res
}

func printBatchReport(w io.Writer, report *BatchReport) {
	if !quiet && report.Name != "" {
		fmt.Fprintf(w, "  %s\n\n", report.Name)
	}

	for _, res := range report.Results {
		status := color.GreenString("PASS")
		if !res.Passed {
			status = color.RedString("FAIL")
		}
		fmt.Fprintf(w, "  %s  %-24s %s\n", status, res.Name, res.Expression)
		if !res.Passed {
			fmt.Fprintf(w, "        %s\n", res.Reason)
		}
	}

	if quiet {
		return
	}

	stats := report.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "     用例总数...........: %d\n", report.Total)
	fmt.Fprintf(w, "     通过...............: %d\n", report.Passed)
	fmt.Fprintf(w, "     失败...............: %d\n", report.Failed)
	fmt.Fprintf(w, "     总耗时.............: %dms\n", report.DurationMS)
	fmt.Fprintf(w, "     平均延迟...........: %.1fµs\n", stats.LatencyUS.Avg)
	fmt.Fprintf(w, "     P99 延迟...........: %dµs\n", stats.LatencyUS.P99)
	if len(stats.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "     错误类型:")
		for _, kind := range expression.Kinds() {
			if n := stats.Errors[string(kind)]; n > 0 {
				fmt.Fprintf(w, "       - %s: %d\n", kind, n)
			}
		}
	}
	fmt.Fprintln(w)
}

func writeBatchJSONOutput(path string, report *BatchReport) error {
	data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
