// Package metrics 记录表达式求值的延迟分布和错误计数
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"yqhp/calc-engine/pkg/expression"
)

const (
	// 直方图记录范围：1µs 到 1min，3 位有效数字
	minLatency  = 1
	maxLatency  = int64(time.Minute / time.Microsecond)
	sigFigures  = 3
	unknownKind = "UNKNOWN"
)

// Recorder 求值指标记录器，并发安全
type Recorder struct {
	mu        sync.Mutex
	latency   *hdrhistogram.Histogram
	total     int64
	failed    int64
	errors    map[string]int64
	startTime time.Time
}

// LatencySummary 延迟统计（微秒）
type LatencySummary struct {
	Count int64   `json:"count"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Avg   float64 `json:"avg"`
	Med   int64   `json:"med"`
	P90   int64   `json:"p90"`
	P95   int64   `json:"p95"`
	P99   int64   `json:"p99"`
}

// Snapshot 某一时刻的指标快照
type Snapshot struct {
	Total     int64            `json:"total"`
	Succeeded int64            `json:"succeeded"`
	Failed    int64            `json:"failed"`
	Errors    map[string]int64 `json:"errors"`
	LatencyUS LatencySummary   `json:"latency_us"`
	Uptime    string           `json:"uptime"`
}

// NewRecorder 创建记录器
func NewRecorder() *Recorder {
	return &Recorder{
		latency:   hdrhistogram.New(minLatency, maxLatency, sigFigures),
		errors:    make(map[string]int64),
		startTime: time.Now(),
	}
}

// Observe 记录一次求值的耗时和结果，err 为 nil 表示成功
func (r *Recorder) Observe(elapsed time.Duration, err error) {
	us := elapsed.Microseconds()
	if us < minLatency {
		us = minLatency
	} else if us > maxLatency {
		us = maxLatency
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	_ = r.latency.RecordValue(us)

	if err != nil {
		r.failed++
		r.errors[kindOf(err)]++
	}
}

// Time 执行 fn 并记录其耗时和错误
func (r *Recorder) Time(fn func() error) error {
	start := time.Now()
	err := fn()
	r.Observe(time.Since(start), err)
	return err
}

// Snapshot 返回当前指标的副本
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := make(map[string]int64, len(r.errors))
	for k, v := range r.errors {
		errs[k] = v
	}

	snap := Snapshot{
		Total:     r.total,
		Succeeded: r.total - r.failed,
		Failed:    r.failed,
		Errors:    errs,
		Uptime:    time.Since(r.startTime).Truncate(time.Second).String(),
	}

	if r.latency.TotalCount() > 0 {
		snap.LatencyUS = LatencySummary{
			Count: r.latency.TotalCount(),
			Min:   r.latency.Min(),
			Max:   r.latency.Max(),
			Avg:   r.latency.Mean(),
			Med:   r.latency.ValueAtQuantile(50),
			P90:   r.latency.ValueAtQuantile(90),
			P95:   r.latency.ValueAtQuantile(95),
			P99:   r.latency.ValueAtQuantile(99),
		}
	}

	return snap
}

// Reset 清空所有指标
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latency.Reset()
	r.total = 0
	r.failed = 0
	r.errors = make(map[string]int64)
	r.startTime = time.Now()
}

// kindOf 返回错误分类，非表达式错误归为 UNKNOWN
func kindOf(err error) string {
	if kind := expression.KindOf(err); kind != "" {
		return string(kind)
	}
	return unknownKind
}
