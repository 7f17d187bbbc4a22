package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/stats"
)

// Runner executes batches of cases against an Executor with a bounded
// worker pool, optional pacing, and per-case timeouts.
type Runner struct {
	opt  Options
	exec Executor
	agg  *metrics.Aggregator
}

// New builds a Runner. Retry wrapping is applied here when the policy asks
// for more than one attempt.
func New(exec Executor, opt Options) *Runner {
	opt.normalize()
	if opt.Retry.MaxAttempts > 1 {
		exec = WithRetry(exec, opt.Retry)
	}
	return &Runner{opt: opt, exec: exec, agg: metrics.NewAggregator()}
}

// Aggregator exposes the observations collected by the most recent Run.
func (r *Runner) Aggregator() *metrics.Aggregator {
	return r.agg
}

// Run executes all cases and returns one result per case, in input order
// regardless of completion order. Cancelling ctx stops scheduling of
// not-yet-started cases; cases already executing finish on their own
// clocks and their results are still collected. Skipped cases are marked
// as such rather than dropped, so indexes always line up.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]CaseResult, error) {
	r.agg.Clear()

	results := make([]CaseResult, len(cases))
	for i := range results {
		results[i] = CaseResult{Case: cases[i], Index: i, Skipped: true}
	}
	if len(cases) == 0 {
		return results, ctx.Err()
	}

	limiter := r.opt.LimiterFactory(r.opt.RatePerSecond)

	type task struct {
		index int
		c     Case
	}
	tasks := make(chan task)

	// Scheduler: serializes pacing so workers only start allocated cases.
	go func() {
		defer close(tasks)
		for i, c := range cases {
			if ctx.Err() != nil {
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case tasks <- task{index: i, c: c}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(r.opt.Workers)
	for w := 0; w < r.opt.Workers; w++ {
		go func() {
			defer wg.Done()
			for t := range tasks {
				// Each worker writes only its own slot.
				results[t.index] = r.runCase(ctx, t.index, t.c)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Skipped {
				results[i].Err = err
				results[i].Error = err.Error()
			}
		}
		return results, err
	}
	return results, nil
}

// runCase executes one case and turns the outcome into an observation. The
// runner owns Record.Success: it reflects the call erroring (including
// timeout) and the case's output validation.
func (r *Runner) runCase(parent context.Context, index int, c Case) CaseResult {
	// A cancelled batch lets running cases finish; only the per-case
	// timeout cuts an execution short.
	callCtx := context.WithoutCancel(parent)
	var cancel context.CancelFunc
	if r.opt.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, r.opt.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.exec.Execute(callCtx, c)
	elapsed := time.Since(start)

	rec := out.Record
	if rec.Timestamp.IsZero() {
		rec.Timestamp = start.UTC()
	}
	if rec.LatencyMS == nil {
		rec.LatencyMS = metrics.Float(float64(elapsed) / float64(time.Millisecond))
	}

	switch {
	case err != nil:
		rec.Success = false
		if rec.ErrorMessage == "" {
			if errors.Is(err, context.DeadlineExceeded) {
				rec.ErrorMessage = fmt.Sprintf("case timed out after %s", r.opt.Timeout)
			} else {
				rec.ErrorMessage = err.Error()
			}
		}
		r.opt.Logger.Warn("case failed",
			zap.String("case", c.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	case !c.accept(out.Output):
		rec.Success = false
		rec.ErrorMessage = "output validation failed"
		r.opt.Logger.Warn("case output rejected",
			zap.String("case", c.Name),
			zap.Duration("elapsed", elapsed))
	default:
		rec.Success = true
		rec.ErrorMessage = ""
	}

	r.agg.Add(rec)
	if r.opt.Collector != nil {
		r.opt.Collector.Observe(elapsed, err)
	}

	res := CaseResult{
		Case:     c,
		Index:    index,
		Output:   out.Output,
		Record:   rec,
		Err:      err,
		Duration: elapsed,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// RunSummary condenses a batch into pass counts and per-metric statistics.
type RunSummary struct {
	Total      int                `json:"total"`
	Passed     int                `json:"passed"`
	Failed     int                `json:"failed"`
	Skipped    int                `json:"skipped,omitempty"`
	PassRate   float64            `json:"pass_rate"`
	DurationMs float64            `json:"duration_ms"`
	Metrics    []stats.NamedStats `json:"metrics,omitempty"`
}

// Summarize folds a batch's results into a RunSummary. The pass rate is
// over executed cases only; skipped cases are counted separately.
func Summarize(results []CaseResult, elapsed time.Duration) RunSummary {
	s := RunSummary{
		Total:      len(results),
		DurationMs: float64(elapsed) / float64(time.Millisecond),
	}
	var records []metrics.Record
	for _, res := range results {
		if res.Skipped {
			s.Skipped++
			continue
		}
		if res.Record.Success {
			s.Passed++
		} else {
			s.Failed++
		}
		records = append(records, res.Record)
	}
	if executed := s.Total - s.Skipped; executed > 0 {
		s.PassRate = float64(s.Passed) / float64(executed)
	}
	s.Metrics = stats.Analyze(collectSeries(records))
	return s
}

// standardMetrics is the reporting order for built-in record fields.
var standardMetrics = []string{
	metrics.MetricLatency,
	metrics.MetricCost,
	metrics.MetricInputTokens,
	metrics.MetricOutputTokens,
	metrics.MetricTotalTokens,
	metrics.MetricQuality,
	metrics.MetricAccuracy,
}

// collectSeries gathers per-metric value series: built-in fields first in a
// fixed order, then custom metadata metrics as they first appear.
func collectSeries(records []metrics.Record) []stats.Series {
	var series []stats.Series
	seen := make(map[string]bool, len(standardMetrics))
	for _, name := range standardMetrics {
		seen[name] = true
		if values := metrics.MetricValues(records, name); len(values) > 0 {
			series = append(series, stats.Series{Name: name, Values: values})
		}
	}
	for _, r := range records {
		keys := make([]string, 0, len(r.Metadata))
		for k := range r.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			if values := metrics.MetricValues(records, k); len(values) > 0 {
				series = append(series, stats.Series{Name: k, Values: values})
			}
		}
	}
	return series
}
