package harness_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/metrics"
)

// echoExecutor returns a deterministic output per case with fixed latency.
type echoExecutor struct {
	latency time.Duration
	calls   *int64
}

func (e *echoExecutor) Execute(ctx context.Context, c harness.Case) (harness.Outcome, error) {
	if e.calls != nil {
		atomic.AddInt64(e.calls, 1)
	}
	select {
	case <-time.After(e.latency):
	case <-ctx.Done():
		return harness.Outcome{}, ctx.Err()
	}
	rec := metrics.NewRecord()
	rec.Model = "fake-model"
	rec.QualityScore = metrics.Float(0.9)
	return harness.Outcome{Output: "out:" + c.Name, Record: rec}, nil
}

func namedCases(n int) []harness.Case {
	cases := make([]harness.Case, n)
	for i := range cases {
		cases[i] = harness.Case{Name: fmt.Sprintf("case-%02d", i)}
	}
	return cases
}

func TestRunReturnsResultsInInputOrder(t *testing.T) {
	// Later cases finish first: completion order is the reverse of input.
	exec := harness.ExecutorFunc(func(ctx context.Context, c harness.Case) (harness.Outcome, error) {
		var idx int
		fmt.Sscanf(c.Name, "case-%02d", &idx)
		delay := time.Duration(8-idx) * 5 * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return harness.Outcome{}, ctx.Err()
		}
		return harness.Outcome{Output: "out:" + c.Name, Record: metrics.NewRecord()}, nil
	})

	r := harness.New(exec, harness.Options{Workers: 8})
	cases := namedCases(8)
	results, err := r.Run(context.Background(), cases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(cases) {
		t.Fatalf("expected %d results, got %d", len(cases), len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected index %d at position %d, got %d", i, i, res.Index)
		}
		if res.Case.Name != cases[i].Name {
			t.Errorf("expected %s at position %d, got %s", cases[i].Name, i, res.Case.Name)
		}
		if res.Output != "out:"+cases[i].Name {
			t.Errorf("expected output for %s, got %q", cases[i].Name, res.Output)
		}
		if !res.Record.Success {
			t.Errorf("expected success for %s", cases[i].Name)
		}
	}
}

func TestRunRecordsObservations(t *testing.T) {
	var calls int64
	r := harness.New(&echoExecutor{latency: time.Millisecond, calls: &calls}, harness.Options{Workers: 4})
	results, err := r.Run(context.Background(), namedCases(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 10 {
		t.Errorf("expected 10 calls, got %d", calls)
	}
	if got := r.Aggregator().Len(); got != 10 {
		t.Errorf("expected 10 observations, got %d", got)
	}
	for _, res := range results {
		if res.Record.LatencyMS == nil || *res.Record.LatencyMS <= 0 {
			t.Errorf("expected positive latency for %s, got %v", res.Case.Name, res.Record.LatencyMS)
		}
		if res.Record.Timestamp.IsZero() {
			t.Errorf("expected timestamp for %s", res.Case.Name)
		}
	}
}

func TestRunValidatesOutputs(t *testing.T) {
	exec := harness.ExecutorFunc(func(ctx context.Context, c harness.Case) (harness.Outcome, error) {
		return harness.Outcome{Output: "actual", Record: metrics.NewRecord()}, nil
	})
	r := harness.New(exec, harness.Options{Workers: 2})

	cases := []harness.Case{
		{Name: "matches", Expected: "actual"},
		{Name: "mismatch", Expected: "expected"},
		{Name: "validator-pass", Validate: func(out string) bool { return strings.HasPrefix(out, "act") }},
		{Name: "validator-fail", Validate: func(out string) bool { return false }},
		{Name: "no-criteria"},
	}
	results, err := r.Run(context.Background(), cases)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSuccess := map[string]bool{
		"matches":        true,
		"mismatch":       false,
		"validator-pass": true,
		"validator-fail": false,
		"no-criteria":    true,
	}
	for _, res := range results {
		if res.Record.Success != wantSuccess[res.Case.Name] {
			t.Errorf("%s: expected success=%v, got %v", res.Case.Name, wantSuccess[res.Case.Name], res.Record.Success)
		}
		if !res.Record.Success && res.Record.ErrorMessage != "output validation failed" {
			t.Errorf("%s: expected validation message, got %q", res.Case.Name, res.Record.ErrorMessage)
		}
	}
	if failures := r.Aggregator().Failures(); len(failures) != 2 {
		t.Errorf("expected 2 failed observations, got %d", len(failures))
	}
}

func TestRunTimeoutBecomesFailedObservation(t *testing.T) {
	exec := harness.ExecutorFunc(func(ctx context.Context, c harness.Case) (harness.Outcome, error) {
		delay := time.Millisecond
		if c.Name == "slow" {
			delay = 200 * time.Millisecond
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return harness.Outcome{}, ctx.Err()
		}
		return harness.Outcome{Output: "done", Record: metrics.NewRecord()}, nil
	})

	r := harness.New(exec, harness.Options{Workers: 2, Timeout: 30 * time.Millisecond})
	cases := []harness.Case{{Name: "fast"}, {Name: "slow"}, {Name: "fast-too"}}
	results, err := r.Run(context.Background(), cases)
	if err != nil {
		t.Fatalf("expected batch to complete despite timeout, got %v", err)
	}

	slow := results[1]
	if !errors.Is(slow.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error for slow case, got %v", slow.Err)
	}
	if slow.Record.Success {
		t.Error("expected slow case recorded as failed")
	}
	if !strings.Contains(slow.Record.ErrorMessage, "timed out") {
		t.Errorf("expected timeout message, got %q", slow.Record.ErrorMessage)
	}
	if !results[0].Record.Success || !results[2].Record.Success {
		t.Error("expected fast cases to succeed around the timeout")
	}
	if got := r.Aggregator().Len(); got != 3 {
		t.Errorf("expected all 3 observations collected, got %d", got)
	}
}

func TestRunCancelSkipsUnstartedCases(t *testing.T) {
	started := make(chan struct{})
	exec := harness.ExecutorFunc(func(ctx context.Context, c harness.Case) (harness.Outcome, error) {
		if c.Name == "case-00" {
			close(started)
		}
		// In-flight work ignores batch cancellation and finishes naturally;
		// the runner hands executors a detached context.
		select {
		case <-time.After(40 * time.Millisecond):
		case <-ctx.Done():
			return harness.Outcome{}, ctx.Err()
		}
		return harness.Outcome{Output: "finished", Record: metrics.NewRecord()}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	r := harness.New(exec, harness.Options{Workers: 1})

	go func() {
		<-started
		cancel()
	}()

	results, err := r.Run(ctx, namedCases(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	first := results[0]
	if first.Skipped {
		t.Error("expected first case to run")
	}
	if !first.Record.Success || first.Output != "finished" {
		t.Errorf("expected in-flight case to finish naturally, got success=%v output=%q err=%v",
			first.Record.Success, first.Output, first.Err)
	}
	for _, res := range results[1:] {
		if !res.Skipped {
			t.Errorf("expected %s to be skipped", res.Case.Name)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("expected cancellation error on %s, got %v", res.Case.Name, res.Err)
		}
	}
	if got := r.Aggregator().Len(); got != 1 {
		t.Errorf("expected only the started case observed, got %d", got)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var current, peak int64
	exec := harness.ExecutorFunc(func(ctx context.Context, c harness.Case) (harness.Outcome, error) {
		n := atomic.AddInt64(&current, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return harness.Outcome{Record: metrics.NewRecord()}, nil
	})

	r := harness.New(exec, harness.Options{Workers: 3})
	if _, err := r.Run(context.Background(), namedCases(20)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak > 3 {
		t.Errorf("expected at most 3 concurrent cases, saw %d", peak)
	}
}

func TestRunPacing(t *testing.T) {
	var calls int64
	r := harness.New(&echoExecutor{calls: &calls}, harness.Options{
		Workers:       4,
		RatePerSecond: 200,
		LimiterFactory: func(rps int) *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	})

	start := time.Now()
	if _, err := r.Run(context.Background(), namedCases(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	// 9 post-burst starts at 200/s is 45ms minimum; allow scheduling fudge.
	if elapsed < 30*time.Millisecond {
		t.Errorf("pacing not applied: 10 cases in %s", elapsed)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	r := harness.New(&echoExecutor{}, harness.Options{})
	results, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSummarize(t *testing.T) {
	ok := metrics.NewRecord()
	ok.LatencyMS = metrics.Float(100)
	ok.Cost = metrics.Float(0.002)
	ok.Metadata = map[string]any{"relevance": 0.8}

	ok2 := metrics.NewRecord()
	ok2.LatencyMS = metrics.Float(300)
	ok2.Metadata = map[string]any{"relevance": 0.6}

	bad := metrics.NewRecord()
	bad.Success = false
	bad.LatencyMS = metrics.Float(50)

	results := []harness.CaseResult{
		{Index: 0, Record: ok},
		{Index: 1, Record: ok2},
		{Index: 2, Record: bad},
		{Index: 3, Skipped: true},
	}

	s := harness.Summarize(results, 2*time.Second)
	if s.Total != 4 || s.Passed != 2 || s.Failed != 1 || s.Skipped != 1 {
		t.Fatalf("expected 4/2/1/1, got %d/%d/%d/%d", s.Total, s.Passed, s.Failed, s.Skipped)
	}
	if s.PassRate != 2.0/3.0 {
		t.Errorf("expected pass rate over executed cases, got %v", s.PassRate)
	}
	if s.DurationMs != 2000 {
		t.Errorf("expected duration 2000ms, got %v", s.DurationMs)
	}

	if len(s.Metrics) == 0 || s.Metrics[0].Name != "latency_ms" {
		t.Fatalf("expected latency_ms first in metrics, got %+v", s.Metrics)
	}
	if s.Metrics[0].Count != 3 {
		t.Errorf("expected 3 latency samples, got %d", s.Metrics[0].Count)
	}

	var sawRelevance bool
	for _, m := range s.Metrics {
		if m.Name == "relevance" {
			sawRelevance = true
			if m.Count != 2 || math.Abs(m.Mean-0.7) > 1e-9 {
				t.Errorf("expected relevance mean 0.7 over 2 samples, got %+v", m)
			}
		}
	}
	if !sawRelevance {
		t.Error("expected custom relevance metric in summary")
	}
}
