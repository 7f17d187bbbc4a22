package harness_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/metrics"
)

// flakyExecutor fails a fixed number of times before succeeding.
type flakyExecutor struct {
	failures int
	attempts int
	err      error
}

func (f *flakyExecutor) Execute(ctx context.Context, c harness.Case) (harness.Outcome, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return harness.Outcome{}, f.err
	}
	return harness.Outcome{Output: "ok", Record: metrics.NewRecord()}, nil
}

func TestWithRetryEventualSuccess(t *testing.T) {
	inner := &flakyExecutor{failures: 2, err: errors.New("transient")}
	exec := harness.WithRetry(inner, harness.RetryPolicy{MaxAttempts: 3})

	out, err := exec.Execute(context.Background(), harness.Case{Name: "c"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if out.Output != "ok" {
		t.Errorf("expected output ok, got %q", out.Output)
	}
	if inner.attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("still broken")
	inner := &flakyExecutor{failures: 10, err: wantErr}
	exec := harness.WithRetry(inner, harness.RetryPolicy{MaxAttempts: 3})

	_, err := exec.Execute(context.Background(), harness.Case{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected final error, got %v", err)
	}
	if inner.attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.attempts)
	}
}

func TestWithRetryRespectsPredicate(t *testing.T) {
	fatal := errors.New("invalid request")
	inner := &flakyExecutor{failures: 10, err: fatal}
	exec := harness.WithRetry(inner, harness.RetryPolicy{
		MaxAttempts: 5,
		ShouldRetry: func(err error) bool { return !errors.Is(err, fatal) },
	})

	if _, err := exec.Execute(context.Background(), harness.Case{}); !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if inner.attempts != 1 {
		t.Errorf("expected no retries for non-retryable error, got %d attempts", inner.attempts)
	}
}

func TestWithRetryDelayFunc(t *testing.T) {
	var delays []int
	inner := &flakyExecutor{failures: 2, err: errors.New("transient")}
	exec := harness.WithRetry(inner, harness.RetryPolicy{
		MaxAttempts: 3,
		DelayFunc: func(attempt int, err error) time.Duration {
			delays = append(delays, attempt)
			return time.Millisecond
		},
	})

	if _, err := exec.Execute(context.Background(), harness.Case{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delays) != 2 || delays[0] != 1 || delays[1] != 2 {
		t.Errorf("expected backoff called with attempts [1 2], got %v", delays)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	inner := &flakyExecutor{failures: 10, err: errors.New("transient")}
	exec := harness.WithRetry(inner, harness.RetryPolicy{MaxAttempts: 10, Delay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := exec.Execute(ctx, harness.Case{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if inner.attempts >= 10 {
		t.Errorf("expected cancellation to cut attempts short, got %d", inner.attempts)
	}
}

func TestWithRetrySingleAttemptPassthrough(t *testing.T) {
	inner := &flakyExecutor{}
	if exec := harness.WithRetry(inner, harness.RetryPolicy{MaxAttempts: 1}); exec != harness.Executor(inner) {
		t.Error("expected passthrough when no retries are configured")
	}
}

func TestWithLoggingLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	inner := &flakyExecutor{failures: 1, err: errors.New("boom")}
	exec := harness.WithLogging(inner, logger)

	if _, err := exec.Execute(context.Background(), harness.Case{Name: "logged"}); err == nil {
		t.Fatal("expected error from first attempt")
	}
	if _, err := exec.Execute(context.Background(), harness.Case{Name: "quiet"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 logged failure, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["case"]; got != "logged" {
		t.Errorf("expected case field logged, got %v", got)
	}
}
