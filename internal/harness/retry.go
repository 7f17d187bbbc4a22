package harness

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy configures retry behavior for errored calls.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including the first try
	Delay       time.Duration                              // fixed delay between attempts (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

// retryExecutor wraps an Executor with retry logic.
type retryExecutor struct {
	inner  Executor
	policy RetryPolicy
}

// WithRetry wraps an Executor with retry capability. Only errored calls
// are retried; output validation happens after retries, in the runner.
func WithRetry(exec Executor, policy RetryPolicy) Executor {
	if policy.MaxAttempts <= 1 {
		return exec // no retries needed
	}
	return &retryExecutor{
		inner:  exec,
		policy: policy,
	}
}

func (r *retryExecutor) Execute(ctx context.Context, c Case) (Outcome, error) {
	var lastOut Outcome
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return lastOut, ctx.Err()
		}

		lastOut, lastErr = r.inner.Execute(ctx, c)
		if lastErr == nil {
			return lastOut, nil
		}

		// Don't delay after the last attempt.
		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(lastErr) {
				return lastOut, lastErr
			}
			var delay time.Duration
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, lastErr)
			} else {
				delay = r.policy.Delay
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return lastOut, ctx.Err()
				}
			}
		}
	}
	return lastOut, lastErr
}

// loggingExecutor wraps an Executor with failure logging.
type loggingExecutor struct {
	inner  Executor
	logger *zap.Logger
}

// WithLogging wraps an Executor to log errored calls, for keeping a
// separate failure trail alongside the main log.
func WithLogging(exec Executor, logger *zap.Logger) Executor {
	if logger == nil {
		return exec
	}
	return &loggingExecutor{
		inner:  exec,
		logger: logger,
	}
}

func (l *loggingExecutor) Execute(ctx context.Context, c Case) (Outcome, error) {
	out, err := l.inner.Execute(ctx, c)
	if err != nil {
		l.logger.Warn("call failed",
			zap.String("case", c.Name),
			zap.Error(err))
	}
	return out, err
}
