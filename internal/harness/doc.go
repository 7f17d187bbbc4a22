// Package harness executes batches of evaluation cases against a prompt
// version with bounded concurrency.
//
// The harness drives an [Executor] over a list of [Case] values with:
//   - A bounded worker pool (default 4 workers)
//   - Optional pacing (case starts per second)
//   - Per-case timeouts recorded as failed observations
//   - Cooperative batch cancellation
//
// # Basic Usage
//
//	r := harness.New(executor, harness.Options{
//		Workers: 8,
//		Timeout: 30 * time.Second,
//	})
//	results, err := r.Run(ctx, cases)
//	summary := harness.Summarize(results, elapsed)
//
// Results always come back in the input's order, one per case, no matter
// which worker finished first. Observations land in the runner's
// aggregator for statistics and storage.
//
// # Cancellation
//
// Cancelling the Run context stops cases that have not started; cases
// already executing finish naturally and their observations are kept.
// Skipped cases are marked in their results rather than dropped. A case
// that outlives the per-case timeout is recorded as a failed observation
// with a timeout message instead of holding up the batch.
//
// # Middleware
//
// Executors compose the same way requesters do in HTTP load tools:
//   - [WithRetry]: re-attempt errored calls with optional backoff
//   - [WithLogging]: log errored calls to a separate trail
//
// # Live Progress
//
// An optional [Collector] aggregates latencies into an HDR histogram while
// the batch runs, for progress lines and the dashboard. Its percentiles
// are bucketed approximations; exact report statistics come from the raw
// records afterward.
package harness
