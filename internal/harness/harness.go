package harness

import (
	"context"
	"time"

	"github.com/promptgauge/promptgauge/internal/metrics"
)

// Case is one evaluation input for a prompt version. Success is judged by
// Validate when set, else by comparing against Expected when non-empty,
// else by the call simply not erroring.
type Case struct {
	Name     string                   `json:"name"`
	Inputs   map[string]any           `json:"inputs"`
	Expected string                   `json:"expected,omitempty"`
	Validate func(output string) bool `json:"-"`
}

// accept applies the case's success criteria to a produced output.
func (c Case) accept(output string) bool {
	if c.Validate != nil {
		return c.Validate(output)
	}
	if c.Expected != "" {
		return output == c.Expected
	}
	return true
}

// Outcome is what an Executor produced for one case: the raw model output
// and the observation built from the call. On error the record may still
// carry partial data (tokens counted before the call failed, for example).
type Outcome struct {
	Output string
	Record metrics.Record
}

// Executor runs a single case. Implementations must honor ctx cancellation
// and deadlines; the runner uses them for per-case timeouts.
type Executor interface {
	Execute(ctx context.Context, c Case) (Outcome, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, c Case) (Outcome, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, c Case) (Outcome, error) {
	return f(ctx, c)
}

// CaseResult is the outcome of one case within a batch run. Results are
// returned in the batch's input order regardless of completion order.
type CaseResult struct {
	Case     Case           `json:"case"`
	Index    int            `json:"index"`
	Output   string         `json:"output,omitempty"`
	Record   metrics.Record `json:"record"`
	Err      error          `json:"-"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"-"`
	Skipped  bool           `json:"skipped,omitempty"`
}
