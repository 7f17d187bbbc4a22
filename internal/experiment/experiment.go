// Package experiment runs two-arm comparisons of prompt versions, collecting
// metric samples per arm and declaring a winner with a confidence score.
package experiment

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/stats"
)

// Arm labels. Every sample belongs to exactly one of the two.
const (
	ArmA = "a"
	ArmB = "b"
)

// DefaultMetric is the metric compared when callers do not choose one.
const DefaultMetric = metrics.MetricQuality

// DefaultMinSamples is the per-arm sample count treated as "enough data".
const DefaultMinSamples = 30

var (
	// ErrInvalidArm reports a sample logged against an unknown arm label.
	ErrInvalidArm = errors.New("invalid experiment arm")
	// ErrInsufficientData reports a result request while an arm is empty.
	ErrInsufficientData = errors.New("insufficient experiment data")
)

// Result is the outcome of an experiment at one point in time. It reflects
// the arms' contents when requested and is never cached.
type Result struct {
	Metric        string  `json:"metric"`
	VersionA      string  `json:"version_a,omitempty"`
	VersionB      string  `json:"version_b,omitempty"`
	MeanA         float64 `json:"mean_a"`
	MeanB         float64 `json:"mean_b"`
	SamplesA      int     `json:"samples_a"`
	SamplesB      int     `json:"samples_b"`
	Winner        string  `json:"winner"`
	WinnerVersion string  `json:"winner_version,omitempty"`
	Improvement   float64 `json:"improvement"`
	Confidence    float64 `json:"confidence"`
}

// ConfidenceEstimator scores how much to trust a result, in [0, 1].
// Implementations must treat the arm slices as read-only.
type ConfidenceEstimator interface {
	Confidence(a, b []float64) float64
}

// Heuristic is the default estimator: confidence ramps linearly with the
// smaller arm's sample count and is cut when either arm's values are noisy
// relative to their mean. It is a rough heuristic, not a significance test;
// swap in a real test via Runner.SetEstimator when that matters.
type Heuristic struct {
	MinSamples  int     // samples per arm for full confidence; default 30
	CVThreshold float64 // coefficient of variation where the penalty starts; default 0.5
}

// Confidence implements ConfidenceEstimator.
func (h Heuristic) Confidence(a, b []float64) float64 {
	minSamples := h.MinSamples
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	cvThreshold := h.CVThreshold
	if cvThreshold <= 0 {
		cvThreshold = 0.5
	}

	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	confidence := math.Min(float64(smaller)/float64(minSamples), 1.0)

	// Penalize on the noisier arm.
	cv := math.Max(variationOf(a), variationOf(b))
	if cv > cvThreshold {
		excess := math.Min(cv-cvThreshold, 0.5)
		confidence *= 1 - excess
	}
	return confidence
}

// variationOf is the coefficient of variation, degenerating to 0 when the
// mean is 0.
func variationOf(values []float64) float64 {
	mean := stats.Mean(values)
	if mean == 0 {
		return 0
	}
	return stats.StdDev(values) / math.Abs(mean)
}

// Runner collects samples for two arms of an experiment. All methods are
// safe for concurrent use.
type Runner struct {
	mu        sync.Mutex
	metric    string
	versionA  string
	versionB  string
	a         []float64
	b         []float64
	estimator ConfidenceEstimator
}

// New creates a Runner comparing two arms on the named metric. An empty
// metric falls back to DefaultMetric.
func New(metric string) *Runner {
	if metric == "" {
		metric = DefaultMetric
	}
	return &Runner{metric: metric, estimator: Heuristic{}}
}

// NewLabeled creates a Runner whose arms carry prompt version labels, which
// show up in results as version_a/version_b and winner_version.
func NewLabeled(metric, versionA, versionB string) *Runner {
	r := New(metric)
	r.versionA = versionA
	r.versionB = versionB
	return r
}

// SetEstimator replaces the confidence estimator.
func (r *Runner) SetEstimator(e ConfidenceEstimator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e != nil {
		r.estimator = e
	}
}

// Metric returns the metric label this experiment compares.
func (r *Runner) Metric() string {
	return r.metric
}

// Log appends one observed value to the named arm.
func (r *Runner) Log(arm string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch arm {
	case ArmA:
		r.a = append(r.a, value)
	case ArmB:
		r.b = append(r.b, value)
	default:
		return fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidArm, arm, ArmA, ArmB)
	}
	return nil
}

// LogBatch appends values to the named arm in order. On an invalid arm
// nothing is appended.
func (r *Runner) LogBatch(arm string, values []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch arm {
	case ArmA:
		r.a = append(r.a, values...)
	case ArmB:
		r.b = append(r.b, values...)
	default:
		return fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidArm, arm, ArmA, ArmB)
	}
	return nil
}

// SampleCounts reports how many values each arm holds.
func (r *Runner) SampleCounts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.a), len(r.b)
}

// Ready reports whether both arms hold at least minSamples values.
// minSamples <= 0 means DefaultMinSamples.
func (r *Runner) Ready(minSamples int) bool {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.a) >= minSamples && len(r.b) >= minSamples
}

// Result computes the experiment outcome from the arms' current contents.
// It fails with ErrInsufficientData while either arm is empty. The winner
// is the arm with the higher mean; exact ties go to arm a. Improvement is
// the absolute mean change relative to arm a, 0 when arm a's mean is 0.
func (r *Runner) Result() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.a) == 0 || len(r.b) == 0 {
		return Result{}, fmt.Errorf("%w: arm a has %d samples, arm b has %d", ErrInsufficientData, len(r.a), len(r.b))
	}

	meanA := stats.Mean(r.a)
	meanB := stats.Mean(r.b)

	winner := ArmA
	if meanB > meanA {
		winner = ArmB
	}

	improvement := 0.0
	if meanA != 0 {
		improvement = math.Abs(meanB-meanA) / meanA * 100
	}

	res := Result{
		Metric:      r.metric,
		VersionA:    r.versionA,
		VersionB:    r.versionB,
		MeanA:       meanA,
		MeanB:       meanB,
		SamplesA:    len(r.a),
		SamplesB:    len(r.b),
		Winner:      winner,
		Improvement: improvement,
		Confidence:  r.estimator.Confidence(r.a, r.b),
	}
	if r.versionA != "" && r.versionB != "" {
		if winner == ArmA {
			res.WinnerVersion = r.versionA
		} else {
			res.WinnerVersion = r.versionB
		}
	}
	return res, nil
}

// Clear empties both arms. The runner stays usable for a fresh experiment.
func (r *Runner) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.a = nil
	r.b = nil
}
