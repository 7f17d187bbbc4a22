package harness

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector tracks call latencies and failures while a batch is running,
// feeding progress output and the live dashboard. The histogram keeps a
// fixed footprint at 3 significant figures; reports produced after a run
// compute exact statistics from the raw records instead.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByKind map[string]int64
	start        time.Time
}

// Snapshot is a point-in-time view of a running batch.
type Snapshot struct {
	Total       int64   `json:"total"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	CallsPerSec float64 `json:"calls_per_sec"`

	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	DurationMs float64        `json:"duration_ms"`
	Errors     map[string]int `json:"errors,omitempty"`
}

// NewCollector initializes a Collector.
func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		errorsByKind: make(map[string]int64),
		start:        time.Now(),
	}
}

// Observe records a single call's latency and error state.
func (c *Collector) Observe(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if err == nil {
		c.successes++
	} else {
		c.errorsByKind[errorKind(err)]++
		c.failures++
	}
}

// Snapshot computes current aggregates. A non-positive elapsed uses the
// time since the collector was created.
func (c *Collector) Snapshot(elapsed time.Duration) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed <= 0 {
		elapsed = time.Since(c.start)
	}

	total := c.successes + c.failures
	snap := Snapshot{
		Total:     total,
		Successes: c.successes,
		Failures:  c.failures,
	}

	snap.MinLatencyMs = float64(c.minLatency) / float64(time.Millisecond)
	snap.MaxLatencyMs = float64(c.maxLatency) / float64(time.Millisecond)
	if total > 0 {
		snap.MeanLatencyMs = float64(c.sumLatency) / float64(total) / float64(time.Millisecond)
	}

	if c.hist.TotalCount() > 0 {
		snap.P50LatencyMs = float64(c.hist.ValueAtQuantile(50)) / 1000.0
		snap.P90LatencyMs = float64(c.hist.ValueAtQuantile(90)) / 1000.0
		snap.P99LatencyMs = float64(c.hist.ValueAtQuantile(99)) / 1000.0
	}

	snap.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		snap.CallsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.errorsByKind) > 0 {
		snap.Errors = make(map[string]int, len(c.errorsByKind))
		for k, v := range c.errorsByKind {
			snap.Errors[k] = int(v)
		}
	}
	return snap
}

// ErrorBreakdown returns a copy of the error counts by kind.
func (c *Collector) ErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int, len(c.errorsByKind))
	for k, v := range c.errorsByKind {
		result[k] = int(v)
	}
	return result
}
