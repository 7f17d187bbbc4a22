package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/promptgauge/promptgauge/internal/harness"
)

// ProgressReporter displays real-time progress of a running batch.
type ProgressReporter struct {
	collector *harness.Collector
	total     int
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a reporter that rewrites one status line at
// the given interval. total may be 0 when the case count is unknown.
func NewProgressReporter(collector *harness.Collector, total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		total:     total,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and terminates the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			snap := p.collector.Snapshot(time.Since(p.start))
			line := fmt.Sprintf("\rCases: %d", snap.Total)
			if p.total > 0 {
				line = fmt.Sprintf("\rCases: %d/%d", snap.Total, p.total)
			}
			line += fmt.Sprintf(" | OK: %d | Failed: %d | P50: %.0fms | P99: %.0fms",
				snap.Successes, snap.Failures, snap.P50LatencyMs, snap.P99LatencyMs)
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
