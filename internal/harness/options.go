package harness

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// Options configure the Runner.
type Options struct {
	Workers        int                         // worker goroutines; defaults to DefaultWorkers
	Timeout        time.Duration               // per-case budget (0 means no timeout)
	RatePerSecond  int                         // case starts per second pacing (0 means unpaced)
	Retry          RetryPolicy                 // retry behavior for transient call failures
	Logger         *zap.Logger                 // optional; nop when nil
	Collector      *Collector                  // optional live collector for progress/dashboard views
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
