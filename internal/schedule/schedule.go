// Package schedule runs the polling loops behind the process, browser, and
// clipboard scanners: a fixed interval while the platform read succeeds, and
// jittered exponential backoff while it keeps failing.
package schedule

import (
	"context"
	"math/rand"
	"time"
)

// Poller invokes a scan function on a schedule until its context is
// cancelled. Cancellation is cooperative: the current cycle finishes, so
// shutdown latency is bounded by one scan plus one interval.
type Poller struct {
	// Interval between successful cycles.
	Interval time.Duration

	// MaxBackoff caps the failure backoff. Zero selects 8x Interval.
	MaxBackoff time.Duration

	// Jitter is the random fraction (0..1) added to each backoff delay so
	// repeatedly failing sources do not synchronize. Zero selects 0.2.
	Jitter float64
}

// Run calls scan until ctx is done. Scan reports whether the cycle succeeded;
// a failed cycle doubles the delay up to MaxBackoff, a successful one resets
// it to Interval.
func (p Poller) Run(ctx context.Context, scan func(ctx context.Context) bool) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	maxBackoff := p.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 8 * interval
	}
	jitter := p.Jitter
	if jitter <= 0 {
		jitter = 0.2
	}

	delay := interval
	failures := 0

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if scan(ctx) {
			failures = 0
			delay = interval
		} else {
			failures++
			delay = backoff(interval, maxBackoff, failures, jitter)
		}
		timer.Reset(delay)
	}
}

func backoff(interval, max time.Duration, failures int, jitter float64) time.Duration {
	d := interval
	for i := 1; i < failures && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	// Spread by up to the jitter fraction so failing scanners drift apart.
	d += time.Duration(rand.Float64() * jitter * float64(d))
	return d
}
