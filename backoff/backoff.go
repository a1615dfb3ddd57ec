// Package backoff implements the consumer's reconnect policy: a fixed 1 s
// back-off whenever the shared-memory mapping or UDP socket is not yet
// available (spec.md §4.6, §7 item 1).
package backoff

import "time"

// Clock abstracts wall-clock access so tests can run without real sleeps.
// Grounded on the same Clock seam the teacher's rate limiter uses to avoid
// depending on wall-clock time inside retry logic.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time     { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock is the production Clock.
var RealClock Clock = realClock{}

// Interval is the fixed reconnect back-off the spec mandates — no jitter,
// no exponential growth (spec.md §4.6: "retrying every 1 s on not-found").
const Interval = time.Second

// LivenessTimeout is how long since the last successful frame before the
// consumer treats the UDP source as unavailable and enters back-off
// (spec.md §4.6, §5 "Timeouts").
const LivenessTimeout = 500 * time.Millisecond

// Policy retries op every Interval until it succeeds or ctx-equivalent
// stop returns true. It does not implement exponential back-off: the spec
// calls for a flat 1 s retry, not a growing one.
type Policy struct {
	Clock Clock
}

// NewPolicy returns a Policy using RealClock.
func NewPolicy() *Policy { return &Policy{Clock: RealClock} }

// Retry calls op repeatedly, sleeping Interval between failures, until op
// returns a nil error or stop reports true. stop is polled before each
// attempt so callers can implement prompt cancellation.
func (p *Policy) Retry(op func() error, stop func() bool) error {
	clock := p.Clock
	if clock == nil {
		clock = RealClock
	}
	for {
		if stop != nil && stop() {
			return nil
		}
		err := op()
		if err == nil {
			return nil
		}
		clock.Sleep(Interval)
	}
}

// Liveness tracks elapsed time since the last successful sample, to decide
// when the consumer should re-enter back-off (spec.md §5 "Timeouts").
type Liveness struct {
	clock     Clock
	lastGood  time.Time
	hasSample bool
}

// NewLiveness returns a Liveness using RealClock.
func NewLiveness() *Liveness { return &Liveness{clock: RealClock} }

// NewLivenessWithClock injects a Clock for deterministic tests.
func NewLivenessWithClock(c Clock) *Liveness { return &Liveness{clock: c} }

// MarkGood records a successful sample at the current time.
func (l *Liveness) MarkGood() {
	l.lastGood = l.clock.Now()
	l.hasSample = true
}

// Stale reports whether more than LivenessTimeout has elapsed since the
// last good sample (always true before the first sample).
func (l *Liveness) Stale() bool {
	if !l.hasSample {
		return true
	}
	return l.clock.Now().Sub(l.lastGood) > LivenessTimeout
}
