// Package consumer implements the companion consumer loop (C6): it reads
// the producer's published record over shared memory or UDP, applies a
// two-phase start-up fade, and dispatches each post-fade sample as a
// TelemetryUpdated event.
package consumer

import (
	"context"
	"time"

	"github.com/gtprovider/gtp/backoff"
	"github.com/gtprovider/gtp/record"
)

// PacingInterval is the target gap between dispatches (spec.md §4.6).
const PacingInterval = 10 * time.Millisecond

// StartWaitTime is how long, after the first sample arrives, all channels
// are forced to zero (spec.md §4.6).
const StartWaitTime = 2.0

// SmoothInTime is the linear-ramp duration following StartWaitTime.
const SmoothInTime = 3.0

// Source reads one record-sized frame. Read blocks until a frame is
// available or ctx is cancelled; it owns its own reconnect back-off
// (shared-memory open_existing retry or UDP liveness back-off, spec.md
// §4.6) and only returns an error on ctx cancellation.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// DrainChecker is an optional Source capability: when a source has more
// data already queued, the consumer skips its pacing sleep (spec.md §4.6
// "drain mode").
type DrainChecker interface {
	Pending() bool
}

// Fade implements the two-phase start-up fade (spec.md §4.6).
type Fade struct {
	startWait float64
	smoothIn  float64 // -1 until the start-wait phase completes
	begun     bool
}

// NewFade returns a fade ready for the first sample.
func NewFade() *Fade { return &Fade{startWait: StartWaitTime, smoothIn: -1} }

// Apply advances the fade by dt seconds and scales r in place.
func (f *Fade) Apply(schema *record.Schema, r *record.Record, dt float64) {
	if !f.begun {
		f.begun = true
	}
	switch {
	case f.startWait > 0:
		f.startWait -= dt
		r.LerpAllFromZero(schema, 0)
		if f.startWait <= 0 {
			f.smoothIn = SmoothInTime
		}
	case f.smoothIn > 0:
		f.smoothIn -= dt
		lerp := 1 - f.smoothIn/SmoothInTime
		r.LerpAllFromZero(schema, lerp)
	}
}

// Consumer drives the read-fade-dispatch loop.
type Consumer struct {
	Schema   *record.Schema
	Source   Source
	Dispatch func(record.Record)
	Clock    backoff.Clock

	fade *Fade
}

// Run blocks until ctx is cancelled or Source.Read returns a non-nil error.
func (c *Consumer) Run(ctx context.Context) error {
	clock := c.Clock
	if clock == nil {
		clock = backoff.RealClock
	}
	if c.fade == nil {
		c.fade = NewFade()
	}

	lastTick := clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := clock.Now()
		frame, err := c.Source.Read(ctx)
		if err != nil {
			return err
		}

		var r record.Record
		if err := r.FromBytes(c.Schema, frame); err != nil {
			continue
		}

		dt := start.Sub(lastTick).Seconds()
		if dt <= 0 {
			dt = PacingInterval.Seconds()
		}
		lastTick = start

		c.fade.Apply(c.Schema, &r, dt)
		if c.Dispatch != nil {
			c.Dispatch(r)
		}

		draining := false
		if dc, ok := c.Source.(DrainChecker); ok {
			draining = dc.Pending()
		}
		if draining {
			continue
		}
		elapsed := clock.Now().Sub(start)
		if sleep := PacingInterval - elapsed; sleep > 0 {
			clock.Sleep(sleep)
		}
	}
}
