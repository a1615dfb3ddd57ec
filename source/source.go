// Package source implements the game/frame adapter (C5): a periodic driver
// that samples world transforms from an external hook and feeds them to the
// derivation pipeline at the platform's target cadence.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/gtprovider/gtp/mathx"
)

// DefaultInterval targets the platform's 100 Hz update rate (spec.md §4.5).
const DefaultInterval = 10 * time.Millisecond

// FrameSource supplies one world transform and its elapsed dt per call.
// Experimental: a future streaming variant may replace the per-call dt with
// a monotonic timestamp; this interface models the source the derivation
// pipeline reads from today.
type FrameSource interface {
	NextTransform(ctx context.Context) (transform mathx.Mat4, dt float64, err error)
}

// Dispatcher is the subset of pipeline.Pipeline the frame source drives.
// Process returns false only for a garbage frame (§4.4 stage 1); Stale
// reports whether the last Process call must not be published.
type Dispatcher interface {
	Process(transform mathx.Mat4, dt float64) bool
	Stale() bool
	SendFilteredData(publish func(frame []byte) error) error
}

// TickerSource owns the thread that calls process_transform at a fixed
// cadence and, for every frame consumed and not stale, calls
// send_filtered_data (spec.md §4.5: "The adapter owns the thread that also
// calls send_filtered_data() after a successful process_transform that was
// not stale").
type TickerSource struct {
	Source   FrameSource
	Pipeline Dispatcher
	Interval time.Duration
	Publish  func(frame []byte) error

	// OnError receives any non-fatal NextTransform error (e.g. a transient
	// controller read failure) and any error returned by SendFilteredData;
	// nil drops the error silently.
	OnError func(error)
}

// Run drives the loop until ctx is cancelled.
func (t *TickerSource) Run(ctx context.Context) error {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.tick(ctx); err != nil {
				if t.OnError != nil {
					t.OnError(fmt.Errorf("source: tick: %w", err))
				}
			}
		}
	}
}

func (t *TickerSource) tick(ctx context.Context) error {
	transform, dt, err := t.Source.NextTransform(ctx)
	if err != nil {
		return err
	}
	consumed := t.Pipeline.Process(transform, dt)
	if !consumed || t.Pipeline.Stale() {
		return nil
	}
	return t.Pipeline.SendFilteredData(t.Publish)
}
