// Package gate implements the pause/hotkey gate (C7): a single hysteretic
// boolean with a fade timer, so toggling mid-fade resumes from where the
// previous fade left off rather than restarting.
package gate

import "github.com/gtprovider/gtp/record"

// PausedTime is the full fade duration in either direction (spec.md §4.7).
const PausedTime = 3.0

// Gate holds the pause state. Zero value is unpaused with no fade in
// progress; ready to use.
type Gate struct {
	paused bool
	timer  float64 // in [0, PausedTime]
}

// Toggle flips paused and sets timer = PausedTime - timer, the hysteretic
// flip that lets a re-toggle before the fade completes pick up where it
// left off (spec.md §4.7).
func (g *Gate) Toggle() {
	g.paused = !g.paused
	g.timer = PausedTime - g.timer
}

// Paused reports the current boolean state, independent of fade progress.
func (g *Gate) Paused() bool { return g.paused }

// Advance counts the fade timer down by dt seconds, clamped to
// [0, PausedTime]. The timer runs down in both the paused and unpaused
// phases; only Toggle's hysteretic flip changes its direction of meaning
// (spec.md §4.7).
func (g *Gate) Advance(dt float64) {
	g.timer -= dt
	if g.timer < 0 {
		g.timer = 0
	}
	if g.timer > PausedTime {
		g.timer = PausedTime
	}
}

// Apply implements pipeline.PauseGate: while paused, filtered is replaced
// by lastFiltered faded toward zero by timer/PausedTime; while unpausing
// with timer > 0, filtered fades in from (1 - lerp). filtered.paused and
// raw.paused are set by the caller from the returned bool.
func (g *Gate) Apply(schema *record.Schema, filtered, raw, lastFiltered *record.Record, dt float64) bool {
	g.Advance(dt)
	lerp := g.timer / PausedTime

	switch {
	case g.paused:
		filtered.Copy(lastFiltered)
		filtered.LerpAllFromZero(schema, lerp)
	case g.timer > 0:
		filtered.LerpAllFromZero(schema, 1-lerp)
	}
	return g.paused
}
