// Package filter implements the per-channel cascaded noise filter (C2): a
// nested low-pass smoother gated by a key mask, with per-channel-group
// tuning (stage count and smoothing factor) and explicit reset semantics.
package filter

import (
	"github.com/gtprovider/gtp/record"
)

// Profile configures one channel group's cascade: Stages nested first-order
// exponential smoothers, each with smoothing factor Alpha in (0, 1] applied
// per call (not scaled by dt — the derivation pipeline already divides raw
// deltas by dt before filtering, per spec.md §4.4).
type Profile struct {
	Stages int
	Alpha  float64
}

// DefaultProfile is used for any channel not covered by a more specific
// group in a Filter's Groups table.
var DefaultProfile = Profile{Stages: 2, Alpha: 0.35}

// history is the nested-cascade state for one channel: one accumulator per
// stage, each stage's output feeding the next stage's input.
type history struct {
	stage []float64
	warm  bool // false until the first Update call seeds every stage
}

func (h *history) reset() {
	for i := range h.stage {
		h.stage[i] = 0
	}
	h.warm = false
}

// update runs raw through the cascade and returns the smoothed result.
func (h *history) update(p Profile, raw float64) float64 {
	if len(h.stage) != p.Stages {
		h.stage = make([]float64, p.Stages)
		h.warm = false
	}
	if p.Stages == 0 {
		return raw
	}
	if !h.warm {
		for i := range h.stage {
			h.stage[i] = raw
		}
		h.warm = true
		return h.stage[len(h.stage)-1]
	}
	in := raw
	for i := 0; i < p.Stages; i++ {
		h.stage[i] += p.Alpha * (in - h.stage[i])
		in = h.stage[i]
	}
	return h.stage[p.Stages-1]
}

// Filter is the cascaded smoother for one schema's worth of channels. It is
// not safe for concurrent use — the derivation pipeline owns it exclusively,
// matching the pipeline state's single-owner contract (spec.md §4.1).
type Filter struct {
	schema *record.Schema
	hist   []history  // indexed by field position in schema.Fields()
	prof   []Profile  // resolved profile per field, same indexing
}

// New builds a Filter over schema, resolving each field's Profile from
// groups (keyed by record.DataKey) and falling back to DefaultProfile for
// any field groups does not mention.
func New(schema *record.Schema, groups map[record.DataKey]Profile) *Filter {
	fields := schema.Fields()
	f := &Filter{
		schema: schema,
		hist:   make([]history, len(fields)),
		prof:   make([]Profile, len(fields)),
	}
	for i, fd := range fields {
		if p, ok := groups[fd.Key]; ok {
			f.prof[i] = p
		} else {
			f.prof[i] = DefaultProfile
		}
	}
	return f
}

// Filter copies, for every channel whose key bit is set in mask, a smoothed
// value from raw into out; channels outside mask are left untouched in out.
// When reset is true, the history for every masked channel is cleared
// before the update (spec.md §4.2).
func (f *Filter) Filter(raw, out *record.Record, mask uint64, reset bool) {
	for i, fd := range f.schema.Fields() {
		bit := uint64(1) << fd.Bit
		if mask&bit == 0 {
			continue
		}
		if reset {
			f.hist[i].reset()
		}
		smoothed := f.hist[i].update(f.prof[i], fd.GetValue(raw))
		fd.SetValue(out, smoothed)
	}
}

// Reset clears history for every channel in mask without performing an
// update (used when a stream restarts, e.g. by pipeline.Pipeline.Reset).
func (f *Filter) Reset(mask uint64) {
	for i, fd := range f.schema.Fields() {
		bit := uint64(1) << fd.Bit
		if mask&bit == 0 {
			continue
		}
		f.hist[i].reset()
	}
}
