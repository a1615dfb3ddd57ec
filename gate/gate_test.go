package gate

import (
	"testing"

	"github.com/gtprovider/gtp/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleSetsPausedImmediately(t *testing.T) {
	var g Gate
	assert.False(t, g.Paused())
	g.Toggle()
	assert.True(t, g.Paused())
}

func TestPauseFadesToZeroOverThreeSeconds(t *testing.T) {
	s := record.DefaultSchema()
	var g Gate
	var last record.Record
	last.Speed = 10

	g.Toggle()
	var filtered, raw record.Record
	var paused bool
	for i := 0; i < 300; i++ {
		paused = g.Apply(s, &filtered, &raw, &last, 0.01)
	}
	require.True(t, paused)
	assert.InDelta(t, 0, filtered.Speed, 0.5)
}

func TestUnpauseFadesInFromMidpoint(t *testing.T) {
	s := record.DefaultSchema()
	var g Gate
	var last record.Record
	last.Speed = 10
	var filtered, raw record.Record

	g.Toggle() // pause
	for i := 0; i < 150; i++ {
		g.Apply(s, &filtered, &raw, &last, 0.01) // 1.5s in, lerp=0.5
	}
	assert.InDelta(t, 5, filtered.Speed, 0.5)

	g.Toggle() // unpause at t=1.5s remaining fade
	var paused bool
	for i := 0; i < 150; i++ {
		// The pipeline hands the gate a freshly filtered record every frame.
		filtered = last
		paused = g.Apply(s, &filtered, &raw, &last, 0.01)
	}
	assert.False(t, paused)
	assert.InDelta(t, 10, filtered.Speed, 0.5, "should fade fully back in after the remaining 1.5s")
}

func TestAdvanceClampsToBounds(t *testing.T) {
	var g Gate
	g.Advance(-10)
	assert.Equal(t, PausedTime, g.timer)
	g.Advance(100)
	assert.Equal(t, float64(0), g.timer)
}
