package pipeline

import (
	"math"
	"testing"

	"github.com/gtprovider/gtp/filter"
	"github.com/gtprovider/gtp/mathx"
	"github.com/gtprovider/gtp/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline() *Pipeline {
	s := record.DefaultSchema()
	f := filter.New(s, nil)
	return New(s, f, nil, nil)
}

func translatedZ(z float64) mathx.Mat4 {
	return mathx.NewMat4([4][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, z},
		{0, 0, 0, 1},
	})
}

func TestGarbageFrameRejected(t *testing.T) {
	p := newTestPipeline()
	garbage := mathx.NewMat4([4][4]float64{
		{0.5, 0, 0, 0},
		{0, 0.5, 0, 0},
		{0, 0, 0.5, 0},
		{0, 0, 0, 1},
	})
	for i := 0; i < 5; i++ {
		ok := p.Process(garbage, 0.01)
		assert.False(t, ok)
	}
	m := p.Metrics()
	assert.EqualValues(t, 5, m.FramesGarbage)
	assert.Equal(t, int64(DroppedMax), m.DroppedSamples)
}

func TestFirstFrameSeedsNoPublish(t *testing.T) {
	p := newTestPipeline()
	ok := p.Process(mathx.Identity(), 0.01)
	require.True(t, ok)
	assert.True(t, p.Stale(), "first frame must not be published")
}

func TestStaleFrameEchoesPreviousBitwise(t *testing.T) {
	p := newTestPipeline()
	p.Process(mathx.Identity(), 0.01)                 // seed
	p.Process(translatedZ(0.01), 0.01)                 // first real frame
	require.NoError(t, p.SendFilteredData(nil))
	first := *p.Filtered()

	ok := p.Process(translatedZ(0.01), 0.01) // identical transform -> stale
	require.True(t, ok)
	assert.True(t, p.Stale())
	assert.Equal(t, first, *p.Filtered(), "stale frame must echo the previous filtered record bitwise")
}

func TestStationaryRigConverges(t *testing.T) {
	p := newTestPipeline()
	p.Process(mathx.Identity(), 0.01) // seed

	// Each frame must differ bitwise from identity (else "stale"), so nudge
	// translation by an amount smaller than the test's assertion tolerance.
	var last *record.Record
	for i := 0; i < 300; i++ {
		m := translatedZ(float64(i) * 1e-9)
		ok := p.Process(m, 0.01)
		require.True(t, ok)
		if !p.Stale() {
			require.NoError(t, p.SendFilteredData(nil))
		}
		last = p.Filtered()
	}
	assert.InDelta(t, 0, last.LocalVelocityX, 1e-3)
	assert.InDelta(t, 0, last.LocalVelocityZ, 1e-3)
	assert.InDelta(t, 0, last.Speed, 1e-3)
	assert.InDelta(t, -20, last.SuspensionPositionBL, 1.0)
	assert.InDelta(t, -20, last.SuspensionPositionFR, 1.0)
	assert.EqualValues(t, 0, last.Paused)
}

func TestStraightLineAccelerationConvergesToOneMetrePerSecond(t *testing.T) {
	p := newTestPipeline()
	p.Process(mathx.Identity(), 0.01) // seed

	z := 0.0
	var last *record.Record
	for i := 0; i < 400; i++ {
		z += 0.01
		ok := p.Process(translatedZ(z), 0.01)
		require.True(t, ok)
		if !p.Stale() {
			require.NoError(t, p.SendFilteredData(nil))
		}
		last = p.Filtered()
	}
	assert.InDelta(t, 1.0, last.LocalVelocityZ, 0.05)
	assert.InDelta(t, 1.0, last.Speed, 0.05)
}

// TestHardBrakingClampsSuspensionTravel exercises spec.md §8 scenario 4:
// velocity drops from 30 m/s to 0 over 0.5 s (50 frames at 100 Hz). The
// resulting deceleration exceeds maxAccel2DMagSusp, so scaledAccelMag
// saturates to 1 and each corner's travel settles at travelCenter offset by
// travelMax or travelMin scaled by its (purely-longitudinal) dot product
// with the corner's unit vector (spec.md §4.4 stage 9).
func TestHardBrakingClampsSuspensionTravel(t *testing.T) {
	p := newTestPipeline()
	p.Process(mathx.Identity(), 0.01) // seed

	const dt = 0.01
	const cruiseV = 30.0
	z := 0.0

	// Cruise at a constant 30 m/s until velocity and g-force settle.
	for i := 0; i < 200; i++ {
		z += cruiseV * dt
		ok := p.Process(translatedZ(z), dt)
		require.True(t, ok)
		if !p.Stale() {
			require.NoError(t, p.SendFilteredData(nil))
		}
	}
	cruised := p.Filtered()
	assert.InDelta(t, 0, cruised.GForceLongitudinal, 0.1)

	// Hard brake: velocity ramps 30 -> 0 over the next 50 frames (0.5 s).
	var last *record.Record
	for i := 1; i <= 50; i++ {
		v := cruiseV - 60*float64(i)*dt
		if v < 0 {
			v = 0
		}
		z += v * dt
		ok := p.Process(translatedZ(z), dt)
		require.True(t, ok)
		if !p.Stale() {
			require.NoError(t, p.SendFilteredData(nil))
		}
		last = p.Filtered()
	}

	require.Less(t, last.GForceLongitudinal, float32(0), "braking must show negative longitudinal g-force")

	magMS2 := math.Abs(float64(last.GForceLongitudinal)) / gToG
	if magMS2 > maxAccel2DMagSusp {
		magMS2 = maxAccel2DMagSusp
	}
	scaledAccelMag := magMS2 / maxAccel2DMagSusp
	assert.InDelta(t, 1.0, scaledAccelMag, 0.15, "60 m/s^2 deceleration must fully clamp scaledAccelMag")

	// accel_norm is purely longitudinal, so every corner's dot magnitude is
	// the same: its unit vector's Y-component, 1/sqrt(1.25).
	cornerDot := 1 / math.Sqrt(1.25)
	highTravel := travelCenter + travelMax*cornerDot*scaledAccelMag
	lowTravel := travelCenter + travelMin*cornerDot*scaledAccelMag

	assert.InDelta(t, highTravel, last.SuspensionPositionBL, 5)
	assert.InDelta(t, highTravel, last.SuspensionPositionBR, 5)
	assert.InDelta(t, lowTravel, last.SuspensionPositionFL, 5)
	assert.InDelta(t, lowTravel, last.SuspensionPositionFR, 5)
}

func TestKeyMaskInvariantsOnResidual(t *testing.T) {
	p := newTestPipeline()
	// Every bit in residualMask must be disjoint from the individually
	// filtered masks (spec.md §4.4 stage 13).
	assert.Zero(t, p.residualMask&p.positionMask)
	assert.Zero(t, p.residualMask&p.velocityMask)
	assert.Zero(t, p.residualMask&p.gforceMask)
	assert.Zero(t, p.residualMask&p.suspensionVelMask)
	assert.Zero(t, p.residualMask&p.angularVelMask)
}

func TestResetClearsPipelineState(t *testing.T) {
	p := newTestPipeline()
	p.Process(mathx.Identity(), 0.01)
	p.Process(translatedZ(0.01), 0.01)
	require.True(t, p.lastFrameValid)

	p.Reset()
	assert.False(t, p.lastFrameValid)
	assert.Equal(t, Metrics{}, p.Metrics())
}
