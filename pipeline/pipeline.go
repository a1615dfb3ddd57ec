// Package pipeline implements the per-frame derivation (C4): the fourteen
// ordered stages that turn a raw world transform into a fully filtered
// telemetry record, plus the fifteenth (publish) stage invoked separately
// by the frame source once a frame is known not to be stale.
package pipeline

import (
	"fmt"
	"math"

	"github.com/gtprovider/gtp/filter"
	"github.com/gtprovider/gtp/mathx"
	"github.com/gtprovider/gtp/record"
)

// gToG is the m/s² -> g conversion constant (1/9.80665).
const gToG = 0.10197162129779283

// maxAccel2DMagSusp clamps the planar g-force magnitude feeding suspension
// synthesis.
const maxAccel2DMagSusp = 3.0

const (
	travelCenter = -20.0
	travelMax    = 8 - travelCenter  // 28
	travelMin    = -80 - travelCenter // -60
)

// DroppedMax is the sentinel dropped_sample_count value a garbage frame
// sets (spec.md §4.4 stage 1): "MAX" in the source, modeled here as the
// largest representable count so any real run is obviously saturated.
const DroppedMax = math.MaxInt64

// axisLengthMin is the minimum acceptable rotation-row length; below this a
// frame is garbage (spec.md glossary).
const axisLengthMin = 0.9

// ControllerInput is the per-frame driver-input snapshot consumed by stage
// 12 (spec.md §4.4).
type ControllerInput struct {
	RightTrigger float64
	LeftTrigger  float64
	LeftThumbX   float64
}

// ControllerSource supplies the current driver input. A nil source leaves
// engine_rate/steering_input/throttle_input/brake_input at zero.
type ControllerSource interface {
	Read() ControllerInput
}

// PauseGate applies stage 14's pause/fade behavior in place to filtered and
// raw (using lastFiltered as the frozen output while paused), advancing its
// internal timer by dt, and reports whether the vehicle is currently
// considered paused.
type PauseGate interface {
	Apply(schema *record.Schema, filtered, raw, lastFiltered *record.Record, dt float64) (paused bool)
}

// Metrics is a snapshot of the pipeline's frame-accounting counters, used
// by the telemetry/metrics facade.
type Metrics struct {
	FramesProcessed uint64
	FramesStale     uint64
	FramesGarbage   uint64
	DroppedSamples  int64
}

// corner indexes the four suspension corners in the order the spec lists
// them: bl, br, fl, fr.
type corner int

const (
	cornerBL corner = iota
	cornerBR
	cornerFL
	cornerFR
	cornerCount
)

var cornerVec = [cornerCount]mathx.Vec2{
	cornerBL: {X: -0.5, Y: -1},
	cornerBR: {X: 0.5, Y: -1},
	cornerFL: {X: -0.5, Y: 1},
	cornerFR: {X: 0.5, Y: 1},
}

func init() {
	for i, v := range cornerVec {
		cornerVec[corner(i)] = v.Normalize()
	}
}

// Pipeline owns the single-writer derivation state for one producer
// instance. It is not safe for concurrent use — spec.md §4 reserves
// exclusive ownership to the producer loop.
type Pipeline struct {
	schema *record.Schema
	filt   *filter.Filter
	gate   PauseGate
	ctrl   ControllerSource

	raw      record.Record
	filtered record.Record

	lastFiltered      record.Record
	lastTransform     mathx.Mat4
	lastPosition      mathx.Vec3
	lastVelocity      mathx.Vec3
	lastWorldVelocity mathx.Vec3
	rotInv            mathx.Mat4
	lastFrameValid    bool
	droppedSamples    int64

	stale                bool
	firstSeed            bool
	positionFilterSeeded bool

	positionMask         uint64
	velocityMask         uint64
	gforceMask           uint64
	suspensionVelMask    uint64
	angularVelMask       uint64
	residualMask         uint64

	metrics Metrics
}

// New builds a Pipeline over schema, using filt for per-group smoothing and
// optional gate/ctrl collaborators. gate and ctrl may be nil.
func New(schema *record.Schema, filt *filter.Filter, gate PauseGate, ctrl ControllerSource) *Pipeline {
	p := &Pipeline{schema: schema, filt: filt, gate: gate, ctrl: ctrl}

	p.positionMask = schema.KeyMask(record.KeyPositionX, record.KeyPositionY, record.KeyPositionZ)
	p.velocityMask = schema.KeyMask(record.KeyLocalVelocityX, record.KeyLocalVelocityY, record.KeyLocalVelocityZ)
	p.gforceMask = schema.KeyMask(record.KeyGForceLateral, record.KeyGForceVertical, record.KeyGForceLongitudinal)
	p.suspensionVelMask = schema.KeyMask(
		record.KeySuspensionVelocityBL, record.KeySuspensionVelocityBR,
		record.KeySuspensionVelocityFL, record.KeySuspensionVelocityFR,
	)
	p.angularVelMask = schema.KeyMask(record.KeyYawVelocity, record.KeyPitchVelocity, record.KeyRollVelocity)

	var full uint64
	for _, fd := range schema.Fields() {
		full |= 1 << fd.Bit
	}
	individuallyFiltered := p.positionMask | p.velocityMask | p.gforceMask | p.suspensionVelMask | p.angularVelMask
	p.residualMask = full &^ individuallyFiltered

	p.raw.Init()
	p.filtered.Init()
	p.lastFiltered.Init()
	return p
}

// Reset clears all pipeline state, as on stop_sending (spec.md §3).
func (p *Pipeline) Reset() {
	p.raw.Init()
	p.filtered.Init()
	p.lastFiltered.Init()
	p.lastTransform = mathx.Mat4{}
	p.lastPosition = mathx.Vec3{}
	p.lastVelocity = mathx.Vec3{}
	p.lastWorldVelocity = mathx.Vec3{}
	p.rotInv = mathx.Mat4{}
	p.lastFrameValid = false
	p.droppedSamples = 0
	p.stale = false
	p.positionFilterSeeded = false
	p.metrics = Metrics{}
	p.filt.Reset(math.MaxUint64)
}

// Stale reports whether the most recent Process call produced a stale or
// first-frame-seed result — the frame source must not call SendFilteredData
// in that case (spec.md §4.5).
func (p *Pipeline) Stale() bool { return p.stale || p.firstSeed }

// Metrics returns a snapshot of frame-accounting counters.
func (p *Pipeline) Metrics() Metrics {
	m := p.metrics
	m.DroppedSamples = p.droppedSamples
	return m
}

// Filtered returns the current filtered record (read-only use expected).
func (p *Pipeline) Filtered() *record.Record { return &p.filtered }

// Process runs stages 1-14 of the derivation for one frame. It returns
// false only when the transform is rejected as garbage (stage 1); every
// other outcome, including stale and first-frame-seed frames, returns true.
func (p *Pipeline) Process(transform mathx.Mat4, dt float64) bool {
	p.stale = false
	p.firstSeed = false

	// Stage 1: axis extraction / garbage check.
	rht, up, fwd := transform.Right(), transform.Up(), transform.Forward()
	if rht.Length() < axisLengthMin || up.Length() < axisLengthMin || fwd.Length() < axisLengthMin {
		p.droppedSamples = DroppedMax
		p.metrics.FramesGarbage++
		return false
	}

	// Stage 2: first-frame guard.
	if !p.lastFrameValid {
		p.lastPosition = transform.Translation()
		p.lastTransform = transform
		p.lastVelocity = mathx.Vec3{}
		p.lastWorldVelocity = mathx.Vec3{}
		p.lastFrameValid = true
		p.firstSeed = true
		return true
	}

	// Stage 3: dt sanitize.
	if dt <= 0 {
		dt = 0.015
	}

	// Stage 4: position & change detection.
	if transform.Equal(p.lastTransform) {
		p.filtered.Copy(&p.lastFiltered)
		p.droppedSamples++
		p.stale = true
		p.metrics.FramesStale++
		return true
	}
	worldPosition := transform.Translation()
	p.raw.PositionX, p.raw.PositionY, p.raw.PositionZ = float32(worldPosition.X), float32(worldPosition.Y), float32(worldPosition.Z)
	p.filt.Filter(&p.raw, &p.filtered, p.positionMask, !p.positionFilterSeeded)
	p.positionFilterSeeded = true
	p.droppedSamples = 0

	// Stage 5: local velocity.
	worldVelocity := worldPosition.Sub(p.lastPosition).Scale(1 / dt)
	rotOnly := transform.WithZeroTranslation()
	rotInv, err := rotOnly.Inverse()
	if err != nil {
		rotInv = mathx.Identity()
	}
	p.rotInv = rotInv
	localVelocity := rotInv.TransformDirection(worldVelocity)
	localVelocity.X = -localVelocity.X
	p.raw.LocalVelocityX = float32(localVelocity.X)
	p.raw.LocalVelocityY = float32(localVelocity.Y)
	p.raw.LocalVelocityZ = float32(localVelocity.Z)
	p.lastPosition = worldPosition
	p.lastWorldVelocity = worldVelocity

	// Stage 6: velocity filter.
	p.filt.Filter(&p.raw, &p.filtered, p.velocityMask, false)
	filteredVelocity := mathx.Vec3{X: float64(p.filtered.LocalVelocityX), Y: float64(p.filtered.LocalVelocityY), Z: float64(p.filtered.LocalVelocityZ)}

	// Stage 7: local acceleration -> g-force.
	accel := filteredVelocity.Sub(p.lastVelocity).Scale(1 / dt).Scale(gToG)
	p.raw.GForceLateral = float32(accel.X)
	p.raw.GForceVertical = float32(accel.Y)
	p.raw.GForceLongitudinal = float32(accel.Z)
	p.filt.Filter(&p.raw, &p.filtered, p.gforceMask, false)
	p.lastVelocity = filteredVelocity

	// Stage 8: Euler angles.
	q := mathx.QuatFromMat4(transform)
	pyr := q.ToEuler()
	p.filtered.Pitch = float32(pyr.Pitch)
	p.filtered.Yaw = float32(pyr.Yaw)
	p.filtered.Roll = float32(mathx.LoopAngleRad(-pyr.Roll, math.Pi/2))
	p.raw.Pitch, p.raw.Yaw, p.raw.Roll = p.filtered.Pitch, p.filtered.Yaw, p.filtered.Roll

	// Stage 9: suspension synthesis.
	p.synthesizeSuspension(dt)

	// Stage 10: angular velocity + acceleration.
	p.computeAngularVelocity(transform, dt)

	// Stage 11: engine proxy.
	p.filtered.MaxRPM, p.raw.MaxRPM = 6000, 6000
	p.filtered.MaxGears, p.raw.MaxGears = 6, 6
	p.filtered.Gear, p.raw.Gear = 1, 1
	p.filtered.IdleRPM, p.raw.IdleRPM = 700, 700
	speed := filteredVelocity.Length()
	p.raw.Speed = float32(speed)
	p.filtered.Speed = float32(speed)

	// Stage 12: driver inputs.
	if p.ctrl != nil {
		in := p.ctrl.Read()
		p.raw.EngineRate = float32(in.RightTrigger*5500 + 700)
		p.raw.SteeringInput = float32(in.LeftThumbX)
		p.raw.ThrottleInput = float32(in.RightTrigger)
		p.raw.BrakeInput = float32(in.LeftTrigger)
	}

	// Stage 13: residual filter (every channel not yet individually filtered).
	p.filt.Filter(&p.raw, &p.filtered, p.residualMask, false)

	// Stage 14: pause gate.
	if p.gate != nil {
		paused := p.gate.Apply(p.schema, &p.filtered, &p.raw, &p.lastFiltered, dt)
		pausedVal := int32(0)
		if paused {
			pausedVal = 1
		}
		p.filtered.Paused, p.raw.Paused = pausedVal, pausedVal
	}

	p.lastTransform = transform
	p.metrics.FramesProcessed++
	return true
}

// synthesizeSuspension implements stage 9.
func (p *Pipeline) synthesizeSuspension(dt float64) {
	planar := mathx.Vec2{X: float64(p.filtered.GForceLateral) / gToG, Y: float64(p.filtered.GForceLongitudinal) / gToG}
	mag := planar.Length()
	clamped := mag
	if clamped > maxAccel2DMagSusp {
		clamped = maxAccel2DMagSusp
	}
	scaledAccelMag := clamped / maxAccel2DMagSusp
	norm := planar.Normalize()

	positions := [cornerCount]*float32{&p.filtered.SuspensionPositionBL, &p.filtered.SuspensionPositionBR, &p.filtered.SuspensionPositionFL, &p.filtered.SuspensionPositionFR}
	rawPositions := [cornerCount]*float32{&p.raw.SuspensionPositionBL, &p.raw.SuspensionPositionBR, &p.raw.SuspensionPositionFL, &p.raw.SuspensionPositionFR}
	lastPositions := [cornerCount]float32{p.lastFiltered.SuspensionPositionBL, p.lastFiltered.SuspensionPositionBR, p.lastFiltered.SuspensionPositionFL, p.lastFiltered.SuspensionPositionFR}
	rawVelocities := [cornerCount]*float32{&p.raw.SuspensionVelocityBL, &p.raw.SuspensionVelocityBR, &p.raw.SuspensionVelocityFL, &p.raw.SuspensionVelocityFR}
	filteredVelocities := [cornerCount]*float32{&p.filtered.SuspensionVelocityBL, &p.filtered.SuspensionVelocityBR, &p.filtered.SuspensionVelocityFL, &p.filtered.SuspensionVelocityFR}
	lastVelocities := [cornerCount]float32{p.lastFiltered.SuspensionVelocityBL, p.lastFiltered.SuspensionVelocityBR, p.lastFiltered.SuspensionVelocityFL, p.lastFiltered.SuspensionVelocityFR}
	rawAccelerations := [cornerCount]*float32{&p.raw.SuspensionAccelerationBL, &p.raw.SuspensionAccelerationBR, &p.raw.SuspensionAccelerationFL, &p.raw.SuspensionAccelerationFR}
	wheelPatch := [cornerCount]*float32{&p.filtered.WheelPatchSpeedBL, &p.filtered.WheelPatchSpeedBR, &p.filtered.WheelPatchSpeedFL, &p.filtered.WheelPatchSpeedFR}
	rawWheelPatch := [cornerCount]*float32{&p.raw.WheelPatchSpeedBL, &p.raw.WheelPatchSpeedBR, &p.raw.WheelPatchSpeedFL, &p.raw.WheelPatchSpeedFR}

	for c := corner(0); c < cornerCount; c++ {
		dot := mathx.SafeDot2(norm, cornerVec[c])
		var travel float64
		switch {
		case dot > 0:
			travel = travelCenter + travelMax*math.Abs(dot)*scaledAccelMag
		case dot < 0:
			travel = travelCenter + travelMin*math.Abs(dot)*scaledAccelMag
		default:
			travel = travelCenter
		}
		*positions[c] = float32(travel)
		*rawPositions[c] = float32(travel)

		vel := (float64(*positions[c]) - float64(lastPositions[c])) / dt
		*rawVelocities[c] = float32(vel)

		*wheelPatch[c] = p.filtered.LocalVelocityZ
		*rawWheelPatch[c] = p.filtered.LocalVelocityZ
	}

	p.filt.Filter(&p.raw, &p.filtered, p.suspensionVelMask, false)

	// Per-corner acceleration by finite difference of filtered velocities
	// (spec.md §4.4 stage 9), mirroring computeAngularVelocity's
	// filter-then-difference order. Like angular acceleration, it is not
	// individually filtered; the residual filter (stage 13) picks it up
	// from raw.
	for c := corner(0); c < cornerCount; c++ {
		accel := (float64(*filteredVelocities[c]) - float64(lastVelocities[c])) / dt
		*rawAccelerations[c] = float32(accel)
	}
}

// computeAngularVelocity implements stage 10.
func (p *Pipeline) computeAngularVelocity(transform mathx.Mat4, dt float64) {
	lastLocal := p.lastTransform.Mul(p.rotInv)
	lastFwd := lastLocal.Forward()
	lastUp := lastLocal.Up()
	lastRht := lastLocal.Right()

	fwdProjY := mathx.Vec3{X: lastFwd.X, Y: 0, Z: lastFwd.Z}.Normalize()
	fwdProjX := mathx.Vec3{X: 0, Y: lastFwd.Y, Z: lastFwd.Z}.Normalize()
	rhtProjZ := mathx.Vec3{X: lastRht.X, Y: lastRht.Y, Z: 0}.Normalize()

	zHat := mathx.Vec3{Z: 1}
	yHat := mathx.Vec3{Y: 1}
	xHat := mathx.Vec3{X: 1}

	yawVel := -safeAcos(fwdProjY.Dot(zHat)) * sign(lastFwd.Dot(yHat))
	pitchVel := -safeAcos(fwdProjX.Dot(zHat)) * sign(lastUp.Dot(zHat))
	rollVel := -safeAcos(rhtProjZ.Dot(xHat)) * sign(lastUp.Dot(xHat))

	yawVel /= dt
	pitchVel /= dt
	rollVel /= dt

	p.raw.YawVelocity = float32(yawVel)
	p.raw.PitchVelocity = float32(pitchVel)
	p.raw.RollVelocity = float32(rollVel)

	lastYawVel, lastPitchVel, lastRollVel := p.lastFiltered.YawVelocity, p.lastFiltered.PitchVelocity, p.lastFiltered.RollVelocity

	p.filt.Filter(&p.raw, &p.filtered, p.angularVelMask, false)

	// Angular acceleration, like suspension acceleration, is not
	// individually filtered; the residual filter (stage 13) picks it up
	// from these raw values.
	p.raw.YawAcceleration = float32((float64(p.filtered.YawVelocity) - float64(lastYawVel)) / dt)
	p.raw.PitchAcceleration = float32((float64(p.filtered.PitchVelocity) - float64(lastPitchVel)) / dt)
	p.raw.RollAcceleration = float32((float64(p.filtered.RollVelocity) - float64(lastRollVel)) / dt)
}

func safeAcos(x float64) float64 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return math.Acos(x)
}

func sign(x float64) float64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// SendFilteredData serializes the current filtered record and publishes it
// to every non-nil sink, then copies filtered into last_filtered (stage 15).
// The caller (a frame source) must not call this after a stale frame.
func (p *Pipeline) SendFilteredData(publish func(frame []byte) error) error {
	frame := p.filtered.ToBytes(p.schema)
	if publish != nil {
		if err := publish(frame); err != nil {
			return fmt.Errorf("pipeline: publish: %w", err)
		}
	}
	p.lastFiltered.Copy(&p.filtered)
	return nil
}
