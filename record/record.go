// Package record defines the fixed-layout telemetry record (C1): a flat set
// of named motion, suspension, engine and input channels shared verbatim
// between the producer and the consumer, plus the schema-driven operations
// (byte serialization, key masks, zero-lerp) spec.md requires of it.
package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Record is one frame of telemetry. Field order here has no bearing on wire
// layout — DefaultSchema (or an injected Schema) is the sole authority for
// byte position and bit position, per the Design Note on reflection-based
// channel names.
type Record struct {
	PositionX, PositionY, PositionZ float32
	Pitch, Yaw, Roll                 float32

	LocalVelocityX, LocalVelocityY, LocalVelocityZ    float32
	GForceLateral, GForceVertical, GForceLongitudinal float32
	Speed                                              float32

	YawVelocity, YawAcceleration     float32
	PitchVelocity, PitchAcceleration float32
	RollVelocity, RollAcceleration   float32

	SuspensionPositionBL, SuspensionPositionBR, SuspensionPositionFL, SuspensionPositionFR         float32
	SuspensionVelocityBL, SuspensionVelocityBR, SuspensionVelocityFL, SuspensionVelocityFR         float32
	SuspensionAccelerationBL, SuspensionAccelerationBR, SuspensionAccelerationFL, SuspensionAccelerationFR float32
	WheelPatchSpeedBL, WheelPatchSpeedBR, WheelPatchSpeedFL, WheelPatchSpeedFR                      float32

	EngineRate                               float32
	MaxRPM, IdleRPM, Gear, MaxGears           int32
	SteeringInput, ThrottleInput, BrakeInput  float32

	Paused int32
}

// Init zeroes every channel.
func (r *Record) Init() { *r = Record{} }

// Copy overwrites r with other's contents.
func (r *Record) Copy(other *Record) { *r = *other }

// ToBytes serializes r into a little-endian, packed buffer using s's field
// order. The returned slice length equals s.Size().
func (r *Record) ToBytes(s *Schema) []byte {
	buf := make([]byte, s.Size())
	for i, fd := range s.Fields() {
		off := i * 4
		switch fd.Kind {
		case KindFloat32:
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(fd.get(r))))
		case KindInt32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(int32(fd.get(r))))
		}
	}
	return buf
}

// FromBytes is total over any buffer of exactly s.Size() bytes: every
// channel is assigned its 4-byte slot verbatim, with no validation of the
// resulting value (spec.md §4.1).
func (r *Record) FromBytes(s *Schema, buf []byte) error {
	if len(buf) != s.Size() {
		return fmt.Errorf("record: FromBytes expected %d bytes, got %d", s.Size(), len(buf))
	}
	for i, fd := range s.Fields() {
		off := i * 4
		bits := binary.LittleEndian.Uint32(buf[off:])
		switch fd.Kind {
		case KindFloat32:
			fd.set(r, float64(math.Float32frombits(bits)))
		case KindInt32:
			fd.set(r, float64(int32(bits)))
		}
	}
	return nil
}

// LerpAllFromZero scales every lerpable channel by t (the fade fraction
// used by the consumer's start-up fade and the pause gate, §4.6/§4.7).
// Channels marked non-lerpable in the schema (max_rpm, idle_rpm, gear,
// max_gears) are left untouched; paused is lerpable (spec.md §4.1).
func (r *Record) LerpAllFromZero(s *Schema, t float64) {
	for _, fd := range s.Fields() {
		if !fd.Lerpable {
			continue
		}
		fd.set(r, fd.get(r)*t)
	}
}
