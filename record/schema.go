package record

// DataKey enumerates every telemetry channel in declaration order. The
// order is authoritative: it drives both the byte layout produced by
// ToBytes/FromBytes and the bit position used by KeyMask. Treat it as an
// injected schema rather than a hard-coded grammar — see Schema below.
type DataKey int

const (
	KeyPositionX DataKey = iota
	KeyPositionY
	KeyPositionZ
	KeyPitch
	KeyYaw
	KeyRoll

	KeyLocalVelocityX
	KeyLocalVelocityY
	KeyLocalVelocityZ
	KeyGForceLateral
	KeyGForceVertical
	KeyGForceLongitudinal
	KeySpeed

	KeyYawVelocity
	KeyYawAcceleration
	KeyPitchVelocity
	KeyPitchAcceleration
	KeyRollVelocity
	KeyRollAcceleration

	KeySuspensionPositionBL
	KeySuspensionPositionBR
	KeySuspensionPositionFL
	KeySuspensionPositionFR
	KeySuspensionVelocityBL
	KeySuspensionVelocityBR
	KeySuspensionVelocityFL
	KeySuspensionVelocityFR
	KeySuspensionAccelerationBL
	KeySuspensionAccelerationBR
	KeySuspensionAccelerationFL
	KeySuspensionAccelerationFR
	KeyWheelPatchSpeedBL
	KeyWheelPatchSpeedBR
	KeyWheelPatchSpeedFL
	KeyWheelPatchSpeedFR

	KeyEngineRate
	KeyMaxRPM
	KeyIdleRPM
	KeyGear
	KeyMaxGears
	KeySteeringInput
	KeyThrottleInput
	KeyBrakeInput

	KeyPaused

	numKeys
)

// Kind distinguishes the two wire representations a channel may have.
type Kind int

const (
	KindFloat32 Kind = iota
	KindInt32
)

// FieldDescriptor binds one DataKey to its wire name, its bit position in
// the key mask, its serialized kind, and typed accessors against a Record.
// Built once per process from Schema (or an injected override) — this is
// the Go-native stand-in for a reflection-based "name -> offset" table, per
// the Design Note on reflection-based channel names.
type FieldDescriptor struct {
	Key  DataKey
	Name string
	Bit  uint64
	Kind Kind
	// Lerpable is false for channels that lerp_all_from_zero must leave
	// untouched (the discrete integer state channels other than Paused).
	Lerpable bool
	get      func(*Record) float64
	set      func(r *Record, v float64)
}

// GetValue reads this field's current value out of r as a float64,
// regardless of its wire Kind.
func (fd FieldDescriptor) GetValue(r *Record) float64 { return fd.get(r) }

// SetValue writes v into this field of r, truncating to int32 first when
// Kind is KindInt32.
func (fd FieldDescriptor) SetValue(r *Record, v float64) { fd.set(r, v) }

// Schema is the named, ordered field list a process loads once. In the
// original system this came from a runtime XML grammar; here it is an
// injected Go value (DefaultSchema, or a caller-supplied override), per
// Design Note (c).
type Schema struct {
	fields []FieldDescriptor
	byKey  map[DataKey]int
	byName map[string]int
}

// DefaultSchema returns the field-declaration-order schema matching the
// DataKey enumeration above.
func DefaultSchema() *Schema {
	s := &Schema{byKey: make(map[DataKey]int, numKeys), byName: make(map[string]int, numKeys)}
	add := func(key DataKey, name string, kind Kind, lerpable bool, get func(*Record) float64, set func(*Record, float64)) {
		fd := FieldDescriptor{Key: key, Name: name, Bit: uint64(len(s.fields)), Kind: kind, Lerpable: lerpable, get: get, set: set}
		s.byKey[key] = len(s.fields)
		s.byName[name] = len(s.fields)
		s.fields = append(s.fields, fd)
	}

	add(KeyPositionX, "position_x", KindFloat32, true, func(r *Record) float64 { return float64(r.PositionX) }, func(r *Record, v float64) { r.PositionX = float32(v) })
	add(KeyPositionY, "position_y", KindFloat32, true, func(r *Record) float64 { return float64(r.PositionY) }, func(r *Record, v float64) { r.PositionY = float32(v) })
	add(KeyPositionZ, "position_z", KindFloat32, true, func(r *Record) float64 { return float64(r.PositionZ) }, func(r *Record, v float64) { r.PositionZ = float32(v) })
	add(KeyPitch, "pitch", KindFloat32, true, func(r *Record) float64 { return float64(r.Pitch) }, func(r *Record, v float64) { r.Pitch = float32(v) })
	add(KeyYaw, "yaw", KindFloat32, true, func(r *Record) float64 { return float64(r.Yaw) }, func(r *Record, v float64) { r.Yaw = float32(v) })
	add(KeyRoll, "roll", KindFloat32, true, func(r *Record) float64 { return float64(r.Roll) }, func(r *Record, v float64) { r.Roll = float32(v) })

	add(KeyLocalVelocityX, "local_velocity_x", KindFloat32, true, func(r *Record) float64 { return float64(r.LocalVelocityX) }, func(r *Record, v float64) { r.LocalVelocityX = float32(v) })
	add(KeyLocalVelocityY, "local_velocity_y", KindFloat32, true, func(r *Record) float64 { return float64(r.LocalVelocityY) }, func(r *Record, v float64) { r.LocalVelocityY = float32(v) })
	add(KeyLocalVelocityZ, "local_velocity_z", KindFloat32, true, func(r *Record) float64 { return float64(r.LocalVelocityZ) }, func(r *Record, v float64) { r.LocalVelocityZ = float32(v) })
	add(KeyGForceLateral, "gforce_lateral", KindFloat32, true, func(r *Record) float64 { return float64(r.GForceLateral) }, func(r *Record, v float64) { r.GForceLateral = float32(v) })
	add(KeyGForceVertical, "gforce_vertical", KindFloat32, true, func(r *Record) float64 { return float64(r.GForceVertical) }, func(r *Record, v float64) { r.GForceVertical = float32(v) })
	add(KeyGForceLongitudinal, "gforce_longitudinal", KindFloat32, true, func(r *Record) float64 { return float64(r.GForceLongitudinal) }, func(r *Record, v float64) { r.GForceLongitudinal = float32(v) })
	add(KeySpeed, "speed", KindFloat32, true, func(r *Record) float64 { return float64(r.Speed) }, func(r *Record, v float64) { r.Speed = float32(v) })

	add(KeyYawVelocity, "yaw_velocity", KindFloat32, true, func(r *Record) float64 { return float64(r.YawVelocity) }, func(r *Record, v float64) { r.YawVelocity = float32(v) })
	add(KeyYawAcceleration, "yaw_acceleration", KindFloat32, true, func(r *Record) float64 { return float64(r.YawAcceleration) }, func(r *Record, v float64) { r.YawAcceleration = float32(v) })
	add(KeyPitchVelocity, "pitch_velocity", KindFloat32, true, func(r *Record) float64 { return float64(r.PitchVelocity) }, func(r *Record, v float64) { r.PitchVelocity = float32(v) })
	add(KeyPitchAcceleration, "pitch_acceleration", KindFloat32, true, func(r *Record) float64 { return float64(r.PitchAcceleration) }, func(r *Record, v float64) { r.PitchAcceleration = float32(v) })
	add(KeyRollVelocity, "roll_velocity", KindFloat32, true, func(r *Record) float64 { return float64(r.RollVelocity) }, func(r *Record, v float64) { r.RollVelocity = float32(v) })
	add(KeyRollAcceleration, "roll_acceleration", KindFloat32, true, func(r *Record) float64 { return float64(r.RollAcceleration) }, func(r *Record, v float64) { r.RollAcceleration = float32(v) })

	add(KeySuspensionPositionBL, "suspension_position_bl", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionPositionBL) }, func(r *Record, v float64) { r.SuspensionPositionBL = float32(v) })
	add(KeySuspensionPositionBR, "suspension_position_br", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionPositionBR) }, func(r *Record, v float64) { r.SuspensionPositionBR = float32(v) })
	add(KeySuspensionPositionFL, "suspension_position_fl", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionPositionFL) }, func(r *Record, v float64) { r.SuspensionPositionFL = float32(v) })
	add(KeySuspensionPositionFR, "suspension_position_fr", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionPositionFR) }, func(r *Record, v float64) { r.SuspensionPositionFR = float32(v) })
	add(KeySuspensionVelocityBL, "suspension_velocity_bl", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionVelocityBL) }, func(r *Record, v float64) { r.SuspensionVelocityBL = float32(v) })
	add(KeySuspensionVelocityBR, "suspension_velocity_br", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionVelocityBR) }, func(r *Record, v float64) { r.SuspensionVelocityBR = float32(v) })
	add(KeySuspensionVelocityFL, "suspension_velocity_fl", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionVelocityFL) }, func(r *Record, v float64) { r.SuspensionVelocityFL = float32(v) })
	add(KeySuspensionVelocityFR, "suspension_velocity_fr", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionVelocityFR) }, func(r *Record, v float64) { r.SuspensionVelocityFR = float32(v) })
	add(KeySuspensionAccelerationBL, "suspension_acceleration_bl", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionAccelerationBL) }, func(r *Record, v float64) { r.SuspensionAccelerationBL = float32(v) })
	add(KeySuspensionAccelerationBR, "suspension_acceleration_br", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionAccelerationBR) }, func(r *Record, v float64) { r.SuspensionAccelerationBR = float32(v) })
	add(KeySuspensionAccelerationFL, "suspension_acceleration_fl", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionAccelerationFL) }, func(r *Record, v float64) { r.SuspensionAccelerationFL = float32(v) })
	add(KeySuspensionAccelerationFR, "suspension_acceleration_fr", KindFloat32, true, func(r *Record) float64 { return float64(r.SuspensionAccelerationFR) }, func(r *Record, v float64) { r.SuspensionAccelerationFR = float32(v) })
	add(KeyWheelPatchSpeedBL, "wheel_patch_speed_bl", KindFloat32, true, func(r *Record) float64 { return float64(r.WheelPatchSpeedBL) }, func(r *Record, v float64) { r.WheelPatchSpeedBL = float32(v) })
	add(KeyWheelPatchSpeedBR, "wheel_patch_speed_br", KindFloat32, true, func(r *Record) float64 { return float64(r.WheelPatchSpeedBR) }, func(r *Record, v float64) { r.WheelPatchSpeedBR = float32(v) })
	add(KeyWheelPatchSpeedFL, "wheel_patch_speed_fl", KindFloat32, true, func(r *Record) float64 { return float64(r.WheelPatchSpeedFL) }, func(r *Record, v float64) { r.WheelPatchSpeedFL = float32(v) })
	add(KeyWheelPatchSpeedFR, "wheel_patch_speed_fr", KindFloat32, true, func(r *Record) float64 { return float64(r.WheelPatchSpeedFR) }, func(r *Record, v float64) { r.WheelPatchSpeedFR = float32(v) })

	add(KeyEngineRate, "engine_rate", KindFloat32, true, func(r *Record) float64 { return float64(r.EngineRate) }, func(r *Record, v float64) { r.EngineRate = float32(v) })
	add(KeyMaxRPM, "max_rpm", KindInt32, false, func(r *Record) float64 { return float64(r.MaxRPM) }, func(r *Record, v float64) { r.MaxRPM = int32(v) })
	add(KeyIdleRPM, "idle_rpm", KindInt32, false, func(r *Record) float64 { return float64(r.IdleRPM) }, func(r *Record, v float64) { r.IdleRPM = int32(v) })
	add(KeyGear, "gear", KindInt32, false, func(r *Record) float64 { return float64(r.Gear) }, func(r *Record, v float64) { r.Gear = int32(v) })
	add(KeyMaxGears, "max_gears", KindInt32, false, func(r *Record) float64 { return float64(r.MaxGears) }, func(r *Record, v float64) { r.MaxGears = int32(v) })
	add(KeySteeringInput, "steering_input", KindFloat32, true, func(r *Record) float64 { return float64(r.SteeringInput) }, func(r *Record, v float64) { r.SteeringInput = float32(v) })
	add(KeyThrottleInput, "throttle_input", KindFloat32, true, func(r *Record) float64 { return float64(r.ThrottleInput) }, func(r *Record, v float64) { r.ThrottleInput = float32(v) })
	add(KeyBrakeInput, "brake_input", KindFloat32, true, func(r *Record) float64 { return float64(r.BrakeInput) }, func(r *Record, v float64) { r.BrakeInput = float32(v) })

	// Paused is an integer state channel, but lerp_all_from_zero touches it
	// (spec.md §4.1): unlike the other integer channels it is NOT exempt.
	add(KeyPaused, "paused", KindInt32, true, func(r *Record) float64 { return float64(r.Paused) }, func(r *Record, v float64) { r.Paused = int32(v) })

	return s
}

// Fields returns the schema's fields in declaration order.
func (s *Schema) Fields() []FieldDescriptor { return s.fields }

// ByKey looks up a field descriptor by DataKey.
func (s *Schema) ByKey(key DataKey) (FieldDescriptor, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[idx], true
}

// ByName looks up a field descriptor by wire name (what TelemetryInfo.get
// resolves against on the consumer side).
func (s *Schema) ByName(name string) (FieldDescriptor, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[idx], true
}

// Size returns the fixed serialized record size in bytes for this schema.
func (s *Schema) Size() int { return len(s.fields) * 4 }

// KeyMask returns the bitmask covering exactly the given keys. Disjoint key
// sets produce disjoint, OR-composable masks (spec.md §4.1 invariant).
func (s *Schema) KeyMask(keys ...DataKey) uint64 {
	var mask uint64
	for _, k := range keys {
		if fd, ok := s.ByKey(k); ok {
			mask |= 1 << fd.Bit
		}
	}
	return mask
}
