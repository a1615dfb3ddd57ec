package mathx

import "math"

// Quat is a unit quaternion (W, X, Y, Z).
type Quat struct{ W, X, Y, Z float64 }

// QuatFromMat4 converts the rotation part of t to a unit quaternion using
// the standard trace-based extraction (spec.md §4.4 stage 8).
func QuatFromMat4(t Mat4) Quat {
	m00, m01, m02 := t.At(0, 0), t.At(0, 1), t.At(0, 2)
	m10, m11, m12 := t.At(1, 0), t.At(1, 1), t.At(1, 2)
	m20, m21, m22 := t.At(2, 0), t.At(2, 1), t.At(2, 2)

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		q.W = 0.25 / s
		q.X = (m21 - m12) * s
		q.Y = (m02 - m20) * s
		q.Z = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		q.W = (m21 - m12) / s
		q.X = 0.25 * s
		q.Y = (m01 + m10) / s
		q.Z = (m02 + m20) / s
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		q.W = (m02 - m20) / s
		q.X = (m01 + m10) / s
		q.Y = 0.25 * s
		q.Z = (m12 + m21) / s
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		q.W = (m10 - m01) / s
		q.X = (m02 + m20) / s
		q.Y = (m12 + m21) / s
		q.Z = 0.25 * s
	}
	return q.Normalize()
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quat{W: 1}
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Euler holds the pitch/yaw/roll extracted from a quaternion, before the
// pipeline's roll remap is applied.
type Euler struct{ Pitch, Yaw, Roll float64 }

// ToEuler extracts pitch/yaw/roll (X/Y/Z rotation order) from q.
func (q Quat) ToEuler() Euler {
	sinp := 2 * (q.W*q.X + q.Y*q.Z)
	cosp := 1 - 2*(q.X*q.X+q.Y*q.Y)
	pitch := math.Atan2(sinp, cosp)

	siny := 2 * (q.W*q.Y - q.Z*q.X)
	var yaw float64
	if math.Abs(siny) >= 1 {
		yaw = math.Copysign(math.Pi/2, siny)
	} else {
		yaw = math.Asin(siny)
	}

	sinr := 2 * (q.W*q.Z + q.X*q.Y)
	cosr := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	roll := math.Atan2(sinr, cosr)

	return Euler{Pitch: pitch, Yaw: yaw, Roll: roll}
}
