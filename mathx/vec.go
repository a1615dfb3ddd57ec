// Package mathx provides the 3D/4D linear algebra the derivation pipeline
// needs: vectors, a 4x4 transform type backed by gonum/mat (matrix
// inversion), quaternion conversion and Euler extraction.
package mathx

import "math"

// Vec3 is a 3-component vector used for positions, axes and accelerations.
type Vec3 struct{ X, Y, Z float64 }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length, or the zero vector if v is
// itself zero (avoids NaN propagation into the pipeline's dot products,
// per spec.md §4.4 stage 9).
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Vec2 is a 2-component vector used for the planar suspension g-force
// projection (spec.md §4.4 stage 9).
type Vec2 struct{ X, Y float64 }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Length() float64    { return math.Sqrt(v.Dot(v)) }
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// SafeDot2 computes a.Dot(b), substituting 0 for any NaN or Inf result
// (spec.md §7 error taxonomy item 4).
func SafeDot2(a, b Vec2) float64 {
	d := a.Dot(b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// LoopAngleRad wraps x into [-k, k] (spec.md §4.4 stage 8 roll remap).
func LoopAngleRad(x, k float64) float64 {
	span := 2 * k
	if span <= 0 {
		return 0
	}
	y := math.Mod(x+k, span)
	if y < 0 {
		y += span
	}
	return y - k
}
