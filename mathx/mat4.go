package mathx

import (
	"gonum.org/v1/gonum/mat"
)

// Mat4 is a 4x4 row-major world transform: rows 0-2, columns 0-2 are the
// rotation basis (right/up/forward as rows, per spec.md §4.4 stage 1), row
// 3 (or column 3, depending on convention) carries translation. This
// package treats translation as column 3 of rows 0-2, row 3 = {0,0,0,1},
// the convention spec.md's "rows 0-2 of the 3x3 block" text assumes.
type Mat4 struct {
	m *mat.Dense // 4x4
}

// Identity returns the identity transform.
func Identity() Mat4 {
	d := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		d.Set(i, i, 1)
	}
	return Mat4{m: d}
}

// NewMat4 builds a transform from a row-major 4x4 array.
func NewMat4(rows [4][4]float64) Mat4 {
	d := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			d.Set(i, j, rows[i][j])
		}
	}
	return Mat4{m: d}
}

// At returns element (i, j).
func (t Mat4) At(i, j int) float64 { return t.m.At(i, j) }

// Translation returns the transform's translation column.
func (t Mat4) Translation() Vec3 {
	return Vec3{t.m.At(0, 3), t.m.At(1, 3), t.m.At(2, 3)}
}

// Right, Up, Forward return rows 0, 1 and 2 of the 3x3 rotation block
// (spec.md §4.4 stage 1 axis extraction).
func (t Mat4) Right() Vec3   { return Vec3{t.m.At(0, 0), t.m.At(0, 1), t.m.At(0, 2)} }
func (t Mat4) Up() Vec3      { return Vec3{t.m.At(1, 0), t.m.At(1, 1), t.m.At(1, 2)} }
func (t Mat4) Forward() Vec3 { return Vec3{t.m.At(2, 0), t.m.At(2, 1), t.m.At(2, 2)} }

// Equal reports exact (bitwise, via ==) equality of every element — stage 4
// of the derivation pipeline drops a frame to "stale" only on exact
// transform equality, per the preserved (active) CalcPosition behavior.
func (t Mat4) Equal(o Mat4) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if t.m.At(i, j) != o.m.At(i, j) {
				return false
			}
		}
	}
	return true
}

// WithZeroTranslation returns a copy of t with the translation column
// zeroed — used to build the rotation-only matrix inverted in stage 5.
func (t Mat4) WithZeroTranslation() Mat4 {
	d := mat.DenseCopyOf(t.m)
	d.Set(0, 3, 0)
	d.Set(1, 3, 0)
	d.Set(2, 3, 0)
	return Mat4{m: d}
}

// Inverse inverts t via gonum's LU-backed Dense.Inverse. Returns an error
// if t is singular (a garbage/degenerate frame should never reach here:
// stage 1's axis-length check rejects those before inversion is attempted).
func (t Mat4) Inverse() (Mat4, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.m); err != nil {
		return Mat4{}, err
	}
	return Mat4{m: &inv}, nil
}

// Mul returns t * o.
func (t Mat4) Mul(o Mat4) Mat4 {
	var out mat.Dense
	out.Mul(t.m, o.m)
	return Mat4{m: &out}
}

// TransformPoint applies the rotation+translation to a point (w=1).
func (t Mat4) TransformPoint(v Vec3) Vec3 {
	in := mat.NewVecDense(4, []float64{v.X, v.Y, v.Z, 1})
	var out mat.VecDense
	out.MulVec(t.m, in)
	return Vec3{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// TransformDirection applies only the rotation part (w=0) — used to rotate
// world velocity into the local frame (stage 5).
func (t Mat4) TransformDirection(v Vec3) Vec3 {
	in := mat.NewVecDense(4, []float64{v.X, v.Y, v.Z, 0})
	var out mat.VecDense
	out.MulVec(t.m, in)
	return Vec3{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
