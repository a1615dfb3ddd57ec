package mathx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 0, 4}
	n := v.Normalize()
	assert.InDelta(t, 1, n.Length(), 1e-9)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
}

func TestSafeDot2(t *testing.T) {
	assert.Equal(t, float64(0), SafeDot2(Vec2{X: math.NaN()}, Vec2{X: 1}))
	assert.Equal(t, float64(0), SafeDot2(Vec2{X: math.Inf(1)}, Vec2{X: 1}))
	assert.InDelta(t, 2, SafeDot2(Vec2{X: 1, Y: 1}, Vec2{X: 1, Y: 1}), 1e-9)
}

func TestLoopAngleRad(t *testing.T) {
	k := math.Pi / 2
	assert.InDelta(t, 0, LoopAngleRad(0, k), 1e-9)
	assert.InDelta(t, -k+0.1, LoopAngleRad(k+0.1, k), 1e-9)
	assert.InDelta(t, 0, LoopAngleRad(2*k, k), 1e-6)
}

func TestMat4IdentityInverse(t *testing.T) {
	id := Identity()
	inv, err := id.Inverse()
	require.NoError(t, err)
	assert.True(t, id.Equal(inv))
}

func TestMat4TransformPointTranslation(t *testing.T) {
	m := NewMat4([4][4]float64{
		{1, 0, 0, 5},
		{0, 1, 0, -2},
		{0, 0, 1, 1},
		{0, 0, 0, 1},
	})
	p := m.TransformPoint(Vec3{1, 1, 1})
	assert.Equal(t, Vec3{6, -1, 2}, p)

	d := m.TransformDirection(Vec3{1, 1, 1})
	assert.Equal(t, Vec3{1, 1, 1}, d, "direction transform ignores translation")
}

func TestMat4WithZeroTranslation(t *testing.T) {
	m := NewMat4([4][4]float64{
		{1, 0, 0, 5},
		{0, 1, 0, -2},
		{0, 0, 1, 1},
		{0, 0, 0, 1},
	})
	zt := m.WithZeroTranslation()
	assert.Equal(t, Vec3{}, zt.Translation())
}

func TestMat4AxisExtraction(t *testing.T) {
	m := Identity()
	assert.Equal(t, Vec3{1, 0, 0}, m.Right())
	assert.Equal(t, Vec3{0, 1, 0}, m.Up())
	assert.Equal(t, Vec3{0, 0, 1}, m.Forward())
}

func TestQuatFromMat4Identity(t *testing.T) {
	q := QuatFromMat4(Identity())
	assert.InDelta(t, 1, q.W, 1e-9)
	assert.InDelta(t, 0, q.X, 1e-9)
	assert.InDelta(t, 0, q.Y, 1e-9)
	assert.InDelta(t, 0, q.Z, 1e-9)

	e := q.ToEuler()
	assert.InDelta(t, 0, e.Pitch, 1e-9)
	assert.InDelta(t, 0, e.Yaw, 1e-9)
	assert.InDelta(t, 0, e.Roll, 1e-9)
}

func TestQuatFromMat4YawRotation(t *testing.T) {
	// 90 degree rotation about Y: right -> {0,0,-1}, forward -> {1,0,0}
	m := NewMat4([4][4]float64{
		{0, 0, -1, 0},
		{0, 1, 0, 0},
		{1, 0, 0, 0},
		{0, 0, 0, 1},
	})
	q := QuatFromMat4(m)
	e := q.ToEuler()
	assert.InDelta(t, math.Pi/2, math.Abs(e.Yaw), 1e-6)
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{W: 2, X: 0, Y: 0, Z: 0}.Normalize()
	assert.InDelta(t, 1, q.W, 1e-9)

	z := Quat{}.Normalize()
	assert.Equal(t, Quat{W: 1}, z)
}
