package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s := DefaultSchema()
	var r Record
	r.PositionX, r.PositionY, r.PositionZ = 1.5, -2.25, 3
	r.Speed = 12.75
	r.Gear = 3
	r.MaxGears = 6
	r.Paused = 1

	buf := r.ToBytes(s)
	require.Len(t, buf, s.Size())

	var out Record
	require.NoError(t, out.FromBytes(s, buf))
	assert.Equal(t, r, out)
}

func TestFromBytesTotalOverAnyBuffer(t *testing.T) {
	s := DefaultSchema()
	buf := make([]byte, s.Size())
	for i := range buf {
		buf[i] = 0xAA
	}
	var r Record
	require.NoError(t, r.FromBytes(s, buf))
	// undefined bytes still map to a channel value, no error, no panic.
	assert.NotZero(t, r.PositionX)
}

func TestFromBytesWrongSize(t *testing.T) {
	s := DefaultSchema()
	var r Record
	err := r.FromBytes(s, make([]byte, s.Size()-1))
	assert.Error(t, err)
}

func TestKeyMaskDisjointUnion(t *testing.T) {
	s := DefaultSchema()
	a := []DataKey{KeyPositionX, KeyPositionY}
	b := []DataKey{KeySpeed, KeyGear}

	maskA := s.KeyMask(a...)
	maskB := s.KeyMask(b...)
	maskUnion := s.KeyMask(append(append([]DataKey{}, a...), b...)...)

	assert.Equal(t, maskUnion, maskA|maskB)
	assert.Zero(t, maskA&maskB)
}

func TestLerpAllFromZero(t *testing.T) {
	s := DefaultSchema()
	var r Record
	r.Speed = 10
	r.GForceLongitudinal = -2
	r.MaxGears = 6
	r.MaxRPM = 6000
	r.Gear = 3
	r.Paused = 1

	r.LerpAllFromZero(s, 0.5)

	assert.InDelta(t, 5, r.Speed, 1e-6)
	assert.InDelta(t, -1, r.GForceLongitudinal, 1e-6)
	assert.EqualValues(t, 6, r.MaxGears, "non-lerpable integer channel untouched")
	assert.EqualValues(t, 6000, r.MaxRPM, "non-lerpable integer channel untouched")
	assert.EqualValues(t, 3, r.Gear, "non-lerpable integer channel untouched")
	assert.EqualValues(t, 0, r.Paused, "paused is lerpable: 1 * 0.5 truncates to 0 as int32")
}

func TestCopyAndInit(t *testing.T) {
	var r, dst Record
	r.Speed = 42
	dst.Copy(&r)
	assert.Equal(t, r, dst)
	dst.Init()
	assert.Zero(t, dst.Speed)
}
