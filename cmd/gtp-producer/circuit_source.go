package main

import (
	"context"
	"math"
	"time"

	"github.com/gtprovider/gtp/mathx"
)

// circuitSource is a stand-in for the external game hook (spec.md §1 "Out of
// scope"): it drives a vehicle around a fixed circular track at constant
// speed, producing a plausible stream of world transforms so the producer
// can be run and observed without a real simulator attached.
type circuitSource struct {
	radius    float64
	angularV  float64 // rad/s
	lastTick  time.Time
	elapsed   float64
}

func newCircuitSource() *circuitSource {
	return &circuitSource{radius: 20, angularV: 0.5}
}

func (c *circuitSource) NextTransform(ctx context.Context) (mathx.Mat4, float64, error) {
	now := time.Now()
	dt := 0.01
	if !c.lastTick.IsZero() {
		if d := now.Sub(c.lastTick).Seconds(); d > 0 {
			dt = d
		}
	}
	c.lastTick = now
	c.elapsed += dt

	theta := c.angularV * c.elapsed
	x := c.radius * math.Cos(theta)
	z := c.radius * math.Sin(theta)
	y := 0.5 * math.Sin(c.elapsed*0.2) // a little suspension bob

	// Tangent heading: forward points along the direction of travel.
	fwd := mathx.Vec3{X: -math.Sin(theta), Y: 0, Z: math.Cos(theta)}.Normalize()
	up := mathx.Vec3{X: 0, Y: 1, Z: 0}
	right := mathx.Vec3{
		X: fwd.Y*up.Z - fwd.Z*up.Y,
		Y: fwd.Z*up.X - fwd.X*up.Z,
		Z: fwd.X*up.Y - fwd.Y*up.X,
	}.Normalize()

	// Translation lives in column 3 of rows 0-2 (mathx.Mat4's convention).
	rows := [4][4]float64{
		{right.X, right.Y, right.Z, x},
		{up.X, up.Y, up.Z, y},
		{fwd.X, fwd.Y, fwd.Z, z},
		{0, 0, 0, 1},
	}
	return mathx.NewMat4(rows), dt, nil
}
