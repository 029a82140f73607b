package geometry

import (
	"math"
	"math/rand"

	"github.com/achilleasa/curvebvh/types"
)

// Hair generation settings.
type HairOptions struct {
	// Number of strands.
	Strands int

	// Seed for the random number generator.
	Seed int64

	// Strand length range.
	MinLength, MaxLength float32

	// Strand radius.
	Radius float32
}

// Default hair generation settings.
func DefaultHairOptions(strands int) HairOptions {
	return HairOptions{
		Strands:   strands,
		Seed:      1,
		MinLength: 0.1,
		MaxLength: 0.3,
		Radius:    0.002,
	}
}

// GenerateHair creates a curve set with strands growing out of a unit sphere.
// Each strand bends slightly away from the surface normal.
func GenerateHair(id uint32, opts HairOptions) *CurveSet {
	rng := rand.New(rand.NewSource(opts.Seed))
	vertices := make([]types.Vec4, 0, opts.Strands*4)
	curves := make([]uint32, 0, opts.Strands)

	randf := func(lo, hi float32) float32 {
		return lo + rng.Float32()*(hi-lo)
	}

	for i := 0; i < opts.Strands; i++ {
		// Uniform point on the sphere.
		z := randf(-1, 1)
		phi := randf(0, 2*math.Pi)
		rxy := float32(math.Sqrt(float64(1 - z*z)))
		root := types.XYZ(rxy*float32(math.Cos(float64(phi))), rxy*float32(math.Sin(float64(phi))), z)

		length := randf(opts.MinLength, opts.MaxLength)
		bend := types.XYZ(randf(-0.3, 0.3), randf(-0.3, 0.3), randf(-0.3, 0.3))
		dir := root.Add(bend).Normalize()

		curves = append(curves, uint32(len(vertices)))
		for cp := 0; cp < 4; cp++ {
			t := float32(cp) / 3
			// Gravity pulls the strand tip down.
			p := root.Add(dir.Mul(length * t)).Add(types.XYZ(0, -0.5*length*t*t, 0))
			radius := opts.Radius * (1 - 0.5*t)
			vertices = append(vertices, p.Vec4(radius))
		}
	}

	return NewCurveSet(id, vertices, curves)
}
