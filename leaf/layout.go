// Package leaf implements the compact leaf encodings stored at BVH leaves.
//
// Three layouts trade memory for precision:
//
//   - Oriented: a full precision affine space per primitive mapping the
//     primitive's oriented bounds to the unit cube.
//   - Quantized8: one affine space shared by the block plus per-primitive
//     bounds quantized to 8 bits inside that space.
//   - Quantized16: a shared offset and scale plus per-primitive 8-bit
//     oriented axes and 16-bit bounds along them.
//
// A BVH uses exactly one layout; blocks of different layouts are never mixed.
// Quantized layouts round bounds outwards and clamp them to the representable
// range, so decoded bounds are conservative with a precision loss bounded by
// one quantization step.
package leaf

import (
	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/types"
	"github.com/pkg/errors"
)

// The maximum number of primitives stored in a leaf block.
const MaxSize = 8

type Layout uint8

const (
	Oriented Layout = iota
	Quantized8
	Quantized16
)

func (l Layout) String() string {
	switch l {
	case Oriented:
		return config.LayoutOriented
	case Quantized8:
		return config.LayoutQuantized8
	case Quantized16:
		return config.LayoutQuantized16
	}
	return "unknown"
}

// Parse a layout name.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case config.LayoutOriented:
		return Oriented, nil
	case config.LayoutQuantized8:
		return Quantized8, nil
	case config.LayoutQuantized16:
		return Quantized16, nil
	}
	return Oriented, config.Invalid("leaf layout", name, "expected one of oriented, quantized8, quantized16")
}

// A Block is an encoded leaf block holding up to MaxSize primitives.
type Block interface {
	// The number of primitives in the block.
	Len() int

	// Geometry and primitive id of the i-th primitive.
	GeomID(i int) uint32
	PrimID(i int) uint32

	// Conservative world-space bounds of the i-th primitive.
	Bounds(i int) types.BBox

	// Intersect a ray with the oriented bounds of the i-th primitive and
	// return the entry distance.
	Intersect(i int, org, dir types.Vec3, tNear, tFar float32) (float32, bool)

	// Memory footprint of the block in bytes.
	SizeBytes() int
}

// An Encoder packs up to MaxSize primitive references into a Block.
type Encoder interface {
	// The layout produced by this encoder.
	Layout() Layout

	// Encode refs. The slice must hold between 1 and MaxSize references.
	Encode(refs []geometry.PrimRef) Block

	// The number of aligned spaces that fell back to the canonical axis
	// because none of their primitives had a usable direction. Oriented
	// and Quantized16 blocks compute one space per primitive, Quantized8
	// blocks one per block.
	DegenerateSpaces() int64
}

// Create an encoder for the given layout reading primitives from scene.
func NewEncoder(layout Layout, scene *geometry.Scene) (Encoder, error) {
	switch layout {
	case Oriented:
		return &orientedEncoder{encoderBase: encoderBase{scene: scene}}, nil
	case Quantized8:
		return &quantized8Encoder{encoderBase: encoderBase{scene: scene}}, nil
	case Quantized16:
		return &quantized16Encoder{encoderBase: encoderBase{scene: scene}}, nil
	}
	return nil, errors.Wrapf(config.Invalid("leaf layout", int(layout), "unsupported layout"), "leaf")
}
