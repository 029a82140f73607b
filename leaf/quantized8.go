package leaf

import (
	"unsafe"

	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/types"
)

// The largest value representable by the 8-bit bounds.
const q8Max float32 = 255

// quantized8Block stores one affine space shared by all primitives. The space
// maps the block's oriented bounds to [0, 255]^3; per-primitive bounds inside
// it are rounded outwards to whole units.
type quantized8Block struct {
	space  types.AffineSpace3
	n      uint32
	lower  [3][MaxSize]uint8
	upper  [3][MaxSize]uint8
	geomID [MaxSize]uint32
	primID [MaxSize]uint32
}

type quantized8Encoder struct {
	encoderBase
}

func (e *quantized8Encoder) Layout() Layout {
	return Quantized8
}

func (e *quantized8Encoder) Encode(refs []geometry.PrimRef) Block {
	e.checkRefs(refs, "quantized8.Encode")

	// Find a space shared by all primitives and the block bounds in it.
	s := types.Affine(e.alignedSpace(refs).Transposed())
	primBounds := make([]types.BBox, len(refs))
	gbounds := types.EmptyBBox()
	for i := range refs {
		primBounds[i] = e.scene.Get(refs[i].GeomID).BoundsIn(s, int(refs[i].PrimID))
		gbounds = gbounds.Extend(primBounds[i])
	}

	// Normalize the space for encoding.
	scale := types.Splat(q8Max).DivVec(safeSize(gbounds.Size()))
	block := &quantized8Block{
		space: types.AffineSpace3{
			L: s.L.ScaleRows(scale),
			P: gbounds.Min.MulVec(scale).Mul(-1),
		},
		n: uint32(len(refs)),
	}

	for i := range refs {
		lower := primBounds[i].Min.Sub(gbounds.Min).MulVec(scale)
		upper := primBounds[i].Max.Sub(gbounds.Min).MulVec(scale)
		for axis := 0; axis < 3; axis++ {
			block.lower[axis][i] = uint8(clamp(floor(lower[axis]), 0, q8Max))
			block.upper[axis][i] = uint8(clamp(ceil(upper[axis]), 0, q8Max))
		}
		block.geomID[i] = refs[i].GeomID
		block.primID[i] = refs[i].PrimID
	}
	return block
}

func (b *quantized8Block) localBounds(i int) types.BBox {
	var box types.BBox
	for axis := 0; axis < 3; axis++ {
		box.Min[axis] = float32(b.lower[axis][i])
		box.Max[axis] = float32(b.upper[axis][i])
	}
	return box
}

func (b *quantized8Block) Len() int {
	return int(b.n)
}

func (b *quantized8Block) GeomID(i int) uint32 {
	return b.geomID[i]
}

func (b *quantized8Block) PrimID(i int) uint32 {
	return b.primID[i]
}

func (b *quantized8Block) Bounds(i int) types.BBox {
	return b.space.Inverse().ApplyBBox(b.localBounds(i))
}

func (b *quantized8Block) Intersect(i int, org, dir types.Vec3, tNear, tFar float32) (float32, bool) {
	return intersectLocal(b.space, b.localBounds(i), org, dir, tNear, tFar)
}

func (b *quantized8Block) SizeBytes() int {
	return int(unsafe.Sizeof(*b))
}
