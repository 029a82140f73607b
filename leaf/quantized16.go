package leaf

import (
	"math"
	"unsafe"

	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/types"
)

const (
	// Oriented axes are stored as 8-bit vectors of this length.
	q16AxisScale float32 = 126

	// The representable range of the 16-bit bounds.
	q16Max float32 = 32767
)

// quantized16Block normalizes all primitives with a shared offset and uniform
// scale. Each primitive stores its own oriented axes as 8-bit vectors and its
// bounds along those axes as 16-bit values.
type quantized16Block struct {
	offset types.Vec3
	scale  float32
	n      uint32
	axes   [MaxSize][3][3]int8
	lower  [MaxSize][3]int16
	upper  [MaxSize][3]int16
	geomID [MaxSize]uint32
	primID [MaxSize]uint32
}

type quantized16Encoder struct {
	encoderBase
}

func (e *quantized16Encoder) Layout() Layout {
	return Quantized16
}

func (e *quantized16Encoder) Encode(refs []geometry.PrimRef) Block {
	e.checkRefs(refs, "quantized16.Encode")

	bounds := types.EmptyBBox()
	for i := range refs {
		bounds = bounds.Extend(refs[i].Bounds)
	}

	// Calculate offset and a uniform scale so the diagonal of the block
	// spans 256 units.
	block := &quantized16Block{
		offset: bounds.Min,
		scale:  types.Splat(256 / float32(math.Sqrt(3))).DivVec(safeSize(bounds.Size())).MinComponent(),
		n:      uint32(len(refs)),
	}

	for i := range refs {
		frame := e.alignedSpace(refs[i : i+1])
		cols := [3]types.Vec3{
			frame.VX.Mul(q16AxisScale).Trunc(),
			frame.VY.Mul(q16AxisScale).Trunc(),
			frame.VZ.Mul(q16AxisScale).Trunc(),
		}
		for c := 0; c < 3; c++ {
			for r := 0; r < 3; r++ {
				block.axes[i][c][r] = int8(cols[c][r])
			}
		}

		local := e.scene.Get(refs[i].GeomID).BoundsIn(block.space(i), int(refs[i].PrimID))
		for axis := 0; axis < 3; axis++ {
			block.lower[i][axis] = int16(clamp(floor(local.Min[axis]), -q16Max, q16Max))
			block.upper[i][axis] = int16(clamp(ceil(local.Max[axis]), -q16Max, q16Max))
		}
		block.geomID[i] = refs[i].GeomID
		block.primID[i] = refs[i].PrimID
	}
	return block
}

// Get the world to local transformation of the i-th primitive:
// local = axesᵀ * ((p - offset) * scale).
func (b *quantized16Block) space(i int) types.AffineSpace3 {
	var axes types.LinearSpace3
	for r := 0; r < 3; r++ {
		axes.VX[r] = float32(b.axes[i][0][r])
		axes.VY[r] = float32(b.axes[i][1][r])
		axes.VZ[r] = float32(b.axes[i][2][r])
	}
	l := axes.Transposed().ScaleColumns(b.scale)
	return types.AffineSpace3{L: l, P: l.Apply(b.offset).Mul(-1)}
}

func (b *quantized16Block) localBounds(i int) types.BBox {
	var box types.BBox
	for axis := 0; axis < 3; axis++ {
		box.Min[axis] = float32(b.lower[i][axis])
		box.Max[axis] = float32(b.upper[i][axis])
	}
	return box
}

func (b *quantized16Block) Len() int {
	return int(b.n)
}

func (b *quantized16Block) GeomID(i int) uint32 {
	return b.geomID[i]
}

func (b *quantized16Block) PrimID(i int) uint32 {
	return b.primID[i]
}

func (b *quantized16Block) Bounds(i int) types.BBox {
	return b.space(i).Inverse().ApplyBBox(b.localBounds(i))
}

func (b *quantized16Block) Intersect(i int, org, dir types.Vec3, tNear, tFar float32) (float32, bool) {
	return intersectLocal(b.space(i), b.localBounds(i), org, dir, tNear, tFar)
}

func (b *quantized16Block) SizeBytes() int {
	return int(unsafe.Sizeof(*b))
}
