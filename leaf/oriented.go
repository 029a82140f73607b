package leaf

import (
	"unsafe"

	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/types"
)

// orientedBlock stores, for every primitive, a full precision affine space
// that maps the primitive's oriented bounds to the unit cube.
type orientedBlock struct {
	spaces [MaxSize]types.AffineSpace3
	n      uint32
	geomID [MaxSize]uint32
	primID [MaxSize]uint32
}

type orientedEncoder struct {
	encoderBase
}

func (e *orientedEncoder) Layout() Layout {
	return Oriented
}

func (e *orientedEncoder) Encode(refs []geometry.PrimRef) Block {
	e.checkRefs(refs, "oriented.Encode")

	block := &orientedBlock{n: uint32(len(refs))}
	for i := range refs {
		geom := e.scene.Get(refs[i].GeomID)
		prim := int(refs[i].PrimID)

		// Each primitive gets a space aligned with its own direction.
		space := types.Affine(e.alignedSpace(refs[i : i+1]).Transposed())
		bounds := geom.BoundsIn(space, prim)

		// Move the lower corner to the origin and scale to the unit cube.
		scale := types.Vec3{1, 1, 1}.DivVec(safeSize(bounds.Size()))
		space.P = space.P.Sub(bounds.Min)
		space = types.AffineSpace3{
			L: space.L.ScaleRows(scale),
			P: space.P.MulVec(scale),
		}

		block.spaces[i] = space
		block.geomID[i] = refs[i].GeomID
		block.primID[i] = refs[i].PrimID
	}
	return block
}

func (b *orientedBlock) Len() int {
	return int(b.n)
}

func (b *orientedBlock) GeomID(i int) uint32 {
	return b.geomID[i]
}

func (b *orientedBlock) PrimID(i int) uint32 {
	return b.primID[i]
}

func (b *orientedBlock) Bounds(i int) types.BBox {
	return b.spaces[i].Inverse().ApplyBBox(unitBox)
}

func (b *orientedBlock) Intersect(i int, org, dir types.Vec3, tNear, tFar float32) (float32, bool) {
	return intersectLocal(b.spaces[i], unitBox, org, dir, tNear, tFar)
}

func (b *orientedBlock) SizeBytes() int {
	return int(unsafe.Sizeof(*b))
}
