package leaf

import (
	"math"
	"sync/atomic"

	"github.com/achilleasa/curvebvh/contract"
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/log"
	"github.com/achilleasa/curvebvh/types"
)

// Directions with a squared length below this threshold are ignored when
// computing an aligned space.
const minDirectionSqrLen float32 = 1e-18

// The fallback axis used when no primitive has a usable direction.
var canonicalAxis = types.XYZ(0, 0, 1)

var logger = log.New("leaf")

type encoderBase struct {
	scene      *geometry.Scene
	degenerate atomic.Int64
}

func (e *encoderBase) DegenerateSpaces() int64 {
	return e.degenerate.Load()
}

func (e *encoderBase) checkRefs(refs []geometry.PrimRef, op string) {
	contract.Require(len(refs) > 0 && len(refs) <= MaxSize, op, "expected 1..%d refs; got %d", MaxSize, len(refs))
}

// Compute the aligned space for refs and track degenerate fallbacks.
func (e *encoderBase) alignedSpace(refs []geometry.PrimRef) types.LinearSpace3 {
	space, ok := ComputeAlignedSpace(e.scene, refs)
	if !ok {
		e.degenerate.Add(1)
		logger.Debugf("no usable direction among %d primitive(s) starting at (%d, %d); using canonical axis", len(refs), refs[0].GeomID, refs[0].PrimID)
	}
	return space
}

// ComputeAlignedSpace returns an orthonormal frame whose Z axis follows the
// direction of the primitive with the smallest 64-bit id among the refs
// that have a usable direction. Since ids are unique the choice does not
// depend on the order of refs. If no primitive has a usable direction the
// frame of the canonical Z axis is returned along with false.
func ComputeAlignedSpace(scene *geometry.Scene, refs []geometry.PrimRef) (types.LinearSpace3, bool) {
	axis := canonicalAxis
	bestID := uint64(math.MaxUint64)
	found := false

	for i := range refs {
		id := refs[i].ID64()
		if id >= bestID {
			continue
		}
		dir := scene.Get(refs[i].GeomID).Direction(int(refs[i].PrimID))
		if dir.SqrLen() > minDirectionSqrLen {
			axis = dir.Normalize()
			bestID = id
			found = true
		}
	}

	return types.Frame(axis), found
}

// Clamp v to [lo, hi].
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

func ceil(v float32) float32 {
	return float32(math.Ceil(float64(v)))
}

// Guard box sizes against division by zero.
func safeSize(s types.Vec3) types.Vec3 {
	return types.MaxVec3(s, types.Splat(1e-19))
}

var unitBox = types.NewBBox(types.Vec3{}, types.Splat(1))

// Intersect a ray transformed by space with a box in that space. Affine
// transformations preserve the ray parameter so the returned distance is
// valid in world space.
func intersectLocal(space types.AffineSpace3, box types.BBox, org, dir types.Vec3, tNear, tFar float32) (float32, bool) {
	lorg := space.ApplyPoint(org)
	ldir := space.ApplyVector(dir)
	t, _, hit := box.IntersectRay(lorg, types.InvDir(ldir), tNear, tFar)
	return t, hit
}
