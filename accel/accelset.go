// Package accel exposes user-defined primitive sets and built BVHs through
// per-width intersector dispatch tables.
package accel

import (
	"github.com/achilleasa/curvebvh/contract"
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/log"
	"github.com/achilleasa/curvebvh/types"
)

// Accel is the query interface of an accelerator. Item selects a primitive
// of the accelerator's set.
type Accel interface {
	Intersect(ray *Ray, item int)
	Occluded(ray *Ray, item int)

	Intersect4(valid *Valid4, rays *Ray4, item int)
	Occluded4(valid *Valid4, rays *Ray4, item int)

	Intersect8(valid *Valid8, rays *Ray8, item int)
	Occluded8(valid *Valid8, rays *Ray8, item int)

	Intersect16(valid *Valid16, rays *Ray16, item int)
	Occluded16(valid *Valid16, rays *Ray16, item int)

	IntersectN(rays []*Ray, item int)
	OccludedN(rays []*Ray, item int)
}

// A BoundsFunc returns the bounds of an item.
type BoundsFunc func(item int) types.BBox

// A BoundsFunc2 returns the bounds of an item at the start and the end of
// the shutter interval.
type BoundsFunc2 func(item int) (types.BBox, types.BBox)

var _ Accel = (*AccelSet)(nil)
var _ geometry.Geometry = (*AccelSet)(nil)

// An AccelSet is a set of user primitives with caller supplied bounds and
// intersection entry points. Since it implements geometry.Geometry it can be
// added to a scene and indexed by the BVH builder.
//
// Registering callbacks and toggling the set must not race with queries.
type AccelSet struct {
	logger log.Logger

	id      uint32
	items   int
	enabled bool

	boundsFunc  BoundsFunc
	boundsFunc2 BoundsFunc2

	intersectors Intersectors
}

// Create an enabled set with the given number of items.
func NewAccelSet(id uint32, items int) *AccelSet {
	return &AccelSet{
		logger:  log.New("accel"),
		id:      id,
		items:   items,
		enabled: true,
	}
}

// Register a single sample bounds callback. Any two sample callback is
// cleared.
func (a *AccelSet) SetBoundsFunc(fn BoundsFunc) {
	a.boundsFunc = fn
	a.boundsFunc2 = nil
}

// Register a two sample bounds callback. Any single sample callback is
// cleared.
func (a *AccelSet) SetBoundsFunc2(fn BoundsFunc2) {
	a.boundsFunc2 = fn
	a.boundsFunc = nil
}

// Install a dispatch table.
func (a *AccelSet) SetIntersectors(is Intersectors) {
	a.intersectors = is
	for _, d := range is.Describe() {
		a.logger.Debugf("set %d: intersector %s", a.id, d)
	}
}

// Get the installed dispatch table.
func (a *AccelSet) Intersectors() *Intersectors {
	return &a.intersectors
}

// ID implements geometry.Geometry.
func (a *AccelSet) ID() uint32 {
	return a.id
}

// Size implements geometry.Geometry.
func (a *AccelSet) Size() int {
	return a.items
}

// Get the bounds of an item. Sets with a two sample callback report the
// first sample.
func (a *AccelSet) Bounds(item int) types.BBox {
	contract.Index(item, a.items, "AccelSet.Bounds")
	if a.boundsFunc2 != nil {
		b0, _ := a.boundsFunc2(item)
		return b0
	}
	contract.Require(a.boundsFunc != nil, "AccelSet.Bounds", "no bounds callback registered")
	return a.boundsFunc(item)
}

// Get the bounds of an item at both ends of the shutter interval. Only
// valid for sets with a two sample callback.
func (a *AccelSet) BoundsMBlur(item int) (types.BBox, types.BBox) {
	contract.Index(item, a.items, "AccelSet.BoundsMBlur")
	contract.Require(a.boundsFunc2 != nil, "AccelSet.BoundsMBlur", "no motion blur bounds callback registered")
	return a.boundsFunc2(item)
}

// Check whether an item has valid bounds.
func (a *AccelSet) Valid(item int) (types.BBox, bool) {
	b := a.Bounds(item)
	return b, b.IsValid()
}

// Direction implements geometry.Geometry. User primitives have no
// preferred orientation, so leaf encoders use their canonical axis.
func (a *AccelSet) Direction(int) types.Vec3 {
	return types.Vec3{}
}

// BoundsIn implements geometry.Geometry.
func (a *AccelSet) BoundsIn(space types.AffineSpace3, item int) types.BBox {
	return space.ApplyBBox(a.Bounds(item))
}

// Enable the set. Disabled sets ignore all queries.
func (a *AccelSet) Enable() {
	a.enabled = true
}

// Disable the set.
func (a *AccelSet) Disable() {
	a.enabled = false
}

// Returns true if the set is enabled.
func (a *AccelSet) IsEnabled() bool {
	return a.enabled
}

func (a *AccelSet) check(item int, defined bool, op string) {
	contract.Index(item, a.items, op)
	contract.Require(defined, op, "no intersector registered for set %d", a.id)
}

// Intersect implements Accel.
func (a *AccelSet) Intersect(ray *Ray, item int) {
	a.check(item, a.intersectors.Intersector1.Defined(), "AccelSet.Intersect")
	if a.enabled {
		a.intersectors.Intersector1.Intersect(ray, item)
	}
}

// Occluded implements Accel.
func (a *AccelSet) Occluded(ray *Ray, item int) {
	a.check(item, a.intersectors.Intersector1.Defined(), "AccelSet.Occluded")
	if a.enabled {
		a.intersectors.Intersector1.Occluded(ray, item)
	}
}

// Intersect4 implements Accel.
func (a *AccelSet) Intersect4(valid *Valid4, rays *Ray4, item int) {
	a.check(item, a.intersectors.Intersector4.Defined(), "AccelSet.Intersect4")
	if a.enabled {
		a.intersectors.Intersector4.intersect(valid, rays, item)
	}
}

// Occluded4 implements Accel.
func (a *AccelSet) Occluded4(valid *Valid4, rays *Ray4, item int) {
	a.check(item, a.intersectors.Intersector4.Defined(), "AccelSet.Occluded4")
	if a.enabled {
		a.intersectors.Intersector4.occluded(valid, rays, item)
	}
}

// Intersect8 implements Accel.
func (a *AccelSet) Intersect8(valid *Valid8, rays *Ray8, item int) {
	a.check(item, a.intersectors.Intersector8.Defined(), "AccelSet.Intersect8")
	if a.enabled {
		a.intersectors.Intersector8.intersect(valid, rays, item)
	}
}

// Occluded8 implements Accel.
func (a *AccelSet) Occluded8(valid *Valid8, rays *Ray8, item int) {
	a.check(item, a.intersectors.Intersector8.Defined(), "AccelSet.Occluded8")
	if a.enabled {
		a.intersectors.Intersector8.occluded(valid, rays, item)
	}
}

// Intersect16 implements Accel.
func (a *AccelSet) Intersect16(valid *Valid16, rays *Ray16, item int) {
	a.check(item, a.intersectors.Intersector16.Defined(), "AccelSet.Intersect16")
	if a.enabled {
		a.intersectors.Intersector16.intersect(valid, rays, item)
	}
}

// Occluded16 implements Accel.
func (a *AccelSet) Occluded16(valid *Valid16, rays *Ray16, item int) {
	a.check(item, a.intersectors.Intersector16.Defined(), "AccelSet.Occluded16")
	if a.enabled {
		a.intersectors.Intersector16.occluded(valid, rays, item)
	}
}

// IntersectN implements Accel.
func (a *AccelSet) IntersectN(rays []*Ray, item int) {
	a.check(item, a.intersectors.IntersectorN.Defined(), "AccelSet.IntersectN")
	if a.enabled {
		a.intersectors.IntersectorN.Intersect(rays, item)
	}
}

// OccludedN implements Accel.
func (a *AccelSet) OccludedN(rays []*Ray, item int) {
	a.check(item, a.intersectors.IntersectorN.Defined(), "AccelSet.OccludedN")
	if a.enabled {
		a.intersectors.IntersectorN.Occluded(rays, item)
	}
}
