package accel

import (
	"fmt"
)

// The lane vector types accepted by packet intersectors.
type lanes interface {
	Valid4 | Valid8 | Valid16
	Pack() Mask
}

// Single ray entry points.
type (
	IntersectFunc func(ray *Ray, item int)
	OccludedFunc  func(ray *Ray, item int)
)

// Stream entry points.
type (
	IntersectFuncN func(rays []*Ray, item int)
	OccludedFuncN  func(rays []*Ray, item int)
)

// Packet entry points using the native convention receive the per-lane
// activity vector.
type PacketFunc[V lanes, P any] func(valid *V, rays *P, item int)

// Packet entry points using the foreign convention receive the active lanes
// as a packed mask.
type MaskedPacketFunc[P any] func(mask Mask, rays *P, item int)

// An Intersector1 describes the single ray entry points of an accelerator.
// The zero value is undefined.
type Intersector1 struct {
	Name      string
	Intersect IntersectFunc
	Occluded  OccludedFunc
}

// Returns true if the descriptor has been set.
func (d *Intersector1) Defined() bool {
	return d.Name != "" && d.Intersect != nil && d.Occluded != nil
}

// An IntersectorN describes the ray stream entry points of an accelerator.
type IntersectorN struct {
	Name      string
	Intersect IntersectFuncN
	Occluded  OccludedFuncN
}

// Returns true if the descriptor has been set.
func (d *IntersectorN) Defined() bool {
	return d.Name != "" && d.Intersect != nil && d.Occluded != nil
}

// A PacketIntersector describes the entry points for one packet width.
// Depending on Foreign, either the native or the masked entry points are
// set; callers branch on Foreign and marshal the lane vector accordingly.
type PacketIntersector[V lanes, P any] struct {
	Name    string
	Foreign bool

	Intersect PacketFunc[V, P]
	Occluded  PacketFunc[V, P]

	IntersectMasked MaskedPacketFunc[P]
	OccludedMasked  MaskedPacketFunc[P]
}

type (
	Intersector4  = PacketIntersector[Valid4, Ray4]
	Intersector8  = PacketIntersector[Valid8, Ray8]
	Intersector16 = PacketIntersector[Valid16, Ray16]
)

// NativePacket creates a descriptor for entry points using the native
// convention.
func NativePacket[V lanes, P any](name string, intersect, occluded PacketFunc[V, P]) PacketIntersector[V, P] {
	return PacketIntersector[V, P]{Name: name, Intersect: intersect, Occluded: occluded}
}

// ForeignPacket creates a descriptor for entry points using the foreign
// (packed mask) convention.
func ForeignPacket[V lanes, P any](name string, intersect, occluded MaskedPacketFunc[P]) PacketIntersector[V, P] {
	return PacketIntersector[V, P]{Name: name, Foreign: true, IntersectMasked: intersect, OccludedMasked: occluded}
}

// Returns true if the descriptor has been set.
func (d *PacketIntersector[V, P]) Defined() bool {
	if d.Name == "" {
		return false
	}
	if d.Foreign {
		return d.IntersectMasked != nil && d.OccludedMasked != nil
	}
	return d.Intersect != nil && d.Occluded != nil
}

// Get the calling convention name.
func (d *PacketIntersector[V, P]) Convention() string {
	if d.Foreign {
		return "foreign"
	}
	return "native"
}

func (d *PacketIntersector[V, P]) intersect(valid *V, rays *P, item int) {
	if d.Foreign {
		d.IntersectMasked((*valid).Pack(), rays, item)
		return
	}
	d.Intersect(valid, rays, item)
}

func (d *PacketIntersector[V, P]) occluded(valid *V, rays *P, item int) {
	if d.Foreign {
		d.OccludedMasked((*valid).Pack(), rays, item)
		return
	}
	d.Occluded(valid, rays, item)
}

// Intersectors is the dispatch table of an accelerator: one optional
// descriptor per packet width plus one for streams.
type Intersectors struct {
	Intersector1  Intersector1
	Intersector4  Intersector4
	Intersector8  Intersector8
	Intersector16 Intersector16
	IntersectorN  IntersectorN
}

// A Descriptor summarizes a dispatch table entry.
type Descriptor struct {
	Width      string
	Name       string
	Convention string
	Defined    bool
}

// Describe the table entries in width order.
func (is *Intersectors) Describe() []Descriptor {
	return []Descriptor{
		{Width: "1", Name: is.Intersector1.Name, Convention: "native", Defined: is.Intersector1.Defined()},
		{Width: "4", Name: is.Intersector4.Name, Convention: is.Intersector4.Convention(), Defined: is.Intersector4.Defined()},
		{Width: "8", Name: is.Intersector8.Name, Convention: is.Intersector8.Convention(), Defined: is.Intersector8.Defined()},
		{Width: "16", Name: is.Intersector16.Name, Convention: is.Intersector16.Convention(), Defined: is.Intersector16.Defined()},
		{Width: "stream", Name: is.IntersectorN.Name, Convention: "native", Defined: is.IntersectorN.Defined()},
	}
}

func (d Descriptor) String() string {
	if !d.Defined {
		return fmt.Sprintf("%s: undefined", d.Width)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Width, d.Name, d.Convention)
}
