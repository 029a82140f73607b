package accel

import (
	"math"

	"github.com/achilleasa/curvebvh/types"
)

// InvalidID marks a ray that has not hit anything.
const InvalidID uint32 = math.MaxUint32

// A Ray is the query and result record passed to intersectors. Intersect
// shortens TFar and records the hit ids; Occluded sets GeomID to 0 when the
// ray is blocked.
type Ray struct {
	Org   types.Vec3
	Dir   types.Vec3
	TNear float32
	TFar  float32
	Time  float32

	GeomID uint32
	PrimID uint32
}

// Create a ray that has not hit anything yet.
func NewRay(org, dir types.Vec3, tNear, tFar float32) Ray {
	return Ray{
		Org:    org,
		Dir:    dir,
		TNear:  tNear,
		TFar:   tFar,
		GeomID: InvalidID,
		PrimID: InvalidID,
	}
}

// Returns true if an Intersect call recorded a hit.
func (r *Ray) Hit() bool {
	return r.GeomID != InvalidID
}

// Returns true if an Occluded call found a blocker.
func (r *Ray) Occluded() bool {
	return r.GeomID == 0
}

// Ray packets.
type (
	Ray4  [4]Ray
	Ray8  [8]Ray
	Ray16 [16]Ray
)

// Per-lane activity flags passed to native packet intersectors.
type (
	Valid4  [4]bool
	Valid8  [8]bool
	Valid16 [16]bool
)

// A Mask packs the active lanes of a packet into a bitfield; bit i is set
// if lane i is active. Foreign packet intersectors receive masks.
type Mask uint16

// Returns true if lane i is active.
func (m Mask) Lane(i int) bool {
	return m&(1<<uint(i)) != 0
}

func (v Valid4) Pack() Mask  { return packLanes(v[:]) }
func (v Valid8) Pack() Mask  { return packLanes(v[:]) }
func (v Valid16) Pack() Mask { return packLanes(v[:]) }

func packLanes(lanes []bool) Mask {
	var m Mask
	for i, active := range lanes {
		if active {
			m |= 1 << uint(i)
		}
	}
	return m
}
