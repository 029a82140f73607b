package types

import "math"

// An axis-aligned bounding box.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box. Extending an empty box with any point
// yields a box containing only that point.
func EmptyBBox() BBox {
	return BBox{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Create a bounding box from two corners.
func NewBBox(min, max Vec3) BBox {
	return BBox{Min: min, Max: max}
}

// Grow box to include point p.
func (b BBox) ExtendPoint(p Vec3) BBox {
	return BBox{Min: MinVec3(b.Min, p), Max: MaxVec3(b.Max, p)}
}

// Grow box to include another box.
func (b BBox) Extend(o BBox) BBox {
	return BBox{Min: MinVec3(b.Min, o.Min), Max: MaxVec3(b.Max, o.Max)}
}

// Returns true if the box has not been extended by anything.
func (b BBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Returns true if the box is non-empty and all its coordinates are finite.
func (b BBox) IsValid() bool {
	if b.IsEmpty() {
		return false
	}
	for i := 0; i < 3; i++ {
		if isInvalidFloat(b.Min[i]) || isInvalidFloat(b.Max[i]) {
			return false
		}
	}
	return true
}

func isInvalidFloat(f float32) bool {
	return math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) || f <= -math.MaxFloat32 || f >= math.MaxFloat32
}

// Get box extent.
func (b BBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get box center.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Calculate half of the box surface area. Empty boxes have a zero area.
func (b BBox) HalfArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	s := b.Size()
	return s[0]*s[1] + s[1]*s[2] + s[0]*s[2]
}

// Returns true if o lies completely inside b, allowing for eps slack.
func (b BBox) Contains(o BBox, eps float32) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i]-eps || o.Max[i] > b.Max[i]+eps {
			return false
		}
	}
	return true
}

// Intersect a ray with the box using the slab test. The method returns the
// entry and exit distances clipped to [tNear, tFar] and a flag indicating
// whether the ray overlaps the box inside that interval.
func (b BBox) IntersectRay(org, invDir Vec3, tNear, tFar float32) (float32, float32, bool) {
	for axis := 0; axis < 3; axis++ {
		t0 := (b.Min[axis] - org[axis]) * invDir[axis]
		t1 := (b.Max[axis] - org[axis]) * invDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}

		// NaNs appear when the ray origin lies on a slab plane and the
		// direction is parallel to it; treat those as overlapping.
		if t0 == t0 && t0 > tNear {
			tNear = t0
		}
		if t1 == t1 && t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return tNear, tFar, false
		}
	}
	return tNear, tFar, true
}

// Calculate the reciprocal of a direction vector for slab tests.
func InvDir(dir Vec3) Vec3 {
	var out Vec3
	for i := 0; i < 3; i++ {
		out[i] = 1.0 / dir[i]
	}
	return out
}
