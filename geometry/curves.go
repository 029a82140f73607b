package geometry

import (
	"github.com/achilleasa/curvebvh/contract"
	"github.com/achilleasa/curvebvh/types"
)

// A CurveSet stores cubic bezier curves (e.g. hair strands). Each curve is
// defined by four consecutive control points; the w component of each control
// point holds the curve radius at that point.
type CurveSet struct {
	id       uint32
	vertices []types.Vec4

	// Index of the first control point of each curve.
	curves []uint32
}

// Create a new curve set.
func NewCurveSet(id uint32, vertices []types.Vec4, curves []uint32) *CurveSet {
	return &CurveSet{
		id:       id,
		vertices: vertices,
		curves:   curves,
	}
}

// ID implements Geometry.
func (c *CurveSet) ID() uint32 {
	return c.id
}

// Size implements Geometry.
func (c *CurveSet) Size() int {
	return len(c.curves)
}

// Get the four control points of a curve.
func (c *CurveSet) ControlPoints(prim int) [4]types.Vec4 {
	contract.Index(prim, len(c.curves), "curves.ControlPoints")
	first := c.curves[prim]
	return [4]types.Vec4{
		c.vertices[first+0],
		c.vertices[first+1],
		c.vertices[first+2],
		c.vertices[first+3],
	}
}

// Bounds implements Geometry. The control point hull encloses a bezier
// curve so the bounds are conservative.
func (c *CurveSet) Bounds(prim int) types.BBox {
	cp := c.ControlPoints(prim)
	bbox := types.EmptyBBox()
	var radius float32
	for _, p := range cp {
		bbox = bbox.ExtendPoint(p.Vec3())
		radius = max(radius, p[3])
	}
	return types.BBox{
		Min: bbox.Min.Sub(types.Splat(radius)),
		Max: bbox.Max.Add(types.Splat(radius)),
	}
}

// Direction implements Geometry. It returns the vector from the first to the
// last control point.
func (c *CurveSet) Direction(prim int) types.Vec3 {
	cp := c.ControlPoints(prim)
	return cp[3].Vec3().Sub(cp[0].Vec3())
}

// BoundsIn implements Geometry. The radius is expanded along each output
// axis by the length of the matching row of the linear part so the bounds
// stay conservative for non-orthonormal spaces.
func (c *CurveSet) BoundsIn(space types.AffineSpace3, prim int) types.BBox {
	cp := c.ControlPoints(prim)
	bbox := types.EmptyBBox()
	var radius float32
	for _, p := range cp {
		bbox = bbox.ExtendPoint(space.ApplyPoint(p.Vec3()))
		radius = max(radius, p[3])
	}

	var pad types.Vec3
	for axis := 0; axis < 3; axis++ {
		pad[axis] = radius * space.L.Row(axis).Len()
	}
	return types.BBox{Min: bbox.Min.Sub(pad), Max: bbox.Max.Add(pad)}
}
