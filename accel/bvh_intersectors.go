package accel

import (
	"fmt"

	"github.com/achilleasa/curvebvh/bvh"
	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/types"
	"github.com/pkg/errors"
)

// Trace a single ray through the tree and record the closest hit.
func traceRay(tree *bvh.BVH, ray *Ray) {
	hit, ok := tree.Intersect(ray.Org, ray.Dir, ray.TNear, ray.TFar)
	if !ok {
		return
	}
	ray.TFar = hit.T
	ray.GeomID = hit.GeomID
	ray.PrimID = hit.PrimID
}

// Test a single ray for occlusion.
func occludeRay(tree *bvh.BVH, ray *Ray) {
	if tree.Occluded(ray.Org, ray.Dir, ray.TNear, ray.TFar) {
		ray.GeomID = 0
	}
}

// Apply fn to the active lanes of a packet.
func forLanes(tree *bvh.BVH, rays []Ray, active func(lane int) bool, fn func(*bvh.BVH, *Ray)) {
	for i := range rays {
		if active(i) {
			fn(tree, &rays[i])
		}
	}
}

func bvhPacket4(tree *bvh.BVH, name string, foreign bool) Intersector4 {
	if foreign {
		return ForeignPacket[Valid4, Ray4](name,
			func(mask Mask, rays *Ray4, _ int) { forLanes(tree, rays[:], mask.Lane, traceRay) },
			func(mask Mask, rays *Ray4, _ int) { forLanes(tree, rays[:], mask.Lane, occludeRay) },
		)
	}
	return NativePacket[Valid4, Ray4](name,
		func(valid *Valid4, rays *Ray4, _ int) {
			forLanes(tree, rays[:], func(i int) bool { return valid[i] }, traceRay)
		},
		func(valid *Valid4, rays *Ray4, _ int) {
			forLanes(tree, rays[:], func(i int) bool { return valid[i] }, occludeRay)
		},
	)
}

func bvhPacket8(tree *bvh.BVH, name string, foreign bool) Intersector8 {
	if foreign {
		return ForeignPacket[Valid8, Ray8](name,
			func(mask Mask, rays *Ray8, _ int) { forLanes(tree, rays[:], mask.Lane, traceRay) },
			func(mask Mask, rays *Ray8, _ int) { forLanes(tree, rays[:], mask.Lane, occludeRay) },
		)
	}
	return NativePacket[Valid8, Ray8](name,
		func(valid *Valid8, rays *Ray8, _ int) {
			forLanes(tree, rays[:], func(i int) bool { return valid[i] }, traceRay)
		},
		func(valid *Valid8, rays *Ray8, _ int) {
			forLanes(tree, rays[:], func(i int) bool { return valid[i] }, occludeRay)
		},
	)
}

func bvhPacket16(tree *bvh.BVH, name string, foreign bool) Intersector16 {
	if foreign {
		return ForeignPacket[Valid16, Ray16](name,
			func(mask Mask, rays *Ray16, _ int) { forLanes(tree, rays[:], mask.Lane, traceRay) },
			func(mask Mask, rays *Ray16, _ int) { forLanes(tree, rays[:], mask.Lane, occludeRay) },
		)
	}
	return NativePacket[Valid16, Ray16](name,
		func(valid *Valid16, rays *Ray16, _ int) {
			forLanes(tree, rays[:], func(i int) bool { return valid[i] }, traceRay)
		},
		func(valid *Valid16, rays *Ray16, _ int) {
			forLanes(tree, rays[:], func(i int) bool { return valid[i] }, occludeRay)
		},
	)
}

// NewBVHIntersectors creates a dispatch table that traces rays through
// tree. Only the packet widths listed in widths are defined; packet
// descriptors use the foreign convention if foreign is set. The stream
// descriptor is always defined.
func NewBVHIntersectors(tree *bvh.BVH, widths []int, foreign bool) (Intersectors, error) {
	var is Intersectors
	prefix := "bvh2." + tree.Layout().String()

	for _, width := range widths {
		name := fmt.Sprintf("%s::intersector%d", prefix, width)
		switch width {
		case 1:
			is.Intersector1 = Intersector1{
				Name:      name,
				Intersect: func(ray *Ray, _ int) { traceRay(tree, ray) },
				Occluded:  func(ray *Ray, _ int) { occludeRay(tree, ray) },
			}
		case 4:
			is.Intersector4 = bvhPacket4(tree, name, foreign)
		case 8:
			is.Intersector8 = bvhPacket8(tree, name, foreign)
		case 16:
			is.Intersector16 = bvhPacket16(tree, name, foreign)
		default:
			return Intersectors{}, errors.Wrap(config.Invalid("width", width, "expected one of 1, 4, 8, 16"), "accel")
		}
	}

	is.IntersectorN = IntersectorN{
		Name: prefix + "::intersectorN",
		Intersect: func(rays []*Ray, _ int) {
			for _, ray := range rays {
				traceRay(tree, ray)
			}
		},
		Occluded: func(rays []*Ray, _ int) {
			for _, ray := range rays {
				occludeRay(tree, ray)
			}
		},
	}
	return is, nil
}

// NewBVHAccelSet wraps a built tree as a single item set whose dispatch
// table is derived from the query settings.
func NewBVHAccelSet(id uint32, tree *bvh.BVH, q config.Query) (*AccelSet, error) {
	if _, err := config.ParseQueryMode(q.Mode); err != nil {
		return nil, errors.Wrap(err, "accel")
	}
	is, err := NewBVHIntersectors(tree, q.Widths, q.Foreign)
	if err != nil {
		return nil, err
	}

	set := NewAccelSet(id, 1)
	bounds := tree.Bounds()
	set.SetBoundsFunc(func(int) types.BBox { return bounds })
	set.SetIntersectors(is)
	return set, nil
}
