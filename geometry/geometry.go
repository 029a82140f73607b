// Package geometry defines how the BVH builder reads scene primitives. Scene
// storage itself is owned by the caller; the builder only consumes the
// Geometry interface.
package geometry

import (
	"sort"

	"github.com/achilleasa/curvebvh/contract"
	"github.com/achilleasa/curvebvh/types"
	"github.com/pkg/errors"
)

var (
	ErrDuplicateGeometry = errors.New("geometry: duplicate geometry id")
	ErrNilGeometry       = errors.New("geometry: nil geometry")
)

// The Geometry interface is implemented by primitive containers that can be
// indexed by the BVH builder.
type Geometry interface {
	// The geometry id.
	ID() uint32

	// The number of primitives in this geometry.
	Size() int

	// World-space bounds of a primitive.
	Bounds(prim int) types.BBox

	// The principal direction of a primitive. The length is not normalized;
	// a (near) zero vector marks a primitive without a usable direction.
	Direction(prim int) types.Vec3

	// Bounds of a primitive after transforming it with space.
	BoundsIn(space types.AffineSpace3, prim int) types.BBox
}

// A Scene aggregates the geometries indexed by a single BVH.
type Scene struct {
	geometries []Geometry
	byID       map[uint32]Geometry

	// offsets[i] is the global index of the first primitive of geometries[i].
	offsets []int
	total   int
}

// Create a new scene from a list of geometries with unique ids.
func NewScene(geometries ...Geometry) (*Scene, error) {
	s := &Scene{
		geometries: make([]Geometry, 0, len(geometries)),
		byID:       make(map[uint32]Geometry, len(geometries)),
		offsets:    make([]int, 0, len(geometries)),
	}

	for _, g := range geometries {
		if g == nil {
			return nil, ErrNilGeometry
		}
		if _, exists := s.byID[g.ID()]; exists {
			return nil, errors.Wrapf(ErrDuplicateGeometry, "id %d", g.ID())
		}
		s.byID[g.ID()] = g
		s.geometries = append(s.geometries, g)
		s.offsets = append(s.offsets, s.total)
		s.total += g.Size()
	}

	return s, nil
}

// Get the total number of primitives in the scene.
func (s *Scene) NumPrimitives() int {
	return s.total
}

// Get the geometries in insertion order.
func (s *Scene) Geometries() []Geometry {
	return s.geometries
}

// Get a geometry by id. Asking for an unknown id is a contract violation.
func (s *Scene) Get(id uint32) Geometry {
	g, ok := s.byID[id]
	contract.Require(ok, "scene.Get", "unknown geometry id %d", id)
	return g
}

// Map a global primitive index to its geometry and local primitive index.
func (s *Scene) Locate(index int) (Geometry, int) {
	contract.Index(index, s.total, "scene.Locate")

	// The last geometry starting at or before index; empty geometries
	// share their offset with the following one and are never selected.
	gIdx := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] > index }) - 1
	return s.geometries[gIdx], index - s.offsets[gIdx]
}
