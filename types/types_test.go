package types

import (
	"math"
	"testing"
)

const eps = 1e-4

func approxEqual(a, b Vec3) bool {
	d := a.Sub(b)
	return float32(math.Abs(float64(d[0]))) < eps &&
		float32(math.Abs(float64(d[1]))) < eps &&
		float32(math.Abs(float64(d[2]))) < eps
}

func TestFrameIsOrthonormal(t *testing.T) {
	specs := []Vec3{
		XYZ(0, 0, 1),
		XYZ(1, 0, 0),
		XYZ(0, -1, 0),
		XYZ(1, 2, 3).Normalize(),
		XYZ(-0.3, 0.1, -0.9).Normalize(),
	}

	for index, n := range specs {
		f := Frame(n)
		if f.VZ != n {
			t.Fatalf("[spec %d] expected frame Z axis to be %v; got %v", index, n, f.VZ)
		}
		axes := []Vec3{f.VX, f.VY, f.VZ}
		for i := range axes {
			if l := axes[i].Len(); math.Abs(float64(l-1)) > eps {
				t.Fatalf("[spec %d] expected axis %d to have unit length; got %f", index, i, l)
			}
			for j := i + 1; j < len(axes); j++ {
				if d := axes[i].Dot(axes[j]); math.Abs(float64(d)) > eps {
					t.Fatalf("[spec %d] expected axes %d and %d to be orthogonal; dot = %f", index, i, j, d)
				}
			}
		}

		// The transpose maps n to the local Z axis.
		if local := f.Transposed().Apply(n); !approxEqual(local, XYZ(0, 0, 1)) {
			t.Fatalf("[spec %d] expected n to map to +Z; got %v", index, local)
		}
	}
}

func TestAffineInverse(t *testing.T) {
	a := AffineSpace3{
		L: LinearSpace3{VX: XYZ(2, 0, 0), VY: XYZ(1, 3, 0), VZ: XYZ(0, 1, 0.5)},
		P: XYZ(1, -2, 4),
	}
	inv := a.Inverse()

	for _, p := range []Vec3{XYZ(0, 0, 0), XYZ(1, 2, 3), XYZ(-5, 0.5, 8)} {
		if got := inv.ApplyPoint(a.ApplyPoint(p)); !approxEqual(got, p) {
			t.Fatalf("expected round trip of %v; got %v", p, got)
		}
	}

	singular := LinearSpace3{VX: XYZ(1, 0, 0), VY: XYZ(2, 0, 0), VZ: XYZ(0, 0, 1)}
	if inv := singular.Inverse(); inv != (LinearSpace3{}) {
		t.Fatalf("expected singular matrix to invert to zero; got %v", inv)
	}
}

func TestApplyBBox(t *testing.T) {
	b := NewBBox(XYZ(0, 0, 0), XYZ(1, 2, 3))

	shifted := AffineSpace3{L: IdentitySpace(), P: XYZ(1, 1, 1)}.ApplyBBox(b)
	if exp := NewBBox(XYZ(1, 1, 1), XYZ(2, 3, 4)); shifted != exp {
		t.Fatalf("expected %v; got %v", exp, shifted)
	}

	// Swap X and Y.
	swap := Affine(LinearSpace3{VX: XYZ(0, 1, 0), VY: XYZ(1, 0, 0), VZ: XYZ(0, 0, 1)})
	if exp, got := NewBBox(XYZ(0, 0, 0), XYZ(2, 1, 3)), swap.ApplyBBox(b); got != exp {
		t.Fatalf("expected %v; got %v", exp, got)
	}
}

func TestBBox(t *testing.T) {
	empty := EmptyBBox()
	if !empty.IsEmpty() || empty.IsValid() || empty.HalfArea() != 0 {
		t.Fatal("expected empty box to be empty, invalid and have a zero area")
	}

	b := empty.ExtendPoint(XYZ(1, 2, 3))
	if b.Min != b.Max || !b.IsValid() {
		t.Fatalf("expected a valid point box; got %v", b)
	}

	b = b.Extend(NewBBox(XYZ(0, 0, 0), XYZ(1, 1, 1)))
	if exp := NewBBox(XYZ(0, 0, 0), XYZ(1, 2, 3)); b != exp {
		t.Fatalf("expected %v; got %v", exp, b)
	}
	if area := b.HalfArea(); area != 11 {
		t.Fatalf("expected half area 11; got %f", area)
	}
	if c := b.Center(); c != XYZ(0.5, 1, 1.5) {
		t.Fatalf("expected center (0.5, 1, 1.5); got %v", c)
	}

	inf := NewBBox(XYZ(0, 0, 0), XYZ(float32(math.Inf(1)), 1, 1))
	if inf.IsValid() {
		t.Fatal("expected box with infinite coordinates to be invalid")
	}
}

func TestBBoxIntersectRay(t *testing.T) {
	b := NewBBox(XYZ(-1, -1, -1), XYZ(1, 1, 1))

	type spec struct {
		org, dir   Vec3
		tNear, far float32
		expHit     bool
		expEntry   float32
	}
	specs := []spec{
		{XYZ(0, 0, -5), XYZ(0, 0, 1), 0, 100, true, 4},
		{XYZ(0, 0, -5), XYZ(0, 0, -1), 0, 100, false, 0},
		{XYZ(0, 0, -5), XYZ(0, 0, 1), 0, 3, false, 0},
		{XYZ(0, 0, 0), XYZ(1, 0, 0), 0, 100, true, 0},
		// Parallel to a slab and outside it.
		{XYZ(0, 2, -5), XYZ(0, 0, 1), 0, 100, false, 0},
		// Origin on the slab plane and parallel to it.
		{XYZ(0, 1, -5), XYZ(0, 0, 1), 0, 100, true, 4},
	}

	for index, s := range specs {
		entry, _, hit := b.IntersectRay(s.org, InvDir(s.dir), s.tNear, s.far)
		if hit != s.expHit {
			t.Fatalf("[spec %d] expected hit = %t; got %t", index, s.expHit, hit)
		}
		if hit && entry != s.expEntry {
			t.Fatalf("[spec %d] expected entry distance %f; got %f", index, s.expEntry, entry)
		}
	}
}
