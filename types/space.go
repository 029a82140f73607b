package types

// A 3x3 linear transformation stored as three column vectors.
type LinearSpace3 struct {
	VX, VY, VZ Vec3
}

// An affine transformation: p' = L*p + P.
type AffineSpace3 struct {
	L LinearSpace3
	P Vec3
}

// The identity transformation.
func IdentitySpace() LinearSpace3 {
	return LinearSpace3{
		VX: Vec3{1, 0, 0},
		VY: Vec3{0, 1, 0},
		VZ: Vec3{0, 0, 1},
	}
}

// Build an orthonormal frame whose Z axis points along n. The frame maps
// local coordinates to world coordinates; its transpose maps world
// coordinates to the frame.
func Frame(n Vec3) LinearSpace3 {
	dx0 := Vec3{1, 0, 0}.Cross(n)
	dx1 := Vec3{0, 1, 0}.Cross(n)
	dx := dx0
	if dx1.SqrLen() > dx0.SqrLen() {
		dx = dx1
	}
	dx = dx.Normalize()
	dy := n.Cross(dx).Normalize()
	return LinearSpace3{VX: dx, VY: dy, VZ: n}
}

// Transform a vector.
func (l LinearSpace3) Apply(v Vec3) Vec3 {
	return l.VX.Mul(v[0]).Add(l.VY.Mul(v[1])).Add(l.VZ.Mul(v[2]))
}

// Get the transposed transformation.
func (l LinearSpace3) Transposed() LinearSpace3 {
	return LinearSpace3{
		VX: Vec3{l.VX[0], l.VY[0], l.VZ[0]},
		VY: Vec3{l.VX[1], l.VY[1], l.VZ[1]},
		VZ: Vec3{l.VX[2], l.VY[2], l.VZ[2]},
	}
}

// Get the i-th row of the transformation.
func (l LinearSpace3) Row(i int) Vec3 {
	return Vec3{l.VX[i], l.VY[i], l.VZ[i]}
}

// Calculate the determinant.
func (l LinearSpace3) Det() float32 {
	return l.VX.Dot(l.VY.Cross(l.VZ))
}

// Calculate the inverse transformation. Singular transformations yield a
// zero matrix.
func (l LinearSpace3) Inverse() LinearSpace3 {
	det := l.Det()
	if det == 0 {
		return LinearSpace3{}
	}

	// The rows of the inverse are the cross products of the columns.
	r0 := l.VY.Cross(l.VZ).Mul(1 / det)
	r1 := l.VZ.Cross(l.VX).Mul(1 / det)
	r2 := l.VX.Cross(l.VY).Mul(1 / det)
	return LinearSpace3{VX: r0, VY: r1, VZ: r2}.Transposed()
}

// Scale each column by the matching component of s.
func (l LinearSpace3) ScaleColumns(s float32) LinearSpace3 {
	return LinearSpace3{VX: l.VX.Mul(s), VY: l.VY.Mul(s), VZ: l.VZ.Mul(s)}
}

// Apply a per-axis scale after this transformation.
func (l LinearSpace3) ScaleRows(s Vec3) LinearSpace3 {
	return LinearSpace3{VX: l.VX.MulVec(s), VY: l.VY.MulVec(s), VZ: l.VZ.MulVec(s)}
}

// Wrap a linear transformation as an affine one.
func Affine(l LinearSpace3) AffineSpace3 {
	return AffineSpace3{L: l}
}

// Transform a point.
func (a AffineSpace3) ApplyPoint(p Vec3) Vec3 {
	return a.L.Apply(p).Add(a.P)
}

// Transform a direction.
func (a AffineSpace3) ApplyVector(v Vec3) Vec3 {
	return a.L.Apply(v)
}

// Calculate the inverse transformation.
func (a AffineSpace3) Inverse() AffineSpace3 {
	inv := a.L.Inverse()
	return AffineSpace3{L: inv, P: inv.Apply(a.P).Mul(-1)}
}

// Transform the eight corners of a box and return their bounds.
func (a AffineSpace3) ApplyBBox(b BBox) BBox {
	out := EmptyBBox()
	for corner := 0; corner < 8; corner++ {
		p := b.Min
		if corner&1 != 0 {
			p[0] = b.Max[0]
		}
		if corner&2 != 0 {
			p[1] = b.Max[1]
		}
		if corner&4 != 0 {
			p[2] = b.Max[2]
		}
		out = out.ExtendPoint(a.ApplyPoint(p))
	}
	return out
}
