// Package visibility implements frustum culling, multi-view visibility
// aggregation, draw-key packing and batch coalescing.
package visibility

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
)

// TestResult is the outcome of a containment test against a frustum/plane
// set.
type TestResult uint8

const (
	Outside TestResult = iota
	Intersect
	Inside
)

// FrustumCuller holds six normalized frustum planes extracted from a
// view-projection matrix via the Gribb-Hartmann method: each
// plane is ±row_i ± row_w of the matrix, normalized to unit-length normal.
// A point is inside iff dot(n, p) + d >= 0 for all six.
type FrustumCuller struct {
	planes [6]geom.Plane
}

// NewFrustumCuller extracts the six planes (left, right, bottom, top, near,
// far, in that order) from viewProjection.
func NewFrustumCuller(viewProjection mgl32.Mat4) FrustumCuller {
	m := viewProjection
	// mgl32.Mat4 is column-major: m[row + col*4].
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{m[r], m[r+4], m[r+8], m[r+12]}
	}
	rowW := row(3)
	rowX := row(0)
	rowY := row(1)
	rowZ := row(2)

	left := addVec4(rowW, rowX)
	right := subVec4(rowW, rowX)
	bottom := addVec4(rowW, rowY)
	top := subVec4(rowW, rowY)
	near := addVec4(rowW, rowZ)
	far := subVec4(rowW, rowZ)

	var f FrustumCuller
	planes := [6]mgl32.Vec4{left, right, bottom, top, near, far}
	for i, p := range planes {
		f.planes[i] = geom.Plane{Normal: mgl32.Vec3{p[0], p[1], p[2]}, Distance: p[3]}.Normalize()
	}
	return f
}

func addVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}
func subVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// Planes returns the six extracted planes, in left/right/bottom/top/near/far
// order, each with a unit-length normal.
func (f FrustumCuller) Planes() [6]geom.Plane { return f.planes }

// TestPoint reports Inside/Outside for a single point.
func (f FrustumCuller) TestPoint(p mgl32.Vec3) TestResult {
	for _, pl := range f.planes {
		if pl.SignedDistance(p) < 0 {
			return Outside
		}
	}
	return Inside
}

// TestSphere reports Inside/Outside for a bounding sphere.
func (f FrustumCuller) TestSphere(center mgl32.Vec3, radius float32) TestResult {
	for _, pl := range f.planes {
		if pl.SignedDistance(center) < -radius {
			return Outside
		}
	}
	return Inside
}

// TestAABB uses the p/n-vertex trick: for each plane, evaluate
// against the p-vertex (the corner most in the plane normal's direction);
// if that's outside, the whole box is Outside. If any plane's n-vertex (the
// opposite corner) is outside, the box Intersects. Otherwise Inside.
func (f FrustumCuller) TestAABB(box geom.AABB) TestResult {
	result := Inside
	for _, pl := range f.planes {
		pVertex := mgl32.Vec3{
			pick(pl.Normal.X() >= 0, box.Max.X(), box.Min.X()),
			pick(pl.Normal.Y() >= 0, box.Max.Y(), box.Min.Y()),
			pick(pl.Normal.Z() >= 0, box.Max.Z(), box.Min.Z()),
		}
		if pl.SignedDistance(pVertex) < 0 {
			return Outside
		}
		nVertex := mgl32.Vec3{
			pick(pl.Normal.X() >= 0, box.Min.X(), box.Max.X()),
			pick(pl.Normal.Y() >= 0, box.Min.Y(), box.Max.Y()),
			pick(pl.Normal.Z() >= 0, box.Min.Z(), box.Max.Z()),
		}
		if pl.SignedDistance(nVertex) < 0 {
			result = Intersect
		}
	}
	return result
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}
