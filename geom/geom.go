// Package geom holds the small shared geometric value types (AABB, Sphere,
// Plane) used across the render world, visibility and lighting packages,
// built on mathgl's mgl32 vectors and matrices.
package geom

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Center returns the AABB's midpoint.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the AABB's half-size along each axis.
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Union returns the smallest AABB containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: componentMin(b.Min, o.Min),
		Max: componentMax(b.Max, o.Max),
	}
}

// Transform applies m to all eight corners of b and returns their AABB.
// Used to recompute a proxy's world-space AABB from its local bounds and
// world transform.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	corners := [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
	first := m.Mul4x1(corners[0].Vec4(1.0)).Vec3()
	out := AABB{Min: first, Max: first}
	for _, c := range corners[1:] {
		p := m.Mul4x1(c.Vec4(1.0)).Vec3()
		out.Min = componentMin(out.Min, p)
		out.Max = componentMax(out.Max, p)
	}
	return out
}

// ClosestPoint returns the point on (or in) b nearest to p, used by the
// sphere-AABB test in cluster light assignment.
func (b AABB) ClosestPoint(p mgl32.Vec3) mgl32.Vec3 {
	clamp := func(v, lo, hi float32) float32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return mgl32.Vec3{
		clamp(p.X(), b.Min.X(), b.Max.X()),
		clamp(p.Y(), b.Min.Y(), b.Max.Y()),
		clamp(p.Z(), b.Min.Z(), b.Max.Z()),
	}
}

func componentMin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min32(a.X(), b.X()), min32(a.Y(), b.Y()), min32(a.Z(), b.Z())}
}

func componentMax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max32(a.X(), b.X()), max32(a.Y(), b.Y()), max32(a.Z(), b.Z())}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Plane is a normalized plane in Hessian normal form: dot(Normal, p) +
// Distance >= 0 for points in the positive half-space.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Normalize rescales the plane so Normal has unit length.
func (p Plane) Normalize() Plane {
	length := p.Normal.Len()
	if length == 0 {
		return p
	}
	inv := 1.0 / length
	return Plane{Normal: p.Normal.Mul(inv), Distance: p.Distance * inv}
}

// SignedDistance returns dot(Normal, point) + Distance.
func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}
