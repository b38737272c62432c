// Package shadow implements cascaded shadow maps for directional lights and
// a binary-tile shadow atlas for local lights.
package shadow

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
)

// CascadeDescriptor configures cascade count, per-cascade resolution and
// the uniform/logarithmic split blend factor.
type CascadeDescriptor struct {
	Count      int
	Resolution uint32
	Lambda     float32 // blend factor in [0,1] between uniform and log splits
	Near, Far  float32
}

func (d CascadeDescriptor) withDefaults() CascadeDescriptor {
	if d.Count == 0 {
		d.Count = 4
	}
	if d.Resolution == 0 {
		d.Resolution = 2048
	}
	if d.Far == 0 {
		d.Far = 1000
	}
	if d.Near == 0 {
		d.Near = 0.1
	}
	return d
}

// Cascade is one directional-light cascade's computed state.
type Cascade struct {
	SplitNear, SplitFar float32
	ViewProj            mgl32.Mat4
}

// CascadedShadowMap computes split distances and per-cascade view-proj
// matrices for a single directional light.
type CascadedShadowMap struct {
	desc     CascadeDescriptor
	cascades []Cascade
}

// NewCascadedShadowMap constructs a cascade set with desc's configuration
// (defaults: 4 cascades, 2048 resolution).
func NewCascadedShadowMap(desc CascadeDescriptor) *CascadedShadowMap {
	desc = desc.withDefaults()
	return &CascadedShadowMap{desc: desc, cascades: make([]Cascade, desc.Count)}
}

// splitDistance blends the uniform and logarithmic split schedules by
// Lambda: slice k end =
// mix(uniform_split(k), log_split(k), lambda).
func (c *CascadedShadowMap) splitDistance(k int) float32 {
	near, far := c.desc.Near, c.desc.Far
	n := float32(c.desc.Count)
	ratio := float32(k) / n

	uniformSplit := near + (far-near)*ratio
	logSplit := near * pow32(far/near, ratio)

	lambda := c.desc.Lambda
	return uniformSplit + (logSplit-uniformSplit)*lambda
}

func pow32(base, exp float32) float32 {
	if base <= 0 {
		return 0
	}
	return float32(math.Pow(float64(base), float64(exp)))
}

// Resolution returns the configured per-cascade texture resolution.
func (c *CascadedShadowMap) Resolution() uint32 { return c.desc.Resolution }

// Count returns the configured cascade count.
func (c *CascadedShadowMap) Count() int { return c.desc.Count }

// Cascade returns cascade k's computed split/view-proj state.
func (c *CascadedShadowMap) Cascade(k int) Cascade { return c.cascades[k] }

// SplitDistances returns each cascade's end distance, strictly increasing.
func (c *CascadedShadowMap) SplitDistances() []float32 {
	out := make([]float32, c.desc.Count)
	for k := range out {
		out[k] = c.splitDistance(k + 1)
	}
	return out
}

// CascadeForDepth returns the index of the cascade covering view-space
// depth d (first cascade whose split distance exceeds d).
func (c *CascadedShadowMap) CascadeForDepth(d float32) int {
	splits := c.SplitDistances()
	for i, s := range splits {
		if d <= s {
			return i
		}
	}
	return len(splits) - 1
}

// Update recomputes every cascade's split range and light-space view-proj
// from the camera's view-projection inverse (to recover frustum corners)
// and the light's direction, which Update normalizes. Cascade AABBs are
// snapped to the shadow map's texel grid to reduce shimmer.
func (c *CascadedShadowMap) Update(invViewProj mgl32.Mat4, lightDirection mgl32.Vec3) {
	dir := lightDirection.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if abs32(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}

	prevSplit := c.desc.Near
	for k := 0; k < c.desc.Count; k++ {
		split := c.splitDistance(k + 1)
		corners := frustumSliceCorners(invViewProj, prevSplit, split, c.desc.Near, c.desc.Far)

		var center mgl32.Vec3
		for _, corn := range corners {
			center = center.Add(corn)
		}
		center = center.Mul(1.0 / float32(len(corners)))

		lightView := mgl32.LookAtV(center.Sub(dir.Mul(1000)), center, up)

		box := geom.AABB{Min: lightView.Mul4x1(corners[0].Vec4(1)).Vec3(), Max: lightView.Mul4x1(corners[0].Vec4(1)).Vec3()}
		for _, corn := range corners[1:] {
			p := lightView.Mul4x1(corn.Vec4(1)).Vec3()
			box = box.Union(geom.AABB{Min: p, Max: p})
		}

		texelSize := (box.Max.X() - box.Min.X()) / float32(c.desc.Resolution)
		if texelSize > 0 {
			box.Min = snapToTexel(box.Min, texelSize)
			box.Max = snapToTexel(box.Max, texelSize)
		}

		lightProj := mgl32.Ortho(box.Min.X(), box.Max.X(), box.Min.Y(), box.Max.Y(), box.Min.Z(), box.Max.Z())

		c.cascades[k] = Cascade{
			SplitNear: prevSplit,
			SplitFar:  split,
			ViewProj:  lightProj.Mul4(lightView),
		}
		prevSplit = split
	}
}

func snapToTexel(v mgl32.Vec3, texelSize float32) mgl32.Vec3 {
	return mgl32.Vec3{
		snap1(v.X(), texelSize),
		snap1(v.Y(), texelSize),
		v.Z(),
	}
}

func snap1(v, texelSize float32) float32 {
	return floor32(v/texelSize) * texelSize
}

// frustumSliceCorners unprojects the 8 corners of the view frustum slice
// [near, far] in world space from invViewProj (the full camera's inverse
// view-projection), scaled to [splitNear, splitFar] along the camera's
// total near/far range.
func frustumSliceCorners(invViewProj mgl32.Mat4, splitNear, splitFar, cameraNear, cameraFar float32) [8]mgl32.Vec3 {
	toNDCZ := func(viewZ float32) float32 {
		if cameraFar == cameraNear {
			return -1
		}
		t := (viewZ - cameraNear) / (cameraFar - cameraNear)
		return t*2 - 1
	}
	ndcNear := toNDCZ(splitNear)
	ndcFar := toNDCZ(splitFar)

	unproject := func(x, y, z float32) mgl32.Vec3 {
		clip := invViewProj.Mul4x1(mgl32.Vec4{x, y, z, 1})
		if clip.W() != 0 {
			return clip.Vec3().Mul(1 / clip.W())
		}
		return clip.Vec3()
	}

	return [8]mgl32.Vec3{
		unproject(-1, -1, ndcNear), unproject(1, -1, ndcNear),
		unproject(-1, 1, ndcNear), unproject(1, 1, ndcNear),
		unproject(-1, -1, ndcFar), unproject(1, -1, ndcFar),
		unproject(-1, 1, ndcFar), unproject(1, 1, ndcFar),
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func floor32(v float32) float32 {
	return float32(math.Floor(float64(v)))
}
