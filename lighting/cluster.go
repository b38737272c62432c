// Package lighting implements the clustered forward lighting engine: a
// froxel grid with logarithmic Z slicing, sphere-AABB light assignment per
// cluster, and the packed GPU light/uniform layouts.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
	"github.com/gekko3d/clusterforge/world"
)

// MaxLightsPerCluster caps the per-cluster light-index count. Each cluster
// takes directional lights first, then local lights, each group in ascending
// light-index order; lights past the cap are dropped, so a directional light
// is kept ahead of a local light with a lower index.
const MaxLightsPerCluster = 256

// GridDescriptor configures cluster tiling resolution and the view's
// near/far planes used for the logarithmic Z split.
type GridDescriptor struct {
	GX, GY, GZ int
	Near, Far  float32
}

func (d GridDescriptor) withDefaults() GridDescriptor {
	if d.GX == 0 {
		d.GX = 16
	}
	if d.GY == 0 {
		d.GY = 9
	}
	if d.GZ == 0 {
		d.GZ = 24
	}
	if d.Near == 0 {
		d.Near = 0.1
	}
	if d.Far == 0 {
		d.Far = 1000
	}
	return d
}

// ClusterGrid owns the GX*GY*GZ froxel AABBs and their light assignment
// output.
type ClusterGrid struct {
	desc  GridDescriptor
	aabbs []geom.AABB

	offsets []uint32 // per-cluster (offset, count) in lightIndices
	counts  []uint32
	lightIndices []uint32
}

// NewClusterGrid constructs a grid with desc's resolution (defaults
// 16x9x24) and allocates its per-cluster AABB/assignment storage.
func NewClusterGrid(desc GridDescriptor) *ClusterGrid {
	desc = desc.withDefaults()
	total := desc.GX * desc.GY * desc.GZ
	return &ClusterGrid{
		desc:    desc,
		aabbs:   make([]geom.AABB, total),
		offsets: make([]uint32, total),
		counts:  make([]uint32, total),
	}
}

// ClusterIndex returns the linear index x + y*GX + z*GX*GY.
func (g *ClusterGrid) ClusterIndex(x, y, z int) int {
	return x + y*g.desc.GX + z*g.desc.GX*g.desc.GY
}

// Dimensions returns (GX, GY, GZ).
func (g *ClusterGrid) Dimensions() (int, int, int) { return g.desc.GX, g.desc.GY, g.desc.GZ }

// Slice returns the Z slice index for a positive view-space depth,
// clamped to [0, GZ-1].
func (g *ClusterGrid) Slice(depth float32) int {
	near, far, gz := float64(g.desc.Near), float64(g.desc.Far), float64(g.desc.GZ)
	if depth <= float32(near) {
		return 0
	}
	s := int(math.Floor(gz * math.Log(float64(depth)/near) / math.Log(far/near)))
	if s < 0 {
		s = 0
	}
	if s > g.desc.GZ-1 {
		s = g.desc.GZ - 1
	}
	return s
}

// sliceDepth returns the near-plane distance of slice k: near*(far/near)^(k/GZ).
func (g *ClusterGrid) sliceDepth(k int) float32 {
	near, far, gz := float64(g.desc.Near), float64(g.desc.Far), float64(g.desc.GZ)
	return float32(near * math.Pow(far/near, float64(k)/gz))
}

// BuildAABBs recomputes every cluster's view-space AABB by unprojecting the
// four screen-space tile corners at each cluster's two depth slices.
// invProj maps NDC to view space.
func (g *ClusterGrid) BuildAABBs(invProj mgl32.Mat4) {
	gx, gy, gz := g.desc.GX, g.desc.GY, g.desc.GZ
	unproject := func(ndcX, ndcY, viewZ float32) mgl32.Vec3 {
		// Reconstruct an NDC point whose unprojected view-space Z equals
		// viewZ by scaling the unprojected ray from the near plane.
		clip := invProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
		view := clip.Vec3()
		if clip.W() != 0 {
			view = view.Mul(1 / clip.W())
		}
		if view.Z() == 0 {
			return mgl32.Vec3{0, 0, viewZ}
		}
		scale := viewZ / view.Z()
		return view.Mul(scale)
	}

	for z := 0; z < gz; z++ {
		zNear := g.sliceDepth(z)
		zFar := g.sliceDepth(z + 1)
		for y := 0; y < gy; y++ {
			y0 := -1 + 2*float32(y)/float32(gy)
			y1 := -1 + 2*float32(y+1)/float32(gy)
			for x := 0; x < gx; x++ {
				x0 := -1 + 2*float32(x)/float32(gx)
				x1 := -1 + 2*float32(x+1)/float32(gx)

				corners := [8]mgl32.Vec3{
					unproject(x0, y0, -zNear), unproject(x1, y0, -zNear),
					unproject(x0, y1, -zNear), unproject(x1, y1, -zNear),
					unproject(x0, y0, -zFar), unproject(x1, y0, -zFar),
					unproject(x0, y1, -zFar), unproject(x1, y1, -zFar),
				}
				box := geom.AABB{Min: corners[0], Max: corners[0]}
				for _, c := range corners[1:] {
					box = box.Union(geom.AABB{Min: c, Max: c})
				}
				g.aabbs[g.ClusterIndex(x, y, z)] = box
			}
		}
	}
}

// AABB returns cluster (x,y,z)'s view-space bounding box.
func (g *ClusterGrid) AABB(x, y, z int) geom.AABB { return g.aabbs[g.ClusterIndex(x, y, z)] }

// pointLightSphere / spotLightSphere / areaLightSphere approximate each
// local light kind as a bounding sphere for the sphere-AABB assignment
// test. The spot approximation is intentionally conservative: it bounds
// the whole cone with a sphere rather than doing a tighter cone-AABB test,
// which can assign a spot light to clusters just outside its actual cone.
func pointLightSphere(l world.LightProxy) (mgl32.Vec3, float32) {
	return l.Position, l.Range
}

func spotLightSphere(l world.LightProxy) (mgl32.Vec3, float32) {
	halfRange := l.Range / 2
	axisPoint := l.Position.Add(l.Direction.Normalize().Mul(halfRange))
	outerCos := l.OuterCos
	if outerCos <= 0.0001 {
		outerCos = 0.0001
	}
	radius := halfRange / outerCos
	return axisPoint, radius
}

func areaLightSphere(l world.LightProxy) (mgl32.Vec3, float32) {
	return l.Position, l.Range
}

// AssignLights clears prior assignments and assigns every directional,
// point, spot and area light in lights to every cluster it overlaps.
// Directional lights are appended to every
// cluster first; local lights follow, using the sphere-AABB closest-point
// test. Within each group lights are taken in ascending light-index order
// (the input slice's order); once a cluster holds MaxLightsPerCluster
// entries the remaining lights are dropped for it.
func (g *ClusterGrid) AssignLights(lights []world.LightProxy) {
	for i := range g.counts {
		g.counts[i] = 0
	}
	g.lightIndices = g.lightIndices[:0]

	var directional []uint32
	for idx, l := range lights {
		if l.Kind == world.LightDirectional {
			directional = append(directional, uint32(idx))
		}
	}

	for ci := range g.aabbs {
		box := g.aabbs[ci]
		start := len(g.lightIndices)
		count := uint32(0)

		for _, idx := range directional {
			if count >= MaxLightsPerCluster {
				break
			}
			g.lightIndices = append(g.lightIndices, idx)
			count++
		}

		for idx, l := range lights {
			if count >= MaxLightsPerCluster {
				break
			}
			var center mgl32.Vec3
			var radius float32
			switch l.Kind {
			case world.LightPoint:
				center, radius = pointLightSphere(l)
			case world.LightSpot:
				center, radius = spotLightSphere(l)
			case world.LightArea:
				center, radius = areaLightSphere(l)
			default:
				continue
			}
			closest := box.ClosestPoint(center)
			d := closest.Sub(center)
			distSq := d.Dot(d)
			if distSq <= radius*radius {
				g.lightIndices = append(g.lightIndices, uint32(idx))
				count++
			}
		}

		g.offsets[ci] = uint32(start)
		g.counts[ci] = count
	}
}

// ClusterLights returns the light indices assigned to cluster (x,y,z).
func (g *ClusterGrid) ClusterLights(x, y, z int) []uint32 {
	ci := g.ClusterIndex(x, y, z)
	start := g.offsets[ci]
	return g.lightIndices[start : start+g.counts[ci]]
}

// TotalAssigned returns the total number of (cluster, light) assignment
// entries produced by the last AssignLights call.
func (g *ClusterGrid) TotalAssigned() int { return len(g.lightIndices) }
