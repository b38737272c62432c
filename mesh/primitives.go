package mesh

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
)

// Vertex is the standard interleaved vertex:
// position, normal, UV, color, tangent.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
	Tangent  mgl32.Vec4
}

func verticesToBytes(v []Vertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(unsafe.Sizeof(Vertex{})))
}

func indicesToBytes(idx []uint16) []byte {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), len(idx)*2)
}

func boundsOf(v []Vertex) geom.AABB {
	if len(v) == 0 {
		return geom.AABB{}
	}
	b := geom.AABB{Min: v[0].Position, Max: v[0].Position}
	for _, vert := range v[1:] {
		b = b.Union(geom.AABB{Min: vert.Position, Max: vert.Position})
	}
	return b
}

func cpuMeshFrom(v []Vertex, idx []uint16, material MaterialID) CPUMesh {
	return CPUMesh{
		Layout:      LayoutStandard,
		VertexBytes: verticesToBytes(v),
		IndexBytes:  indicesToBytes(idx),
		IndexFormat: IndexFormatUint16,
		VertexCount: uint32(len(v)),
		IndexCount:  uint32(len(idx)),
		Submeshes:   []Submesh{{FirstIndex: 0, IndexCount: uint32(len(idx)), Material: material}},
		Bounds:      boundsOf(v),
	}
}

// Cube builds a unit cube (24 vertices — 4 per face so UVs/normals are
// correct per-face — and 36 indices, 12 triangles) centered on the origin
// with half-extent he.
func Cube(he float32, material MaterialID) CPUMesh {
	faces := []struct {
		normal mgl32.Vec3
		corner [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-he, -he, he}, {he, -he, he}, {he, he, he}, {-he, he, he}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{he, -he, -he}, {-he, -he, -he}, {-he, he, -he}, {he, he, -he}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{he, -he, he}, {he, -he, -he}, {he, he, -he}, {he, he, he}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-he, -he, -he}, {-he, -he, he}, {-he, he, he}, {-he, he, -he}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-he, he, he}, {he, he, he}, {he, he, -he}, {-he, he, -he}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-he, -he, -he}, {he, -he, -he}, {he, -he, he}, {-he, -he, he}}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	var verts []Vertex
	var idx []uint16
	for _, f := range faces {
		base := uint16(len(verts))
		for i, c := range f.corner {
			verts = append(verts, Vertex{
				Position: c,
				Normal:   f.normal,
				UV:       uvs[i],
				Color:    mgl32.Vec4{1, 1, 1, 1},
				Tangent:  mgl32.Vec4{1, 0, 0, 1},
			})
		}
		idx = append(idx, base, base+1, base+2, base+2, base+3, base)
	}
	return cpuMeshFrom(verts, idx, material)
}

// Plane builds a single-quad XZ plane of size w×d, facing +Y.
func Plane(w, d float32, material MaterialID) CPUMesh {
	hw, hd := w/2, d/2
	verts := []Vertex{
		{Position: mgl32.Vec3{-hw, 0, hd}, Normal: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{0, 0}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}},
		{Position: mgl32.Vec3{hw, 0, hd}, Normal: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{1, 0}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}},
		{Position: mgl32.Vec3{hw, 0, -hd}, Normal: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{1, 1}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}},
		{Position: mgl32.Vec3{-hw, 0, -hd}, Normal: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{0, 1}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}},
	}
	idx := []uint16{0, 1, 2, 2, 3, 0}
	return cpuMeshFrom(verts, idx, material)
}

// Sphere builds a UV sphere of the given radius with the given longitude
// (segments) and latitude (rings) subdivision.
func Sphere(radius float32, segments, rings int, material MaterialID) CPUMesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}
	var verts []Vertex
	for ring := 0; ring <= rings; ring++ {
		v := float32(ring) / float32(rings)
		phi := v * math.Pi
		y := float32(math.Cos(float64(phi)))
		r := float32(math.Sin(float64(phi)))
		for seg := 0; seg <= segments; seg++ {
			u := float32(seg) / float32(segments)
			theta := u * 2 * math.Pi
			x := r * float32(math.Cos(float64(theta)))
			z := r * float32(math.Sin(float64(theta)))
			n := mgl32.Vec3{x, y, z}
			verts = append(verts, Vertex{
				Position: n.Mul(radius),
				Normal:   n,
				UV:       mgl32.Vec2{u, v},
				Color:    mgl32.Vec4{1, 1, 1, 1},
				Tangent:  mgl32.Vec4{-float32(math.Sin(float64(theta))), 0, float32(math.Cos(float64(theta))), 1},
			})
		}
	}
	var idx []uint16
	stride := segments + 1
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			a := uint16(ring*stride + seg)
			b := uint16(ring*stride + seg + 1)
			c := uint16((ring+1)*stride + seg + 1)
			d := uint16((ring+1)*stride + seg)
			idx = append(idx, a, b, c, c, d, a)
		}
	}
	return cpuMeshFrom(verts, idx, material)
}

// Cylinder builds a capped cylinder of the given radius/height with
// `segments` radial subdivisions.
func Cylinder(radius, height float32, segments int, material MaterialID) CPUMesh {
	if segments < 3 {
		segments = 3
	}
	hh := height / 2
	var verts []Vertex
	var idx []uint16

	// Side.
	for seg := 0; seg <= segments; seg++ {
		u := float32(seg) / float32(segments)
		theta := u * 2 * math.Pi
		x := float32(math.Cos(float64(theta)))
		z := float32(math.Sin(float64(theta)))
		n := mgl32.Vec3{x, 0, z}
		verts = append(verts,
			Vertex{Position: mgl32.Vec3{x * radius, -hh, z * radius}, Normal: n, UV: mgl32.Vec2{u, 0}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}},
			Vertex{Position: mgl32.Vec3{x * radius, hh, z * radius}, Normal: n, UV: mgl32.Vec2{u, 1}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}},
		)
	}
	for seg := 0; seg < segments; seg++ {
		a := uint16(seg * 2)
		b := uint16(seg*2 + 1)
		c := uint16(seg*2 + 3)
		d := uint16(seg*2 + 2)
		idx = append(idx, a, b, c, c, d, a)
	}

	// Caps.
	bottomCenter := uint16(len(verts))
	verts = append(verts, Vertex{Position: mgl32.Vec3{0, -hh, 0}, Normal: mgl32.Vec3{0, -1, 0}, UV: mgl32.Vec2{0.5, 0.5}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}})
	topCenter := uint16(len(verts))
	verts = append(verts, Vertex{Position: mgl32.Vec3{0, hh, 0}, Normal: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{0.5, 0.5}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}})
	bottomRing := uint16(len(verts))
	topRing := bottomRing + uint16(segments+1)
	for seg := 0; seg <= segments; seg++ {
		u := float32(seg) / float32(segments)
		theta := u * 2 * math.Pi
		x := float32(math.Cos(float64(theta)))
		z := float32(math.Sin(float64(theta)))
		verts = append(verts, Vertex{Position: mgl32.Vec3{x * radius, -hh, z * radius}, Normal: mgl32.Vec3{0, -1, 0}, UV: mgl32.Vec2{x/2 + 0.5, z/2 + 0.5}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}})
	}
	for seg := 0; seg <= segments; seg++ {
		u := float32(seg) / float32(segments)
		theta := u * 2 * math.Pi
		x := float32(math.Cos(float64(theta)))
		z := float32(math.Sin(float64(theta)))
		verts = append(verts, Vertex{Position: mgl32.Vec3{x * radius, hh, z * radius}, Normal: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{x/2 + 0.5, z/2 + 0.5}, Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}})
	}
	for seg := 0; seg < segments; seg++ {
		idx = append(idx, bottomCenter, bottomRing+uint16(seg+1), bottomRing+uint16(seg))
		idx = append(idx, topCenter, topRing+uint16(seg), topRing+uint16(seg+1))
	}

	return cpuMeshFrom(verts, idx, material)
}

// Torus builds a torus of major radius R and minor (tube) radius r.
func Torus(majorRadius, minorRadius float32, majorSegments, minorSegments int, material MaterialID) CPUMesh {
	if majorSegments < 3 {
		majorSegments = 3
	}
	if minorSegments < 3 {
		minorSegments = 3
	}
	var verts []Vertex
	for i := 0; i <= majorSegments; i++ {
		u := float32(i) / float32(majorSegments)
		theta := u * 2 * math.Pi
		ct, st := float32(math.Cos(float64(theta))), float32(math.Sin(float64(theta)))
		for j := 0; j <= minorSegments; j++ {
			v := float32(j) / float32(minorSegments)
			phi := v * 2 * math.Pi
			cp, sp := float32(math.Cos(float64(phi))), float32(math.Sin(float64(phi)))

			center := mgl32.Vec3{ct * majorRadius, 0, st * majorRadius}
			normal := mgl32.Vec3{ct * cp, sp, st * cp}
			pos := center.Add(normal.Mul(minorRadius))
			verts = append(verts, Vertex{
				Position: pos,
				Normal:   normal,
				UV:       mgl32.Vec2{u, v},
				Color:    mgl32.Vec4{1, 1, 1, 1},
				Tangent:  mgl32.Vec4{-st, 0, ct, 1},
			})
		}
	}
	var idx []uint16
	stride := minorSegments + 1
	for i := 0; i < majorSegments; i++ {
		for j := 0; j < minorSegments; j++ {
			a := uint16(i*stride + j)
			b := uint16((i+1)*stride + j)
			c := uint16((i+1)*stride + j + 1)
			d := uint16(i*stride + j + 1)
			idx = append(idx, a, b, c, c, d, a)
		}
	}
	return cpuMeshFrom(verts, idx, material)
}
