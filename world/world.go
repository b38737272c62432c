// Package world implements the render-world proxy store: typed
// slot arrays of proxies, one per kind, each backed by pool.ResourcePool so
// allocation and handle validity match every other pooled resource in this
// module. Destroying a proxy releases its slot immediately. Kinds are separate tables rather than a
// tagged union to keep per-kind iteration
// cache-friendly.
package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/geom"
	"github.com/gekko3d/clusterforge/mesh"
	"github.com/gekko3d/clusterforge/pool"
)

// ProxyFlags is a bitmask of StaticMeshProxy/SkinnedMeshProxy render flags.
type ProxyFlags uint8

const (
	FlagVisible ProxyFlags = 1 << iota
	FlagCastShadow
	FlagReceiveShadow
	FlagDynamic
)

// Kind marker types give each proxy table its own Handle[Kind] type so a
// StaticMeshProxy handle can never be passed where a LightProxy handle is
// expected.
type (
	StaticMeshKind      struct{}
	SkinnedMeshKind     struct{}
	LightKind           struct{}
	CameraKind          struct{}
	ParticleEmitterKind struct{}
	SpriteKind          struct{}
	ForceFieldKind      struct{}
)

type (
	StaticMeshHandle      = pool.Handle[StaticMeshKind]
	SkinnedMeshHandle     = pool.Handle[SkinnedMeshKind]
	LightHandle           = pool.Handle[LightKind]
	CameraHandle          = pool.Handle[CameraKind]
	ParticleEmitterHandle = pool.Handle[ParticleEmitterKind]
	SpriteHandle          = pool.Handle[SpriteKind]
	ForceFieldHandle      = pool.Handle[ForceFieldKind]
)

// StaticMeshProxy is a non-skinned renderable instance.
type StaticMeshProxy struct {
	Transform mgl32.Mat4
	Flags     ProxyFlags
	Bounds    geom.AABB
	Mesh      mesh.MeshHandle
	Material  mesh.MaterialID
	Layer     uint8
}

// SkinnedMeshProxy additionally carries the skeleton's bone count. Bone
// matrices themselves are per-frame data, computed by animation and
// submitted through mesh.MeshDrawSystem.AddSkinnedInstance into the
// transient bone ring rather than stored on the proxy.
type SkinnedMeshProxy struct {
	StaticMeshProxy
	BoneCount uint32
}

// LightKindValue distinguishes the four light kinds a LightProxy can be.
type LightKindValue uint8

const (
	LightDirectional LightKindValue = iota
	LightPoint
	LightSpot
	LightArea
)

// LightProxy is a light source. InnerCos/OuterCos cache
// cos(inner_angle)/cos(outer_angle) so lighting code never calls cos() per
// frame.
type LightProxy struct {
	Kind         LightKindValue
	Position     mgl32.Vec3
	Direction    mgl32.Vec3
	Color        mgl32.Vec3
	Intensity    float32
	Range        float32
	InnerAngle   float32
	OuterAngle   float32
	InnerCos     float32
	OuterCos     float32
	CastsShadows bool
	ShadowBias   float32
	NormalBias   float32
	ShadowIndex  int32 // -1 = none
}

// RecacheConeAngles recomputes InnerCos/OuterCos from InnerAngle/OuterAngle.
// Call after mutating the angle fields directly.
func (l *LightProxy) RecacheConeAngles() {
	l.InnerCos = cos32(l.InnerAngle)
	l.OuterCos = cos32(l.OuterAngle)
}

// ProjectionKind selects CameraProxy's projection.
type ProjectionKind uint8

const (
	ProjectionPerspective ProjectionKind = iota
	ProjectionOrthographic
)

// CameraProxy is a view into the scene. Right is derived from
// Forward/Up and kept orthonormal by Orthonormalize; View/Proj are cached
// and only recomputed when Dirty.
type CameraProxy struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Up       mgl32.Vec3
	Right    mgl32.Vec3

	Projection ProjectionKind
	FovY       float32 // radians, perspective
	OrthoWidth float32
	OrthoHeight float32
	Near       float32
	Far        float32

	ViewportWidth  uint32
	ViewportHeight uint32

	IsMain   bool
	Priority int32
	Enabled  bool

	view     mgl32.Mat4
	proj     mgl32.Mat4
	dirty    bool
}

// NewCameraProxy returns a CameraProxy with sane defaults: perspective,
// 60-degree vertical FoV, near/far 0.1/1000, enabled, dirty.
func NewCameraProxy() CameraProxy {
	c := CameraProxy{
		Forward:    mgl32.Vec3{0, 0, -1},
		Up:         mgl32.Vec3{0, 1, 0},
		Projection: ProjectionPerspective,
		FovY:       mgl32.DegToRad(60),
		Near:       0.1,
		Far:        1000,
		Enabled:    true,
		dirty:      true,
	}
	c.Orthonormalize()
	return c
}

// Orthonormalize recomputes Right from Forward×Up and marks the cached
// matrices dirty. Call after mutating Position/Forward/Up directly.
func (c *CameraProxy) Orthonormalize() {
	f := c.Forward.Normalize()
	r := f.Cross(c.Up).Normalize()
	u := r.Cross(f).Normalize()
	c.Forward, c.Right, c.Up = f, r, u
	c.dirty = true
}

// MarkDirty forces the next ViewMatrix/ProjMatrix call to recompute.
func (c *CameraProxy) MarkDirty() { c.dirty = true }

// ViewMatrix returns the cached (or freshly computed) view matrix.
func (c *CameraProxy) ViewMatrix() mgl32.Mat4 {
	if c.dirty {
		c.recompute()
	}
	return c.view
}

// ProjMatrix returns the cached (or freshly computed) projection matrix.
// When flipProjectionRequired is true the m22 element (one-based row 2,
// col 2: the Y scale, index 5 in mgl32's column-major layout) is negated to
// match a backend whose NDC Y convention is flipped relative to OpenGL's.
func (c *CameraProxy) ProjMatrix(flipProjectionRequired bool) mgl32.Mat4 {
	if c.dirty {
		c.recompute()
	}
	p := c.proj
	if flipProjectionRequired {
		p[5] = -p[5]
	}
	return p
}

func (c *CameraProxy) recompute() {
	c.view = mgl32.LookAtV(c.Position, c.Position.Add(c.Forward), c.Up)
	aspect := float32(1)
	if c.ViewportHeight != 0 {
		aspect = float32(c.ViewportWidth) / float32(c.ViewportHeight)
	}
	if c.Projection == ProjectionPerspective {
		c.proj = mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
	} else {
		hw, hh := c.OrthoWidth/2, c.OrthoHeight/2
		c.proj = mgl32.Ortho(-hw, hw, -hh, hh, c.Near, c.Far)
	}
	c.dirty = false
}

// ParticleEmitterProxy drives a CPU or GPU particle system.
type ParticleEmitterProxy struct {
	Position     mgl32.Vec3
	EmissionRate float32
	MaxParticles uint32
	LifetimeMin  float32
	LifetimeMax  float32
	Size         float32
	Color        mgl32.Vec4
	BlendMode    BlendMode
}

// SpriteProxy is a billboard/2D-in-3D draw.
type SpriteProxy struct {
	Position  mgl32.Vec3
	Size      mgl32.Vec2
	Color     mgl32.Vec4
	BlendMode BlendMode
	Layer     uint8
}

// ForceFieldProxy perturbs particle simulations in a region.
type ForceFieldProxy struct {
	Position  mgl32.Vec3
	Radius    float32
	Strength  float32
	Falloff   float32
}

// BlendMode names a sprite/particle compositing mode.
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendAlpha
	BlendAdditive
)

func cos32(radians float32) float32 {
	return float32(math.Cos(float64(radians)))
}
