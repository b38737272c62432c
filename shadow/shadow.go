package shadow

import (
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"

	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/logging"
)

// Sampler wraps the HAL comparison sampler shadows sample through. PCF
// filter configuration lives in the HAL's sampler descriptor, which this
// core does not otherwise interpret.
type Sampler struct {
	hal.Sampler
}

// LocalShadowUniform is the per-local-shadow uniform block the lighting
// pass consumes for PCF sampling: view-projection plus the region's UV
// transform into the shared atlas.
type LocalShadowUniform struct {
	ViewProj mgl32.Mat4
	AtlasUV  mgl32.Vec4 // (offsetU, offsetV, scaleU, scaleV)
}

// AtlasUVTransform converts a Region's pixel rect into a normalized
// (offset, scale) UV transform for atlasSize. The intermediate offset/scale
// pair is computed as f32.Vec2s (the atlas is a flat 2D rect, not a 3D
// quantity) before being packed into the mgl32.Vec4 the uniform block wants.
func AtlasUVTransform(r Region, atlasSize uint32) mgl32.Vec4 {
	s := float32(atlasSize)
	offset := f32.Vec2{float32(r.X) / s, float32(r.Y) / s}
	scale := f32.Vec2{float32(r.Size) / s, float32(r.Size) / s}
	return mgl32.Vec4{offset[0], offset[1], scale[0], scale[1]}
}

// DrawSystem owns the cascade set and atlas and builds the per-local-shadow
// uniform blocks. It holds no Sampler and writes no uniforms to the GPU
// itself.
type DrawSystem struct {
	Cascades *CascadedShadowMap
	Atlas    *Atlas
	log      logging.Logger
}

// NewDrawSystem constructs a shadow draw system from the given cascade and
// atlas configuration.
func NewDrawSystem(cascadeDesc CascadeDescriptor, atlasDesc AtlasDescriptor, log logging.Logger) *DrawSystem {
	return &DrawSystem{
		Cascades: NewCascadedShadowMap(cascadeDesc),
		Atlas:    NewAtlas(atlasDesc),
		log:      logging.OrNop(log),
	}
}

// BeginFrame frees the prior frame's atlas regions before this frame's
// shadow-casting lights are allocated.
func (s *DrawSystem) BeginFrame() {
	s.Atlas.BeginFrame()
}

// AllocateLocalShadow reserves an atlas region of at least requestedSize
// for lightIndex and records its view-projection. Returns false if the
// atlas is full, in which case the caller should treat the light as
// unshadowed for this frame rather than fail it.
func (s *DrawSystem) AllocateLocalShadow(lightIndex uint32, requestedSize uint32, viewProj mgl32.Mat4, near, far float32) (Region, bool) {
	r, ok := s.Atlas.Allocate(lightIndex, requestedSize)
	if !ok {
		s.log.Warnf("shadow atlas full, light %d unshadowed this frame", lightIndex)
		return Region{}, false
	}
	s.Atlas.SetViewProj(lightIndex, viewProj, near, far)
	r, _ = s.Atlas.Lookup(lightIndex)
	return r, true
}

// Stats reports the shadow maps in use for the current frame: every
// allocated atlas region (local lights) plus the directional light's
// configured cascade count.
type Stats struct {
	ActiveShadowMaps int
}

func (s *DrawSystem) Stats() Stats {
	return Stats{ActiveShadowMaps: s.Atlas.AllocatedCount() + s.Cascades.Count()}
}

// LocalUniform builds the lighting pass's per-local-shadow uniform for an
// already-allocated light.
func (s *DrawSystem) LocalUniform(lightIndex uint32) (LocalShadowUniform, bool) {
	r, ok := s.Atlas.Lookup(lightIndex)
	if !ok {
		return LocalShadowUniform{}, false
	}
	return LocalShadowUniform{ViewProj: r.ViewProj, AtlasUV: AtlasUVTransform(r, s.Atlas.desc.Size)}, true
}
