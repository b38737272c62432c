package world

import "github.com/gekko3d/clusterforge/pool"

// RenderWorld owns one ResourcePool per proxy kind.
type RenderWorld struct {
	staticMeshes *pool.ResourcePool[StaticMeshProxy]
	skinnedMeshes *pool.ResourcePool[SkinnedMeshProxy]
	lights        *pool.ResourcePool[LightProxy]
	cameras       *pool.ResourcePool[CameraProxy]
	emitters      *pool.ResourcePool[ParticleEmitterProxy]
	sprites       *pool.ResourcePool[SpriteProxy]
	forceFields   *pool.ResourcePool[ForceFieldProxy]
}

// New constructs an empty render world.
func New() *RenderWorld {
	return &RenderWorld{
		staticMeshes:  pool.New[StaticMeshProxy](),
		skinnedMeshes: pool.New[SkinnedMeshProxy](),
		lights:        pool.New[LightProxy](),
		cameras:       pool.New[CameraProxy](),
		emitters:      pool.New[ParticleEmitterProxy](),
		sprites:       pool.New[SpriteProxy](),
		forceFields:   pool.New[ForceFieldProxy](),
	}
}

// CreateStaticMesh allocates a StaticMeshProxy slot.
func (w *RenderWorld) CreateStaticMesh(p StaticMeshProxy) StaticMeshHandle {
	return w.staticMeshes.Allocate(p)
}

// DestroyStaticMesh releases h; no-op if already invalid.
func (w *RenderWorld) DestroyStaticMesh(h StaticMeshHandle) { w.staticMeshes.Release(h) }

// GetStaticMesh returns the proxy for h, or false if invalid.
func (w *RenderWorld) GetStaticMesh(h StaticMeshHandle) (StaticMeshProxy, bool) {
	return w.staticMeshes.Get(h)
}

// GetStaticMeshMut returns a mutable pointer to h's proxy, or nil.
func (w *RenderWorld) GetStaticMeshMut(h StaticMeshHandle) (*StaticMeshProxy, bool) {
	return w.staticMeshes.GetMut(h)
}

// ForEachStaticMesh visits every occupied static mesh slot.
func (w *RenderWorld) ForEachStaticMesh(fn func(StaticMeshHandle, *StaticMeshProxy) bool) {
	w.staticMeshes.ForEach(fn)
}

// CountStaticMeshes returns the number of live static mesh proxies.
func (w *RenderWorld) CountStaticMeshes() int { return w.staticMeshes.Len() }

// CreateSkinnedMesh allocates a SkinnedMeshProxy slot.
func (w *RenderWorld) CreateSkinnedMesh(p SkinnedMeshProxy) SkinnedMeshHandle {
	return w.skinnedMeshes.Allocate(p)
}
func (w *RenderWorld) DestroySkinnedMesh(h SkinnedMeshHandle) { w.skinnedMeshes.Release(h) }
func (w *RenderWorld) GetSkinnedMesh(h SkinnedMeshHandle) (SkinnedMeshProxy, bool) {
	return w.skinnedMeshes.Get(h)
}
func (w *RenderWorld) GetSkinnedMeshMut(h SkinnedMeshHandle) (*SkinnedMeshProxy, bool) {
	return w.skinnedMeshes.GetMut(h)
}
func (w *RenderWorld) ForEachSkinnedMesh(fn func(SkinnedMeshHandle, *SkinnedMeshProxy) bool) {
	w.skinnedMeshes.ForEach(fn)
}
func (w *RenderWorld) CountSkinnedMeshes() int { return w.skinnedMeshes.Len() }

// CreateLight allocates a LightProxy slot.
func (w *RenderWorld) CreateLight(p LightProxy) LightHandle { return w.lights.Allocate(p) }
func (w *RenderWorld) DestroyLight(h LightHandle)            { w.lights.Release(h) }
func (w *RenderWorld) GetLight(h LightHandle) (LightProxy, bool) { return w.lights.Get(h) }
func (w *RenderWorld) GetLightMut(h LightHandle) (*LightProxy, bool) {
	return w.lights.GetMut(h)
}
func (w *RenderWorld) ForEachLight(fn func(LightHandle, *LightProxy) bool) { w.lights.ForEach(fn) }
func (w *RenderWorld) CountLights() int                                   { return w.lights.Len() }

// CreateCamera allocates a CameraProxy slot.
func (w *RenderWorld) CreateCamera(p CameraProxy) CameraHandle { return w.cameras.Allocate(p) }
func (w *RenderWorld) DestroyCamera(h CameraHandle)             { w.cameras.Release(h) }
func (w *RenderWorld) GetCamera(h CameraHandle) (CameraProxy, bool) { return w.cameras.Get(h) }
func (w *RenderWorld) GetCameraMut(h CameraHandle) (*CameraProxy, bool) {
	return w.cameras.GetMut(h)
}
func (w *RenderWorld) ForEachCamera(fn func(CameraHandle, *CameraProxy) bool) { w.cameras.ForEach(fn) }
func (w *RenderWorld) CountCameras() int                                     { return w.cameras.Len() }

// CreateParticleEmitter allocates a ParticleEmitterProxy slot.
func (w *RenderWorld) CreateParticleEmitter(p ParticleEmitterProxy) ParticleEmitterHandle {
	return w.emitters.Allocate(p)
}
func (w *RenderWorld) DestroyParticleEmitter(h ParticleEmitterHandle) { w.emitters.Release(h) }
func (w *RenderWorld) GetParticleEmitter(h ParticleEmitterHandle) (ParticleEmitterProxy, bool) {
	return w.emitters.Get(h)
}
func (w *RenderWorld) ForEachParticleEmitter(fn func(ParticleEmitterHandle, *ParticleEmitterProxy) bool) {
	w.emitters.ForEach(fn)
}
func (w *RenderWorld) CountParticleEmitters() int { return w.emitters.Len() }

// CreateSprite allocates a SpriteProxy slot.
func (w *RenderWorld) CreateSprite(p SpriteProxy) SpriteHandle { return w.sprites.Allocate(p) }
func (w *RenderWorld) DestroySprite(h SpriteHandle)             { w.sprites.Release(h) }
func (w *RenderWorld) GetSprite(h SpriteHandle) (SpriteProxy, bool) { return w.sprites.Get(h) }
func (w *RenderWorld) ForEachSprite(fn func(SpriteHandle, *SpriteProxy) bool) { w.sprites.ForEach(fn) }
func (w *RenderWorld) CountSprites() int                                     { return w.sprites.Len() }

// CreateForceField allocates a ForceFieldProxy slot.
func (w *RenderWorld) CreateForceField(p ForceFieldProxy) ForceFieldHandle {
	return w.forceFields.Allocate(p)
}
func (w *RenderWorld) DestroyForceField(h ForceFieldHandle) { w.forceFields.Release(h) }
func (w *RenderWorld) GetForceField(h ForceFieldHandle) (ForceFieldProxy, bool) {
	return w.forceFields.Get(h)
}
func (w *RenderWorld) ForEachForceField(fn func(ForceFieldHandle, *ForceFieldProxy) bool) {
	w.forceFields.ForEach(fn)
}
func (w *RenderWorld) CountForceFields() int { return w.forceFields.Len() }

// MainCamera selects the lowest-index enabled camera with IsMain=true; if
// none, the highest-priority enabled camera, ties broken by index.
// Returns ok=false if no camera is enabled.
func (w *RenderWorld) MainCamera() (CameraHandle, CameraProxy, bool) {
	var bestMain CameraHandle
	var bestMainProxy CameraProxy
	foundMain := false

	var bestPriority CameraHandle
	var bestPriorityProxy CameraProxy
	foundPriority := false

	w.cameras.ForEach(func(h CameraHandle, c *CameraProxy) bool {
		if !c.Enabled {
			return true
		}
		if c.IsMain && !foundMain {
			bestMain, bestMainProxy, foundMain = h, *c, true
		}
		if !foundPriority || c.Priority > bestPriorityProxy.Priority {
			bestPriority, bestPriorityProxy, foundPriority = h, *c, true
		}
		return true
	})

	if foundMain {
		return bestMain, bestMainProxy, true
	}
	if foundPriority {
		return bestPriority, bestPriorityProxy, true
	}
	return pool.Invalid[CameraKind](), CameraProxy{}, false
}
