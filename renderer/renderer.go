// Package renderer is the façade that owns every subsystem package above it
// (pool, transient, world, mesh, visibility, lighting, shadow, rendergraph)
// and drives their shared per-frame lifecycle: begin_frame rotates transient
// storage and retires deferred-destroyed GPU resources, end_frame reports
// aggregate stats. Nothing outside this package needs to know the frame
// lifecycle order the subsystems require.
package renderer

import (
	"time"

	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/lighting"
	"github.com/gekko3d/clusterforge/logging"
	"github.com/gekko3d/clusterforge/mesh"
	"github.com/gekko3d/clusterforge/pool"
	"github.com/gekko3d/clusterforge/rendergraph"
	"github.com/gekko3d/clusterforge/shadow"
	"github.com/gekko3d/clusterforge/transient"
	"github.com/gekko3d/clusterforge/visibility"
	"github.com/gekko3d/clusterforge/world"
)

// Descriptor configures every subsystem a Renderer owns. Zero-valued fields
// are filled with sane defaults by withDefaults, the same pattern
// renderer_select.go's ensureWindowResource uses for window parameters.
type Descriptor struct {
	FramesInFlight uint64
	FenceTimeout   time.Duration
	Transient      transient.Descriptor
	Clusters       lighting.GridDescriptor
	Cascades       shadow.CascadeDescriptor
	Atlas          shadow.AtlasDescriptor
}

func (d Descriptor) withDefaults() Descriptor {
	if d.FramesInFlight == 0 {
		d.FramesInFlight = 2
	}
	if d.FenceTimeout == 0 {
		d.FenceTimeout = time.Second
	}
	return d
}

// Renderer owns one instance of every render-core subsystem and coordinates
// their per-frame lifecycle. Each subsystem remains independently usable;
// Renderer only sequences begin_frame/end_frame across them.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	log    logging.Logger

	Buffers    *pool.BufferPool
	Textures   *pool.TexturePool
	Transient  *transient.Pool
	World      *world.RenderWorld
	Meshes     *mesh.MeshPool
	Uploader   *mesh.MeshUploader
	Draws      *mesh.MeshDrawSystem
	Visibility *visibility.VisibilitySystem
	Clusters   *lighting.ClusterGrid
	Shadows    *shadow.DrawSystem
	Graph      *rendergraph.Graph

	fences       []hal.Fence
	fenceTimeout time.Duration
	frameIndex   uint64
}

// New constructs a Renderer and every subsystem it owns against device and
// queue. The only fallible construction is the transient ring pool (GPU
// buffer allocation can fail); every other subsystem is a pure data
// structure and cannot fail to construct.
func New(device hal.Device, queue hal.Queue, desc Descriptor, log logging.Logger) (*Renderer, error) {
	desc = desc.withDefaults()
	log = logging.OrNop(log)

	transientPool, err := transient.New(device, desc.Transient, log)
	if err != nil {
		return nil, err
	}

	buffers := pool.NewBufferPool(device, desc.FramesInFlight, log)
	textures := pool.NewTexturePool(device, desc.FramesInFlight, log)
	meshPool := mesh.NewMeshPool()

	return &Renderer{
		device: device,
		queue:  queue,
		log:    log,

		Buffers:    buffers,
		Textures:   textures,
		Transient:  transientPool,
		World:      world.New(),
		Meshes:     meshPool,
		Uploader:   mesh.NewMeshUploader(buffers, meshPool, queue, log),
		Draws:      mesh.NewMeshDrawSystem(transientPool),
		Visibility: visibility.NewVisibilitySystem(),
		Clusters:   lighting.NewClusterGrid(desc.Clusters),
		Shadows:    shadow.NewDrawSystem(desc.Cascades, desc.Atlas, log),
		Graph:      rendergraph.New(device, textures, buffers, log),

		fences:       make([]hal.Fence, desc.FramesInFlight),
		fenceTimeout: desc.FenceTimeout,
	}, nil
}

// SetFrameFence records the fence the caller's queue submission produced
// for frameIndex, to be waited on when that frame-in-flight slot comes back
// around on a future BeginFrame.
func (r *Renderer) SetFrameFence(frameIndex uint64, fence hal.Fence) {
	r.fences[frameIndex%uint64(len(r.fences))] = fence
}

// BeginFrame waits on this slot's outstanding fence (bounded by
// FenceTimeout; a timeout is logged and every in-flight fence is reset
// rather than treated as fatal, since partial fence state can't be proven
// consistent without backend-specific query support the hal contract
// doesn't expose), then resets every owned subsystem for the new frame in
// the order they depend on each other: deferred-destruction retirement,
// transient ring rotation, draw submissions, shadow atlas, render graph.
func (r *Renderer) BeginFrame(frameIndex uint64) {
	r.frameIndex = frameIndex
	slot := frameIndex % uint64(len(r.fences))
	if f := r.fences[slot]; f != nil && !f.Wait(r.fenceTimeout) {
		r.log.Warnf("frame fence wait timed out after %s on slot %d; resetting in-flight fences", r.fenceTimeout, slot)
		for _, fence := range r.fences {
			if fence != nil {
				fence.Reset()
			}
		}
	}

	r.Buffers.Tick(frameIndex)
	r.Textures.Tick(frameIndex)
	r.Transient.BeginFrame(frameIndex)
	r.Draws.Reset()
	r.Shadows.BeginFrame()
	r.Graph.BeginFrame()
}

// EndFrame performs end-of-frame bookkeeping on owned subsystems and returns
// the frame's aggregate stats.
func (r *Renderer) EndFrame() Stats {
	r.Graph.EndFrame()
	return r.Stats()
}

// Stats aggregates the per-subsystem counters the external stats surface
// reports: draw calls, triangles and batch count from the last BuildBatches
// call, VRAM occupancy, transient ring usage, visibility counters,
// render-graph pass/cull counts, active shadow maps, and AssignedLights: the
// number of (cluster, light) entries from the cluster grid's last
// AssignLights call. A light that overlaps several clusters is counted once
// per cluster; the number of distinct lights is not reported here.
type Stats struct {
	DrawCalls        int
	Triangles        uint32
	BatchCount       int
	Buffers          pool.Stats
	Textures         pool.Stats
	Transient        transient.Stats
	Visibility       visibility.Stats
	Graph            rendergraph.Stats
	ActiveShadowMaps int
	AssignedLights   int
}

func (r *Renderer) Stats() Stats {
	drawStats := r.Draws.Stats()
	shadowStats := r.Shadows.Stats()
	return Stats{
		DrawCalls:        drawStats.DrawCalls,
		Triangles:        drawStats.Triangles,
		BatchCount:       drawStats.BatchCount,
		Buffers:          r.Buffers.Stats(),
		Textures:         r.Textures.Stats(),
		Transient:        r.Transient.Stats(),
		Visibility:       r.Visibility.Stats(),
		Graph:            r.Graph.Stats(),
		ActiveShadowMaps: shadowStats.ActiveShadowMaps,
		AssignedLights:   r.Clusters.TotalAssigned(),
	}
}

// Logger returns the installed logger, or the no-op logger if none was
// given.
func (r *Renderer) Logger() logging.Logger { return r.log }

// FrameIndex returns the index passed to the most recent BeginFrame.
func (r *Renderer) FrameIndex() uint64 { return r.frameIndex }

// Device returns the hal.Device the Renderer was constructed with.
func (r *Renderer) Device() hal.Device { return r.device }

// Queue returns the hal.Queue the Renderer was constructed with.
func (r *Renderer) Queue() hal.Queue { return r.queue }
