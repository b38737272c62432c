package mesh

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/clusterforge/transient"
)

// GPUInstance is the per-instance record streamed into the transient vertex
// ring by MeshDrawSystem.BuildBatches: a world transform plus a 16-byte
// "custom" float4, 80 bytes total. Kept at its full, correct size rather
// than truncating the transform to force a rounder byte count.
type GPUInstance struct {
	World  mgl32.Mat4
	Custom mgl32.Vec4
}

// Layer groups instances/commands for sort-order purposes.
type Layer uint8

const (
	LayerOpaque Layer = iota
	LayerTransparent
	LayerOverlay
)

type instanceSubmission struct {
	mesh      MeshHandle
	material  MaterialID
	data      GPUInstance
	layer     Layer
	skinned   bool
	boneBase  uint32
	boneCount uint32
}

// DrawStats reports the counters BuildBatches/BuildBatchesParallel produced
// for the most recently built frame.
type DrawStats struct {
	DrawCalls  int
	Triangles  uint32
	BatchCount int
}

// Batch is a contiguous run of instances sharing (pipeline, material, mesh,
// layer), in first-submitted order.
type Batch struct {
	Pipeline      PipelineID
	Material      MaterialID
	Mesh          MeshHandle
	Layer         Layer
	InstanceFirst uint32
	InstanceCount uint32
}

// MeshDrawSystem accumulates per-frame instance submissions and turns them
// into batched GPU draws.
type MeshDrawSystem struct {
	transient  *transient.Pool
	mu         sync.Mutex
	instances  []instanceSubmission
	bones      []mgl32.Mat4
	boneCursor uint32
	stats      DrawStats
}

// NewMeshDrawSystem constructs a draw system writing instance/bone data
// through transientPool.
func NewMeshDrawSystem(transientPool *transient.Pool) *MeshDrawSystem {
	return &MeshDrawSystem{transient: transientPool}
}

// Reset clears all submissions for a new frame. Called by the renderer
// façade at begin_frame, before any add_instance calls.
func (s *MeshDrawSystem) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = s.instances[:0]
	s.bones = s.bones[:0]
	s.boneCursor = 0
	s.stats = DrawStats{}
}

// Stats reports the draw-call, triangle and batch counts BuildBatches (or
// BuildBatchesParallel) computed for the instances submitted since the last
// Reset.
func (s *MeshDrawSystem) Stats() DrawStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// AddInstance submits one non-skinned draw instance. The pipeline for the
// instance's (mesh, material) pair is resolved lazily by BuildBatches via
// its pipelineOf callback.
func (s *MeshDrawSystem) AddInstance(meshHandle MeshHandle, material MaterialID, data GPUInstance, layer Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = append(s.instances, instanceSubmission{mesh: meshHandle, material: material, data: data, layer: layer})
}

// AddSkinnedInstance submits a skinned draw instance. bones is copied into
// the shared per-frame bone transient buffer as a contiguous subrange by the
// next BuildBatches/BuildBatchesParallel call; the instance's submission
// record carries the (first_bone_index, bone_count) pair the shader needs to
// find its own slice of that buffer. Returns the assigned base bone index.
func (s *MeshDrawSystem) AddSkinnedInstance(meshHandle MeshHandle, material MaterialID, data GPUInstance, bones []mgl32.Mat4, layer Layer) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.boneCursor
	boneCount := uint32(len(bones))
	s.boneCursor += boneCount
	s.bones = append(s.bones, bones...)
	s.instances = append(s.instances, instanceSubmission{
		mesh: meshHandle, material: material, data: data, layer: layer,
		skinned: true, boneBase: base, boneCount: boneCount,
	})
	return base
}

// BuildBatches writes every submitted instance's GPUInstance into the
// transient vertex ring (order preserved), writes any accumulated skinned
// bone matrices into the bone ring, and groups contiguous submissions
// sharing (pipeline, material, mesh, layer) into Batch records. pipelineOf
// resolves the pipeline for a (mesh, material) pair; the core has no
// material system of its own. trianglesOf resolves a mesh's triangle count
// for the Stats triangle total; pass nil to skip triangle accounting.
func (s *MeshDrawSystem) BuildBatches(pipelineOf func(MeshHandle, MaterialID) PipelineID, trianglesOf func(MeshHandle) uint32) []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.instances) == 0 {
		s.stats = DrawStats{}
		return nil
	}

	s.writeTransientLocked()
	batches := groupInstances(s.instances, pipelineOf)
	s.recordStatsLocked(batches, trianglesOf)
	return batches
}

// BuildBatchesParallel behaves like BuildBatches, but resolves each
// instance's pipeline across workerCount goroutines over disjoint index
// ranges of a shared, preallocated slice before grouping serially — grouping
// itself stays single-threaded since a contiguous run can only be recognized
// by scanning the full, ordered instance list. workerCount <= 1 runs
// entirely serially. No goroutine here writes outside the index range it
// was handed, and the shared slice is discarded at the end of this call, so
// no mutable state escapes the frame that produced it.
func (s *MeshDrawSystem) BuildBatchesParallel(pipelineOf func(MeshHandle, MaterialID) PipelineID, trianglesOf func(MeshHandle) uint32, workerCount int) []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.instances) == 0 {
		s.stats = DrawStats{}
		return nil
	}

	s.writeTransientLocked()

	if workerCount <= 1 {
		batches := groupInstances(s.instances, pipelineOf)
		s.recordStatsLocked(batches, trianglesOf)
		return batches
	}

	resolved := make([]PipelineID, len(s.instances))
	chunkSize := (len(s.instances) + workerCount - 1) / workerCount
	var wg sync.WaitGroup
	for start := 0; start < len(s.instances); start += chunkSize {
		end := start + chunkSize
		if end > len(s.instances) {
			end = len(s.instances)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				resolved[i] = pipelineOf(s.instances[i].mesh, s.instances[i].material)
			}
		}(start, end)
	}
	wg.Wait()

	batches := groupResolvedInstances(s.instances, resolved)
	s.recordStatsLocked(batches, trianglesOf)
	return batches
}

// writeTransientLocked copies this frame's accumulated instance and bone
// data into the transient vertex/bone rings. Callers must hold s.mu.
func (s *MeshDrawSystem) writeTransientLocked() {
	raw := make([]GPUInstance, len(s.instances))
	for i, sub := range s.instances {
		raw[i] = sub.data
	}
	transient.AllocateVertices(s.transient, raw)

	if len(s.bones) > 0 {
		transient.AllocateBones(s.transient, s.bones)
	}
}

// recordStatsLocked computes DrawStats from batches for Stats() to report.
// Callers must hold s.mu.
func (s *MeshDrawSystem) recordStatsLocked(batches []Batch, trianglesOf func(MeshHandle) uint32) {
	stats := DrawStats{DrawCalls: len(s.instances), BatchCount: len(batches)}
	if trianglesOf != nil {
		for _, sub := range s.instances {
			stats.Triangles += trianglesOf(sub.mesh)
		}
	}
	s.stats = stats
}

// groupInstances coalesces contiguous submissions sharing (pipeline,
// material, mesh, layer) into Batch records, preserving submission order.
func groupInstances(instances []instanceSubmission, pipelineOf func(MeshHandle, MaterialID) PipelineID) []Batch {
	resolved := make([]PipelineID, len(instances))
	for i, sub := range instances {
		resolved[i] = pipelineOf(sub.mesh, sub.material)
	}
	return groupResolvedInstances(instances, resolved)
}

// groupResolvedInstances is groupInstances given an already-resolved
// per-instance pipeline slice, letting BuildBatchesParallel skip re-invoking
// pipelineOf during the serial grouping pass.
func groupResolvedInstances(instances []instanceSubmission, resolved []PipelineID) []Batch {
	if len(instances) == 0 {
		return nil
	}
	batches := make([]Batch, 0, len(instances))
	start := 0
	for i := 1; i <= len(instances); i++ {
		if i < len(instances) && sameResolvedGroup(instances[start], instances[i], resolved[start], resolved[i]) {
			continue
		}
		first := instances[start]
		batches = append(batches, Batch{
			Pipeline:      resolved[start],
			Material:      first.material,
			Mesh:          first.mesh,
			Layer:         first.layer,
			InstanceFirst: uint32(start),
			InstanceCount: uint32(i - start),
		})
		start = i
	}
	return batches
}

func sameResolvedGroup(a, b instanceSubmission, pa, pb PipelineID) bool {
	return a.mesh == b.mesh && a.material == b.material && a.layer == b.layer && pa == pb
}

// SortedByLayer returns batch indices grouped by layer in LayerOpaque,
// LayerTransparent, LayerOverlay order, stable within a layer. Useful when a
// caller wants to execute opaque batches before transparent ones without
// re-deriving layer from each batch.
func SortedByLayer(batches []Batch) []int {
	idx := make([]int, len(batches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return batches[idx[i]].Layer < batches[idx[j]].Layer
	})
	return idx
}
