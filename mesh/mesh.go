// Package mesh implements the GPU mesh pool, mesh uploader and instance
// draw-batching system, built on pool.BufferPool and pool.ResourcePool the
// same way every other pooled resource in this module is built.
package mesh

import (
	"github.com/gekko3d/clusterforge/errs"
	"github.com/gekko3d/clusterforge/geom"
	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/logging"
	"github.com/gekko3d/clusterforge/pool"
)

// GPUMeshKind marks GPUMesh handles.
type GPUMeshKind struct{}

// MeshHandle identifies a pooled GPUMesh.
type MeshHandle = pool.Handle[GPUMeshKind]

// MaterialID and PipelineID are opaque identifiers supplied by the
// application; material/pipeline authoring is outside the core's scope,
// so these are carried as plain values rather than pooled resources.
type MaterialID uint32
type PipelineID uint32

// VertexLayout names the interleaved vertex format a GPUMesh uses. The core
// ships a standard layout (position, normal, UV, color, tangent) and a
// skinned layout; others
// may be added by the application without changing this enum's meaning for
// existing meshes.
type VertexLayout uint8

const (
	LayoutStandard VertexLayout = iota
	LayoutSkinned
)

// IndexFormat selects 16- or 32-bit indices.
type IndexFormat uint8

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Submesh is one material-contiguous index range within a GPUMesh.
type Submesh struct {
	FirstIndex uint32
	IndexCount uint32
	Material   MaterialID
}

// GPUMesh is the pooled, GPU-resident representation of a mesh.
// VertexBuffer/IndexBuffer are BufferPool handles so release goes through
// the same deferred-destruction path as every other buffer.
type GPUMesh struct {
	VertexBuffer pool.BufferHandle
	IndexBuffer  pool.BufferHandle
	Layout       VertexLayout
	VertexCount  uint32
	IndexCount   uint32
	IndexFormat  IndexFormat
	Submeshes    []Submesh
	Bounds       geom.AABB
	IsSkinned    bool
}

// MeshPool is a ResourcePool<GPUMesh>.
type MeshPool struct {
	pool *pool.ResourcePool[GPUMesh]
}

// NewMeshPool constructs an empty mesh pool.
func NewMeshPool() *MeshPool {
	return &MeshPool{pool: pool.New[GPUMesh]()}
}

// Insert adds an already-built GPUMesh and returns its handle.
func (mp *MeshPool) Insert(m GPUMesh) MeshHandle {
	return mp.pool.Allocate(m)
}

// Get returns the mesh for h, or false if h is invalid.
func (mp *MeshPool) Get(h MeshHandle) (GPUMesh, bool) {
	return mp.pool.Get(h)
}

// IsValid reports whether h currently resolves to a live mesh.
func (mp *MeshPool) IsValid(h MeshHandle) bool {
	return mp.pool.IsValid(h)
}

// Release enqueues h's buffers for deferred destruction via buffers and
// invalidates h immediately. No-op on an already-invalid handle.
func (mp *MeshPool) Release(h MeshHandle, buffers *pool.BufferPool, currentFrame uint64) {
	m, ok := mp.pool.Get(h)
	if !ok {
		return
	}
	mp.pool.Release(h)
	buffers.ReleaseBuffer(m.VertexBuffer, currentFrame)
	buffers.ReleaseBuffer(m.IndexBuffer, currentFrame)
}

// ForEach visits every occupied mesh slot in index order.
func (mp *MeshPool) ForEach(fn func(MeshHandle, *GPUMesh) bool) {
	mp.pool.ForEach(fn)
}

// Stats reports pool occupancy.
func (mp *MeshPool) Stats() pool.Stats {
	return mp.pool.Stats()
}

// CPUMesh is the application-supplied, already-decoded mesh data the
// uploader turns into a GPUMesh.
type CPUMesh struct {
	Layout      VertexLayout
	VertexBytes []byte
	IndexBytes  []byte
	IndexFormat IndexFormat
	VertexCount uint32
	IndexCount  uint32
	Submeshes   []Submesh
	Bounds      geom.AABB
	IsSkinned   bool
}

// MeshUploader turns CPU meshes into pooled GPU meshes.
type MeshUploader struct {
	buffers *pool.BufferPool
	meshes  *MeshPool
	queue   hal.Queue
	log     logging.Logger
}

// NewMeshUploader constructs an uploader writing through queue into
// buffers, inserting results into meshes.
func NewMeshUploader(buffers *pool.BufferPool, meshes *MeshPool, queue hal.Queue, log logging.Logger) *MeshUploader {
	return &MeshUploader{buffers: buffers, meshes: meshes, queue: queue, log: logging.OrNop(log)}
}

// Upload allocates a vertex buffer and an index buffer of exactly the
// required size, writes the CPU bytes through the queue, and inserts the
// assembled GPUMesh into the pool. On any failure every partial buffer
// already allocated is released so nothing leaks.
func (u *MeshUploader) Upload(cpu CPUMesh, currentFrame uint64, label string) (MeshHandle, error) {
	vb, err := u.buffers.CreateBuffer(uint64(len(cpu.VertexBytes)), hal.UsageVertex|hal.UsageCopyDst, label+"-vertices")
	if err != nil {
		return pool.Invalid[GPUMeshKind](), errs.Wrap(errs.OutOfMemory, "upload mesh vertices", err)
	}
	ib, err := u.buffers.CreateBuffer(uint64(len(cpu.IndexBytes)), hal.UsageIndex|hal.UsageCopyDst, label+"-indices")
	if err != nil {
		u.buffers.ReleaseBuffer(vb, currentFrame)
		return pool.Invalid[GPUMeshKind](), errs.Wrap(errs.OutOfMemory, "upload mesh indices", err)
	}

	vertexBuf, _ := u.buffers.GetBuffer(vb)
	indexBuf, _ := u.buffers.GetBuffer(ib)
	u.queue.WriteBuffer(vertexBuf, 0, cpu.VertexBytes)
	u.queue.WriteBuffer(indexBuf, 0, cpu.IndexBytes)

	gm := GPUMesh{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Layout:       cpu.Layout,
		VertexCount:  cpu.VertexCount,
		IndexCount:   cpu.IndexCount,
		IndexFormat:  cpu.IndexFormat,
		Submeshes:    cpu.Submeshes,
		Bounds:       cpu.Bounds,
		IsSkinned:    cpu.IsSkinned,
	}
	return u.meshes.Insert(gm), nil
}
