// Package transient implements the per-frame ring allocators for vertex,
// index, uniform and bone data: four preallocated rings that reset at the
// start of every frame and hand out aligned sub-allocations with no
// mid-frame growth, so returned byte slices stay stable for the rest of
// the frame.
package transient

import (
	"unsafe"

	"github.com/gekko3d/clusterforge/errs"
	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/logging"
)

// UniformAlignment is the platform's minimum uniform-buffer-offset
// alignment assumed by this pool.
const UniformAlignment = 256

// VertexIndexAlignment is the alignment used for vertex/index
// sub-allocations.
const VertexIndexAlignment = 16

// Allocation is a sub-region of a ring's current backing buffer. It is
// valid only until the end of the frame in which it was allocated.
type Allocation struct {
	Buffer hal.Buffer
	Offset uint64
	Size   uint64
	Data   []byte // nil when !Valid
	Valid  bool
}

// Descriptor configures the four ring capacities and buffering depth.
type Descriptor struct {
	VertexCapacity  uint64
	IndexCapacity   uint64
	UniformCapacity uint64
	BoneCapacity    uint64 // bytes; skinned bone matrices, mgl32.Mat4 each
	FramesInFlight  uint64 // backing buffer count per ring; rotates by frame index
}

func (d Descriptor) withDefaults() Descriptor {
	if d.VertexCapacity == 0 {
		d.VertexCapacity = 4 << 20 // 4 MiB
	}
	if d.IndexCapacity == 0 {
		d.IndexCapacity = 2 << 20 // 2 MiB
	}
	if d.UniformCapacity == 0 {
		d.UniformCapacity = 1 << 20 // 1 MiB
	}
	if d.BoneCapacity == 0 {
		d.BoneCapacity = 1 << 20 // 1 MiB
	}
	if d.FramesInFlight == 0 {
		d.FramesInFlight = 2
	}
	return d
}

// ring is one preallocated, multi-buffered allocator.
type ring struct {
	buffers    []hal.Buffer
	current    int
	capacity   uint64
	cursor     uint64
	bytesUsed  uint64
	alignment  uint64
	label      string
	overflowed bool
}

func newRing(device hal.Device, capacity uint64, frames uint64, alignment uint64, usage hal.Usage, label string) (*ring, error) {
	r := &ring{capacity: capacity, alignment: alignment, label: label}
	for i := uint64(0); i < frames; i++ {
		buf, err := device.CreateBuffer(capacity, usage|hal.UsageCopyDst, label)
		if err != nil {
			for _, b := range r.buffers {
				b.Destroy()
			}
			return nil, errs.Wrap(errs.OutOfMemory, "create "+label+" ring buffer", err)
		}
		r.buffers = append(r.buffers, buf)
	}
	return r, nil
}

func (r *ring) beginFrame(frameIndex uint64) {
	r.current = int(frameIndex % uint64(len(r.buffers)))
	r.cursor = 0
	r.bytesUsed = 0
	r.overflowed = false
}

func alignUp(v, a uint64) uint64 {
	if a == 0 {
		return v
	}
	return (v + a - 1) / a * a
}

// allocate reserves size bytes aligned to the ring's alignment, returning
// an invalid Allocation when the request would exceed remaining capacity.
// Once a ring overflows it stays failed for the rest of the frame: no
// invalid allocation is ever followed by a valid one in the same ring
// within the same frame.
func (r *ring) allocate(size uint64) Allocation {
	if r.overflowed {
		return Allocation{}
	}
	start := alignUp(r.cursor, r.alignment)
	if start+size > r.capacity {
		r.overflowed = true
		return Allocation{}
	}
	r.cursor = start + size
	r.bytesUsed += size

	buf := r.buffers[r.current]
	var data []byte
	if buf.Visible() {
		data = buf.Bytes()[start : start+size]
	}
	return Allocation{Buffer: buf, Offset: start, Size: size, Data: data, Valid: true}
}

func (r *ring) stats() RingStats {
	return RingStats{Capacity: r.capacity, BytesUsed: r.bytesUsed, Cursor: r.cursor}
}

// RingStats reports one ring's occupancy for the current frame.
type RingStats struct {
	Capacity  uint64
	BytesUsed uint64
	Cursor    uint64
}

// Stats is the aggregate per-ring occupancy report for the current frame.
type Stats struct {
	Vertex  RingStats
	Index   RingStats
	Uniform RingStats
	Bones   RingStats
}

// Pool owns the vertex/index/uniform/bone rings.
type Pool struct {
	vertex  *ring
	index   *ring
	uniform *ring
	bones   *ring
	log     logging.Logger
}

// New creates the four rings against device.
func New(device hal.Device, desc Descriptor, log logging.Logger) (*Pool, error) {
	desc = desc.withDefaults()
	log = logging.OrNop(log)

	vertex, err := newRing(device, desc.VertexCapacity, desc.FramesInFlight, VertexIndexAlignment, hal.UsageVertex, "transient-vertex")
	if err != nil {
		return nil, err
	}
	index, err := newRing(device, desc.IndexCapacity, desc.FramesInFlight, VertexIndexAlignment, hal.UsageIndex, "transient-index")
	if err != nil {
		return nil, err
	}
	uniform, err := newRing(device, desc.UniformCapacity, desc.FramesInFlight, UniformAlignment, hal.UsageUniform, "transient-uniform")
	if err != nil {
		return nil, err
	}
	bones, err := newRing(device, desc.BoneCapacity, desc.FramesInFlight, VertexIndexAlignment, hal.UsageVertex, "transient-bones")
	if err != nil {
		return nil, err
	}

	return &Pool{vertex: vertex, index: index, uniform: uniform, bones: bones, log: log}, nil
}

// BeginFrame resets cursor/bytesUsed on every ring and rotates each ring
// to the backing buffer assigned to frameIndex so the GPU has finished
// reading whichever buffer is about to be overwritten.
func (p *Pool) BeginFrame(frameIndex uint64) {
	p.vertex.beginFrame(frameIndex)
	p.index.beginFrame(frameIndex)
	p.uniform.beginFrame(frameIndex)
	p.bones.beginFrame(frameIndex)
}

// bytesOf reinterprets a slice of T as raw bytes without copying.
func bytesOf[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*size)
}

// AllocateVertices copies data into the vertex ring, returning an invalid
// Allocation on overflow.
func AllocateVertices[T any](p *Pool, data []T) Allocation {
	raw := bytesOf(data)
	alloc := p.vertex.allocate(uint64(len(raw)))
	if alloc.Valid && alloc.Data != nil {
		copy(alloc.Data, raw)
	}
	if !alloc.Valid {
		p.log.Warnf("vertex ring overflow: requested %d bytes", len(raw))
	}
	return alloc
}

// AllocateBones copies skinned-instance bone matrices into the bone ring, as
// a contiguous subrange shared by every skinned instance submitted this
// frame. Mirrors AllocateVertices; kept as its own ring rather than sharing
// the vertex ring since bone data is written once per frame and indexed by
// (first_bone_index, bone_count) rather than per-draw vertex offsets.
func AllocateBones[T any](p *Pool, data []T) Allocation {
	raw := bytesOf(data)
	alloc := p.bones.allocate(uint64(len(raw)))
	if alloc.Valid && alloc.Data != nil {
		copy(alloc.Data, raw)
	}
	if !alloc.Valid {
		p.log.Warnf("bone ring overflow: requested %d bytes", len(raw))
	}
	return alloc
}

// IndexElement constrains AllocateIndices to the two GPU index formats.
type IndexElement interface{ ~uint16 | ~uint32 }

// AllocateIndices copies data into the index ring.
func AllocateIndices[T IndexElement](p *Pool, data []T) Allocation {
	raw := bytesOf(data)
	alloc := p.index.allocate(uint64(len(raw)))
	if alloc.Valid && alloc.Data != nil {
		copy(alloc.Data, raw)
	}
	if !alloc.Valid {
		p.log.Warnf("index ring overflow: requested %d bytes", len(raw))
	}
	return alloc
}

// AllocateUniform reserves sizeof(T) bytes aligned to UniformAlignment,
// returning an uninitialized writable region. Write the value
// with WriteUniform.
func AllocateUniform[T any](p *Pool) Allocation {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	alloc := p.uniform.allocate(size)
	if !alloc.Valid {
		p.log.Warnf("uniform ring overflow: requested %d bytes", size)
	}
	return alloc
}

// WriteUniform writes value into alloc.Data. Callers must only pass an
// Allocation returned by AllocateUniform[T] for the same T.
func WriteUniform[T any](alloc Allocation, value T) {
	if !alloc.Valid || alloc.Data == nil {
		return
	}
	*(*T)(unsafe.Pointer(&alloc.Data[0])) = value
}

// Stats reports per-ring occupancy).
func (p *Pool) Stats() Stats {
	return Stats{Vertex: p.vertex.stats(), Index: p.index.stats(), Uniform: p.uniform.stats(), Bones: p.bones.stats()}
}
