package pool

import (
	"github.com/google/uuid"

	"github.com/gekko3d/clusterforge/errs"
	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/logging"
)

// autoLabel returns label unchanged, or a fresh uuid-tagged label of the
// form "kind-<uuid>" when the caller left it blank, so every pooled GPU
// resource carries a debugger-visible name even when call sites don't name
// one explicitly.
func autoLabel(label, kind string) string {
	if label != "" {
		return label
	}
	return kind + "-" + uuid.NewString()
}

// BufferKind and TextureKind are the phantom markers distinguishing buffer
// and texture handles from any other ResourcePool instantiation.
type BufferKind struct{}
type TextureKind struct{}

// BufferHandle and TextureHandle are the public handle aliases the rest of
// this module's pooled-resource operations are phrased in terms of.
type BufferHandle = Handle[BufferKind]
type TextureHandle = Handle[TextureKind]

// bufferSlot is the payload stored per buffer handle.
type bufferSlot struct {
	buffer hal.Buffer
	size   uint64
	usage  hal.Usage
	label  string
}

// textureSlot is the payload stored per texture handle.
type textureSlot struct {
	texture     hal.Texture
	width       uint32
	height      uint32
	depth       uint32
	format      hal.PixelFormat
	mipCount    uint32
	arrayLayers uint32
	samples     uint32
	usage       hal.Usage
	label       string
}

// BufferPool is the ResourcePool<Buffer> specialization: it owns GPU
// buffer creation/release and defers destruction by framesInFlight frames.
type BufferPool struct {
	device   hal.Device
	pool     *ResourcePool[bufferSlot]
	deferred *DeferredQueue
	log      logging.Logger
}

// NewBufferPool creates a buffer pool over device, retiring released
// buffers framesInFlight frames later.
func NewBufferPool(device hal.Device, framesInFlight uint64, log logging.Logger) *BufferPool {
	return &BufferPool{
		device:   device,
		pool:     New[bufferSlot](),
		deferred: NewDeferredQueue(framesInFlight),
		log:      logging.OrNop(log),
	}
}

// CreateBuffer allocates a slot and creates the GPU buffer. On HAL failure
// the pool slot is rolled back and an invalid handle plus
// *errs.RenderError(OutOfMemory) is returned.
func (p *BufferPool) CreateBuffer(size uint64, usage hal.Usage, label string) (BufferHandle, error) {
	label = autoLabel(label, "buffer")
	buf, err := p.device.CreateBuffer(size, usage, label)
	if err != nil {
		p.log.Warnf("CreateBuffer(%s, %d bytes) failed: %v", label, size, err)
		return Invalid[BufferKind](), errs.Wrap(errs.OutOfMemory, "create buffer", err)
	}
	h := p.pool.Allocate(bufferSlot{buffer: buf, size: size, usage: usage, label: label})
	return h, nil
}

// ReleaseBuffer enqueues the GPU buffer for deferred destruction and frees
// the slot immediately. Invalid handles are a no-op.
func (p *BufferPool) ReleaseBuffer(h BufferHandle, currentFrame uint64) {
	s, ok := p.pool.Get(h)
	if !ok {
		return
	}
	p.deferred.Enqueue(s.buffer, currentFrame)
	p.pool.Release(h)
}

func (p *BufferPool) GetSize(h BufferHandle) (uint64, bool) {
	s, ok := p.pool.Get(h)
	if !ok {
		return 0, false
	}
	return s.size, true
}

func (p *BufferPool) GetBuffer(h BufferHandle) (hal.Buffer, bool) {
	s, ok := p.pool.Get(h)
	if !ok {
		return nil, false
	}
	return s.buffer, true
}

func (p *BufferPool) IsValid(h BufferHandle) bool { return p.pool.IsValid(h) }

// Tick drains deferred-destruction entries at least N frames old.
func (p *BufferPool) Tick(frameIndex uint64) { p.deferred.Tick(frameIndex) }

// Stats reports occupancy plus pending deletions.
func (p *BufferPool) Stats() Stats {
	s := p.pool.Stats()
	s.PendingDeletion = p.deferred.Pending()
	return s
}

// TexturePool mirrors BufferPool for hal.Texture resources.
type TexturePool struct {
	device   hal.Device
	pool     *ResourcePool[textureSlot]
	deferred *DeferredQueue
	log      logging.Logger
}

func NewTexturePool(device hal.Device, framesInFlight uint64, log logging.Logger) *TexturePool {
	return &TexturePool{
		device:   device,
		pool:     New[textureSlot](),
		deferred: NewDeferredQueue(framesInFlight),
		log:      logging.OrNop(log),
	}
}

// CreateTexture2D allocates a slot and creates a 2D GPU texture, depth fixed to 1 and one array layer/sample.
func (p *TexturePool) CreateTexture2D(w, h uint32, format hal.PixelFormat, usage hal.Usage, mips uint32, label string) (TextureHandle, error) {
	if mips == 0 {
		mips = 1
	}
	label = autoLabel(label, "texture")
	tex, err := p.device.CreateTexture(w, h, 1, format, mips, usage, label)
	if err != nil {
		p.log.Warnf("CreateTexture2D(%s, %dx%d) failed: %v", label, w, h, err)
		return Invalid[TextureKind](), errs.Wrap(errs.OutOfMemory, "create texture", err)
	}
	handle := p.pool.Allocate(textureSlot{
		texture: tex, width: w, height: h, depth: 1,
		format: format, mipCount: mips, arrayLayers: 1, samples: 1,
		usage: usage, label: label,
	})
	return handle, nil
}

func (p *TexturePool) ReleaseTexture(h TextureHandle, currentFrame uint64) {
	s, ok := p.pool.Get(h)
	if !ok {
		return
	}
	p.deferred.Enqueue(s.texture, currentFrame)
	p.pool.Release(h)
}

func (p *TexturePool) GetDimensions(h TextureHandle) (w, ht, d uint32, ok bool) {
	s, found := p.pool.Get(h)
	if !found {
		return 0, 0, 0, false
	}
	return s.width, s.height, s.depth, true
}

func (p *TexturePool) GetFormat(h TextureHandle) (hal.PixelFormat, bool) {
	s, ok := p.pool.Get(h)
	if !ok {
		return 0, false
	}
	return s.format, true
}

func (p *TexturePool) GetTexture(h TextureHandle) (hal.Texture, bool) {
	s, ok := p.pool.Get(h)
	if !ok {
		return nil, false
	}
	return s.texture, true
}

func (p *TexturePool) IsValid(h TextureHandle) bool { return p.pool.IsValid(h) }

func (p *TexturePool) Tick(frameIndex uint64) { p.deferred.Tick(frameIndex) }

func (p *TexturePool) Stats() Stats {
	s := p.pool.Stats()
	s.PendingDeletion = p.deferred.Pending()
	return s
}
