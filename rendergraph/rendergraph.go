// Package rendergraph declaratively encodes a frame's passes and their
// resource dependencies, compiles them into an ordered, culled execution
// plan, and executes that plan against the hal command-encoder contracts.
package rendergraph

import (
	"fmt"

	"github.com/gekko3d/clusterforge/errs"
	"github.com/gekko3d/clusterforge/hal"
	"github.com/gekko3d/clusterforge/logging"
	"github.com/gekko3d/clusterforge/pool"
)

// ResourceKind distinguishes a graph resource's backing.
type ResourceKind int

const (
	ResourceTexture ResourceKind = iota
	ResourceBuffer
	ResourceImported
)

// TextureResourceDesc describes a transient or imported texture resource.
type TextureResourceDesc struct {
	Width, Height, Depth uint32
	MipCount             uint32
	SampleCount          uint32
	Format               hal.PixelFormat
	Usage                hal.Usage
}

// RenderTarget returns a color-attachment + sampled texture descriptor.
func RenderTarget(w, h uint32, format hal.PixelFormat) TextureResourceDesc {
	return TextureResourceDesc{Width: w, Height: h, Depth: 1, MipCount: 1, SampleCount: 1, Format: format, Usage: hal.UsageRenderAttachment | hal.UsageSampled}
}

// DepthStencil returns a depth/stencil-attachment + sampled texture
// descriptor.
func DepthStencil(w, h uint32, format hal.PixelFormat) TextureResourceDesc {
	return TextureResourceDesc{Width: w, Height: h, Depth: 1, MipCount: 1, SampleCount: 1, Format: format, Usage: hal.UsageRenderAttachment | hal.UsageSampled}
}

// BufferResourceDesc describes a transient buffer resource.
type BufferResourceDesc struct {
	Size  uint64
	Usage hal.Usage
}

// ResourceHandle identifies a graph resource for the lifetime of one frame.
// Handles are invalidated by the next BeginFrame.
type ResourceHandle struct {
	index int
	kind  ResourceKind
}

type resourceRecord struct {
	name           string
	kind           ResourceKind
	textureDesc    TextureResourceDesc
	bufferDesc     BufferResourceDesc
	importedView   hal.TextureView
	importedBuffer hal.Buffer
	firstWritePass int
	lastUsePass    int
	physTexture    pool.TextureHandle
	physBuffer     pool.BufferHandle
	hasPhysTexture bool
	hasPhysBuffer  bool
}

// PassKind distinguishes graphics from compute passes.
type PassKind int

const (
	PassGraphics PassKind = iota
	PassCompute
)

// PassFlags modifies culling/scheduling behavior.
type PassFlags uint8

const (
	NeverCull PassFlags = 1 << iota
	AsyncCompute
)

// ColorAttachment is one color attachment binding for a graphics pass.
type ColorAttachment struct {
	Handle     ResourceHandle
	ClearColor [4]float32
	LoadOp     hal.LoadOp
	StoreOp    hal.StoreOp
	MipLevel   uint32
	ArrayLayer uint32
}

// DefaultColorAttachment returns a clear+store attachment for handle.
func DefaultColorAttachment(handle ResourceHandle) ColorAttachment {
	return ColorAttachment{Handle: handle, LoadOp: hal.LoadClear, StoreOp: hal.StoreKeep}
}

// DepthStencilAttachment is the depth/stencil attachment binding for a
// graphics pass.
type DepthStencilAttachment struct {
	Handle          ResourceHandle
	DepthLoadOp     hal.LoadOp
	DepthStoreOp    hal.StoreOp
	StencilLoadOp   hal.LoadOp
	StencilStoreOp  hal.StoreOp
	ClearDepth      float32
	ClearStencil    uint32
	ReadOnly        bool
}

// PassContext is handed to a pass's user callback during Execute.
type PassContext struct {
	Encoder hal.CmdEncoder
	Render  hal.RenderPassEncoder
	Compute hal.ComputePassEncoder
}

type passRecord struct {
	name        string
	kind     PassKind
	flags    PassFlags
	colors   []ColorAttachment
	depth    *DepthStencilAttachment
	reads    []ResourceHandle
	writes   []ResourceHandle
	callback func(PassContext)
}

// PassBuilder fluently configures a pass before it is added to the graph.
type PassBuilder struct {
	g *Graph
	p *passRecord
}

func (b *PassBuilder) Color(slot int, att ColorAttachment) *PassBuilder {
	for len(b.p.colors) <= slot {
		b.p.colors = append(b.p.colors, ColorAttachment{})
	}
	b.p.colors[slot] = att
	b.p.writes = append(b.p.writes, att.Handle)
	return b
}

func (b *PassBuilder) Depth(att DepthStencilAttachment) *PassBuilder {
	b.p.depth = &att
	if !att.ReadOnly {
		b.p.writes = append(b.p.writes, att.Handle)
	} else {
		b.p.reads = append(b.p.reads, att.Handle)
	}
	return b
}

func (b *PassBuilder) Read(h ResourceHandle) *PassBuilder {
	b.p.reads = append(b.p.reads, h)
	return b
}

func (b *PassBuilder) Write(h ResourceHandle) *PassBuilder {
	b.p.writes = append(b.p.writes, h)
	return b
}

func (b *PassBuilder) Flags(f PassFlags) *PassBuilder {
	b.p.flags |= f
	return b
}

func (b *PassBuilder) Callback(fn func(PassContext)) *PassBuilder {
	b.p.callback = fn
	return b
}

// Graph accumulates one frame's resource/pass declarations and compiles
// them into an ordered execution plan.
type Graph struct {
	device    hal.Device
	textures  *pool.TexturePool
	buffers   *pool.BufferPool
	log       logging.Logger
	resources []resourceRecord
	passes    []passRecord

	order       []int // compiled pass order (indices into passes)
	culledCount int
}

// New constructs a Graph allocating physical resources through textures and
// buffers.
func New(device hal.Device, textures *pool.TexturePool, buffers *pool.BufferPool, log logging.Logger) *Graph {
	return &Graph{device: device, textures: textures, buffers: buffers, log: logging.OrNop(log)}
}

// BeginFrame clears all internal state; resource/pass handles from the
// previous frame become invalid.
func (g *Graph) BeginFrame() {
	g.resources = g.resources[:0]
	g.passes = g.passes[:0]
	g.order = g.order[:0]
	g.culledCount = 0
}

// CreateTexture declares a transient texture resource.
func (g *Graph) CreateTexture(name string, desc TextureResourceDesc) ResourceHandle {
	idx := len(g.resources)
	g.resources = append(g.resources, resourceRecord{name: name, kind: ResourceTexture, textureDesc: desc, firstWritePass: -1, lastUsePass: -1})
	return ResourceHandle{index: idx, kind: ResourceTexture}
}

// CreateBuffer declares a transient buffer resource.
func (g *Graph) CreateBuffer(name string, desc BufferResourceDesc) ResourceHandle {
	idx := len(g.resources)
	g.resources = append(g.resources, resourceRecord{name: name, kind: ResourceBuffer, bufferDesc: desc, firstWritePass: -1, lastUsePass: -1})
	return ResourceHandle{index: idx, kind: ResourceBuffer}
}

// ImportTexture registers an externally-owned texture view as a graph
// resource. Imported resources are never culled.
func (g *Graph) ImportTexture(name string, view hal.TextureView) ResourceHandle {
	idx := len(g.resources)
	g.resources = append(g.resources, resourceRecord{name: name, kind: ResourceImported, importedView: view, firstWritePass: -1, lastUsePass: -1})
	return ResourceHandle{index: idx, kind: ResourceImported}
}

// ImportBuffer registers an externally-owned buffer as a graph resource.
func (g *Graph) ImportBuffer(name string, buf hal.Buffer) ResourceHandle {
	idx := len(g.resources)
	g.resources = append(g.resources, resourceRecord{name: name, kind: ResourceImported, importedBuffer: buf, firstWritePass: -1, lastUsePass: -1})
	return ResourceHandle{index: idx, kind: ResourceImported}
}

// AddGraphicsPass begins declaring a graphics pass.
func (g *Graph) AddGraphicsPass(name string) *PassBuilder {
	g.passes = append(g.passes, passRecord{name: name, kind: PassGraphics})
	return &PassBuilder{g: g, p: &g.passes[len(g.passes)-1]}
}

// AddComputePass begins declaring a compute pass.
func (g *Graph) AddComputePass(name string) *PassBuilder {
	g.passes = append(g.passes, passRecord{name: name, kind: PassCompute})
	return &PassBuilder{g: g, p: &g.passes[len(g.passes)-1]}
}

// Stats reports the last compile's pass counts.
type Stats struct {
	PassCount       int
	CulledPassCount int
}

func (g *Graph) Stats() Stats {
	return Stats{PassCount: len(g.order), CulledPassCount: g.culledCount}
}

// Compile builds the dependency DAG, culls passes with no visible effect,
// and produces a stable topological execution order. Cycles, reads of a
// resource no pass writes, and physical allocation failures are returned
// wrapped as errs.GraphCompile. Resources are not aliased, so no
// descriptor-conflict check is made.
func (g *Graph) Compile() error {
	for i := range g.resources {
		g.resources[i].firstWritePass = -1
		g.resources[i].lastUsePass = -1
	}
	for pi := range g.passes {
		p := &g.passes[pi]
		for _, w := range p.writes {
			r := &g.resources[w.index]
			if r.firstWritePass == -1 {
				r.firstWritePass = pi
			}
			if pi > r.lastUsePass {
				r.lastUsePass = pi
			}
		}
		for _, rd := range p.reads {
			r := &g.resources[rd.index]
			if pi > r.lastUsePass {
				r.lastUsePass = pi
			}
		}
	}
	for pi := range g.passes {
		p := &g.passes[pi]
		for _, rd := range p.reads {
			r := &g.resources[rd.index]
			if r.firstWritePass == -1 && r.kind != ResourceImported {
				return errs.Wrap(errs.GraphCompile, "compile", fmt.Errorf("undefined resource %q read by pass %q", r.name, p.name))
			}
		}
	}

	adj := make([][]int, len(g.passes))
	indeg := make([]int, len(g.passes))
	for ri := range g.resources {
		r := &g.resources[ri]
		if r.firstWritePass < 0 {
			continue
		}
		for pi := range g.passes {
			if pi == r.firstWritePass {
				continue
			}
			if passReads(&g.passes[pi], ResourceHandle{index: ri}) {
				adj[r.firstWritePass] = append(adj[r.firstWritePass], pi)
				indeg[pi]++
			}
		}
	}

	required := make([]bool, len(g.passes))
	for pi, p := range g.passes {
		if p.flags&NeverCull != 0 {
			required[pi] = true
		}
		for _, w := range p.writes {
			if g.resources[w.index].kind == ResourceImported {
				required[pi] = true
			}
		}
	}
	var markAncestors func(pi int, visited []bool)
	markAncestors = func(pi int, visited []bool) {
		for pj, edges := range adj {
			for _, e := range edges {
				if e == pi && !visited[pj] {
					visited[pj] = true
					required[pj] = true
					markAncestors(pj, visited)
				}
			}
		}
	}
	for pi := range g.passes {
		if required[pi] {
			markAncestors(pi, make([]bool, len(g.passes)))
		}
	}

	order, err := topoSort(adj, indeg, required, len(g.passes))
	if err != nil {
		return errs.Wrap(errs.GraphCompile, "compile", err)
	}
	g.order = order
	g.culledCount = 0
	for _, r := range required {
		if !r {
			g.culledCount++
		}
	}

	for _, pi := range g.order {
		for _, h := range append(append([]ResourceHandle{}, g.passes[pi].reads...), g.passes[pi].writes...) {
			if err := g.ensurePhysical(h); err != nil {
				return errs.Wrap(errs.GraphCompile, "compile", err)
			}
		}
	}
	return nil
}

func passReads(p *passRecord, h ResourceHandle) bool {
	for _, r := range p.reads {
		if r.index == h.index {
			return true
		}
	}
	return false
}

// topoSort performs Kahn's algorithm restricted to required passes, using
// original declaration order to break ties so equal-depth passes execute in
// the order they were added.
func topoSort(adj [][]int, indeg []int, required []bool, n int) ([]int, error) {
	inDegree := make([]int, n)
	copy(inDegree, indeg)

	var queue []int
	for i := 0; i < n; i++ {
		if required[i] && inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	var order []int
	visited := make([]bool, n)
	for len(queue) > 0 {
		// pop the lowest-index ready node to keep insertion order stable
		minI := 0
		for i, v := range queue {
			if v < queue[minI] {
				minI = i
			}
		}
		pi := queue[minI]
		queue = append(queue[:minI], queue[minI+1:]...)
		visited[pi] = true
		order = append(order, pi)
		for _, next := range adj[pi] {
			if !required[next] {
				continue
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	for i := 0; i < n; i++ {
		if required[i] && !visited[i] {
			return nil, fmt.Errorf("cycle detected at pass index %d", i)
		}
	}
	return order, nil
}

func (g *Graph) ensurePhysical(h ResourceHandle) error {
	r := &g.resources[h.index]
	switch r.kind {
	case ResourceImported:
		return nil
	case ResourceTexture:
		if r.hasPhysTexture {
			return nil
		}
		th, err := g.textures.CreateTexture2D(r.textureDesc.Width, r.textureDesc.Height, r.textureDesc.Format, r.textureDesc.Usage, r.textureDesc.MipCount, r.name)
		if err != nil {
			return err
		}
		r.physTexture = th
		r.hasPhysTexture = true
		return nil
	case ResourceBuffer:
		if r.hasPhysBuffer {
			return nil
		}
		bh, err := g.buffers.CreateBuffer(r.bufferDesc.Size, r.bufferDesc.Usage, r.name)
		if err != nil {
			return err
		}
		r.physBuffer = bh
		r.hasPhysBuffer = true
		return nil
	}
	return nil
}

// Execute runs every pass in compiled order: transitions resources,
// begins/ends render or compute passes, and invokes each pass's callback.
func (g *Graph) Execute(encoder hal.CmdEncoder) error {
	for _, pi := range g.order {
		p := &g.passes[pi]
		switch p.kind {
		case PassGraphics:
			colorBindings := make([]hal.ColorAttachmentBinding, len(p.colors))
			for i, c := range p.colors {
				view, err := g.viewFor(c.Handle)
				if err != nil {
					return err
				}
				colorBindings[i] = hal.ColorAttachmentBinding{View: view, ClearColor: c.ClearColor, Load: c.LoadOp, Store: c.StoreOp}
			}
			var depthBinding *hal.DepthAttachmentBinding
			if p.depth != nil {
				view, err := g.viewFor(p.depth.Handle)
				if err != nil {
					return err
				}
				depthBinding = &hal.DepthAttachmentBinding{
					View: view, ClearDepth: p.depth.ClearDepth, ClearStencil: p.depth.ClearStencil,
					DepthLoad: p.depth.DepthLoadOp, DepthStore: p.depth.DepthStoreOp, ReadOnly: p.depth.ReadOnly,
				}
			}
			rp := encoder.BeginRenderPass(colorBindings, depthBinding)
			if p.callback != nil {
				p.callback(PassContext{Encoder: encoder, Render: rp})
			}
			rp.End()
		case PassCompute:
			cp := encoder.BeginComputePass()
			if p.callback != nil {
				p.callback(PassContext{Encoder: encoder, Compute: cp})
			}
			cp.End()
		}
	}
	return nil
}

func (g *Graph) viewFor(h ResourceHandle) (hal.TextureView, error) {
	r := &g.resources[h.index]
	if r.kind == ResourceImported {
		return r.importedView, nil
	}
	tex, ok := g.textures.GetTexture(r.physTexture)
	if !ok {
		return nil, fmt.Errorf("resource %q has no backing texture", r.name)
	}
	return tex.NewView()
}

// EndFrame performs end-of-frame bookkeeping; no-op beyond that.
func (g *Graph) EndFrame() {}
