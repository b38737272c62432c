package wgpuhal

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/clusterforge/hal"
)

func toBufferUsage(u hal.Usage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&hal.UsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&hal.UsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&hal.UsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&hal.UsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&hal.UsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if u&hal.UsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func toTextureUsage(u hal.Usage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&hal.UsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&hal.UsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&hal.UsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&hal.UsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if u&hal.UsageStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	return out
}

func toTextureFormat(f hal.PixelFormat) wgpu.TextureFormat {
	switch f {
	case hal.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case hal.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case hal.FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case hal.FormatR32Float:
		return wgpu.TextureFormatR32Float
	case hal.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case hal.FormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// Buffer adapts a wgpu.Buffer to hal.Buffer. Bytes() exposes the mapped
// range for buffers created MappedAtCreation (transient ring buffers and
// any CPU-visible uniform/vertex/index buffer); storage-only buffers return
// nil, matching hal.Buffer.Visible's contract.
type Buffer struct {
	buf     *wgpu.Buffer
	size    uint64
	visible bool
	mapped  []byte
}

var _ hal.Buffer = (*Buffer)(nil)

func (b *Buffer) Destroy()      { b.buf.Destroy(); b.buf.Release() }
func (b *Buffer) Size() uint64  { return b.size }
func (b *Buffer) Visible() bool { return b.visible }
func (b *Buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	if b.mapped == nil {
		b.mapped = b.buf.GetMappedRange(0, uint(b.size))
	}
	return b.mapped
}

// Texture adapts a wgpu.Texture to hal.Texture.
type Texture struct {
	tex     *wgpu.Texture
	w, h, d uint32
}

var _ hal.Texture = (*Texture)(nil)

func (t *Texture) Destroy()     { t.tex.Destroy(); t.tex.Release() }
func (t *Texture) Width() uint32  { return t.w }
func (t *Texture) Height() uint32 { return t.h }
func (t *Texture) Depth() uint32  { return t.d }
func (t *Texture) NewView() (hal.TextureView, error) {
	v, err := t.tex.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &TextureView{view: v}, nil
}

// TextureView adapts a wgpu.TextureView to hal.TextureView.
type TextureView struct{ view *wgpu.TextureView }

var _ hal.TextureView = (*TextureView)(nil)

func (v *TextureView) Destroy() { v.view.Release() }

// Sampler adapts a wgpu.Sampler to hal.Sampler.
type Sampler struct{ sampler *wgpu.Sampler }

var _ hal.Sampler = (*Sampler)(nil)

func (s *Sampler) Destroy() { s.sampler.Release() }

// ShaderModule adapts a wgpu.ShaderModule to hal.ShaderModule.
type ShaderModule struct{ mod *wgpu.ShaderModule }

var _ hal.ShaderModule = (*ShaderModule)(nil)

func (m *ShaderModule) Destroy() { m.mod.Release() }

// BindGroupLayout adapts a wgpu.BindGroupLayout to hal.BindGroupLayout.
type BindGroupLayout struct{ layout *wgpu.BindGroupLayout }

var _ hal.BindGroupLayout = (*BindGroupLayout)(nil)

func (l *BindGroupLayout) Destroy() { l.layout.Release() }

// BindGroup adapts a wgpu.BindGroup to hal.BindGroup.
type BindGroup struct{ bg *wgpu.BindGroup }

var _ hal.BindGroup = (*BindGroup)(nil)

func (b *BindGroup) Destroy() { b.bg.Release() }

// PipelineLayout adapts a wgpu.PipelineLayout to hal.PipelineLayout.
type PipelineLayout struct{ layout *wgpu.PipelineLayout }

var _ hal.PipelineLayout = (*PipelineLayout)(nil)

func (l *PipelineLayout) Destroy() { l.layout.Release() }

// Pipeline adapts either a wgpu.RenderPipeline or wgpu.ComputePipeline to
// hal.Pipeline; only one of the two fields is ever set.
type Pipeline struct {
	pipeline  *wgpu.RenderPipeline
	computePl *wgpu.ComputePipeline
}

var _ hal.Pipeline = (*Pipeline)(nil)

func (p *Pipeline) Destroy() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.computePl != nil {
		p.computePl.Release()
	}
}

// QuerySet adapts a wgpu.QuerySet to hal.QuerySet.
type QuerySet struct{ qs *wgpu.QuerySet }

var _ hal.QuerySet = (*QuerySet)(nil)

func (q *QuerySet) Destroy() { q.qs.Release() }
