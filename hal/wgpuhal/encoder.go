package wgpuhal

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/clusterforge/hal"
)

func toLoadOp(op hal.LoadOp) wgpu.LoadOp {
	switch op {
	case hal.LoadClear:
		return wgpu.LoadOpClear
	case hal.LoadLoad:
		return wgpu.LoadOpLoad
	default:
		return wgpu.LoadOpClear
	}
}

func toStoreOp(op hal.StoreOp) wgpu.StoreOp {
	if op == hal.StoreDiscard {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}

// CmdEncoder adapts a wgpu.CommandEncoder to hal.CmdEncoder.
type CmdEncoder struct{ enc *wgpu.CommandEncoder }

var _ hal.CmdEncoder = (*CmdEncoder)(nil)

func (e *CmdEncoder) BeginRenderPass(color []hal.ColorAttachmentBinding, depth *hal.DepthAttachmentBinding) hal.RenderPassEncoder {
	colorAtt := make([]wgpu.RenderPassColorAttachment, len(color))
	for i, c := range color {
		colorAtt[i] = wgpu.RenderPassColorAttachment{
			View:       c.View.(*TextureView).view,
			LoadOp:     toLoadOp(c.Load),
			StoreOp:    toStoreOp(c.Store),
			ClearValue: wgpu.Color{R: float64(c.ClearColor[0]), G: float64(c.ClearColor[1]), B: float64(c.ClearColor[2]), A: float64(c.ClearColor[3])},
		}
	}
	desc := &wgpu.RenderPassDescriptor{ColorAttachments: colorAtt}
	if depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              depth.View.(*TextureView).view,
			DepthLoadOp:       toLoadOp(depth.DepthLoad),
			DepthStoreOp:      toStoreOp(depth.DepthStore),
			DepthClearValue:   depth.ClearDepth,
			DepthReadOnly:     depth.ReadOnly,
			StencilLoadOp:     wgpu.LoadOpClear,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: depth.ClearStencil,
		}
	}
	return &RenderPassEncoder{pass: e.enc.BeginRenderPass(desc)}
}

func (e *CmdEncoder) BeginComputePass() hal.ComputePassEncoder {
	return &ComputePassEncoder{pass: e.enc.BeginComputePass(nil)}
}

func (e *CmdEncoder) CopyBufferToBuffer(src hal.Buffer, srcOffset uint64, dst hal.Buffer, dstOffset uint64, size uint64) {
	e.enc.CopyBufferToBuffer(src.(*Buffer).buf, srcOffset, dst.(*Buffer).buf, dstOffset, size)
}

func (e *CmdEncoder) CopyBufferToTexture(src hal.Buffer, srcOffset uint64, dst hal.Texture, bytesPerRow, rowsPerImage uint32) {
	dstTex := dst.(*Texture)
	e.enc.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{
			Layout: wgpu.TextureDataLayout{Offset: srcOffset, BytesPerRow: bytesPerRow, RowsPerImage: rowsPerImage},
			Buffer: src.(*Buffer).buf,
		},
		&wgpu.ImageCopyTexture{Texture: dstTex.tex},
		&wgpu.Extent3D{Width: dstTex.w, Height: dstTex.h, DepthOrArrayLayers: dstTex.d},
	)
}

func (e *CmdEncoder) CopyTextureToTexture(src, dst hal.Texture) {
	srcTex, dstTex := src.(*Texture), dst.(*Texture)
	e.enc.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: srcTex.tex},
		&wgpu.ImageCopyTexture{Texture: dstTex.tex},
		&wgpu.Extent3D{Width: srcTex.w, Height: srcTex.h, DepthOrArrayLayers: srcTex.d},
	)
}

// TextureBarrier is a no-op: wgpu infers resource transitions from usage at
// submission time and exposes no explicit barrier command.
func (e *CmdEncoder) TextureBarrier(tex hal.Texture, before, after hal.Layout) {}

// GenerateMipmaps is unimplemented: wgpu has no built-in mip generation
// pass, and nothing in this core yet requests mipmapped render targets.
func (e *CmdEncoder) GenerateMipmaps(tex hal.Texture) {}

func (e *CmdEncoder) Finish() hal.CmdBuffer {
	return &CmdBuffer{buf: e.enc.Finish(nil)}
}

// RenderPassEncoder adapts a wgpu.RenderPassEncoder to hal.RenderPassEncoder.
type RenderPassEncoder struct{ pass *wgpu.RenderPassEncoder }

var _ hal.RenderPassEncoder = (*RenderPassEncoder)(nil)

func (p *RenderPassEncoder) SetPipeline(pl hal.Pipeline) {
	p.pass.SetPipeline(pl.(*Pipeline).pipeline)
}
func (p *RenderPassEncoder) SetBindGroup(index uint32, bg hal.BindGroup) {
	p.pass.SetBindGroup(index, bg.(*BindGroup).bg, nil)
}
func (p *RenderPassEncoder) SetVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	b := buf.(*Buffer)
	p.pass.SetVertexBuffer(slot, b.buf, offset, b.size-offset)
}
func (p *RenderPassEncoder) SetIndexBuffer(buf hal.Buffer, offset uint64, is32Bit bool) {
	b := buf.(*Buffer)
	format := wgpu.IndexFormatUint16
	if is32Bit {
		format = wgpu.IndexFormatUint32
	}
	p.pass.SetIndexBuffer(b.buf, format, offset, b.size-offset)
}
func (p *RenderPassEncoder) SetViewport(vp hal.Viewport) {
	p.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
}
func (p *RenderPassEncoder) SetScissor(s hal.Scissor) {
	p.pass.SetScissorRect(uint32(s.X), uint32(s.Y), uint32(s.Width), uint32(s.Height))
}
func (p *RenderPassEncoder) SetBlendConstant(r, g, b, a float32) {
	p.pass.SetBlendConstant(&wgpu.Color{R: float64(r), G: float64(g), B: float64(b), A: float64(a)})
}
func (p *RenderPassEncoder) SetStencilReference(ref uint32) { p.pass.SetStencilReference(ref) }
func (p *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}
func (p *RenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}
func (p *RenderPassEncoder) End() { p.pass.End() }

// ComputePassEncoder adapts a wgpu.ComputePassEncoder to
// hal.ComputePassEncoder.
type ComputePassEncoder struct{ pass *wgpu.ComputePassEncoder }

var _ hal.ComputePassEncoder = (*ComputePassEncoder)(nil)

func (p *ComputePassEncoder) SetPipeline(pl hal.Pipeline) {
	p.pass.SetPipeline(pl.(*Pipeline).computePl)
}
func (p *ComputePassEncoder) SetBindGroup(index uint32, bg hal.BindGroup) {
	p.pass.SetBindGroup(index, bg.(*BindGroup).bg, nil)
}
func (p *ComputePassEncoder) Dispatch(groupsX, groupsY, groupsZ uint32) {
	p.pass.DispatchWorkgroups(groupsX, groupsY, groupsZ)
}
func (p *ComputePassEncoder) End() { p.pass.End() }

// CmdBuffer adapts a wgpu.CommandBuffer to hal.CmdBuffer.
type CmdBuffer struct{ buf *wgpu.CommandBuffer }

var _ hal.CmdBuffer = (*CmdBuffer)(nil)

func (b *CmdBuffer) Destroy() { b.buf.Release() }
