// Package hal declares the hardware-abstraction-layer contracts the render
// core consumes. None of this is implemented here: the core is
// non-generic over any concrete graphics API, and accepts one vtable
// indirection for these HAL objects in exchange for never importing a
// concrete graphics backend directly. A concrete adapter lives in
// hal/wgpuhal, satisfying these interfaces over cogentcore/webgpu as a
// worked example; the core packages (pool, transient, mesh, rendergraph,
// renderer, ...) depend only on this package.
//
// The interface shapes mirror a GPU/CmdBuffer style device contract: a
// Device creates resources and command encoders, a Queue submits and
// uploads, encoders record draw/compute/copy commands.
package hal

import "time"

// Destroyer is implemented by every HAL object that owns resources outside
// Go's GC and so must be torn down explicitly.
type Destroyer interface {
	Destroy()
}

// Release satisfies pool.GPUResource for any Destroyer.
func (d destroyerAdapter) Release() { d.Destroyer.Destroy() }

type destroyerAdapter struct{ Destroyer }

// AsGPUResource adapts any Destroyer to pool.GPUResource without pool
// importing hal (hal must not depend on pool; pool must not depend on hal).
func AsGPUResource(d Destroyer) interface{ Release() } {
	return destroyerAdapter{d}
}

// Buffer is a fixed-size GPU buffer.
type Buffer interface {
	Destroyer
	Size() uint64

	// Visible reports whether the buffer is host-mapped. Ring buffers
	// backing transient.Pool require a visible buffer.
	Visible() bool

	// Bytes returns the buffer's mapped storage, or nil if Visible() is
	// false. Valid for the buffer's lifetime; writes are visible to the
	// GPU only after the owning command buffer is submitted.
	Bytes() []byte
}

// TextureView is a typed view into a Texture's storage.
type TextureView interface {
	Destroyer
}

// Texture is a GPU image resource.
type Texture interface {
	Destroyer
	NewView() (TextureView, error)
	Width() uint32
	Height() uint32
	Depth() uint32
}

// Sampler describes texture sampling state.
type Sampler interface {
	Destroyer
}

// ShaderModule is compiled/validated shader code.
type ShaderModule interface {
	Destroyer
}

// BindGroupLayout describes the shape of a BindGroup.
type BindGroupLayout interface {
	Destroyer
}

// BindGroup is a concrete set of resource bindings.
type BindGroup interface {
	Destroyer
}

// PipelineLayout composes BindGroupLayouts for a Pipeline.
type PipelineLayout interface {
	Destroyer
}

// Pipeline is either a render or compute pipeline.
type Pipeline interface {
	Destroyer
}

// QuerySet is a set of GPU timestamp/occlusion queries.
type QuerySet interface {
	Destroyer
}

// Swapchain hands out presentable textures.
type Swapchain interface {
	Destroyer
	Acquire(timeout time.Duration) (Texture, error)
}

// Usage is a bitmask of valid resource uses.
type Usage uint32

const (
	UsageVertex Usage = 1 << iota
	UsageIndex
	UsageUniform
	UsageStorage
	UsageCopySrc
	UsageCopyDst
	UsageRenderAttachment
	UsageSampled
)

// PixelFormat names a texture's pixel layout.
type PixelFormat int

const (
	FormatRGBA8Unorm PixelFormat = iota
	FormatRGBA16Float
	FormatRGBA32Float
	FormatR32Float
	FormatDepth32Float
	FormatDepth24PlusStencil8
)

// Layout is the type of an image layout/barrier state.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutCopySrc
	LayoutCopyDst
	LayoutPresent
)

// Fence is a GPU/CPU synchronization primitive.
type Fence interface {
	// Wait blocks until the fence is signaled or timeout elapses, returning
	// false on timeout.
	Wait(timeout time.Duration) bool
	Reset()
	IsSignaled() bool
}

// CmdBuffer is a finished, submittable recording.
type CmdBuffer interface {
	Destroyer
}

// Queue submits command buffers and uploads data.
type Queue interface {
	Submit(buffers []CmdBuffer) Fence
	SubmitWithSwapchain(buffers []CmdBuffer, sc Swapchain) Fence
	WriteBuffer(buf Buffer, offset uint64, data []byte)
	WriteTexture(tex Texture, data []byte, bytesPerRow, rowsPerImage uint32)
	WaitIdle()
}

// ColorTarget describes one color attachment format/usage pairing needed to
// build a render pipeline.
type ColorTarget struct {
	Format PixelFormat
}

// RenderPipelineDescriptor is the minimal set of state needed to create a
// render pipeline; shader compilation itself is out of scope.
type RenderPipelineDescriptor struct {
	Label          string
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	ColorTargets   []ColorTarget
	DepthFormat    PixelFormat
	HasDepth       bool
	Layout         PipelineLayout
}

// ComputePipelineDescriptor is the minimal state to create a compute
// pipeline.
type ComputePipelineDescriptor struct {
	Label  string
	Shader ShaderModule
	Layout PipelineLayout
}

// Device creates every HAL object kind and reports capability flags.
type Device interface {
	CreateBuffer(size uint64, usage Usage, label string) (Buffer, error)
	CreateTexture(w, h, d uint32, format PixelFormat, mipCount uint32, usage Usage, label string) (Texture, error)
	CreateSampler() (Sampler, error)
	CreateShaderModule(code []byte, label string) (ShaderModule, error)
	CreateBindGroupLayout() (BindGroupLayout, error)
	CreateBindGroup(layout BindGroupLayout) (BindGroup, error)
	CreatePipelineLayout(layouts []BindGroupLayout) (PipelineLayout, error)
	CreateRenderPipeline(desc RenderPipelineDescriptor) (Pipeline, error)
	CreateComputePipeline(desc ComputePipelineDescriptor) (Pipeline, error)
	CreateQuerySet(count uint32) (QuerySet, error)
	CreateSwapchain(width, height uint32, format PixelFormat) (Swapchain, error)
	NewCmdEncoder() CmdEncoder
	WaitIdle()

	// FlipProjectionRequired reports whether the backend's NDC convention
	// requires the core to negate the projection matrix's m22 element
	// before upload.
	FlipProjectionRequired() bool
}

// Viewport and Scissor mirror the HAL's rasterizer state setters.
type Viewport struct{ X, Y, Width, Height, MinDepth, MaxDepth float32 }
type Scissor struct{ X, Y, Width, Height int32 }

// ColorAttachmentBinding is one color attachment of a render pass as seen
// by the HAL; load/store ops are resolved by the render graph.
type ColorAttachmentBinding struct {
	View       TextureView
	ClearColor [4]float32
	Load       LoadOp
	Store      StoreOp
}

// DepthAttachmentBinding is the depth/stencil attachment of a render pass.
type DepthAttachmentBinding struct {
	View         TextureView
	ClearDepth   float32
	ClearStencil uint32
	DepthLoad    LoadOp
	DepthStore   StoreOp
	ReadOnly     bool
}

type LoadOp int

const (
	LoadClear LoadOp = iota
	LoadLoad
	LoadDontCare
)

type StoreOp int

const (
	StoreKeep StoreOp = iota
	StoreDiscard
)

// RenderPassEncoder records draw commands within a single render pass.
type RenderPassEncoder interface {
	SetPipeline(p Pipeline)
	SetBindGroup(index uint32, bg BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer, offset uint64)
	SetIndexBuffer(buf Buffer, offset uint64, is32Bit bool)
	SetViewport(vp Viewport)
	SetScissor(s Scissor)
	SetBlendConstant(r, g, b, a float32)
	SetStencilReference(ref uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
}

// ComputePassEncoder records dispatch commands within a single compute
// pass.
type ComputePassEncoder interface {
	SetPipeline(p Pipeline)
	SetBindGroup(index uint32, bg BindGroup)
	Dispatch(groupsX, groupsY, groupsZ uint32)
	End()
}

// CmdEncoder records a sequence of passes/copies and finishes into a
// CmdBuffer for submission.
type CmdEncoder interface {
	BeginRenderPass(color []ColorAttachmentBinding, depth *DepthAttachmentBinding) RenderPassEncoder
	BeginComputePass() ComputePassEncoder
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64)
	CopyBufferToTexture(src Buffer, srcOffset uint64, dst Texture, bytesPerRow, rowsPerImage uint32)
	CopyTextureToTexture(src, dst Texture)
	TextureBarrier(tex Texture, before, after Layout)
	GenerateMipmaps(tex Texture)
	Finish() CmdBuffer
}
