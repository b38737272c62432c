// Package wgpuhal is the worked-example hal.Device/hal.Queue adapter over
// cogentcore/webgpu, the same wgpu binding Gekko3D-gekko's own
// gpu_operations.go drives directly. Every exported type here wraps exactly
// one wgpu handle and implements the matching hal interface; nothing above
// this package imports cogentcore/webgpu.
package wgpuhal

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/clusterforge/errs"
	"github.com/gekko3d/clusterforge/hal"
)

// Window owns the GLFW window a Device's surface is bound to. Construction
// mirrors gpu_operations.go's createWindowState: lock the OS thread before
// touching GLFW, request a no-API window since wgpu owns the swapchain.
type Window struct {
	win           *glfw.Window
	Width, Height int
}

// NewWindow creates a GLFW window sized width x height titled title.
func NewWindow(width, height int, title string) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, errs.Wrap(errs.Initialization, "glfw.Init", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "glfw.CreateWindow", err)
	}
	return &Window{win: win, Width: width, Height: height}, nil
}

// ShouldClose reports whether the OS asked the window to close.
func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// PollEvents pumps the GLFW event queue.
func (w *Window) PollEvents() { glfw.PollEvents() }

// Destroy releases the underlying GLFW window.
func (w *Window) Destroy() { w.win.Destroy() }

// Device adapts a wgpu.Device + wgpu.Surface pair to hal.Device. One Device
// owns exactly one presentation surface, matching gpu_operations.go's
// GpuState (surface+adapter+device+queue+surfaceConfig all created together
// off one window).
type Device struct {
	instance      *wgpu.Instance
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *Queue
	surfaceConfig *wgpu.SurfaceConfiguration
}

var _ hal.Device = (*Device)(nil)

// New creates a Device bound to window's surface, requesting a
// high-performance adapter and configuring the swapchain for vsync'd
// presentation, following gpu_operations.go's createGpuState sequence.
func New(window *Window) (*Device, error) {
	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window.win))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "RequestAdapter", err)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "clusterforge-device",
		RequiredFeatures: nil,
		RequiredLimits:   nil,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "RequestDevice", err)
	}
	queue := device.GetQueue()

	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(window.Width),
		Height:      uint32(window.Height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &Device{
		instance:      instance,
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         &Queue{queue: queue},
		surfaceConfig: &surfaceConfig,
	}, nil
}

// Queue returns the hal.Queue this device submits through.
func (d *Device) Queue() *Queue { return d.queue }

// Destroy releases the surface, adapter, device and instance, in reverse
// creation order.
func (d *Device) Destroy() {
	d.surface.Unconfigure()
	d.device.Release()
	d.adapter.Release()
	d.surface.Release()
	d.instance.Release()
}

func (d *Device) CreateBuffer(size uint64, usage hal.Usage, label string) (hal.Buffer, error) {
	mapped := usage&hal.UsageUniform != 0 || usage&hal.UsageVertex != 0 || usage&hal.UsageIndex != 0
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            toBufferUsage(usage),
		MappedAtCreation: mapped,
	})
	if err != nil {
		return nil, errs.Wrap(errs.OutOfMemory, "CreateBuffer", err)
	}
	return &Buffer{buf: buf, size: size, visible: mapped}, nil
}

func (d *Device) CreateTexture(w, h, depth uint32, format hal.PixelFormat, mipCount uint32, usage hal.Usage, label string) (hal.Texture, error) {
	if mipCount == 0 {
		mipCount = 1
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: depth},
		MipLevelCount: mipCount,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        toTextureFormat(format),
		Usage:         toTextureUsage(usage),
	})
	if err != nil {
		return nil, errs.Wrap(errs.OutOfMemory, "CreateTexture", err)
	}
	return &Texture{tex: tex, w: w, h: h, d: depth}, nil
}

func (d *Device) CreateSampler() (hal.Sampler, error) {
	s, err := d.device.CreateSampler(nil)
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateSampler", err)
	}
	return &Sampler{sampler: s}, nil
}

func (d *Device) CreateShaderModule(code []byte, label string) (hal.ShaderModule, error) {
	mod, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(code)},
	})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateShaderModule", err)
	}
	return &ShaderModule{mod: mod}, nil
}

func (d *Device) CreateBindGroupLayout() (hal.BindGroupLayout, error) {
	l, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateBindGroupLayout", err)
	}
	return &BindGroupLayout{layout: l}, nil
}

func (d *Device) CreateBindGroup(layout hal.BindGroupLayout) (hal.BindGroup, error) {
	l := layout.(*BindGroupLayout)
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{Layout: l.layout})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateBindGroup", err)
	}
	return &BindGroup{bg: bg}, nil
}

func (d *Device) CreatePipelineLayout(layouts []hal.BindGroupLayout) (hal.PipelineLayout, error) {
	native := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, l := range layouts {
		native[i] = l.(*BindGroupLayout).layout
	}
	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{BindGroupLayouts: native})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreatePipelineLayout", err)
	}
	return &PipelineLayout{layout: pl}, nil
}

func (d *Device) CreateRenderPipeline(desc hal.RenderPipelineDescriptor) (hal.Pipeline, error) {
	vs := desc.VertexShader.(*ShaderModule)
	fs := desc.FragmentShader.(*ShaderModule)

	targets := make([]wgpu.ColorTargetState, len(desc.ColorTargets))
	for i, ct := range desc.ColorTargets {
		targets[i] = wgpu.ColorTargetState{Format: toTextureFormat(ct.Format), WriteMask: wgpu.ColorWriteMaskAll}
	}

	rpDesc := &wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     vs.mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.mod,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	}
	if desc.HasDepth {
		rpDesc.DepthStencil = &wgpu.DepthStencilState{
			Format:            toTextureFormat(desc.DepthFormat),
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
		}
	}
	if desc.Layout != nil {
		rpDesc.Layout = desc.Layout.(*PipelineLayout).layout
	}

	p, err := d.device.CreateRenderPipeline(rpDesc)
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateRenderPipeline", err)
	}
	return &Pipeline{pipeline: p}, nil
}

func (d *Device) CreateComputePipeline(desc hal.ComputePipelineDescriptor) (hal.Pipeline, error) {
	sm := desc.Shader.(*ShaderModule)
	cpDesc := &wgpu.ComputePipelineDescriptor{
		Label:   desc.Label,
		Compute: wgpu.ProgrammableStageDescriptor{Module: sm.mod, EntryPoint: "cs_main"},
	}
	if desc.Layout != nil {
		cpDesc.Layout = desc.Layout.(*PipelineLayout).layout
	}
	p, err := d.device.CreateComputePipeline(cpDesc)
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateComputePipeline", err)
	}
	return &Pipeline{computePl: p}, nil
}

func (d *Device) CreateQuerySet(count uint32) (hal.QuerySet, error) {
	qs, err := d.device.CreateQuerySet(&wgpu.QuerySetDescriptor{Type: wgpu.QueryTypeTimestamp, Count: count})
	if err != nil {
		return nil, errs.Wrap(errs.Initialization, "CreateQuerySet", err)
	}
	return &QuerySet{qs: qs}, nil
}

func (d *Device) CreateSwapchain(width, height uint32, format hal.PixelFormat) (hal.Swapchain, error) {
	d.surfaceConfig.Width = width
	d.surfaceConfig.Height = height
	d.surfaceConfig.Format = toTextureFormat(format)
	d.surface.Configure(d.adapter, d.device, d.surfaceConfig)
	return &Swapchain{surface: d.surface, width: width, height: height}, nil
}

func (d *Device) NewCmdEncoder() hal.CmdEncoder {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "clusterforge-encoder"})
	if err != nil {
		panic(errs.Wrap(errs.Initialization, "CreateCommandEncoder", err))
	}
	return &CmdEncoder{enc: enc}
}

func (d *Device) WaitIdle() { d.queue.queue.Submit() }

// FlipProjectionRequired is false: wgpu's NDC convention already matches
// the core's column-major, Y-up assumption (unlike Vulkan's flipped Y).
func (d *Device) FlipProjectionRequired() bool { return false }
