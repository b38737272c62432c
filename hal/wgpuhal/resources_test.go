package wgpuhal

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/clusterforge/hal"
)

func TestToBufferUsage_CombinesFlags(t *testing.T) {
	got := toBufferUsage(hal.UsageVertex | hal.UsageCopyDst)
	want := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if got != want {
		t.Errorf("toBufferUsage() = %v, want %v", got, want)
	}
}

func TestToTextureUsage_CombinesFlags(t *testing.T) {
	got := toTextureUsage(hal.UsageSampled | hal.UsageRenderAttachment)
	want := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment
	if got != want {
		t.Errorf("toTextureUsage() = %v, want %v", got, want)
	}
}

func TestToTextureFormat_RoundTripsKnownFormats(t *testing.T) {
	cases := map[hal.PixelFormat]wgpu.TextureFormat{
		hal.FormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
		hal.FormatDepth32Float:        wgpu.TextureFormatDepth32Float,
		hal.FormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	}
	for in, want := range cases {
		if got := toTextureFormat(in); got != want {
			t.Errorf("toTextureFormat(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestToLoadStoreOp(t *testing.T) {
	if toLoadOp(hal.LoadClear) != wgpu.LoadOpClear {
		t.Errorf("expected LoadClear to map to wgpu.LoadOpClear")
	}
	if toLoadOp(hal.LoadLoad) != wgpu.LoadOpLoad {
		t.Errorf("expected LoadLoad to map to wgpu.LoadOpLoad")
	}
	if toStoreOp(hal.StoreDiscard) != wgpu.StoreOpDiscard {
		t.Errorf("expected StoreDiscard to map to wgpu.StoreOpDiscard")
	}
	if toStoreOp(hal.StoreKeep) != wgpu.StoreOpStore {
		t.Errorf("expected StoreKeep to map to wgpu.StoreOpStore")
	}
}
