package wgpuhal

import (
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/clusterforge/errs"
	"github.com/gekko3d/clusterforge/hal"
)

// Swapchain adapts the surface's current-texture acquire/present cycle to
// hal.Swapchain. wgpu has no separate swapchain object; the surface itself
// hands out the next presentable texture and is later told to Present.
type Swapchain struct {
	surface  *wgpu.Surface
	width    uint32
	height   uint32
	acquired *wgpu.Texture
}

var _ hal.Swapchain = (*Swapchain)(nil)

// Acquire ignores timeout: wgpu's GetCurrentTexture call is synchronous and
// backend-internal, with no timeout parameter to thread through. The
// returned Texture's dimensions come from the surface configuration rather
// than a query on the acquired texture, since the two always agree and the
// configuration is already in hand.
func (s *Swapchain) Acquire(timeout time.Duration) (hal.Texture, error) {
	surfaceTex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, errs.Wrap(errs.SwapchainLost, "GetCurrentTexture", err)
	}
	s.acquired = surfaceTex.Texture
	return &Texture{tex: s.acquired, w: s.width, h: s.height, d: 1}, nil
}

func (s *Swapchain) present() {
	if s.acquired != nil {
		s.surface.Present()
		s.acquired = nil
	}
}

func (s *Swapchain) Destroy() {}
