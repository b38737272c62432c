package world

import "testing"

func TestRenderWorld_StaticMeshHandleReuseBumpsGeneration(t *testing.T) {
	w := New()
	h1 := w.CreateStaticMesh(StaticMeshProxy{Layer: 1})
	w.DestroyStaticMesh(h1)
	h2 := w.CreateStaticMesh(StaticMeshProxy{Layer: 2})

	if h2.Index != h1.Index {
		t.Fatalf("expected index reuse, got h1=%d h2=%d", h1.Index, h2.Index)
	}
	if h2.Generation != h1.Generation+1 {
		t.Errorf("expected generation+1, got h1.gen=%d h2.gen=%d", h1.Generation, h2.Generation)
	}
	if _, ok := w.GetStaticMesh(h1); ok {
		t.Errorf("old handle must no longer resolve")
	}
}

func TestRenderWorld_MainCamera_PrefersIsMain(t *testing.T) {
	w := New()
	w.CreateCamera(CameraProxy{Enabled: true, Priority: 10})
	wantHandle := w.CreateCamera(CameraProxy{Enabled: true, IsMain: true, Priority: 0})
	w.CreateCamera(CameraProxy{Enabled: true, IsMain: true, Priority: 5})

	h, _, ok := w.MainCamera()
	if !ok {
		t.Fatalf("expected a main camera")
	}
	if h != wantHandle {
		t.Errorf("expected lowest-index is_main camera %v, got %v", wantHandle, h)
	}
}

func TestRenderWorld_MainCamera_FallsBackToPriority(t *testing.T) {
	w := New()
	w.CreateCamera(CameraProxy{Enabled: true, Priority: 1})
	want := w.CreateCamera(CameraProxy{Enabled: true, Priority: 9})
	w.CreateCamera(CameraProxy{Enabled: false, Priority: 100})

	h, _, ok := w.MainCamera()
	if !ok || h != want {
		t.Errorf("expected highest-priority enabled camera %v, got %v (ok=%v)", want, h, ok)
	}
}

func TestRenderWorld_MainCamera_NoneEnabled(t *testing.T) {
	w := New()
	w.CreateCamera(CameraProxy{Enabled: false})
	if _, _, ok := w.MainCamera(); ok {
		t.Errorf("expected no main camera when none enabled")
	}
}

func TestCameraProxy_ViewProjCache(t *testing.T) {
	c := NewCameraProxy()
	c.ViewportWidth, c.ViewportHeight = 1920, 1080
	v1 := c.ViewMatrix()
	v2 := c.ViewMatrix()
	if v1 != v2 {
		t.Errorf("expected cached view matrix to be stable across calls")
	}

	c.Position[0] += 1
	c.MarkDirty()
	v3 := c.ViewMatrix()
	if v3 == v1 {
		t.Errorf("expected view matrix to change after MarkDirty + mutation")
	}
}
