// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/present"
)

// fakeHALDevice is a test double for the HAL calls the device makes.
type fakeHALDevice struct {
	textures int
	views    int
}

//nolint:unparam // Mirrors hal.Device.
func (d *fakeHALDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.textures++
	return &fakeTexture{width: desc.Size.Width, height: desc.Size.Height}, nil
}

func (d *fakeHALDevice) DestroyTexture(hal.Texture) { d.textures-- }

func (d *fakeHALDevice) CreateTextureView(t hal.Texture, _ *hal.TextureViewDescriptor) (hal.TextureView, error) {
	d.views++
	return &fakeTextureView{texture: t}, nil
}

func (d *fakeHALDevice) DestroyTextureView(hal.TextureView) { d.views-- }

// fakeQueue completes submissions at once unless hung. A sync queue
// returns index 0 like a HAL queue with nothing to execute.
type fakeQueue struct {
	mu        sync.Mutex
	index     uint64
	completed uint64
	hung      bool
	sync      bool
	writeErr  error
	uploads   [][]byte
}

func (q *fakeQueue) Submit([]hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sync {
		return 0, nil
	}
	q.index++
	if !q.hung {
		q.completed = q.index
	}
	return q.index, nil
}

func (q *fakeQueue) PollCompleted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completed
}

func (q *fakeQueue) WriteTexture(_ *hal.ImageCopyTexture, data []byte, _ *hal.ImageDataLayout, _ *hal.Extent3D) error {
	if q.writeErr != nil {
		return q.writeErr
	}
	q.uploads = append(q.uploads, append([]byte(nil), data...))
	return nil
}

// release completes every submission.
func (q *fakeQueue) release() {
	q.mu.Lock()
	q.hung = false
	q.completed = q.index
	q.mu.Unlock()
}

type fakeTexture struct {
	width, height uint32
}

func (t *fakeTexture) Destroy()                            {}
func (t *fakeTexture) NativeHandle() uintptr               { return 0 }
func (t *fakeTexture) CurrentUsage() gputypes.TextureUsage { return 0 }
func (t *fakeTexture) AddPendingRef()                      {}
func (t *fakeTexture) DecPendingRef()                      {}

type fakeTextureView struct {
	texture hal.Texture
}

func (v *fakeTextureView) Destroy()              {}
func (v *fakeTextureView) NativeHandle() uintptr { return 0 }

func newTestDevice(t *testing.T, comp Compositor, opts ...Option) (*Device, *fakeHALDevice, *fakeQueue) {
	t.Helper()
	hd := &fakeHALDevice{}
	q := &fakeQueue{}
	return newDevice(hd, q, comp, backend.Target{}, opts...), hd, q
}

func TestNewRejectsProviders(t *testing.T) {
	comp := CompositorFunc(func(Presentation) error { return nil })
	tests := []struct {
		name     string
		provider any
		comp     Compositor
		want     error
	}{
		{"nil provider", nil, comp, ErrNilProvider},
		{"nil compositor", struct{}{}, nil, ErrNilCompositor},
		{"no hal", struct{}{}, comp, ErrNoHAL},
		{"wrong hal types", badProvider{}, comp, ErrNoHAL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.provider, tt.comp, backend.Target{}); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromProviderNil(t *testing.T) {
	comp := CompositorFunc(func(Presentation) error { return nil })
	if _, err := FromProvider(nil, comp, backend.Target{}); !errors.Is(err, ErrNilProvider) {
		t.Errorf("FromProvider(nil) error = %v, want ErrNilProvider", err)
	}
}

type badProvider struct{}

func (badProvider) HalDevice() any { return 1 }
func (badProvider) HalQueue() any  { return 2 }

func TestCapabilities(t *testing.T) {
	d, _, _ := newTestDevice(t, CompositorFunc(func(Presentation) error { return nil }))
	caps, err := d.Capabilities()
	if err != nil {
		t.Fatal(err)
	}
	if len(caps.Formats) != 1 || caps.Formats[0] != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Formats = %v, want [BGRA8Unorm]", caps.Formats)
	}
}

// TestEngineOnNativeDevice runs frames through the engine and checks what
// reaches the queue and the compositor.
func TestEngineOnNativeDevice(t *testing.T) {
	var presented []Presentation
	d, hd, q := newTestDevice(t, CompositorFunc(func(p Presentation) error {
		presented = append(presented, p)
		return nil
	}))

	geom := geometry.NewState(geometry.Size{Width: 2, Height: 2})
	eng := present.NewEngine(geom, present.WithClearColor(gg.RGB(1, 0, 0)))
	if err := eng.Attach(d); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	for i := 0; i < 4; i++ {
		if out, err := eng.Render(nil); err != nil || out != present.Presented {
			t.Fatalf("Render() #%d = %v, %v", i, out, err)
		}
	}

	if len(presented) != 4 || len(q.uploads) != 4 {
		t.Fatalf("presented %d, uploaded %d; want 4 each", len(presented), len(q.uploads))
	}
	if presented[0].Index != 0 || presented[1].Index != 1 || presented[3].Index != 0 {
		t.Errorf("indices = %d %d %d %d, want round robin over 3 images",
			presented[0].Index, presented[1].Index, presented[2].Index, presented[3].Index)
	}
	if presented[0].View == nil || presented[0].Texture == nil {
		t.Error("presentation without texture or view")
	}
	if got := q.uploads[0][:4]; got[0] != 0 || got[2] != 255 || got[3] != 255 {
		t.Errorf("uploaded pixel = %v, want BGRA red", got)
	}

	if err := eng.Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if hd.textures != 0 || hd.views != 0 {
		t.Errorf("leaked %d textures and %d views", hd.textures, hd.views)
	}
}

func TestCompositorOutOfDate(t *testing.T) {
	stale := true
	d, _, _ := newTestDevice(t, CompositorFunc(func(Presentation) error {
		if stale {
			stale = false
			return present.ErrOutOfDate
		}
		return nil
	}))

	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))
	if err := eng.Attach(d); err != nil {
		t.Fatal(err)
	}
	defer eng.Detach()

	want := []present.Outcome{present.Skipped, present.Recreated, present.Presented}
	for i, w := range want {
		out, err := eng.Render(nil)
		if err != nil {
			t.Fatalf("Render() #%d error = %v", i, err)
		}
		if out != w {
			t.Errorf("Render() #%d = %v, want %v", i, out, w)
		}
	}
}

func TestHungQueueLosesDevice(t *testing.T) {
	d, _, q := newTestDevice(t, CompositorFunc(func(Presentation) error { return nil }))
	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}),
		present.WithImageCount(2), present.WithFenceTimeout(time.Millisecond))
	if err := eng.Attach(d); err != nil {
		t.Fatal(err)
	}
	q.mu.Lock()
	q.hung = true
	q.mu.Unlock()

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		_, err = eng.Render(nil)
	}
	if !errors.Is(err, present.ErrDeviceLost) {
		t.Errorf("Render() error = %v, want ErrDeviceLost", err)
	}
	q.release()
	if err := eng.Detach(); err != nil {
		t.Errorf("Detach() error = %v", err)
	}
}

func TestWaitIdleUnboundedByDefault(t *testing.T) {
	d, _, q := newTestDevice(t, CompositorFunc(func(Presentation) error { return nil }))
	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))
	if err := eng.Attach(d); err != nil {
		t.Fatal(err)
	}
	q.mu.Lock()
	q.hung = true
	q.mu.Unlock()
	if out, err := eng.Render(nil); err != nil || out != present.Presented {
		t.Fatalf("Render() = %v, %v, want Presented", out, err)
	}

	done := make(chan error, 1)
	go func() { done <- d.WaitIdle() }()
	select {
	case err := <-done:
		t.Fatalf("WaitIdle() returned %v while work is pending", err)
	case <-time.After(20 * time.Millisecond):
	}
	q.release()
	if err := <-done; err != nil {
		t.Errorf("WaitIdle() error = %v", err)
	}
	if err := eng.Detach(); err != nil {
		t.Errorf("Detach() error = %v", err)
	}
}

func TestWaitIdleTimeout(t *testing.T) {
	d, _, q := newTestDevice(t, CompositorFunc(func(Presentation) error { return nil }),
		WithIdleTimeout(time.Millisecond))
	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))
	if err := eng.Attach(d); err != nil {
		t.Fatal(err)
	}
	q.mu.Lock()
	q.hung = true
	q.mu.Unlock()
	if _, err := eng.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := d.WaitIdle(); !errors.Is(err, present.ErrTimeout) {
		t.Errorf("WaitIdle() error = %v, want ErrTimeout", err)
	}
	q.release()
	if err := eng.Detach(); err != nil {
		t.Errorf("Detach() error = %v", err)
	}
}

func TestSynchronousQueue(t *testing.T) {
	d, _, q := newTestDevice(t, CompositorFunc(func(Presentation) error { return nil }))
	q.sync = true
	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))
	if err := eng.Attach(d); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if out, err := eng.Render(nil); err != nil || out != present.Presented {
			t.Fatalf("Render() #%d = %v, %v, want Presented", i, out, err)
		}
	}
	if err := eng.Detach(); err != nil {
		t.Errorf("Detach() error = %v", err)
	}
}

func TestWriteTextureErrorFailsSubmit(t *testing.T) {
	d, _, q := newTestDevice(t, CompositorFunc(func(Presentation) error { return nil }))
	writeErr := errors.New("staging buffer exhausted")
	q.writeErr = writeErr
	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))
	if err := eng.Attach(d); err != nil {
		t.Fatal(err)
	}
	defer eng.Detach()

	_, err := eng.Render(nil)
	if !errors.Is(err, writeErr) || !errors.Is(err, present.ErrDeviceLost) {
		t.Errorf("Render() error = %v, want write error reported as device loss", err)
	}
	if len(q.uploads) != 0 {
		t.Errorf("uploads = %d, want 0", len(q.uploads))
	}
}

func TestRegister(t *testing.T) {
	Register(nil, CompositorFunc(func(Presentation) error { return nil }))
	defer backend.Unregister(backend.BackendNative)

	entry, ok := backend.Get(backend.BackendNative)
	if !ok {
		t.Fatal("native backend not registered")
	}
	if entry.Priority != 100 {
		t.Errorf("Priority = %d, want 100", entry.Priority)
	}
	if entry.Available() {
		t.Error("backend without provider reported available")
	}
}
