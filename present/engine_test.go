// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present_test

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/backend/software"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/present"
)

// recorder keeps a copy of the last frame presented by a software device.
type recorder struct {
	frames int
	last   backend.Frame
}

func (r *recorder) PresentFrame(f backend.Frame) {
	r.frames++
	r.last = f
	r.last.Pix = append([]byte(nil), f.Pix...)
}

// bgraAt returns the BGRA bytes of pixel (x, y) of the last frame.
func (r *recorder) bgraAt(x, y int) [4]byte {
	i := (y*int(r.last.Width) + x) * 4
	return [4]byte(r.last.Pix[i : i+4])
}

type fixture struct {
	geom *geometry.State
	dev  *software.Device
	rec  *recorder
	eng  *present.Engine
}

func newFixture(t *testing.T, w, h uint32, opts ...present.Option) *fixture {
	t.Helper()
	f := &fixture{
		geom: geometry.NewState(geometry.Size{Width: w, Height: h}),
		rec:  &recorder{},
	}
	f.dev = software.New(backend.Target{Sink: f.rec})
	f.eng = present.NewEngine(f.geom, opts...)
	if err := f.eng.Attach(f.dev); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	t.Cleanup(func() {
		_ = f.eng.Detach()
		if v := f.dev.Violations(); len(v) != 0 {
			t.Errorf("device contract violations: %v", v)
		}
	})
	return f
}

func (f *fixture) render(t *testing.T, want present.Outcome) {
	t.Helper()
	got, err := f.eng.Render(nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Fatalf("Render() = %v, want %v", got, want)
	}
}

func TestEngineFirstFrame(t *testing.T) {
	f := newFixture(t, 64, 32)

	if got := f.eng.State(); got != present.StateReady {
		t.Errorf("State() = %v, want ready", got)
	}
	f.render(t, present.Presented)

	st := f.eng.Stats()
	if st.Builds != 1 || st.Recreations != 0 || st.Presents != 1 {
		t.Errorf("Stats() = %+v, want one build and one present", st)
	}
	if f.rec.frames != 1 {
		t.Fatalf("sink received %d frames, want 1", f.rec.frames)
	}
	if f.rec.last.Width != 64 || f.rec.last.Height != 32 {
		t.Errorf("frame size = %dx%d, want 64x32", f.rec.last.Width, f.rec.last.Height)
	}
	if f.rec.last.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("frame format = %v, want BGRA8", f.rec.last.Format)
	}
}

func TestEngineManyFrames(t *testing.T) {
	f := newFixture(t, 8, 8)

	for i := 0; i < 10; i++ {
		f.render(t, present.Presented)
	}
	if st := f.eng.Stats(); st.Presents != 10 || st.Builds != 1 {
		t.Errorf("Stats() = %+v, want 10 presents from one build", st)
	}
}

func TestEngineResize(t *testing.T) {
	f := newFixture(t, 64, 32)
	f.render(t, present.Presented)

	// Several changes between frames cost a single rebuild.
	f.geom.Resize(geometry.Size{Width: 80, Height: 40})
	f.geom.Resize(geometry.Size{Width: 100, Height: 50})

	drawn := 0
	out, err := f.eng.Render(func(*gg.Context) error { drawn++; return nil })
	if err != nil || out != present.Recreated {
		t.Fatalf("Render() after resize = %v, %v; want recreated", out, err)
	}
	if drawn != 0 {
		t.Errorf("draw called %d times on a rebuilding frame", drawn)
	}
	if f.rec.frames != 1 {
		t.Errorf("frames = %d, want no present while rebuilding", f.rec.frames)
	}

	f.render(t, present.Presented)
	if f.rec.last.Width != 100 || f.rec.last.Height != 50 {
		t.Errorf("frame size = %dx%d, want 100x50", f.rec.last.Width, f.rec.last.Height)
	}
	if st := f.eng.Stats(); st.Recreations != 1 {
		t.Errorf("Recreations = %d, want 1", st.Recreations)
	}
	if ext := f.eng.Extent(); ext.Width != 100 || ext.Height != 50 {
		t.Errorf("Extent() = %+v", ext)
	}
}

func TestEngineOutOfDate(t *testing.T) {
	f := newFixture(t, 16, 16)
	f.render(t, present.Presented)

	f.dev.MarkOutOfDate()
	drawn := 0
	out, err := f.eng.Render(func(*gg.Context) error { drawn++; return nil })
	if err != nil || out != present.Recreated {
		t.Fatalf("Render() on stale swapchain = %v, %v; want recreated", out, err)
	}
	if drawn != 0 {
		t.Errorf("draw called on stale swapchain")
	}

	f.render(t, present.Presented)
	if f.rec.frames != 2 {
		t.Errorf("frames = %d, want 2", f.rec.frames)
	}
}

func TestEngineSuboptimal(t *testing.T) {
	f := newFixture(t, 16, 16)

	f.dev.MarkSuboptimal()
	f.render(t, present.Presented)
	f.render(t, present.Recreated)
	f.render(t, present.Presented)

	if st := f.eng.Stats(); st.Recreations != 1 || st.Presents != 2 {
		t.Errorf("Stats() = %+v, want one recreation and two presents", st)
	}
}

func TestEngineDrawError(t *testing.T) {
	f := newFixture(t, 16, 16)
	boom := errors.New("boom")

	out, err := f.eng.Render(func(*gg.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Render() error = %v, want draw error", err)
	}
	if out != present.Aborted {
		t.Errorf("Render() = %v, want aborted", out)
	}
	if f.rec.frames != 0 {
		t.Errorf("aborted frame reached the compositor")
	}
	if got := f.eng.State(); got != present.StateRecreatePending {
		t.Errorf("State() = %v, want recreate-pending", got)
	}

	f.render(t, present.Recreated)
	f.render(t, present.Presented)
}

func TestEngineScaleFactor(t *testing.T) {
	f := newFixture(t, 10, 5)
	f.geom.Rescale(2 * geometry.Denominator)

	f.render(t, present.Recreated)
	out, err := f.eng.Render(func(dc *gg.Context) error {
		dc.SetRGB(1, 0, 0)
		dc.DrawRectangle(0, 0, 5, 5)
		return dc.Fill()
	})
	if err != nil || out != present.Presented {
		t.Fatalf("Render() = %v, %v", out, err)
	}

	if f.rec.last.Width != 20 || f.rec.last.Height != 10 {
		t.Fatalf("frame size = %dx%d, want 20x10", f.rec.last.Width, f.rec.last.Height)
	}
	// A 5x5 logical square covers 10x10 physical pixels.
	if got := f.rec.bgraAt(8, 8); got != [4]byte{0, 0, 255, 255} {
		t.Errorf("pixel inside square = %v, want opaque red", got)
	}
	if got := f.rec.bgraAt(15, 5); got != [4]byte{} {
		t.Errorf("pixel outside square = %v, want transparent", got)
	}
}

func TestEngineClearColor(t *testing.T) {
	f := newFixture(t, 4, 4, present.WithClearColor(gg.RGB(0, 0, 1)))
	f.render(t, present.Presented)

	if got := f.rec.bgraAt(1, 1); got != [4]byte{255, 0, 0, 255} {
		t.Errorf("cleared pixel = %v, want opaque blue", got)
	}
}

func TestEngineZeroSize(t *testing.T) {
	f := newFixture(t, 0, 0)

	if got := f.eng.State(); got != present.StateRecreatePending {
		t.Errorf("State() = %v, want recreate-pending", got)
	}
	f.render(t, present.Skipped)
	if live := f.dev.Live(); live.Swapchains != 0 {
		t.Errorf("swapchain built for empty surface")
	}

	f.geom.Resize(geometry.Size{Width: 12, Height: 12})
	f.render(t, present.Recreated)
	f.render(t, present.Presented)
}

func TestEngineUnsupportedFormat(t *testing.T) {
	dev := software.New(backend.Target{}, software.WithFormats(gputypes.TextureFormatRGBA8Unorm))
	eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))

	if err := eng.Attach(dev); !errors.Is(err, present.ErrUnsupportedFormat) {
		t.Fatalf("Attach() error = %v, want ErrUnsupportedFormat", err)
	}
	if got := eng.State(); got != present.StateUninitialized {
		t.Errorf("State() = %v, want uninitialized", got)
	}
	if _, err := eng.Render(nil); !errors.Is(err, present.ErrNotAttached) {
		t.Errorf("Render() error = %v, want ErrNotAttached", err)
	}
}

func TestEngineResourceCreationFailure(t *testing.T) {
	tests := []string{"swapchain", "view", "semaphore", "fence"}
	for _, kind := range tests {
		t.Run(kind, func(t *testing.T) {
			dev := software.New(backend.Target{})
			dev.FailCreation(kind)
			eng := present.NewEngine(geometry.NewState(geometry.Size{Width: 4, Height: 4}))

			if err := eng.Attach(dev); !errors.Is(err, present.ErrResourceCreation) {
				t.Fatalf("Attach() error = %v, want ErrResourceCreation", err)
			}
			if live := dev.Live(); !live.Zero() {
				t.Errorf("Live() = %+v after failed attach, want zero", live)
			}
		})
	}
}

func TestEngineFenceTimeout(t *testing.T) {
	f := newFixture(t, 4, 4, present.WithFenceTimeout(20*time.Millisecond), present.WithImageCount(2))
	f.dev.Hang()

	// Both elements start with signaled fences.
	f.render(t, present.Presented)
	f.render(t, present.Presented)

	_, err := f.eng.Render(nil)
	if !errors.Is(err, present.ErrDeviceLost) {
		t.Fatalf("Render() error = %v, want ErrDeviceLost", err)
	}
	if _, again := f.eng.Render(nil); !errors.Is(again, present.ErrDeviceLost) {
		t.Errorf("device loss is not sticky: %v", again)
	}

	if err := f.eng.Detach(); !errors.Is(err, present.ErrDeviceLost) {
		t.Errorf("Detach() error = %v, want ErrDeviceLost", err)
	}
	if live := f.dev.Live(); !live.Zero() {
		t.Errorf("Live() = %+v after detach, want zero", live)
	}
}

func TestEngineDetach(t *testing.T) {
	f := newFixture(t, 32, 32)
	f.render(t, present.Presented)
	f.geom.Resize(geometry.Size{Width: 40, Height: 40})
	f.render(t, present.Recreated)
	f.render(t, present.Presented)

	if err := f.eng.Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if live := f.dev.Live(); !live.Zero() {
		t.Errorf("Live() = %+v after detach, want zero", live)
	}
	if !f.dev.Destroyed() {
		t.Error("device not destroyed by Detach")
	}
	if err := f.eng.Detach(); err != nil {
		t.Errorf("second Detach() error = %v, want nil", err)
	}
	if _, err := f.eng.Render(nil); !errors.Is(err, present.ErrDetached) {
		t.Errorf("Render() after detach error = %v, want ErrDetached", err)
	}
	if err := f.eng.Attach(software.New(backend.Target{})); !errors.Is(err, present.ErrDetached) {
		t.Errorf("Attach() after detach error = %v, want ErrDetached", err)
	}
}

func TestEngineAttachTwice(t *testing.T) {
	f := newFixture(t, 4, 4)
	if err := f.eng.Attach(software.New(backend.Target{})); !errors.Is(err, present.ErrAlreadyAttached) {
		t.Errorf("Attach() error = %v, want ErrAlreadyAttached", err)
	}
}

// renderWithin runs one Render and fails the test if it blocks.
func renderWithin(t *testing.T, eng *present.Engine, draw present.DrawFunc) (present.Outcome, error) {
	t.Helper()
	type result struct {
		out present.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := eng.Render(draw)
		done <- result{out, err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("Render() blocked")
		return 0, nil
	}
}

func TestEngineAccessorsFromDrawCallback(t *testing.T) {
	f := newFixture(t, 8, 8)
	f.render(t, present.Presented)

	var (
		stats  present.Stats
		state  present.State
		extent gputypes.Extent3D
	)
	out, err := renderWithin(t, f.eng, func(*gg.Context) error {
		stats = f.eng.Stats()
		state = f.eng.State()
		extent = f.eng.Extent()
		return nil
	})
	if err != nil || out != present.Presented {
		t.Fatalf("Render() = %v, %v, want Presented", out, err)
	}
	if stats.Presents != 1 {
		t.Errorf("Stats().Presents in callback = %d, want 1", stats.Presents)
	}
	if state != present.StateReady {
		t.Errorf("State() in callback = %v, want ready", state)
	}
	if extent.Width != 8 || extent.Height != 8 {
		t.Errorf("Extent() in callback = %+v, want 8x8", extent)
	}
}

func TestEngineDetachFromDrawCallback(t *testing.T) {
	f := newFixture(t, 8, 8)
	f.render(t, present.Presented)

	var detachErr error
	out, err := renderWithin(t, f.eng, func(*gg.Context) error {
		detachErr = f.eng.Detach()
		return nil
	})
	if !errors.Is(detachErr, present.ErrDetachDeferred) {
		t.Errorf("Detach() in callback error = %v, want ErrDetachDeferred", detachErr)
	}
	if out != present.Aborted || !errors.Is(err, present.ErrDetached) {
		t.Errorf("Render() = %v, %v, want Aborted, ErrDetached", out, err)
	}
	if got := f.eng.State(); got != present.StateDestroyed {
		t.Errorf("State() = %v, want destroyed", got)
	}
	if !f.dev.Destroyed() {
		t.Error("device not destroyed after deferred detach")
	}
	if live := f.dev.Live(); !live.Zero() {
		t.Errorf("Live() = %+v, want zero", live)
	}
	if f.rec.frames != 1 {
		t.Errorf("sink received %d frames, want the frame before detach only", f.rec.frames)
	}
}

func TestEngineSnapshotIsFrameGeometry(t *testing.T) {
	f := newFixture(t, 20, 10)

	var before, after geometry.Size
	out, err := renderWithin(t, f.eng, func(*gg.Context) error {
		before = f.eng.Snapshot().Logical
		f.geom.Resize(geometry.Size{Width: 30, Height: 10})
		after = f.eng.Snapshot().Logical
		return nil
	})
	if err != nil || out != present.Presented {
		t.Fatalf("Render() = %v, %v, want Presented", out, err)
	}
	want := geometry.Size{Width: 20, Height: 10}
	if before != want || after != want {
		t.Errorf("Snapshot() in callback = %v then %v, want %v both times", before, after, want)
	}

	f.render(t, present.Recreated)
	if got := f.eng.Snapshot().Logical; got != (geometry.Size{Width: 30, Height: 10}) {
		t.Errorf("Snapshot() after rebuild = %v, want 30x10", got)
	}
}

func TestEngineReentrantCalls(t *testing.T) {
	f := newFixture(t, 8, 8)

	var renderErr, attachErr error
	out, err := renderWithin(t, f.eng, func(*gg.Context) error {
		_, renderErr = f.eng.Render(nil)
		attachErr = f.eng.Attach(software.New(backend.Target{}))
		return nil
	})
	if err != nil || out != present.Presented {
		t.Fatalf("Render() = %v, %v, want Presented", out, err)
	}
	if !errors.Is(renderErr, present.ErrInDraw) {
		t.Errorf("nested Render() error = %v, want ErrInDraw", renderErr)
	}
	if !errors.Is(attachErr, present.ErrInDraw) {
		t.Errorf("Attach() in callback error = %v, want ErrInDraw", attachErr)
	}
	f.render(t, present.Presented)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    present.State
		want string
	}{
		{present.StateUninitialized, "uninitialized"},
		{present.StateReady, "ready"},
		{present.StateRecreatePending, "recreate-pending"},
		{present.StateDestroyed, "destroyed"},
		{present.State(9), "State(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
	if got := present.Aborted.String(); got != "aborted" {
		t.Errorf("Aborted.String() = %q", got)
	}
}
