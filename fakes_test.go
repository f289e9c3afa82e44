package screencap

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
)

// fakeCamera records every position it is moved to.
type fakeCamera struct {
	pos   Vec3
	right Vec3
	moves []Vec3
}

func newFakeCamera(pos Vec3) *fakeCamera {
	return &fakeCamera{pos: pos, right: Vec3{X: 1}}
}

func (c *fakeCamera) LocalPosition() Vec3 { return c.pos }
func (c *fakeCamera) Right() Vec3         { return c.right }
func (c *fakeCamera) SetLocalPosition(p Vec3) {
	c.pos = p
	c.moves = append(c.moves, p)
}

type fakeClock struct {
	scale float64
	sets  []float64
}

func (c *fakeClock) TimeScale() float64 { return c.scale }
func (c *fakeClock) SetTimeScale(s float64) {
	c.scale = s
	c.sets = append(c.sets, s)
}

type fakeOverride struct {
	enabled bool
}

func (o *fakeOverride) Enabled() bool     { return o.enabled }
func (o *fakeOverride) SetEnabled(e bool) { o.enabled = e }

// fakeRenderer paints every capture a solid color derived from the camera
// position so left and right eyes are distinguishable.
type fakeRenderer struct {
	camera *fakeCamera
	calls  []string
	// seen holds the camera position at every capture call.
	seen []Vec3
	// failAt makes the n-th capture call (1-based) return an error.
	failAt int
	// panicAt makes the n-th capture call panic.
	panicAt int
	// nilAt makes the n-th capture call return a nil buffer.
	nilAt int
	// width overrides the buffer width of the n-th call when set.
	widths map[int]int
}

func (r *fakeRenderer) capture(kind string, w, h int) (*image.RGBA, error) {
	r.calls = append(r.calls, kind)
	n := len(r.calls)
	if r.camera != nil {
		r.seen = append(r.seen, r.camera.pos)
	}
	if n == r.panicAt {
		panic("surface lost")
	}
	if n == r.failAt {
		return nil, errors.New("no surface")
	}
	if n == r.nilAt {
		return nil, nil
	}
	if ow, ok := r.widths[n]; ok {
		w = ow
	}
	return solid(w, h, color.RGBA{R: uint8(n * 40), G: 10, B: 20, A: 255}), nil
}

func (r *fakeRenderer) CaptureBuffer(w, h, _ int, _ bool) (*image.RGBA, error) {
	return r.capture("buffer", w, h)
}

func (r *fakeRenderer) CapturePanorama(res int) (*image.RGBA, error) {
	return r.capture("panorama", res, res/2)
}

func (r *fakeRenderer) CaptureScreen() (*image.RGBA, error) {
	return r.capture("screen", 64, 32)
}

type fakeSink struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newFakeSink() *fakeSink {
	return &fakeSink{files: make(map[string][]byte)}
}

func (s *fakeSink) Write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.files[name] = data
	return nil
}

type note struct {
	msg      string
	onScreen bool
}

type fakeNotifier struct {
	notes    []note
	shutters int
}

func (n *fakeNotifier) Notify(msg string, onScreen bool) {
	n.notes = append(n.notes, note{msg, onScreen})
}
func (n *fakeNotifier) Shutter() { n.shutters++ }

type fakeTagger struct {
	calls  int
	stereo bool
	err    error
}

func (t *fakeTagger) Tag(data []byte, stereo bool) ([]byte, error) {
	t.calls++
	t.stereo = stereo
	if t.err != nil {
		return nil, t.err
	}
	return append(append([]byte(nil), data...), "GPano"...), nil
}

// frameBarrier releases one frame per WaitFrame call until limit is reached,
// then blocks until ctx ends.
type frameBarrier struct {
	waits int
	limit int
}

func (b *frameBarrier) WaitFrame(ctx context.Context) error {
	if b.limit > 0 && b.waits >= b.limit {
		<-ctx.Done()
		return ctx.Err()
	}
	b.waits++
	return ctx.Err()
}

type memStore map[string]any

func (m memStore) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memStore) Set(key string, v any) error {
	m[key] = v
	return nil
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// gradient gives every column a distinct red value.
func gradient(w, h int, base uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: base, B: uint8(y), A: 255})
		}
	}
	return img
}

func stereoRig(cam *fakeCamera) (Rig, *fakeClock, *fakeOverride) {
	clock := &fakeClock{scale: 1}
	override := &fakeOverride{enabled: true}
	return Rig{Camera: cam, Time: clock, Override: override}, clock, override
}

func renderedRequest(stereo bool) CaptureRequest {
	return CaptureRequest{
		Mode:          ModeRendered,
		Stereo:        stereo,
		Width:         100,
		Height:        50,
		Downscale:     1,
		EyeSeparation: 0.2,
		ImageOffset:   0.2,
	}
}
