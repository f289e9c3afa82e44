package screencap

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/screencap/trip"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

type controllerRig struct {
	ctrl     *Controller
	cam      *fakeCamera
	renderer *fakeRenderer
	sink     *fakeSink
	notifier *fakeNotifier
	tagger   *fakeTagger
	store    memStore
}

func newControllerRig(t *testing.T) *controllerRig {
	t.Helper()
	cam := newFakeCamera(Vec3{Y: 1})
	rig, _, _ := stereoRig(cam)
	cr := &controllerRig{
		cam:      cam,
		renderer: &fakeRenderer{camera: cam},
		sink:     newFakeSink(),
		notifier: &fakeNotifier{},
		tagger:   &fakeTagger{},
		store:    memStore{},
	}
	cr.ctrl = NewController(cr.renderer, rig).
		WithPolicy(NewPolicy(cr.store, DefaultSettings(100, 50)...)).
		WithSink(cr.sink).
		WithNotifier(cr.notifier).
		WithTagger(cr.tagger).
		WithClock(func() time.Time { return fixedNow })
	return cr
}

func (cr *controllerRig) run(t *testing.T, req CaptureRequest) *Result {
	t.Helper()
	require.NoError(t, cr.ctrl.Begin(req))
	for i := 0; i < 10; i++ {
		if res := cr.ctrl.FrameCompleted(); res != nil {
			return res
		}
	}
	t.Fatalf("capture did not finish, state %s", cr.ctrl.State())
	return nil
}

func TestController_RenderedStereoSaved(t *testing.T) {
	cr := newControllerRig(t)
	req := cr.ctrl.RequestFromSettings(ModeRendered, true)

	res := cr.run(t, req)
	require.True(t, res.OK(), "capture failed: %v", res.Err)

	assert.Equal(t, "screencap-2024-03-09-14-05-07.png", res.Filename)
	assert.Equal(t, 3, res.Frames)
	assert.NotEmpty(t, res.ID)

	// 100 px eyes with offset 0.21 trim 21 columns each
	assert.Equal(t, 158, res.Width)
	assert.Equal(t, 50, res.Height)

	data, ok := cr.sink.files[res.Filename]
	require.True(t, ok)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 158, img.Bounds().Dx())

	assert.Equal(t, 1, cr.notifier.shutters)
	require.Len(t, cr.notifier.notes, 1)
	assert.Equal(t, "Rendered 3D screenshot saved to "+res.Filename, cr.notifier.notes[0].msg)
	assert.True(t, cr.notifier.notes[0].onScreen)
	assert.Equal(t, 0, cr.tagger.calls)
	assert.False(t, cr.ctrl.Busy())
}

func TestController_MessagesOffStaysInLog(t *testing.T) {
	cr := newControllerRig(t)
	cr.store[KeyMessages] = false

	res := cr.run(t, CaptureRequest{Mode: ModeSimple})
	require.True(t, res.OK())
	require.Len(t, cr.notifier.notes, 1)
	assert.False(t, cr.notifier.notes[0].onScreen)
	assert.Equal(t, 1, cr.notifier.shutters)
}

func TestController_FailureNeverReachesSink(t *testing.T) {
	cr := newControllerRig(t)
	cr.renderer.failAt = 2

	res := cr.run(t, cr.ctrl.RequestFromSettings(ModeRendered, true))
	require.False(t, res.OK())
	assert.True(t, trip.Is(res.Err, trip.CaptureUnavailable))
	assert.Nil(t, res.Data)
	assert.Empty(t, res.Filename)
	assert.Empty(t, cr.sink.files)

	assert.Equal(t, 0, cr.notifier.shutters)
	require.Len(t, cr.notifier.notes, 1)
	assert.Contains(t, cr.notifier.notes[0].msg, "try a UI screenshot")
	assert.True(t, cr.notifier.notes[0].onScreen)

	assert.Equal(t, Vec3{Y: 1}, cr.cam.pos)
	assert.Len(t, cr.ctrl.Trips(), 1)
	assert.Same(t, res, cr.ctrl.Last())

	report, failed := cr.ctrl.Report()
	assert.True(t, failed)
	assert.Contains(t, report, "1 trips")
}

func TestController_SinkError(t *testing.T) {
	cr := newControllerRig(t)
	cr.sink.err = errors.New("disk full")

	res := cr.run(t, CaptureRequest{Mode: ModeSimple})
	assert.True(t, trip.Is(res.Err, trip.Output))
	assert.ErrorContains(t, res.Err, "disk full")
	assert.Nil(t, res.Data)
	assert.Equal(t, 0, cr.notifier.shutters)
}

func TestController_PanoramaTagged(t *testing.T) {
	cr := newControllerRig(t)
	cr.store[KeyResolution360] = 1024

	req := cr.ctrl.RequestFromSettings(ModeRendered360, true)
	req.EyeSeparation = 0.1
	res := cr.run(t, req)
	require.True(t, res.OK(), "capture failed: %v", res.Err)

	assert.Equal(t, 4, res.Frames)
	assert.Equal(t, 2048, res.Width)
	assert.Equal(t, 512, res.Height)
	assert.Equal(t, 1, cr.tagger.calls)
	assert.True(t, cr.tagger.stereo)
	assert.True(t, bytes.HasSuffix(res.Data, []byte("GPano")))
	assert.Equal(t, "360 3D screenshot saved to "+res.Filename, cr.notifier.notes[0].msg)
}

func TestController_TaggerError(t *testing.T) {
	cr := newControllerRig(t)
	cr.store[KeyResolution360] = 1024
	cr.tagger.err = errors.New("bad chunk")

	res := cr.run(t, cr.ctrl.RequestFromSettings(ModeRendered360, false))
	assert.True(t, trip.Is(res.Err, trip.Encoding))
	assert.Empty(t, cr.sink.files)
}

func TestController_BusyRejected(t *testing.T) {
	cr := newControllerRig(t)
	req := cr.ctrl.RequestFromSettings(ModeRendered, true)

	require.NoError(t, cr.ctrl.Begin(req))
	assert.True(t, cr.ctrl.Busy())

	err := cr.ctrl.Begin(CaptureRequest{Mode: ModeSimple})
	assert.True(t, trip.Is(err, trip.Busy))
	assert.True(t, cr.ctrl.Busy())

	var res *Result
	for res == nil {
		res = cr.ctrl.FrameCompleted()
	}
	assert.True(t, res.OK())
	assert.Equal(t, ModeRendered, res.Request.Mode)
	assert.Len(t, cr.sink.files, 1)
}

func TestController_InvalidRequest(t *testing.T) {
	cr := newControllerRig(t)

	err := cr.ctrl.Begin(CaptureRequest{Mode: ModeSimple, Stereo: true, EyeSeparation: 0.1})
	assert.True(t, trip.Is(err, trip.InvalidRequest))
	assert.False(t, cr.ctrl.Busy())
	require.Len(t, cr.notifier.notes, 1)
	assert.True(t, cr.notifier.notes[0].onScreen)
}

func TestController_Abort(t *testing.T) {
	cr := newControllerRig(t)
	assert.Nil(t, cr.ctrl.Abort(errors.New("idle")))

	require.NoError(t, cr.ctrl.Begin(cr.ctrl.RequestFromSettings(ModeRendered, true)))
	cr.ctrl.FrameCompleted()

	res := cr.ctrl.Abort(errors.New("quit"))
	require.NotNil(t, res)
	assert.ErrorContains(t, res.Err, "quit")
	assert.Equal(t, Vec3{Y: 1}, cr.cam.pos)
	assert.False(t, cr.ctrl.Busy())
	assert.Nil(t, cr.ctrl.FrameCompleted())
}

func TestController_CaptureWithBarrier(t *testing.T) {
	cr := newControllerRig(t)
	barrier := &frameBarrier{}

	res, err := cr.ctrl.Capture(context.Background(), cr.ctrl.RequestFromSettings(ModeRendered, true), barrier)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, 3, barrier.waits)
	assert.Len(t, cr.sink.files, 1)
}

func TestController_CaptureCancelled(t *testing.T) {
	cr := newControllerRig(t)
	barrier := &frameBarrier{limit: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := cr.ctrl.Capture(ctx, cr.ctrl.RequestFromSettings(ModeRendered, true), barrier)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Same(t, res.Err, err)
	assert.Empty(t, cr.sink.files)
	assert.Equal(t, Vec3{Y: 1}, cr.cam.pos)
	assert.False(t, cr.ctrl.Busy())
}

func TestController_RequestFromSettings(t *testing.T) {
	cr := newControllerRig(t)
	cr.store[KeyResolutionX] = "9999"
	cr.store[KeyDownscale] = 3
	cr.store[KeyCaptureAlpha] = false

	req := cr.ctrl.RequestFromSettings(ModeRendered, false)
	assert.Equal(t, 4096, req.Width)
	assert.Equal(t, 50, req.Height)
	assert.Equal(t, 3, req.Downscale)
	assert.Equal(t, 4096, req.PanoramaWidth)
	assert.False(t, req.Alpha)
	assert.InDelta(t, 0.18, req.EyeSeparation, 1e-9)
	assert.InDelta(t, 0.21, req.ImageOffset, 1e-9)
}

func TestController_FullOffsetStillCaptures(t *testing.T) {
	cr := newControllerRig(t)
	cr.store[KeyImageOffset] = 1.0

	req := cr.ctrl.RequestFromSettings(ModeRendered, true)
	assert.InDelta(t, MaxImageOffset, req.ImageOffset, 1e-9)
	require.NoError(t, req.Validate())

	res := cr.run(t, req)
	require.True(t, res.OK(), "%v", res.Err)
	// floor(100*0.99) = 99 columns trimmed per eye
	assert.Equal(t, 2, res.Width)
}

func TestController_DefaultPolicy(t *testing.T) {
	ctrl := NewController(&fakeRenderer{}, Rig{}).WithPrefix("shot")
	req := ctrl.RequestFromSettings(ModeRendered, false)
	assert.Equal(t, 1920, req.Width)
	assert.Equal(t, 1080, req.Height)

	res, err := ctrl.Capture(context.Background(), CaptureRequest{Mode: ModeSimple}, &frameBarrier{})
	require.NoError(t, err)
	assert.Regexp(t, `^shot-\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}\.png$`, res.Filename)
	assert.Equal(t, 64, res.Width)
}
