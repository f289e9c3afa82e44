// Package screencap captures still images from a live 3D renderer.
//
// Screencap produces simple "as you see it" screenshots, rendered screenshots
// without UI (optionally transparent and supersampled), stereoscopic 3D pairs
// and 360 degree equirectangular panoramas. Multi-frame captures are ordered
// around camera moves and synchronized to the host's frame loop so both eyes
// of a stereo image see the same frozen moment from two viewpoints.
//
// Basic usage from a host render loop:
//
//	ctrl := screencap.NewController(renderer, screencap.Rig{Camera: cam, Time: clock}).
//		WithPolicy(screencap.NewPolicy(store)).
//		WithSink(sink)
//
//	// on a key press
//	_ = ctrl.Begin(ctrl.RequestFromSettings(screencap.ModeRendered, true))
//
//	// after every rendered frame
//	if res := ctrl.FrameCompleted(); res != nil && res.Err == nil {
//		fmt.Println("saved", res.Filename)
//	}
//
// Or synchronously, when the host exposes a frame barrier:
//
//	res, err := ctrl.Capture(ctx, req, barrier)
package screencap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/google/uuid"
	"github.com/teranos/screencap/logging"
	"github.com/teranos/screencap/trip"
)

// DefaultPrefix starts every capture filename.
const DefaultPrefix = "screencap"

// Result is the outcome of one capture request. Exactly one of Data and Err
// is set.
type Result struct {
	ID       string
	Request  CaptureRequest
	Filename string
	Data     []byte
	Width    int
	Height   int
	Frames   int
	Duration time.Duration
	Err      error
}

// OK reports whether the capture produced an image.
func (r *Result) OK() bool {
	return r != nil && r.Err == nil
}

// Controller turns capture requests into encoded images.
//
// It validates requests, runs a Sequencer against the host's frames, merges
// stereo pairs, encodes PNG, tags panoramas and hands the bytes to the sink.
// One capture runs at a time; a request made while one is in flight is
// rejected with a busy trip. A failed capture never reaches the sink.
//
// Like the Sequencer, a Controller belongs to the host's render loop and is
// not safe for concurrent use.
type Controller struct {
	renderer Renderer
	rig      Rig
	seq      *Sequencer
	policy   *Policy
	sink     Sink
	tagger   PanoramaTagger
	notifier Notifier
	logger   *logging.Logger
	handler  *trip.Handler
	clock    func() time.Time
	prefix   string

	active  bool
	req     CaptureRequest
	id      string
	started time.Time
	log     *logging.Logger
	last    *Result
}

// NewController creates a controller for renderer and rig.
func NewController(renderer Renderer, rig Rig) *Controller {
	logger := logging.NopLogger()
	return &Controller{
		renderer: renderer,
		rig:      rig,
		seq:      NewSequencer(renderer, rig).WithLogger(logger),
		notifier: nopNotifier{},
		logger:   logger,
		handler:  trip.NewHandler("controller", 0),
		clock:    time.Now,
		prefix:   DefaultPrefix,
	}
}

// WithPolicy sets the policy used for settings-driven requests and for the
// on-screen message toggle.
func (c *Controller) WithPolicy(policy *Policy) *Controller {
	c.policy = policy
	return c
}

// WithSink sets where encoded captures are written. Without a sink the
// bytes are only returned in the Result.
func (c *Controller) WithSink(sink Sink) *Controller {
	c.sink = sink
	return c
}

// WithTagger sets the panorama metadata writer used for 360 captures.
func (c *Controller) WithTagger(tagger PanoramaTagger) *Controller {
	c.tagger = tagger
	return c
}

// WithNotifier sets the user feedback channel.
func (c *Controller) WithNotifier(notifier Notifier) *Controller {
	if notifier != nil {
		c.notifier = notifier
	}
	return c
}

// WithLogger sets the structured logger.
func (c *Controller) WithLogger(logger *logging.Logger) *Controller {
	if logger != nil {
		c.logger = logger.WithComponent("controller")
		c.seq.WithLogger(logger.WithComponent("sequencer"))
	}
	return c
}

// WithClock replaces time.Now for filenames and durations.
func (c *Controller) WithClock(clock func() time.Time) *Controller {
	if clock != nil {
		c.clock = clock
	}
	return c
}

// WithPrefix sets the filename prefix.
func (c *Controller) WithPrefix(prefix string) *Controller {
	if prefix != "" {
		c.prefix = prefix
	}
	return c
}

// Policy returns the configured policy, creating a default one on first use.
func (c *Controller) Policy() *Policy {
	if c.policy == nil {
		c.policy = NewPolicy(nil)
	}
	return c.policy
}

// Busy reports whether a capture is in flight.
func (c *Controller) Busy() bool {
	return c.active
}

// State returns the sequencer's current state.
func (c *Controller) State() State {
	return c.seq.State()
}

// Trips returns the failures recorded so far, oldest first.
func (c *Controller) Trips() []*trip.Trip {
	return c.handler.GetTrips()
}

// Report returns the handler's report of failed captures, and whether
// there were any.
func (c *Controller) Report() (string, bool) {
	return c.handler.DetailedReport(), c.handler.HasTrips()
}

// Last returns the result of the most recently finished capture.
func (c *Controller) Last() *Result {
	return c.last
}

// RequestFromSettings builds a request from the current validated settings.
func (c *Controller) RequestFromSettings(mode Mode, stereo bool) CaptureRequest {
	p := c.Policy()
	return CaptureRequest{
		Mode:          mode,
		Stereo:        stereo,
		Width:         p.Int(KeyResolutionX),
		Height:        p.Int(KeyResolutionY),
		PanoramaWidth: p.Int(KeyResolution360),
		Downscale:     p.Int(KeyDownscale),
		Alpha:         p.Bool(KeyCaptureAlpha),
		EyeSeparation: p.Float(KeyEyeSeparation),
		ImageOffset:   p.Float(KeyImageOffset),
	}
}

// Begin starts a capture. The capture then advances with every
// FrameCompleted call.
func (c *Controller) Begin(req CaptureRequest) error {
	id := uuid.NewString()
	log := c.logger.WithCapture(id).With("mode", req.Mode.String(), "stereo", req.Stereo)

	if err := c.seq.Begin(req); err != nil {
		c.recordFailure(log, err)
		return err
	}

	c.active = true
	c.req = req
	c.id = id
	c.log = log
	c.started = c.clock()
	log.Info("capture started")

	if c.seq.State().Terminal() {
		c.finish()
	}
	return nil
}

// FrameCompleted advances the running capture by one rendered frame. It
// returns the Result once the capture has finished, and nil otherwise.
func (c *Controller) FrameCompleted() *Result {
	if !c.active {
		return nil
	}
	if !c.seq.FrameCompleted() {
		return nil
	}
	return c.finish()
}

// Abort stops the running capture, restoring the rig, and returns its
// failed Result. It returns nil when nothing is running.
func (c *Controller) Abort(reason error) *Result {
	if !c.active {
		return nil
	}
	c.seq.Abort(reason)
	return c.finish()
}

// Capture runs req to completion, waiting on barrier between steps. If ctx
// ends first the capture is aborted; camera and time scale are still
// restored before Capture returns.
func (c *Controller) Capture(ctx context.Context, req CaptureRequest, barrier FrameBarrier) (*Result, error) {
	if err := c.Begin(req); err != nil {
		return nil, err
	}
	if !c.active {
		return c.last, c.last.Err
	}

	for {
		if err := barrier.WaitFrame(ctx); err != nil {
			res := c.Abort(err)
			return res, res.Err
		}
		if res := c.FrameCompleted(); res != nil {
			return res, res.Err
		}
	}
}

func (c *Controller) finish() *Result {
	c.active = false
	res := &Result{
		ID:       c.id,
		Request:  c.req,
		Frames:   c.seq.Frames(),
		Duration: c.clock().Sub(c.started),
	}
	c.last = res

	data, bounds, err := c.produce()
	if err != nil {
		res.Err = err
		c.recordFailure(c.log, err)
		return res
	}

	res.Data = data
	res.Width, res.Height = bounds.Dx(), bounds.Dy()
	res.Filename = c.filename()

	if c.sink != nil {
		if err := c.sink.Write(res.Filename, data); err != nil {
			res.Err = trip.Wrap(err, trip.Output, "Could not save the screenshot",
				trip.Context{"file": res.Filename})
			res.Data = nil
			c.recordFailure(c.log, res.Err)
			return res
		}
	}

	c.notifier.Shutter()
	c.notifier.Notify(fmt.Sprintf("%s screenshot saved to %s", c.req.Label(), res.Filename), c.messagesOnScreen())
	c.log.Info("capture saved", "file", res.Filename, "width", res.Width, "height", res.Height,
		"bytes", len(data), "frames", res.Frames)
	return res
}

// produce composes, encodes and tags the finished shot.
func (c *Controller) produce() ([]byte, image.Rectangle, error) {
	shot, err := c.seq.Result()
	if err != nil {
		return nil, image.Rectangle{}, err
	}

	img, err := Merge(c.req, shot)
	if err != nil {
		return nil, image.Rectangle{}, err
	}

	data, err := EncodePNG(img)
	if err != nil {
		return nil, image.Rectangle{}, err
	}

	if c.req.Mode == ModeRendered360 && c.tagger != nil {
		data, err = c.tagger.Tag(data, c.req.Stereo)
		if err != nil {
			return nil, image.Rectangle{}, trip.Wrap(err, trip.Encoding, "Could not tag the 360 screenshot", nil)
		}
	}
	return data, img.Bounds(), nil
}

func (c *Controller) recordFailure(log *logging.Logger, err error) {
	t, ok := trip.As(err)
	if !ok {
		t = trip.Wrap(err, trip.CaptureUnavailable, "Screenshot failed", nil)
	}
	c.handler.Record(t)
	if log == nil {
		log = c.logger
	}
	state, _ := t.GetContext("state")
	log.Error("capture failed", "type", t.Type, "severity", t.Severity.String(), "state", state, "error", t.Error())
	c.notifier.Notify(t.UserMessage(), true)
}

func (c *Controller) messagesOnScreen() bool {
	return c.Policy().Bool(KeyMessages)
}

func (c *Controller) filename() string {
	return fmt.Sprintf("%s-%s.png", c.prefix, c.clock().Format("2006-01-02-15-04-05"))
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, trip.Wrap(err, trip.Encoding, "Could not encode the screenshot",
			trip.Context{"bounds": img.Bounds().String()})
	}
	return buf.Bytes(), nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, bool) {}
func (nopNotifier) Shutter()            {}
