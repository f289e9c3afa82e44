package screencap

import (
	"fmt"
	"image"

	"github.com/teranos/screencap/logging"
	"github.com/teranos/screencap/trip"
)

// FrozenTimeScale is the time scale held while a stereo pair is captured, so
// nothing in the scene moves between the two eyes.
const FrozenTimeScale = 0.01

// State is a step of a capture sequence.
type State int

const (
	StateIdle State = iota
	// StateSettle lets one frame pass before a 360 capture starts.
	StateSettle
	// StatePrepare disables the position override and freezes time.
	StatePrepare
	StateOffsetLeft
	StateCaptureLeft
	StateOffsetRight
	StateCaptureRight
	// StateRestore returns camera, override and time scale to their
	// pre-sequence values.
	StateRestore
	// StateCapture is the single capture of a mono sequence.
	StateCapture
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateSettle:       "settle",
	StatePrepare:      "prepare",
	StateOffsetLeft:   "offset_left",
	StateCaptureLeft:  "capture_left",
	StateOffsetRight:  "offset_right",
	StateCaptureRight: "capture_right",
	StateRestore:      "restore",
	StateCapture:      "capture",
	StateDone:         "done",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the sequence has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// waitsForFrame reports whether the state may only run once a frame has
// completed since the previous suspension point.
func (s State) waitsForFrame() bool {
	switch s {
	case StateSettle, StateOffsetLeft, StateCaptureLeft, StateCaptureRight, StateCapture:
		return true
	default:
		return false
	}
}

// savedRig is what Prepare acquires and Restore gives back.
type savedRig struct {
	position        Vec3
	right           Vec3
	timeScale       float64
	overrideEnabled bool
}

// Sequencer drives the frame-synchronized steps of one capture.
//
// It is an explicit state machine: Begin starts a sequence and runs it up to
// its first suspension point, and every FrameCompleted call consumes exactly
// one rendered frame and runs it to the next one. Camera position, override
// and time scale are held from Prepare to Restore, and Restore runs on every
// exit path once Prepare has run.
//
// A Sequencer is driven from the host's render loop and is not safe for
// concurrent use.
type Sequencer struct {
	renderer Renderer
	rig      Rig
	logger   *logging.Logger

	req      CaptureRequest
	state    State
	frame    bool
	frames   int
	prepared bool
	saved    savedRig

	shot    Shot
	err     error
	visited []State
}

// NewSequencer creates an idle sequencer.
func NewSequencer(renderer Renderer, rig Rig) *Sequencer {
	return &Sequencer{
		renderer: renderer,
		rig:      rig,
		logger:   logging.NopLogger(),
	}
}

// WithLogger sets the logger used for state transitions.
func (s *Sequencer) WithLogger(logger *logging.Logger) *Sequencer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// State returns the current state.
func (s *Sequencer) State() State {
	return s.state
}

// Running reports whether a sequence has begun and not yet finished.
func (s *Sequencer) Running() bool {
	return s.state != StateIdle && !s.state.Terminal()
}

// Visited returns the states executed by the current or last sequence.
func (s *Sequencer) Visited() []State {
	return append([]State(nil), s.visited...)
}

// Frames returns how many frames the current or last sequence consumed.
func (s *Sequencer) Frames() int {
	return s.frames
}

// Begin starts a sequence for req. It fails with a busy trip while another
// sequence is running.
func (s *Sequencer) Begin(req CaptureRequest) error {
	if s.Running() {
		return trip.NewTrip(trip.Busy, "a screenshot is already being taken",
			trip.Context{"state": s.state.String()})
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if s.renderer == nil {
		return trip.NewTrip(trip.CaptureUnavailable, "no renderer to capture from", nil)
	}
	if req.Stereo && (s.rig.Camera == nil || s.rig.Time == nil) {
		return trip.NewTrip(trip.CaptureUnavailable, "no camera to capture in 3D from",
			trip.Context{"camera": s.rig.Camera != nil, "time": s.rig.Time != nil})
	}

	s.req = req
	s.frame = false
	s.frames = 0
	s.prepared = false
	s.saved = savedRig{}
	s.shot = Shot{}
	s.err = nil
	s.visited = s.visited[:0]

	switch {
	case req.Mode == ModeRendered360:
		s.state = StateSettle
	case req.Stereo:
		s.state = StatePrepare
	default:
		s.state = StateCapture
	}

	s.logger.Debug("sequence started", "mode", req.Mode.String(), "stereo", req.Stereo, "state", s.state.String())
	s.run()
	return nil
}

// FrameCompleted tells the sequencer the host has finished rendering one
// frame. It returns true once the sequence is in a terminal state.
func (s *Sequencer) FrameCompleted() bool {
	if !s.Running() {
		return s.state.Terminal()
	}
	s.frame = true
	s.run()
	return s.state.Terminal()
}

// Abort ends a running sequence early. Restore still runs if Prepare did.
func (s *Sequencer) Abort(reason error) {
	if !s.Running() {
		return
	}
	if _, ok := trip.As(reason); !ok {
		reason = trip.Wrap(reason, trip.CaptureUnavailable, "capture aborted before completion",
			trip.Context{"state": s.state.String()})
	}
	s.abort(reason)
}

// Result returns the finished shot, or the error that aborted the sequence.
func (s *Sequencer) Result() (Shot, error) {
	switch s.state {
	case StateDone:
		return s.shot, nil
	case StateAborted:
		return Shot{}, s.err
	default:
		return Shot{}, fmt.Errorf("capture sequence not finished (state %s)", s.state)
	}
}

func (s *Sequencer) run() {
	for s.Running() {
		if s.state.waitsForFrame() {
			if !s.frame {
				return
			}
			s.frame = false
			s.frames++
		}
		s.step()
	}
}

// step executes the current state and moves to the next one.
func (s *Sequencer) step() {
	current := s.state
	s.visited = append(s.visited, current)

	switch current {
	case StateSettle:
		if s.req.Stereo {
			s.state = StatePrepare
		} else {
			s.state = StateCapture
		}

	case StatePrepare:
		s.acquire()
		s.state = StateOffsetLeft

	case StateOffsetLeft:
		s.rig.Camera.SetLocalPosition(s.saved.position.Add(s.saved.right.Scale(s.req.EyeSeparation / 2)))
		s.state = StateCaptureLeft

	case StateCaptureLeft:
		buf, err := s.shoot()
		if err != nil {
			s.abort(err)
			return
		}
		s.shot.Pair = &StereoPair{Left: buf}
		s.state = StateOffsetRight

	case StateOffsetRight:
		pos := s.rig.Camera.LocalPosition()
		s.rig.Camera.SetLocalPosition(pos.Sub(s.saved.right.Scale(s.req.EyeSeparation)))
		s.state = StateCaptureRight

	case StateCaptureRight:
		buf, err := s.shoot()
		if err != nil {
			s.abort(err)
			return
		}
		s.shot.Pair.Right = buf
		s.state = StateRestore

	case StateRestore:
		s.release()
		s.state = StateDone

	case StateCapture:
		buf, err := s.shoot()
		if err != nil {
			s.abort(err)
			return
		}
		s.shot.Mono = buf
		s.state = StateDone
	}

	s.logger.Debug("sequence step", "from", current.String(), "to", s.state.String(), "frames", s.frames)
}

func (s *Sequencer) acquire() {
	s.saved = savedRig{
		position:  s.rig.Camera.LocalPosition(),
		right:     s.rig.Camera.Right(),
		timeScale: s.rig.Time.TimeScale(),
	}
	if s.rig.Override != nil {
		s.saved.overrideEnabled = s.rig.Override.Enabled()
		s.rig.Override.SetEnabled(false)
	}
	s.rig.Time.SetTimeScale(FrozenTimeScale)
	s.prepared = true
}

func (s *Sequencer) release() {
	if !s.prepared {
		return
	}
	s.rig.Camera.SetLocalPosition(s.saved.position)
	if s.rig.Override != nil {
		s.rig.Override.SetEnabled(s.saved.overrideEnabled)
	}
	s.rig.Time.SetTimeScale(s.saved.timeScale)
	s.prepared = false
}

func (s *Sequencer) abort(err error) {
	if s.prepared {
		s.visited = append(s.visited, StateRestore)
		s.release()
	}
	s.err = err
	s.shot = Shot{}
	s.state = StateAborted
	s.logger.Warn("sequence aborted", "error", err.Error(), "frames", s.frames)
}

// shoot asks the renderer for one buffer. Renderer panics are turned into
// a fall so the caller still reaches Restore.
func (s *Sequencer) shoot() (buf *image.RGBA, err error) {
	ctx := trip.Context{"mode": s.req.Mode.String(), "stereo": s.req.Stereo, "state": s.state.String()}

	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = trip.NewFall(trip.CaptureUnavailable, fmt.Sprintf("renderer panicked: %v", r), ctx)
		}
	}()

	switch s.req.Mode {
	case ModeSimple:
		buf, err = s.renderer.CaptureScreen()
	case ModeRendered:
		buf, err = s.renderer.CaptureBuffer(s.req.Width, s.req.Height, s.req.Downscale, s.req.Alpha)
	case ModeRendered360:
		buf, err = s.renderer.CapturePanorama(s.req.PanoramaWidth)
	}

	if err != nil {
		return nil, trip.Wrap(err, trip.CaptureUnavailable,
			"Can't render a screenshot here, try a UI screenshot instead", ctx)
	}
	if buf == nil {
		return nil, trip.NewTrip(trip.CaptureUnavailable,
			"Can't render a screenshot here, try a UI screenshot instead", ctx)
	}
	return buf, nil
}
