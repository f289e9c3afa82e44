package screencap

import (
	"context"
	"image"
)

// Renderer turns the current camera state into pixels.
//
// Every method may be called several times within one capture sequence and
// must not change anything the host can observe other than the pixels it
// returns. A nil buffer or a non-nil error means there is no capture surface
// right now; the sequence then aborts with a capture_unavailable trip.
type Renderer interface {
	// CaptureBuffer renders the scene without UI at width x height. When
	// downscale is above 1 the scene is rendered downscale times larger and
	// filtered down. With alpha set the background is transparent.
	CaptureBuffer(width, height, downscale int, alpha bool) (*image.RGBA, error)

	// CapturePanorama renders an equirectangular image of resolution x
	// resolution/2 pixels around the camera.
	CapturePanorama(resolution int) (*image.RGBA, error)

	// CaptureScreen returns the last presented frame exactly as the user
	// sees it, UI included.
	CaptureScreen() (*image.RGBA, error)
}

// Camera is the transform the sequencer perturbs for stereo captures.
type Camera interface {
	LocalPosition() Vec3
	SetLocalPosition(p Vec3)
	// Right is the camera's local right axis, normalized.
	Right() Vec3
}

// TimeSource is the host's global simulation time scale.
type TimeSource interface {
	TimeScale() float64
	SetTimeScale(scale float64)
}

// PositionOverride is a host controller that keeps forcing the camera to its
// own idea of where the camera belongs. It is switched off while the
// sequencer moves the camera so the offsets are not reverted.
type PositionOverride interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// Rig bundles the shared mutable resources one capture sequence owns between
// Prepare and Restore. Override may be nil.
type Rig struct {
	Camera   Camera
	Time     TimeSource
	Override PositionOverride
}

// FrameBarrier suspends until the host has completed exactly one more
// rendered frame.
type FrameBarrier interface {
	WaitFrame(ctx context.Context) error
}

// Sink persists one encoded capture.
type Sink interface {
	Write(filename string, data []byte) error
}

// PanoramaTagger marks an encoded PNG as a spherical panorama.
type PanoramaTagger interface {
	Tag(png []byte, stereo bool) ([]byte, error)
}

// Notifier carries user feedback: an on-screen (or log-only) message and the
// shutter sound.
type Notifier interface {
	Notify(message string, onScreen bool)
	Shutter()
}

// SettingsStore holds named setting values. Policy is its only writer.
type SettingsStore interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
}
