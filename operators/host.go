package operators

import (
	"context"
	"time"

	"github.com/teranos/screencap"
	"github.com/teranos/screencap/scene"
)

// Host is the live scene an operator drives: the world, the camera flying
// through it, and the renderer presenting one frame per Step.
type Host struct {
	World    *scene.World
	Camera   *scene.Camera
	Clock    *scene.Clock
	Orbit    *scene.Orbit
	Renderer *scene.Renderer

	Width         int
	Height        int
	FrameInterval time.Duration

	// HUDText is drawn over every presented frame.
	HUDText string

	frames int
}

// NewDemoHost sets up the demo world with an orbiting camera.
func NewDemoHost(width, height int, interval time.Duration) *Host {
	world := scene.DemoWorld()
	cam := scene.NewCamera(screencap.Vec3{Y: 1.5, Z: -8}, screencap.Vec3{})
	if interval <= 0 {
		interval = time.Second / 30
	}
	return &Host{
		World:         world,
		Camera:        cam,
		Clock:         scene.NewClock(),
		Orbit:         scene.NewOrbit(8, 1.5, 0.25),
		Renderer:      scene.NewRenderer(world, cam, nil),
		Width:         width,
		Height:        height,
		FrameInterval: interval,
	}
}

// Rig returns the resources a capture borrows from this host.
func (h *Host) Rig() screencap.Rig {
	return screencap.Rig{Camera: h.Camera, Time: h.Clock, Override: h.Orbit}
}

// Frames returns how many frames have been presented.
func (h *Host) Frames() int {
	return h.frames
}

// Step advances the scene by one frame interval and presents the result.
func (h *Host) Step() error {
	h.World.Tick(h.FrameInterval, h.Clock)
	h.Orbit.Apply(h.Camera, h.FrameInterval, h.Clock)
	h.Renderer.HUD().SetText(h.HUDText)
	if _, err := h.Renderer.Present(h.Width, h.Height); err != nil {
		return err
	}
	h.frames++
	return nil
}

// WaitFrame renders exactly one frame, which makes a Host usable as the
// frame barrier of a headless capture.
func (h *Host) WaitFrame(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.Step()
}

var _ screencap.FrameBarrier = (*Host)(nil)
