// Package scene is a small software-rendered 3D world used as a capture
// host: a few orbiting spheres over a checkered ground, seen through a
// movable camera whose simulation time can be scaled.
package scene

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/teranos/screencap"
)

// GroundY is the height of the ground plane.
const GroundY = -1.0

// Sphere is one object of the world. A non-zero Speed makes it orbit the
// vertical axis through the origin, in radians per second of scene time.
type Sphere struct {
	Name   string
	Center screencap.Vec3
	Radius float64
	Color  colorful.Color
	Speed  float64
}

// World holds the objects and the scene time.
type World struct {
	Spheres []Sphere
	Sky     colorful.Color
	Horizon colorful.Color
	Ground  colorful.Color
	Light   screencap.Vec3

	elapsed float64
}

// DemoWorld builds a ring of colored spheres around a larger static one.
func DemoWorld() *World {
	w := &World{
		Sky:     colorful.Color{R: 0.18, G: 0.32, B: 0.62},
		Horizon: colorful.Color{R: 0.78, G: 0.84, B: 0.92},
		Ground:  colorful.Color{R: 0.30, G: 0.34, B: 0.28},
		Light:   screencap.Vec3{X: -0.4, Y: 0.8, Z: -0.45}.Normalize(),
	}

	w.Spheres = append(w.Spheres, Sphere{
		Name:   "core",
		Center: screencap.Vec3{Y: 0.2},
		Radius: 1.2,
		Color:  colorful.Hcl(40, 0.35, 0.75).Clamped(),
	})

	const ring = 8
	for i := 0; i < ring; i++ {
		angle := 2 * math.Pi * float64(i) / ring
		w.Spheres = append(w.Spheres, Sphere{
			Name:   "moon",
			Center: screencap.Vec3{X: 3.5 * math.Sin(angle), Y: -0.5 + 0.25*float64(i%3), Z: 3.5 * math.Cos(angle)},
			Radius: 0.45,
			Color:  colorful.Hcl(float64(i)*360/ring, 0.55, 0.65).Clamped(),
			Speed:  0.35,
		})
	}
	return w
}

// Tick advances scene time by dt scaled by clock.
func (w *World) Tick(dt time.Duration, clock *Clock) {
	scale := 1.0
	if clock != nil {
		scale = clock.TimeScale()
	}
	w.elapsed += dt.Seconds() * scale
}

// Elapsed returns the scene time in seconds.
func (w *World) Elapsed() float64 {
	return w.elapsed
}

// Positions returns every sphere's center at the current scene time.
func (w *World) Positions() []screencap.Vec3 {
	out := make([]screencap.Vec3, len(w.Spheres))
	for i, s := range w.Spheres {
		out[i] = orbit(s.Center, s.Speed*w.elapsed)
	}
	return out
}

func orbit(p screencap.Vec3, angle float64) screencap.Vec3 {
	if angle == 0 {
		return p
	}
	sin, cos := math.Sincos(angle)
	return screencap.Vec3{X: p.X*cos + p.Z*sin, Y: p.Y, Z: -p.X*sin + p.Z*cos}
}

// Clock is the world's time scale.
type Clock struct {
	scale float64
}

// NewClock returns a clock running at normal speed.
func NewClock() *Clock {
	return &Clock{scale: 1}
}

func (c *Clock) TimeScale() float64 {
	return c.scale
}

func (c *Clock) SetTimeScale(scale float64) {
	c.scale = scale
}

// Orbit flies the camera on a circle around the origin, always facing it.
// While enabled it repositions the camera on every Apply.
type Orbit struct {
	Radius  float64
	Height  float64
	Speed   float64
	enabled bool
	angle   float64
}

// NewOrbit returns an enabled orbit.
func NewOrbit(radius, height, speed float64) *Orbit {
	return &Orbit{Radius: radius, Height: height, Speed: speed, enabled: true}
}

func (o *Orbit) Enabled() bool {
	return o.enabled
}

func (o *Orbit) SetEnabled(enabled bool) {
	o.enabled = enabled
}

// Apply advances the orbit by dt scaled by clock and places cam on it.
// It does nothing while disabled.
func (o *Orbit) Apply(cam *Camera, dt time.Duration, clock *Clock) {
	if !o.enabled {
		return
	}
	scale := 1.0
	if clock != nil {
		scale = clock.TimeScale()
	}
	o.angle += o.Speed * dt.Seconds() * scale

	sin, cos := math.Sincos(o.angle)
	cam.SetLocalPosition(screencap.Vec3{X: o.Radius * sin, Y: o.Height, Z: -o.Radius * cos})
	cam.LookAt(screencap.Vec3{})
}

var (
	_ screencap.Renderer         = (*Renderer)(nil)
	_ screencap.Camera           = (*Camera)(nil)
	_ screencap.TimeSource       = (*Clock)(nil)
	_ screencap.PositionOverride = (*Orbit)(nil)
)
