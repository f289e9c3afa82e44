package scene

import (
	"math"

	"github.com/teranos/screencap"
)

// DefaultFOV is the vertical field of view in degrees.
const DefaultFOV = 60.0

// Camera is a yaw/pitch camera. Yaw 0 looks down +Z; positive yaw turns
// toward +X.
type Camera struct {
	pos   screencap.Vec3
	yaw   float64
	pitch float64
	fov   float64
}

// NewCamera places a camera at pos looking at target.
func NewCamera(pos, target screencap.Vec3) *Camera {
	c := &Camera{pos: pos, fov: DefaultFOV}
	c.LookAt(target)
	return c
}

func (c *Camera) LocalPosition() screencap.Vec3 {
	return c.pos
}

func (c *Camera) SetLocalPosition(p screencap.Vec3) {
	c.pos = p
}

// Forward is the viewing direction.
func (c *Camera) Forward() screencap.Vec3 {
	sy, cy := math.Sincos(c.yaw)
	sp, cp := math.Sincos(c.pitch)
	return screencap.Vec3{X: cp * sy, Y: sp, Z: cp * cy}
}

// Right is horizontal and perpendicular to Forward.
func (c *Camera) Right() screencap.Vec3 {
	sy, cy := math.Sincos(c.yaw)
	return screencap.Vec3{X: cy, Z: -sy}
}

// Up completes the camera basis.
func (c *Camera) Up() screencap.Vec3 {
	return c.Forward().Cross(c.Right())
}

// Yaw returns the heading in radians.
func (c *Camera) Yaw() float64 {
	return c.yaw
}

// Pitch returns the elevation in radians.
func (c *Camera) Pitch() float64 {
	return c.pitch
}

// Turn adds to yaw and pitch. Pitch is kept short of straight up or down.
func (c *Camera) Turn(dYaw, dPitch float64) {
	c.yaw = math.Mod(c.yaw+dYaw, 2*math.Pi)
	c.pitch = math.Max(-1.5, math.Min(1.5, c.pitch+dPitch))
}

// LookAt points the camera at target. It keeps the current orientation when
// target is the camera position.
func (c *Camera) LookAt(target screencap.Vec3) {
	d := target.Sub(c.pos)
	if d.Len() == 0 {
		return
	}
	c.yaw = math.Atan2(d.X, d.Z)
	c.pitch = math.Atan2(d.Y, math.Hypot(d.X, d.Z))
}

// FOV returns the vertical field of view in degrees.
func (c *Camera) FOV() float64 {
	return c.fov
}

// SetFOV sets the vertical field of view, clamped to [10, 150] degrees.
func (c *Camera) SetFOV(deg float64) {
	c.fov = math.Max(10, math.Min(150, deg))
}

// project maps a world point to screen coordinates of a w x h view and
// returns its depth along Forward. ok is false behind the near plane.
func (c *Camera) project(p screencap.Vec3, w, h int) (x, y, depth float64, ok bool) {
	d := p.Sub(c.pos)
	depth = d.Dot(c.Forward())
	if depth < 0.05 {
		return 0, 0, depth, false
	}
	f := c.focal(h)
	x = float64(w)/2 + f*d.Dot(c.Right())/depth
	y = float64(h)/2 - f*d.Dot(c.Up())/depth
	return x, y, depth, true
}

// focal is the focal length in pixels for a view h pixels high.
func (c *Camera) focal(h int) float64 {
	return float64(h) / 2 / math.Tan(c.fov*math.Pi/360)
}
