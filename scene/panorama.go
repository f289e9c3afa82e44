package scene

import (
	"fmt"
	"image"
	"math"
	"runtime"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sourcegraph/conc/pool"
	"github.com/teranos/screencap"
)

// panoramaBand is how many rows one worker traces at a time.
const panoramaBand = 16

type sphereHit struct {
	center screencap.Vec3
	radius float64
	r, g, b float64
}

// CapturePanorama traces an equirectangular image of resolution x
// resolution/2 pixels around the camera. The panorama is level: it follows
// the camera's heading but ignores its pitch. Rows are traced in parallel.
func (r *Renderer) CapturePanorama(resolution int) (*image.RGBA, error) {
	w, h := resolution, resolution/2
	if w < 2 || h < 1 {
		return nil, fmt.Errorf("invalid panorama resolution %d", resolution)
	}
	if r.tooLarge(w, h) {
		return nil, fmt.Errorf("panorama %dx%d exceeds %d pixels", w, h, r.MaxPixels)
	}

	origin := r.camera.LocalPosition()
	sy, cy := math.Sincos(r.camera.yaw)
	forward := screencap.Vec3{X: sy, Z: cy}
	right := screencap.Vec3{X: cy, Z: -sy}
	up := screencap.Vec3{Y: 1}

	positions := r.world.Positions()
	spheres := make([]sphereHit, len(positions))
	for i, c := range positions {
		s := r.world.Spheres[i]
		spheres[i] = sphereHit{center: c, radius: s.Radius, r: s.Color.R, g: s.Color.G, b: s.Color.B}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for y0 := 0; y0 < h; y0 += panoramaBand {
		y1 := min(y0+panoramaBand, h)
		p.Go(func() {
			for y := y0; y < y1; y++ {
				lat := math.Pi/2 - (float64(y)+0.5)/float64(h)*math.Pi
				sky := r.skyAt(lat)
				slat, clat := math.Sincos(lat)
				for x := 0; x < w; x++ {
					lon := (float64(x)+0.5)/float64(w)*2*math.Pi - math.Pi
					slon, clon := math.Sincos(lon)
					dir := forward.Scale(clat * clon).Add(right.Scale(clat * slon)).Add(up.Scale(slat))
					cr, cg, cb := r.trace(origin, dir, spheres, sky)
					i := img.PixOffset(x, y)
					img.Pix[i+0] = to8(cr)
					img.Pix[i+1] = to8(cg)
					img.Pix[i+2] = to8(cb)
					img.Pix[i+3] = 0xff
				}
			}
		})
	}
	p.Wait()
	return img, nil
}

// trace returns the color seen along one ray.
func (r *Renderer) trace(origin, dir screencap.Vec3, spheres []sphereHit, sky colorful.Color) (float64, float64, float64) {
	best := math.Inf(1)
	var hit *sphereHit
	for i := range spheres {
		s := &spheres[i]
		oc := origin.Sub(s.center)
		b := oc.Dot(dir)
		c := oc.Dot(oc) - s.radius*s.radius
		disc := b*b - c
		if disc < 0 {
			continue
		}
		t := -b - math.Sqrt(disc)
		if t > 1e-6 && t < best {
			best, hit = t, s
		}
	}

	if dir.Y < 0 {
		if t := (GroundY - origin.Y) / dir.Y; t > 0 && t < best {
			p := origin.Add(dir.Scale(t))
			g := r.world.Ground
			if (int(math.Floor(p.X))+int(math.Floor(p.Z)))&1 == 0 {
				return g.R * 0.8, g.G * 0.8, g.B * 0.8
			}
			return g.R, g.G, g.B
		}
	}

	if hit == nil {
		return sky.R, sky.G, sky.B
	}
	n := origin.Add(dir.Scale(best)).Sub(hit.center).Scale(1 / hit.radius)
	shade := 0.25 + 0.75*math.Max(0, n.Dot(r.world.Light))
	return hit.r * shade, hit.g * shade, hit.b * shade
}

// skyAt blends from horizon to zenith color by elevation.
func (r *Renderer) skyAt(lat float64) colorful.Color {
	t := math.Max(0, lat) / (math.Pi / 2)
	return r.world.Horizon.BlendHcl(r.world.Sky, t).Clamped()
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func tanClamped(a float64) float64 {
	return math.Tan(math.Max(-1.5, math.Min(1.5, a)))
}
