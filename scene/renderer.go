package scene

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sort"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// DefaultMaxPixels bounds the size of any single render target.
const DefaultMaxPixels = 1 << 26

// ErrNoFrame is returned by CaptureScreen before the first Present.
var ErrNoFrame = errors.New("no frame has been presented yet")

// Renderer draws the world through a camera. Present produces the frame the
// user sees, HUD included; the Capture methods render off-screen copies
// without touching anything the host can observe.
type Renderer struct {
	world  *World
	camera *Camera
	hud    *HUD

	// MaxPixels limits the supersampled target of CaptureBuffer and the
	// panorama size. The supersampling ratio is lowered to fit.
	MaxPixels int

	last *image.RGBA
}

// NewRenderer creates a renderer for world as seen by camera.
func NewRenderer(world *World, camera *Camera, hud *HUD) *Renderer {
	if hud == nil {
		hud = NewHUD(DefaultHUDConfig())
	}
	return &Renderer{world: world, camera: camera, hud: hud, MaxPixels: DefaultMaxPixels}
}

// HUD returns the overlay drawn on presented frames.
func (r *Renderer) HUD() *HUD {
	return r.hud
}

// Present renders the on-screen frame at w x h with the HUD on top and keeps
// it for CaptureScreen.
func (r *Renderer) Present(w, h int) (*image.RGBA, error) {
	frame, err := r.render(w, h, false)
	if err != nil {
		return nil, err
	}
	r.hud.Draw(frame)
	r.last = frame
	return frame, nil
}

// CaptureScreen returns a copy of the last presented frame.
func (r *Renderer) CaptureScreen() (*image.RGBA, error) {
	if r.last == nil {
		return nil, ErrNoFrame
	}
	out := image.NewRGBA(r.last.Rect)
	copy(out.Pix, r.last.Pix)
	return out, nil
}

// CaptureBuffer renders the scene without HUD. With downscale above 1 the
// scene is drawn that many times larger and filtered down with Catmull-Rom.
func (r *Renderer) CaptureBuffer(width, height, downscale int, alpha bool) (*image.RGBA, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid capture size %dx%d", width, height)
	}
	if downscale < 1 {
		downscale = 1
	}
	for downscale > 1 && r.tooLarge(width*downscale, height*downscale) {
		downscale--
	}

	big, err := r.render(width*downscale, height*downscale, alpha)
	if err != nil {
		return nil, err
	}
	if downscale == 1 {
		return big, nil
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), big, big.Bounds(), xdraw.Src, nil)
	return out, nil
}

func (r *Renderer) tooLarge(w, h int) bool {
	return r.MaxPixels > 0 && w*h > r.MaxPixels
}

type projected struct {
	x, y, radius, depth float64
	color               colorful.Color
}

// render draws background and spheres, far to near.
func (r *Renderer) render(w, h int, alpha bool) (*image.RGBA, error) {
	if r.tooLarge(w, h) {
		return nil, fmt.Errorf("render target %dx%d exceeds %d pixels", w, h, r.MaxPixels)
	}

	dc := gg.NewContext(w, h)
	defer dc.Close()

	if alpha {
		dc.Clear()
	} else if err := r.background(dc, w, h); err != nil {
		return nil, err
	}

	f := r.camera.focal(h)
	var items []projected
	for i, center := range r.world.Positions() {
		s := r.world.Spheres[i]
		x, y, depth, ok := r.camera.project(center, w, h)
		if !ok {
			continue
		}
		items = append(items, projected{x: x, y: y, radius: f * s.Radius / depth, depth: depth, color: s.Color})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].depth > items[j].depth })

	white := colorful.Color{R: 1, G: 1, B: 1}
	for _, it := range items {
		dc.SetColor(it.color)
		dc.DrawCircle(it.x, it.y, it.radius)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("failed to draw sphere: %w", err)
		}

		dc.SetColor(it.color.BlendRgb(white, 0.35))
		dc.DrawCircle(it.x-it.radius*0.3, it.y-it.radius*0.3, it.radius*0.35)
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("failed to draw highlight: %w", err)
		}
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("failed to flush render target: %w", err)
	}
	return toRGBA(dc.Image()), nil
}

// background fills the sky and, below the horizon line, the ground.
func (r *Renderer) background(dc *gg.Context, w, h int) error {
	sky := r.world.Sky.BlendHcl(r.world.Horizon, 0.5).Clamped()
	dc.ClearWithColor(gg.FromColor(sky))

	horizon := r.horizonY(h)
	if horizon >= float64(h) {
		return nil
	}
	top := horizon
	if top < 0 {
		top = 0
	}
	dc.SetColor(r.world.Ground)
	dc.DrawRectangle(0, top, float64(w), float64(h)-top)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("failed to draw ground: %w", err)
	}
	return nil
}

// horizonY is the screen row of the horizon for a view h pixels high.
func (r *Renderer) horizonY(h int) float64 {
	f := r.camera.focal(h)
	return float64(h)/2 + f*tanClamped(r.camera.pitch)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
