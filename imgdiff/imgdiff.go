// Package imgdiff compares captures pixel by pixel, for checking a new
// capture against a known-good baseline.
package imgdiff

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultTolerance is the share of pixels allowed to differ.
const DefaultTolerance = 0.05

// Difference returns the share of pixels that differ between a and b, from
// 0 for identical images to 1. Images of different bounds differ entirely.
func Difference(a, b image.Image) float64 {
	ba, bb := a.Bounds(), b.Bounds()
	if ba.Size() != bb.Size() {
		return 1
	}
	total := ba.Dx() * ba.Dy()
	if total == 0 {
		return 0
	}

	different := 0
	for y := 0; y < ba.Dy(); y++ {
		for x := 0; x < ba.Dx(); x++ {
			if !sameColor(a.At(ba.Min.X+x, ba.Min.Y+y), b.At(bb.Min.X+x, bb.Min.Y+y)) {
				different++
			}
		}
	}
	return float64(different) / float64(total)
}

func sameColor(c1, c2 color.Color) bool {
	r1, g1, b1, a1 := c1.RGBA()
	r2, g2, b2, a2 := c2.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

// Diff draws baseline dimmed to half brightness with every differing pixel
// in red. Both images must have the same size.
func Diff(baseline, current image.Image) (*image.RGBA, error) {
	bb, bc := baseline.Bounds(), current.Bounds()
	if bb.Size() != bc.Size() {
		return nil, fmt.Errorf("size mismatch: %v vs %v", bb.Size(), bc.Size())
	}

	out := image.NewRGBA(image.Rect(0, 0, bb.Dx(), bb.Dy()))
	red := color.RGBA{R: 255, A: 255}
	for y := 0; y < bb.Dy(); y++ {
		for x := 0; x < bb.Dx(); x++ {
			base := baseline.At(bb.Min.X+x, bb.Min.Y+y)
			if !sameColor(base, current.At(bc.Min.X+x, bc.Min.Y+y)) {
				out.SetRGBA(x, y, red)
				continue
			}
			r, g, b, a := base.RGBA()
			out.SetRGBA(x, y, color.RGBA{R: uint8(r >> 9), G: uint8(g >> 9), B: uint8(b >> 9), A: uint8(a >> 8)})
		}
	}
	return out, nil
}

// Checker holds named baselines in one directory and compares new captures
// against them.
type Checker struct {
	fs        afero.Fs
	dir       string
	Tolerance float64
}

// NewChecker creates a checker with baselines under dir.
func NewChecker(fs afero.Fs, dir string) *Checker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Checker{fs: fs, dir: dir, Tolerance: DefaultTolerance}
}

func (c *Checker) path(name, suffix string) string {
	return filepath.Join(c.dir, name+suffix+".png")
}

// SetBaseline stores an encoded PNG as the baseline for name.
func (c *Checker) SetBaseline(name string, data []byte) error {
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("baseline %s is not a PNG: %w", name, err)
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}
	return afero.WriteFile(c.fs, c.path(name, ""), data, 0o644)
}

// Check compares an encoded PNG with the baseline for name. It returns the
// difference, and an error when it exceeds the tolerance. A diff image is
// then written next to the baseline as <name>_diff.png.
func (c *Checker) Check(name string, data []byte) (float64, error) {
	baseline, err := c.load(c.path(name, ""))
	if err != nil {
		return 1, fmt.Errorf("failed to load baseline: %w", err)
	}
	current, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return 1, fmt.Errorf("failed to decode capture: %w", err)
	}

	d := Difference(baseline, current)
	if d <= c.Tolerance {
		return d, nil
	}

	err = fmt.Errorf("%s differs from baseline: %.2f%% of pixels (tolerance %.2f%%)",
		name, d*100, c.Tolerance*100)
	if werr := c.writeDiff(name, baseline, current); werr != nil {
		return d, fmt.Errorf("%w; diff image not written: %v", err, werr)
	}
	return d, err
}

// writeDiff stores the Diff of baseline and current as <name>_diff.png.
// Images of different sizes get no diff image.
func (c *Checker) writeDiff(name string, baseline, current image.Image) error {
	if baseline.Bounds().Size() != current.Bounds().Size() {
		return nil
	}
	diff, err := Diff(baseline, current)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, diff); err != nil {
		return fmt.Errorf("failed to encode diff: %w", err)
	}
	return afero.WriteFile(c.fs, c.path(name, "_diff"), buf.Bytes(), 0o644)
}

func (c *Checker) load(path string) (image.Image, error) {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}
