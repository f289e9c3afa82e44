package screencap

import (
	"fmt"
	"image"
	"math"

	"github.com/teranos/screencap/trip"
)

// MergeStereoRendered places a rendered stereo pair side by side for
// crossed-eye viewing.
//
// offset is the fraction of the width trimmed from each eye image: the left
// image loses its last trim columns and the right image its first trim
// columns, where trim = floor(width*offset). The result is
// 2*(width-trim) pixels wide. With offset 0 it is a plain concatenation.
func MergeStereoRendered(left, right *image.RGBA, offset float64) (*image.RGBA, error) {
	if err := checkPair(left, right); err != nil {
		return nil, err
	}

	w, h := left.Rect.Dx(), left.Rect.Dy()
	if math.IsNaN(offset) || offset < 0 || offset > 1 {
		return nil, trip.NewFall(trip.DimensionMismatch, "image separation offset outside [0, 1]",
			trip.Context{"offset": offset})
	}

	trim := int(math.Floor(float64(w) * offset))
	half := w - trim
	if half <= 0 {
		return nil, trip.NewFall(trip.DimensionMismatch, "image separation offset trims the whole image",
			trip.Context{"offset": offset, "width": w})
	}

	dst := image.NewRGBA(image.Rect(0, 0, 2*half, h))
	for y := 0; y < h; y++ {
		copyRow(dst, 0, y, left, 0, half)
		copyRow(dst, half, y, right, trim, half)
	}
	return dst, nil
}

// MergePanorama360 concatenates two equirectangular eye images, left then
// right, without trimming anything.
func MergePanorama360(left, right *image.RGBA) (*image.RGBA, error) {
	if err := checkPair(left, right); err != nil {
		return nil, err
	}

	w, h := left.Rect.Dx(), left.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, 2*w, h))
	for y := 0; y < h; y++ {
		copyRow(dst, 0, y, left, 0, w)
		copyRow(dst, w, y, right, 0, w)
	}
	return dst, nil
}

// Merge composes a finished shot according to the request that produced
// it. Mono shots pass through untouched.
func Merge(req CaptureRequest, shot Shot) (*image.RGBA, error) {
	if shot.Pair == nil {
		if shot.Mono == nil {
			return nil, trip.NewFall(trip.DimensionMismatch, "sequence produced no image", nil)
		}
		return shot.Mono, nil
	}
	if req.Mode == ModeRendered360 {
		return MergePanorama360(shot.Pair.Left, shot.Pair.Right)
	}
	return MergeStereoRendered(shot.Pair.Left, shot.Pair.Right, req.ImageOffset)
}

func checkPair(left, right *image.RGBA) error {
	if left == nil || right == nil {
		return trip.NewFall(trip.DimensionMismatch, "stereo merge needs two images",
			trip.Context{"left_nil": left == nil, "right_nil": right == nil})
	}
	ls, rs := left.Rect.Size(), right.Rect.Size()
	if ls != rs {
		return trip.NewFall(trip.DimensionMismatch,
			fmt.Sprintf("stereo halves differ: left %dx%d, right %dx%d", ls.X, ls.Y, rs.X, rs.Y),
			trip.Context{"left": ls.String(), "right": rs.String()})
	}
	if ls.X == 0 || ls.Y == 0 {
		return trip.NewFall(trip.DimensionMismatch, "stereo halves are empty",
			trip.Context{"size": ls.String()})
	}
	return nil
}

// copyRow copies n pixels of row y of src, starting at column srcX relative
// to src's bounds, into dst at column dstX.
func copyRow(dst *image.RGBA, dstX, y int, src *image.RGBA, srcX, n int) {
	s := src.PixOffset(src.Rect.Min.X+srcX, src.Rect.Min.Y+y)
	d := dst.PixOffset(dst.Rect.Min.X+dstX, dst.Rect.Min.Y+y)
	copy(dst.Pix[d:d+4*n], src.Pix[s:s+4*n])
}
