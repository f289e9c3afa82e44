package screencap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/screencap/trip"
)

func TestCaptureRequest_Validate(t *testing.T) {
	valid := []CaptureRequest{
		{Mode: ModeSimple},
		renderedRequest(false),
		renderedRequest(true),
		{Mode: ModeRendered360, PanoramaWidth: 1024},
		{Mode: ModeRendered360, Stereo: true, PanoramaWidth: 1024, EyeSeparation: 0.18},
	}
	for _, req := range valid {
		assert.NoError(t, req.Validate(), req.Label())
	}

	zeroSep := renderedRequest(true)
	zeroSep.EyeSeparation = 0
	fullTrim := renderedRequest(true)
	fullTrim.ImageOffset = 1
	noDownscale := renderedRequest(false)
	noDownscale.Downscale = 0

	invalid := map[string]CaptureRequest{
		"simple stereo": {Mode: ModeSimple, Stereo: true, EyeSeparation: 0.1},
		"zero width":    {Mode: ModeRendered, Height: 10, Downscale: 1},
		"no downscale":  noDownscale,
		"full trim":     fullTrim,
		"zero sep":      zeroSep,
		"tiny pano":     {Mode: ModeRendered360, PanoramaWidth: 1},
		"unknown mode":  {Mode: Mode(7)},
	}
	for name, req := range invalid {
		err := req.Validate()
		require.Error(t, err, name)
		assert.True(t, trip.Is(err, trip.InvalidRequest), name)
	}
}

func TestCaptureRequest_Label(t *testing.T) {
	assert.Equal(t, "UI", CaptureRequest{Mode: ModeSimple}.Label())
	assert.Equal(t, "Rendered 3D", renderedRequest(true).Label())
	assert.Equal(t, "360", CaptureRequest{Mode: ModeRendered360}.Label())
	assert.Equal(t, "360 3D", CaptureRequest{Mode: ModeRendered360, Stereo: true}.Label())
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"simple":   ModeSimple,
		"ui":       ModeSimple,
		"rendered": ModeRendered,
		"360":      ModeRendered360,
		"panorama": ModeRendered360,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("video")
	assert.Error(t, err)

	for _, m := range []Mode{ModeSimple, ModeRendered, ModeRendered360} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestVec3(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{0.5, 0, -1}

	assert.Equal(t, Vec3{1.5, 2, 2}, a.Add(b))
	assert.Equal(t, Vec3{0.5, 2, 4}, a.Sub(b))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.InDelta(t, 5.0, Vec3{3, 4, 0}.Len(), 1e-12)
	assert.True(t, a.ApproxEqual(Vec3{1.0000001, 2, 3}, 1e-6))
	assert.False(t, a.ApproxEqual(b, 1e-6))
}

func TestVec3_Products(t *testing.T) {
	x, y, z := Vec3{X: 1}, Vec3{Y: 1}, Vec3{Z: 1}

	assert.Equal(t, 0.0, x.Dot(y))
	assert.Equal(t, 14.0, Vec3{1, 2, 3}.Dot(Vec3{1, 2, 3}))
	assert.Equal(t, y, z.Cross(x))
	assert.Equal(t, z, x.Cross(y))
	assert.InDelta(t, 1.0, Vec3{3, 4, 12}.Normalize().Len(), 1e-12)
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
}
