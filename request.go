package screencap

import (
	"fmt"
	"image"

	"github.com/teranos/screencap/trip"
)

// Mode selects what kind of image a capture produces.
type Mode int

const (
	// ModeSimple grabs the presented frame as the user sees it, UI included.
	ModeSimple Mode = iota
	// ModeRendered re-renders the scene without UI at a chosen resolution.
	ModeRendered
	// ModeRendered360 renders an equirectangular panorama around the camera.
	ModeRendered360
)

func (m Mode) String() string {
	switch m {
	case ModeSimple:
		return "simple"
	case ModeRendered:
		return "rendered"
	case ModeRendered360:
		return "360"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "simple", "ui":
		return ModeSimple, nil
	case "rendered":
		return ModeRendered, nil
	case "360", "panorama":
		return ModeRendered360, nil
	default:
		return 0, fmt.Errorf("unknown capture mode %q (want simple, rendered or 360)", s)
	}
}

// CaptureRequest describes one user-triggered capture. It is a value type:
// the controller keeps its own copy for the lifetime of the sequence.
type CaptureRequest struct {
	Mode   Mode
	Stereo bool

	// Width and Height are the output size for ModeRendered.
	Width, Height int
	// PanoramaWidth is the output width of one eye for ModeRendered360.
	PanoramaWidth int
	// Downscale is the supersampling ratio for ModeRendered, at least 1.
	Downscale int
	// Alpha requests a transparent background for ModeRendered.
	Alpha bool

	// EyeSeparation is the distance between the two stereo viewpoints.
	EyeSeparation float64
	// ImageOffset is the fraction of each eye image trimmed when merging a
	// rendered stereo pair.
	ImageOffset float64
}

// Validate rejects requests no sequence could satisfy.
func (r CaptureRequest) Validate() error {
	ctx := trip.Context{"mode": r.Mode.String(), "stereo": r.Stereo}

	switch r.Mode {
	case ModeSimple:
		if r.Stereo {
			return trip.NewTrip(trip.InvalidRequest, "stereo is not available for simple screenshots", ctx)
		}
	case ModeRendered:
		if r.Width < 1 || r.Height < 1 {
			ctx["width"], ctx["height"] = r.Width, r.Height
			return trip.NewTrip(trip.InvalidRequest, "rendered resolution must be at least 1x1", ctx)
		}
		if r.Downscale < 1 {
			ctx["downscale"] = r.Downscale
			return trip.NewTrip(trip.InvalidRequest, "upsampling ratio must be at least 1", ctx)
		}
		if r.Stereo && (r.ImageOffset < 0 || r.ImageOffset >= 1) {
			ctx["image_offset"] = r.ImageOffset
			return trip.NewTrip(trip.InvalidRequest, "image separation offset must be in [0, 1)", ctx)
		}
	case ModeRendered360:
		if r.PanoramaWidth < 2 {
			ctx["panorama_width"] = r.PanoramaWidth
			return trip.NewTrip(trip.InvalidRequest, "panorama width must be at least 2", ctx)
		}
	default:
		return trip.NewTrip(trip.InvalidRequest, "unknown capture mode", ctx)
	}

	if r.Stereo && r.EyeSeparation <= 0 {
		ctx["eye_separation"] = r.EyeSeparation
		return trip.NewTrip(trip.InvalidRequest, "eye separation must be positive", ctx)
	}
	return nil
}

// Label is the human name used in messages, e.g. "Rendered 3D".
func (r CaptureRequest) Label() string {
	var label string
	switch r.Mode {
	case ModeSimple:
		label = "UI"
	case ModeRendered:
		label = "Rendered"
	case ModeRendered360:
		label = "360"
	default:
		label = "Unknown"
	}
	if r.Stereo {
		label += " 3D"
	}
	return label
}

// StereoPair holds the two eye images of a stereo capture.
type StereoPair struct {
	Left, Right *image.RGBA
}

// Shot is what a finished sequence hands to the compositor: either Mono or
// Pair is set.
type Shot struct {
	Mono *image.RGBA
	Pair *StereoPair
}
