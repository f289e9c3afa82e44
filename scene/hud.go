package scene

import (
	"image"
	"image/color"
	"image/draw"
	"regexp"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// HUDConfig defines the on-screen overlay layout
type HUDConfig struct {
	Columns    int        // Panel width in characters
	Rows       int        // Panel height in characters
	Margin     int        // Distance from the frame's top-left corner in pixels
	Background color.RGBA // Panel color, may be translucent
	Foreground color.RGBA // Text color
}

// DefaultHUDConfig is a translucent dark panel with light text.
func DefaultHUDConfig() HUDConfig {
	return HUDConfig{
		Columns:    48,
		Rows:       6,
		Margin:     8,
		Background: color.RGBA{0, 0, 0, 160},
		Foreground: color.RGBA{235, 235, 235, 255},
	}
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// HUD draws text lines over a presented frame, the part of the screen that
// rendered captures leave out.
type HUD struct {
	config     HUDConfig
	buffer     [][]rune
	charWidth  int
	charHeight int
	face       font.Face
}

// NewHUD creates an empty overlay.
func NewHUD(config HUDConfig) *HUD {
	if config.Columns <= 0 || config.Rows <= 0 {
		config = DefaultHUDConfig()
	}
	h := &HUD{
		config:     config,
		buffer:     make([][]rune, config.Rows),
		charWidth:  7,
		charHeight: 13,
		face:       basicfont.Face7x13,
	}
	for i := range h.buffer {
		h.buffer[i] = make([]rune, config.Columns)
	}
	return h
}

// SetText replaces the overlay content. ANSI escapes are stripped; lines and
// columns beyond the panel size are cut.
func (h *HUD) SetText(text string) {
	for i := range h.buffer {
		for j := range h.buffer[i] {
			h.buffer[i][j] = ' '
		}
	}

	for row, line := range strings.Split(text, "\n") {
		if row >= h.config.Rows {
			break
		}
		for col, char := range []rune(ansiRegex.ReplaceAllString(line, "")) {
			if col >= h.config.Columns {
				break
			}
			h.buffer[row][col] = char
		}
	}
}

// Text returns the overlay content with trailing blanks trimmed.
func (h *HUD) Text() string {
	lines := make([]string, 0, len(h.buffer))
	for _, row := range h.buffer {
		lines = append(lines, strings.TrimRight(string(row), " "))
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// Bounds is the panel rectangle inside a frame.
func (h *HUD) Bounds() image.Rectangle {
	m := h.config.Margin
	return image.Rect(m, m, m+h.config.Columns*h.charWidth+8, m+h.config.Rows*h.charHeight+6)
}

// Draw paints the panel and its text onto dst. Nothing is drawn when the
// overlay is empty.
func (h *HUD) Draw(dst draw.Image) {
	if h.Text() == "" {
		return
	}

	panel := h.Bounds().Intersect(dst.Bounds())
	draw.Draw(dst, panel, image.NewUniform(h.config.Background), image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(h.config.Foreground),
		Face: h.face,
	}

	origin := h.Bounds().Min.Add(image.Pt(4, 3))
	for lineIdx, line := range h.buffer {
		for charIdx, char := range line {
			if char == ' ' || char == 0 {
				continue
			}

			x := origin.X + charIdx*h.charWidth
			y := origin.Y + (lineIdx+1)*h.charHeight - 2

			drawer.Dot = fixed.Point26_6{
				X: fixed.Int26_6(x << 6),
				Y: fixed.Int26_6(y << 6),
			}

			drawer.DrawString(string(char))
		}
	}
}
