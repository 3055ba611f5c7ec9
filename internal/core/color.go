package core

import (
	"fmt"
	"regexp"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a single LED color as 8-bit RGB channels, matching the wire
// format of the Open Pixel Control protocol.
type Color struct {
	R, G, B uint8
}

// Black is the off color.
var Black = Color{}

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ParseColor converts a "#RRGGBB" string into a Color.
func ParseColor(s string) (Color, error) {
	if !hexColorRe.MatchString(s) {
		return Color{}, fmt.Errorf("expected a color in the format '#RRGGBB', got %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("expected a color in the format '#RRGGBB', got %q", s)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// ParseColorList converts a list of "#RRGGBB" strings into Colors.
func ParseColorList(list []string) ([]Color, error) {
	colors := make([]Color, 0, len(list))
	for _, s := range list {
		c, err := ParseColor(s)
		if err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, nil
}

// Hex returns the "#rrggbb" form of c.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Blend mixes c toward other by t in [0, 1] in the Lab color space, which
// keeps intermediate colors perceptually even.
func (c Color) Blend(other Color, t float64) Color {
	from := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	to := colorful.Color{R: float64(other.R) / 255, G: float64(other.G) / 255, B: float64(other.B) / 255}
	r, g, b := from.BlendLab(to, t).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// Frame is one complete set of per-LED colors, index 0 being the first LED
// on the strip.
type Frame []Color

// SolidFrame returns a frame with every LED set to c.
func SolidFrame(c Color, numLEDs int) Frame {
	f := make(Frame, numLEDs)
	for i := range f {
		f[i] = c
	}
	return f
}

// BlackFrame returns an all-off frame.
func BlackFrame(numLEDs int) Frame {
	return make(Frame, numLEDs)
}
