package pattern

import "github.com/gcpreston/webcandy-client/internal/core"

// SolidColor displays one color across the whole strip.
type SolidColor struct {
	name    string
	color   core.Color
	numLEDs int
}

// NewSolidColor returns a static pattern showing color on every LED.
func NewSolidColor(color core.Color, numLEDs int) *SolidColor {
	return &SolidColor{name: "solid_color", color: color, numLEDs: numLEDs}
}

// NewOff returns the degenerate all-black solid color that turns the strip
// off.
func NewOff(numLEDs int) *SolidColor {
	return &SolidColor{name: "off", color: core.Black, numLEDs: numLEDs}
}

func (p *SolidColor) Name() string { return p.name }

func (p *SolidColor) Kind() Kind { return Static }

func (p *SolidColor) Speed() float64 { return 0 }

func (p *SolidColor) Next() core.Frame { return core.SolidFrame(p.color, p.numLEDs) }
