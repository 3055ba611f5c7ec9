package pattern

import "github.com/gcpreston/webcandy-client/internal/core"

// Stripes displays the given colors as repeating fixed-width blocks.
type Stripes struct {
	colors  []core.Color
	numLEDs int
}

// NewStripes returns a static pattern tiling colors across the strip.
func NewStripes(colors []core.Color, numLEDs int) *Stripes {
	return &Stripes{colors: colors, numLEDs: numLEDs}
}

func (p *Stripes) Name() string { return "stripes" }

func (p *Stripes) Kind() Kind { return Static }

func (p *Stripes) Speed() float64 { return 0 }

func (p *Stripes) Next() core.Frame { return spread(p.colors, p.numLEDs, blockWidth) }
