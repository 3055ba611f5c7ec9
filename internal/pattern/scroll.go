package pattern

import "github.com/gcpreston/webcandy-client/internal/core"

// defaultScrollSpeed is the scroll frame rate when the command carries no
// speed override.
const defaultScrollSpeed = 8

// Scroll shifts a block-striped frame along the strip, one LED per frame.
type Scroll struct {
	base    core.Frame
	speed   float64
	offset  int
	numLEDs int
}

// NewScroll returns a dynamic pattern scrolling colors across the strip.
func NewScroll(colors []core.Color, numLEDs int) *Scroll {
	return &Scroll{
		base:    spread(colors, numLEDs, blockWidth),
		speed:   defaultScrollSpeed,
		numLEDs: numLEDs,
	}
}

func (p *Scroll) Name() string { return "scroll" }

func (p *Scroll) Kind() Kind { return Dynamic }

func (p *Scroll) Speed() float64 { return p.speed }

// SetSpeed overrides the frame rate.
func (p *Scroll) SetSpeed(fps float64) { p.speed = fps }

func (p *Scroll) Next() core.Frame {
	n := p.numLEDs
	f := make(core.Frame, n)
	for i := range f {
		f[i] = p.base[((i-p.offset)%n+n)%n]
	}
	p.offset++
	if p.offset == n {
		p.offset = 0
	}
	return f
}
