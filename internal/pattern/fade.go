package pattern

import "github.com/gcpreston/webcandy-client/internal/core"

const (
	// defaultFadeSpeed is the fade frame rate when the command carries no
	// speed override.
	defaultFadeSpeed = 10
	// fadeSteps is the number of frames spent blending between two
	// neighboring colors.
	fadeSteps = 25
)

// Fade blends the whole strip through a color list, wrapping around from the
// last color back to the first.
type Fade struct {
	colors  []core.Color
	numLEDs int
	speed   float64
	segment int // index of the color being blended away from
	step    int // progress within the segment, 0..fadeSteps-1
}

// NewFade returns a dynamic pattern cycling the strip through colors.
func NewFade(colors []core.Color, numLEDs int) *Fade {
	return &Fade{colors: colors, numLEDs: numLEDs, speed: defaultFadeSpeed}
}

func (p *Fade) Name() string { return "fade" }

func (p *Fade) Kind() Kind { return Dynamic }

func (p *Fade) Speed() float64 { return p.speed }

// SetSpeed overrides the frame rate.
func (p *Fade) SetSpeed(fps float64) { p.speed = fps }

func (p *Fade) Next() core.Frame {
	from := p.colors[p.segment]
	to := p.colors[(p.segment+1)%len(p.colors)]
	c := from.Blend(to, float64(p.step)/float64(fadeSteps))

	p.step++
	if p.step == fadeSteps {
		p.step = 0
		p.segment = (p.segment + 1) % len(p.colors)
	}
	return core.SolidFrame(c, p.numLEDs)
}
