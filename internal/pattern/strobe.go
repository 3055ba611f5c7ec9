package pattern

import (
	"context"
	"io"

	"github.com/gcpreston/webcandy-client/internal/core"
)

// Strobe decorates any pattern, alternating its frames with all-off frames.
// The wrapped pattern's cursor only advances on the on-phase, so every
// generated frame is shown before being blanked.
type Strobe struct {
	wrapped Pattern
	numLEDs int
	on      bool
}

// NewStrobe wraps p with a strobe effect.
func NewStrobe(p Pattern, numLEDs int) *Strobe {
	return &Strobe{wrapped: p, numLEDs: numLEDs, on: true}
}

func (p *Strobe) Name() string { return p.wrapped.Name() }

func (p *Strobe) Kind() Kind { return p.wrapped.Kind() }

func (p *Strobe) Speed() float64 { return p.wrapped.Speed() }

func (p *Strobe) Next() core.Frame {
	if p.on {
		p.on = false
		return p.wrapped.Next()
	}
	p.on = true
	return core.BlackFrame(p.numLEDs)
}

// SetContext forwards the run context to the wrapped pattern.
func (p *Strobe) SetContext(ctx context.Context) {
	if cs, ok := p.wrapped.(contextSetter); ok {
		cs.SetContext(ctx)
	}
}

// Close forwards to the wrapped pattern so a decorated script still releases
// its interpreter state when the run ends.
func (p *Strobe) Close() error {
	if c, ok := p.wrapped.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
