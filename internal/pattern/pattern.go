// Package pattern implements the lighting configurations the client can run
// and the catalog that builds them from incoming commands.
package pattern

import (
	"context"

	"github.com/gcpreston/webcandy-client/internal/core"
)

// Kind tells a runner how a pattern wants to be driven.
type Kind int

const (
	// Static patterns render a single frame and are done.
	Static Kind = iota
	// Dynamic patterns produce frames indefinitely at Speed() frames per
	// second.
	Dynamic
)

// String returns the wire name of the kind, as advertised in the session
// handshake.
func (k Kind) String() string {
	if k == Dynamic {
		return "dynamic"
	}
	return "static"
}

// Pattern is one lighting configuration instance. A pattern is built for a
// single command, driven by exactly one runner and discarded when the run
// ends; Next is never called concurrently.
type Pattern interface {
	// Name returns the catalog name the pattern was built under.
	Name() string
	// Kind reports whether the pattern is static or dynamic.
	Kind() Kind
	// Speed returns the frame rate in frames per second. Zero for static
	// patterns.
	Speed() float64
	// Next produces the next frame, advancing the pattern's cursor.
	Next() core.Frame
}

// speedSetter is implemented by dynamic patterns that accept the optional
// per-command speed override.
type speedSetter interface {
	SetSpeed(fps float64)
}

// contextSetter is implemented by patterns whose Next can block inside an
// interpreter; binding the run context lets cancellation interrupt it.
type contextSetter interface {
	SetContext(ctx context.Context)
}

// blockWidth is the number of LEDs each color occupies in block patterns
// such as stripes and scroll.
const blockWidth = 8

// spread tiles colors across a frame in blocks of width LEDs each.
func spread(colors []core.Color, numLEDs, width int) core.Frame {
	f := make(core.Frame, numLEDs)
	for i := range f {
		f[i] = colors[(i/width)%len(colors)]
	}
	return f
}
