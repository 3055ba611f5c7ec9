package pattern

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gcpreston/webcandy-client/internal/core"
)

var (
	// ErrUnknownPattern is returned when a command names a pattern the
	// catalog has no entry for.
	ErrUnknownPattern = errors.New("unknown pattern")
	// ErrInvalidArgument is returned when a command omits or malforms a
	// parameter its pattern requires.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Descriptor describes one catalog entry the way it is advertised to the
// Webcandy server in the session handshake.
type Descriptor struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Args         []string `json:"args"`
	DefaultSpeed float64  `json:"default_speed,omitempty"`
}

// builder constructs a pattern instance from a command.
type builder func(cmd core.Command, numLEDs int) (Pattern, error)

type entry struct {
	desc  Descriptor
	build builder
}

// Catalog maps pattern names to constructors and advertises their accepted
// argument shapes.
type Catalog struct {
	numLEDs int
	entries map[string]entry
}

// NewCatalog returns a catalog holding the built-in patterns for a strip of
// numLEDs lights.
func NewCatalog(numLEDs int) *Catalog {
	c := &Catalog{
		numLEDs: numLEDs,
		entries: make(map[string]entry),
	}

	c.register(
		Descriptor{Name: "solid_color", Type: Static.String(), Args: []string{"color"}},
		func(cmd core.Command, n int) (Pattern, error) {
			color, err := colorArg(cmd)
			if err != nil {
				return nil, err
			}
			return NewSolidColor(color, n), nil
		},
	)
	c.register(
		Descriptor{Name: "off", Type: Static.String(), Args: []string{}},
		func(cmd core.Command, n int) (Pattern, error) {
			return NewOff(n), nil
		},
	)
	c.register(
		Descriptor{Name: "stripes", Type: Static.String(), Args: []string{"color_list"}},
		func(cmd core.Command, n int) (Pattern, error) {
			colors, err := colorListArg(cmd)
			if err != nil {
				return nil, err
			}
			return NewStripes(colors, n), nil
		},
	)
	c.register(
		Descriptor{Name: "fade", Type: Dynamic.String(), Args: []string{"color_list"}, DefaultSpeed: defaultFadeSpeed},
		func(cmd core.Command, n int) (Pattern, error) {
			colors, err := colorListArg(cmd)
			if err != nil {
				return nil, err
			}
			return NewFade(colors, n), nil
		},
	)
	c.register(
		Descriptor{Name: "scroll", Type: Dynamic.String(), Args: []string{"color_list"}, DefaultSpeed: defaultScrollSpeed},
		func(cmd core.Command, n int) (Pattern, error) {
			colors, err := colorListArg(cmd)
			if err != nil {
				return nil, err
			}
			return NewScroll(colors, n), nil
		},
	)

	return c
}

func (c *Catalog) register(desc Descriptor, build builder) {
	c.entries[desc.Name] = entry{desc: desc, build: build}
}

// Build validates cmd and constructs the pattern it names, applying the
// optional speed override and strobe decoration.
func (c *Catalog) Build(cmd core.Command) (Pattern, error) {
	e, ok := c.entries[cmd.Pattern]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not associated with any lighting configuration", ErrUnknownPattern, cmd.Pattern)
	}
	if cmd.Speed < 0 {
		return nil, fmt.Errorf("%w: 'speed' must be positive, got %g", ErrInvalidArgument, cmd.Speed)
	}

	p, err := e.build(cmd, c.numLEDs)
	if err != nil {
		return nil, err
	}
	if cmd.Speed > 0 {
		// Static patterns have no rate to override.
		if s, ok := p.(speedSetter); ok {
			s.SetSpeed(cmd.Speed)
		}
	}
	if cmd.Strobe {
		p = NewStrobe(p, c.numLEDs)
	}
	return p, nil
}

// Descriptors returns the advertised catalog contents, sorted by name.
func (c *Catalog) Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, len(c.entries))
	for _, e := range c.entries {
		descs = append(descs, e.desc)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

func colorArg(cmd core.Command) (core.Color, error) {
	if cmd.Color == "" {
		return core.Color{}, fmt.Errorf("%w: expected 'color' in the format '#RRGGBB', got none", ErrInvalidArgument)
	}
	color, err := core.ParseColor(cmd.Color)
	if err != nil {
		return core.Color{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return color, nil
}

func colorListArg(cmd core.Command) ([]core.Color, error) {
	if len(cmd.ColorList) == 0 {
		return nil, fmt.Errorf("%w: expected a non-empty 'color_list' of '#RRGGBB' colors", ErrInvalidArgument)
	}
	colors, err := core.ParseColorList(cmd.ColorList)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return colors, nil
}
