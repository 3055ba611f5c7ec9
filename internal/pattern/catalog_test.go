package pattern

import (
	"errors"
	"testing"

	"github.com/gcpreston/webcandy-client/internal/core"
)

func TestBuildValidation(t *testing.T) {
	catalog := NewCatalog(32)

	tests := []struct {
		name    string
		cmd     core.Command
		wantErr error
	}{
		{"unknown pattern", core.Command{Pattern: "sparkle"}, ErrUnknownPattern},
		{"empty pattern name", core.Command{}, ErrUnknownPattern},
		{"solid_color without color", core.Command{Pattern: "solid_color"}, ErrInvalidArgument},
		{"solid_color with malformed color", core.Command{Pattern: "solid_color", Color: "red"}, ErrInvalidArgument},
		{"fade without color_list", core.Command{Pattern: "fade"}, ErrInvalidArgument},
		{"scroll with empty color_list", core.Command{Pattern: "scroll", ColorList: []string{}}, ErrInvalidArgument},
		{"stripes with malformed entry", core.Command{Pattern: "stripes", ColorList: []string{"#ff0000", "nope"}}, ErrInvalidArgument},
		{"negative speed", core.Command{Pattern: "fade", ColorList: []string{"#ff0000"}, Speed: -3}, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Build(tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build(%s) error = %v, want %v", tt.cmd, err, tt.wantErr)
			}
		})
	}
}

func TestBuildConstructsPatterns(t *testing.T) {
	catalog := NewCatalog(16)

	tests := []struct {
		cmd      core.Command
		wantKind Kind
	}{
		{core.Command{Pattern: "off"}, Static},
		{core.Command{Pattern: "solid_color", Color: "#ff00aa"}, Static},
		{core.Command{Pattern: "stripes", ColorList: []string{"#ff0000", "#00ff00"}}, Static},
		{core.Command{Pattern: "fade", ColorList: []string{"#ff0000", "#00ff00"}}, Dynamic},
		{core.Command{Pattern: "scroll", ColorList: []string{"#ff0000"}}, Dynamic},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Pattern, func(t *testing.T) {
			p, err := catalog.Build(tt.cmd)
			if err != nil {
				t.Fatalf("Build(%s) returned error: %v", tt.cmd, err)
			}
			if p.Name() != tt.cmd.Pattern {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.cmd.Pattern)
			}
			if p.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", p.Kind(), tt.wantKind)
			}
			if got := len(p.Next()); got != 16 {
				t.Errorf("frame length = %d, want 16", got)
			}
		})
	}
}

func TestBuildAppliesSpeedOverride(t *testing.T) {
	catalog := NewCatalog(8)

	p, err := catalog.Build(core.Command{Pattern: "fade", ColorList: []string{"#ff0000"}, Speed: 42})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if p.Speed() != 42 {
		t.Errorf("Speed() = %g, want 42", p.Speed())
	}

	// Without an override the default holds.
	p, err = catalog.Build(core.Command{Pattern: "scroll", ColorList: []string{"#ff0000"}})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if p.Speed() != defaultScrollSpeed {
		t.Errorf("Speed() = %g, want %d", p.Speed(), defaultScrollSpeed)
	}

	// A speed on a static pattern is ignored rather than rejected.
	p, err = catalog.Build(core.Command{Pattern: "off", Speed: 9})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if p.Speed() != 0 {
		t.Errorf("static Speed() = %g, want 0", p.Speed())
	}
}

func TestBuildWrapsStrobe(t *testing.T) {
	catalog := NewCatalog(8)
	p, err := catalog.Build(core.Command{Pattern: "solid_color", Color: "#ffffff", Strobe: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if _, ok := p.(*Strobe); !ok {
		t.Fatalf("Build with strobe returned %T, want *Strobe", p)
	}
	lit := p.Next()
	dark := p.Next()
	if lit[0] == (core.Color{}) || dark[0] != (core.Color{}) {
		t.Errorf("strobe frames = %v then %v, want lit then black", lit[0], dark[0])
	}
}

func TestDescriptorsAdvertiseCatalog(t *testing.T) {
	catalog := NewCatalog(8)
	descs := catalog.Descriptors()

	byName := make(map[string]Descriptor, len(descs))
	for i, d := range descs {
		byName[d.Name] = d
		if i > 0 && descs[i-1].Name > d.Name {
			t.Errorf("descriptors not sorted: %q before %q", descs[i-1].Name, d.Name)
		}
	}

	fade, ok := byName["fade"]
	if !ok {
		t.Fatal("fade missing from descriptors")
	}
	if fade.Type != "dynamic" || fade.DefaultSpeed != defaultFadeSpeed {
		t.Errorf("fade descriptor = %+v", fade)
	}
	if len(fade.Args) != 1 || fade.Args[0] != "color_list" {
		t.Errorf("fade args = %v, want [color_list]", fade.Args)
	}

	off, ok := byName["off"]
	if !ok {
		t.Fatal("off missing from descriptors")
	}
	if off.Type != "static" || off.DefaultSpeed != 0 || len(off.Args) != 0 {
		t.Errorf("off descriptor = %+v", off)
	}
	if off.Args == nil {
		t.Error("off args should marshal as [], not null")
	}

	solid, ok := byName["solid_color"]
	if !ok {
		t.Fatal("solid_color missing from descriptors")
	}
	if solid.Type != "static" || len(solid.Args) != 1 || solid.Args[0] != "color" {
		t.Errorf("solid_color descriptor = %+v", solid)
	}
}
