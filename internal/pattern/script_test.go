package pattern

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gcpreston/webcandy-client/internal/core"
)

func writeScript(t *testing.T, dir, name, code string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(code), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "pulse.lua", `
speed = 30

function frame(tick, num_leds)
	local f = {}
	for i = 1, num_leds do
		f[i] = {tick % 256, 0, 0}
	end
	return f
end
`)

	catalog := NewCatalog(4)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}

	var desc Descriptor
	found := false
	for _, d := range catalog.Descriptors() {
		if d.Name == "pulse" {
			desc, found = d, true
		}
	}
	if !found {
		t.Fatal("pulse missing from descriptors")
	}
	if desc.Type != "dynamic" || desc.DefaultSpeed != 30 {
		t.Errorf("pulse descriptor = %+v", desc)
	}

	p, err := catalog.Build(core.Command{Pattern: "pulse"})
	if err != nil {
		t.Fatalf("Build(pulse) returned error: %v", err)
	}
	defer p.(*Script).Close()

	first := p.Next()
	second := p.Next()
	if first[0] != (core.Color{R: 1}) || second[0] != (core.Color{R: 2}) {
		t.Errorf("frames = %v, %v; want ticks 1 and 2 in the red channel", first[0], second[0])
	}
	if len(first) != 4 {
		t.Errorf("frame length = %d, want 4", len(first))
	}
}

func TestScriptHexStringColors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "halves.lua", `
function frame(tick, num_leds)
	local f = {}
	for i = 1, num_leds do
		if i <= num_leds / 2 then
			f[i] = "#ff0000"
		else
			f[i] = {0, 0, 255}
		end
	end
	return f
end
`)

	catalog := NewCatalog(4)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}
	p, err := catalog.Build(core.Command{Pattern: "halves"})
	if err != nil {
		t.Fatalf("Build(halves) returned error: %v", err)
	}
	defer p.(*Script).Close()

	f := p.Next()
	if f[0] != (core.Color{R: 255}) || f[1] != (core.Color{R: 255}) {
		t.Errorf("first half = %v %v, want red", f[0], f[1])
	}
	if f[2] != (core.Color{B: 255}) || f[3] != (core.Color{B: 255}) {
		t.Errorf("second half = %v %v, want blue", f[2], f[3])
	}
}

func TestScriptShortOrInvalidEntriesAreBlack(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "sparse.lua", `
function frame(tick, num_leds)
	return {{300, -5, 128}, "bogus"}
end
`)

	catalog := NewCatalog(4)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}
	p, err := catalog.Build(core.Command{Pattern: "sparse"})
	if err != nil {
		t.Fatalf("Build(sparse) returned error: %v", err)
	}
	defer p.(*Script).Close()

	f := p.Next()
	if f[0] != (core.Color{R: 255, G: 0, B: 128}) {
		t.Errorf("f[0] = %v, want channels clamped to {255 0 128}", f[0])
	}
	for i := 1; i < 4; i++ {
		if f[i] != core.Black {
			t.Errorf("f[%d] = %v, want black", i, f[i])
		}
	}
}

func TestBrokenScriptsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "syntax.lua", `function frame( -- nope`)
	writeScript(t, dir, "noframe.lua", `speed = 10`)
	writeScript(t, dir, "fade.lua", `function frame(tick, n) return {} end`) // collides with built-in
	writeScript(t, dir, "notes.txt", `not a script`)

	catalog := NewCatalog(4)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}

	for _, name := range []string{"syntax", "noframe", "notes"} {
		if _, err := catalog.Build(core.Command{Pattern: name}); !errors.Is(err, ErrUnknownPattern) {
			t.Errorf("Build(%s) error = %v, want ErrUnknownPattern", name, err)
		}
	}

	// The built-in fade survives the name collision.
	fade, err := catalog.Build(core.Command{Pattern: "fade", ColorList: []string{"#ff0000"}})
	if err != nil {
		t.Fatalf("Build(fade) returned error: %v", err)
	}
	if _, ok := fade.(*Fade); !ok {
		t.Errorf("fade built as %T, want *Fade", fade)
	}
}

func TestRegisterScriptsMissingDir(t *testing.T) {
	catalog := NewCatalog(4)
	if err := catalog.RegisterScripts(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Errorf("RegisterScripts on a missing directory returned error: %v", err)
	}
}

func TestStrobeWrappedScriptCloses(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "glow.lua", `
function frame(tick, num_leds)
	return {{255, 255, 255}}
end
`)

	catalog := NewCatalog(2)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}
	p, err := catalog.Build(core.Command{Pattern: "glow", Strobe: true})
	if err != nil {
		t.Fatalf("Build(glow) returned error: %v", err)
	}

	closer, ok := p.(io.Closer)
	if !ok {
		t.Fatalf("strobe-wrapped script built as %T, which has no Close", p)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	if !p.(*Strobe).wrapped.(*Script).state.IsClosed() {
		t.Error("wrapped script's Lua state still open after Close")
	}
}

func TestScriptCancelledMidFrame(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "spin.lua", `
function frame(tick, num_leds)
	while true do end
end
`)

	catalog := NewCatalog(2)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}
	p, err := catalog.Build(core.Command{Pattern: "spin"})
	if err != nil {
		t.Fatalf("Build(spin) returned error: %v", err)
	}
	defer p.(*Script).Close()

	ctx, cancel := context.WithCancel(context.Background())
	p.(*Script).SetContext(ctx)

	frames := make(chan core.Frame, 1)
	go func() { frames <- p.Next() }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case f := <-frames:
		if f[0] != core.Black || f[1] != core.Black {
			t.Errorf("interrupted frame = %v, want black", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next still stuck after the run context was cancelled")
	}
}

func TestScriptFailureYieldsBlack(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "dies.lua", `
function frame(tick, num_leds)
	if tick > 1 then
		error("boom")
	end
	return {{255, 255, 255}}
end
`)

	catalog := NewCatalog(2)
	if err := catalog.RegisterScripts(dir); err != nil {
		t.Fatalf("RegisterScripts returned error: %v", err)
	}
	p, err := catalog.Build(core.Command{Pattern: "dies"})
	if err != nil {
		t.Fatalf("Build(dies) returned error: %v", err)
	}
	defer p.(*Script).Close()

	if f := p.Next(); f[0] != (core.Color{R: 255, G: 255, B: 255}) {
		t.Fatalf("first frame = %v, want white", f[0])
	}
	for i := 0; i < 3; i++ {
		f := p.Next()
		if f[0] != core.Black || f[1] != core.Black {
			t.Errorf("post-failure frame %d = %v, want black", i, f)
		}
	}
}
