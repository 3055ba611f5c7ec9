package pattern

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/gcpreston/webcandy-client/internal/core"
)

// defaultScriptSpeed is the frame rate for scripts that declare no `speed`
// global.
const defaultScriptSpeed = 20

// Script is a dynamic pattern whose frames come from a user-supplied Lua
// file. The script must define `frame(tick, num_leds)` returning a table of
// num_leds colors, each either a `{r, g, b}` table of 0-255 channels or a
// "#RRGGBB" string. An optional `speed` global sets the default frame rate.
//
// Each Script owns a fresh Lua state, so scripts keep whatever globals they
// like between ticks without leaking into other runs.
type Script struct {
	name    string
	numLEDs int
	speed   float64
	state   *lua.LState
	frameFn *lua.LFunction
	ctx     context.Context
	tick    int
	failed  bool
}

// newScript loads path into a fresh Lua state and resolves the script's
// frame function and default speed.
func newScript(name, path string, numLEDs int) (*Script, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("script %q: %w", name, err)
	}
	fn, ok := L.GetGlobal("frame").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script %q does not define a frame(tick, num_leds) function", name)
	}

	speed := float64(defaultScriptSpeed)
	if num, ok := L.GetGlobal("speed").(lua.LNumber); ok && float64(num) > 0 {
		speed = float64(num)
	}

	return &Script{
		name:    name,
		numLEDs: numLEDs,
		speed:   speed,
		state:   L,
		frameFn: fn,
	}, nil
}

func (p *Script) Name() string { return p.name }

func (p *Script) Kind() Kind { return Dynamic }

func (p *Script) Speed() float64 { return p.speed }

// SetSpeed overrides the frame rate.
func (p *Script) SetSpeed(fps float64) { p.speed = fps }

// SetContext binds the run's context into the Lua state, so cancelling the
// run interrupts a frame() call that never returns.
func (p *Script) SetContext(ctx context.Context) {
	p.ctx = ctx
	p.state.SetContext(ctx)
}

// Next calls the script's frame function. A script that errors is not called
// again; the run keeps producing black frames until it is replaced.
func (p *Script) Next() core.Frame {
	f := core.BlackFrame(p.numLEDs)
	if p.failed {
		return f
	}

	p.tick++
	err := p.state.CallByParam(
		lua.P{Fn: p.frameFn, NRet: 1, Protect: true},
		lua.LNumber(p.tick), lua.LNumber(p.numLEDs),
	)
	if err != nil {
		if p.ctx != nil && p.ctx.Err() != nil {
			// The run was cancelled mid-call, not a script failure.
			return f
		}
		log.Printf("[Pattern] Script %q frame() failed: %v", p.name, err)
		p.failed = true
		return f
	}

	ret := p.state.Get(-1)
	p.state.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		log.Printf("[Pattern] Script %q frame() returned %s, want table", p.name, ret.Type())
		p.failed = true
		return f
	}
	for i := 0; i < p.numLEDs; i++ {
		if c, ok := luaColor(tbl.RawGetInt(i + 1)); ok {
			f[i] = c
		}
	}
	return f
}

// Close releases the script's Lua state. The runner calls this when the run
// ends.
func (p *Script) Close() error {
	p.state.Close()
	return nil
}

// luaColor converts a script color value, either a {r, g, b} table or a
// "#RRGGBB" string, into a Color.
func luaColor(v lua.LValue) (core.Color, bool) {
	switch val := v.(type) {
	case *lua.LTable:
		return core.Color{
			R: clampChannel(val.RawGetInt(1)),
			G: clampChannel(val.RawGetInt(2)),
			B: clampChannel(val.RawGetInt(3)),
		}, true
	case lua.LString:
		c, err := core.ParseColor(string(val))
		if err != nil {
			return core.Color{}, false
		}
		return c, true
	default:
		return core.Color{}, false
	}
}

func clampChannel(v lua.LValue) uint8 {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0
	}
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	default:
		return uint8(n)
	}
}

// RegisterScripts loads every .lua file in dir as a dynamic pattern named
// after the file. Scripts that fail to load are skipped with a warning, as
// is any script whose name collides with an existing entry.
func (c *Catalog) RegisterScripts(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading patterns directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".lua" {
			continue
		}
		name := strings.TrimSuffix(file.Name(), ".lua")
		path := filepath.Join(dir, file.Name())

		if _, exists := c.entries[name]; exists {
			log.Printf("[Pattern] Skipping script %q: name already registered", file.Name())
			continue
		}

		// Load once now so broken scripts surface at startup instead of
		// on their first command.
		probe, err := newScript(name, path, c.numLEDs)
		if err != nil {
			log.Printf("[Pattern] Skipping script %q: %v", file.Name(), err)
			continue
		}
		speed := probe.Speed()
		probe.Close()

		c.register(
			Descriptor{Name: name, Type: Dynamic.String(), Args: []string{}, DefaultSpeed: speed},
			func(cmd core.Command, n int) (Pattern, error) {
				return newScript(name, path, n)
			},
		)
		loaded++
	}
	if loaded > 0 {
		log.Printf("[Pattern] Loaded %d script patterns from %s", loaded, dir)
	}
	return nil
}
