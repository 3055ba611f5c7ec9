// wc-controller runs a single lighting configuration against the local
// renderer, with no Webcandy session involved. It doubles as the management
// tool for the schedule file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gcpreston/webcandy-client/internal/config"
	"github.com/gcpreston/webcandy-client/internal/controller"
	"github.com/gcpreston/webcandy-client/internal/core"
	"github.com/gcpreston/webcandy-client/internal/pattern"
	"github.com/gcpreston/webcandy-client/internal/pixel"
	"github.com/gcpreston/webcandy-client/internal/renderer"
	"github.com/gcpreston/webcandy-client/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("wc-controller", flag.ExitOnError)
	configPath := fs.String("config", "config.json", "path to the configuration file")
	file := fs.String("file", "", "JSON file holding the lighting configuration")
	patternName := fs.String("pattern", "", "pattern name, overrides the file")
	strobe := fs.Bool("strobe", false, "wrap the pattern in a strobe, overrides the file")
	color := fs.String("color", "", "color as '#RRGGBB', overrides the file")
	colorList := fs.String("color-list", "", "comma-separated '#RRGGBB' colors, overrides the file")
	speed := fs.Float64("speed", 0, "frames per second for dynamic patterns, overrides the file")
	schedule := fs.String("schedule", "", "save the configuration under this cron spec instead of running it")
	listSchedules := fs.Bool("list-schedules", false, "print the saved schedules and exit")
	removeSchedule := fs.Int("remove-schedule", -1, "remove the schedule at this index and exit")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[Controller] %v", err)
		return 1
	}

	if *listSchedules {
		entries := scheduler.New(nil, cfg.SchedulesFile).Entries()
		if len(entries) == 0 {
			fmt.Println("No schedules.")
			return 0
		}
		for i, entry := range entries {
			fmt.Printf("%d: %s -> %s\n", i, entry.Spec, entry.Command)
		}
		return 0
	}
	if *removeSchedule >= 0 {
		if err := scheduler.New(nil, cfg.SchedulesFile).Remove(*removeSchedule); err != nil {
			log.Printf("[Controller] %v", err)
			return 1
		}
		return 0
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var cmd core.Command
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Printf("[Controller] %v", err)
			return 1
		}
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("[Controller] Invalid configuration file %q: %v", *file, err)
			return 1
		}
	}
	if set["pattern"] {
		cmd.Pattern = *patternName
	}
	if set["strobe"] {
		cmd.Strobe = *strobe
	}
	if set["color"] {
		cmd.Color = *color
	}
	if set["color-list"] {
		cmd.ColorList = splitColors(*colorList)
	}
	if set["speed"] {
		cmd.Speed = *speed
	}
	if cmd.Pattern == "" {
		fmt.Fprintln(fs.Output(), "No pattern given; use --pattern or --file.")
		return 2
	}

	catalog := pattern.NewCatalog(cfg.NumLEDs)
	if err := catalog.RegisterScripts(cfg.PatternsDir); err != nil {
		log.Printf("[Controller] Could not load script patterns: %v", err)
	}

	if *schedule != "" {
		// Validate the command before persisting it.
		p, err := catalog.Build(cmd)
		if err != nil {
			log.Printf("[Controller] %v", err)
			return 1
		}
		if c, ok := p.(io.Closer); ok {
			c.Close()
		}
		s := scheduler.New(nil, cfg.SchedulesFile)
		if err := s.Add(scheduler.Entry{Spec: *schedule, Command: cmd}); err != nil {
			log.Printf("[Controller] %v", err)
			return 1
		}
		return 0
	}

	fc := renderer.NewSupervisor(cfg.RendererAddr(), cfg.Renderer.BinDir)
	if err := fc.Start(); err != nil {
		log.Printf("[Controller] Could not start the renderer: %v", err)
	}
	defer fc.Stop()

	rendererAddr := cfg.RendererAddr()
	numLEDs := cfg.NumLEDs
	ctrl := controller.New(catalog, func() (controller.Sink, error) {
		return pixel.Dial(rendererAddr, numLEDs)
	}, nil)
	defer ctrl.Stop()

	if err := ctrl.Submit(cmd); err != nil {
		log.Printf("[Controller] %v", err)
		return 1
	}

	// Static runs finish on their own; dynamic ones hold the strip until
	// interrupted.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctrl.ActiveDone():
	case <-quit:
	}
	return 0
}

func splitColors(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
