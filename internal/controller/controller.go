// Package controller owns the single active lighting configuration run and
// drives pattern frames into the renderer.
package controller

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gcpreston/webcandy-client/internal/core"
	"github.com/gcpreston/webcandy-client/internal/pattern"
)

const (
	// teardownGrace bounds how long Submit waits for the previous run to
	// let go of the strip before starting the next one.
	teardownGrace = 2 * time.Second
	// staticPause separates the double push of a static configuration so
	// renderers that suppress no-op writes still show the transition.
	staticPause = 500 * time.Millisecond
)

// Sink is where a runner pushes frames.
type Sink interface {
	Push(core.Frame) error
	Close() error
}

// contextSetter is implemented by patterns whose Next can block inside an
// interpreter; the runner hands them its context so cancellation reaches a
// stuck call.
type contextSetter interface {
	SetContext(ctx context.Context)
}

// SinkFactory opens a fresh pixel connection for one run.
type SinkFactory func() (Sink, error)

// Controller replaces the active run on each submitted command. It never
// lets two configurations drive the strip at once: the previous run is
// cancelled and waited for before its successor starts.
type Controller struct {
	catalog  *pattern.Catalog
	newSink  SinkFactory
	eventBus *core.EventBus

	mu     sync.Mutex
	active *run
}

// run is the handle for one launched configuration.
type run struct {
	pattern pattern.Pattern
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a controller building patterns from catalog and pushing their
// frames into sinks opened by newSink. The event bus may be nil.
func New(catalog *pattern.Catalog, newSink SinkFactory, eventBus *core.EventBus) *Controller {
	return &Controller{catalog: catalog, newSink: newSink, eventBus: eventBus}
}

// Submit builds the commanded pattern and replaces the active run with it.
// A validation failure leaves the current run untouched.
func (c *Controller) Submit(cmd core.Command) error {
	log.Printf("[Controller] Attempting to run configuration: %s", cmd)
	p, err := c.catalog.Build(cmd)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.active.cancel()
		select {
		case <-c.active.done:
		case <-time.After(teardownGrace):
			log.Printf("[Controller] Timeout waiting for %q to stop", c.active.pattern.Name())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{pattern: p, cancel: cancel, done: make(chan struct{})}
	c.active = r
	go c.execute(ctx, r)

	if c.eventBus != nil {
		c.eventBus.Publish(core.Event{
			Type:    core.PatternChangedEvent,
			Payload: core.PatternState{Running: cmd.Pattern, Strobe: cmd.Strobe},
		})
	}
	return nil
}

// Stop cancels the active run, if any. The run handle stays in place so the
// last configuration is still reported as the active one.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	c.active.cancel()
	select {
	case <-c.active.done:
	case <-time.After(teardownGrace):
		log.Printf("[Controller] Timeout waiting for %q to stop", c.active.pattern.Name())
	}
}

// ActiveDone returns a channel closed when the current run finishes, or nil
// when nothing was ever submitted. Static runs finish on their own; dynamic
// runs only finish when cancelled or their sink fails.
func (c *Controller) ActiveDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil
	}
	return c.active.done
}

// execute drives one run: it opens a sink, pushes frames per the pattern's
// shape and releases everything when done.
func (c *Controller) execute(ctx context.Context, r *run) {
	defer close(r.done)
	if closer, ok := r.pattern.(io.Closer); ok {
		defer closer.Close()
	}
	if cs, ok := r.pattern.(contextSetter); ok {
		cs.SetContext(ctx)
	}

	sink, err := c.newSink()
	if err != nil {
		log.Printf("[Controller] %q not started: %v", r.pattern.Name(), err)
		return
	}
	defer sink.Close()

	// Closing the sink unblocks a push that is stuck in a write when the
	// run is cancelled mid-frame.
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-ctx.Done():
			sink.Close()
		case <-watchdogDone:
		}
	}()

	switch r.pattern.Kind() {
	case pattern.Static:
		c.runStatic(ctx, r.pattern, sink)
	case pattern.Dynamic:
		c.runDynamic(ctx, r.pattern, sink)
	}
}

// runStatic pushes the pattern's single frame twice with a short pause, then
// returns, leaving the strip holding the frame.
func (c *Controller) runStatic(ctx context.Context, p pattern.Pattern, sink Sink) {
	frame := p.Next()
	if err := sink.Push(frame); err != nil {
		c.logPushError(ctx, p, err)
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(staticPause):
	}
	if err := sink.Push(frame); err != nil {
		c.logPushError(ctx, p, err)
	}
}

// runDynamic pushes frames at the pattern's rate until the run is cancelled
// or the sink dies.
func (c *Controller) runDynamic(ctx context.Context, p pattern.Pattern, sink Sink) {
	limiter := rate.NewLimiter(rate.Limit(p.Speed()), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := sink.Push(p.Next()); err != nil {
			c.logPushError(ctx, p, err)
			return
		}
	}
}

// logPushError skips the expected error from the watchdog closing the sink
// under a cancelled run.
func (c *Controller) logPushError(ctx context.Context, p pattern.Pattern, err error) {
	if ctx.Err() != nil {
		return
	}
	log.Printf("[Controller] %q stopped: %v", p.Name(), err)
}
