// Package agent wires every command ingress, the Webcandy session, MQTT and
// the cron scheduler, into the single controller that owns the strip.
package agent

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gcpreston/webcandy-client/internal/config"
	"github.com/gcpreston/webcandy-client/internal/controller"
	"github.com/gcpreston/webcandy-client/internal/core"
	"github.com/gcpreston/webcandy-client/internal/mqtt"
	"github.com/gcpreston/webcandy-client/internal/pattern"
	"github.com/gcpreston/webcandy-client/internal/pixel"
	"github.com/gcpreston/webcandy-client/internal/scheduler"
	"github.com/gcpreston/webcandy-client/internal/session"
)

type Agent struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
	wg     sync.WaitGroup

	state          *core.State
	eventBus       *core.EventBus
	commandChannel core.CommandChannel

	catalog    *pattern.Catalog
	controller *controller.Controller
	session    *session.Session
	scheduler  *scheduler.Scheduler
	mqttClient *mqtt.Client
}

// New assembles an agent from the configuration and the freshly issued API
// token.
func New(cfg *config.Config, token string) *Agent {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		ctx:            ctx,
		cancel:         cancel,
		config:         cfg,
		state:          core.NewState(),
		eventBus:       core.NewEventBus(),
		commandChannel: make(core.CommandChannel, 20),
	}

	a.catalog = pattern.NewCatalog(cfg.NumLEDs)
	if err := a.catalog.RegisterScripts(cfg.PatternsDir); err != nil {
		log.Printf("[Agent] Could not load script patterns: %v", err)
	}

	rendererAddr := cfg.RendererAddr()
	numLEDs := cfg.NumLEDs
	a.controller = controller.New(a.catalog, func() (controller.Sink, error) {
		return pixel.Dial(rendererAddr, numLEDs)
	}, a.eventBus)

	a.session = session.New(session.Config{
		URL:         cfg.WebsocketURL(),
		Token:       token,
		ClientName:  cfg.ClientName,
		Patterns:    a.catalog.Descriptors(),
		Commands:    a.commandChannel,
		EventBus:    a.eventBus,
		MaxAttempts: cfg.MaxConnectAttempts,
	})

	a.scheduler = scheduler.New(a.commandChannel, cfg.SchedulesFile)

	// Optional; nil when disabled in the config.
	a.mqttClient = mqtt.NewClient(cfg, a.commandChannel, a.eventBus, a.state.Clone)

	return a
}

// Run starts the ingresses and processes commands until Shutdown is called
// or the control session gives up for good.
func (a *Agent) Run() error {
	go a.listenEvents()

	if a.mqttClient != nil {
		go func() {
			if err := a.mqttClient.Connect(); err != nil {
				log.Printf("[Agent] MQTT setup error: %v", err)
			}
		}()
		go a.mqttClient.WatchEvents(a.ctx)
	}

	a.scheduler.Start()

	sessionErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sessionErr <- a.session.Run(a.ctx)
	}()

	log.Println("[Agent] Ready.")
	for {
		select {
		case <-a.ctx.Done():
			return nil
		case err := <-sessionErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case cmd := <-a.commandChannel:
			a.handleCommand(cmd)
		}
	}
}

// handleCommand funnels one command into the controller. Invalid commands
// are logged and dropped without touching the active run.
func (a *Agent) handleCommand(cmd core.Command) {
	log.Printf("[Agent] Handling command: %s", cmd)
	if err := a.controller.Submit(cmd); err != nil {
		log.Printf("[Agent] Dropping command (%s): %v", cmd, err)
	}
}

// listenEvents maintains the central state from session and pattern events.
func (a *Agent) listenEvents() {
	sub := a.eventBus.Subscribe(core.SessionStateChangedEvent, core.PatternChangedEvent)

	for {
		select {
		case <-a.ctx.Done():
			return
		case event := <-sub:
			switch event.Type {
			case core.SessionStateChangedEvent:
				if ss, ok := event.Payload.(core.SessionState); ok {
					wasConnected := a.state.Clone().Connected
					a.state.SetConnected(ss.Connected)
					if wasConnected != ss.Connected {
						if ss.Connected {
							log.Println("[Agent] Control session established.")
						} else {
							log.Println("[Agent] Control session lost.")
						}
					}
				}
			case core.PatternChangedEvent:
				if ps, ok := event.Payload.(core.PatternState); ok {
					a.state.SetRunningPattern(ps.Running, ps.Strobe)
				}
			}
		}
	}
}

// Shutdown stops the ingresses, cancels the active run and waits for the
// session to wind down.
func (a *Agent) Shutdown() {
	a.scheduler.Stop()
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	a.controller.Stop()
	a.cancel()
	a.wg.Wait()
}
