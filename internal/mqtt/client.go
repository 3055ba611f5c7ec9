// Package mqtt exposes the client on an MQTT broker: a command topic that
// feeds the agent and retained state topics mirroring what the strip is
// doing.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gcpreston/webcandy-client/internal/config"
	"github.com/gcpreston/webcandy-client/internal/core"
)

// Client bridges the broker and the agent's command channel.
type Client struct {
	client   mqtt.Client
	broker   string
	prefix   string
	commands core.CommandChannel
	eventBus *core.EventBus
	state    func() core.State
}

// NewClient builds the MQTT bridge, or returns nil when MQTT is disabled in
// the configuration. state supplies the snapshot published on (re)connect.
func NewClient(cfg *config.Config, commands core.CommandChannel, eventBus *core.EventBus, state func() core.State) *Client {
	if !cfg.MQTT.Enabled {
		return nil
	}

	prefix := strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)

	// Ping the broker often enough that a dead connection is noticed
	// within seconds.
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	// Keep retrying the initial connect so a broker that boots after us
	// (common under Docker) is picked up once it appears.
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetOrderMatters(false)

	// The broker flips us to offline by itself if we die without saying
	// goodbye.
	opts.SetWill(prefix+"/availability", "offline", 1, true)

	c := &Client{
		broker:   cfg.MQTT.Broker,
		prefix:   prefix,
		commands: commands,
		eventBus: eventBus,
		state:    state,
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v. Retrying in background...", err)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		log.Println("[MQTT] Attempting to reconnect...")
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect initiates the connection loop.
func (c *Client) Connect() error {
	if c.client == nil {
		return nil
	}
	log.Printf("[MQTT] Starting connection loop to %s...", c.broker)

	token := c.client.Connect()
	// With ConnectRetry enabled an error here points at a configuration
	// problem rather than a broker that is merely down.
	if token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] Initial connection error: %v", token.Error())
		return token.Error()
	}
	return nil
}

// Disconnect publishes the offline status and closes the socket.
func (c *Client) Disconnect() {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	log.Println("[MQTT] Disconnecting...")

	token := c.client.Publish(c.prefix+"/availability", 0, true, "offline")
	if token.WaitTimeout(2 * time.Second) {
		if token.Error() != nil {
			log.Printf("[MQTT] Warning: failed to publish offline status: %v", token.Error())
		}
	} else {
		log.Println("[MQTT] Warning: timed out publishing offline status")
	}

	c.client.Disconnect(250)
	log.Println("[MQTT] Disconnected.")
}

// WatchEvents mirrors agent events onto the state topics until ctx ends.
// Run it in its own goroutine.
func (c *Client) WatchEvents(ctx context.Context) {
	if c.eventBus == nil {
		return
	}
	sub := c.eventBus.Subscribe(core.PatternChangedEvent, core.SessionStateChangedEvent)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			switch ev.Type {
			case core.PatternChangedEvent:
				if ps, ok := ev.Payload.(core.PatternState); ok {
					c.publishPatternState(ps.Running, ps.Strobe)
				}
			case core.SessionStateChangedEvent:
				if ss, ok := ev.Payload.(core.SessionState); ok {
					c.publishConnection(ss.Connected)
				}
			}
		}
	}
}

// Publish writes payload to <prefix>/<subtopic> without blocking the caller.
func (c *Client) Publish(subtopic string, payload interface{}, retained bool) {
	if c.client == nil || !c.client.IsConnected() {
		return
	}

	topic := fmt.Sprintf("%s/%s", c.prefix, subtopic)
	msg := fmt.Sprintf("%v", payload)

	token := c.client.Publish(topic, 0, retained, msg)
	go func() {
		if token.WaitTimeout(5 * time.Second) {
			if token.Error() != nil {
				log.Printf("[MQTT] Publish error to %s: %v", topic, token.Error())
			}
		} else {
			log.Printf("[MQTT] Timeout publishing to %s", topic)
		}
	}()
}

// onConnect runs in paho's event goroutine on every (re)connect.
func (c *Client) onConnect(client mqtt.Client) {
	log.Println("[MQTT] Connected to broker.")

	topic := c.prefix + "/command"
	if token := client.Subscribe(topic, 1, c.handleCommand); token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
	} else {
		log.Printf("[MQTT] Subscribed to %s", topic)
	}

	// Retained state can be stale after a broker restart; republish the
	// current snapshot outside the handler goroutine.
	go func() {
		c.Publish("availability", "online", true)
		if c.state == nil {
			return
		}
		snap := c.state()
		c.publishPatternState(snap.RunningPattern, snap.Strobe)
		c.publishConnection(snap.Connected)
	}()
}

// handleCommand feeds a JSON command payload into the agent.
func (c *Client) handleCommand(client mqtt.Client, msg mqtt.Message) {
	var cmd core.Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("[MQTT] Ignoring malformed command payload on %s: %v", msg.Topic(), err)
		return
	}

	select {
	case c.commands <- cmd:
	default:
		log.Printf("[MQTT] Command channel full, dropping: %s", cmd)
	}
}

func (c *Client) publishPatternState(running string, strobe bool) {
	c.Publish("pattern/state", running, true)
	c.Publish("pattern/strobe", strobe, true)
}

func (c *Client) publishConnection(connected bool) {
	status := "disconnected"
	if connected {
		status = "connected"
	}
	c.Publish("connection", status, true)
}
