package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/gcpreston/webcandy-client/internal/pixel"
)

// ServerConfig points the client at a Webcandy deployment.
type ServerConfig struct {
	Host      string `json:"host"`
	ProxyPort int    `json:"proxy_port"`
	AppPort   int    `json:"app_port"`
	// Unsecure skips TLS verification on the token request, needed for
	// development servers with self-signed certificates.
	Unsecure bool `json:"unsecure"`
}

// RendererConfig describes the local fcserver instance.
type RendererConfig struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	BinDir string `json:"bin_dir"`
}

// MQTTConfig enables the optional MQTT bridge.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"` // tcp://IP:PORT
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// Config is the root of the JSON configuration file.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Renderer RendererConfig `json:"renderer"`
	MQTT     MQTTConfig     `json:"mqtt"`

	// ClientName is how this client appears in the Webcandy frontend.
	// Falls back to the hostname when empty.
	ClientName string `json:"client_name"`
	// NumLEDs is the strip length every frame is built for.
	NumLEDs int `json:"num_leds"`
	// MaxConnectAttempts is the consecutive-failure budget of the control
	// session.
	MaxConnectAttempts int `json:"max_connect_attempts"`

	// File system settings
	PatternsDir   string `json:"patterns_dir"`
	SchedulesFile string `json:"schedules_file"`
}

// Load reads path, parses the JSON and applies sanitization, defaults and
// validation. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.setDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	cfg.sanitize()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) sanitize() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Renderer.Host = strings.TrimSpace(c.Renderer.Host)
	c.Renderer.BinDir = strings.TrimSpace(c.Renderer.BinDir)
	c.ClientName = strings.TrimSpace(c.ClientName)
	c.PatternsDir = strings.TrimSpace(c.PatternsDir)
	c.SchedulesFile = strings.TrimSpace(c.SchedulesFile)
}

func (c *Config) setDefaults() {
	// Server defaults match the hosted Webcandy deployment.
	if c.Server.Host == "" {
		c.Server.Host = "proxy.webcandy.io"
	}
	if c.Server.ProxyPort == 0 {
		c.Server.ProxyPort = 80
	}
	if c.Server.AppPort == 0 {
		c.Server.AppPort = 443
	}

	// Renderer defaults: fcserver's well-known OPC port on this machine.
	if c.Renderer.Host == "" {
		c.Renderer.Host = "127.0.0.1"
	}
	if c.Renderer.Port == 0 {
		c.Renderer.Port = 7890
	}
	if c.Renderer.BinDir == "" {
		c.Renderer.BinDir = "fcserver"
	}

	if c.NumLEDs == 0 {
		c.NumLEDs = 512
	}
	if c.MaxConnectAttempts == 0 {
		c.MaxConnectAttempts = 5
	}

	// File defaults
	if c.PatternsDir == "" {
		c.PatternsDir = "patterns"
	}
	if c.SchedulesFile == "" {
		c.SchedulesFile = "schedules.json"
	}

	// MQTT defaults
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "webcandy-client"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "webcandy"
	}
}

func (c *Config) validate() error {
	if c.NumLEDs < 1 || c.NumLEDs > pixel.MaxLEDs {
		return fmt.Errorf("config error: 'num_leds' must be between 1 and %d", pixel.MaxLEDs)
	}
	if c.MaxConnectAttempts < 1 {
		return fmt.Errorf("config error: 'max_connect_attempts' must be positive")
	}
	for name, port := range map[string]int{
		"proxy_port":    c.Server.ProxyPort,
		"app_port":      c.Server.AppPort,
		"renderer.port": c.Renderer.Port,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("config error: '%s' out of range: %d", name, port)
		}
	}
	return nil
}

// WebsocketURL is the control session endpoint. The default port is left
// implicit to match proxies that only speak on port 80.
func (c *Config) WebsocketURL() string {
	if c.Server.ProxyPort == 80 {
		return "ws://" + c.Server.Host
	}
	return fmt.Sprintf("ws://%s:%d", c.Server.Host, c.Server.ProxyPort)
}

// APIBaseURL is where the token endpoint lives.
func (c *Config) APIBaseURL() string {
	return fmt.Sprintf("https://%s:%d", c.Server.Host, c.Server.AppPort)
}

// RendererAddr is the OPC host:port of the local renderer.
func (c *Config) RendererAddr() string {
	return net.JoinHostPort(c.Renderer.Host, strconv.Itoa(c.Renderer.Port))
}
