package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livemark/livemark/internal/render"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultBind            = "0.0.0.0"
	DefaultHTTPPort        = 8000
	DefaultWSPort          = 8765
	DefaultShutdownTimeout = 5 * time.Second
	DefaultInterval        = time.Second
	DefaultStyle           = render.DefaultStyle
	DefaultSendBuffer      = 16
	DefaultLogFormat       = "text"
)

// Config is the top-level livemark configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
	Render RenderConfig `yaml:"render"`
	Hub    HubConfig    `yaml:"hub"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	// Bind is the interface address all listeners bind to.
	Bind string `yaml:"bind"`

	// HTTPPort serves the rendered page and the stylesheet.
	HTTPPort int `yaml:"http_port"`

	// WSPort serves live-update WebSocket connections. Must differ from HTTPPort.
	WSPort int `yaml:"ws_port"`

	// MetricsPort serves Prometheus metrics. Zero disables the listener.
	MetricsPort int `yaml:"metrics_port"`

	// ShutdownTimeout bounds how long in-flight responses may take on interrupt.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WatchConfig controls the document poller.
type WatchConfig struct {
	// Interval is the fixed delay between modification-time polls.
	Interval time.Duration `yaml:"interval"`

	// Notify triggers an extra poll whenever the filesystem reports an event
	// for the document. Polling still decides whether anything changed.
	Notify bool `yaml:"notify"`
}

// RenderConfig controls Markdown rendering and the stylesheet asset.
type RenderConfig struct {
	// Style is the chroma style used for fenced code blocks.
	Style string `yaml:"style"`

	// Stylesheet is the file served as /pygments.css. Empty means
	// pygments.css next to the document.
	Stylesheet string `yaml:"stylesheet"`
}

// HubConfig controls the live-update hub.
type HubConfig struct {
	// ReplayLast sends the most recent dispatch to newly connected subscribers.
	ReplayLast bool `yaml:"replay_last"`

	// SendBuffer is the per-subscriber outgoing queue depth. A subscriber
	// whose queue is full at dispatch time is dropped.
	SendBuffer int `yaml:"send_buffer"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Format is one of: text | json.
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            DefaultBind,
			HTTPPort:        DefaultHTTPPort,
			WSPort:          DefaultWSPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Watch: WatchConfig{
			Interval: DefaultInterval,
		},
		Render: RenderConfig{
			Style: DefaultStyle,
		},
		Hub: HubConfig{
			SendBuffer: DefaultSendBuffer,
		},
		Log: LogConfig{
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks structural constraints. It is called by Load and again by
// the CLI after flags are applied.
func (c *Config) Validate() error {
	if err := validPort("server.http_port", c.Server.HTTPPort); err != nil {
		return err
	}
	if err := validPort("server.ws_port", c.Server.WSPort); err != nil {
		return err
	}
	if err := validPort("server.metrics_port", c.Server.MetricsPort); err != nil {
		return err
	}
	if c.Server.HTTPPort != 0 && c.Server.HTTPPort == c.Server.WSPort {
		return fmt.Errorf("config: server.http_port and server.ws_port must differ (both %d)", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort != 0 &&
		(c.Server.MetricsPort == c.Server.HTTPPort || c.Server.MetricsPort == c.Server.WSPort) {
		return fmt.Errorf("config: server.metrics_port %d collides with another listener", c.Server.MetricsPort)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("config: server.shutdown_timeout must not be negative")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("config: watch.interval must be positive")
	}
	if c.Render.Style != "" && !render.ValidStyle(c.Render.Style) {
		return fmt.Errorf("config: render.style %q is not a known chroma style", c.Render.Style)
	}
	if c.Hub.SendBuffer <= 0 {
		return fmt.Errorf("config: hub.send_buffer must be positive")
	}
	switch c.Log.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("config: log.format %q unknown: want text|json", c.Log.Format)
	}
	return nil
}

// validPort accepts the TCP range plus 0, which means an ephemeral port for
// the page and hub listeners and "disabled" for metrics.
func validPort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("config: %s %d is out of range [0, 65535]", name, port)
	}
	return nil
}
