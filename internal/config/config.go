package config

import (
	"errors"
	"fmt"
	"time"

	envstruct "code.cloudfoundry.org/go-envstruct"
	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// Config is the application configuration.
type Config struct {
	Logger  LogConf     `toml:"logger"`  // Logger - logger configuration.
	OSC     OSCConf     `toml:"osc"`     // OSC - OSC listener.
	SACN    SACNConf    `toml:"sacn"`    // SACN - sACN listener.
	ArtNet  ArtNetConf  `toml:"artnet"`  // ArtNet - Art-Net listener.
	Serial  SerialConf  `toml:"serial"`  // Serial - serial listener.
	Relay   RelayConf   `toml:"relay"`   // Relay - MQTT relay.
	Metrics MetricsConf `toml:"metrics"` // Metrics - prometheus endpoint.

	PollIntervalMS int `toml:"poll-interval-ms" env:"FLUX_POLL_INTERVAL_MS"` // PollIntervalMS - bounded read timeout.
}

// LogConf is the logger section.
type LogConf struct {
	Level string `toml:"log-level" env:"FLUX_LOG_LEVEL"` // Level - logging level.
}

// OSCConf is the OSC listener section.
type OSCConf struct {
	Autostart   bool   `toml:"autostart" env:"FLUX_OSC_AUTOSTART"`
	IP          string `toml:"ip" env:"FLUX_OSC_IP"`
	Port        int    `toml:"port" env:"FLUX_OSC_PORT"`
	EventBuffer int    `toml:"event-buffer" env:"FLUX_OSC_EVENT_BUFFER"`
}

// SACNConf is the sACN listener section.
type SACNConf struct {
	Autostart   bool     `toml:"autostart" env:"FLUX_SACN_AUTOSTART"`
	IP          string   `toml:"ip" env:"FLUX_SACN_IP"`
	Port        int      `toml:"port" env:"FLUX_SACN_PORT"`
	Universes   []uint16 `toml:"universes"`
	EventBuffer int      `toml:"event-buffer" env:"FLUX_SACN_EVENT_BUFFER"`
}

// ArtNetConf is the Art-Net listener section.
type ArtNetConf struct {
	Autostart    bool     `toml:"autostart" env:"FLUX_ARTNET_AUTOSTART"`
	IP           string   `toml:"ip" env:"FLUX_ARTNET_IP"`
	Port         int      `toml:"port" env:"FLUX_ARTNET_PORT"`
	AddressRange string   `toml:"address-range" env:"FLUX_ARTNET_ADDRESS_RANGE"` // AddressRange - CIDR used when no IP is given.
	Universes    []uint16 `toml:"universes"`
	EventBuffer  int      `toml:"event-buffer" env:"FLUX_ARTNET_EVENT_BUFFER"`
}

// SerialConf is the serial listener section.
type SerialConf struct {
	Autostart   bool   `toml:"autostart" env:"FLUX_SERIAL_AUTOSTART"`
	Port        string `toml:"port" env:"FLUX_SERIAL_PORT"`
	BaudRate    int    `toml:"baud-rate" env:"FLUX_SERIAL_BAUD_RATE"`
	EventBuffer int    `toml:"event-buffer" env:"FLUX_SERIAL_EVENT_BUFFER"`
}

// RelayConf is the MQTT relay section.
type RelayConf struct {
	Enabled     bool   `toml:"enabled" env:"FLUX_RELAY_ENABLED"`
	ClientID    string `toml:"clientID" env:"FLUX_RELAY_CLIENT_ID"` // ClientID - empty generates one.
	Host        string `toml:"server" env:"FLUX_RELAY_SERVER"`
	Port        string `toml:"port" env:"FLUX_RELAY_PORT"`
	User        string `toml:"user" env:"FLUX_RELAY_USER"`
	Password    string `toml:"password" env:"FLUX_RELAY_PASSWORD"`
	Qos         byte   `toml:"qos" env:"FLUX_RELAY_QOS"`
	TopicPrefix string `toml:"topic-prefix" env:"FLUX_RELAY_TOPIC_PREFIX"`
}

// MetricsConf is the prometheus section.
type MetricsConf struct {
	Enabled bool   `toml:"enabled" env:"FLUX_METRICS_ENABLED"`
	Addr    string `toml:"addr" env:"FLUX_METRICS_ADDR"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		Logger: LogConf{Level: "info"},
		OSC: OSCConf{
			Autostart:   true,
			IP:          "0.0.0.0",
			Port:        8000,
			EventBuffer: 1024,
		},
		SACN: SACNConf{
			IP:          "0.0.0.0",
			Port:        5568,
			EventBuffer: 1024,
		},
		ArtNet: ArtNetConf{
			Port:         6454,
			AddressRange: "192.168.6.0/24",
			EventBuffer:  1024,
		},
		Serial: SerialConf{
			BaudRate:    115200,
			EventBuffer: 1024,
		},
		Relay: RelayConf{
			Port:        "1883",
			TopicPrefix: "fluxviewer",
		},
		Metrics: MetricsConf{
			Addr: "127.0.0.1:9464",
		},
		PollIntervalMS: 100,
	}
}

// NewConfig reads path from fs over the defaults, then applies FLUX_* environment overrides.
func NewConfig(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := envstruct.Load(&cfg); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollInterval is the bounded read timeout shared by all listeners.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *Config) validate() error {
	if c.PollIntervalMS <= 0 {
		return errors.New("poll-interval-ms must be positive")
	}
	for name, size := range map[string]int{
		"osc":    c.OSC.EventBuffer,
		"sacn":   c.SACN.EventBuffer,
		"artnet": c.ArtNet.EventBuffer,
		"serial": c.Serial.EventBuffer,
	} {
		if size <= 0 {
			return fmt.Errorf("%s.event-buffer must be positive, got %d", name, size)
		}
	}
	for name, port := range map[string]int{
		"osc":    c.OSC.Port,
		"sacn":   c.SACN.Port,
		"artnet": c.ArtNet.Port,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s.port out of range: %d", name, port)
		}
	}
	if c.Relay.Enabled && c.Relay.Host == "" {
		return errors.New("relay.server is required when the relay is enabled")
	}
	return nil
}
