// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/modbus-viewer/internal/logging"
)

type Config struct {
	Log       logging.Config  `yaml:"log"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// ---- VIEWER ----

// ViewerConfig only pre-fills the dashboard inputs; the user can change them at runtime.
type ViewerConfig struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
	UI        string `yaml:"ui"`     // tui | web
	Listen    string `yaml:"listen"` // web ui only
}

// ---- GATEWAY ----

type GatewayConfig struct {
	Listen   string       `yaml:"listen"`
	Database string       `yaml:"database"`
	Source   SourceConfig `yaml:"source"`
	Reads    []ReadConfig `yaml:"reads"`
	Poll     PollConfig   `yaml:"poll"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Mode      string `yaml:"mode"`     // tcp | rtu
	Endpoint  string `yaml:"endpoint"` // host:port (tcp) or serial device (rtu)
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// RTU only
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // N | E | O
	StopBits int    `yaml:"stop_bits"`
}

// ---- READ GEOMETRY ----

type ReadConfig struct {
	FC       uint8  `yaml:"fc"`
	Address  uint16 `yaml:"address"`
	Quantity uint16 `yaml:"quantity"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- SIMULATOR ----

type SimulatorConfig struct {
	Listen    string `yaml:"listen"`
	BlockData string `yaml:"blockdata"` // path to block data YAML
}

// Load reads a YAML config file. An empty path yields the zero config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
