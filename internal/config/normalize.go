// internal/config/normalize.go
package config

import "strings"

// Defaults mirror the lab setup: gateway on :8000, device slave 1 on :502,
// 4 discrete inputs, 4 coils, 8 input registers, 8 holding registers.
const (
	DefaultViewerPort      = "8000"
	DefaultViewerTimeoutMs = 2000
	DefaultViewerListen    = ":8080"

	DefaultGatewayListen   = ":8000"
	DefaultGatewayDatabase = "modbus_db.sqlite"
	DefaultSourceEndpoint  = "127.0.0.1:502"
	DefaultSourceUnitID    = 1
	DefaultSourceTimeoutMs = 1000
	DefaultPollIntervalMs  = 1000

	DefaultSimulatorListen    = "0.0.0.0:502"
	DefaultSimulatorBlockData = "blockdata_init.yaml"
)

// DefaultReads is the read geometry used when none is configured.
func DefaultReads() []ReadConfig {
	return []ReadConfig{
		{FC: 2, Address: 0, Quantity: 4}, // discrete inputs
		{FC: 1, Address: 0, Quantity: 4}, // coils
		{FC: 4, Address: 0, Quantity: 8}, // input registers
		{FC: 3, Address: 0, Quantity: 8}, // holding registers
	}
}

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ---- viewer ----
	v := &cfg.Viewer
	if v.Port == "" {
		v.Port = DefaultViewerPort
	}
	if v.TimeoutMs == 0 {
		v.TimeoutMs = DefaultViewerTimeoutMs
	}
	v.UI = strings.ToLower(v.UI)
	if v.UI == "" {
		v.UI = "tui"
	}
	if v.Listen == "" {
		v.Listen = DefaultViewerListen
	}

	// ---- gateway ----
	g := &cfg.Gateway
	if g.Listen == "" {
		g.Listen = DefaultGatewayListen
	}
	if g.Database == "" {
		g.Database = DefaultGatewayDatabase
	}
	if g.Poll.IntervalMs == 0 {
		g.Poll.IntervalMs = DefaultPollIntervalMs
	}
	if len(g.Reads) == 0 {
		g.Reads = DefaultReads()
	}

	s := &g.Source
	s.Mode = strings.ToLower(s.Mode)
	if s.Mode == "" {
		s.Mode = "tcp"
	}
	if s.Endpoint == "" && s.Mode == "tcp" {
		s.Endpoint = DefaultSourceEndpoint
	}
	if s.UnitID == 0 {
		s.UnitID = DefaultSourceUnitID
	}
	if s.TimeoutMs == 0 {
		s.TimeoutMs = DefaultSourceTimeoutMs
	}
	if s.Mode == "rtu" {
		if s.BaudRate == 0 {
			s.BaudRate = 9600
		}
		if s.DataBits == 0 {
			s.DataBits = 8
		}
		if s.Parity == "" {
			s.Parity = "N"
		}
		if s.StopBits == 0 {
			s.StopBits = 1
		}
	}
	s.Parity = strings.ToUpper(s.Parity)

	// ---- simulator ----
	if cfg.Simulator.Listen == "" {
		cfg.Simulator.Listen = DefaultSimulatorListen
	}
	if cfg.Simulator.BlockData == "" {
		cfg.Simulator.BlockData = DefaultSimulatorBlockData
	}
}
