// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only. Zero values mean "use the default".
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// VIEWER
	// ------------------------------------------------------------

	v := cfg.Viewer
	switch strings.ToLower(v.UI) {
	case "", "tui", "web":
	default:
		return fmt.Errorf("viewer: ui must be tui or web, got %q", v.UI)
	}
	if v.TimeoutMs < 0 {
		return fmt.Errorf("viewer: timeout_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// GATEWAY SOURCE
	// ------------------------------------------------------------

	s := cfg.Gateway.Source
	switch strings.ToLower(s.Mode) {
	case "", "tcp", "rtu":
	default:
		return fmt.Errorf("gateway.source: mode must be tcp or rtu, got %q", s.Mode)
	}
	if strings.EqualFold(s.Mode, "rtu") && s.Endpoint == "" {
		return fmt.Errorf("gateway.source: rtu mode requires a serial device endpoint")
	}
	if s.TimeoutMs < 0 {
		return fmt.Errorf("gateway.source: timeout_ms must be >= 0")
	}
	switch strings.ToUpper(s.Parity) {
	case "", "N", "E", "O":
	default:
		return fmt.Errorf("gateway.source: parity must be N, E or O, got %q", s.Parity)
	}
	if s.StopBits != 0 && s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("gateway.source: stop_bits must be 1 or 2")
	}
	if cfg.Gateway.Poll.IntervalMs < 0 {
		return fmt.Errorf("gateway.poll: interval_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// READ GEOMETRY
	// ------------------------------------------------------------

	seen := make(map[uint8]bool)
	for i, r := range cfg.Gateway.Reads {
		if r.FC < 1 || r.FC > 4 {
			return fmt.Errorf("gateway.reads[%d]: unsupported fc %d", i, r.FC)
		}
		if seen[r.FC] {
			return fmt.Errorf("gateway.reads[%d]: fc %d declared twice", i, r.FC)
		}
		seen[r.FC] = true

		if r.Quantity == 0 {
			return fmt.Errorf("gateway.reads[%d]: quantity must be > 0", i)
		}
		limit := uint16(125) // registers per request
		if r.FC == 1 || r.FC == 2 {
			limit = 2000 // bits per request
		}
		if r.Quantity > limit {
			return fmt.Errorf("gateway.reads[%d]: fc %d quantity %d exceeds %d", i, r.FC, r.Quantity, limit)
		}
		if uint32(r.Address)+uint32(r.Quantity) > 65536 {
			return fmt.Errorf("gateway.reads[%d]: range %d+%d exceeds address space", i, r.Address, r.Quantity)
		}
	}

	return nil
}
