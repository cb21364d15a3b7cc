// internal/poller/types.go
package poller

import (
	"net"
	"time"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/status"
)

// ConnectionConfig is what the user typed in. No validation beyond what the
// request itself enforces.
type ConnectionConfig struct {
	Host  string `json:"host"`
	Port  string `json:"port"`
	Token string `json:"token"`
}

// URL is the device-data endpoint: http://{host}:{port}/
func (c ConnectionConfig) URL() string {
	return "http://" + net.JoinHostPort(c.Host, c.Port) + "/"
}

// Snapshot is what renderers see after every poll outcome.
type Snapshot struct {
	State status.State

	// Config is the connection the live timer is bound to (or the last one tried).
	Config ConnectionConfig

	// Payload is nil unless the last outcome was a success.
	Payload *device.Payload
	Err     error

	LastAttempt time.Time
	LastSuccess time.Time

	Fetches  uint64 // successful fetches
	Failures uint64
}

// Running reports whether a repeating timer is live for this snapshot.
func (s Snapshot) Running() bool {
	return s.State == status.Polling
}
