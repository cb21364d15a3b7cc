// internal/status/snapshot.go
package status

import "time"

// Snapshot is the source health as last observed.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	LastError      string
	LastSuccess    time.Time
}
