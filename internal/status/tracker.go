// internal/status/tracker.go
package status

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Tracker owns a Snapshot and applies poll outcomes and 1 Hz ticks to it.
// Safe for concurrent use: the poll loop observes, HTTP handlers read.
type Tracker struct {
	mu         sync.RWMutex
	snap       Snapshot
	staleAfter time.Duration
}

// NewTracker returns a tracker in the boot state.
// A healthy device turns stale when no success lands within staleAfter; 0 disables it.
func NewTracker(staleAfter time.Duration) *Tracker {
	return &Tracker{
		snap:       Snapshot{Health: HealthUnknown},
		staleAfter: staleAfter,
	}
}

// Observe applies one poll outcome. It reports whether the snapshot changed.
func (t *Tracker) Observe(err error, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false

	if err == nil {
		// Recovery / OK
		if t.snap.Health != HealthOK {
			t.snap.Health = HealthOK
			changed = true
		}
		if t.snap.LastErrorCode != 0 {
			t.snap.LastErrorCode = 0
			changed = true
		}
		if t.snap.SecondsInError != 0 {
			t.snap.SecondsInError = 0
			changed = true
		}
		t.snap.LastError = ""
		t.snap.LastSuccess = at
		return changed
	}

	if t.snap.Health != HealthError {
		t.snap.Health = HealthError
		changed = true
	}
	code := ErrorCode(err)
	if t.snap.LastErrorCode != code {
		t.snap.LastErrorCode = code
		changed = true
	}
	t.snap.LastError = err.Error()

	// NOTE: seconds_in_error increments on Tick only.
	return changed
}

// Tick runs at 1 Hz. A healthy device whose last success is older than staleAfter
// turns stale; while not OK, seconds_in_error advances (saturates, never wraps).
// It reports whether the health code changed.
func (t *Tracker) Tick(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health == HealthOK {
		if t.staleAfter <= 0 || now.Sub(t.snap.LastSuccess) <= t.staleAfter {
			return false
		}
		t.snap.Health = HealthStale
		return true
	}
	if t.snap.SecondsInError < SecondsInErrorMax {
		t.snap.SecondsInError++
	}
	return false
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}
	// device exception: pass the Modbus exception code through
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return uint16(me.ExceptionCode)
	}

	return 1
}
