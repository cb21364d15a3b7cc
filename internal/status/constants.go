// internal/status/constants.go
package status

// ---- HEALTH CODES ----
// Numeric codes are reported verbatim on /health and MUST NOT be renumbered.

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale: the last success is older than the stale window while no failure was seen
// (a poll cycle is hanging).
const HealthStale uint16 = 3

// SecondsInErrorMax is the saturation point of the seconds-in-error counter.
const SecondsInErrorMax uint16 = 65535

// HealthName returns the lowercase name of a health code.
func HealthName(code uint16) string {
	switch code {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	default:
		return "unknown"
	}
}

// ---- POLL STATE ----

// State is the viewer's polling state.
type State uint8

const (
	// Idle: nothing fetched yet, or stopped.
	Idle State = iota
	// Polling: last fetch succeeded and the repeating timer is live.
	Polling
	// Errored: last fetch failed; timer cancelled, payload cleared.
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Health maps a poll state onto the shared health codes.
func (s State) Health() uint16 {
	switch s {
	case Polling:
		return HealthOK
	case Errored:
		return HealthError
	default:
		return HealthUnknown
	}
}
