// internal/writer/status_writer.go
package writer

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and delivers it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// logStatusWriter delivers status transitions to the gateway log.
// The first write asserts the full snapshot; later writes emit only changed slots.
type logStatusWriter struct {
	log      zerolog.Logger
	needFull bool
	last     status.Snapshot
}

// NewLogStatusWriter builds a status writer for one device.
func NewLogStatusWriter(log zerolog.Logger, device string) StatusWriter {
	return &logStatusWriter{
		log:      log.With().Str("component", "status").Str("device", device).Logger(),
		needFull: true,
		last:     status.Snapshot{Health: status.HealthUnknown},
	}
}

func (sw *logStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil {
		return errors.New("status writer: disabled")
	}

	if sw.needFull {
		sw.event(s).
			Uint16("health_code", s.Health).
			Uint16("last_error_code", s.LastErrorCode).
			Uint16("seconds_in_error", s.SecondsInError).
			Msg("device status")
		sw.needFull = false
		sw.last = s
		return nil
	}

	if sw.last.Health != s.Health {
		sw.event(s).
			Str("from", status.HealthName(sw.last.Health)).
			Str("to", status.HealthName(s.Health)).
			Msg("health changed")
		sw.last.Health = s.Health
	}

	if sw.last.LastErrorCode != s.LastErrorCode {
		sw.event(s).
			Uint16("last_error_code", s.LastErrorCode).
			Msg("error code changed")
		sw.last.LastErrorCode = s.LastErrorCode
	}

	// seconds_in_error moves every tick while in error; track it without logging each step
	sw.last.SecondsInError = s.SecondsInError
	return nil
}

func (sw *logStatusWriter) event(s status.Snapshot) *zerolog.Event {
	if s.Health == status.HealthError {
		return sw.log.Warn().Str("last_error", s.LastError)
	}
	return sw.log.Info()
}
