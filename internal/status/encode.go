// internal/status/encode.go
package status

import "time"

// Report is the JSON shape served on /health.
type Report struct {
	Status         string     `json:"status"`
	HealthCode     uint16     `json:"health_code"`
	LastErrorCode  uint16     `json:"last_error_code"`
	SecondsInError uint16     `json:"seconds_in_error"`
	LastError      string     `json:"last_error,omitempty"`
	LastSuccess    *time.Time `json:"last_success,omitempty"`
}

// Encode converts a Snapshot into a health report.
// No IO. No side effects.
func Encode(s Snapshot) Report {
	r := Report{
		Status:         HealthName(s.Health),
		HealthCode:     s.Health,
		LastErrorCode:  s.LastErrorCode,
		SecondsInError: s.SecondsInError,
		LastError:      s.LastError,
	}
	if !s.LastSuccess.IsZero() {
		at := s.LastSuccess
		r.LastSuccess = &at
	}
	return r
}
