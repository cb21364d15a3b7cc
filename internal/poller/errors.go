// internal/poller/errors.go
package poller

import "fmt"

// Kind classifies a fetch failure.
type Kind uint8

const (
	// KindNetwork: the request could not be sent or completed.
	KindNetwork Kind = iota + 1
	// KindAuthOrServer: non-2xx status. Authentication and server failures collapse here.
	KindAuthOrServer
	// KindParse: the body is not a JSON object.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthOrServer:
		return "auth_or_server"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// FetchError is the only error type returned by a Fetcher.
type FetchError struct {
	Kind       Kind
	StatusCode int // set for KindAuthOrServer
	Err        error
}

// Sentinels for errors.Is.
var (
	ErrNetwork      error = &FetchError{Kind: KindNetwork}
	ErrAuthOrServer error = &FetchError{Kind: KindAuthOrServer}
	ErrParse        error = &FetchError{Kind: KindParse}
)

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindAuthOrServer:
		if e.StatusCode != 0 {
			return fmt.Sprintf("unauthorized or server error (status %d)", e.StatusCode)
		}
		return "unauthorized or server error"
	case KindParse:
		if e.Err != nil {
			return fmt.Sprintf("invalid response body: %v", e.Err)
		}
		return "invalid response body"
	default:
		if e.Err != nil {
			return fmt.Sprintf("network error: %v", e.Err)
		}
		return "network error"
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can test against the sentinels.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Code exposes a numeric code for health reporting.
// HTTP status for auth/server failures, otherwise the kind.
func (e *FetchError) Code() uint16 {
	if e.Kind == KindAuthOrServer && e.StatusCode > 0 {
		return uint16(e.StatusCode)
	}
	return uint16(e.Kind)
}
