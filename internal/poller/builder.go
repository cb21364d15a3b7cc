// internal/poller/builder.go
package poller

import (
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-viewer/internal/config"
)

// Build constructs a Poller from the viewer config and returns it with the
// initial connection parameters and a teardown func.
// No request is made here: polling starts when the user asks for it.
func Build(v cfg.ViewerConfig, log zerolog.Logger) (*Poller, ConnectionConfig, func(), error) {
	fetcher := NewHTTPFetcher(time.Duration(v.TimeoutMs) * time.Millisecond)

	p, err := New(Config{Interval: DefaultInterval}, fetcher, log)
	if err != nil {
		return nil, ConnectionConfig{}, nil, err
	}

	initial := ConnectionConfig{
		Host:  v.Host,
		Port:  v.Port,
		Token: v.Token,
	}

	return p, initial, p.Stop, nil
}
