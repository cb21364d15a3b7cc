// internal/gateway/pipeline.go
package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/source"
	"github.com/tamzrod/modbus-viewer/internal/status"
	"github.com/tamzrod/modbus-viewer/internal/writer"
)

// StalePolls is how many poll intervals may pass without a result before a
// healthy device is reported stale.
const StalePolls = 3

// Pipeline moves poll results from one source into the store and keeps device health.
type Pipeline struct {
	Source  *source.Source
	Writer  writer.Writer
	Status  writer.StatusWriter // optional
	Tracker *status.Tracker
	Log     zerolog.Logger

	// secTick is the seconds-in-error clock; nil means a 1 Hz ticker.
	secTick <-chan time.Time
}

// Run starts the source producer and blocks in the orchestrator loop until ctx is done.
func (p *Pipeline) Run(ctx context.Context) {
	log := p.Log.With().Str("component", "pipeline").Logger()

	out := make(chan source.PollResult)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Source.Run(ctx, out)
	}()
	// the producer must be gone before the caller closes the source
	defer func() { <-done }()

	secC := p.secTick
	if secC == nil {
		secTicker := time.NewTicker(time.Second)
		defer secTicker.Stop()
		secC = secTicker.C
	}

	// Full status assert on start.
	p.writeStatus(log)

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-out:
			// --- data delivery ---
			if err := p.Writer.Write(ctx, res); err != nil {
				log.Error().Err(err).Msg("writer error")
			}
			if res.Err != nil {
				log.Debug().Err(res.Err).Msg("poll failed")
			}

			// --- status update (device-level truth) ---
			if p.Tracker.Observe(res.Err, res.At) {
				p.writeStatus(log)
			}

		case now := <-secC:
			// seconds_in_error and staleness advance here only
			changed := p.Tracker.Tick(now)
			if changed || p.Tracker.Snapshot().Health != status.HealthOK {
				p.writeStatus(log)
			}
		}
	}
}

func (p *Pipeline) writeStatus(log zerolog.Logger) {
	if p.Status == nil {
		return
	}
	if err := p.Status.WriteStatus(p.Tracker.Snapshot()); err != nil {
		log.Error().Err(err).Msg("status write failed")
	}
}
