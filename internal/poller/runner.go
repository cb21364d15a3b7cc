// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// ticker is the subset of time.Ticker the run loop needs.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func newTimeTicker(d time.Duration) ticker { return timeTicker{t: time.NewTicker(d)} }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// pollTimer is the handle held in the poller's single timer slot.
type pollTimer struct {
	cfg    ConnectionConfig
	cancel context.CancelFunc
	done   chan struct{}
}

// startTimerLocked creates the timer goroutine. Caller holds p.mu.
func (p *Poller) startTimerLocked(cfg ConnectionConfig) *pollTimer {
	ctx, cancel := context.WithCancel(context.Background())
	t := &pollTimer{
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(ctx, t, p.newTicker(p.cfg.Interval))
	return t
}

// run is the tick loop. One goroutine per live timer.
// Ticks are handled serially: a tick that fires while a fetch is in flight is
// dropped by the ticker, so requests never overlap. No retries.
func (p *Poller) run(ctx context.Context, t *pollTimer, tk ticker) {
	defer close(t.done)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C():
			payload, err := p.FetchOnce(ctx, t.cfg)
			if ctx.Err() != nil {
				// stopped mid-request; outcome is stale
				return
			}
			if err != nil {
				p.fail(t, t.cfg, err)
				return
			}
			p.succeed(t, t.cfg, payload)
		}
	}
}
