// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/status"
)

// DefaultInterval is the fixed poll period.
const DefaultInterval = time.Second

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
}

// Poller fetches once on Start and, after the first success, keeps fetching on a
// fixed period until a fetch fails or Stop is called.
//
// The timer handle is a single slot: created on first success, cleared on failure
// or Stop. Starting while a timer is live never creates a second one.
type Poller struct {
	cfg     Config
	fetcher Fetcher
	log     zerolog.Logger

	newTicker func(time.Duration) ticker

	// notifyMu serializes apply+notify so subscribers see snapshots in order.
	notifyMu sync.Mutex

	mu    sync.Mutex
	timer *pollTimer
	snap  Snapshot
	subs  []func(Snapshot)
}

// New creates a poller in the Idle state.
func New(cfg Config, fetcher Fetcher, log zerolog.Logger) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if fetcher == nil {
		return nil, errors.New("poller: fetcher required")
	}
	return &Poller{
		cfg:       cfg,
		fetcher:   fetcher,
		log:       log.With().Str("component", "poller").Logger(),
		newTicker: newTimeTicker,
		snap:      Snapshot{State: status.Idle},
	}, nil
}

// Subscribe registers fn to receive every snapshot change.
// fn runs on the goroutine that produced the outcome and must not call back into the Poller.
func (p *Poller) Subscribe(fn func(Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// FetchOnce performs exactly one request. It does not touch poller state.
func (p *Poller) FetchOnce(ctx context.Context, cfg ConnectionConfig) (device.Payload, error) {
	started := time.Now()
	payload, err := p.fetcher.Fetch(ctx, cfg)
	if err != nil {
		p.log.Debug().Err(err).Str("url", cfg.URL()).Dur("took", time.Since(started)).Msg("fetch failed")
		return device.Payload{}, err
	}
	p.log.Trace().Str("url", cfg.URL()).Dur("took", time.Since(started)).Msg("fetch ok")
	return payload, nil
}

// Start fetches immediately. On success the repeating timer is started unless one
// is already live; on failure any live timer is cancelled and the payload cleared.
// The timer keeps using the config captured when it was created.
func (p *Poller) Start(ctx context.Context, cfg ConnectionConfig) error {
	payload, err := p.FetchOnce(ctx, cfg)
	if err != nil {
		p.fail(nil, cfg, err)
		return err
	}
	p.succeed(nil, cfg, payload)
	return nil
}

// Stop cancels the live timer, if any, and waits for its goroutine to exit.
// Safe to call at any time, including repeatedly and on teardown.
func (p *Poller) Stop() {
	p.notifyMu.Lock()
	p.mu.Lock()
	t := p.timer
	p.timer = nil
	changed := false
	if p.snap.State == status.Polling {
		p.snap.State = status.Idle
		changed = true
	}
	snap, subs := p.snap, p.subscribers()
	p.mu.Unlock()

	if changed {
		notify(subs, snap)
	}
	p.notifyMu.Unlock()

	if t == nil {
		return
	}
	t.cancel()
	<-t.done
	p.log.Info().Str("url", t.cfg.URL()).Msg("polling stopped")
}

// Running reports whether a timer is live.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

// ---- outcome application ----

// succeed applies a successful fetch. owner is the timer that produced it, nil for Start.
func (p *Poller) succeed(owner *pollTimer, cfg ConnectionConfig, payload device.Payload) {
	now := time.Now()

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if owner != nil && p.timer != owner {
		// timer was cancelled while the request was in flight
		p.mu.Unlock()
		return
	}

	p.snap.State = status.Polling
	p.snap.Payload = &payload
	p.snap.Err = nil
	p.snap.LastAttempt = now
	p.snap.LastSuccess = now
	p.snap.Fetches++

	if p.timer == nil {
		p.timer = p.startTimerLocked(cfg)
		p.snap.Config = cfg
		p.log.Info().Str("url", cfg.URL()).Dur("interval", p.cfg.Interval).Msg("polling started")
	}

	snap, subs := p.snap, p.subscribers()
	p.mu.Unlock()

	notify(subs, snap)
}

// fail applies a failed fetch: timer cancelled, payload cleared, error surfaced.
func (p *Poller) fail(owner *pollTimer, cfg ConnectionConfig, err error) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if owner != nil && p.timer != owner {
		p.mu.Unlock()
		return
	}

	if t := p.timer; t != nil {
		p.timer = nil
		// no wait: owner may be the caller's own goroutine
		t.cancel()
	}

	p.snap.State = status.Errored
	p.snap.Config = cfg
	p.snap.Payload = nil
	p.snap.Err = err
	p.snap.LastAttempt = time.Now()
	p.snap.Failures++

	snap, subs := p.snap, p.subscribers()
	p.mu.Unlock()

	p.log.Warn().Err(err).Str("url", cfg.URL()).Msg("polling halted")
	notify(subs, snap)
}

func (p *Poller) subscribers() []func(Snapshot) {
	out := make([]func(Snapshot), len(p.subs))
	copy(out, p.subs)
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
