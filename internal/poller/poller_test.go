// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/status"
)

// ---- fakes ----

type fetchResult struct {
	payload device.Payload
	err     error
}

// fakeFetcher replays results in order; the last one repeats.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   []ConnectionConfig
}

func (f *fakeFetcher) Fetch(ctx context.Context, cfg ConnectionConfig) (device.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg)
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.payload, r.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) call(i int) ConnectionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type fakeTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

type tickers struct {
	mu   sync.Mutex
	list []*fakeTicker
}

func (ts *tickers) count() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.list)
}

func (ts *tickers) get(i int) *fakeTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.list[i]
}

// ---- helpers ----

var (
	okPayload = device.Payload{User: "bob", IP: "10.0.0.5", IR: "1,2,3", HR: "10,20", CO: "1,0", DI: "0,1"}
	cfgA      = ConnectionConfig{Host: "10.0.0.5", Port: "8000", Token: "abc"}
	cfgB      = ConnectionConfig{Host: "10.0.0.6", Port: "8000", Token: "xyz"}
	errDenied = &FetchError{Kind: KindAuthOrServer, StatusCode: 401}
)

func ok() fetchResult             { return fetchResult{payload: okPayload} }
func failed(err error) fetchResult { return fetchResult{err: err} }

func newTestPoller(t *testing.T, f Fetcher) (*Poller, *tickers, chan Snapshot) {
	t.Helper()

	p, err := New(Config{Interval: time.Second}, f, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ts := &tickers{}
	p.newTicker = func(time.Duration) ticker {
		tk := &fakeTicker{c: make(chan time.Time), stopped: make(chan struct{})}
		ts.mu.Lock()
		ts.list = append(ts.list, tk)
		ts.mu.Unlock()
		return tk
	}

	snaps := make(chan Snapshot, 32)
	p.Subscribe(func(s Snapshot) { snaps <- s })

	t.Cleanup(p.Stop)
	return p, ts, snaps
}

func waitSnapshot(t *testing.T, snaps <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-snaps:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func waitStopped(t *testing.T, tk *fakeTicker) {
	t.Helper()
	select {
	case <-tk.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("ticker was not stopped")
	}
}

// ---- tests ----

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, &fakeFetcher{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected interval error")
	}
	if _, err := New(Config{Interval: time.Second}, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected fetcher error")
	}
}

func TestInitialState(t *testing.T) {
	p, _, _ := newTestPoller(t, &fakeFetcher{results: []fetchResult{ok()}})
	s := p.Snapshot()
	if s.State != status.Idle || s.Payload != nil || s.Err != nil {
		t.Fatalf("unexpected initial snapshot: %+v", s)
	}
}

func TestStart_SuccessStartsOneTimer(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok()}}
	p, ts, _ := newTestPoller(t, f)

	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	s := p.Snapshot()
	if s.State != status.Polling {
		t.Fatalf("expected polling, got %v", s.State)
	}
	if s.Payload == nil || s.Payload.IR != "1,2,3" {
		t.Fatalf("payload not exposed: %+v", s.Payload)
	}
	if ts.count() != 1 {
		t.Fatalf("expected 1 timer, got %d", ts.count())
	}
	if f.callCount() != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", f.callCount())
	}
	if !p.Running() {
		t.Fatalf("timer should be live")
	}
}

func TestStart_Idempotent(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok()}}
	p, ts, _ := newTestPoller(t, f)

	for i := 0; i < 3; i++ {
		if err := p.Start(context.Background(), cfgA); err != nil {
			t.Fatalf("Start #%d err=%v", i, err)
		}
	}

	if ts.count() != 1 {
		t.Fatalf("second success must not create a second timer, got %d", ts.count())
	}
	if f.callCount() != 3 {
		t.Fatalf("each Start fetches once: got %d calls", f.callCount())
	}
}

func TestTick_UsesConfigCapturedAtStart(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok()}}
	p, ts, snaps := newTestPoller(t, f)

	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	if err := p.Start(context.Background(), cfgB); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	waitSnapshot(t, snaps)
	waitSnapshot(t, snaps)

	ts.get(0).c <- time.Now()
	s := waitSnapshot(t, snaps)

	if s.State != status.Polling || s.Fetches != 3 {
		t.Fatalf("unexpected snapshot after tick: %+v", s)
	}
	if got := f.call(2); got != cfgA {
		t.Fatalf("tick used %+v, want captured %+v", got, cfgA)
	}
	if s.Config != cfgA {
		t.Fatalf("snapshot config %+v, want %+v", s.Config, cfgA)
	}
}

func TestTick_FailureCancelsTimerAndClearsPayload(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok(), failed(errDenied)}}
	p, ts, snaps := newTestPoller(t, f)

	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	waitSnapshot(t, snaps)

	ts.get(0).c <- time.Now()
	s := waitSnapshot(t, snaps)

	if s.State != status.Errored {
		t.Fatalf("expected errored, got %v", s.State)
	}
	if s.Payload != nil {
		t.Fatalf("stale payload still exposed")
	}
	if !errors.Is(s.Err, ErrAuthOrServer) {
		t.Fatalf("expected auth/server error, got %v", s.Err)
	}

	waitStopped(t, ts.get(0))
	if p.Running() {
		t.Fatalf("timer still live after failure")
	}
}

func TestStart_FailureCancelsRunningTimer(t *testing.T) {
	netErr := &FetchError{Kind: KindNetwork, Err: errors.New("connection refused")}
	f := &fakeFetcher{results: []fetchResult{ok(), failed(netErr)}}
	p, ts, _ := newTestPoller(t, f)

	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	err := p.Start(context.Background(), cfgA)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}

	s := p.Snapshot()
	if s.State != status.Errored || s.Payload != nil || s.Failures != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	waitStopped(t, ts.get(0))
	if p.Running() {
		t.Fatalf("timer still live after failure")
	}
}

func TestStart_FirstFailureCreatesNoTimer(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{failed(errDenied)}}
	p, ts, _ := newTestPoller(t, f)

	if err := p.Start(context.Background(), cfgA); err == nil {
		t.Fatalf("expected error")
	}
	if ts.count() != 0 {
		t.Fatalf("no timer expected, got %d", ts.count())
	}
	if s := p.Snapshot(); s.State != status.Errored {
		t.Fatalf("expected errored, got %v", s.State)
	}
}

func TestStart_ManualRetryAfterFailure(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok(), failed(errDenied), ok()}}
	p, ts, _ := newTestPoller(t, f)

	_ = p.Start(context.Background(), cfgA)
	_ = p.Start(context.Background(), cfgA)
	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("retry Start err=%v", err)
	}

	if ts.count() != 2 {
		t.Fatalf("expected a fresh timer after retry, got %d timers", ts.count())
	}
	s := p.Snapshot()
	if s.State != status.Polling || s.Err != nil || s.Payload == nil {
		t.Fatalf("unexpected snapshot after retry: %+v", s)
	}
}

func TestStop(t *testing.T) {
	f := &fakeFetcher{results: []fetchResult{ok()}}
	p, ts, _ := newTestPoller(t, f)

	p.Stop() // idle: no-op

	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	p.Stop()
	p.Stop()

	waitStopped(t, ts.get(0))
	if p.Running() {
		t.Fatalf("timer still live after Stop")
	}
	if s := p.Snapshot(); s.State != status.Idle {
		t.Fatalf("expected idle after Stop, got %v", s.State)
	}
}

// blockingFetcher succeeds once, then blocks every later call until its context ends.
type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
}

func (b *blockingFetcher) Fetch(ctx context.Context, cfg ConnectionConfig) (device.Payload, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()

	if n == 1 {
		return okPayload, nil
	}
	close(b.entered)
	<-ctx.Done()
	return device.Payload{}, &FetchError{Kind: KindNetwork, Err: ctx.Err()}
}

func TestStop_DiscardsInFlightResult(t *testing.T) {
	f := &blockingFetcher{entered: make(chan struct{})}
	p, ts, _ := newTestPoller(t, f)

	if err := p.Start(context.Background(), cfgA); err != nil {
		t.Fatalf("Start err=%v", err)
	}

	ts.get(0).c <- time.Now()
	<-f.entered

	p.Stop()

	s := p.Snapshot()
	if s.State != status.Idle || s.Failures != 0 {
		t.Fatalf("cancelled fetch must not surface as failure: %+v", s)
	}
}
