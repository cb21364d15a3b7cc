// internal/gateway/pipeline_test.go
package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/source"
	"github.com/tamzrod/modbus-viewer/internal/status"
	"github.com/tamzrod/modbus-viewer/internal/writer"
)

type flakyClient struct {
	mu   sync.Mutex
	fail bool
}

func (f *flakyClient) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakyClient) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("i/o timeout")
	}
	return nil
}

func (f *flakyClient) ReadCoils(_, qty uint16) ([]bool, error) { return make([]bool, qty), f.err() }
func (f *flakyClient) ReadDiscreteInputs(_, qty uint16) ([]bool, error) {
	return make([]bool, qty), f.err()
}
func (f *flakyClient) ReadHoldingRegisters(_, qty uint16) ([]uint16, error) {
	return make([]uint16, qty), f.err()
}
func (f *flakyClient) ReadInputRegisters(_, qty uint16) ([]uint16, error) {
	return make([]uint16, qty), f.err()
}

type countingWriter struct {
	mu sync.Mutex
	ok int
}

func (w *countingWriter) Write(_ context.Context, res source.PollResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if res.Err == nil {
		w.ok++
	}
	return nil
}

func (w *countingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ok
}

type recordingStatus struct {
	mu    sync.Mutex
	snaps []status.Snapshot
}

func (r *recordingStatus) WriteStatus(s status.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	return nil
}

var _ writer.StatusWriter = (*recordingStatus)(nil)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPipeline_HealthFollowsPolls(t *testing.T) {
	cli := &flakyClient{}
	src, err := source.New(source.Config{
		Interval: 5 * time.Millisecond,
		Reads:    []source.ReadBlock{{FC: 3, Quantity: 8}},
	}, cli, nil)
	if err != nil {
		t.Fatalf("source.New err=%v", err)
	}

	w := &countingWriter{}
	rs := &recordingStatus{}
	tr := status.NewTracker(0)
	sec := make(chan time.Time)

	p := &Pipeline{Source: src, Writer: w, Status: rs, Tracker: tr, Log: zerolog.Nop(), secTick: sec}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, "healthy", func() bool { return tr.Snapshot().Health == status.HealthOK && w.count() > 0 })

	cli.setFail(true)
	waitFor(t, "error", func() bool { return tr.Snapshot().Health == status.HealthError })

	sec <- time.Now()
	sec <- time.Now()
	waitFor(t, "seconds in error", func() bool { return tr.Snapshot().SecondsInError >= 1 })

	cli.setFail(false)
	waitFor(t, "recovery", func() bool {
		s := tr.Snapshot()
		return s.Health == status.HealthOK && s.SecondsInError == 0
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline did not stop")
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.snaps) < 3 {
		t.Fatalf("expected boot, error and recovery status writes, got %d", len(rs.snaps))
	}
	if rs.snaps[0].Health != status.HealthUnknown {
		t.Fatalf("first status write must be the boot assert, got %+v", rs.snaps[0])
	}
}

func (r *recordingStatus) saw(health uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snaps {
		if s.Health == health {
			return true
		}
	}
	return false
}

func TestPipeline_ReportsStaleHealth(t *testing.T) {
	src, err := source.New(source.Config{
		Interval: 5 * time.Millisecond,
		Reads:    []source.ReadBlock{{FC: 3, Quantity: 8}},
	}, &flakyClient{}, nil)
	if err != nil {
		t.Fatalf("source.New err=%v", err)
	}

	rs := &recordingStatus{}
	tr := status.NewTracker(time.Minute)
	sec := make(chan time.Time)
	p := &Pipeline{Source: src, Writer: &countingWriter{}, Status: rs, Tracker: tr, Log: zerolog.Nop(), secTick: sec}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, "healthy", func() bool { return tr.Snapshot().Health == status.HealthOK })

	// a clock an hour ahead: the last success is outside the stale window
	sec <- time.Now().Add(time.Hour)
	waitFor(t, "stale status write", func() bool { return rs.saw(status.HealthStale) })

	// the next successful poll clears it
	waitFor(t, "recovery", func() bool { return tr.Snapshot().Health == status.HealthOK })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline did not stop")
	}
}
