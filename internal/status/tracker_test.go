// internal/status/tracker_test.go
package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goburrow/modbus"
)

type codedErr struct{ code uint16 }

func (e codedErr) Error() string { return "coded" }
func (e codedErr) Code() uint16  { return e.code }

func TestTracker_ErrorThenRecovery(t *testing.T) {
	tr := NewTracker(0)

	if got := tr.Snapshot().Health; got != HealthUnknown {
		t.Fatalf("boot health: got=%d want=%d", got, HealthUnknown)
	}

	if !tr.Observe(codedErr{code: 42}, time.Now()) {
		t.Fatalf("first error should change snapshot")
	}
	tr.Tick(time.Now())
	tr.Tick(time.Now())

	s := tr.Snapshot()
	if s.Health != HealthError || s.LastErrorCode != 42 || s.SecondsInError != 2 {
		t.Fatalf("unexpected error snapshot: %+v", s)
	}

	now := time.Now()
	if !tr.Observe(nil, now) {
		t.Fatalf("recovery should change snapshot")
	}
	s = tr.Snapshot()
	if s.Health != HealthOK || s.LastErrorCode != 0 || s.SecondsInError != 0 {
		t.Fatalf("seconds_in_error not reset on recovery: %+v", s)
	}
	if !s.LastSuccess.Equal(now) {
		t.Fatalf("last success not recorded")
	}
}

func TestTracker_TickIgnoredWhenOK(t *testing.T) {
	tr := NewTracker(0)
	tr.Observe(nil, time.Now())
	tr.Tick(time.Now())
	if got := tr.Snapshot().SecondsInError; got != 0 {
		t.Fatalf("seconds_in_error advanced while OK: %d", got)
	}
}

func TestTracker_SecondsInErrorSaturates(t *testing.T) {
	tr := NewTracker(0)
	tr.Observe(errors.New("boom"), time.Now())
	tr.snap.SecondsInError = SecondsInErrorMax
	tr.Tick(time.Now())
	if got := tr.Snapshot().SecondsInError; got != SecondsInErrorMax {
		t.Fatalf("seconds_in_error wrapped: %d", got)
	}
}

func TestTracker_StaleWithoutSuccess(t *testing.T) {
	tr := NewTracker(3 * time.Second)
	t0 := time.Now()
	tr.Observe(nil, t0)

	if tr.Tick(t0.Add(2 * time.Second)) {
		t.Fatalf("fresh success reported as changed")
	}
	if got := tr.Snapshot().Health; got != HealthOK {
		t.Fatalf("health before window: got=%d want=%d", got, HealthOK)
	}

	if !tr.Tick(t0.Add(4 * time.Second)) {
		t.Fatalf("stale transition not reported")
	}
	s := tr.Snapshot()
	if s.Health != HealthStale || HealthName(s.Health) != "stale" {
		t.Fatalf("expected stale, got %+v", s)
	}

	tr.Tick(t0.Add(5 * time.Second))
	if got := tr.Snapshot().SecondsInError; got != 1 {
		t.Fatalf("seconds_in_error while stale: got=%d want=1", got)
	}

	if !tr.Observe(nil, t0.Add(6*time.Second)) {
		t.Fatalf("recovery from stale should change snapshot")
	}
	s = tr.Snapshot()
	if s.Health != HealthOK || s.SecondsInError != 0 {
		t.Fatalf("unexpected recovered snapshot: %+v", s)
	}
}

func TestTracker_StaleThenError(t *testing.T) {
	tr := NewTracker(time.Second)
	t0 := time.Now()
	tr.Observe(nil, t0)
	tr.Tick(t0.Add(2 * time.Second))

	if !tr.Observe(errors.New("i/o timeout"), t0.Add(3*time.Second)) {
		t.Fatalf("error after stale should change snapshot")
	}
	if got := tr.Snapshot().Health; got != HealthError {
		t.Fatalf("health: got=%d want=%d", got, HealthError)
	}
}

func TestTracker_StaleDisabled(t *testing.T) {
	tr := NewTracker(0)
	t0 := time.Now()
	tr.Observe(nil, t0)
	if tr.Tick(t0.Add(time.Hour)) || tr.Snapshot().Health != HealthOK {
		t.Fatalf("stale window disabled but health changed: %+v", tr.Snapshot())
	}
}

func TestErrorCode_ModbusException(t *testing.T) {
	err := fmt.Errorf("read: %w", &modbus.ModbusError{FunctionCode: 3, ExceptionCode: modbus.ExceptionCodeIllegalDataAddress})
	if got := ErrorCode(err); got != 2 {
		t.Fatalf("ErrorCode = %d, want 2", got)
	}
}

func TestErrorCode_Generic(t *testing.T) {
	if got := ErrorCode(errors.New("x")); got != 1 {
		t.Fatalf("generic error code: got=%d want=1", got)
	}
	if got := ErrorCode(nil); got != 0 {
		t.Fatalf("nil error code: got=%d want=0", got)
	}
}

func TestEncode(t *testing.T) {
	r := Encode(Snapshot{Health: HealthError, LastErrorCode: 3, SecondsInError: 9})
	if r.Status != "error" || r.HealthCode != HealthError || r.SecondsInError != 9 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.LastSuccess != nil {
		t.Fatalf("zero last success must be omitted")
	}
}

func TestState_Health(t *testing.T) {
	if Idle.Health() != HealthUnknown || Polling.Health() != HealthOK || Errored.Health() != HealthError {
		t.Fatalf("state to health mapping broken")
	}
	if Errored.String() != "errored" {
		t.Fatalf("unexpected state name %q", Errored.String())
	}
}
