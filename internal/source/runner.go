// internal/source/runner.go
package source

import (
	"context"
	"time"
)

// Run polls once immediately, then on every tick, and emits each PollResult on out.
// One goroutine per device. No overlap. No retries.
func (s *Source) Run(ctx context.Context, out chan<- PollResult) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case out <- s.PollOnce():
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
