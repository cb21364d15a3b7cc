// internal/writer/writer.go
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/source"
)

type stateWriter struct {
	plan Plan
	sink Sink
}

// New returns a Writer that stores every successful poll in the device row.
func New(plan Plan, sink Sink) Writer {
	if plan.Fields == nil {
		plan.Fields = DefaultFields()
	}
	return &stateWriter{plan: plan, sink: sink}
}

// Write encodes the blocks of a successful poll and stores them in one update.
// Only fields filled by a read block are written; a table that is not polled keeps
// whatever the row already holds. Failed polls are not written: the last good state
// stays visible.
func (w *stateWriter) Write(ctx context.Context, res source.PollResult) error {
	if res.Err != nil {
		return nil
	}
	if w.sink == nil {
		return errors.New("writer: sink required")
	}

	fields := make(map[string]string, len(res.Blocks))

	for _, b := range res.Blocks {
		field, ok := w.plan.Fields[b.FC]
		if !ok {
			return fmt.Errorf("writer: no field for fc %d", b.FC)
		}
		if !device.ValidField(field) {
			return fmt.Errorf("writer: invalid field %q for fc %d", field, b.FC)
		}

		switch b.FC {
		case 1, 2:
			fields[field] = device.EncodeBits(b.Bits)
		case 3, 4:
			fields[field] = device.EncodeRegisters(b.Registers)
		default:
			return fmt.Errorf("writer: unsupported fc %d", b.FC)
		}
	}

	if len(fields) == 0 {
		return nil
	}
	if err := w.sink.SaveFields(ctx, w.plan.IP, fields); err != nil {
		return fmt.Errorf("writer: ip=%s: %w", w.plan.IP, err)
	}
	return nil
}
