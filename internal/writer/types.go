// internal/writer/types.go
package writer

import (
	"context"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/source"
)

// Sink is where device state lands. *store.Store satisfies it.
// Only the named fields are written; the rest of the row is left alone.
type Sink interface {
	SaveFields(ctx context.Context, ip string, fields map[string]string) error
}

// Plan is the fully-built write plan for one device.
type Plan struct {
	// IP keys the device row.
	IP string
	// Fields maps a function code to the row field it fills.
	Fields map[uint8]string
}

// DefaultFields is the FC to field mapping of the four Modbus tables.
func DefaultFields() map[uint8]string {
	return map[uint8]string{
		1: device.FieldCO,
		2: device.FieldDI,
		3: device.FieldHR,
		4: device.FieldIR,
	}
}

// Writer writes poll snapshots into the sink.
type Writer interface {
	Write(ctx context.Context, res source.PollResult) error
}
