// internal/source/types.go
package source

import "time"

// ReadBlock describes one Modbus read geometry.
// Geometry only: no semantics.
type ReadBlock struct {
	FC       uint8
	Address  uint16
	Quantity uint16
}

// BlockResult is the raw result of a single read.
type BlockResult struct {
	FC       uint8
	Address  uint16
	Quantity uint16

	// Exactly one of these is used depending on FC.
	Bits      []bool   // FC 1,2
	Registers []uint16 // FC 3,4
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	At     time.Time
	Blocks []BlockResult
	Err    error // non-nil means the poll cycle failed; Blocks is nil
}

// Block returns the block read with function code fc.
func (r PollResult) Block(fc uint8) (BlockResult, bool) {
	for _, b := range r.Blocks {
		if b.FC == fc {
			return b, true
		}
	}
	return BlockResult{}, false
}
