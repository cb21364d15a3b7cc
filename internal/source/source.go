// internal/source/source.go
package source

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Client abstracts Modbus operations needed by the source.
// The source depends on geometry only.
type Client interface {
	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4
}

// Factory makes one connection attempt.
type Factory func() (Client, error)

// Config is the minimal runtime config the source needs.
type Config struct {
	Interval time.Duration
	Reads    []ReadBlock
}

// Source is a dumb, clock-driven reader of one device.
// A client that fails a cycle is discarded; the factory dials a fresh one on the next cycle.
type Source struct {
	cfg     Config
	client  Client
	factory Factory
}

// New creates a source with immutable config. client may be nil when factory is set.
func New(cfg Config, client Client, factory Factory) (*Source, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("source: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("source: at least one read block required")
	}
	if client == nil && factory == nil {
		return nil, errors.New("source: client or factory required")
	}
	return &Source{cfg: cfg, client: client, factory: factory}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (s *Source) PollOnce() PollResult {
	res := PollResult{At: time.Now()}

	if s.client == nil {
		c, err := s.factory()
		if err != nil {
			res.Err = fmt.Errorf("source: connect: %w", err)
			return res
		}
		s.client = c
	}

	var blocks []BlockResult

	for _, rb := range s.cfg.Reads {
		b := BlockResult{FC: rb.FC, Address: rb.Address, Quantity: rb.Quantity}
		var err error

		switch rb.FC {
		case 1:
			b.Bits, err = s.client.ReadCoils(rb.Address, rb.Quantity)
		case 2:
			b.Bits, err = s.client.ReadDiscreteInputs(rb.Address, rb.Quantity)
		case 3:
			b.Registers, err = s.client.ReadHoldingRegisters(rb.Address, rb.Quantity)
		case 4:
			b.Registers, err = s.client.ReadInputRegisters(rb.Address, rb.Quantity)
		default:
			err = fmt.Errorf("source: unsupported function code %d", rb.FC)
		}

		if err != nil {
			s.discard()
			res.Err = err
			return res
		}
		blocks = append(blocks, b)
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	return res
}

// Close releases the current client, if any.
func (s *Source) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		s.client = nil
		return c.Close()
	}
	return nil
}

// discard drops the client after a failed cycle so a dead transport is not reused.
// Without a factory the client is kept: there is nothing to replace it with.
func (s *Source) discard() {
	if s.factory == nil {
		return
	}
	_ = s.Close()
	s.client = nil
}
