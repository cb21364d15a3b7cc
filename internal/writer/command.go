// internal/writer/command.go
package writer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/source"
)

// endpointClient is the exact contract the command writer uses.
type endpointClient interface {
	WriteCoils(unitID uint8, addr uint16, bits []bool) error
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
	ReadCoils(unitID uint8, addr, qty uint16) ([]bool, error)
	ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error)
}

// Commander writes operator values to the device, then refreshes the stored field
// by reading the configured block back. The row mirrors the device, never the input.
type Commander struct {
	cli    endpointClient
	sink   Sink
	ip     string
	unitID uint8
	blocks map[uint8]source.ReadBlock
}

// NewCommander binds a device client to the row keyed by ip.
// reads is the polled geometry; a table without a read block is never stored.
func NewCommander(cli endpointClient, sink Sink, ip string, unitID uint8, reads []source.ReadBlock) *Commander {
	blocks := make(map[uint8]source.ReadBlock, len(reads))
	for _, r := range reads {
		blocks[r.FC] = r
	}
	return &Commander{cli: cli, sink: sink, ip: ip, unitID: unitID, blocks: blocks}
}

// WriteCoils writes bits from addr (FC 15), then stores the re-read coil block.
// The store is touched only after the device accepted the write.
func (c *Commander) WriteCoils(ctx context.Context, addr uint16, bits []bool) error {
	if err := c.cli.WriteCoils(c.unitID, addr, bits); err != nil {
		return fmt.Errorf("writer: write coils unit=%d addr=%d: %w", c.unitID, addr, err)
	}

	b, ok := c.blocks[1]
	if !ok {
		return nil
	}
	got, err := c.cli.ReadCoils(c.unitID, b.Address, b.Quantity)
	if err != nil {
		return fmt.Errorf("writer: coils written, re-read failed unit=%d: %w", c.unitID, err)
	}
	return c.sink.SaveFields(ctx, c.ip, map[string]string{device.FieldCO: device.EncodeBits(got)})
}

// WriteRegisters writes holding registers from addr (FC 16), then stores the re-read hr block.
func (c *Commander) WriteRegisters(ctx context.Context, addr uint16, regs []uint16) error {
	if err := c.cli.WriteRegisters(c.unitID, addr, regs); err != nil {
		return fmt.Errorf("writer: write registers unit=%d addr=%d: %w", c.unitID, addr, err)
	}

	b, ok := c.blocks[3]
	if !ok {
		return nil
	}
	got, err := c.cli.ReadHoldingRegisters(c.unitID, b.Address, b.Quantity)
	if err != nil {
		return fmt.Errorf("writer: registers written, re-read failed unit=%d: %w", c.unitID, err)
	}
	return c.sink.SaveFields(ctx, c.ip, map[string]string{device.FieldHR: device.EncodeRegisters(got)})
}

// ParseBits parses operator input "1,0,1,1". Only 0 and 1 are accepted.
func ParseBits(s string) ([]bool, error) {
	parts := splitValues(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("writer: no values in %q", s)
	}
	out := make([]bool, len(parts))
	for i, p := range parts {
		switch p {
		case "0":
		case "1":
			out[i] = true
		default:
			return nil, fmt.Errorf("writer: invalid coil value %q (want 0 or 1)", p)
		}
	}
	return out, nil
}

// ParseRegisters parses operator input "1,2,65535".
func ParseRegisters(s string) ([]uint16, error) {
	parts := splitValues(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("writer: no values in %q", s)
	}
	out := make([]uint16, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("writer: invalid register value %q: %w", p, err)
		}
		out[i] = uint16(v)
	}
	return out, nil
}

func splitValues(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
