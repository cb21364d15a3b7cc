// internal/source/builder.go
package source

import (
	"time"

	cfg "github.com/tamzrod/modbus-viewer/internal/config"
	smodbus "github.com/tamzrod/modbus-viewer/internal/source/modbus"
)

// ClientConfig maps the gateway source section to transport config.
func ClientConfig(sc cfg.SourceConfig) smodbus.Config {
	return smodbus.Config{
		Mode:     sc.Mode,
		Endpoint: sc.Endpoint,
		UnitID:   sc.UnitID,
		Timeout:  time.Duration(sc.TimeoutMs) * time.Millisecond,
		BaudRate: sc.BaudRate,
		DataBits: sc.DataBits,
		Parity:   sc.Parity,
		StopBits: sc.StopBits,
	}
}

// Blocks converts the configured read geometry.
func Blocks(reads []cfg.ReadConfig) []ReadBlock {
	out := make([]ReadBlock, 0, len(reads))
	for _, r := range reads {
		out = append(out, ReadBlock{
			FC:       r.FC,
			Address:  r.Address,
			Quantity: r.Quantity,
		})
	}
	return out
}

// Build constructs a Source and wires Modbus client lifecycle.
// Unlike a fail-fast dial, the first connection is made on the first cycle so the
// gateway can start (and serve its last stored state) while the device is down.
func Build(g cfg.GatewayConfig) (*Source, func() error, error) {
	cc := ClientConfig(g.Source)

	// client factory: ONE attempt per call
	factory := func() (Client, error) {
		c, err := smodbus.New(cc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	s, err := New(
		Config{
			Interval: time.Duration(g.Poll.IntervalMs) * time.Millisecond,
			Reads:    Blocks(g.Reads),
		},
		nil,
		factory,
	)
	if err != nil {
		return nil, nil, err
	}

	return s, s.Close, nil
}
