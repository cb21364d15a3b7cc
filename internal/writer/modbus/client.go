// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goburrow/modbus"

	smodbus "github.com/tamzrod/modbus-viewer/internal/source/modbus"
)

// EndpointClient is a single connection to one device used for writes.
// It serializes requests because it mutates SlaveId per write.
type EndpointClient struct {
	mu      sync.Mutex
	handler smodbus.Handler
	client  modbus.Client
	slaveID func(uint8)
}

// NewEndpointClient connects to the device described by cfg (tcp or rtu).
func NewEndpointClient(cfg smodbus.Config) (*EndpointClient, error) {
	h, err := smodbus.Dial(cfg)
	if err != nil {
		return nil, err
	}

	c := &EndpointClient{handler: h, client: modbus.NewClient(h)}
	switch th := h.(type) {
	case *modbus.TCPClientHandler:
		c.slaveID = func(id uint8) { th.SlaveId = id }
	case *modbus.RTUClientHandler:
		c.slaveID = func(id uint8) { th.SlaveId = id }
	default:
		_ = h.Close()
		return nil, errors.New("writer modbus: unknown handler type")
	}
	return c, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteCoils writes bits starting at addr (FC 15).
func (c *EndpointClient) WriteCoils(unitID uint8, addr uint16, bits []bool) error {
	if len(bits) == 0 {
		return errors.New("writer modbus: no coils to write")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slaveID(unitID)

	qty := uint16(len(bits))
	_, err := c.client.WriteMultipleCoils(addr, qty, smodbus.PackBits(bits))
	return err
}

// WriteRegisters writes holding registers starting at addr (FC 16).
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 {
		return errors.New("writer modbus: no registers to write")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slaveID(unitID)

	qty := uint16(len(regs))
	_, err := c.client.WriteMultipleRegisters(addr, qty, smodbus.PackRegisters(regs))
	return err
}

// ReadCoils reads qty coils from addr (FC 1). Used to refresh state after a write.
func (c *EndpointClient) ReadCoils(unitID uint8, addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slaveID(unitID)

	data, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, err
	}
	if need := (int(qty) + 7) / 8; len(data) < need {
		return nil, fmt.Errorf("writer modbus: short coil response: %d bytes, want %d", len(data), need)
	}
	return smodbus.UnpackBits(data, int(qty)), nil
}

// ReadHoldingRegisters reads qty holding registers from addr (FC 3).
func (c *EndpointClient) ReadHoldingRegisters(unitID uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slaveID(unitID)

	data, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(data) != int(qty)*2 {
		return nil, fmt.Errorf("writer modbus: register response is %d bytes, want %d", len(data), int(qty)*2)
	}
	return smodbus.UnpackRegisters(data), nil
}
