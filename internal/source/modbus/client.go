// internal/source/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Config is minimal transport config.
type Config struct {
	Mode     string // tcp | rtu
	Endpoint string // host:port or serial device
	UnitID   uint8
	Timeout  time.Duration

	// RTU only
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
}

// Handler is a connected goburrow handler: packager, transporter and closer.
type Handler interface {
	modbus.ClientHandler
	io.Closer
}

// Dial connects a goburrow handler for cfg.
func Dial(cfg Config) (Handler, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	switch cfg.Mode {
	case "", "tcp":
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("modbus client: connect %s: %w", cfg.Endpoint, err)
		}
		return h, nil

	case "rtu":
		h := modbus.NewRTUClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		h.BaudRate = cfg.BaudRate
		h.DataBits = cfg.DataBits
		h.Parity = cfg.Parity
		h.StopBits = cfg.StopBits
		if err := h.Connect(); err != nil {
			return nil, fmt.Errorf("modbus client: open %s: %w", cfg.Endpoint, err)
		}
		return h, nil

	default:
		return nil, fmt.Errorf("modbus client: unsupported mode %q", cfg.Mode)
	}
}

// Client implements source.Client on top of goburrow/modbus.
// This adapter is geometry-only: it issues reads and unpacks raw responses.
type Client struct {
	mu      sync.Mutex
	handler Handler
	client  modbus.Client
}

// New creates a connected Modbus client.
func New(cfg Config) (*Client, error) {
	h, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{handler: h, client: modbus.NewClient(h)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ---- source.Client interface ----

func (c *Client) ReadCoils(addr, qty uint16) ([]bool, error) {
	return c.readBits(addr, qty, c.client.ReadCoils)
}

func (c *Client) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	return c.readBits(addr, qty, c.client.ReadDiscreteInputs)
}

func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	return c.readRegisters(addr, qty, c.client.ReadHoldingRegisters)
}

func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	return c.readRegisters(addr, qty, c.client.ReadInputRegisters)
}

// ---- internal helpers ----

type readFunc func(addr, qty uint16) ([]byte, error)

func (c *Client) readBits(addr, qty uint16, read readFunc) ([]bool, error) {
	if qty == 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := read(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(data) < (int(qty)+7)/8 {
		return nil, errors.New("modbus: read-bits payload shorter than quantity")
	}
	return UnpackBits(data, int(qty)), nil
}

func (c *Client) readRegisters(addr, qty uint16, read readFunc) ([]uint16, error) {
	if qty == 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := read(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, errors.New("modbus: read-registers byte count not even")
	}
	if len(data) < int(qty)*2 {
		return nil, errors.New("modbus: read-registers payload shorter than quantity")
	}
	return UnpackRegisters(data[:int(qty)*2]), nil
}

// ---- helpers (pure geometry) ----

// UnpackBits expands LSB-first packed bits.
func UnpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			continue
		}
		out[i] = data[byteIdx]&(1<<bitIdx) != 0
	}
	return out
}

// UnpackRegisters decodes big-endian registers.
func UnpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

// PackBits packs bits LSB-first, as coil writes expect.
func PackBits(bits []bool) []byte {
	n := (len(bits) + 7) / 8
	out := make([]byte, n)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// PackRegisters encodes registers big-endian.
func PackRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
