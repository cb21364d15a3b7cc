// internal/device/payload.go
package device

import (
	"strconv"
	"strings"
)

// Payload is the device snapshot served by the gateway and consumed by the viewer.
// Block fields are comma-separated; the wire shape is locked.
type Payload struct {
	User string `json:"user"`
	IP   string `json:"ip"`
	IR   string `json:"ir"` // input registers "int,int,..."
	HR   string `json:"hr"` // holding registers "int,int,..."
	CO   string `json:"co"` // coils "0|1,0|1,..."
	DI   string `json:"di"` // discrete inputs "0|1,0|1,..."
}

// Field names as stored and served.
const (
	FieldDI = "di"
	FieldCO = "co"
	FieldIR = "ir"
	FieldHR = "hr"
)

// Fields lists the block fields in row order.
var Fields = []string{FieldDI, FieldCO, FieldIR, FieldHR}

// ValidField reports whether name is one of the four block fields.
func ValidField(name string) bool {
	switch name {
	case FieldDI, FieldCO, FieldIR, FieldHR:
		return true
	}
	return false
}

// EncodeBits joins bits as "1,0,1".
func EncodeBits(bits []bool) string {
	parts := make([]string, len(bits))
	for i, b := range bits {
		if b {
			parts[i] = "1"
		} else {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, ",")
}

// EncodeRegisters joins registers as "12,34,56".
func EncodeRegisters(regs []uint16) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = strconv.FormatUint(uint64(r), 10)
	}
	return strings.Join(parts, ",")
}
