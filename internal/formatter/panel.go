// internal/formatter/panel.go
package formatter

import (
	"fmt"

	"github.com/tamzrod/modbus-viewer/internal/device"
)

// RegisterBox is one digit display.
type RegisterBox struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

// LED is one on/off indicator.
type LED struct {
	Label string `json:"label"`
	On    bool   `json:"on"`
}

// Panel is everything a renderer needs for one payload.
type Panel struct {
	User             string        `json:"user"`
	IP               string        `json:"ip"`
	InputRegisters   []RegisterBox `json:"input_registers"`
	HoldingRegisters []RegisterBox `json:"holding_registers"`
	Coils            []LED         `json:"coils"`
	DiscreteInputs   []LED         `json:"discrete_inputs"`
}

// BuildPanel converts a payload into display primitives.
func BuildPanel(p device.Payload) Panel {
	return Panel{
		User:             p.User,
		IP:               p.IP,
		InputRegisters:   registerBoxes("IR", ParseInts(p.IR)),
		HoldingRegisters: registerBoxes("HR", ParseInts(p.HR)),
		Coils:            leds("CO", ParseBools(p.CO)),
		DiscreteInputs:   leds("DI", ParseBools(p.DI)),
	}
}

func registerBoxes(prefix string, vals []Value) []RegisterBox {
	out := make([]RegisterBox, len(vals))
	for i, v := range vals {
		out[i] = RegisterBox{
			Label: fmt.Sprintf("%s%d", prefix, i),
			Value: v.String(),
			Valid: v.Valid,
		}
	}
	return out
}

func leds(prefix string, bits []bool) []LED {
	out := make([]LED, len(bits))
	for i, b := range bits {
		out[i] = LED{Label: fmt.Sprintf("%s%d", prefix, i), On: b}
	}
	return out
}
