// internal/sim/server.go
package sim

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tbrandon/mbserver"
)

// Simulator is a Modbus TCP slave serving seeded tables.
type Simulator struct {
	srv  *mbserver.Server
	data BlockData
	log  zerolog.Logger
}

// New builds a simulator with its tables seeded from bd.
func New(bd BlockData, log zerolog.Logger) *Simulator {
	srv := mbserver.NewServer()

	copy(srv.DiscreteInputs, bd.DI)
	copy(srv.Coils, bd.CO)
	copy(srv.InputRegisters, bd.IR)
	copy(srv.HoldingRegisters, bd.HR)

	return &Simulator{
		srv:  srv,
		data: bd,
		log:  log.With().Str("component", "simulator").Logger(),
	}
}

// Listen starts serving on addr ("host:port"). It returns once the listener is up.
func (s *Simulator) Listen(addr string) error {
	if err := s.srv.ListenTCP(addr); err != nil {
		return fmt.Errorf("sim: listen %s: %w", addr, err)
	}
	s.log.Info().Str("listen", addr).Msg("modbus daemon started")
	return nil
}

// Close stops the listeners.
func (s *Simulator) Close() {
	s.srv.Close()
}

// ---- initial state ----

var labels = []struct {
	key, label string
}{
	{"di", "Discrete Input Contacts"},
	{"co", "Discrete Output Coils"},
	{"ir", "Analogue Input Register"},
	{"hr", "Analogue Output Holding Register"},
}

// WriteSummary prints the seeded tables.
func (s *Simulator) WriteSummary(w io.Writer) {
	width := 0
	for _, l := range labels {
		if len(l.label) > width {
			width = len(l.label)
		}
	}

	fmt.Fprintf(w, "  Initial State\n  %s\n\n", strings.Repeat("-", 13))
	for _, l := range labels {
		var v string
		switch l.key {
		case "di":
			v = boolList(s.data.DI)
		case "co":
			v = boolList(s.data.CO)
		case "ir":
			v = "[ " + regList(s.data.IR) + " ]"
		case "hr":
			v = "[ " + regList(s.data.HR) + " ]"
		}
		fmt.Fprintf(w, "  %-*s : %s\n", width, l.label, v)
	}
	fmt.Fprintln(w)
}

func boolList(bits []uint8) string {
	parts := make([]string, len(bits))
	for i, b := range bits {
		parts[i] = strconv.FormatBool(b == 1)
	}
	return strings.Join(parts, ", ")
}

func regList(regs []uint16) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = strconv.FormatUint(uint64(r), 10)
	}
	return strings.Join(parts, ", ")
}
