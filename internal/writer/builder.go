// internal/writer/builder.go
package writer

import (
	"net"

	cfg "github.com/tamzrod/modbus-viewer/internal/config"
	"github.com/tamzrod/modbus-viewer/internal/source"
	wmodbus "github.com/tamzrod/modbus-viewer/internal/writer/modbus"
)

// DeviceIP is the row key for the configured device: the endpoint host for tcp,
// the serial device path for rtu.
func DeviceIP(sc cfg.SourceConfig) string {
	if sc.Mode == "rtu" {
		return sc.Endpoint
	}
	host, _, err := net.SplitHostPort(sc.Endpoint)
	if err != nil {
		return sc.Endpoint
	}
	return host
}

// BuildPlan converts the gateway config into a write plan.
// Assumes config has already passed validation.
func BuildPlan(g cfg.GatewayConfig) Plan {
	return Plan{IP: DeviceIP(g.Source), Fields: DefaultFields()}
}

// BuildCommander dials the configured device and returns a Commander with its closer.
func BuildCommander(g cfg.GatewayConfig, sink Sink) (*Commander, func() error, error) {
	cli, err := wmodbus.NewEndpointClient(source.ClientConfig(g.Source))
	if err != nil {
		return nil, nil, err
	}
	cmd := NewCommander(cli, sink, DeviceIP(g.Source), g.Source.UnitID, source.Blocks(g.Reads))
	return cmd, cli.Close, nil
}
