package vigor

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/nanoncore/nano-vigor/drivers/cli"
	"github.com/nanoncore/nano-vigor/drivers/snmp"
	"github.com/nanoncore/nano-vigor/sensor"
	"github.com/nanoncore/nano-vigor/types"
	"github.com/nanoncore/nano-vigor/vendors/draytek"
)

// CapabilityMatrix defines how each management transport reaches the CLI
var CapabilityMatrix = types.CapabilityMatrix

// NewSessionClient creates the CLI session client for config.Transport
func NewSessionClient(config RouterConfig, logger zerolog.Logger) (SessionClient, error) {
	config = config.WithDefaults()

	if _, ok := config.Transport.Capabilities(); !ok {
		return nil, types.NewPollError(types.ErrInvalidConfig, "", fmt.Errorf("unsupported transport: %s", config.Transport))
	}

	driver, err := cli.NewDriver(config, cli.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", config.Transport, err)
	}
	return driver, nil
}

// NewSensor wires session client, Draytek adapter and, when SNMP metadata
// is present, the SNMP device-info driver into a sensor
func NewSensor(config RouterConfig, logger zerolog.Logger) (*sensor.Sensor, error) {
	client, err := NewSessionClient(config, logger)
	if err != nil {
		return nil, err
	}

	opts := []sensor.Option{sensor.WithLogger(logger)}

	if _, ok := config.Metadata[snmp.MetaCommunity]; ok {
		info, err := snmp.NewDriver(config, snmp.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create snmp driver: %w", err)
		}
		opts = append(opts, sensor.WithDeviceInfo(info))
	}

	return sensor.New(config.Name, draytek.NewAdapter(client), opts...), nil
}

// GetSupportedTransports returns all supported transports, sorted
func GetSupportedTransports() []Transport {
	transports := make([]Transport, 0, len(CapabilityMatrix))
	for t := range CapabilityMatrix {
		transports = append(transports, t)
	}
	sort.Slice(transports, func(i, j int) bool { return transports[i] < transports[j] })
	return transports
}

// GetTransportCapabilities returns the capabilities for a transport
func GetTransportCapabilities(t Transport) (TransportCapabilities, bool) {
	return t.Capabilities()
}
