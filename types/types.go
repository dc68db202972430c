package types

import (
	"context"
	"time"
)

// Transport represents the remote-terminal transport used to reach the router CLI
type Transport string

const (
	TransportTelnet Transport = "telnet"
	TransportSSH    Transport = "ssh"
)

// TransportCapabilities describes a management transport
type TransportCapabilities struct {
	DefaultPort int
	// CLILogin is true when the router asks Account/Password in-band
	CLILogin  bool
	Encrypted bool
}

// CapabilityMatrix defines how each management transport reaches the CLI
var CapabilityMatrix = map[Transport]TransportCapabilities{
	TransportTelnet: {
		DefaultPort: 23,
		CLILogin:    true,
		Encrypted:   false,
	},
	TransportSSH: {
		DefaultPort: 22,
		CLILogin:    false, // authenticated during the handshake
		Encrypted:   true,
	},
}

// Capabilities returns the matrix entry for t
func (t Transport) Capabilities() (TransportCapabilities, bool) {
	caps, ok := CapabilityMatrix[t]
	return caps, ok
}

// DefaultPort returns the standard port for the transport, falling back to
// telnet for unknown transports
func (t Transport) DefaultPort() int {
	if caps, ok := t.Capabilities(); ok {
		return caps.DefaultPort
	}
	return CapabilityMatrix[TransportTelnet].DefaultPort
}

// Valid reports whether t is a known transport
func (t Transport) Valid() bool {
	_, ok := t.Capabilities()
	return ok
}

const (
	// DefaultName is the display name used when none is configured
	DefaultName = "Draytek"

	// DefaultIcon is the icon identifier reported for the sensor
	DefaultIcon = "mdi:cloud-download"

	// DefaultDialTimeout bounds the TCP connect
	DefaultDialTimeout = 10 * time.Second

	// DefaultStepTimeout bounds every wait for a prompt marker
	DefaultStepTimeout = 15 * time.Second

	// DefaultPollInterval is the refresh period of the scheduler
	DefaultPollInterval = 30 * time.Second
)

// RouterCredentials identifies and authenticates against a router.
// It is a value type: copies never alias each other.
type RouterCredentials struct {
	Host     string
	Username string
	Password string
}

// RouterConfig contains configuration for one polled router
type RouterConfig struct {
	RouterCredentials

	// Name is the display name of the sensor
	Name string

	// Port is the management port (0 selects the transport default)
	Port int

	// Transport is the remote-terminal transport (telnet by default)
	Transport Transport

	// Timeout bounds the connection attempt
	Timeout time.Duration

	// StepTimeout bounds each wait for a prompt marker
	StepTimeout time.Duration

	// Metadata contains optional settings such as snmp_community
	Metadata map[string]string
}

// WithDefaults returns a copy of c with zero fields filled in
func (c RouterConfig) WithDefaults() RouterConfig {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Transport == "" {
		c.Transport = TransportTelnet
	}
	if c.Port == 0 {
		c.Port = c.Transport.DefaultPort()
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultDialTimeout
	}
	if c.StepTimeout == 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	return c
}

// Validate checks the required fields
func (c RouterConfig) Validate() error {
	switch {
	case c.Host == "":
		return NewPollError(ErrInvalidConfig, "", errFieldRequired("host"))
	case c.Username == "":
		return NewPollError(ErrInvalidConfig, "", errFieldRequired("username"))
	case c.Password == "":
		return NewPollError(ErrInvalidConfig, "", errFieldRequired("password"))
	case c.Transport != "" && !c.Transport.Valid():
		return NewPollError(ErrInvalidConfig, "", errUnknownTransport(c.Transport))
	case c.Port < 0 || c.Port > 65535:
		return NewPollError(ErrInvalidConfig, "", errPortRange(c.Port))
	}
	return nil
}

// RawSessionOutput is the combined text of both command responses.
// Control characters are rendered as backslash escapes, so a CRLF appears
// as the four characters `\r\n`.
type RawSessionOutput string

// SessionClient performs one authenticate-query-disconnect cycle
type SessionClient interface {
	// Collect logs in, runs the status commands and returns their raw output
	Collect(ctx context.Context) (RawSessionOutput, error)
}

// Poller produces a complete metric snapshot per call
type Poller interface {
	Poll(ctx context.Context) (MetricSnapshot, error)
}

// DeviceInfoProvider returns identity information about the router
type DeviceInfoProvider interface {
	DeviceInfo(ctx context.Context) (*DeviceInfo, error)
}

// DeviceInfo holds router identity read over SNMP
type DeviceInfo struct {
	Description string
	SysName     string
	Uptime      time.Duration
	FetchedAt   time.Time
}

// SensorState is the published result of the last successful refresh
type SensorState struct {
	// Scalar is the number of metrics present; a liveness indicator
	Scalar int

	// Attributes holds the metric values
	Attributes MetricSnapshot

	// Device is optional identity info, nil when not collected
	Device *DeviceInfo

	// UpdatedAt is when the state was published
	UpdatedAt time.Time
}
