package vigor

// Re-export types from the types sub-package so callers can use
// vigor.RouterConfig, vigor.PollError, etc.

import (
	"github.com/nanoncore/nano-vigor/types"
)

// Type aliases
type (
	Transport             = types.Transport
	TransportCapabilities = types.TransportCapabilities
	RouterCredentials     = types.RouterCredentials
	RouterConfig          = types.RouterConfig
	RawSessionOutput      = types.RawSessionOutput
	SessionClient         = types.SessionClient
	Poller                = types.Poller
	DeviceInfoProvider    = types.DeviceInfoProvider
	DeviceInfo            = types.DeviceInfo
	MetricName            = types.MetricName
	MetricSnapshot        = types.MetricSnapshot
	SensorState           = types.SensorState
	ErrorCode             = types.ErrorCode
	PollError             = types.PollError
)

// Re-export constants
const (
	TransportTelnet = types.TransportTelnet
	TransportSSH    = types.TransportSSH

	ErrConnRefused          = types.ErrConnRefused
	ErrUnexpectedDisconnect = types.ErrUnexpectedDisconnect
	ErrTimeout              = types.ErrTimeout
	ErrTransport            = types.ErrTransport
	ErrParse                = types.ErrParse
	ErrInvalidConfig        = types.ErrInvalidConfig
	ErrUnknown              = types.ErrUnknown
)

// Re-export helpers
var (
	AllMetrics    = types.AllMetrics
	IsRecoverable = types.IsRecoverable
	GetErrorCode  = types.GetErrorCode
	NewPollError  = types.NewPollError
)
