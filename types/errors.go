package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a normalized error code for a failed refresh
type ErrorCode string

const (
	// Connection errors
	ErrConnRefused          ErrorCode = "CONN_REFUSED"
	ErrUnexpectedDisconnect ErrorCode = "UNEXPECTED_DISCONNECT"
	ErrTimeout              ErrorCode = "TIMEOUT"
	ErrTransport            ErrorCode = "TRANSPORT"

	// Output errors
	ErrParse ErrorCode = "PARSE_FAILURE"

	// Setup errors
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Unknown
	ErrUnknown ErrorCode = "UNKNOWN"
)

// ErrorMapping describes an error code for logs and operators
type ErrorMapping struct {
	Human       string
	Action      string
	Recoverable bool
}

var errorMappings = map[ErrorCode]ErrorMapping{
	ErrConnRefused: {
		Human:       "Connection refused by router",
		Action:      "Check the router is reachable and telnet is enabled",
		Recoverable: true,
	},
	ErrUnexpectedDisconnect: {
		Human:       "Unexpected response from router",
		Action:      "Router closed the session before the expected prompt; will retry next cycle",
		Recoverable: true,
	},
	ErrTimeout: {
		Human:       "Timed out waiting for router prompt",
		Action:      "Check credentials and prompt markers; will retry next cycle",
		Recoverable: true,
	},
	ErrTransport: {
		Human:       "Transport error talking to router",
		Action:      "Will retry next cycle",
		Recoverable: true,
	},
	ErrParse: {
		Human:       "Router status output did not match the expected layout",
		Action:      "Check firmware version; line positions may have shifted",
		Recoverable: true,
	},
	ErrInvalidConfig: {
		Human:       "Invalid router configuration",
		Action:      "Fix host, username, password or transport",
		Recoverable: false,
	},
}

// PollError is the failure outcome of one refresh cycle
type PollError struct {
	Code ErrorCode

	// Stage is the session state in which the failure happened, if any
	Stage string

	Err error
}

// NewPollError wraps err with a code and stage
func NewPollError(code ErrorCode, stage string, err error) *PollError {
	return &PollError{Code: code, Stage: stage, Err: err}
}

func (e *PollError) Error() string {
	human := string(e.Code)
	if m, ok := errorMappings[e.Code]; ok {
		human = m.Human
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s during %s: %v", e.Code, human, e.Stage, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, human, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// IsRecoverable returns true if the next scheduled refresh may succeed
func IsRecoverable(err error) bool {
	var pe *PollError
	if errors.As(err, &pe) {
		if m, ok := errorMappings[pe.Code]; ok {
			return m.Recoverable
		}
	}
	return false
}

// GetErrorCode returns the error code for a poll error
func GetErrorCode(err error) ErrorCode {
	var pe *PollError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrUnknown
}

// GetSuggestedAction returns the suggested action for an error
func GetSuggestedAction(err error) string {
	if m, ok := errorMappings[GetErrorCode(err)]; ok {
		return m.Action
	}
	return "Check router logs for details"
}

func errFieldRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

func errUnknownTransport(t Transport) error {
	return fmt.Errorf("unknown transport %q", t)
}

func errPortRange(port int) error {
	return fmt.Errorf("port %d out of range", port)
}
