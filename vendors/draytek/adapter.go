package draytek

import (
	"context"
	"errors"

	"github.com/nanoncore/nano-vigor/types"
)

// Adapter wraps a session client with Vigor-specific parsing
// Vigor 130 modems expose line statistics only through the terminal CLI
type Adapter struct {
	client types.SessionClient
}

// NewAdapter creates a new Draytek adapter
func NewAdapter(client types.SessionClient) *Adapter {
	return &Adapter{client: client}
}

// Commands returns the CLI commands one poll issues, in order
func (a *Adapter) Commands() []string {
	return []string{"vdsl status", "vdsl status counts"}
}

// Poll runs one session and parses its output into a complete snapshot
func (a *Adapter) Poll(ctx context.Context) (types.MetricSnapshot, error) {
	if a.client == nil {
		return nil, types.NewPollError(types.ErrInvalidConfig, "", errors.New("session client not configured"))
	}

	raw, err := a.client.Collect(ctx)
	if err != nil {
		return nil, err
	}

	return ParseStatus(raw)
}

// Ensure Adapter implements Poller
var _ types.Poller = (*Adapter)(nil)
