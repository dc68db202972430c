package sensor

import (
	"context"
	"time"

	"github.com/nanoncore/nano-vigor/types"
)

// Run refreshes immediately and then every interval until ctx is done.
// Refreshes run on the calling goroutine, so cycles never overlap.
func (s *Sensor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = types.DefaultPollInterval
	}

	s.log.Info().Dur("interval", interval).Msg("sensor scheduler started")

	_ = s.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sensor scheduler stopping")
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}
