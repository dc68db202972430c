package sensor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nanoncore/nano-vigor/types"
)

// Sensor publishes the latest DSL line statistics of one modem.
// Refresh replaces the whole state in one step; readers never see a
// partially updated snapshot.
type Sensor struct {
	name   string
	icon   string
	poller types.Poller
	device types.DeviceInfoProvider

	state atomic.Pointer[types.SensorState]

	mu    sync.Mutex
	stats Stats

	log zerolog.Logger
	now func() time.Time
}

// Stats counts refresh outcomes
type Stats struct {
	Successes     uint64
	Failures      uint64
	LastErrorCode types.ErrorCode
	LastSuccess   time.Time
	LastFailure   time.Time
}

// Option configures a Sensor
type Option func(*Sensor)

// WithLogger sets the sensor logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sensor) {
		s.log = l
	}
}

// WithDeviceInfo attaches an identity provider queried after each
// successful poll
func WithDeviceInfo(p types.DeviceInfoProvider) Option {
	return func(s *Sensor) {
		s.device = p
	}
}

// WithIcon overrides the display icon
func WithIcon(icon string) Option {
	return func(s *Sensor) {
		s.icon = icon
	}
}

// New creates a sensor; an empty name falls back to types.DefaultName
func New(name string, poller types.Poller, opts ...Option) *Sensor {
	if name == "" {
		name = types.DefaultName
	}

	s := &Sensor{
		name:   name,
		icon:   types.DefaultIcon,
		poller: poller,
		log:    log.Logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("sensor", name).Logger()

	return s
}

// Name returns the display name
func (s *Sensor) Name() string {
	return s.name
}

// Icon returns the display icon
func (s *Sensor) Icon() string {
	return s.icon
}

// State returns the number of metrics in the last snapshot.
// ok is false until the first successful refresh.
func (s *Sensor) State() (int, bool) {
	st := s.state.Load()
	if st == nil {
		return 0, false
	}
	return st.Scalar, true
}

// Attributes returns a copy of the last snapshot, empty before the first
// successful refresh
func (s *Sensor) Attributes() types.MetricSnapshot {
	st := s.state.Load()
	if st == nil {
		return types.MetricSnapshot{}
	}
	return st.Attributes.Clone()
}

// Snapshot returns the last published state, or nil
func (s *Sensor) Snapshot() *types.SensorState {
	st := s.state.Load()
	if st == nil {
		return nil
	}
	cp := *st
	cp.Attributes = st.Attributes.Clone()
	return &cp
}

// Stats returns the refresh counters
func (s *Sensor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Refresh runs one poll. On success the state is replaced; on failure the
// previous state stays published and the error is returned.
func (s *Sensor) Refresh(ctx context.Context) (err error) {
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			err = types.NewPollError(types.ErrUnknown, "", fmt.Errorf("poll panicked: %v", r))
			s.recordFailure(err)
		}
	}()

	snapshot, err := s.poll(ctx)
	if err != nil {
		s.recordFailure(err)
		return err
	}

	next := &types.SensorState{
		Scalar:     len(snapshot),
		Attributes: snapshot,
		UpdatedAt:  s.now(),
	}
	if prev := s.state.Load(); prev != nil {
		next.Device = prev.Device
	}
	if info := s.deviceInfo(ctx); info != nil {
		next.Device = info
	}

	s.state.Store(next)
	s.recordSuccess(next.UpdatedAt)

	s.log.Debug().
		Int("metrics", next.Scalar).
		Dur("took", next.UpdatedAt.Sub(start)).
		Msg("sensor refreshed")
	return nil
}

func (s *Sensor) poll(ctx context.Context) (types.MetricSnapshot, error) {
	if s.poller == nil {
		return nil, types.NewPollError(types.ErrInvalidConfig, "", fmt.Errorf("no poller configured"))
	}
	return s.poller.Poll(ctx)
}

// deviceInfo is best effort; failures keep the previous info
func (s *Sensor) deviceInfo(ctx context.Context) *types.DeviceInfo {
	if s.device == nil {
		return nil
	}
	info, err := s.device.DeviceInfo(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("device info unavailable")
		return nil
	}
	return info
}

func (s *Sensor) recordSuccess(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Successes++
	s.stats.LastSuccess = at
}

func (s *Sensor) recordFailure(err error) {
	code := types.GetErrorCode(err)

	s.mu.Lock()
	s.stats.Failures++
	s.stats.LastErrorCode = code
	s.stats.LastFailure = s.now()
	s.mu.Unlock()

	s.log.Error().
		Err(err).
		Str("code", string(code)).
		Str("action", types.GetSuggestedAction(err)).
		Msg("sensor refresh failed")
}
