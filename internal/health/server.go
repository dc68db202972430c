package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nanoncore/nano-vigor/sensor"
)

// Handler reports scheduler liveness and the last refresh outcome
type Handler struct {
	sensor  *sensor.Sensor
	running int32
}

// Status is the /health response body
type Status struct {
	Running       bool       `json:"running"`
	Sensor        string     `json:"sensor"`
	State         *int       `json:"state"`
	Successes     uint64     `json:"successes"`
	Failures      uint64     `json:"failures"`
	LastErrorCode string     `json:"last_error_code,omitempty"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
	LastFailure   *time.Time `json:"last_failure,omitempty"`
}

func New(s *sensor.Sensor) *Handler {
	return &Handler{sensor: s}
}

func (h *Handler) SetRunning(ok bool) {
	if ok {
		atomic.StoreInt32(&h.running, 1)
	} else {
		atomic.StoreInt32(&h.running, 0)
	}
}

// Status assembles the current health view
func (h *Handler) Status() Status {
	stats := h.sensor.Stats()
	st := Status{
		Running:       atomic.LoadInt32(&h.running) == 1,
		Sensor:        h.sensor.Name(),
		Successes:     stats.Successes,
		Failures:      stats.Failures,
		LastErrorCode: string(stats.LastErrorCode),
		LastSuccess:   timestamp(stats.LastSuccess),
		LastFailure:   timestamp(stats.LastFailure),
	}
	if scalar, ok := h.sensor.State(); ok {
		st.State = &scalar
	}
	return st
}

// timestamp drops the zero time so it is omitted from the body
func timestamp(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ServeHTTP answers 200 while running, 503 otherwise
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if !st.Running {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}
