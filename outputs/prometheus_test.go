package outputs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-vigor/drivers/mock"
	"github.com/nanoncore/nano-vigor/sensor"
	"github.com/nanoncore/nano-vigor/types"
)

type fixedPoller struct {
	snapshot types.MetricSnapshot
	err      error
}

func (p *fixedPoller) Poll(ctx context.Context) (types.MetricSnapshot, error) {
	return p.snapshot, p.err
}

type fixedDevice struct{}

func (fixedDevice) DeviceInfo(ctx context.Context) (*types.DeviceInfo, error) {
	return &types.DeviceInfo{Description: "DrayTek Vigor130", SysName: "vigor", Uptime: 90 * time.Second}, nil
}

func newRegistry(t *testing.T, s *sensor.Sensor) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewPrometheusExporter(s))
	return registry
}

func TestPrometheusExporterBeforeFirstRefresh(t *testing.T) {
	s := sensor.New("", &fixedPoller{}, sensor.WithLogger(zerolog.Nop()))
	registry := newRegistry(t, s)

	count, err := testutil.GatherAndCount(registry, "vigor_dsl_metric", "vigor_dsl_path_mode_info", "vigor_sensor_state")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = testutil.GatherAndCount(registry, "vigor_sensor_refresh_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPrometheusExporterFullSnapshot(t *testing.T) {
	s := sensor.New("", &fixedPoller{snapshot: mock.ExpectedSnapshot()}, sensor.WithLogger(zerolog.Nop()))
	require.NoError(t, s.Refresh(context.Background()))
	registry := newRegistry(t, s)

	count, err := testutil.GatherAndCount(registry, "vigor_dsl_metric")
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	count, err = testutil.GatherAndCount(registry, "vigor_dsl_path_mode_info")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP vigor_sensor_state Number of metrics in the last successful snapshot
# TYPE vigor_sensor_state gauge
vigor_sensor_state{sensor="Draytek"} 14
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "vigor_sensor_state"))

	expected = `
# HELP vigor_sensor_refresh_total Refresh attempts by result
# TYPE vigor_sensor_refresh_total counter
vigor_sensor_refresh_total{result="failure",sensor="Draytek"} 0
vigor_sensor_refresh_total{result="success",sensor="Draytek"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "vigor_sensor_refresh_total"))
}

func TestPrometheusExporterMetricValues(t *testing.T) {
	s := sensor.New("Vigor", &fixedPoller{snapshot: mock.ExpectedSnapshot()}, sensor.WithLogger(zerolog.Nop()))
	require.NoError(t, s.Refresh(context.Background()))

	exporter := NewPrometheusExporter(s)
	registry := prometheus.NewRegistry()
	registry.MustRegister(exporter)

	families, err := registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	modes := map[string]string{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			switch mf.GetName() {
			case "vigor_dsl_metric":
				values[labels["metric"]] = m.GetGauge().GetValue()
			case "vigor_dsl_path_mode_info":
				modes[labels["direction"]] = labels["mode"]
			}
		}
	}

	assert.Equal(t, 34998000.0, values["dsactual"])
	assert.Equal(t, 6799000.0, values["usactual"])
	assert.Equal(t, 13.0, values["attenuation"])
	assert.Equal(t, 123456.0, values["uptime"])
	assert.Equal(t, 3456.0, values["fec"])
	assert.Equal(t, map[string]string{"downstream": "Fast", "upstream": "Fast"}, modes)
}

func TestPrometheusExporterKeepsStateAfterFailure(t *testing.T) {
	p := &fixedPoller{snapshot: mock.ExpectedSnapshot()}
	s := sensor.New("", p, sensor.WithLogger(zerolog.Nop()))
	require.NoError(t, s.Refresh(context.Background()))

	p.snapshot, p.err = nil, types.NewPollError(types.ErrTimeout, "CapturingBlock2", errors.New("timer expired"))
	require.Error(t, s.Refresh(context.Background()))

	registry := newRegistry(t, s)
	count, err := testutil.GatherAndCount(registry, "vigor_dsl_metric")
	require.NoError(t, err)
	assert.Equal(t, 12, count)
}

func TestPrometheusExporterDeviceInfo(t *testing.T) {
	s := sensor.New("", &fixedPoller{snapshot: mock.ExpectedSnapshot()},
		sensor.WithLogger(zerolog.Nop()), sensor.WithDeviceInfo(fixedDevice{}))
	require.NoError(t, s.Refresh(context.Background()))

	expected := `
# HELP vigor_device_uptime_seconds System uptime reported over SNMP
# TYPE vigor_device_uptime_seconds gauge
vigor_device_uptime_seconds{sensor="Draytek"} 90
`
	require.NoError(t, testutil.GatherAndCompare(newRegistry(t, s), strings.NewReader(expected), "vigor_device_uptime_seconds"))
}

func TestHandler(t *testing.T) {
	s := sensor.New("", &fixedPoller{snapshot: mock.ExpectedSnapshot()}, sensor.WithLogger(zerolog.Nop()))
	require.NoError(t, s.Refresh(context.Background()))

	h, err := Handler(NewPrometheusExporter(s))
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vigor_dsl_metric{label="Downstream Actual",metric="dsactual",sensor="Draytek"}`)
	assert.Contains(t, string(body), `vigor_sensor_state{sensor="Draytek"} 14`)
}
