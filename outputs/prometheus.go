package outputs

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanoncore/nano-vigor/sensor"
	"github.com/nanoncore/nano-vigor/types"
)

const namespace = "vigor"

// PrometheusExporter exposes the last published sensor state. Collect never
// triggers a poll; the sensor scheduler owns the router session.
type PrometheusExporter struct {
	metric       *prometheus.Desc
	pathMode     *prometheus.Desc
	state        *prometheus.Desc
	refreshTotal *prometheus.Desc
	uptime       *prometheus.Desc
	deviceInfo   *prometheus.Desc

	sensor *sensor.Sensor
}

// NewPrometheusExporter creates a collector for s
func NewPrometheusExporter(s *sensor.Sensor) *PrometheusExporter {
	constLabels := prometheus.Labels{"sensor": s.Name()}

	return &PrometheusExporter{
		sensor: s,
		metric: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dsl", "metric"),
			"Numeric DSL line statistic as reported by the modem CLI",
			[]string{"metric", "label"},
			constLabels,
		),
		pathMode: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "dsl", "path_mode_info"),
			"DSL path mode per direction (value is always 1)",
			[]string{"direction", "mode"},
			constLabels,
		),
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sensor", "state"),
			"Number of metrics in the last successful snapshot",
			nil,
			constLabels,
		),
		refreshTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "sensor", "refresh_total"),
			"Refresh attempts by result",
			[]string{"result"},
			constLabels,
		),
		uptime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "device", "uptime_seconds"),
			"System uptime reported over SNMP",
			nil,
			constLabels,
		),
		deviceInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "device", "info"),
			"Device identity reported over SNMP (value is always 1)",
			[]string{"description", "sys_name"},
			constLabels,
		),
	}
}

// Describe implements prometheus.Collector
func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.metric
	ch <- p.pathMode
	ch <- p.state
	ch <- p.refreshTotal
	ch <- p.uptime
	ch <- p.deviceInfo
}

// Collect implements prometheus.Collector
func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	stats := p.sensor.Stats()
	ch <- prometheus.MustNewConstMetric(p.refreshTotal, prometheus.CounterValue, float64(stats.Successes), "success")
	ch <- prometheus.MustNewConstMetric(p.refreshTotal, prometheus.CounterValue, float64(stats.Failures), "failure")

	st := p.sensor.Snapshot()
	if st == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(p.state, prometheus.GaugeValue, float64(st.Scalar))

	for _, name := range types.AllMetrics() {
		value, ok := st.Attributes[name]
		if !ok {
			continue
		}

		if name.Textual() {
			ch <- prometheus.MustNewConstMetric(p.pathMode, prometheus.GaugeValue, 1, direction(name), value)
			continue
		}

		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(p.metric, prometheus.GaugeValue, f, string(name), name.Label())
	}

	if st.Device != nil {
		ch <- prometheus.MustNewConstMetric(p.uptime, prometheus.GaugeValue, st.Device.Uptime.Seconds())
		ch <- prometheus.MustNewConstMetric(p.deviceInfo, prometheus.GaugeValue, 1, st.Device.Description, st.Device.SysName)
	}
}

func direction(name types.MetricName) string {
	if strings.HasPrefix(string(name), "us") {
		return "upstream"
	}
	return "downstream"
}

// Handler returns an HTTP handler serving only the exporter's metrics
func Handler(exporter *PrometheusExporter) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(exporter); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
