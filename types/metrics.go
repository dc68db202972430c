package types

// MetricName identifies one DSL line metric
type MetricName string

const (
	MetricDSActual          MetricName = "dsactual"
	MetricUSActual          MetricName = "usactual"
	MetricDSAttainable      MetricName = "dsattainable"
	MetricUSAttainable      MetricName = "usattainable"
	MetricDSPathMode        MetricName = "dspathmode"
	MetricUSPathMode        MetricName = "uspathmode"
	MetricDSInterleaveDepth MetricName = "dsinterleavedepth"
	MetricUSInterleaveDepth MetricName = "usinterleavedepth"
	MetricAttenuation       MetricName = "attenuation"
	MetricSNRMargin         MetricName = "snrmargin"
	MetricUptime            MetricName = "uptime"
	MetricCRC               MetricName = "crc"
	MetricFEC               MetricName = "fec"
	MetricHEC               MetricName = "hec"
)

var allMetrics = []MetricName{
	MetricDSActual,
	MetricUSActual,
	MetricDSAttainable,
	MetricUSAttainable,
	MetricDSPathMode,
	MetricUSPathMode,
	MetricDSInterleaveDepth,
	MetricUSInterleaveDepth,
	MetricAttenuation,
	MetricSNRMargin,
	MetricUptime,
	MetricCRC,
	MetricFEC,
	MetricHEC,
}

var metricLabels = map[MetricName]string{
	MetricDSActual:          "Downstream Actual",
	MetricUSActual:          "Upstream Actual",
	MetricDSAttainable:      "Downstream Attainable",
	MetricUSAttainable:      "Upstream Attainable",
	MetricDSPathMode:        "Downstream Path Mode",
	MetricUSPathMode:        "Upstream Path Mode",
	MetricDSInterleaveDepth: "Downstream Interleave Depth",
	MetricUSInterleaveDepth: "Upstream Interleave Depth",
	MetricAttenuation:       "Attenuation",
	MetricSNRMargin:         "SNR Margin",
	MetricUptime:            "Uptime",
	MetricCRC:               "CRC Errors",
	MetricFEC:               "FEC Corrected",
	MetricHEC:               "HEC",
}

// AllMetrics returns the 14 metric names in canonical order
func AllMetrics() []MetricName {
	out := make([]MetricName, len(allMetrics))
	copy(out, allMetrics)
	return out
}

// Label returns the human-readable name of the metric
func (m MetricName) Label() string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

// Textual reports whether the metric holds a non-numeric value
func (m MetricName) Textual() bool {
	return m == MetricDSPathMode || m == MetricUSPathMode
}

// MetricSnapshot maps metric names to their trimmed string values
type MetricSnapshot map[MetricName]string

// Missing returns the canonical metrics absent from s
func (s MetricSnapshot) Missing() []MetricName {
	var missing []MetricName
	for _, name := range allMetrics {
		if _, ok := s[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every canonical metric is present
func (s MetricSnapshot) Complete() bool {
	return len(s.Missing()) == 0
}

// Clone returns an independent copy
func (s MetricSnapshot) Clone() MetricSnapshot {
	out := make(MetricSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
