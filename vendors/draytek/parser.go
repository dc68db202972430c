package draytek

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nanoncore/nano-vigor/types"
	"github.com/nanoncore/nano-vigor/vendors/common"
)

// fieldSplitter separates the label/value columns of a status line.
// Alternatives are tried left to right at each position.
var fieldSplitter = regexp.MustCompile(`:| bps|   US|dB|       FE`)

// fieldRule extracts one metric from a split line
type fieldRule struct {
	index  int
	metric types.MetricName
}

// lineRule describes what a line position carries
type lineRule struct {
	fields []fieldRule

	// digits keeps only the first run of decimal digits of the field
	digits bool
}

// statusLayout maps 1-based line positions of the combined "vdsl status" and
// "vdsl status counts" output to their fields. Positions are firmware
// dependent: one added or removed line shifts every entry below it.
var statusLayout = map[int]lineRule{
	4:  {fields: []fieldRule{{1, types.MetricDSActual}, {4, types.MetricUSActual}}},
	5:  {fields: []fieldRule{{1, types.MetricDSAttainable}, {4, types.MetricUSAttainable}}},
	6:  {fields: []fieldRule{{1, types.MetricDSPathMode}, {3, types.MetricUSPathMode}}},
	7:  {fields: []fieldRule{{1, types.MetricDSInterleaveDepth}, {3, types.MetricUSInterleaveDepth}}},
	8:  {fields: []fieldRule{{1, types.MetricAttenuation}, {3, types.MetricSNRMargin}}},
	23: {fields: []fieldRule{{1, types.MetricUptime}}, digits: true},
	24: {fields: []fieldRule{{1, types.MetricCRC}}, digits: true},
	25: {fields: []fieldRule{{1, types.MetricFEC}}, digits: true},
	26: {fields: []fieldRule{{1, types.MetricHEC}}, digits: true},
}

// ParseError reports which line or field of the status output did not match
type ParseError struct {
	Line   int
	Metric types.MetricName
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.Metric, e.Reason)
}

// LayoutPositions returns the line positions the parser reads, ascending
func LayoutPositions() []int {
	positions := make([]int, 0, len(statusLayout))
	for p := range statusLayout {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}

// PositionOf returns the line position that carries metric
func PositionOf(metric types.MetricName) (int, bool) {
	for p, rule := range statusLayout {
		for _, f := range rule.fields {
			if f.metric == metric {
				return p, true
			}
		}
	}
	return 0, false
}

// SplitFields splits one status line into its field segments
func SplitFields(line string) []string {
	return fieldSplitter.Split(line, -1)
}

// ParseStatus converts the raw session output into a complete snapshot.
// It either returns all 14 metrics or a PARSE_FAILURE poll error.
func ParseStatus(raw types.RawSessionOutput) (types.MetricSnapshot, error) {
	snapshot := make(types.MetricSnapshot, len(types.AllMetrics()))

	for i, line := range common.SplitEscapedLines(string(raw)) {
		position := i + 1
		rule, ok := statusLayout[position]
		if !ok {
			continue
		}
		if err := rule.apply(position, line, snapshot); err != nil {
			return nil, types.NewPollError(types.ErrParse, "", err)
		}
	}

	if missing := snapshot.Missing(); len(missing) > 0 {
		position, _ := PositionOf(missing[0])
		return nil, types.NewPollError(types.ErrParse, "", &ParseError{
			Line:   position,
			Metric: missing[0],
			Reason: fmt.Sprintf("line not present, %d metrics missing", len(missing)),
		})
	}

	return snapshot, nil
}

func (r lineRule) apply(position int, line string, into types.MetricSnapshot) error {
	fields := SplitFields(line)

	for _, f := range r.fields {
		if f.index >= len(fields) {
			return &ParseError{
				Line:   position,
				Metric: f.metric,
				Reason: fmt.Sprintf("field %d requested, line has %d", f.index, len(fields)),
			}
		}

		value := fields[f.index]
		if r.digits {
			d, ok := common.FirstDigits(value)
			if !ok {
				return &ParseError{Line: position, Metric: f.metric, Reason: fmt.Sprintf("no digits in %q", value)}
			}
			value = d
		}
		into[f.metric] = strings.TrimSpace(value)
	}

	return nil
}
