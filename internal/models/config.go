package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ChartConfig is the configuration object handed to the charting widget.
// Field names follow the widget's option names.
type ChartConfig struct {
	Series      *SeriesSet   `json:"series,omitempty"`
	Chart       *ChartOption `json:"chart,omitempty"`
	XAxis       *XAxis       `json:"xaxis,omitempty"`
	Labels      []any        `json:"labels,omitempty"`
	DataLabels  *DataLabels  `json:"dataLabels,omitempty"`
	Legend      *Legend      `json:"legend,omitempty"`
	Colors      []string     `json:"colors,omitempty"`
	PlotOptions *PlotOptions `json:"plotOptions,omitempty"`
}

// IsEmpty reports whether the config is the empty no-data result.
func (c *ChartConfig) IsEmpty() bool {
	return c.Series == nil && c.Chart == nil && c.XAxis == nil && c.Labels == nil &&
		c.DataLabels == nil && c.Legend == nil && c.Colors == nil && c.PlotOptions == nil
}

// Categories returns the x-axis categories or the labels, whichever is set.
func (c *ChartConfig) Categories() []any {
	if c.XAxis != nil {
		return c.XAxis.Categories
	}

	return c.Labels
}

// SeriesColumns returns one header and one value column per series. A flat
// series is a single "Value" column; unnamed series are numbered from 1.
func (c *ChartConfig) SeriesColumns() ([]string, [][]any) {
	if c.Series == nil {
		return nil, nil
	}

	if c.Series.IsFlat() {
		return []string{"Value"}, [][]any{c.Series.Flat}
	}

	headers := make([]string, 0, len(c.Series.Nested))
	columns := make([][]any, 0, len(c.Series.Nested))

	for i, s := range c.Series.Nested {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("Series %d", i+1)
		}

		headers = append(headers, name)
		columns = append(columns, s.Data)
	}

	return headers, columns
}

// Series is one named sequence of values.
type Series struct {
	Name  string `json:"name,omitempty"`
	Group string `json:"group,omitempty"`
	Data  []any  `json:"data"`
}

// SeriesSet holds either nested series (axis charts) or a flat value list
// (pie and donut charts). Exactly one of the two is set.
type SeriesSet struct {
	Nested []Series
	Flat   []any
}

// NestedSeries wraps series objects.
func NestedSeries(s ...Series) *SeriesSet {
	return &SeriesSet{Nested: s}
}

// FlatSeries wraps a flat value list.
func FlatSeries(values []any) *SeriesSet {
	if values == nil {
		values = []any{}
	}

	return &SeriesSet{Flat: values}
}

// IsFlat reports whether the set holds a flat value list.
func (s *SeriesSet) IsFlat() bool {
	return s.Flat != nil
}

// Len returns the number of series, or of values for a flat set.
func (s *SeriesSet) Len() int {
	if s.IsFlat() {
		return len(s.Flat)
	}

	return len(s.Nested)
}

// MarshalJSON encodes whichever variant is set.
func (s SeriesSet) MarshalJSON() ([]byte, error) {
	if s.Flat != nil {
		return json.Marshal(s.Flat)
	}

	if s.Nested == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(s.Nested)
}

// UnmarshalJSON decodes nested series when the first element is an object,
// a flat value list otherwise.
func (s *SeriesSet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw) > 0 && len(raw[0]) > 0 && raw[0][0] == '{' {
		s.Flat = nil
		return json.Unmarshal(data, &s.Nested)
	}

	s.Nested = nil
	s.Flat = []any{}

	return json.Unmarshal(data, &s.Flat)
}

// ChartOption carries the chart block of the config.
type ChartOption struct {
	Type    ChartType `json:"type"`
	Height  any       `json:"height,omitempty"`
	Width   any       `json:"width,omitempty"`
	Stacked bool      `json:"stacked"`
	Toolbar Toolbar   `json:"toolbar"`
}

// Toolbar toggles the widget toolbar.
type Toolbar struct {
	Show bool `json:"show"`
}

// XAxis carries the category axis values.
type XAxis struct {
	Categories []any `json:"categories"`
}

// DataLabels controls value labels drawn on the chart.
type DataLabels struct {
	Enabled   bool            `json:"enabled"`
	Formatter *LabelFormatter `json:"formatter,omitempty"`
}

// LabelFormatter appends a fixed suffix to a value. On the wire it is the
// suffix string; the browser side turns it back into a function.
type LabelFormatter struct {
	Suffix string
}

// Format renders v followed by the suffix. Numbers are written without
// rounding; a nil value renders as the bare suffix.
func (f *LabelFormatter) Format(v any) string {
	return FormatValue(v) + f.Suffix
}

// MarshalJSON encodes the formatter as its suffix.
func (f LabelFormatter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Suffix)
}

// UnmarshalJSON decodes the suffix string.
func (f *LabelFormatter) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &f.Suffix)
}

// Legend positions the chart legend.
type Legend struct {
	Position        string `json:"position"`
	HorizontalAlign string `json:"horizontalAlign,omitempty"`
}

// PlotOptions carries per-plot-type options.
type PlotOptions struct {
	Bar BarOptions `json:"bar"`
}

// BarOptions controls bar orientation.
type BarOptions struct {
	Horizontal bool `json:"horizontal"`
}

// FormatValue renders a record value as text the way the widget shows it.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return formatNumber(val, 64)
	case float32:
		return formatNumber(float64(val), 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}

		return string(b)
	}
}

// formatNumber writes f the way a browser prints a number: plain decimal
// digits, switching to exponent form at or above 1e21 and below 1e-6.
func formatNumber(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}

	// Go writes at least two exponent digits ("1e-07").
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")

	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
