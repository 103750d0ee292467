package models

// ChartType names a chart kind understood by the charting widget.
type ChartType string

// Chart types used by the dashboard metadata.
const (
	ChartTypeBar     ChartType = "bar"
	ChartTypeLine    ChartType = "line"
	ChartTypeArea    ChartType = "area"
	ChartTypeRadar   ChartType = "radar"
	ChartTypeScatter ChartType = "scatter"
	ChartTypeHeatmap ChartType = "heatmap"
	ChartTypePie     ChartType = "pie"
	ChartTypeDonut   ChartType = "donut"
)

// KnownChartTypes lists every chart type the metadata validator accepts.
var KnownChartTypes = []ChartType{
	ChartTypeBar,
	ChartTypeLine,
	ChartTypeArea,
	ChartTypeRadar,
	ChartTypeScatter,
	ChartTypeHeatmap,
	ChartTypePie,
	ChartTypeDonut,
}

// ChartFamily separates charts plotted against a category axis from
// proportion charts that take flat label/value pairs.
type ChartFamily int

const (
	// FamilyAxis charts carry xaxis.categories and nested series.
	FamilyAxis ChartFamily = iota
	// FamilyCategorical charts (pie, donut) carry labels and a flat series.
	FamilyCategorical
)

// String returns the family name used in logs and warnings.
func (f ChartFamily) String() string {
	if f == FamilyCategorical {
		return "categorical"
	}

	return "axis"
}

// ResolveFamily maps a chart type to its family. Matching is exact: only
// "pie" and "donut" are categorical, so "Pie" renders as an axis chart.
func ResolveFamily(t ChartType) ChartFamily {
	switch t {
	case ChartTypePie, ChartTypeDonut:
		return FamilyCategorical
	default:
		return FamilyAxis
	}
}

// FieldDescriptor describes one field or series drawn from a record.
type FieldDescriptor struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	// Name and Group are the display name and stack group of a series in
	// multi-series charts.
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// ChartMetadata describes how a dataset is rendered.
type ChartMetadata struct {
	ChartType           ChartType         `json:"chartType"`
	Height              any               `json:"height,omitempty"`
	Width               any               `json:"width,omitempty"`
	Stacked             *bool             `json:"stacked,omitempty"`
	SeriesKey           string            `json:"seriesKey,omitempty"`
	XAxisKey            string            `json:"xAxisKey,omitempty"`
	LabelKey            string            `json:"labelKey,omitempty"`
	IsArrObjSeries      bool              `json:"isArrObjSeries,omitempty"`
	Series              []FieldDescriptor `json:"series,omitempty"`
	DataLabelEnabled    *bool             `json:"dataLabelEnabled,omitempty"`
	DataLabelFormatter  string            `json:"dataLabelFormatter,omitempty"`
	LegendPosition      string            `json:"legendPosition,omitempty"`
	LegendAlign         string            `json:"legendAlign,omitempty"`
	IsPlotBarHorizontal *bool             `json:"isPlotBarHorizontal,omitempty"`
	DataFlds            []FieldDescriptor `json:"dataFlds,omitempty"`
}

// Family resolves the chart family of the metadata.
func (m *ChartMetadata) Family() ChartFamily {
	return ResolveFamily(m.ChartType)
}

// DataRecord is one row of a dataset keyed by field name.
type DataRecord map[string]any

// FieldValue is one normalized entry of an object-shaped metric.
type FieldValue struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Record converts the entry into a DataRecord with key, label and value fields.
func (f FieldValue) Record() DataRecord {
	return DataRecord{
		"key":   f.Key,
		"label": f.Label,
		"value": f.Value,
	}
}

// BoolValue dereferences an optional flag, treating nil as false.
func BoolValue(b *bool) bool {
	return b != nil && *b
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
