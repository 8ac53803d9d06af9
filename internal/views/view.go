package views

import (
	"encoding/json"
	"math"
	"time"

	"netdash/internal/dataset"
)

// Chart types
const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
	ChartArea = "area"
	// ChartMap places Points at their coordinates
	ChartMap = "map"
)

// Row limits of the preview table
const (
	MinRowLimit     = 10
	MaxRowLimit     = 500
	DefaultRowLimit = 100
)

// View is the rendered output of one tab
type View struct {
	Kind     string         `json:"kind"`
	Title    string         `json:"title"`
	Metrics  []Metric       `json:"metrics"`
	Tables   []SummaryTable `json:"tables"`
	Charts   []ChartSpec    `json:"charts"`
	Preview  Preview        `json:"preview"`
	Warnings []string       `json:"warnings,omitempty"`
	RowCount int            `json:"row_count"`
}

// Metric is a headline figure
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SummaryTable is an aggregated table rendered as text cells
type SummaryTable struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ChartSpec describes a chart for the client side renderer
type ChartSpec struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Type   string   `json:"type"`
	XLabel string   `json:"x_label,omitempty"`
	YLabel string   `json:"y_label,omitempty"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
	Points []Point  `json:"points,omitempty"`
}

// Point is a located value of a map chart
type Point struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Value float64 `json:"value"`
	Group string  `json:"group,omitempty"`
}

// Series is one data series of a chart, aligned with ChartSpec.Labels
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// MarshalJSON writes NaN values as null
func (s Series) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(s.Values))
	for i := range s.Values {
		if !math.IsNaN(s.Values[i]) && !math.IsInf(s.Values[i], 0) {
			values[i] = &s.Values[i]
		}
	}
	return json.Marshal(struct {
		Name   string     `json:"name"`
		Values []*float64 `json:"values"`
	}{s.Name, values})
}

// Preview is the first rows of the filtered table
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// Options tune a recipe. The zero value is usable.
type Options struct {
	// Metrics selects the plotted metrics of time series kinds, one series
	// per metric and site
	Metrics []string
	// Chart is line, bar or area for time series charts
	Chart string
	// Normalize rescales each plotted metric to 0-100
	Normalize bool
	// RowLimit caps the preview; clamped to MinRowLimit..MaxRowLimit
	RowLimit int
	// AllColumns shows every column in the preview
	AllColumns bool
	// Now is the reference time for open alarm ages. When zero the latest
	// start_time in the table is used.
	Now time.Time
	// Path is the provision drill-down selection, outermost level first
	Path []string
}

func (o Options) rowLimit() int {
	switch {
	case o.RowLimit == 0:
		return DefaultRowLimit
	case o.RowLimit < MinRowLimit:
		return MinRowLimit
	case o.RowLimit > MaxRowLimit:
		return MaxRowLimit
	default:
		return o.RowLimit
	}
}

func newView(kind dataset.Kind, t *dataset.Table) *View {
	v := &View{Kind: string(kind), Title: kind.Title(), RowCount: t.Len()}
	v.Warnings = append(v.Warnings, t.Warnings...)
	return v
}

func (v *View) metric(label, value string) {
	v.Metrics = append(v.Metrics, Metric{Label: label, Value: value})
}

func (v *View) warn(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

func (v *View) chart(c ChartSpec) {
	if len(c.Labels) == 0 && len(c.Points) == 0 {
		return
	}
	v.Charts = append(v.Charts, c)
}

// Chart returns the chart with id
func (v *View) Chart(id string) (ChartSpec, bool) {
	for _, c := range v.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return ChartSpec{}, false
}

// Table returns the summary table with id
func (v *View) Table(id string) (SummaryTable, bool) {
	for _, t := range v.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return SummaryTable{}, false
}
