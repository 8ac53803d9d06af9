package views

import (
	"math"
	"strconv"

	"netdash/internal/dataset"
)

// ServiceTimeColumn holds cell service time in seconds
const ServiceTimeColumn = "cell_serv_time"

// AvailabilityPercent converts mean daily service hours to a percentage of
// a 24 hour day
func AvailabilityPercent(avgHours float64) float64 {
	return avgHours / 24 * 100
}

// Availability is the recipe of the availability tab
func Availability(t *dataset.Table, opts Options) *View {
	v := newView(dataset.Availability, t)
	site, hasSite := t.SiteColumn()

	v.metric("Records", formatInt(t.Len()))
	if hasSite {
		v.metric("Unique sites", formatInt(distinctCount(t, site)))
	} else {
		v.metric("Unique sites", "N/A")
	}
	if days, ok := spanDays(t); ok {
		v.metric("Date range (days)", strconv.Itoa(days))
	}

	essential := append([]string{dataset.ColStartTime}, dataset.SiteColumns...)
	v.Preview = buildPreview(t, append(essential, ServiceTimeColumn), opts)

	if t.ColumnType(ServiceTimeColumn) != dataset.TypeNumber {
		return v
	}

	hours := scale(t.Floats(ServiceTimeColumn), 1.0/3600)
	if len(hours) > 0 {
		s := Summarize(hours)
		v.metric("Average service (h)", formatFloat(s.Mean, 2))
		v.metric("Minimum service (h)", formatFloat(s.Min, 2))
		v.metric("Maximum service (h)", formatFloat(s.Max, 2))
		v.metric("Availability (%)", formatFloat(AvailabilityPercent(s.Mean), 1))
	}

	// per row hours, NaN where the cell is empty
	rowHours := make([]float64, t.Len())
	for r, val := range t.Column(ServiceTimeColumn) {
		if f, ok := val.Float(); ok {
			rowHours[r] = f / 3600
		} else {
			rowHours[r] = math.NaN()
		}
	}

	if hasSite {
		table, chart := availabilityBySite(t, site, rowHours)
		v.Tables = append(v.Tables, table)
		v.chart(chart)
	}
	if t.ColumnType(dataset.ColStartTime) == dataset.TypeTime {
		series := metricOverTime(t, []plottedMetric{{name: "Service time", values: rowHours}}, "Service time (h)", site, ChartLine)
		series.ID = "availability_over_time"
		series.Title = "Service time over time"
		v.chart(series)

		hourly := hourOfDay(t, []plottedMetric{{name: "Service time", values: rowHours}}, "Mean service time (h)")
		hourly.ID = "availability_by_hour"
		hourly.Title = "Mean service time by hour of day"
		v.chart(hourly)
	}
	return v
}

func availabilityBySite(t *dataset.Table, site string, rowHours []float64) (SummaryTable, ChartSpec) {
	g := newGroups()
	for r, sv := range t.Column(site) {
		key := sv.String()
		if key == "" || math.IsNaN(rowHours[r]) {
			continue
		}
		g.add(key, rowHours[r])
	}
	keys := g.sorted()

	table := SummaryTable{
		ID: "availability_by_site", Title: "Average availability per site",
		Columns: []string{"Site", "Average service (h)", "Availability (%)", "Records"},
	}
	chart := ChartSpec{
		ID: "availability_by_site", Title: "Availability per site", Type: ChartBar,
		XLabel: "Site", YLabel: "Availability (%)",
		Labels: keys,
	}
	pct := make([]float64, len(keys))
	for i, k := range keys {
		avg := mean(g.values[k])
		pct[i] = AvailabilityPercent(avg)
		table.Rows = append(table.Rows, []string{
			k, formatFloat(avg, 2), formatFloat(pct[i], 1), strconv.Itoa(len(g.values[k])),
		})
	}
	chart.Series = []Series{{Name: "Availability", Values: pct}}
	return table, chart
}
