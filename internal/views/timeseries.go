package views

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"netdash/internal/dataset"
)

// MaxSiteBars caps the per-site mean chart
const MaxSiteBars = 15

// PresentMetrics returns the metrics of candidates present as numeric
// columns of t, in candidate order and with the table's spelling
func PresentMetrics(t *dataset.Table, candidates []string) []string {
	var out []string
	for _, m := range candidates {
		if name, ok := t.FirstColumn(m); ok && t.ColumnType(name) == dataset.TypeNumber {
			out = append(out, name)
		}
	}
	return out
}

// Performance is the recipe of the performance tab
func Performance(t *dataset.Table, opts Options) *View {
	return timeSeries(dataset.Performance, dataset.PerformanceMetrics, t, opts)
}

// Quality is the recipe of the quality tab
func Quality(t *dataset.Table, opts Options) *View {
	return timeSeries(dataset.Quality, dataset.QualityMetrics, t, opts)
}

func timeSeries(kind dataset.Kind, candidates []string, t *dataset.Table, opts Options) *View {
	v := newView(kind, t)
	site, hasSite := t.SiteColumn()
	metrics := PresentMetrics(t, candidates)

	v.metric("Records", formatInt(t.Len()))
	if hasSite {
		v.metric("Unique sites", formatInt(distinctCount(t, site)))
	} else {
		v.metric("Unique sites", "N/A")
	}
	if days, ok := spanDays(t); ok {
		v.metric("Date range (days)", strconv.Itoa(days))
	}
	v.metric("Metrics available", strconv.Itoa(len(metrics)))

	essential := append([]string{dataset.ColStartTime}, dataset.SiteColumns...)
	v.Preview = buildPreview(t, append(essential, metrics...), opts)

	if len(metrics) == 0 {
		return v
	}
	v.Tables = append(v.Tables, metricStats(metrics, t))

	chosen := chooseMetrics(v, t, metrics, opts.Metrics)
	plotted := make([]plottedMetric, len(chosen))
	for i, metric := range chosen {
		plotted[i] = plotMetric(t, metric, opts.Normalize)
	}
	yLabel := "Value"
	if len(chosen) == 1 {
		yLabel = chosen[0]
	}
	if opts.Normalize {
		yLabel += " (0-100)"
	}

	if t.ColumnType(dataset.ColStartTime) != dataset.TypeTime {
		v.warn("start_time could not be read; time charts are omitted")
	} else {
		v.chart(metricOverTime(t, plotted, yLabel, site, opts.Chart))
		v.chart(hourOfDay(t, plotted, yLabel))
	}
	if hasSite {
		v.chart(siteMeans(t, plotted, yLabel, site))
	}
	return v
}

// plottedMetric is a metric column read as floats, NaN where missing
type plottedMetric struct {
	name   string
	values []float64
}

func plotMetric(t *dataset.Table, metric string, norm bool) plottedMetric {
	col := t.Column(metric)
	values := make([]float64, len(col))
	for i, val := range col {
		if f, ok := val.Float(); ok {
			values[i] = f
		} else {
			values[i] = math.NaN()
		}
	}
	if norm {
		normalize(values)
	}
	return plottedMetric{name: metric, values: values}
}

// chooseMetrics resolves the requested metrics against the available ones.
// Unknown names are reported; with none left the first available metric
// is shown.
func chooseMetrics(v *View, t *dataset.Table, available, requested []string) []string {
	var out []string
	var unknown []string
	for _, m := range requested {
		name, ok := t.FirstColumn(m)
		switch {
		case !ok || !containsString(available, name):
			unknown = append(unknown, m)
		case !containsString(out, name):
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		out = []string{available[0]}
	}
	if len(unknown) > 0 {
		v.warn(fmt.Sprintf("metric %s is not available; showing %s",
			strings.Join(unknown, ", "), strings.Join(out, ", ")))
	}
	return out
}

func metricNames(plotted []plottedMetric) string {
	names := make([]string, len(plotted))
	for i, p := range plotted {
		names[i] = p.name
	}
	return strings.Join(names, ", ")
}

func metricStats(metrics []string, t *dataset.Table) SummaryTable {
	table := SummaryTable{
		ID: "metric_stats", Title: "Metric statistics",
		Columns: []string{"Metric", "Mean", "Min", "Max", "Std", "Count"},
	}
	for _, m := range metrics {
		s := Summarize(t.Floats(m))
		table.Rows = append(table.Rows, []string{
			m,
			formatFloat(s.Mean, 2),
			formatFloat(s.Min, 2),
			formatFloat(s.Max, 2),
			formatFloat(s.Std, 2),
			strconv.Itoa(s.Count),
		})
	}
	return table
}

// seriesKeyer returns the series name of a row. With several metrics the
// metric is appended to the site.
func seriesKeyer(t *dataset.Table, site, metric string, several bool) func(r int) string {
	if site == "" {
		return func(int) string { return metric }
	}
	if several {
		return func(r int) string {
			name := t.Value(r, site).String()
			if name == "" {
				return ""
			}
			return name + " · " + metric
		}
	}
	return func(r int) string { return t.Value(r, site).String() }
}

// metricOverTime plots each metric per site. Line and area charts use the
// raw timestamps; bar charts average per hour.
func metricOverTime(t *dataset.Table, plotted []plottedMetric, yLabel, site, chartType string) ChartSpec {
	switch chartType {
	case ChartBar, ChartArea:
	default:
		chartType = ChartLine
	}
	bucket := func(ts time.Time) time.Time { return ts }
	if chartType == ChartBar {
		bucket = func(ts time.Time) time.Time { return ts.Truncate(time.Hour) }
	}

	type cell struct {
		series string
		at     time.Time
	}
	sums := make(map[cell][]float64)
	seriesSet := make(map[string]bool)
	timeSet := make(map[time.Time]bool)

	start := t.Column(dataset.ColStartTime)
	for _, p := range plotted {
		seriesOf := seriesKeyer(t, site, p.name, len(plotted) > 1)
		for r, ts := range start {
			if ts.Type != dataset.TypeTime || math.IsNaN(p.values[r]) {
				continue
			}
			name := seriesOf(r)
			if name == "" {
				continue
			}
			at := bucket(ts.Time)
			sums[cell{name, at}] = append(sums[cell{name, at}], p.values[r])
			seriesSet[name] = true
			timeSet[at] = true
		}
	}

	times := make([]time.Time, 0, len(timeSet))
	for ts := range timeSet {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	names := make([]string, 0, len(seriesSet))
	for n := range seriesSet {
		names = append(names, n)
	}
	sort.Strings(names)

	c := ChartSpec{
		ID:     "metric_over_time",
		Title:  metricNames(plotted) + " over time",
		Type:   chartType,
		XLabel: "Time",
		YLabel: yLabel,
	}
	for _, ts := range times {
		c.Labels = append(c.Labels, ts.Format(dataset.TimeLayout))
	}
	for _, n := range names {
		values := make([]float64, len(times))
		for i, ts := range times {
			values[i] = mean(sums[cell{n, ts}])
		}
		c.Series = append(c.Series, Series{Name: n, Values: values})
	}
	return c
}

func hourOfDay(t *dataset.Table, plotted []plottedMetric, yLabel string) ChartSpec {
	hours := newGroups()
	perMetric := make([]*groups, len(plotted))
	start := t.Column(dataset.ColStartTime)
	for i, p := range plotted {
		perMetric[i] = newGroups()
		for r, ts := range start {
			if ts.Type != dataset.TypeTime || math.IsNaN(p.values[r]) {
				continue
			}
			key := strconv.Itoa(ts.Time.Hour())
			perMetric[i].add(key, p.values[r])
			hours.touch(key)
		}
	}
	labels := hours.sorted()
	sort.Slice(labels, func(i, j int) bool {
		a, _ := strconv.Atoi(labels[i])
		b, _ := strconv.Atoi(labels[j])
		return a < b
	})
	c := ChartSpec{
		ID: "hour_of_day", Title: metricNames(plotted) + " by hour of day", Type: ChartBar,
		XLabel: "Hour", YLabel: yLabel,
		Labels: labels,
	}
	for i, p := range plotted {
		c.Series = append(c.Series, Series{Name: p.name, Values: perMetric[i].means(labels)})
	}
	return c
}

// siteMeans ranks sites by the mean of the first metric and plots every
// metric for those sites
func siteMeans(t *dataset.Table, plotted []plottedMetric, yLabel, site string) ChartSpec {
	sites := t.Column(site)
	perMetric := make([]*groups, len(plotted))
	for i, p := range plotted {
		perMetric[i] = newGroups()
		for r, sv := range sites {
			key := sv.String()
			if key == "" || math.IsNaN(p.values[r]) {
				continue
			}
			perMetric[i].add(key, p.values[r])
		}
	}
	first := perMetric[0]
	items := make([]ranked, 0, len(first.keys))
	for _, k := range first.keys {
		items = append(items, ranked{key: k, score: mean(first.values[k])})
	}
	items = topN(items, MaxSiteBars)

	c := ChartSpec{
		ID: "site_means", Title: metricNames(plotted) + " by site", Type: ChartBar,
		XLabel: "Site", YLabel: yLabel,
	}
	for _, it := range items {
		c.Labels = append(c.Labels, it.key)
	}
	for i, p := range plotted {
		c.Series = append(c.Series, Series{Name: p.name, Values: perMetric[i].means(c.Labels)})
	}
	return c
}
