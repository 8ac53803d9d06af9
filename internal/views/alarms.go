package views

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"

	"netdash/internal/dataset"
	"netdash/internal/filter"
)

// StatusActive is the alarm_status of an open alarm
const StatusActive = "active"

// ColAlarmID identifies an alarm across repeated export rows
const ColAlarmID = "alarm_id"

// MinAlarmsForRanking is how many resolved alarms a site needs before it
// is ranked by resolution time
const MinAlarmsForRanking = 3

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// resolution histogram bins in minutes; the last bin is open ended
var resolutionBins = []float64{0, 15, 30, 60, 120, 240, 480}

// AlarmPreviewColumns are the preview columns of the alarms tab
var AlarmPreviewColumns = []string{
	dataset.ColStartTime, dataset.ColEndTime, dataset.ColDuration,
	"Site_Name", "site_name", "site", "cell_name", "alarm_id", "alarm_name", "alarm_status",
}

// ActiveAlarmColumns are the columns of the active alarms export
var ActiveAlarmColumns = []string{
	dataset.ColStartTime, dataset.ColEndTime, "site", "cell_name", "alarm_id", "alarm_name", "alarm_status",
}

// UniqueAlarms keeps the first row of each alarm_id and returns how many
// rows it dropped. Rows without an alarm_id are all kept.
func UniqueAlarms(t *dataset.Table) (*dataset.Table, int) {
	ids := t.Column(ColAlarmID)
	if ids == nil {
		return t, 0
	}
	seen := make(map[string]bool, len(ids))
	keep := make([]int, 0, len(ids))
	for r, v := range ids {
		id := v.String()
		if id != "" {
			if seen[id] {
				continue
			}
			seen[id] = true
		}
		keep = append(keep, r)
	}
	if len(keep) == len(ids) {
		return t, 0
	}
	return t.Subset(keep), len(ids) - len(keep)
}

// ActiveAlarms returns the distinct active alarms of t sorted by start
// time, oldest first
func ActiveAlarms(t *dataset.Table) *dataset.Table {
	if !t.HasColumn("alarm_status") {
		return t.Subset(nil)
	}
	t, _ = UniqueAlarms(t)
	active := filter.Apply(t, filter.Equals("alarm_status", StatusActive))

	idx := make([]int, active.Len())
	for i := range idx {
		idx[i] = i
	}
	start := active.Column(dataset.ColStartTime)
	sort.SliceStable(idx, func(a, b int) bool {
		if start == nil {
			return false
		}
		return start[idx[a]].Less(start[idx[b]])
	})
	return active.Subset(idx)
}

func referenceTime(t *dataset.Table, opts Options) time.Time {
	if !opts.Now.IsZero() {
		return opts.Now
	}
	latest, _ := filter.Latest(t)
	return latest
}

// Alarms is the recipe of the alarms tab
func Alarms(t *dataset.Table, opts Options) *View {
	v := newView(dataset.Alarms, t)
	if unique, dropped := UniqueAlarms(t); dropped > 0 {
		t = unique
		v.RowCount = t.Len()
		v.warn(fmt.Sprintf("%d duplicate alarm rows were ignored", dropped))
	}
	site, hasSite := t.SiteColumn()
	hasStatus := t.HasColumn("alarm_status")

	v.metric("Total alarms", formatInt(t.Len()))
	var active *dataset.Table
	if hasStatus {
		active = ActiveAlarms(t)
		v.metric("Active alarms", formatInt(active.Len()))
	} else {
		v.metric("Active alarms", "N/A")
	}
	if hasSite {
		v.metric("Unique sites", formatInt(distinctCount(t, site)))
	} else {
		v.metric("Unique sites", "N/A")
	}

	durations := t.Floats(dataset.ColDuration)
	if len(durations) > 0 {
		s := Summarize(durations)
		v.metric("Mean resolution (min)", formatFloat(s.Mean, 1))
		v.metric("Median resolution (min)", formatFloat(s.Median, 1))
		v.metric("Longest resolution (min)", formatFloat(s.Max, 1))
	}

	if t.ColumnType(dataset.ColStartTime) == dataset.TypeTime {
		v.chart(alarmsByMonth(t))
		v.chart(alarmsByHour(t))
		v.chart(alarmsByWeekday(t))
	} else {
		v.warn("start_time could not be read; time charts are omitted")
	}

	if hasSite {
		v.chart(topSitesChart(t, site))
		if len(durations) > 0 {
			table, chart := slowestSites(t, site)
			v.Tables = append(v.Tables, table)
			v.chart(chart)
		}
	}
	if hasStatus {
		v.chart(statusSplit(t))
	}
	if len(durations) > 0 {
		v.chart(resolutionHistogram(durations))
	}

	if active != nil && active.Len() > 0 {
		now := referenceTime(t, opts)
		v.Tables = append(v.Tables, activeAlarmsTable(active, site, now))
		if hasSite {
			v.chart(openTimeBySite(active, site, now))
			activeAlarmMap(v, active, site)
		}
	}

	v.Preview = buildPreview(t, AlarmPreviewColumns, opts)
	return v
}

func alarmsByMonth(t *dataset.Table) ChartSpec {
	g := countByTime(t, monthKey)
	labels := g.sorted()
	return ChartSpec{
		ID: "alarms_by_month", Title: "Alarms by month", Type: ChartBar,
		XLabel: "Month", YLabel: "Alarms",
		Labels: labels,
		Series: []Series{{Name: "Alarms", Values: g.counts(labels)}},
	}
}

func alarmsByHour(t *dataset.Table) ChartSpec {
	g := newGroups()
	labels := make([]string, 24)
	for h := range labels {
		labels[h] = strconv.Itoa(h)
		g.touch(labels[h])
	}
	for _, v := range t.Column(dataset.ColStartTime) {
		if v.Type == dataset.TypeTime {
			g.add(strconv.Itoa(v.Time.Hour()), 1)
		}
	}
	return ChartSpec{
		ID: "alarms_by_hour", Title: "Alarms by hour of day", Type: ChartBar,
		XLabel: "Hour", YLabel: "Alarms",
		Labels: labels,
		Series: []Series{{Name: "Alarms", Values: g.counts(labels)}},
	}
}

func alarmsByWeekday(t *dataset.Table) ChartSpec {
	g := newGroups()
	for _, d := range weekdays {
		g.touch(d)
	}
	for _, v := range t.Column(dataset.ColStartTime) {
		if v.Type == dataset.TypeTime {
			g.add(v.Time.Weekday().String(), 1)
		}
	}
	return ChartSpec{
		ID: "alarms_by_weekday", Title: "Alarms by day of week", Type: ChartBar,
		XLabel: "Day", YLabel: "Alarms",
		Labels: weekdays,
		Series: []Series{{Name: "Alarms", Values: g.counts(weekdays)}},
	}
}

func topSitesChart(t *dataset.Table, site string) ChartSpec {
	g := countBy(t, site)
	items := make([]ranked, 0, len(g.keys))
	for _, k := range g.keys {
		items = append(items, ranked{key: k, score: float64(len(g.values[k]))})
	}
	items = topN(items, 10)

	c := ChartSpec{
		ID: "top_sites", Title: "Top 10 sites by alarms", Type: ChartBar,
		XLabel: "Site", YLabel: "Alarms",
	}
	values := make([]float64, len(items))
	for i, it := range items {
		c.Labels = append(c.Labels, it.key)
		values[i] = it.score
	}
	c.Series = []Series{{Name: "Alarms", Values: values}}
	return c
}

// slowestSites ranks sites with enough resolved alarms by mean resolution
func slowestSites(t *dataset.Table, site string) (SummaryTable, ChartSpec) {
	g := groupValues(t, site, dataset.ColDuration)
	var items []ranked
	for _, k := range g.keys {
		vals := g.values[k]
		if len(vals) < MinAlarmsForRanking {
			continue
		}
		items = append(items, ranked{key: k, score: mean(vals), count: len(vals)})
	}
	items = topN(items, 10)

	table := SummaryTable{
		ID: "slowest_sites", Title: "Sites with the longest resolution time",
		Columns: []string{"Site", "Mean resolution (min)", "Resolved alarms"},
	}
	chart := ChartSpec{
		ID: "slowest_sites", Title: "Sites with the longest resolution time", Type: ChartBar,
		XLabel: "Site", YLabel: "Mean resolution (min)",
	}
	values := make([]float64, len(items))
	for i, it := range items {
		table.Rows = append(table.Rows, []string{it.key, formatFloat(it.score, 1), strconv.Itoa(it.count)})
		chart.Labels = append(chart.Labels, it.key)
		values[i] = it.score
	}
	chart.Series = []Series{{Name: "Mean resolution", Values: values}}
	return table, chart
}

func statusSplit(t *dataset.Table) ChartSpec {
	g := countBy(t, "alarm_status")
	labels := g.sorted()
	return ChartSpec{
		ID: "status_split", Title: "Alarm status", Type: ChartPie,
		Labels: labels,
		Series: []Series{{Name: "Alarms", Values: g.counts(labels)}},
	}
}

func resolutionHistogram(durations []float64) ChartSpec {
	labels := make([]string, len(resolutionBins))
	counts := make([]float64, len(resolutionBins))
	for i, lo := range resolutionBins {
		if i == len(resolutionBins)-1 {
			labels[i] = formatFloat(lo, 0) + "+"
		} else {
			labels[i] = formatFloat(lo, 0) + "-" + formatFloat(resolutionBins[i+1], 0)
		}
	}
	for _, d := range durations {
		bin := sort.SearchFloat64s(resolutionBins, d)
		if bin == len(resolutionBins) || resolutionBins[bin] != d {
			bin--
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
	}
	return ChartSpec{
		ID: "resolution_distribution", Title: "Resolution time distribution", Type: ChartBar,
		XLabel: "Minutes", YLabel: "Alarms",
		Labels: labels,
		Series: []Series{{Name: "Alarms", Values: counts}},
	}
}

func openHours(start dataset.Value, now time.Time) float64 {
	if start.Type != dataset.TypeTime {
		return math.NaN()
	}
	return now.Sub(start.Time).Hours()
}

func activeAlarmsTable(active *dataset.Table, site string, now time.Time) SummaryTable {
	table := SummaryTable{
		ID: "active_alarms", Title: "Active alarms",
		Columns: []string{"Start", "Site", "Cell", "Alarm", "Open (h)"},
	}
	for r := range active.Rows {
		start := active.Value(r, dataset.ColStartTime)
		siteVal := ""
		if site != "" {
			siteVal = active.Value(r, site).String()
		}
		table.Rows = append(table.Rows, []string{
			start.String(),
			siteVal,
			active.Value(r, "cell_name").String(),
			active.Value(r, "alarm_name").String(),
			formatFloat(openHours(start, now), 1),
		})
	}
	return table
}

func openTimeBySite(active *dataset.Table, site string, now time.Time) ChartSpec {
	g := newGroups()
	for r := range active.Rows {
		key := active.Value(r, site).String()
		h := openHours(active.Value(r, dataset.ColStartTime), now)
		if key == "" || math.IsNaN(h) {
			continue
		}
		g.add(key, h)
	}
	items := make([]ranked, 0, len(g.keys))
	for _, k := range g.keys {
		items = append(items, ranked{key: k, score: mean(g.values[k])})
	}
	items = topN(items, 10)

	c := ChartSpec{
		ID: "open_time_by_site", Title: "Sites with active alarms open the longest", Type: ChartBar,
		XLabel: "Site", YLabel: "Mean open time (h)",
	}
	values := make([]float64, len(items))
	for i, it := range items {
		c.Labels = append(c.Labels, it.key)
		values[i] = it.score
	}
	c.Series = []Series{{Name: "Open time", Values: values}}
	return c
}

type mapSite struct {
	site     string
	lat, lon float64
	region   string
	alarms   int
}

// activeAlarmMap plots the sites with active alarms at their coordinates,
// sized by alarm count and grouped by department, with per region totals
func activeAlarmMap(v *View, active *dataset.Table, site string) {
	lat, lon, ok := active.Coordinates()
	if !ok {
		return
	}
	region, hasRegion := active.GeoColumn(dataset.LevelDepartment)

	bySite := make(map[string]*mapSite)
	var order []string
	for r := range active.Rows {
		key := active.Value(r, site).String()
		if key == "" {
			continue
		}
		ms, ok := bySite[key]
		if !ok {
			ms = &mapSite{site: key, lat: math.NaN(), lon: math.NaN()}
			bySite[key] = ms
			order = append(order, key)
		}
		ms.alarms++
		if math.IsNaN(ms.lat) {
			la, okLat := active.Value(r, lat).Float()
			lo, okLon := active.Value(r, lon).Float()
			if okLat && okLon {
				ms.lat, ms.lon = la, lo
			}
		}
		if hasRegion && ms.region == "" {
			ms.region = active.Value(r, region).String()
		}
	}
	sort.Strings(order)

	c := ChartSpec{
		ID: "active_alarm_map", Title: "Sites with active alarms", Type: ChartMap,
		XLabel: "Longitude", YLabel: "Latitude",
	}
	regions := newGroups()
	regionSites := make(map[string]int)
	total := 0
	for _, key := range order {
		ms := bySite[key]
		if math.IsNaN(ms.lat) {
			continue
		}
		c.Points = append(c.Points, Point{
			Label: ms.site, Lat: ms.lat, Lon: ms.lon,
			Value: float64(ms.alarms), Group: ms.region,
		})
		total += ms.alarms
		name := ms.region
		if name == "" {
			name = "Unknown"
		}
		regions.add(name, float64(ms.alarms))
		regionSites[name]++
	}
	if len(c.Points) == 0 {
		v.warn("no active alarm site has valid coordinates; the map is omitted")
		return
	}
	v.chart(c)

	v.metric("Sites mapped", formatInt(len(c.Points)))
	if hasRegion {
		v.metric("Regions affected", formatInt(len(regions.keys)))
	}
	v.metric("Active alarms per mapped site", formatFloat(float64(total)/float64(len(c.Points)), 1))

	table := SummaryTable{
		ID: "active_by_region", Title: "Active alarms by region",
		Columns: []string{"Region", "Sites", "Active alarms"},
	}
	for _, name := range regions.sorted() {
		table.Rows = append(table.Rows, []string{
			name, strconv.Itoa(regionSites[name]), formatFloat(floats.Sum(regions.values[name]), 0),
		})
	}
	v.Tables = append(v.Tables, table)
}
