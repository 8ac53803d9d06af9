package views

import (
	"fmt"
	"strconv"
	"strings"

	"netdash/internal/dataset"
	"netdash/internal/filter"
)

// ActivationColumn holds the provision activation date
const ActivationColumn = "Fecha_Activacion"

// Hierarchy returns the provision hierarchy columns present in t
func Hierarchy(t *dataset.Table) []string {
	var out []string
	for _, h := range dataset.ProvisionHierarchy {
		if name, ok := t.FirstColumn(h); ok {
			out = append(out, name)
		}
	}
	return out
}

// Provision is the recipe of the provision tab. Options.Path walks the
// hierarchy: Path[0] picks a department, Path[1] a province and so on.
func Provision(t *dataset.Table, opts Options) *View {
	v := newView(dataset.Provision, t)
	levels := Hierarchy(t)

	v.metric("Total sites", formatInt(t.Len()))
	plural := map[string]string{
		"departamento": "Departments", "provincia": "Provinces",
		"distrito": "Districts", "localidad": "Localities",
	}
	for i, col := range levels {
		v.metric(plural[strings.ToLower(col)], formatInt(distinctTuples(t, levels[:i+1])))
	}

	scope := t
	path := opts.Path
	if len(path) > len(levels) {
		path = path[:len(levels)]
	}
	for depth := 0; depth < len(levels); depth++ {
		table, chart := levelBreakdown(scope, levels, depth)
		v.Tables = append(v.Tables, table)
		v.chart(chart)

		if depth >= len(path) || path[depth] == "" {
			break
		}
		next := filter.Apply(scope, filter.Equals(levels[depth], path[depth]))
		if next.Len() == 0 {
			v.warn(fmt.Sprintf("%s %q has no sites", levels[depth], path[depth]))
			break
		}
		scope = next
	}

	if len(path) == len(levels) && len(levels) > 0 && scope.Len() > 0 {
		v.Tables = append(v.Tables, siteList(scope))
	}

	if t.ColumnType(ActivationColumn) == dataset.TypeTime {
		g := newGroups()
		for _, val := range t.Column(ActivationColumn) {
			if val.Type == dataset.TypeTime {
				g.add(monthKey(val), 1)
			}
		}
		labels := g.sorted()
		v.chart(ChartSpec{
			ID: "activations_by_month", Title: "Activations per month", Type: ChartLine,
			XLabel: "Month", YLabel: "Sites activated",
			Labels: labels,
			Series: []Series{{Name: "Activations", Values: g.counts(labels)}},
		})
	}

	v.Preview = buildPreview(t, nil, opts)
	return v
}

// distinctTuples counts distinct value combinations of columns
func distinctTuples(t *dataset.Table, columns []string) int {
	seen := make(map[string]bool)
	for r := range t.Rows {
		parts := make([]string, len(columns))
		empty := false
		for i, c := range columns {
			parts[i] = t.Value(r, c).String()
			if parts[i] == "" {
				empty = true
			}
		}
		if !empty {
			seen[strings.Join(parts, "\x00")] = true
		}
	}
	return len(seen)
}

// levelBreakdown lists the values of levels[depth] within scope with their
// site count and number of distinct children
func levelBreakdown(scope *dataset.Table, levels []string, depth int) (SummaryTable, ChartSpec) {
	col := levels[depth]
	child := ""
	if depth+1 < len(levels) {
		child = levels[depth+1]
	}

	sites := countBy(scope, col)
	children := make(map[string]map[string]bool)
	if child != "" {
		for r := range scope.Rows {
			k := scope.Value(r, col).String()
			c := scope.Value(r, child).String()
			if k == "" || c == "" {
				continue
			}
			if children[k] == nil {
				children[k] = make(map[string]bool)
			}
			children[k][c] = true
		}
	}

	items := make([]ranked, 0, len(sites.keys))
	for _, k := range sites.keys {
		items = append(items, ranked{key: k, score: float64(len(sites.values[k]))})
	}
	items = topN(items, 0)

	id := "level_" + strings.ToLower(col)
	table := SummaryTable{ID: id, Title: col, Columns: []string{col, "Sites"}}
	if child != "" {
		table.Columns = append(table.Columns, child+" count")
	}
	chart := ChartSpec{
		ID: id, Title: "Sites per " + col, Type: ChartBar,
		XLabel: col, YLabel: "Sites",
	}
	var values []float64
	for i, it := range items {
		row := []string{it.key, strconv.Itoa(int(it.score))}
		if child != "" {
			row = append(row, strconv.Itoa(len(children[it.key])))
		}
		table.Rows = append(table.Rows, row)
		if i < 10 {
			chart.Labels = append(chart.Labels, it.key)
			values = append(values, it.score)
		}
	}
	chart.Series = []Series{{Name: "Sites", Values: values}}
	return table, chart
}

func siteList(scope *dataset.Table) SummaryTable {
	table := SummaryTable{ID: "sites", Title: "Sites", Columns: []string{"Site", ActivationColumn}}
	site, ok := scope.SiteColumn()
	for r := range scope.Rows {
		name := ""
		if ok {
			name = scope.Value(r, site).String()
		}
		table.Rows = append(table.Rows, []string{name, scope.Value(r, ActivationColumn).String()})
	}
	return table
}
