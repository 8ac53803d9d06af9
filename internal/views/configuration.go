package views

import (
	"strconv"
	"strings"

	"netdash/internal/dataset"
)

// categoryKeywords mark configuration columns worth counting
var categoryKeywords = []string{"type", "band", "transmission", "energy", "provider", "battery"}

// MaxCategoryTables caps the categorical breakdowns shown
const MaxCategoryTables = 4

// CategoricalColumns returns the configuration columns whose names contain
// a category keyword, in column order
func CategoricalColumns(t *dataset.Table) []string {
	var out []string
	for _, c := range t.Columns {
		name := strings.ToLower(c.Name)
		for _, kw := range categoryKeywords {
			if strings.Contains(name, kw) {
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

// Configuration is the recipe of the configuration tab
func Configuration(t *dataset.Table, opts Options) *View {
	v := newView(dataset.Configuration, t)

	v.metric("Configurations", formatInt(t.Len()))
	if site, ok := t.SiteColumn(); ok {
		v.metric("Configured sites", formatInt(distinctCount(t, site)))
	} else {
		v.metric("Configured sites", "N/A")
	}
	v.metric("Columns", strconv.Itoa(len(t.Columns)))
	if col, ok := t.FirstColumn("Operation Band"); ok {
		v.metric("Operation bands", strconv.Itoa(distinctCount(t, col)))
	} else if col, ok := t.FirstColumn("TYPE BTS"); ok {
		v.metric("BTS types", strconv.Itoa(distinctCount(t, col)))
	}

	cats := CategoricalColumns(t)
	if len(cats) > MaxCategoryTables {
		cats = cats[:MaxCategoryTables]
	}
	for i, col := range cats {
		v.metric(col+" (distinct)", strconv.Itoa(distinctCount(t, col)))

		g := countBy(t, col)
		items := make([]ranked, 0, len(g.keys))
		for _, k := range g.keys {
			items = append(items, ranked{key: k, score: float64(len(g.values[k]))})
		}
		items = topN(items, 0)

		id := "category_" + strconv.Itoa(i+1)
		table := SummaryTable{ID: id, Title: col, Columns: []string{col, "Count"}}
		labels := make([]string, len(items))
		counts := make([]float64, len(items))
		for j, it := range items {
			table.Rows = append(table.Rows, []string{it.key, strconv.Itoa(int(it.score))})
			labels[j] = it.key
			counts[j] = it.score
		}
		v.Tables = append(v.Tables, table)

		if i == 0 {
			v.chart(ChartSpec{
				ID: "category_split", Title: col, Type: ChartPie,
				Labels: labels,
				Series: []Series{{Name: col, Values: counts}},
			})
		}
	}

	v.Preview = buildPreview(t, nil, opts)
	return v
}
