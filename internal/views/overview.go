package views

import (
	"strconv"
	"strings"

	"netdash/internal/dataset"
)

// Overview summarises every slot of a session
func Overview(tables map[dataset.Kind]*dataset.Table) *View {
	v := &View{Kind: "overview", Title: "Overview"}

	loaded, records := 0, 0
	sites := make(map[string]bool)
	status := SummaryTable{
		ID: "datasets", Title: "Datasets",
		Columns: []string{"Dataset", "Status", "Rows", "Columns", "Source", "Loaded at", "Warnings"},
	}
	counts := make([]float64, 0, len(dataset.AllKinds))
	var labels []string

	for _, kind := range dataset.AllKinds {
		t := tables[kind]
		if t == nil {
			status.Rows = append(status.Rows, []string{kind.Title(), "Not loaded", "", "", "", "", ""})
			continue
		}
		loaded++
		records += t.Len()
		if col, ok := t.SiteColumn(); ok {
			for _, s := range t.Distinct(col) {
				sites[strings.ToUpper(s)] = true
			}
		}
		status.Rows = append(status.Rows, []string{
			kind.Title(), "Loaded", formatInt(t.Len()), strconv.Itoa(len(t.Columns)),
			t.Source, t.LoadedAt.Format(dataset.TimeLayout), strconv.Itoa(len(t.Warnings)),
		})
		labels = append(labels, kind.Title())
		counts = append(counts, float64(t.Len()))
		for _, w := range t.Warnings {
			v.warn(kind.Title() + ": " + w)
		}
	}

	v.metric("Datasets loaded", strconv.Itoa(loaded)+" / "+strconv.Itoa(len(dataset.AllKinds)))
	v.metric("Total records", formatInt(records))
	v.metric("Unique sites", formatInt(len(sites)))
	v.RowCount = records
	v.Tables = append(v.Tables, status)
	v.chart(ChartSpec{
		ID: "records_by_dataset", Title: "Records per dataset", Type: ChartBar,
		XLabel: "Dataset", YLabel: "Records",
		Labels: labels,
		Series: []Series{{Name: "Records", Values: counts}},
	})
	return v
}
