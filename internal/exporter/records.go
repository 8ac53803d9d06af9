package exporter

import (
	"netdash/internal/dataset"
)

// exportColumns resolves columns against t. When columns is empty every
// column is exported; unknown columns are skipped.
func exportColumns(t *dataset.Table, columns []string) ([]string, []int) {
	var headers []string
	var idx []int
	if len(columns) == 0 {
		headers = t.Names()
		for i := range headers {
			idx = append(idx, i)
		}
		return headers, idx
	}
	for _, c := range columns {
		if i, ok := t.ColumnIndex(c); ok {
			headers = append(headers, c)
			idx = append(idx, i)
		}
	}
	return headers, idx
}

// TableRecords renders t as a header and string records. Columns are
// chosen as by CSVWriter.WriteTable.
func TableRecords(t *dataset.Table, columns []string) ([]string, [][]string) {
	headers, idx := exportColumns(t, columns)
	records := make([][]string, t.Len())
	for r, row := range t.Rows {
		rec := make([]string, len(idx))
		for j, i := range idx {
			rec[j] = row[i].String()
		}
		records[r] = rec
	}
	return headers, records
}
