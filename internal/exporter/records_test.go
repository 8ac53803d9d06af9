package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"netdash/internal/dataset"
	"netdash/internal/dataset/datasettest"
	"netdash/internal/shared/testutil"
)

func TestTableRecords(t *testing.T) {
	tbl := datasettest.Table(t, dataset.Performance, testutil.PerformanceCSV)

	headers, records := TableRecords(tbl, []string{"start_time", "Site_Name", "missing", "DL_Data_Traffic_MB"})
	assert.Equal(t, []string{"start_time", "Site_Name", "DL_Data_Traffic_MB"}, headers)
	assert.Len(t, records, 4)
	assert.Equal(t, []string{"2025-03-01 00:00:00", "A", "100.5"}, records[0])

	headers, records = TableRecords(tbl, nil)
	assert.Equal(t, tbl.Names(), headers)
	assert.Len(t, records[0], len(tbl.Columns))
}
