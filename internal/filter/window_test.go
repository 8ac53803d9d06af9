package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netdash/internal/dataset"
	"netdash/internal/dataset/datasettest"
	"netdash/internal/shared/testutil"
)

func TestWindowFor(t *testing.T) {
	tbl := datasettest.Table(t, dataset.Alarms, testutil.AlarmsCSV)
	latest := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

	got, ok := Latest(tbl)
	require.True(t, ok)
	assert.Equal(t, latest, got)

	w, err := WindowFor(tbl, RangeDay, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, latest.Add(-24*time.Hour), w.From)

	w, err = WindowFor(tbl, RangeAll, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, w.IsZero())

	_, err = WindowFor(tbl, "2w", time.Time{}, time.Time{})
	assert.Error(t, err)

	_, err = WindowFor(tbl, RangeCustom, latest, time.Time{})
	assert.Error(t, err)

	_, err = WindowFor(tbl, RangeCustom, latest, latest.Add(-48*time.Hour))
	assert.Error(t, err)
}

func TestApplyWindow(t *testing.T) {
	tbl := datasettest.Table(t, dataset.Alarms, testutil.AlarmsCSV)

	w, err := WindowFor(tbl, RangeDay, time.Time{}, time.Time{})
	require.NoError(t, err)
	got := ApplyWindow(tbl, w)
	assert.Equal(t, 1, got.Len(), "only the Aug 20 alarm is within a day of the latest")

	w, err = WindowFor(tbl, Range3Days, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 4, ApplyWindow(tbl, w).Len())

	day := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	w, err = WindowFor(tbl, RangeCustom, day, day)
	require.NoError(t, err)
	assert.Equal(t, 2, ApplyWindow(tbl, w).Len(), "custom days are inclusive")

	assert.Same(t, tbl, ApplyWindow(tbl, Window{}))
}

func TestApplyWindowWithoutStartTime(t *testing.T) {
	tbl := datasettest.Table(t, dataset.Configuration, testutil.ConfigurationCSV)
	w := Window{From: time.Now().Add(-time.Hour), To: time.Now()}
	assert.Same(t, tbl, ApplyWindow(tbl, w))
}
