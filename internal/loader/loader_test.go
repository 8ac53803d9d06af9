package loader

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"netdash/internal/config"
	"netdash/internal/dataset"
	"netdash/internal/shared/testutil"
)

func newTestLoader(t *testing.T, limits Limits) *Loader {
	logger, _ := testutil.NewTestLogger(t)
	l := New(logger, limits)
	l.now = func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }
	return l
}

func load(t *testing.T, l *Loader, kind dataset.Kind, name, body string) (*dataset.Table, error) {
	t.Helper()
	return l.Load(context.Background(), Upload{Filename: name, Kind: kind, Body: strings.NewReader(body)})
}

func TestLoadAvailability(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})

	tbl, err := load(t, l, dataset.Availability, "disponibilidad.csv", testutil.AvailabilityCSV)
	require.NoError(t, err)

	assert.Equal(t, dataset.Availability, tbl.Kind)
	assert.Equal(t, "disponibilidad.csv", tbl.Source)
	assert.Len(t, tbl.Fingerprint, 64)
	assert.Equal(t, 2025, tbl.LoadedAt.Year())
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, float64(86400), tbl.Value(0, "cell_serv_time").Num)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"empty", "", ErrEmptyFile},
		{"whitespace only", "  \n\n", ErrEmptyFile},
		{"header only", "start_time;Site_Name;cell_serv_time\n", ErrNoRows},
		{"data instead of header", "2025-01-10 00:00:00;A;86400\n2025-01-11 00:00:00;B;86400\n", ErrMissingHeader},
		{"numeric header", "1;2;3\n4;5;6\n", ErrMissingHeader},
		{"mostly values", "2025-01-10 00:00:00;LIM001;700;2600\n2025-01-11 00:00:00;LIM001;1;0\n", ErrMissingHeader},
		{"blank header cell", "start_time;;cell_serv_time\n2025-01-10;A;1\n", ErrMissingHeader},
		{"binary", "start\x00time;x\n1;2\n", ErrEncoding},
	}

	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, l, dataset.Availability, "a.csv", tt.body)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadNumericColumnNames(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})

	tbl, err := load(t, l, dataset.Configuration, "c.csv", "Site_Name;700;2600\nA;1;0\nB;0;1\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Site_Name", "700", "2600"}, tbl.Names())

	tbl, err = load(t, l, dataset.Configuration, "c.csv", "Site_Name;vendor;700;2600\nA;x;1;0\n")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestCheckHeader(t *testing.T) {
	assert.NoError(t, checkHeader([]string{"start_time", "Site_Name", "700", "2600"}), "half is not most")
	assert.NoError(t, checkHeader([]string{"Site_Name", "700", "2600"}), "numbers alone are names")
	assert.NoError(t, checkHeader([]string{"band", "700"}))
	assert.ErrorIs(t, checkHeader([]string{"700", "2600"}), ErrMissingHeader)
	assert.ErrorIs(t, checkHeader([]string{"A", "2025-01-10", "7"}), ErrMissingHeader)

	err := checkHeader([]string{"2025-01-10 00:00:00", "A", "86400"})
	require.ErrorIs(t, err, ErrMissingHeader)
	assert.Contains(t, err.Error(), `2 of 3 names look like values, such as "2025-01-10 00:00:00"`)
}

func TestLoadRaggedRow(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	body := "start_time;Site_Name;cell_serv_time\n2025-01-10 00:00:00;A;1\n2025-01-11 00:00:00;B\n"

	_, err := load(t, l, dataset.Availability, "a.csv", body)

	var pe *dataset.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Contains(t, pe.Reason, "expected 3 fields")
	assert.Equal(t, "malformed", Reason(err))
}

func TestLoadQuoteError(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	_, err := load(t, l, dataset.Configuration, "c.csv", "Site_Name;band\n\"A;B28\nB\"x;B7\n")

	var pe *dataset.ParseError
	require.True(t, errors.As(err, &pe))
}

func TestLoadTrailingSeparatorIsTolerated(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	tbl, err := load(t, l, dataset.Configuration, "c.csv", "Site_Name;band;\nA;B28;\nB;B7;\n")
	require.NoError(t, err)
	assert.Len(t, tbl.Columns, 2)
}

func TestLoadSchemaError(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	_, err := load(t, l, dataset.Alarms, "averias.csv", "Site_Name;alarm_name\nA;Down\n")

	var se *dataset.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"start_time"}, se.Missing)
}

func TestLoadFileTooLarge(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 16})
	_, err := load(t, l, dataset.Availability, "a.csv", testutil.AvailabilityCSV)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, "too_large", Reason(err))
}

func TestLoadDetectsSeparatorAndBOM(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20, Separator: ';'})
	body := "\ufeffstart_time,Site_Name,cell_serv_time\n2025-01-10 00:00:00,A,86400\n"

	tbl, err := load(t, l, dataset.Availability, "a.csv", body)
	require.NoError(t, err)
	assert.Equal(t, "start_time", tbl.Columns[0].Name)
	assert.Equal(t, "A", tbl.Value(0, "Site_Name").String())
}

func TestLoadLatin1(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	body := []byte("Site_Name;Regi\xf3n\nA;Jun\xedn\n")

	tbl, err := l.Load(context.Background(), Upload{Filename: "c.csv", Kind: dataset.Configuration, Body: bytes.NewReader(body)})
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("Región"))
	assert.Equal(t, "Junín", tbl.Value(0, "Región").String())
}

func TestLoadCleansColumns(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	body := "Site_Name;end_time;start_time;start_time.1;Site_Name\nA;2025-01-10 01:00:00;2025-01-10 00:00:00;x;dup\n"

	tbl, err := load(t, l, dataset.Alarms, "averias.csv", body)
	require.NoError(t, err)

	names := tbl.Names()
	assert.Equal(t, []string{"start_time", "end_time", "site_name"}, names[:3])
	assert.NotContains(t, names, "start_time.1")
	assert.Equal(t, "A", tbl.Value(0, "site_name").String())
}

func TestLoadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"start_time", "Site_Name", "cell_serv_time"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"2025-01-10 00:00:00", "A", 86400}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"2025-01-11 00:00:00", "B", 43200}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	tbl, err := l.Load(context.Background(), Upload{Filename: "disponibilidad.xlsx", Kind: dataset.Availability, Body: &buf})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, float64(43200), tbl.Value(1, "cell_serv_time").Num)
}

func TestLoadBrokenWorkbook(t *testing.T) {
	l := newTestLoader(t, Limits{MaxFileBytes: 1 << 20})
	_, err := load(t, l, dataset.Availability, "x.xlsx", "not a zip")

	var pe *dataset.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestLoadUnknownKind(t *testing.T) {
	l := newTestLoader(t, Limits{})
	_, err := load(t, l, "weather", "w.csv", "a\n1\n")
	assert.ErrorIs(t, err, dataset.ErrUnknownKind)
}

func TestLoadWaitsForParseSlot(t *testing.T) {
	l := newTestLoader(t, Limits{MaxConcurrentParses: 1})
	require.NoError(t, l.sem.Acquire(context.Background(), 1))
	defer l.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Load(ctx, Upload{Filename: "a.csv", Kind: dataset.Availability, Body: strings.NewReader(testutil.AvailabilityCSV)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDetectSeparator(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"a;b;c", ';'},
		{"a,b,c", ','},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
		{"a,b;c", ';'},
		{"single", ';'},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectSeparator(tt.line+"\n1", ';'), tt.line)
	}
}

func TestLimitsFrom(t *testing.T) {
	got := LimitsFrom(config.UploadConfig{Separator: ",", MaxFileBytes: 10, MaxConcurrentParses: 2})
	assert.Equal(t, ',', got.Separator)
	assert.Equal(t, int64(10), got.MaxFileBytes)
	assert.Equal(t, int64(2), got.MaxConcurrentParses)
}
