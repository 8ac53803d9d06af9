package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecorderCapturesRecords(t *testing.T) {
	logger, rec := NewTestLogger(t)

	logger.Info("upload accepted", slog.String("kind", "alarms"))
	logger.Error("parse failed", slog.Int("line", 7))

	require.Len(t, rec.Records(), 2)
	assert.True(t, rec.HasAttr("kind", "alarms"))
	assert.Len(t, rec.RecordsAt(slog.LevelError), 1)

	r, ok := rec.Find("parse")
	require.True(t, ok)
	assert.Equal(t, int64(7), r.Attrs["line"])
}

func TestLogRecorderKeepsDerivedAttrs(t *testing.T) {
	logger, rec := NewTestLogger(t)

	logger.With(slog.String("component", "loader")).
		WithGroup("upload").
		Info("parsed", slog.Int("rows", 3))

	r, ok := rec.Find("parsed")
	require.True(t, ok)
	assert.Equal(t, "loader", r.Attrs["component"])
	assert.Equal(t, int64(3), r.Attrs["upload.rows"])
}

func TestLogRecorderReset(t *testing.T) {
	logger, rec := NewTestLogger(t)
	logger.Warn("first")
	rec.Reset()
	assert.Empty(t, rec.Records())
	AssertNoErrors(t, rec)
}

func TestCSV(t *testing.T) {
	got := CSV(";", []string{"a", "b"}, []string{"1", "2"})
	assert.Equal(t, "a;b\n1;2\n", got)
}
