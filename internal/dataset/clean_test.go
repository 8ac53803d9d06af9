package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"3.5", 3.5, true},
		{"123,45", 123.45, true},
		{"23,418.082", 23418.082, true},
		{"1,234,567", 1234567, true},
		{"12,3456", 123456, true},
		{`"7,5"`, 7.5, true},
		{" 8 ", 8, true},
		{"-0,5", -0.5, true},
		{"n/a", 0, false},
		{"", 0, false},
		{"12abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"Aug 18, 2025 @ 06:00:00.000", time.Date(2025, 8, 18, 6, 0, 0, 0, time.UTC), true},
		{"Aug 8, 2025 @ 23:15:10.000", time.Date(2025, 8, 8, 23, 15, 10, 0, time.UTC), true},
		{"2025-01-10 00:30:00", time.Date(2025, 1, 10, 0, 30, 0, 0, time.UTC), true},
		{"2025-01-10T12:00:00", time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), true},
		{"2025-01-10", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{"05/01/2025", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"5/1/2025 14:30", time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestFindSiteColumn(t *testing.T) {
	col, ok := FindSiteColumn([]string{"start_time", "site_name", "Site_Name"})
	assert.True(t, ok)
	assert.Equal(t, "Site_Name", col, "preferred spelling wins")

	col, ok = FindSiteColumn([]string{"SITE"})
	assert.True(t, ok)
	assert.Equal(t, "SITE", col)

	_, ok = FindSiteColumn([]string{"cell"})
	assert.False(t, ok)
}

func TestLooksNumeric(t *testing.T) {
	assert.True(t, looksNumeric("12"))
	assert.True(t, looksNumeric("0.25"))
	assert.True(t, looksNumeric("0"))
	assert.False(t, looksNumeric("007"))
	assert.False(t, looksNumeric("1,5"))
}
