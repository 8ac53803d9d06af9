package filter

import (
	"fmt"
	"time"

	"netdash/internal/dataset"
)

// Range is a time window preset
type Range string

const (
	RangeAll    Range = "all"
	RangeDay    Range = "1d"
	Range3Days  Range = "3d"
	RangeWeek   Range = "7d"
	RangeCustom Range = "custom"
)

var rangeSpans = map[Range]time.Duration{
	RangeDay:   24 * time.Hour,
	Range3Days: 3 * 24 * time.Hour,
	RangeWeek:  7 * 24 * time.Hour,
}

// Window is an inclusive start_time interval. The zero Window keeps every
// row.
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the window is unbounded
func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

// Latest returns the greatest start_time in t
func Latest(t *dataset.Table) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, v := range t.Column(dataset.ColStartTime) {
		if v.Type == dataset.TypeTime && (!found || v.Time.After(latest)) {
			latest, found = v.Time, true
		}
	}
	return latest, found
}

// WindowFor resolves a preset against the latest start_time in t. Custom
// ranges use from and to as whole days.
func WindowFor(t *dataset.Table, r Range, from, to time.Time) (Window, error) {
	switch r {
	case "", RangeAll:
		return Window{}, nil
	case RangeCustom:
		if from.IsZero() || to.IsZero() {
			return Window{}, fmt.Errorf("custom range needs both from and to")
		}
		if to.Before(from) {
			return Window{}, fmt.Errorf("custom range ends before it starts")
		}
		return Window{From: from, To: to.Add(24*time.Hour - time.Nanosecond)}, nil
	}

	span, ok := rangeSpans[r]
	if !ok {
		return Window{}, fmt.Errorf("unknown range %q", r)
	}
	latest, ok := Latest(t)
	if !ok {
		return Window{}, nil
	}
	return Window{From: latest.Add(-span), To: latest}, nil
}

// ApplyWindow keeps rows whose start_time lies within w. Rows without a
// start_time are dropped by a bounded window.
func ApplyWindow(t *dataset.Table, w Window) *dataset.Table {
	if t == nil || w.IsZero() {
		return t
	}
	i, ok := t.ColumnIndex(dataset.ColStartTime)
	if !ok {
		return t
	}
	return t.Select(func(row dataset.Row) bool {
		v := row[i]
		if v.Type != dataset.TypeTime {
			return false
		}
		if !w.From.IsZero() && v.Time.Before(w.From) {
			return false
		}
		if !w.To.IsZero() && v.Time.After(w.To) {
			return false
		}
		return true
	})
}
