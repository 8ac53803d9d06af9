package views

import (
	"math"
	"sort"
	"strings"

	"netdash/internal/dataset"
)

// groups collects float values per key, remembering key order
type groups struct {
	keys   []string
	values map[string][]float64
}

func newGroups() *groups {
	return &groups{values: make(map[string][]float64)}
}

func (g *groups) add(key string, v float64) {
	if _, ok := g.values[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.values[key] = append(g.values[key], v)
}

// touch registers key without a value
func (g *groups) touch(key string) {
	if _, ok := g.values[key]; !ok {
		g.keys = append(g.keys, key)
		g.values[key] = nil
	}
}

func (g *groups) sorted() []string {
	keys := append([]string(nil), g.keys...)
	sort.Strings(keys)
	return keys
}

func (g *groups) means(keys []string) []float64 {
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = mean(g.values[k])
	}
	return out
}

func (g *groups) counts(keys []string) []float64 {
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = float64(len(g.values[k]))
	}
	return out
}

// groupValues groups the numeric column value by the rendering of key.
// Rows with an empty key or a null value are skipped.
func groupValues(t *dataset.Table, key, value string) *groups {
	g := newGroups()
	ki, ok := t.ColumnIndex(key)
	if !ok {
		return g
	}
	vi, ok := t.ColumnIndex(value)
	if !ok {
		return g
	}
	for _, row := range t.Rows {
		k := strings.TrimSpace(row[ki].String())
		f, ok := row[vi].Float()
		if k == "" || !ok {
			continue
		}
		g.add(k, f)
	}
	return g
}

// countBy counts rows per rendering of key
func countBy(t *dataset.Table, key string) *groups {
	g := newGroups()
	for _, v := range t.Column(key) {
		k := strings.TrimSpace(v.String())
		if k == "" {
			continue
		}
		g.add(k, 1)
	}
	return g
}

// countByFunc counts rows per key computed from start_time
func countByTime(t *dataset.Table, key func(v dataset.Value) string) *groups {
	g := newGroups()
	for _, v := range t.Column(dataset.ColStartTime) {
		if v.Type != dataset.TypeTime {
			continue
		}
		g.add(key(v), 1)
	}
	return g
}

func monthKey(v dataset.Value) string { return v.Time.Format("2006-01") }

// distinctCount counts distinct non-empty renderings of column
func distinctCount(t *dataset.Table, column string) int {
	return len(t.Distinct(column))
}

// spanDays is the whole number of days between the earliest and latest
// start_time
func spanDays(t *dataset.Table) (int, bool) {
	var lo, hi float64
	found := false
	for _, v := range t.Column(dataset.ColStartTime) {
		if v.Type != dataset.TypeTime {
			continue
		}
		u := float64(v.Time.Unix())
		if !found {
			lo, hi, found = u, u, true
			continue
		}
		lo, hi = math.Min(lo, u), math.Max(hi, u)
	}
	if !found {
		return 0, false
	}
	return int((hi - lo) / 86400), true
}

// buildPreview renders the first rows of t over columns
func buildPreview(t *dataset.Table, essential []string, opts Options) Preview {
	var cols []string
	if opts.AllColumns || len(essential) == 0 {
		cols = t.Names()
	} else {
		for _, c := range essential {
			if name, ok := t.FirstColumn(c); ok && !containsString(cols, name) {
				cols = append(cols, name)
			}
		}
		if len(cols) == 0 {
			cols = t.Names()
		}
	}

	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i], _ = t.ColumnIndex(c)
	}

	limit := opts.rowLimit()
	if limit > t.Len() {
		limit = t.Len()
	}
	rows := make([][]string, limit)
	for r := 0; r < limit; r++ {
		row := make([]string, len(idx))
		for i, ci := range idx {
			row[i] = t.Rows[r][ci].String()
		}
		rows[r] = row
	}
	return Preview{Columns: cols, Rows: rows, Total: t.Len()}
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
