package dataset

import (
	"sort"
	"strings"
	"time"
)

// Column describes one table column
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Row holds cells aligned with Table.Columns
type Row []Value

// Table is an uploaded dataset after schema validation. Tables are
// immutable; derived tables share Row slices with their source.
type Table struct {
	Kind        Kind
	Source      string
	Fingerprint string
	LoadedAt    time.Time
	Columns     []Column
	Rows        []Row
	Warnings    []string
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex finds a column, preferring an exact match over a
// case-insensitive one
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// FirstColumn returns the first candidate present in the table, using the
// table's own spelling
func (t *Table) FirstColumn(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if i, ok := t.ColumnIndex(c); ok {
			return t.Columns[i].Name, true
		}
	}
	return "", false
}

// ColumnType returns the type of the named column
func (t *Table) ColumnType(name string) Type {
	if i, ok := t.ColumnIndex(name); ok {
		return t.Columns[i].Type
	}
	return TypeNull
}

// Value returns the cell at row for the named column
func (t *Table) Value(row int, column string) Value {
	i, ok := t.ColumnIndex(column)
	if !ok || row < 0 || row >= len(t.Rows) {
		return Null
	}
	return t.Rows[row][i]
}

// Column returns every cell of the named column
func (t *Table) Column(name string) []Value {
	i, ok := t.ColumnIndex(name)
	if !ok {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Floats returns the non-null numbers of the named column
func (t *Table) Floats(name string) []float64 {
	var out []float64
	for _, v := range t.Column(name) {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Distinct returns the sorted distinct non-empty renderings of a column.
// Numbers and times sort by value, strings lexically.
func (t *Table) Distinct(name string) []string {
	seen := make(map[string]Value)
	for _, v := range t.Column(name) {
		s := v.String()
		if v.IsNull() || strings.TrimSpace(s) == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = v
		}
	}

	vals := make([]Value, 0, len(seen))
	for _, v := range seen {
		vals = append(vals, v)
	}
	sort.Slice(vals, func(i, j int) bool {
		if vals[i].Type == vals[j].Type && vals[i].Type != TypeString {
			return vals[i].Less(vals[j])
		}
		return vals[i].String() < vals[j].String()
	})

	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

// derive copies metadata into a table holding rows
func (t *Table) derive(columns []Column, rows []Row) *Table {
	return &Table{
		Kind:        t.Kind,
		Source:      t.Source,
		Fingerprint: t.Fingerprint,
		LoadedAt:    t.LoadedAt,
		Columns:     columns,
		Rows:        rows,
		Warnings:    t.Warnings,
	}
}

// Subset returns a table holding the given rows in the given order
func (t *Table) Subset(indices []int) *Table {
	rows := make([]Row, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, t.Rows[i])
	}
	return t.derive(t.Columns, rows)
}

// Select returns the rows for which keep returns true, in order
func (t *Table) Select(keep func(Row) bool) *Table {
	var idx []int
	for i, row := range t.Rows {
		if keep(row) {
			idx = append(idx, i)
		}
	}
	return t.Subset(idx)
}

// WithColumn returns a copy of the table with name set to values. An
// existing column of the same name is replaced in place.
func (t *Table) WithColumn(name string, typ Type, values []Value) *Table {
	return t.WithColumns([]Column{{Name: name, Type: typ}}, [][]Value{values})
}

// WithColumns is WithColumn for several columns at once; values[i] holds
// the cells of cols[i]
func (t *Table) WithColumns(cols []Column, values [][]Value) *Table {
	columns := make([]Column, len(t.Columns), len(t.Columns)+len(cols))
	copy(columns, t.Columns)

	positions := make([]int, len(cols))
	for i, col := range cols {
		pos := -1
		for j, c := range columns {
			if strings.EqualFold(c.Name, col.Name) {
				pos = j
				break
			}
		}
		if pos >= 0 {
			columns[pos] = Column{Name: columns[pos].Name, Type: col.Type}
		} else {
			pos = len(columns)
			columns = append(columns, col)
		}
		positions[i] = pos
	}

	rows := make([]Row, len(t.Rows))
	for r, src := range t.Rows {
		row := make(Row, len(columns))
		copy(row, src)
		for i, pos := range positions {
			if r < len(values[i]) {
				row[pos] = values[i][r]
			} else {
				row[pos] = Null
			}
		}
		rows[r] = row
	}
	return t.derive(columns, rows)
}
