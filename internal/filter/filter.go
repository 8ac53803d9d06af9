// Package filter selects rows of a dataset table.
//
// Every constrained dimension must hold for a row to be kept, a row holds
// a dimension when its value is any of the selected ones, "all" disables a
// dimension, and the output keeps the input's row order. An empty result
// is a valid answer.
package filter

import (
	"strconv"
	"strings"
	"time"

	"netdash/internal/dataset"
)

// All is the selection value that disables a constraint
const All = "all"

// Values is the set of accepted values of one dimension. An empty set, or
// one containing "all", accepts everything.
type Values []string

// Active reports whether v constrains anything
func (v Values) Active() bool {
	return len(v.clean()) > 0
}

// clean trims v and drops blanks. It returns nil when v accepts everything.
func (v Values) clean() []string {
	var out []string
	for _, s := range v {
		s = strings.TrimSpace(s)
		switch {
		case s == "":
			continue
		case strings.EqualFold(s, All):
			return nil
		}
		out = append(out, s)
	}
	return out
}

// Constraint keeps rows whose Column renders as one of Values
type Constraint struct {
	Column string `json:"column"`
	Values Values `json:"values"`
}

// Equals constrains column to a single value
func Equals(column, value string) Constraint {
	return Constraint{Column: column, Values: Values{value}}
}

// Active reports whether the constraint filters anything
func (c Constraint) Active() bool {
	return c.Values.Active()
}

// Apply returns the rows of t matching every active constraint. With no
// active constraint t itself is returned. A constraint on a column t does
// not have matches no row.
func Apply(t *dataset.Table, constraints ...Constraint) *dataset.Table {
	if t == nil {
		return nil
	}

	type bound struct {
		idx  int
		want []string
	}
	var active []bound
	for _, c := range constraints {
		want := c.Values.clean()
		if len(want) == 0 {
			continue
		}
		i, ok := t.ColumnIndex(c.Column)
		if !ok {
			return t.Subset(nil)
		}
		active = append(active, bound{idx: i, want: want})
	}
	if len(active) == 0 {
		return t
	}

	return t.Select(func(row dataset.Row) bool {
		for _, b := range active {
			if !matchesAny(row[b.idx].String(), b.want) {
				return false
			}
		}
		return true
	})
}

func matchesAny(cell string, want []string) bool {
	cell = strings.TrimSpace(cell)
	for _, w := range want {
		if strings.EqualFold(cell, w) {
			return true
		}
	}
	return false
}

// Selection is the user's choice on the filter dimensions
type Selection struct {
	Year       Values `json:"year"`
	Month      Values `json:"month"`
	Site       Values `json:"site"`
	Department Values `json:"department"`
	Province   Values `json:"province"`
	District   Values `json:"district"`
	Locality   Values `json:"locality"`
}

// Dimension names reported by Selection.Constraints
const (
	DimYear       = "year"
	DimMonth      = "month"
	DimSite       = "site"
	DimDepartment = "department"
	DimProvince   = "province"
	DimDistrict   = "district"
	DimLocality   = "locality"
)

// Dimensions lists every dimension name in display order
var Dimensions = []string{DimYear, DimMonth, DimSite, DimDepartment, DimProvince, DimDistrict, DimLocality}

// AllSelection selects everything
func AllSelection() Selection {
	all := func() Values { return Values{All} }
	return Selection{
		Year: all(), Month: all(), Site: all(),
		Department: all(), Province: all(), District: all(), Locality: all(),
	}
}

// Get returns the values of the named dimension
func (s Selection) Get(dim string) Values {
	switch dim {
	case DimYear:
		return s.Year
	case DimMonth:
		return s.Month
	case DimSite:
		return s.Site
	case DimDepartment:
		return s.Department
	case DimProvince:
		return s.Province
	case DimDistrict:
		return s.District
	case DimLocality:
		return s.Locality
	}
	return nil
}

// Set replaces the values of the named dimension. Unknown names are
// ignored.
func (s *Selection) Set(dim string, v Values) {
	switch dim {
	case DimYear:
		s.Year = v
	case DimMonth:
		s.Month = v
	case DimSite:
		s.Site = v
	case DimDepartment:
		s.Department = v
	case DimProvince:
		s.Province = v
	case DimDistrict:
		s.District = v
	case DimLocality:
		s.Locality = v
	}
}

var geoDims = map[dataset.GeoLevel]string{
	dataset.LevelDepartment: DimDepartment,
	dataset.LevelProvince:   DimProvince,
	dataset.LevelDistrict:   DimDistrict,
	dataset.LevelLocality:   DimLocality,
}

// Constraints maps the selection onto t's columns. Dimensions that are set
// but have no matching column in t are returned as ignored instead of
// emptying the result.
func (s Selection) Constraints(t *dataset.Table) ([]Constraint, []string) {
	var out []Constraint
	var ignored []string

	add := func(dim string, values Values, column string, ok bool) {
		c := Constraint{Column: column, Values: values}
		if !c.Active() {
			return
		}
		if !ok {
			ignored = append(ignored, dim)
			return
		}
		out = append(out, c)
	}

	add(DimYear, s.Year, dataset.ColYear, t.HasColumn(dataset.ColYear))
	add(DimMonth, normalizeMonths(s.Month), dataset.ColMonth, t.HasColumn(dataset.ColMonth))
	site, ok := t.SiteColumn()
	add(DimSite, s.Site, site, ok)
	for _, level := range dataset.GeoLevels {
		dim := geoDims[level]
		col, ok := t.GeoColumn(level)
		add(dim, s.Get(dim), col, ok)
	}

	return out, ignored
}

// ApplySelection filters t by s and returns the dimensions it ignored
func ApplySelection(t *dataset.Table, s Selection) (*dataset.Table, []string) {
	cs, ignored := s.Constraints(t)
	return Apply(t, cs...), ignored
}

// ParseMonth reads a month as a number ("1", "01") or an English name
// ("January", "jan")
func ParseMonth(s string) (time.Month, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}
		return time.Month(n), true
	}
	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return m, true
		}
	}
	return 0, false
}

// normalizeMonths turns "01" and "January" into "1" to match the numeric
// month column. Unreadable values are kept and match nothing.
func normalizeMonths(v Values) Values {
	out := make(Values, len(v))
	for i, m := range v {
		if n, ok := ParseMonth(m); ok {
			out[i] = strconv.Itoa(int(n))
		} else {
			out[i] = m
		}
	}
	return out
}
