package filter

import "netdash/internal/dataset"

// Controls are the choices offered for each filter dimension
type Controls struct {
	Years       []string `json:"years"`
	Months      []string `json:"months"`
	Sites       []string `json:"sites"`
	Departments []string `json:"departments"`
	Provinces   []string `json:"provinces"`
	Districts   []string `json:"districts"`
	Localities  []string `json:"localities"`
}

// Options lists the distinct values present in t for each dimension
func Options(t *dataset.Table) Controls {
	return OptionsFor(t, Selection{})
}

// OptionsFor is Options with the geography levels cascading: each level
// only offers values found under the selection of the levels above it.
func OptionsFor(t *dataset.Table, s Selection) Controls {
	var c Controls
	if t == nil {
		return c
	}
	c.Years = t.Distinct(dataset.ColYear)
	c.Months = t.Distinct(dataset.ColMonth)
	if site, ok := t.SiteColumn(); ok {
		c.Sites = t.Distinct(site)
	}

	levels := []*[]string{&c.Departments, &c.Provinces, &c.Districts, &c.Localities}
	scope := t
	for i, level := range dataset.GeoLevels {
		col, ok := t.GeoColumn(level)
		if !ok {
			continue
		}
		*levels[i] = scope.Distinct(col)
		scope = Apply(scope, Constraint{Column: col, Values: s.Get(geoDims[level])})
	}
	return c
}
