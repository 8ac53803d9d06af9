package dataset

import "strings"

// Columns added by WithGeography
const (
	ColDepartment = "department"
	ColProvince   = "province"
	ColDistrict   = "district"
	ColLocality   = "locality"
	ColLat        = "lat"
	ColLon        = "lon"
)

// GeoLevel is one level of the department > province > district >
// locality hierarchy
type GeoLevel int

const (
	LevelDepartment GeoLevel = iota
	LevelProvince
	LevelDistrict
	LevelLocality
)

// GeoLevels lists the hierarchy outermost first
var GeoLevels = []GeoLevel{LevelDepartment, LevelProvince, LevelDistrict, LevelLocality}

var geoSpellings = map[GeoLevel][]string{
	LevelDepartment: DepartmentColumns,
	LevelProvince:   {"Provincia", ColProvince, "PROVINCIA"},
	LevelDistrict:   {"Distrito", ColDistrict, "DISTRITO"},
	LevelLocality:   {"Localidad", ColLocality, "LOCALIDAD"},
}

var (
	latSpellings = []string{"Latitud (WGS 84)", "Latitud", ColLat, "latitude"}
	lonSpellings = []string{"Longitud (WGS 84)", "Longitud", ColLon, "longitude"}
)

// Column is the name WithGeography gives the level
func (l GeoLevel) Column() string {
	switch l {
	case LevelProvince:
		return ColProvince
	case LevelDistrict:
		return ColDistrict
	case LevelLocality:
		return ColLocality
	default:
		return ColDepartment
	}
}

// GeoColumn returns the table's column for level in any accepted spelling
func (t *Table) GeoColumn(level GeoLevel) (string, bool) {
	if t == nil {
		return "", false
	}
	return t.FirstColumn(geoSpellings[level]...)
}

// Coordinates returns the table's latitude and longitude columns
func (t *Table) Coordinates() (lat, lon string, ok bool) {
	if t == nil {
		return "", "", false
	}
	lat, okLat := t.FirstColumn(latSpellings...)
	lon, okLon := t.FirstColumn(lonSpellings...)
	return lat, lon, okLat && okLon
}

// WithGeography returns t with the geography of its sites resolved through
// the projects table: every hierarchy level t lacks and projects has, and
// the site coordinates. The first projects row of a site wins. t is
// returned unchanged when there is nothing to add or no site column to join
// on.
func WithGeography(t, projects *Table) *Table {
	if t == nil || projects == nil {
		return t
	}
	site, ok := t.SiteColumn()
	if !ok {
		return t
	}
	projSite, ok := projects.SiteColumn()
	if !ok {
		return t
	}

	type source struct {
		column string
		from   string
		typ    Type
	}
	var sources []source
	for _, level := range GeoLevels {
		if _, has := t.GeoColumn(level); has {
			continue
		}
		if from, ok := projects.GeoColumn(level); ok {
			sources = append(sources, source{column: level.Column(), from: from, typ: TypeString})
		}
	}
	if _, _, has := t.Coordinates(); !has {
		if lat, lon, ok := projects.Coordinates(); ok {
			sources = append(sources,
				source{column: ColLat, from: lat, typ: TypeNumber},
				source{column: ColLon, from: lon, typ: TypeNumber})
		}
	}
	if len(sources) == 0 {
		return t
	}

	rowOf := make(map[string]int, projects.Len())
	for r, v := range projects.Column(projSite) {
		key := siteKey(v.String())
		if key == "" {
			continue
		}
		if _, dup := rowOf[key]; !dup {
			rowOf[key] = r
		}
	}

	cols := make([]Column, len(sources))
	values := make([][]Value, len(sources))
	for i, src := range sources {
		cols[i] = Column{Name: src.column, Type: src.typ}
		values[i] = make([]Value, t.Len())
	}
	for r, v := range t.Column(site) {
		pr, ok := rowOf[siteKey(v.String())]
		if !ok {
			continue
		}
		for i, src := range sources {
			cell := projects.Value(pr, src.from)
			if src.typ == TypeNumber {
				cell = asNumber(cell)
			}
			values[i][r] = cell
		}
	}
	return t.WithColumns(cols, values)
}

// asNumber reads coordinates that were loaded as text
func asNumber(v Value) Value {
	if v.Type == TypeNumber || v.IsNull() {
		return v
	}
	if f, ok := ParseNumber(v.String()); ok {
		return Num(f)
	}
	return Null
}

func siteKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
