package dataset

import (
	"fmt"
	"strings"
	"unicode"
)

// Raw is an upload after CSV decoding and before typing
type Raw struct {
	Source      string
	Fingerprint string
	Header      []string
	Records     [][]string
}

// Schema declares the columns a kind needs and how to type them. Column
// names match case-insensitively.
type Schema struct {
	Kind Kind

	// Required columns missing from an upload reject it
	Required    []string
	RequireSite bool

	// Expected columns missing from an upload become warnings
	Expected   []string
	ExpectSite bool

	// Metrics lists optional numeric columns of which at least one should
	// be present
	Metrics []string

	Numeric  []string
	Times    []string
	DayFirst []string

	// Upper and Lower normalise the case of string cells
	Upper []string
	Lower []string

	// LowerHeaders lower-cases every column name before validation
	LowerHeaders bool

	// Hierarchy must have at least MinHierarchy of its columns present
	Hierarchy    []string
	MinHierarchy int

	// DeriveTime adds calendar columns computed from start_time
	DeriveTime bool
}

// Metric columns of the performance kind
var PerformanceMetrics = []string{
	"dl_data_traffic_mb", "ul_data_traffic_mb", "enodeb_dl_tgput_mb",
	"lte_dl_cell_tgput_mb", "lte_ul_cell_tgput_mb", "lte_tu_prb_dl",
	"average_number_user", "enodeb_ul_tgput_mb", "latency",
	"tcp_pckt_loss_ratio", "voice_traffic",
}

// Metric columns of the quality kind
var QualityMetrics = []string{
	"lte_rrc_setup_suc", "lte_rrc_attempt", "fails_rrc_setup", "lte_rrc_sr",
	"init_e_rab_suc_setup", "add_e_rab_suc_setup", "add_e_rab_setup_att",
	"init_e_rab_setup_att", "lte_e_rab_sr", "lte_call_drop",
	"lte_call_attempt", "lte_cdr",
}

// ProvisionHierarchy is the drill-down order of provision tables
var ProvisionHierarchy = []string{"Departamento", "Provincia", "Distrito", "Localidad"}

var geoColumns = []string{"region", "provincia", "distrito", "localidad", "departamento"}

// Derived calendar columns
const (
	ColStartTime = "start_time"
	ColEndTime   = "end_time"
	ColHour      = "hour"
	ColDate      = "date"
	ColDayOfWeek = "day_of_week"
	ColMonth     = "month"
	ColYear      = "year"
	ColDuration  = "duration_minutes"
)

var schemas = map[Kind]Schema{
	Alarms: {
		Kind:         Alarms,
		Required:     []string{ColStartTime},
		Expected:     []string{ColEndTime, "alarm_name", "alarm_status"},
		ExpectSite:   true,
		Times:        []string{ColStartTime, ColEndTime},
		Upper:        geoColumns,
		Lower:        []string{"alarm_status"},
		LowerHeaders: true,
		DeriveTime:   true,
	},
	Performance: {
		Kind:       Performance,
		Required:   []string{ColStartTime},
		ExpectSite: true,
		Metrics:    PerformanceMetrics,
		Numeric:    PerformanceMetrics,
		Times:      []string{ColStartTime},
		DeriveTime: true,
	},
	Quality: {
		Kind:       Quality,
		Required:   []string{ColStartTime},
		ExpectSite: true,
		Metrics:    QualityMetrics,
		Numeric:    QualityMetrics,
		Times:      []string{ColStartTime},
		DeriveTime: true,
	},
	Availability: {
		Kind:       Availability,
		Required:   []string{ColStartTime},
		Expected:   []string{"cell_serv_time"},
		ExpectSite: true,
		Numeric:    []string{"cell_serv_time"},
		Times:      []string{ColStartTime},
		DeriveTime: true,
	},
	Configuration: {
		Kind:       Configuration,
		ExpectSite: true,
	},
	Provision: {
		Kind:         Provision,
		Hierarchy:    ProvisionHierarchy,
		MinHierarchy: 2,
		Upper:        ProvisionHierarchy,
		DayFirst:     []string{"Fecha_Activacion"},
	},
	Projects: {
		Kind:        Projects,
		RequireSite: true,
		Expected:    []string{"Departamento", "Provincia", "Distrito", "Localidad"},
		Numeric:     []string{"lat", "lon"},
	},
}

// SchemaFor returns the schema of kind
func SchemaFor(kind Kind) (Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

func containsFold(list []string, name string) bool {
	for _, s := range list {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Validate types raw cells according to the schema. Missing required
// columns and unreadable time columns produce a *SchemaError; missing
// expected columns are recorded as table warnings.
func (s Schema) Validate(raw *Raw) (*Table, error) {
	header := make([]string, len(raw.Header))
	for i, h := range raw.Header {
		h = strings.TrimSpace(h)
		if s.LowerHeaders {
			h = strings.ToLower(h)
		}
		header[i] = h
	}

	serr := &SchemaError{Kind: s.Kind}
	var warnings []string

	for _, req := range s.Required {
		if !containsFold(header, req) {
			serr.Missing = append(serr.Missing, req)
		}
	}
	_, hasSite := FindSiteColumn(header)
	if s.RequireSite && !hasSite {
		serr.Missing = append(serr.Missing, "Site_Name")
	}
	if s.MinHierarchy > 0 {
		n := 0
		for _, h := range s.Hierarchy {
			if containsFold(header, h) {
				n++
			}
		}
		if n < s.MinHierarchy {
			serr.Missing = append(serr.Missing,
				fmt.Sprintf("at least %d of %s", s.MinHierarchy, strings.Join(s.Hierarchy, ", ")))
		}
	}

	for _, exp := range s.Expected {
		if !containsFold(header, exp) {
			warnings = append(warnings, fmt.Sprintf("column %s is missing; dependent charts are omitted", exp))
		}
	}
	if s.ExpectSite && !hasSite {
		warnings = append(warnings, "no site column (Site_Name) found; per-site charts are omitted")
	}
	if len(s.Metrics) > 0 {
		found := false
		for _, m := range s.Metrics {
			if containsFold(header, m) {
				found = true
				break
			}
		}
		if !found {
			warnings = append(warnings, "none of the known metric columns are present")
		}
	}

	columns := make([]Column, len(header))
	rows := make([]Row, len(raw.Records))
	for r := range rows {
		rows[r] = make(Row, len(header))
	}

	for c, name := range header {
		col := Column{Name: name, Type: TypeString}
		switch {
		case containsFold(s.Times, name) || containsFold(s.DayFirst, name):
			col.Type = TypeTime
			if fe := typeTimes(raw.Records, c, rows); fe != "" {
				serr.Invalid = append(serr.Invalid, FieldError{Column: name, Reason: fe})
			}
		case containsFold(s.Numeric, name):
			col.Type = TypeNumber
			typeNumbers(raw.Records, c, rows)
		default:
			col.Type = typeInferred(raw.Records, c, rows, s.caseFor(name), !isIdentifier(name))
		}
		columns[c] = col
	}

	if !serr.empty() {
		return nil, serr
	}

	t := &Table{
		Kind:        s.Kind,
		Source:      raw.Source,
		Fingerprint: raw.Fingerprint,
		Columns:     columns,
		Rows:        rows,
		Warnings:    warnings,
	}
	if s.DeriveTime {
		t = DeriveCalendar(t)
	}
	return t, nil
}

func cell(records [][]string, r, c int) string {
	if c < len(records[r]) {
		return strings.TrimSpace(records[r][c])
	}
	return ""
}

func typeTimes(records [][]string, c int, rows []Row) string {
	nonEmpty, parsed := 0, 0
	for r := range records {
		s := cell(records, r, c)
		if IsNullToken(s) {
			continue
		}
		nonEmpty++
		if t, ok := ParseTimestamp(s); ok {
			rows[r][c] = TimeValue(t)
			parsed++
		}
	}
	if nonEmpty > 0 && parsed == 0 {
		return "no value could be read as a timestamp"
	}
	return ""
}

func typeNumbers(records [][]string, c int, rows []Row) {
	for r := range records {
		if f, ok := ParseNumber(cell(records, r, c)); ok {
			rows[r][c] = Num(f)
		}
	}
}

type caseRule int

const (
	keepCase caseRule = iota
	upperCase
	lowerCase
)

func (s Schema) caseFor(name string) caseRule {
	switch {
	case containsFold(s.Upper, name):
		return upperCase
	case containsFold(s.Lower, name):
		return lowerCase
	default:
		return keepCase
	}
}

// isIdentifier reports columns that hold codes and must stay textual
func isIdentifier(name string) bool {
	if _, ok := FindSiteColumn([]string{name}); ok {
		return true
	}
	tokens := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		switch tok {
		case "id", "name", "code", "cell", "site":
			return true
		}
	}
	return false
}

// typeInferred stores strings, or numbers when every non-empty cell is
// strictly numeric
func typeInferred(records [][]string, c int, rows []Row, rule caseRule, allowNumeric bool) Type {
	numeric := allowNumeric
	seen := false
	for r := range records {
		s := cell(records, r, c)
		if IsNullToken(s) {
			continue
		}
		seen = true
		if numeric && !looksNumeric(s) {
			numeric = false
		}
	}

	if numeric && seen {
		for r := range records {
			if f, ok := ParseNumber(cell(records, r, c)); ok {
				rows[r][c] = Num(f)
			}
		}
		return TypeNumber
	}

	for r := range records {
		s := cell(records, r, c)
		if IsNullToken(s) {
			continue
		}
		switch rule {
		case upperCase:
			s = strings.ToUpper(s)
		case lowerCase:
			s = strings.ToLower(s)
		}
		rows[r][c] = Str(s)
	}
	return TypeString
}

// DeriveCalendar adds hour, date, day_of_week, month and year columns from
// start_time, and duration_minutes when end_time is present
func DeriveCalendar(t *Table) *Table {
	if t.ColumnType(ColStartTime) != TypeTime {
		return t
	}
	start := t.Column(ColStartTime)

	hour := make([]Value, len(start))
	date := make([]Value, len(start))
	dow := make([]Value, len(start))
	month := make([]Value, len(start))
	year := make([]Value, len(start))
	for i, v := range start {
		if v.Type != TypeTime {
			continue
		}
		hour[i] = Num(float64(v.Time.Hour()))
		date[i] = Str(v.Time.Format("2006-01-02"))
		dow[i] = Str(v.Time.Weekday().String())
		month[i] = Num(float64(v.Time.Month()))
		year[i] = Num(float64(v.Time.Year()))
	}

	cols := []Column{
		{Name: ColHour, Type: TypeNumber},
		{Name: ColDate, Type: TypeString},
		{Name: ColDayOfWeek, Type: TypeString},
		{Name: ColMonth, Type: TypeNumber},
		{Name: ColYear, Type: TypeNumber},
	}
	values := [][]Value{hour, date, dow, month, year}

	if t.ColumnType(ColEndTime) == TypeTime {
		end := t.Column(ColEndTime)
		dur := make([]Value, len(start))
		for i := range start {
			if start[i].Type == TypeTime && end[i].Type == TypeTime {
				dur[i] = Num(end[i].Time.Sub(start[i].Time).Minutes())
			}
		}
		cols = append(cols, Column{Name: ColDuration, Type: TypeNumber})
		values = append(values, dur)
	}
	return t.WithColumns(cols, values)
}
