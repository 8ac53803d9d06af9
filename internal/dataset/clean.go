package dataset

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// SiteColumns are the accepted spellings of the site identifier column
var SiteColumns = []string{"Site_Name", "site_name", "SITE_NAME", "site"}

// DepartmentColumns are the accepted spellings of the department column
var DepartmentColumns = []string{"Departamento", "department", "region", "Región", "Region"}

// FindSiteColumn returns the first site column present in names
func FindSiteColumn(names []string) (string, bool) {
	for _, want := range SiteColumns {
		for _, n := range names {
			if n == want {
				return n, true
			}
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, "site") {
			return n, true
		}
	}
	return "", false
}

// SiteColumn returns the table's site column
func (t *Table) SiteColumn() (string, bool) {
	if t == nil {
		return "", false
	}
	return FindSiteColumn(t.Names())
}

// DepartmentColumn returns the table's department column
func (t *Table) DepartmentColumn() (string, bool) {
	return t.GeoColumn(LevelDepartment)
}

var nullTokens = map[string]bool{
	"": true, "nan": true, "null": true, "none": true, "n/a": true, "na": true, "#n/a": true,
}

// IsNullToken reports whether a raw cell should be read as empty
func IsNullToken(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseNumber reads numbers written with either decimal commas or
// thousands separators. "23,418.082" is 23418.082, "123,45" is 123.45 and
// "1,234,567" is 1234567.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	if !strings.ContainsFunc(s, unicode.IsDigit) {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) >= 1 && len(parts[1]) <= 3 {
			s = parts[0] + "." + parts[1]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timestampLayouts = []string{
	"Jan 2, 2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
}

// ParseTimestamp reads the timestamp formats found in network exports,
// including "Aug 18, 2025 @ 06:00:00.000". Slash dates are day first.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Replace(s, " @ ", " ", 1)
	s = strings.TrimSuffix(s, ".000")

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// looksNumeric is the strict check used for type inference; decimal commas
// and leading zeros keep a column textual so codes like "007" survive.
func looksNumeric(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	digits := strings.TrimLeft(s, "+-")
	return !(len(digits) > 1 && digits[0] == '0' && digits[1] != '.')
}
