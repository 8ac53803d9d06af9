package dataset

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed record in an upload
type ParseError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError is a column whose values do not have the declared type
type FieldError struct {
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// SchemaError reports columns a kind needs but the upload lacks or cannot
// be read as the declared type
type SchemaError struct {
	Kind    Kind         `json:"kind"`
	Missing []string     `json:"missing,omitempty"`
	Invalid []FieldError `json:"invalid,omitempty"`
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	for _, f := range e.Invalid {
		parts = append(parts, fmt.Sprintf("column %s: %s", f.Column, f.Reason))
	}
	return fmt.Sprintf("%s schema: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *SchemaError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}
