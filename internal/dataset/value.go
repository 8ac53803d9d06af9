package dataset

import (
	"strconv"
	"time"
)

// Type is the type of a cell or column
type Type int

const (
	TypeNull Type = iota
	TypeString
	TypeNumber
	TypeTime
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeTime:
		return "time"
	default:
		return "null"
	}
}

// TimeLayout is how time values are rendered
const TimeLayout = "2006-01-02 15:04:05"

// Value is a single typed cell
type Value struct {
	Type Type
	Str  string
	Num  float64
	Time time.Time
}

// Null is the empty cell
var Null = Value{}

func Str(s string) Value          { return Value{Type: TypeString, Str: s} }
func Num(f float64) Value         { return Value{Type: TypeNumber, Num: f} }
func TimeValue(t time.Time) Value { return Value{Type: TypeTime, Time: t} }

// IsNull reports whether the cell is empty
func (v Value) IsNull() bool { return v.Type == TypeNull }

// Float returns the numeric value when v is a number
func (v Value) Float() (float64, bool) {
	if v.Type != TypeNumber {
		return 0, false
	}
	return v.Num, true
}

// String renders v for display and for filter matching. Integral numbers
// have no decimals, so a year renders as "2025".
func (v Value) String() string {
	switch v.Type {
	case TypeString:
		return v.Str
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeTime:
		return v.Time.Format(TimeLayout)
	default:
		return ""
	}
}

// Less orders values of the same type; nulls sort first
func (v Value) Less(o Value) bool {
	if v.Type != o.Type {
		return v.Type < o.Type
	}
	switch v.Type {
	case TypeNumber:
		return v.Num < o.Num
	case TypeTime:
		return v.Time.Before(o.Time)
	default:
		return v.Str < o.Str
	}
}
