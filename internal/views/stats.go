package views

import (
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Summary holds descriptive statistics of a sample
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Std    float64
}

// Summarize describes values. Std is the sample standard deviation and is
// NaN for fewer than two values; every field is NaN for an empty sample.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Mean, s.Median, s.Min, s.Max, s.Std = nan, nan, nan, nan, nan
		return s
	}
	s.Mean, _ = stats.Mean(values)
	s.Median, _ = stats.Median(values)
	s.Min, _ = stats.Min(values)
	s.Max, _ = stats.Max(values)
	if len(values) > 1 {
		s.Std, _ = stats.StandardDeviationSample(values)
	} else {
		s.Std = math.NaN()
	}
	return s
}

// mean returns NaN for an empty slice
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m, _ := stats.Mean(values)
	return m
}

// normalize rescales finite values in place to 0..100. A constant sample
// becomes all zeros.
func normalize(values []float64) {
	var finite []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return
	}
	lo, hi := floats.Min(finite), floats.Max(finite)
	if hi == lo {
		for i, v := range values {
			if !math.IsNaN(v) {
				values[i] = 0
			}
		}
		return
	}
	floats.AddConst(-lo, values)
	floats.Scale(100/(hi-lo), values)
}

// scale multiplies every value by f
func scale(values []float64, f float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	floats.Scale(f, out)
	return out
}

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatInt(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatInt(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

// ranked is a key with a score, used for top-N charts
type ranked struct {
	key   string
	score float64
	count int
}

// topN sorts by score descending, then key, and keeps n entries
func topN(items []ranked, n int) []ranked {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].key < items[j].key
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}
