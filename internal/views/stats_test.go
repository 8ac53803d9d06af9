package views

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5, s.Mean, 1e-9)
	assert.InDelta(t, 4.5, s.Median, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, 2.138, s.Std, 1e-3)

	one := Summarize([]float64{3})
	assert.True(t, math.IsNaN(one.Std))

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestNormalize(t *testing.T) {
	values := []float64{10, math.NaN(), 20, 15}
	normalize(values)
	assert.Equal(t, 0.0, values[0])
	assert.True(t, math.IsNaN(values[1]))
	assert.Equal(t, 100.0, values[2])
	assert.Equal(t, 50.0, values[3])

	flat := []float64{7, 7}
	normalize(flat)
	assert.Equal(t, []float64{0, 0}, flat)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", formatInt(1234567))
	assert.Equal(t, "999", formatInt(999))
	assert.Equal(t, "-1,000", formatInt(-1000))
	assert.Equal(t, "N/A", formatFloat(math.NaN(), 1))
	assert.Equal(t, "2.50", formatFloat(2.5, 2))
}

func TestSeriesEncodesGapsAsNull(t *testing.T) {
	raw, err := json.Marshal(Series{Name: "A", Values: []float64{1, math.NaN(), 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"A","values":[1,null,3]}`, string(raw))
}

func TestTopN(t *testing.T) {
	got := topN([]ranked{{key: "b", score: 2}, {key: "a", score: 2}, {key: "c", score: 5}}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].key)
	assert.Equal(t, "a", got[1].key, "ties break by key")
}
