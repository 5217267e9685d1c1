package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRound(t *testing.T) {
	tests := []struct {
		v         float64
		precision int
		expected  float64
	}{
		{-158.8915, 2, -158.89},
		{18.666, 2, 18.67},
		{37.075, 0, 37},
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1.23456, 4, 1.2346},
		{-0.001, 2, 0},
		{12, 2, 12},
		{1.5, -1, 1.5},
		{1e300, 2, 1e300},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Round(tt.v, tt.precision), "Round(%v, %d)", tt.v, tt.precision)
	}

	assert.True(t, math.IsInf(Round(math.Inf(1), 2), 1))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
	assert.False(t, math.Signbit(Round(-0.001, 2)))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "-158.89", Result(-158.8915, 2))
	assert.Equal(t, "128", Result(128.0000001, 2))
	assert.Equal(t, "20.75", Result(20.75, 2))
	assert.Equal(t, "0", Result(-0.0001, 2))
	assert.Equal(t, PosInf, Result(math.Inf(1), 2))
	assert.Equal(t, NegInf, Result(math.Inf(-1), 2))
	assert.Equal(t, NaN, Result(math.NaN(), 2))
}

func TestFixed(t *testing.T) {
	assert.Equal(t, "17.00", Fixed(17, 2))
	assert.Equal(t, "5.59", Fixed(5.5868, 2))
	assert.Equal(t, "0.1", Fixed(0.1, -1))
	assert.Equal(t, NaN, Fixed(math.NaN(), 2))
}

func TestJSONValue(t *testing.T) {
	assert.Equal(t, 3.5, JSONValue(3.5))
	assert.Equal(t, PosInf, JSONValue(math.Inf(1)))
	assert.Equal(t, NegInf, JSONValue(math.Inf(-1)))
	assert.Equal(t, NaN, JSONValue(math.NaN()))
}

func TestRoundStaysCloseProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Float64Range(-1e9, 1e9).Draw(t, "v")
		p := rapid.IntRange(0, 6).Draw(t, "precision")

		got := Round(v, p)
		if diff := math.Abs(got - v); diff > 0.5*math.Pow10(-p)+1e-6 {
			t.Fatalf("Round(%v, %d) = %v, off by %v", v, p, got, diff)
		}
		if Round(got, p) != got {
			t.Fatalf("Round(%v, %d) is not idempotent: %v", v, p, got)
		}
	})
}
