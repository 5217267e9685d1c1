// Package format renders evaluation results for people and JSON clients.
package format

import (
	"math"
	"strconv"

	"github.com/duke-git/lancet/v2/mathutil"
)

// exactLimit is 2^53; every float64 at or above it is already an integer.
const exactLimit = 1 << 53

// Special value spellings used wherever a result leaves the process.
const (
	PosInf = "+Inf"
	NegInf = "-Inf"
	NaN    = "NaN"
)

// Round rounds v half away from zero to precision fractional digits.
// Non-finite values and negative precisions return v unchanged.
func Round(v float64, precision int) float64 {
	if precision < 0 || !IsFinite(v) || math.Abs(v) >= exactLimit {
		return v
	}
	r := mathutil.RoundToFloat(v, precision)
	if r == 0 {
		return 0 // no "-0"
	}
	return r
}

// Result formats v rounded to precision using the shortest representation,
// so 2.50 prints as 2.5 and 17.00 as 17.
func Result(v float64, precision int) string {
	if s, ok := special(v); ok {
		return s
	}
	return strconv.FormatFloat(Round(v, precision), 'f', -1, 64)
}

// Fixed formats v with exactly precision fractional digits.
func Fixed(v float64, precision int) string {
	if s, ok := special(v); ok {
		return s
	}
	if precision < 0 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(Round(v, precision), 'f', precision, 64)
}

// JSONValue returns v as-is when it is finite and its special spelling
// otherwise, since JSON has no Inf or NaN literals.
func JSONValue(v float64) any {
	if s, ok := special(v); ok {
		return s
	}
	return v
}

// IsFinite reports whether v is neither infinite nor NaN.
func IsFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func special(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return NaN, true
	case math.IsInf(v, 1):
		return PosInf, true
	case math.IsInf(v, -1):
		return NegInf, true
	}
	return "", false
}
