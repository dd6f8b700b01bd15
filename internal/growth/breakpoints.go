package growth

import "fmt"

// Sentinels returned when a value falls outside the published percentile
// range. The reference tables bottom out at the 3rd and top out at the 97th
// percentile, so nothing more precise can be interpolated out there.
const (
	BelowRange = "< 3rd"
	AboveRange = "> 97th"
)

// Breakpoints is the full set of percentile columns published by the WHO and
// CDC reference tables after normalization.
type Breakpoints struct {
	P3  float64
	P15 float64
	P25 float64
	P50 float64
	P75 float64
	P85 float64
	P97 float64
}

// rankedValue pairs a percentile rank with the measurement value published
// for that rank.
type rankedValue struct {
	rank  float64
	value float64
}

// PercentileFromBreakpoints interpolates a percentile label for value from
// the seven published breakpoints. It is the fallback used when a reference
// row carries no usable LMS triple.
func PercentileFromBreakpoints(value float64, bp Breakpoints) string {
	return interpolateRank(value, []rankedValue{
		{3, bp.P3},
		{15, bp.P15},
		{25, bp.P25},
		{50, bp.P50},
		{75, bp.P75},
		{85, bp.P85},
		{97, bp.P97},
	})
}

// PercentileFromSparseBreakpoints interpolates a percentile label from a
// three-point table (3rd, 50th, 97th), the shape published for preterm
// references. The intermediate breakpoints do not exist for those sources
// and are never consulted.
func PercentileFromSparseBreakpoints(value, p3, p50, p97 float64) string {
	return interpolateRank(value, []rankedValue{
		{3, p3},
		{50, p50},
		{97, p97},
	})
}

// interpolateRank walks consecutive breakpoint intervals and linearly
// interpolates the rank within the first interval containing value. Values
// outside the published range map to the sentinels. A value equal to a
// breakpoint returns that breakpoint's rank exactly, and a zero-width
// interval (equal published values) resolves to its lower bound rather than
// dividing by zero.
func interpolateRank(value float64, points []rankedValue) string {
	if value < points[0].value {
		return BelowRange
	}
	if value > points[len(points)-1].value {
		return AboveRange
	}

	for i := 0; i < len(points)-1; i++ {
		lo, hi := points[i], points[i+1]
		if value > hi.value {
			continue
		}
		if hi.value == lo.value {
			return FormatPercentile(lo.rank)
		}
		frac := (value - lo.value) / (hi.value - lo.value)
		return FormatPercentile(lo.rank + frac*(hi.rank-lo.rank))
	}

	return FormatPercentile(points[len(points)-1].rank)
}

// FormatPercentile renders a numeric percentile as the display label used
// throughout the system, e.g. "50.0th".
func FormatPercentile(p float64) string {
	return fmt.Sprintf("%.1fth", p)
}
