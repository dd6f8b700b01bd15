// Package growth implements percentile calculation against published
// growth reference tables: the LMS method for tables carrying Box-Cox
// parameters, and piecewise-linear interpolation between percentile
// breakpoints for tables that do not.
package growth

import "math"

// lmsLogEpsilon guards the log-normal branch of the LMS transform. When the
// Box-Cox power L is this close to zero the power form degenerates (division
// by L), so the limit form z = ln(value/M)/S is used instead. The threshold
// is carried over from the published reference implementations so percentile
// output matches them exactly.
const lmsLogEpsilon = 1e-4

// ZScoreFromLMS converts a measured value and an LMS parameter triple into a
// z-score. L is the Box-Cox power, M the median, and S the coefficient of
// variation (Cole, 1990). The second return is false when the parameters
// cannot produce a score: any non-finite input, M <= 0, S <= 0, or a
// non-positive value.
func ZScoreFromLMS(value, l, m, s float64) (float64, bool) {
	if !isFinite(value) || !isFinite(l) || !isFinite(m) || !isFinite(s) {
		return 0, false
	}
	if m <= 0 || s <= 0 || value <= 0 {
		return 0, false
	}

	if math.Abs(l) < lmsLogEpsilon {
		return math.Log(value/m) / s, true
	}
	return (math.Pow(value/m, l) - 1) / (l * s), true
}

// PercentileFromLMS converts a measured value and an LMS parameter triple
// into an exact percentile in [0, 100]. The second return is false when the
// parameters are unusable, which signals the caller to fall back to
// breakpoint interpolation. Due to the error of the underlying erf
// approximation the raw result can land marginally outside [0, 100]; callers
// clamp before display (see ClampPercentile).
func PercentileFromLMS(value, l, m, s float64) (float64, bool) {
	z, ok := ZScoreFromLMS(value, l, m, s)
	if !ok {
		return 0, false
	}
	return 100 * standardNormalCDF(z), true
}

// ClampPercentile restricts a percentile to [0, 100].
func ClampPercentile(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// standardNormalCDF returns Phi(z), the cumulative distribution function of
// the standard normal distribution.
func standardNormalCDF(z float64) float64 {
	return 0.5 * (1 + erf(z/math.Sqrt2))
}

// erf approximates the error function using Abramowitz & Stegun formula
// 7.1.26 (five-term polynomial, maximum absolute error 1.5e-7). The
// approximation is only valid for non-negative arguments; negative arguments
// use the identity erf(-x) = -erf(x).
func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	t := 1 / (1 + p*x)
	y := 1 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return sign * y
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
