// Package units provides shared constants and conversions for
// anthropometric measurements and age arithmetic.
package units

// Calendar constants. Ages are derived from day counts using the average
// Gregorian year so that week- and year-based coordinates stay consistent
// with each other.
const (
	DaysPerYear   = 365.25
	DaysPerWeek   = 7.0
	MonthsPerYear = 12.0
	WeeksPerYear  = 52.1775
)

// Gestational constants in completed weeks.
const (
	TermGestationWeeks       = 40.0
	PretermMinGestationWeeks = 22.0
	PretermMaxGestationWeeks = 42.0
)

// CorrectedAgeLimitYears is the age at which corrected age ceases to apply
// and chronological age is used instead. Clinical convention, not a
// numerical artifact.
const CorrectedAgeLimitYears = 2.0

// WeightForLengthMaxHeightCm is the crossover point between weight-for-length
// (recumbent) and weight-for-height (standing) reference tables.
const WeightForLengthMaxHeightCm = 85.0

// GramsPerKilogram converts preterm reference weights, which are published
// in grams, to the kilograms used everywhere else.
const GramsPerKilogram = 1000.0

// Measurement unit labels as stored and served.
const (
	Kilograms   = "kg"
	Centimetres = "cm"
	Millimetres = "mm"
)

// DaysToYears converts a day count to fractional years.
func DaysToYears(days float64) float64 {
	return days / DaysPerYear
}

// DaysToWeeks converts a day count to fractional weeks.
func DaysToWeeks(days float64) float64 {
	return days / DaysPerWeek
}

// WeeksToYears converts fractional weeks to fractional years.
func WeeksToYears(weeks float64) float64 {
	return weeks / WeeksPerYear
}

// YearsToWeeks converts fractional years to fractional weeks.
func YearsToWeeks(years float64) float64 {
	return years * WeeksPerYear
}

// MonthsToYears converts a month index to fractional years.
func MonthsToYears(months float64) float64 {
	return months / MonthsPerYear
}

// YearsToMonths converts fractional years to fractional months.
func YearsToMonths(years float64) float64 {
	return years * MonthsPerYear
}

// GramsToKilograms converts grams to kilograms.
func GramsToKilograms(grams float64) float64 {
	return grams / GramsPerKilogram
}
