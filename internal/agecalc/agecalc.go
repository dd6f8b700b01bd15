// Package agecalc computes chronological, corrected, and post-menstrual
// ages from birth and measurement dates. All functions are pure; callers
// validate date ordering at the boundary where raw input enters.
package agecalc

import (
	"time"

	"github.com/percentile-data/growth.report/internal/units"
)

// AgeBreakdown is a chronological age expressed in the three granularities
// the reference tables index by.
type AgeBreakdown struct {
	Days   float64 `json:"days"`
	Months float64 `json:"months"`
	Years  float64 `json:"years"`
}

// CorrectedAge describes where a measurement falls on a child's timeline
// once prematurity is accounted for. CorrectedAgeWeeks is negative for
// measurements taken before the due date; such points are preserved, not
// discarded. GestationalAge is the post-menstrual age at the measurement in
// weeks, i.e. gestational age at birth plus elapsed weeks.
type CorrectedAge struct {
	ChronologicalAgeYears float64 `json:"chronologicalAgeYears"`
	ChronologicalAgeWeeks float64 `json:"chronologicalAgeWeeks"`
	CorrectedAgeYears     float64 `json:"correctedAgeYears"`
	CorrectedAgeWeeks     float64 `json:"correctedAgeWeeks"`
	GestationalAge        float64 `json:"gestationalAge"`
	IsPreterm             bool    `json:"isPreterm"`
}

// Age returns the chronological age between birth and the measurement date.
// The second return is false when either date is missing (zero).
func Age(birth, at time.Time) (AgeBreakdown, bool) {
	if birth.IsZero() || at.IsZero() {
		return AgeBreakdown{}, false
	}

	days := at.Sub(birth).Hours() / 24
	years := units.DaysToYears(days)

	return AgeBreakdown{
		Days:   days,
		Months: units.YearsToMonths(years),
		Years:  years,
	}, true
}

// Corrected computes the corrected (adjusted) age for a measurement given
// the gestational age at birth in completed weeks. For a term birth
// (gestationalAgeAtBirth >= 40) the corrected age equals the chronological
// age. The second return is false when either date is missing.
func Corrected(birth, at time.Time, gestationalAgeAtBirth float64) (CorrectedAge, bool) {
	age, ok := Age(birth, at)
	if !ok {
		return CorrectedAge{}, false
	}

	chronologicalWeeks := units.DaysToWeeks(age.Days)
	weeksPremature := units.TermGestationWeeks - gestationalAgeAtBirth
	correctedWeeks := chronologicalWeeks - weeksPremature
	correctedYears := units.WeeksToYears(correctedWeeks)
	postMenstrualWeeks := gestationalAgeAtBirth + chronologicalWeeks

	return CorrectedAge{
		ChronologicalAgeYears: age.Years,
		ChronologicalAgeWeeks: chronologicalWeeks,
		CorrectedAgeYears:     correctedYears,
		CorrectedAgeWeeks:     correctedWeeks,
		GestationalAge:        postMenstrualWeeks,
		IsPreterm:             correctedYears < 0 || postMenstrualWeeks < units.TermGestationWeeks,
	}, true
}
