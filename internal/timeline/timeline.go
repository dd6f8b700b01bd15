// Package timeline routes measurements onto the correct reference curve
// segment. Preterm infants are evaluated against gestational-week-indexed
// tables until they reach 42 weeks post-menstrual age, then against the
// term tables on corrected age until two years, then on chronological age.
// The package also computes the continuous cross-reference axis that lets
// preterm and term segments plot on one timeline without a seam.
package timeline

import (
	"math"
	"time"

	"github.com/percentile-data/growth.report/internal/agecalc"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/units"
)

// Person is the engine's read-only view of a tracked child.
type Person struct {
	BirthDate             time.Time
	GestationalAgeAtBirth float64
	Sex                   refdata.Sex
}

// IsPreterm reports whether the engine treats the person as preterm. A
// gestational age of exactly 40 weeks and above is term.
func (p Person) IsPreterm() bool {
	return p.GestationalAgeAtBirth < units.TermGestationWeeks
}

// Measurement is one dated set of readings. A nil field means "not
// measured", never zero.
type Measurement struct {
	Date                time.Time
	Weight              *float64 // kg
	Height              *float64 // cm
	HeadCircumference   *float64 // cm
	ArmCircumference    *float64 // cm
	SubscapularSkinfold *float64 // mm
	TricepsSkinfold     *float64 // mm
}

// Segment identifies the reference curve family a measurement is evaluated
// against.
type Segment string

const (
	SegmentPreterm Segment = "preterm"
	SegmentTerm    Segment = "term"
)

// Placement is the routing decision for one measurement: the curve family,
// the row-lookup coordinate on that family's axis (gestational weeks for
// preterm, years for term), and the corrected age behind the decision.
type Placement struct {
	Segment   Segment
	X         float64
	Corrected agecalc.CorrectedAge
}

// Place decides which reference segment a measurement taken at the given
// date belongs to. The second return is false when a date is missing.
//
// A measurement taken before the due date always stays on the preterm
// curve at its actual gestational age; a negative corrected age must never
// be evaluated against the term tables.
func Place(person Person, at time.Time) (Placement, bool) {
	ca, ok := agecalc.Corrected(person.BirthDate, at, person.GestationalAgeAtBirth)
	if !ok {
		return Placement{}, false
	}

	if !person.IsPreterm() {
		return Placement{Segment: SegmentTerm, X: ca.ChronologicalAgeYears, Corrected: ca}, true
	}

	if ca.CorrectedAgeYears < 0 {
		return Placement{Segment: SegmentPreterm, X: math.Round(ca.GestationalAge), Corrected: ca}, true
	}

	if ca.GestationalAge <= units.PretermMaxGestationWeeks {
		x := math.Round(ca.GestationalAge)
		if x < units.PretermMinGestationWeeks {
			x = units.PretermMinGestationWeeks
		}
		if x > units.PretermMaxGestationWeeks {
			x = units.PretermMaxGestationWeeks
		}
		return Placement{Segment: SegmentPreterm, X: x, Corrected: ca}, true
	}

	// Corrected age applies until two years per clinical convention, then
	// chronological age takes over.
	x := ca.CorrectedAgeYears
	if x > units.CorrectedAgeLimitYears {
		x = ca.ChronologicalAgeYears
	}
	return Placement{Segment: SegmentTerm, X: x, Corrected: ca}, true
}

// AxisWeeks maps a corrected age onto the continuous cross-reference axis
// in post-menstrual weeks. At or before 42 weeks the post-menstrual age is
// used directly; beyond it the corrected age extends the same scale from
// the 42-week seam, so consecutive points never show a gap or overlap
// there.
func AxisWeeks(ca agecalc.CorrectedAge) float64 {
	if ca.GestationalAge <= units.PretermMaxGestationWeeks {
		return ca.GestationalAge
	}
	seamYears := (units.PretermMaxGestationWeeks - units.TermGestationWeeks) / units.WeeksPerYear
	return units.PretermMaxGestationWeeks + (ca.CorrectedAgeYears-seamYears)*units.WeeksPerYear
}

// Coordinate places one measurement on a chart axis. Preterm children plot
// on continuous post-menstrual weeks, term children on chronological years.
type Coordinate struct {
	XAxisValue     float64  `json:"xAxisValue"`
	IsPreemie      bool     `json:"isPreemie"`
	GestationalAge *float64 `json:"gestationalAge,omitempty"`
}

// StitchedCoordinate computes the chart placement for a measurement taken
// at the given date. The second return is false when a date is missing.
func StitchedCoordinate(person Person, at time.Time) (Coordinate, bool) {
	ca, ok := agecalc.Corrected(person.BirthDate, at, person.GestationalAgeAtBirth)
	if !ok {
		return Coordinate{}, false
	}

	if !person.IsPreterm() {
		return Coordinate{XAxisValue: ca.ChronologicalAgeYears}, true
	}

	pma := ca.GestationalAge
	return Coordinate{
		XAxisValue:     AxisWeeks(ca),
		IsPreemie:      true,
		GestationalAge: &pma,
	}, true
}
