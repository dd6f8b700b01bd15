package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/percentile-data/growth.report/internal/agecalc"
	"github.com/percentile-data/growth.report/internal/refdata"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func termBoy(birth time.Time) Person {
	return Person{BirthDate: birth, GestationalAgeAtBirth: 40, Sex: refdata.SexBoys}
}

func pretermBoy(birth time.Time, weeks float64) Person {
	return Person{BirthDate: birth, GestationalAgeAtBirth: weeks, Sex: refdata.SexBoys}
}

func TestPlaceTermPerson(t *testing.T) {
	birth := date(2024, time.January, 1)
	person := termBoy(birth)

	placement, ok := Place(person, birth.AddDate(0, 0, 84))
	if !ok {
		t.Fatal("Place returned ok=false for valid dates")
	}
	if placement.Segment != SegmentTerm {
		t.Fatalf("term person routed to %q", placement.Segment)
	}
	if placement.X != placement.Corrected.ChronologicalAgeYears {
		t.Fatalf("term X = %v, want chronological years %v",
			placement.X, placement.Corrected.ChronologicalAgeYears)
	}
}

func TestPlacePretermBeforeDueDate(t *testing.T) {
	// Born at 28 weeks, measured 4 weeks later: still 8 weeks before the
	// due date. This must route to the preterm curve, never the term one.
	birth := date(2024, time.January, 1)
	person := pretermBoy(birth, 28)

	placement, ok := Place(person, birth.AddDate(0, 0, 28))
	if !ok {
		t.Fatal("Place returned ok=false for valid dates")
	}
	if placement.Segment != SegmentPreterm {
		t.Fatalf("measurement before due date routed to %q, want preterm", placement.Segment)
	}
	if placement.X != 32 {
		t.Fatalf("preterm X = %v, want 32 (post-menstrual weeks)", placement.X)
	}
	if placement.Corrected.CorrectedAgeWeeks >= 0 {
		t.Fatalf("corrected weeks = %v, want negative", placement.Corrected.CorrectedAgeWeeks)
	}
}

func TestPlacePretermNeverTermWhileCorrectedNegative(t *testing.T) {
	// Sweep the whole before-due-date window for an extremely preterm
	// infant: all of it belongs to the preterm segment.
	birth := date(2024, time.January, 1)
	person := pretermBoy(birth, 24)

	for days := 0; days <= 111; days += 7 { // due date is day 112
		placement, ok := Place(person, birth.AddDate(0, 0, days))
		if !ok {
			t.Fatalf("day %d: Place returned ok=false", days)
		}
		if placement.Segment != SegmentPreterm {
			t.Fatalf("day %d: corrected age %v routed to %q",
				days, placement.Corrected.CorrectedAgeWeeks, placement.Segment)
		}
	}
}

func TestPlacePretermCatchupWindow(t *testing.T) {
	// A 32-weeker is past the due date but at most 42 weeks post-menstrual
	// until 10 chronological weeks old.
	birth := date(2024, time.January, 1)
	person := pretermBoy(birth, 32)

	placement, ok := Place(person, birth.AddDate(0, 0, 56)) // 8 weeks, PMA 40
	if !ok {
		t.Fatal("Place returned ok=false")
	}
	if placement.Segment != SegmentPreterm || placement.X != 40 {
		t.Fatalf("PMA 40 placement = %+v, want preterm at 40", placement)
	}

	placement, _ = Place(person, birth.AddDate(0, 0, 70)) // 10 weeks, PMA 42
	if placement.Segment != SegmentPreterm || placement.X != 42 {
		t.Fatalf("PMA 42 placement = %+v, want preterm at 42", placement)
	}

	placement, _ = Place(person, birth.AddDate(0, 0, 77)) // 11 weeks, PMA 43
	if placement.Segment != SegmentTerm {
		t.Fatalf("PMA 43 still routed to %q", placement.Segment)
	}
	if placement.X != placement.Corrected.CorrectedAgeYears {
		t.Fatalf("term X = %v, want corrected years %v",
			placement.X, placement.Corrected.CorrectedAgeYears)
	}
}

func TestPlacePretermRoundsGestationalWeeks(t *testing.T) {
	// 25 days old at 28 weeks gestation: PMA 31.57 rounds to row 32.
	birth := date(2024, time.January, 1)
	placement, ok := Place(pretermBoy(birth, 28), birth.AddDate(0, 0, 25))
	if !ok {
		t.Fatal("Place returned ok=false")
	}
	if placement.X != 32 {
		t.Fatalf("X = %v, want rounded week 32", placement.X)
	}
}

func TestPlacePretermCorrectedAgeLimit(t *testing.T) {
	birth := date(2020, time.January, 1)
	person := pretermBoy(birth, 32)

	// Under two years corrected: corrected age indexes the term tables.
	at := birth.AddDate(1, 0, 0)
	placement, ok := Place(person, at)
	if !ok {
		t.Fatal("Place returned ok=false")
	}
	if placement.Segment != SegmentTerm {
		t.Fatalf("segment = %q, want term", placement.Segment)
	}
	if placement.X != placement.Corrected.CorrectedAgeYears {
		t.Fatalf("X = %v, want corrected years %v", placement.X, placement.Corrected.CorrectedAgeYears)
	}
	if placement.X == placement.Corrected.ChronologicalAgeYears {
		t.Fatal("corrected and chronological years should differ for a preterm child")
	}

	// Beyond two years corrected the clinical convention switches to
	// chronological age.
	at = birth.AddDate(0, 0, 913) // ~2.5 years
	placement, ok = Place(person, at)
	if !ok {
		t.Fatal("Place returned ok=false")
	}
	if placement.Corrected.CorrectedAgeYears <= 2 {
		t.Fatalf("test setup: corrected years = %v, want > 2", placement.Corrected.CorrectedAgeYears)
	}
	if placement.X != placement.Corrected.ChronologicalAgeYears {
		t.Fatalf("X = %v, want chronological years %v",
			placement.X, placement.Corrected.ChronologicalAgeYears)
	}
}

func TestPlaceMissingDate(t *testing.T) {
	if _, ok := Place(termBoy(time.Time{}), date(2024, time.January, 1)); ok {
		t.Fatal("Place returned ok=true without a birth date")
	}
	if _, ok := Place(termBoy(date(2024, time.January, 1)), time.Time{}); ok {
		t.Fatal("Place returned ok=true without a measurement date")
	}
}

func TestAxisWeeksIsPostMenstrualAge(t *testing.T) {
	// On both sides of the 42-week seam the axis equals 40 weeks plus the
	// corrected age, which is exactly the post-menstrual age.
	birth := date(2024, time.January, 1)

	for _, days := range []int{0, 28, 56, 69, 71, 84, 120, 365} {
		ca, ok := agecalc.Corrected(birth, birth.AddDate(0, 0, days), 32)
		if !ok {
			t.Fatalf("day %d: Corrected returned ok=false", days)
		}
		got := AxisWeeks(ca)
		want := 40 + ca.CorrectedAgeWeeks
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("day %d: AxisWeeks = %v, want %v", days, got, want)
		}
	}
}

func TestAxisWeeksContinuousAtSeam(t *testing.T) {
	// Two days apart across the 42-week boundary: the axis moves by
	// exactly two days' worth of weeks.
	birth := date(2024, time.January, 1)

	before, _ := agecalc.Corrected(birth, birth.AddDate(0, 0, 69), 32) // PMA 41.86
	after, _ := agecalc.Corrected(birth, birth.AddDate(0, 0, 71), 32)  // PMA 42.14

	if before.GestationalAge > 42 || after.GestationalAge < 42 {
		t.Fatalf("test setup: PMA %v and %v do not straddle 42", before.GestationalAge, after.GestationalAge)
	}

	gap := AxisWeeks(after) - AxisWeeks(before)
	if math.Abs(gap-2.0/7.0) > 1e-9 {
		t.Fatalf("axis gap across seam = %v weeks, want %v", gap, 2.0/7.0)
	}
}

func TestStitchedCoordinateTerm(t *testing.T) {
	birth := date(2023, time.June, 1)
	coord, ok := StitchedCoordinate(termBoy(birth), birth.AddDate(1, 0, 0))
	if !ok {
		t.Fatal("StitchedCoordinate returned ok=false")
	}
	if coord.IsPreemie {
		t.Fatal("term child marked preemie")
	}
	if coord.GestationalAge != nil {
		t.Fatal("term coordinate carries a gestational age")
	}
	if coord.XAxisValue <= 0.99 || coord.XAxisValue >= 1.01 {
		t.Fatalf("XAxisValue = %v, want ~1 year", coord.XAxisValue)
	}
}

func TestStitchedCoordinatePreterm(t *testing.T) {
	birth := date(2024, time.January, 1)
	coord, ok := StitchedCoordinate(pretermBoy(birth, 30), birth.AddDate(0, 0, 14))
	if !ok {
		t.Fatal("StitchedCoordinate returned ok=false")
	}
	if !coord.IsPreemie {
		t.Fatal("preterm child not marked preemie")
	}
	if coord.GestationalAge == nil || *coord.GestationalAge != 32 {
		t.Fatalf("gestational age = %v, want 32", coord.GestationalAge)
	}
	if coord.XAxisValue != 32 {
		t.Fatalf("XAxisValue = %v, want 32 post-menstrual weeks", coord.XAxisValue)
	}
}

func TestStitchedCoordinateMissingDate(t *testing.T) {
	if _, ok := StitchedCoordinate(termBoy(time.Time{}), date(2024, time.January, 1)); ok {
		t.Fatal("StitchedCoordinate returned ok=true without a birth date")
	}
}
