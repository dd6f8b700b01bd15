package timeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/percentile-data/growth.report/internal/refcache"
	"github.com/percentile-data/growth.report/internal/refdata"
)

func floatPtr(v float64) *float64 { return &v }

func newTestEngine() *Engine {
	return New(refcache.New(refdata.LoadBundle), refdata.SourceWHO)
}

func TestEvaluateMeasurementTermInfant(t *testing.T) {
	engine := newTestEngine()
	birth := date(2024, time.January, 1)
	person := termBoy(birth)

	m := Measurement{
		Date:              birth.AddDate(0, 0, 365), // ~12 months
		Weight:            floatPtr(9.65),
		Height:            floatPtr(75.7),
		HeadCircumference: floatPtr(46.1),
	}

	evals, err := engine.EvaluateMeasurement(person, m, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}

	// Three age-indexed readings plus weight-for-length.
	if len(evals) != 4 {
		t.Fatalf("got %d evaluations, want 4: %+v", len(evals), evals)
	}

	byMetric := map[refdata.Metric]Evaluation{}
	for _, ev := range evals {
		byMetric[ev.Metric] = ev
		if ev.Segment != SegmentTerm {
			t.Fatalf("%s evaluated on %q segment", ev.Metric, ev.Segment)
		}
		if ev.Source != refdata.SourceWHO {
			t.Fatalf("%s evaluated against %q", ev.Metric, ev.Source)
		}
		if ev.Display == "" {
			t.Fatalf("%s produced empty display", ev.Metric)
		}
	}

	wfa, ok := byMetric[refdata.MetricWeightForAge]
	if !ok {
		t.Fatal("missing weight-for-age evaluation")
	}
	if wfa.Percentile == nil || wfa.ZScore == nil {
		t.Fatal("LMS table evaluation missing exact percentile or z-score")
	}
	// 9.65kg is essentially the 12-month median for boys.
	if *wfa.Percentile < 40 || *wfa.Percentile > 60 {
		t.Fatalf("weight percentile = %v, want near the median", *wfa.Percentile)
	}
	if !strings.HasSuffix(wfa.Display, "th") {
		t.Fatalf("display = %q, want formatted percentile", wfa.Display)
	}

	if _, ok := byMetric[refdata.MetricWeightForLength]; !ok {
		t.Fatal("missing weight-for-length evaluation (height below 85cm)")
	}
}

func TestEvaluateMeasurementMedianTracksFifty(t *testing.T) {
	// Feeding each table's own median back through the engine must land on
	// the 50th percentile.
	engine := newTestEngine()
	birth := date(2024, time.January, 1)
	person := termBoy(birth)
	at := birth.AddDate(0, 0, 183) // ~6 months

	bundle, err := refdata.LoadBundle(refdata.SexBoys, refdata.SourceWHO)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}

	medianAt := func(metric refdata.Metric, x float64) float64 {
		t.Helper()
		ds, ok := bundle.Dataset(metric)
		if !ok {
			t.Fatalf("bundle missing %s", metric)
		}
		row, ok := ds.NearestRow(x)
		if !ok {
			t.Fatalf("%s dataset empty", metric)
		}
		return row.P50
	}

	ageX := 183.0 / 365.25
	m := Measurement{
		Date:                at,
		Weight:              floatPtr(medianAt(refdata.MetricWeightForAge, ageX)),
		Height:              floatPtr(medianAt(refdata.MetricLengthForAge, ageX)),
		HeadCircumference:   floatPtr(medianAt(refdata.MetricHeadCircumferenceForAge, ageX)),
		ArmCircumference:    floatPtr(medianAt(refdata.MetricArmCircumferenceForAge, ageX)),
		SubscapularSkinfold: floatPtr(medianAt(refdata.MetricSubscapularSkinfoldForAge, ageX)),
		TricepsSkinfold:     floatPtr(medianAt(refdata.MetricTricepsSkinfoldForAge, ageX)),
	}

	evals, err := engine.EvaluateMeasurement(person, m, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if len(evals) < 6 {
		t.Fatalf("got %d evaluations, want at least 6", len(evals))
	}

	for _, ev := range evals {
		if ev.Metric == refdata.MetricWeightForLength || ev.Metric == refdata.MetricWeightForHeight {
			continue // median weight at median height is not the wfl median
		}
		if ev.Percentile == nil {
			t.Fatalf("%s: no exact percentile for an LMS table", ev.Metric)
		}
		if *ev.Percentile < 49 || *ev.Percentile > 51 {
			t.Fatalf("%s: median mapped to %vth percentile", ev.Metric, *ev.Percentile)
		}
	}
}

func TestEvaluateMeasurementPretermWeight(t *testing.T) {
	engine := newTestEngine()
	birth := date(2024, time.January, 1)
	person := pretermBoy(birth, 28)
	at := birth.AddDate(0, 0, 28) // PMA 32 weeks, before due date

	bundle, err := refdata.LoadBundle(refdata.SexBoys, refdata.SourceFenton)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	ds, _ := bundle.Dataset(refdata.MetricWeightForAge)
	row, _ := ds.NearestRow(32)

	evals, err := engine.EvaluateMeasurement(person, Measurement{Date: at, Weight: floatPtr(row.P50)}, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("got %d evaluations, want 1", len(evals))
	}

	ev := evals[0]
	if ev.Segment != SegmentPreterm {
		t.Fatalf("segment = %q, want preterm", ev.Segment)
	}
	if ev.Source != refdata.SourceFenton {
		t.Fatalf("source = %q, want fenton", ev.Source)
	}
	if ev.X != 32 {
		t.Fatalf("X = %v, want 32", ev.X)
	}
	if ev.Display != "50.0th" {
		t.Fatalf("median preterm weight display = %q, want 50.0th", ev.Display)
	}
	if ev.Percentile != nil {
		t.Fatal("sparse table produced an exact percentile")
	}
}

func TestEvaluateMeasurementPretermOutOfRange(t *testing.T) {
	engine := newTestEngine()
	birth := date(2024, time.January, 1)
	person := pretermBoy(birth, 28)
	at := birth.AddDate(0, 0, 28)

	evals, err := engine.EvaluateMeasurement(person, Measurement{Date: at, Weight: floatPtr(0.4)}, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if len(evals) != 1 || evals[0].Display != "< 3rd" {
		t.Fatalf("tiny preterm weight = %+v, want \"< 3rd\"", evals)
	}
}

func TestEvaluateMeasurementPretermNonWeightSkipped(t *testing.T) {
	// No preterm tables exist for stature, so nothing is computable.
	engine := newTestEngine()
	birth := date(2024, time.January, 1)
	person := pretermBoy(birth, 28)

	evals, err := engine.EvaluateMeasurement(person,
		Measurement{Date: birth.AddDate(0, 0, 28), Height: floatPtr(40)}, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if len(evals) != 0 {
		t.Fatalf("got %d evaluations on the preterm path without weight", len(evals))
	}
}

func TestEvaluateMeasurementCDCSource(t *testing.T) {
	// CDC publishes only weight-for-age here; other readings are skipped
	// rather than failing.
	engine := newTestEngine()
	birth := date(2024, time.January, 1)
	person := termBoy(birth)

	m := Measurement{
		Date:   birth.AddDate(0, 0, 183),
		Weight: floatPtr(8.16),
		Height: floatPtr(67.6),
	}

	evals, err := engine.EvaluateMeasurement(person, m, refdata.SourceCDC)
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("got %d evaluations against CDC, want 1 (weight only)", len(evals))
	}
	if evals[0].Metric != refdata.MetricWeightForAge || evals[0].Source != refdata.SourceCDC {
		t.Fatalf("unexpected evaluation %+v", evals[0])
	}
}

func TestEvaluateMeasurementWeightForHeightCrossover(t *testing.T) {
	engine := newTestEngine()
	birth := date(2022, time.January, 1)
	person := termBoy(birth)

	below := Measurement{Date: birth.AddDate(1, 6, 0), Weight: floatPtr(11.0), Height: floatPtr(84.5)}
	evals, err := engine.EvaluateMeasurement(person, below, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if !hasMetric(evals, refdata.MetricWeightForLength) {
		t.Fatalf("84.5cm reading missing wfl evaluation: %+v", evals)
	}

	above := Measurement{Date: birth.AddDate(1, 6, 0), Weight: floatPtr(11.3), Height: floatPtr(85.0)}
	evals, err = engine.EvaluateMeasurement(person, above, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if !hasMetric(evals, refdata.MetricWeightForHeight) {
		t.Fatalf("85cm reading missing wfh evaluation: %+v", evals)
	}
}

func TestEvaluateMeasurementMissingDate(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.EvaluateMeasurement(termBoy(time.Time{}),
		Measurement{Date: date(2024, time.January, 1), Weight: floatPtr(5)}, "")
	if !errors.Is(err, ErrMissingDate) {
		t.Fatalf("err = %v, want ErrMissingDate", err)
	}
}

func TestEvaluateMeasurementInvalidTermSource(t *testing.T) {
	engine := newTestEngine()
	birth := date(2024, time.January, 1)

	_, err := engine.EvaluateMeasurement(termBoy(birth),
		Measurement{Date: birth.AddDate(0, 1, 0), Weight: floatPtr(5)}, refdata.SourceFenton)
	if err == nil {
		t.Fatal("fenton accepted as a term-path source")
	}
}

func TestEvaluateMeasurementLoaderFailure(t *testing.T) {
	loadErr := errors.New("corrupt table")
	engine := New(refcache.New(func(refdata.Sex, refdata.Source) (*refdata.Bundle, error) {
		return nil, loadErr
	}), refdata.SourceWHO)

	birth := date(2024, time.January, 1)
	_, err := engine.EvaluateMeasurement(termBoy(birth),
		Measurement{Date: birth.AddDate(0, 1, 0), Weight: floatPtr(5)}, "")
	if !errors.Is(err, loadErr) {
		t.Fatalf("err = %v, want wrapped loader failure", err)
	}
}

func TestEvaluateFallbackOnInvalidLMS(t *testing.T) {
	// A row with an unusable triple must fall back to breakpoint
	// interpolation instead of failing.
	bundle := &refdata.Bundle{
		Sex:    refdata.SexBoys,
		Source: refdata.SourceWHO,
		Datasets: map[refdata.Metric]*refdata.Dataset{
			refdata.MetricWeightForAge: {
				Sex:    refdata.SexBoys,
				Metric: refdata.MetricWeightForAge,
				Source: refdata.SourceWHO,
				Axis:   refdata.AxisAgeYears,
				Rows: []refdata.Row{{
					X:  1,
					P3: 7.8, P15: 8.5, P25: 8.9, P50: 9.6, P75: 10.4, P85: 10.9, P97: 11.8,
					L: floatPtr(1), M: floatPtr(0), S: floatPtr(0.1), // M <= 0 is invalid
				}},
			},
		},
	}
	engine := New(refcache.New(func(refdata.Sex, refdata.Source) (*refdata.Bundle, error) {
		return bundle, nil
	}), refdata.SourceWHO)

	birth := date(2023, time.January, 1)
	evals, err := engine.EvaluateMeasurement(termBoy(birth),
		Measurement{Date: birth.AddDate(1, 0, 0), Weight: floatPtr(9.6)}, "")
	if err != nil {
		t.Fatalf("EvaluateMeasurement: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("got %d evaluations, want 1", len(evals))
	}
	if evals[0].Display != "50.0th" {
		t.Fatalf("fallback display = %q, want 50.0th", evals[0].Display)
	}
	if evals[0].Percentile != nil || evals[0].ZScore != nil {
		t.Fatal("fallback path produced exact percentile or z-score")
	}
}

func TestPercentileFacade(t *testing.T) {
	engine := newTestEngine()

	display, err := engine.Percentile(refdata.SexBoys, refdata.SourceWHO, refdata.MetricWeightForAge, 1.0, 9.6479)
	if err != nil {
		t.Fatalf("Percentile: %v", err)
	}
	if display != "50.0th" {
		t.Fatalf("display = %q, want 50.0th (12-month median)", display)
	}
}

func TestPercentileFacadeUnknownDataset(t *testing.T) {
	engine := newTestEngine()
	if _, err := engine.Percentile(refdata.SexBoys, refdata.SourceWHO, refdata.MetricBMIForAge, 1.0, 16); err == nil {
		t.Fatal("Percentile succeeded for a metric the source does not publish")
	}
}

func hasMetric(evals []Evaluation, metric refdata.Metric) bool {
	for _, ev := range evals {
		if ev.Metric == metric {
			return true
		}
	}
	return false
}
