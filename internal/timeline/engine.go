package timeline

import (
	"errors"
	"fmt"

	"github.com/percentile-data/growth.report/internal/growth"
	"github.com/percentile-data/growth.report/internal/refcache"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/units"
)

// ErrMissingDate is returned when a birth or measurement date is absent and
// the evaluation cannot run.
var ErrMissingDate = errors.New("birth date and measurement date are required")

// Engine evaluates measurements against the reference tables held by its
// cache. The preterm path always uses the Fenton tables; the term path uses
// the engine's default source unless a call requests another.
type Engine struct {
	cache             *refcache.Cache
	defaultTermSource refdata.Source
}

// New builds an engine. defaultTermSource selects the table family for the
// term path when a call does not name one; WHO is the usual choice.
func New(cache *refcache.Cache, defaultTermSource refdata.Source) *Engine {
	return &Engine{cache: cache, defaultTermSource: defaultTermSource}
}

// Evaluation is the percentile outcome for one reading. Percentile and
// ZScore are set only on the exact LMS path; the discrete fallback produces
// just the display label.
type Evaluation struct {
	Metric     refdata.Metric `json:"metric"`
	Value      float64        `json:"value"`
	Display    string         `json:"display"`
	Percentile *float64       `json:"percentile,omitempty"`
	ZScore     *float64       `json:"zScore,omitempty"`
	Segment    Segment        `json:"segment"`
	Source     refdata.Source `json:"source"`
	X          float64        `json:"x"`
}

// EvaluateMeasurement evaluates every reading present on the measurement
// against the appropriate reference segment. Readings without a published
// table for the resolved source are skipped, not errors. source may be
// empty to use the engine default; it selects the term path family only.
func (e *Engine) EvaluateMeasurement(person Person, m Measurement, source refdata.Source) ([]Evaluation, error) {
	placement, ok := Place(person, m.Date)
	if !ok {
		return nil, ErrMissingDate
	}

	if placement.Segment == SegmentPreterm {
		return e.evaluatePreterm(person, m, placement)
	}
	return e.evaluateTerm(person, m, placement, source)
}

// Percentile evaluates a single value against one metric's table at the
// given age-or-height coordinate and returns its display label.
func (e *Engine) Percentile(sex refdata.Sex, source refdata.Source, metric refdata.Metric, x, value float64) (string, error) {
	bundle, err := e.cache.Load(sex, source)
	if err != nil {
		return "", fmt.Errorf("failed to load %s reference data: %w", refdata.Key(sex, source), err)
	}
	ds, ok := bundle.Dataset(metric)
	if !ok {
		return "", fmt.Errorf("no %s dataset published by %s", metric, source)
	}
	ev, ok := evaluateAgainst(ds, x, value)
	if !ok {
		return "", fmt.Errorf("empty %s dataset", metric)
	}
	return ev.Display, nil
}

func (e *Engine) evaluatePreterm(person Person, m Measurement, placement Placement) ([]Evaluation, error) {
	// Weight is the only reading with a preterm reference table.
	if m.Weight == nil {
		return nil, nil
	}

	bundle, err := e.cache.Load(person.Sex, refdata.SourceFenton)
	if err != nil {
		return nil, fmt.Errorf("failed to load preterm reference data: %w", err)
	}
	ds, ok := bundle.Dataset(refdata.MetricWeightForAge)
	if !ok {
		return nil, fmt.Errorf("preterm bundle for %s has no weight table", person.Sex)
	}

	ev, ok := evaluateAgainst(ds, placement.X, *m.Weight)
	if !ok {
		return nil, nil
	}
	ev.Segment = SegmentPreterm
	return []Evaluation{ev}, nil
}

func (e *Engine) evaluateTerm(person Person, m Measurement, placement Placement, source refdata.Source) ([]Evaluation, error) {
	src, err := e.termSource(source)
	if err != nil {
		return nil, err
	}
	bundle, err := e.cache.Load(person.Sex, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s reference data: %w", refdata.Key(person.Sex, src), err)
	}

	readings := []struct {
		metric refdata.Metric
		value  *float64
	}{
		{refdata.MetricWeightForAge, m.Weight},
		{refdata.MetricLengthForAge, m.Height},
		{refdata.MetricHeadCircumferenceForAge, m.HeadCircumference},
		{refdata.MetricArmCircumferenceForAge, m.ArmCircumference},
		{refdata.MetricSubscapularSkinfoldForAge, m.SubscapularSkinfold},
		{refdata.MetricTricepsSkinfoldForAge, m.TricepsSkinfold},
	}

	var evals []Evaluation
	for _, r := range readings {
		if r.value == nil {
			continue
		}
		ds, ok := bundle.Dataset(r.metric)
		if !ok {
			continue
		}
		if ev, ok := evaluateAgainst(ds, placement.X, *r.value); ok {
			ev.Segment = SegmentTerm
			evals = append(evals, ev)
		}
	}

	// Weight against stature when both were taken. One merged table covers
	// the whole range; the metric code reflects which side of the 85cm
	// crossover the reading fell on.
	if m.Weight != nil && m.Height != nil {
		metric := refdata.MetricWeightForLength
		if *m.Height >= units.WeightForLengthMaxHeightCm {
			metric = refdata.MetricWeightForHeight
		}
		if ds, ok := bundle.Dataset(metric); ok {
			if ev, ok := evaluateAgainst(ds, *m.Height, *m.Weight); ok {
				ev.Metric = metric
				ev.Segment = SegmentTerm
				evals = append(evals, ev)
			}
		}
	}

	return evals, nil
}

func (e *Engine) termSource(requested refdata.Source) (refdata.Source, error) {
	switch requested {
	case "":
		return e.defaultTermSource, nil
	case refdata.SourceWHO, refdata.SourceCDC:
		return requested, nil
	}
	return "", fmt.Errorf("source %q cannot serve the term path", requested)
}

// evaluateAgainst runs the fallback chain against the row nearest x: the
// exact LMS percentile when the row carries a valid triple, discrete
// breakpoint interpolation otherwise. The fallback is mandatory; it is what
// keeps evaluation working for tables without LMS parameters.
func evaluateAgainst(ds *refdata.Dataset, x, value float64) (Evaluation, bool) {
	row, ok := ds.NearestRow(x)
	if !ok {
		return Evaluation{}, false
	}

	ev := Evaluation{
		Metric: ds.Metric,
		Source: ds.Source,
		Value:  value,
		X:      x,
	}

	if row.HasLMS() {
		if p, ok := growth.PercentileFromLMS(value, *row.L, *row.M, *row.S); ok {
			clamped := growth.ClampPercentile(p)
			ev.Percentile = &clamped
			ev.Display = growth.FormatPercentile(clamped)
			if z, ok := growth.ZScoreFromLMS(value, *row.L, *row.M, *row.S); ok {
				ev.ZScore = &z
			}
			return ev, true
		}
	}

	if row.Sparse {
		ev.Display = growth.PercentileFromSparseBreakpoints(value, row.P3, row.P50, row.P97)
	} else {
		ev.Display = growth.PercentileFromBreakpoints(value, row.Breakpoints())
	}
	return ev, true
}
