package api

import (
	"fmt"
	"net/http"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/httputil"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/timeline"
)

// SeriesPoint is one evaluated measurement in a longitudinal series.
type SeriesPoint struct {
	MeasurementID string              `json:"measurementId"`
	Date          string              `json:"date"`
	Value         float64             `json:"value"`
	Display       string              `json:"display"`
	Percentile    *float64            `json:"percentile,omitempty"`
	ZScore        *float64            `json:"zScore,omitempty"`
	Segment       timeline.Segment    `json:"segment"`
	Source        refdata.Source      `json:"source"`
	X             float64             `json:"x"`
	Coordinate    timeline.Coordinate `json:"coordinate"`
}

// SeriesStats summarizes the exact z-scores across a series. Points served
// by the discrete fallback carry no z-score and are excluded; the spread is
// omitted below two scored points.
type SeriesStats struct {
	Points  int      `json:"points"`
	ZScores int      `json:"zScores"`
	MeanZ   *float64 `json:"meanZ,omitempty"`
	StdDevZ *float64 `json:"stdDevZ,omitempty"`
	MinZ    *float64 `json:"minZ,omitempty"`
	MaxZ    *float64 `json:"maxZ,omitempty"`
}

// SeriesResponse is the longitudinal percentile series for one metric. A
// preterm person's weight series stitches Fenton points before the seam
// onto term points after it, so Source varies per point.
type SeriesResponse struct {
	PersonID string         `json:"personId"`
	Metric   refdata.Metric `json:"metric"`
	Source   refdata.Source `json:"source"`
	Points   []SeriesPoint  `json:"points"`
	Stats    SeriesStats    `json:"stats"`
}

// handleSeries handles GET /api/persons/{id}/series?metric=wfa&source=who
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request, personID string) {
	metric, err := refdata.ParseMetric(r.URL.Query().Get("metric"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	pickReadings, ok := seriesReadings(metric)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("no reference series for metric %q", metric))
		return
	}

	var source refdata.Source
	if raw := r.URL.Query().Get("source"); raw != "" {
		source, err = refdata.ParseSource(raw)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if source == refdata.SourceFenton {
			httputil.BadRequest(w, fmt.Sprintf("source %q cannot serve the term path", source))
			return
		}
	}

	person, err := s.db.GetPerson(personID)
	if err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}
	timelinePerson, err := toTimelinePerson(person)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	measurements, err := s.db.ListMeasurements(personID)
	if err != nil {
		httputil.InternalServerError(w, "failed to list measurements")
		return
	}

	points := []SeriesPoint{}
	for i := range measurements {
		m := &measurements[i]
		at, err := db.ParseDate(m.Date)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}

		sample := pickReadings(m)
		sample.Date = at
		evals, err := s.engine.EvaluateMeasurement(timelinePerson, sample, source)
		if err != nil {
			httputil.WriteJSONError(w, errorStatus(err), err.Error())
			return
		}

		coord, ok := timeline.StitchedCoordinate(timelinePerson, at)
		if !ok {
			continue
		}
		for _, ev := range evals {
			if !seriesMetricMatches(metric, ev.Metric) {
				continue
			}
			points = append(points, SeriesPoint{
				MeasurementID: m.ID,
				Date:          m.Date,
				Value:         ev.Value,
				Display:       ev.Display,
				Percentile:    ev.Percentile,
				ZScore:        ev.ZScore,
				Segment:       ev.Segment,
				Source:        ev.Source,
				X:             ev.X,
				Coordinate:    coord,
			})
		}
	}

	resolved := source
	if resolved == "" {
		resolved = s.cfg.GetDefaultSource()
	}

	httputil.WriteJSONOK(w, SeriesResponse{
		PersonID: personID,
		Metric:   metric,
		Source:   resolved,
		Points:   points,
		Stats:    summarizeZScores(points),
	})
}

// toTimelinePerson converts a stored person to the engine's form. Stored
// rows already passed validation, so failures here mean corrupt data.
func toTimelinePerson(p *db.Person) (timeline.Person, error) {
	birth, err := db.ParseDate(p.BirthDate)
	if err != nil {
		return timeline.Person{}, err
	}
	sex, err := refdata.ParseSex(p.Sex)
	if err != nil {
		return timeline.Person{}, err
	}
	return timeline.Person{
		BirthDate:             birth,
		GestationalAgeAtBirth: p.GestationalAgeAtBirth,
		Sex:                   sex,
	}, nil
}

// seriesReadings returns a selector copying only the readings the metric is
// computed from. Metrics with no reading-backed series report false.
func seriesReadings(metric refdata.Metric) (func(m *db.Measurement) timeline.Measurement, bool) {
	switch metric {
	case refdata.MetricWeightForAge:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{Weight: m.Weight}
		}, true
	case refdata.MetricLengthForAge:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{Height: m.Height}
		}, true
	case refdata.MetricHeadCircumferenceForAge:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{HeadCircumference: m.HeadCircumference}
		}, true
	case refdata.MetricArmCircumferenceForAge:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{ArmCircumference: m.ArmCircumference}
		}, true
	case refdata.MetricSubscapularSkinfoldForAge:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{SubscapularSkinfold: m.SubscapularSkinfold}
		}, true
	case refdata.MetricTricepsSkinfoldForAge:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{TricepsSkinfold: m.TricepsSkinfold}
		}, true
	case refdata.MetricWeightForLength, refdata.MetricWeightForHeight:
		return func(m *db.Measurement) timeline.Measurement {
			return timeline.Measurement{Weight: m.Weight, Height: m.Height}
		}, true
	}
	return nil, false
}

// seriesMetricMatches reports whether an evaluation belongs in the series
// for the requested metric. The two weight-for-stature codes share one
// table, so a series request for either accepts both.
func seriesMetricMatches(requested, got refdata.Metric) bool {
	if requested == got {
		return true
	}
	isStature := func(m refdata.Metric) bool {
		return m == refdata.MetricWeightForLength || m == refdata.MetricWeightForHeight
	}
	return isStature(requested) && isStature(got)
}

func summarizeZScores(points []SeriesPoint) SeriesStats {
	stats := SeriesStats{Points: len(points)}

	var zs []float64
	for _, p := range points {
		if p.ZScore != nil {
			zs = append(zs, *p.ZScore)
		}
	}
	stats.ZScores = len(zs)
	if len(zs) == 0 {
		return stats
	}

	mean := stat.Mean(zs, nil)
	min := floats.Min(zs)
	max := floats.Max(zs)
	stats.MeanZ = &mean
	stats.MinZ = &min
	stats.MaxZ = &max
	if len(zs) >= 2 {
		sd := stat.StdDev(zs, nil)
		stats.StdDevZ = &sd
	}
	return stats
}
