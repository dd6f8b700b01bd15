// Package refdata holds the published growth reference tables (WHO, CDC,
// Fenton preterm) and normalizes them into one uniform row shape. Datasets
// are embedded in the binary, loaded once per (sex, source) pair, and are
// read-only after load so they can be shared between goroutines without
// copying.
package refdata

import (
	"fmt"
	"math"

	"github.com/percentile-data/growth.report/internal/growth"
)

// Sex selects the reference population half.
type Sex string

const (
	SexBoys  Sex = "boys"
	SexGirls Sex = "girls"
)

// ParseSex validates a raw sex string from storage or an API request.
func ParseSex(s string) (Sex, error) {
	switch Sex(s) {
	case SexBoys, SexGirls:
		return Sex(s), nil
	}
	return "", fmt.Errorf("unknown sex %q (want %q or %q)", s, SexBoys, SexGirls)
}

// Source identifies the publishing body behind a reference table family.
type Source string

const (
	SourceWHO    Source = "who"
	SourceCDC    Source = "cdc"
	SourceFenton Source = "fenton"
)

// ParseSource validates a raw source string.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceWHO, SourceCDC, SourceFenton:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown reference source %q", s)
}

// Metric names a measured quantity tracked against a reference table. The
// codes follow the WHO file naming convention.
type Metric string

const (
	MetricWeightForAge              Metric = "wfa"
	MetricLengthForAge              Metric = "lhfa"
	MetricHeightForAge              Metric = "hfa"
	MetricHeadCircumferenceForAge   Metric = "hcfa"
	MetricBMIForAge                 Metric = "bmifa"
	MetricArmCircumferenceForAge    Metric = "acfa"
	MetricSubscapularSkinfoldForAge Metric = "ssfa"
	MetricTricepsSkinfoldForAge     Metric = "tsfa"
	MetricWeightForLength           Metric = "wfl"
	MetricWeightForHeight           Metric = "wfh"
)

// ParseMetric validates a raw metric code.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricWeightForAge, MetricLengthForAge, MetricHeightForAge,
		MetricHeadCircumferenceForAge, MetricBMIForAge, MetricArmCircumferenceForAge,
		MetricSubscapularSkinfoldForAge, MetricTricepsSkinfoldForAge,
		MetricWeightForLength, MetricWeightForHeight:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Axis says what the x-coordinate of a dataset's rows means.
type Axis string

const (
	AxisAgeYears         Axis = "ageYears"
	AxisHeightCm         Axis = "heightCm"
	AxisGestationalWeeks Axis = "gestationalWeeks"
)

// Row is one normalized reference row: an x-coordinate, the seven percentile
// breakpoints, and the LMS triple when the source publishes one. L, M and S
// are nil for sources without LMS parameters (the Fenton preterm tables).
// For sparse three-point sources the intermediate breakpoints are filled
// with the median so the struct stays uniform; consumers that care use
// Sparse to pick the right interpolator.
type Row struct {
	X      float64  `json:"x"`
	P3     float64  `json:"p3"`
	P15    float64  `json:"p15"`
	P25    float64  `json:"p25"`
	P50    float64  `json:"p50"`
	P75    float64  `json:"p75"`
	P85    float64  `json:"p85"`
	P97    float64  `json:"p97"`
	L      *float64 `json:"l,omitempty"`
	M      *float64 `json:"m,omitempty"`
	S      *float64 `json:"s,omitempty"`
	Sparse bool     `json:"sparse,omitempty"`
}

// HasLMS reports whether the row carries a complete LMS triple.
func (r Row) HasLMS() bool {
	return r.L != nil && r.M != nil && r.S != nil
}

// Breakpoints returns the row's percentile columns in the shape the
// discrete interpolator consumes.
func (r Row) Breakpoints() growth.Breakpoints {
	return growth.Breakpoints{
		P3:  r.P3,
		P15: r.P15,
		P25: r.P25,
		P50: r.P50,
		P75: r.P75,
		P85: r.P85,
		P97: r.P97,
	}
}

// Dataset is an ordered-by-x sequence of rows for one (sex, metric, source)
// combination. Never mutated after load.
type Dataset struct {
	Sex    Sex    `json:"sex"`
	Metric Metric `json:"metric"`
	Source Source `json:"source"`
	Axis   Axis   `json:"axis"`
	Rows   []Row  `json:"rows"`
}

// NearestRow returns the row whose x-coordinate is closest to x, measured
// by absolute difference. Ties keep the earlier row. The second return is
// false for an empty dataset.
func (d *Dataset) NearestRow(x float64) (Row, bool) {
	if d == nil || len(d.Rows) == 0 {
		return Row{}, false
	}

	best := d.Rows[0]
	bestDist := math.Abs(best.X - x)
	for _, row := range d.Rows[1:] {
		dist := math.Abs(row.X - x)
		if dist < bestDist {
			best = row
			bestDist = dist
		}
	}
	return best, true
}

// Bundle is every dataset published for one (sex, source) pair, keyed by
// metric. A bundle is the unit the cache loads and hands out.
type Bundle struct {
	Sex      Sex                 `json:"sex"`
	Source   Source              `json:"source"`
	Datasets map[Metric]*Dataset `json:"datasets"`
}

// Dataset looks up one metric's dataset within the bundle.
func (b *Bundle) Dataset(metric Metric) (*Dataset, bool) {
	if b == nil {
		return nil, false
	}
	d, ok := b.Datasets[metric]
	return d, ok && d != nil
}

// Key is the cache key for a (sex, source) bundle.
func Key(sex Sex, source Source) string {
	return string(sex) + "/" + string(source)
}
