package refdata

import (
	"fmt"
	"math"
	"sort"

	"github.com/percentile-data/growth.report/internal/units"
)

// RawRow mirrors the column names of the published WHO and CDC JSON tables.
// Exactly one of Month, Length or Height carries the x-coordinate. The CDC
// tables publish P10/P90 instead of P15/P85, which the normalizer derives.
type RawRow struct {
	Month  *float64 `json:"Month,omitempty"`
	Length *float64 `json:"Length,omitempty"`
	Height *float64 `json:"Height,omitempty"`
	L      *float64 `json:"L,omitempty"`
	M      *float64 `json:"M,omitempty"`
	S      *float64 `json:"S,omitempty"`
	P3     *float64 `json:"P3,omitempty"`
	P10    *float64 `json:"P10,omitempty"`
	P15    *float64 `json:"P15,omitempty"`
	P25    *float64 `json:"P25,omitempty"`
	P50    *float64 `json:"P50,omitempty"`
	P75    *float64 `json:"P75,omitempty"`
	P85    *float64 `json:"P85,omitempty"`
	P90    *float64 `json:"P90,omitempty"`
	P97    *float64 `json:"P97,omitempty"`
}

// RawPretermRow mirrors the gestational-week-indexed preterm weight tables.
// Weight columns are in grams.
type RawPretermRow struct {
	Week float64  `json:"week"`
	P3   float64  `json:"p3"`
	P50  float64  `json:"p50"`
	P97  float64  `json:"p97"`
	L    *float64 `json:"L,omitempty"`
	M    *float64 `json:"M,omitempty"`
	S    *float64 `json:"S,omitempty"`
}

// NormalizeAgeRows converts month-indexed raw rows to the uniform shape,
// deriving P15 and P85 when the source does not publish them. The
// x-coordinate becomes age in years.
func NormalizeAgeRows(raws []RawRow) ([]Row, error) {
	rows := make([]Row, 0, len(raws))
	for i, raw := range raws {
		if raw.Month == nil {
			return nil, fmt.Errorf("row %d: missing Month column", i)
		}
		row, err := raw.normalize(units.MonthsToYears(*raw.Month))
		if err != nil {
			return nil, fmt.Errorf("row %d (month %g): %w", i, *raw.Month, err)
		}
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows, nil
}

// NormalizeHeightRows converts length- or height-indexed raw rows. The
// x-coordinate is the stature in centimetres.
func NormalizeHeightRows(raws []RawRow) ([]Row, error) {
	rows := make([]Row, 0, len(raws))
	for i, raw := range raws {
		x := raw.Length
		if x == nil {
			x = raw.Height
		}
		if x == nil {
			return nil, fmt.Errorf("row %d: missing Length or Height column", i)
		}
		row, err := raw.normalize(*x)
		if err != nil {
			return nil, fmt.Errorf("row %d (%gcm): %w", i, *x, err)
		}
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows, nil
}

// NormalizePretermRows converts gestational-week-indexed preterm weight
// rows to the uniform shape. Published weights are in grams and convert to
// kilograms here. The intermediate breakpoints these tables do not publish
// are filled with the median, and the rows are marked sparse so consumers
// use the three-point interpolator.
func NormalizePretermRows(raws []RawPretermRow) []Row {
	rows := make([]Row, 0, len(raws))
	for _, raw := range raws {
		row := Row{
			X:      raw.Week,
			P3:     units.GramsToKilograms(raw.P3),
			P50:    units.GramsToKilograms(raw.P50),
			P97:    units.GramsToKilograms(raw.P97),
			L:      raw.L,
			S:      raw.S,
			Sparse: true,
		}
		row.P15 = row.P50
		row.P25 = row.P50
		row.P75 = row.P50
		row.P85 = row.P50
		if raw.M != nil {
			m := units.GramsToKilograms(*raw.M)
			row.M = &m
		}
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows
}

// ExpandToWholeMonths fills the gaps in a coarse month grid (the CDC tables
// publish selected months only) by linear interpolation on every numeric
// column between adjacent published rows, so downstream age matching always
// finds an exact-month row.
func ExpandToWholeMonths(raws []RawRow) ([]RawRow, error) {
	for i, raw := range raws {
		if raw.Month == nil {
			return nil, fmt.Errorf("row %d: missing Month column", i)
		}
	}

	sorted := append([]RawRow(nil), raws...)
	sort.SliceStable(sorted, func(i, j int) bool { return *sorted[i].Month < *sorted[j].Month })

	out := make([]RawRow, 0, len(sorted))
	for i := 0; i < len(sorted)-1; i++ {
		lo, hi := sorted[i], sorted[i+1]
		out = append(out, lo)

		loMonth, hiMonth := *lo.Month, *hi.Month
		for month := math.Floor(loMonth) + 1; month < hiMonth; month++ {
			frac := (month - loMonth) / (hiMonth - loMonth)
			out = append(out, lerpRawRow(lo, hi, month, frac))
		}
	}
	if len(sorted) > 0 {
		out = append(out, sorted[len(sorted)-1])
	}
	return out, nil
}

// MergeHeightRows combines the weight-for-length (<85cm) and
// weight-for-height (>=85cm) tables into one continuous height-sorted
// sequence, so there is no discontinuity at the clinical crossover point.
// When both tables publish the same height, the later table's row wins.
func MergeHeightRows(length, height []Row) []Row {
	merged := append(append([]Row(nil), length...), height...)
	sortRows(merged)

	out := make([]Row, 0, len(merged))
	for _, row := range merged {
		if n := len(out); n > 0 && out[n-1].X == row.X {
			out[n-1] = row
			continue
		}
		out = append(out, row)
	}
	return out
}

func (r RawRow) normalize(x float64) (Row, error) {
	required := []struct {
		name  string
		value *float64
	}{
		{"P3", r.P3}, {"P25", r.P25}, {"P50", r.P50}, {"P75", r.P75}, {"P97", r.P97},
	}
	for _, col := range required {
		if col.value == nil {
			return Row{}, fmt.Errorf("missing %s column", col.name)
		}
	}

	p15, err := fillRank(r.P15, r.P10, r.P25, 10, 15, 25)
	if err != nil {
		return Row{}, err
	}
	p85, err := fillRank(r.P85, r.P75, r.P90, 75, 85, 90)
	if err != nil {
		return Row{}, err
	}

	return Row{
		X:   x,
		P3:  *r.P3,
		P15: p15,
		P25: *r.P25,
		P50: *r.P50,
		P75: *r.P75,
		P85: p85,
		P97: *r.P97,
		L:   r.L,
		M:   r.M,
		S:   r.S,
	}, nil
}

// fillRank returns the directly published percentile when present, else
// linearly interpolates it on the rank axis between the two neighbouring
// published columns.
func fillRank(direct, lo, hi *float64, loRank, wantRank, hiRank float64) (float64, error) {
	if direct != nil {
		return *direct, nil
	}
	if lo == nil || hi == nil {
		return 0, fmt.Errorf("cannot derive P%g: neither it nor P%g/P%g published", wantRank, loRank, hiRank)
	}
	frac := (wantRank - loRank) / (hiRank - loRank)
	return *lo + frac*(*hi-*lo), nil
}

func lerpRawRow(lo, hi RawRow, month, frac float64) RawRow {
	m := month
	return RawRow{
		Month: &m,
		L:     lerpPtr(lo.L, hi.L, frac),
		M:     lerpPtr(lo.M, hi.M, frac),
		S:     lerpPtr(lo.S, hi.S, frac),
		P3:    lerpPtr(lo.P3, hi.P3, frac),
		P10:   lerpPtr(lo.P10, hi.P10, frac),
		P15:   lerpPtr(lo.P15, hi.P15, frac),
		P25:   lerpPtr(lo.P25, hi.P25, frac),
		P50:   lerpPtr(lo.P50, hi.P50, frac),
		P75:   lerpPtr(lo.P75, hi.P75, frac),
		P85:   lerpPtr(lo.P85, hi.P85, frac),
		P90:   lerpPtr(lo.P90, hi.P90, frac),
		P97:   lerpPtr(lo.P97, hi.P97, frac),
	}
}

func lerpPtr(a, b *float64, frac float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + frac*(*b-*a)
	return &v
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].X < rows[j].X })
}
