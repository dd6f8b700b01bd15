package refdata

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed data/*.json
var embeddedTables embed.FS

// ageMetrics are the WHO age-indexed tables shipped with the binary.
var ageMetrics = []Metric{
	MetricWeightForAge,
	MetricLengthForAge,
	MetricHeadCircumferenceForAge,
	MetricArmCircumferenceForAge,
	MetricSubscapularSkinfoldForAge,
	MetricTricepsSkinfoldForAge,
}

// LoadBundle parses and normalizes every embedded dataset published for the
// (sex, source) pair. The returned bundle is immutable; callers share it
// through the cache rather than loading twice.
func LoadBundle(sex Sex, source Source) (*Bundle, error) {
	switch source {
	case SourceWHO:
		return loadWHOBundle(sex)
	case SourceCDC:
		return loadCDCBundle(sex)
	case SourceFenton:
		return loadFentonBundle(sex)
	}
	return nil, fmt.Errorf("unknown reference source %q", source)
}

func loadWHOBundle(sex Sex) (*Bundle, error) {
	bundle := &Bundle{Sex: sex, Source: SourceWHO, Datasets: map[Metric]*Dataset{}}

	for _, metric := range ageMetrics {
		raws, err := readRawRows(tableFileName(metric, sex, SourceWHO))
		if err != nil {
			return nil, err
		}
		rows, err := NormalizeAgeRows(raws)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s %s table: %w", sex, metric, err)
		}
		bundle.Datasets[metric] = &Dataset{
			Sex: sex, Metric: metric, Source: SourceWHO,
			Axis: AxisAgeYears, Rows: rows,
		}
	}

	combined, err := loadCombinedHeightTable(sex)
	if err != nil {
		return nil, err
	}
	// The combined table answers both metric codes; the crossover at 85cm
	// is inside one continuous dataset.
	bundle.Datasets[MetricWeightForLength] = combined
	bundle.Datasets[MetricWeightForHeight] = combined

	return bundle, nil
}

// loadCombinedHeightTable merges the weight-for-length and weight-for-height
// tables into one height-sorted dataset.
func loadCombinedHeightTable(sex Sex) (*Dataset, error) {
	lengthRaws, err := readRawRows(tableFileName(MetricWeightForLength, sex, SourceWHO))
	if err != nil {
		return nil, err
	}
	lengthRows, err := NormalizeHeightRows(lengthRaws)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s weight-for-length table: %w", sex, err)
	}

	heightRaws, err := readRawRows(tableFileName(MetricWeightForHeight, sex, SourceWHO))
	if err != nil {
		return nil, err
	}
	heightRows, err := NormalizeHeightRows(heightRaws)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s weight-for-height table: %w", sex, err)
	}

	return &Dataset{
		Sex: sex, Metric: MetricWeightForLength, Source: SourceWHO,
		Axis: AxisHeightCm, Rows: MergeHeightRows(lengthRows, heightRows),
	}, nil
}

func loadCDCBundle(sex Sex) (*Bundle, error) {
	raws, err := readRawRows(tableFileName(MetricWeightForAge, sex, SourceCDC))
	if err != nil {
		return nil, err
	}
	expanded, err := ExpandToWholeMonths(raws)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s CDC table: %w", sex, err)
	}
	rows, err := NormalizeAgeRows(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s CDC table: %w", sex, err)
	}

	return &Bundle{
		Sex: sex, Source: SourceCDC,
		Datasets: map[Metric]*Dataset{
			MetricWeightForAge: {
				Sex: sex, Metric: MetricWeightForAge, Source: SourceCDC,
				Axis: AxisAgeYears, Rows: rows,
			},
		},
	}, nil
}

func loadFentonBundle(sex Sex) (*Bundle, error) {
	name := tableFileName(MetricWeightForAge, sex, SourceFenton)
	data, err := embeddedTables.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded table %s: %w", name, err)
	}

	var raws []RawPretermRow
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	return &Bundle{
		Sex: sex, Source: SourceFenton,
		Datasets: map[Metric]*Dataset{
			MetricWeightForAge: {
				Sex: sex, Metric: MetricWeightForAge, Source: SourceFenton,
				Axis: AxisGestationalWeeks, Rows: NormalizePretermRows(raws),
			},
		},
	}, nil
}

func readRawRows(name string) ([]RawRow, error) {
	data, err := embeddedTables.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded table %s: %w", name, err)
	}
	var raws []RawRow
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return raws, nil
}

// tableFileName builds the {metric}_{sex}_{source}.json naming convention
// the embedded tables follow.
func tableFileName(metric Metric, sex Sex, source Source) string {
	return fmt.Sprintf("%s_%s_%s.json", metric, sex, source)
}
