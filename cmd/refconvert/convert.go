package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/percentile-data/growth.report/internal/refdata"
)

// weeksPerMonth is the factor the WHO uses to place its week-indexed
// infancy releases onto the month axis.
const weeksPerMonth = 4.33

type tableKey struct {
	metric refdata.Metric
	sex    refdata.Sex
}

// filenamePattern maps a release filename fragment to the metric the file
// holds. Order matters: wtageinf must match before wtage.
type filenamePattern struct {
	fragment string
	metric   refdata.Metric
}

var whoPatterns = []filenamePattern{
	{"bmi", refdata.MetricBMIForAge},
	{"lhfa", refdata.MetricLengthForAge},
	{"wfa", refdata.MetricWeightForAge},
	{"hcfa", refdata.MetricHeadCircumferenceForAge},
	{"acfa", refdata.MetricArmCircumferenceForAge},
	{"ssfa", refdata.MetricSubscapularSkinfoldForAge},
	{"tsfa", refdata.MetricTricepsSkinfoldForAge},
	{"wfl", refdata.MetricWeightForLength},
	{"wfh", refdata.MetricWeightForHeight},
}

var cdcPatterns = []filenamePattern{
	{"wtageinf", refdata.MetricWeightForAge},
	{"wtage", refdata.MetricWeightForAge},
	{"lenageinf", refdata.MetricLengthForAge},
	{"statage", refdata.MetricHeightForAge},
	{"hcageinf", refdata.MetricHeadCircumferenceForAge},
	{"wtleninf", refdata.MetricWeightForLength},
	{"wtstat", refdata.MetricWeightForHeight},
	{"bmiage", refdata.MetricBMIForAge},
}

func metricFromFilename(name string, patterns []filenamePattern) (refdata.Metric, error) {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, p.fragment) {
			return p.metric, nil
		}
	}
	return "", fmt.Errorf("cannot tell which metric %s holds", name)
}

// sexFromFilename reads the sex from WHO-style release names. "female" is
// checked before "male" because it contains it.
func sexFromFilename(name string) (refdata.Sex, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "girls"), strings.Contains(lower, "female"):
		return refdata.SexGirls, nil
	case strings.Contains(lower, "boys"), strings.Contains(lower, "male"):
		return refdata.SexBoys, nil
	}
	return "", fmt.Errorf("cannot tell which sex %s holds", name)
}

// convertFile parses one release and appends its rows to the tables it
// feeds. A WHO release feeds exactly one table; a CDC release feeds two,
// split on the Sex column.
func convertFile(path string, source refdata.Source, tables map[tableKey][]refdata.RawRow) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return fmt.Errorf("no data rows")
	}

	header := headerIndex(records[0])
	base := filepath.Base(path)

	switch source {
	case refdata.SourceWHO:
		metric, err := metricFromFilename(base, whoPatterns)
		if err != nil {
			return err
		}
		sex, err := sexFromFilename(base)
		if err != nil {
			return err
		}
		rows, err := convertWHORecords(metric, header, records[1:])
		if err != nil {
			return err
		}
		key := tableKey{metric: metric, sex: sex}
		tables[key] = append(tables[key], rows...)
	case refdata.SourceCDC:
		metric, err := metricFromFilename(base, cdcPatterns)
		if err != nil {
			return err
		}
		bySex, err := convertCDCRecords(metric, header, records[1:])
		if err != nil {
			return err
		}
		for sex, rows := range bySex {
			key := tableKey{metric: metric, sex: sex}
			tables[key] = append(tables[key], rows...)
		}
	default:
		return fmt.Errorf("unsupported source %q", source)
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	return index
}

// cellValue returns the parsed float at the named column, nil when the
// column is absent or the cell is empty.
func cellValue(header map[string]int, record []string, column string) (*float64, error) {
	idx, ok := header[column]
	if !ok || idx >= len(record) {
		return nil, nil
	}
	cell := strings.TrimSpace(record[idx])
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return &v, nil
}

// percentileColumns fills the shared LMS and percentile fields of a raw row
// from whatever columns the release publishes. Missing columns stay nil;
// the normalizer derives what it can downstream.
func percentileColumns(header map[string]int, record []string) (refdata.RawRow, error) {
	var row refdata.RawRow
	fields := []struct {
		column string
		dst    **float64
	}{
		{"L", &row.L},
		{"M", &row.M},
		{"S", &row.S},
		{"P3", &row.P3},
		{"P10", &row.P10},
		{"P15", &row.P15},
		{"P25", &row.P25},
		{"P50", &row.P50},
		{"P75", &row.P75},
		{"P85", &row.P85},
		{"P90", &row.P90},
		{"P97", &row.P97},
	}
	for _, f := range fields {
		v, err := cellValue(header, record, f.column)
		if err != nil {
			return row, err
		}
		*f.dst = v
	}
	return row, nil
}

// resolveStatureX fills Length or Height from whichever stature column the
// release publishes. Stature is the CDC name for standing height.
func resolveStatureX(row *refdata.RawRow, header map[string]int, record []string) error {
	length, err := cellValue(header, record, "Length")
	if err != nil {
		return err
	}
	if length != nil {
		row.Length = length
		return nil
	}
	for _, column := range []string{"Height", "Stature"} {
		v, err := cellValue(header, record, column)
		if err != nil {
			return err
		}
		if v != nil {
			row.Height = v
			return nil
		}
	}
	return fmt.Errorf("no stature column")
}

func isStatureMetric(metric refdata.Metric) bool {
	return metric == refdata.MetricWeightForLength || metric == refdata.MetricWeightForHeight
}

// convertWHORecords builds raw rows from one WHO release. Week-indexed
// infancy releases are moved onto the month axis.
func convertWHORecords(metric refdata.Metric, header map[string]int, records [][]string) ([]refdata.RawRow, error) {
	rows := make([]refdata.RawRow, 0, len(records))
	for i, record := range records {
		row, err := percentileColumns(header, record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		if isStatureMetric(metric) {
			if err := resolveStatureX(&row, header, record); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			rows = append(rows, row)
			continue
		}

		month, err := cellValue(header, record, "Month")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		week, err := cellValue(header, record, "Week")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		switch {
		case month != nil:
			row.Month = month
		case week != nil:
			m := *week / weeksPerMonth
			row.Month = &m
		default:
			return nil, fmt.Errorf("row %d: no age column", i+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// convertCDCRecords builds raw rows from one CDC release, splitting on the
// Sex column: 1 is boys, 2 is girls.
func convertCDCRecords(metric refdata.Metric, header map[string]int, records [][]string) (map[refdata.Sex][]refdata.RawRow, error) {
	bySex := map[refdata.Sex][]refdata.RawRow{}
	for i, record := range records {
		sexCell, err := cellValue(header, record, "Sex")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if sexCell == nil {
			return nil, fmt.Errorf("row %d: missing Sex column", i+1)
		}
		var sex refdata.Sex
		switch *sexCell {
		case 1:
			sex = refdata.SexBoys
		case 2:
			sex = refdata.SexGirls
		default:
			return nil, fmt.Errorf("row %d: unknown sex code %g", i+1, *sexCell)
		}

		row, err := percentileColumns(header, record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		if isStatureMetric(metric) {
			if err := resolveStatureX(&row, header, record); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
		} else {
			agemos, err := cellValue(header, record, "Agemos")
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			if agemos == nil {
				return nil, fmt.Errorf("row %d: missing Agemos column", i+1)
			}
			row.Month = agemos
		}

		bySex[sex] = append(bySex[sex], row)
	}
	return bySex, nil
}

// combineRows merges releases covering the same table: rows sorted by their
// x-coordinate, with the later release winning on exact overlap.
func combineRows(rows []refdata.RawRow) []refdata.RawRow {
	sorted := append([]refdata.RawRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return rawX(sorted[i]) < rawX(sorted[j]) })

	out := make([]refdata.RawRow, 0, len(sorted))
	for _, row := range sorted {
		if n := len(out); n > 0 && rawX(out[n-1]) == rawX(row) {
			out[n-1] = row
			continue
		}
		out = append(out, row)
	}
	return out
}

func rawX(r refdata.RawRow) float64 {
	switch {
	case r.Month != nil:
		return *r.Month
	case r.Length != nil:
		return *r.Length
	case r.Height != nil:
		return *r.Height
	}
	return 0
}
