package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"heatpump_analysis/internal/model"
)

// ColumnParser parses a tabular CSV export with one timestamp column and one
// value column, e.g. a day-ahead price file:
//
//	timestamp,price_eur_mwh
//	2024-01-01T00:00:00Z,0.10
//
// or an emission-factor export in kg/kWh (Scale 1000 yields g/kWh):
//
//	validfrom (UTC),emissionfactor
//	2024-01-01 00:00:00,0.2481
type ColumnParser struct {
	Kind        model.Kind
	TimeColumn  string
	ValueColumn string
	// Scale multiplies every value. Zero means 1.
	Scale float64
	// Location interprets timestamps that carry no zone. Nil rejects them.
	Location *time.Location
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

func (p *ColumnParser) Parse(r io.Reader) (model.Series, error) {
	series := model.NewSeries(p.Kind)

	cr := csv.NewReader(r)
	if p.Comma != 0 {
		cr.Comma = p.Comma
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return series, fmt.Errorf("reading CSV header: %w", err)
	}
	timeIdx, valueIdx, err := p.columnIndexes(header)
	if err != nil {
		return series, err
	}

	lineNum := 1 // header was line 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return series, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		point, err := p.parseRecord(record, timeIdx, valueIdx, lineNum)
		if errors.Is(err, ErrNaiveTimestamp) {
			return series, err
		}
		if err != nil {
			// Skip unparseable rows (e.g. "n/e" or empty values)
			continue
		}
		series.Points = append(series.Points, point)
	}

	if len(series.Points) == 0 {
		return series, fmt.Errorf("%s column %q: %w", p.Kind, p.ValueColumn, ErrNoData)
	}
	return series, nil
}

func (p *ColumnParser) columnIndexes(header []string) (int, int, error) {
	timeIdx, valueIdx := -1, -1
	for i, col := range header {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		switch {
		case strings.EqualFold(name, p.TimeColumn):
			timeIdx = i
		case strings.EqualFold(name, p.ValueColumn):
			valueIdx = i
		}
	}

	if timeIdx < 0 {
		return 0, 0, fmt.Errorf("time column %q not in header %v: %w", p.TimeColumn, header, ErrMissingColumn)
	}
	if valueIdx < 0 {
		return 0, 0, fmt.Errorf("value column %q not in header %v: %w", p.ValueColumn, header, ErrMissingColumn)
	}
	return timeIdx, valueIdx, nil
}

func (p *ColumnParser) parseRecord(record []string, timeIdx, valueIdx, lineNum int) (model.Point, error) {
	if timeIdx >= len(record) || valueIdx >= len(record) {
		return model.Point{}, fmt.Errorf("line %d: expected at least %d fields, got %d", lineNum, max(timeIdx, valueIdx)+1, len(record))
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("line %d: parsing value %q: %w", lineNum, record[valueIdx], err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return model.Point{}, fmt.Errorf("line %d: non-finite value %q", lineNum, record[valueIdx])
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[timeIdx]), p.Location)
	if err != nil {
		return model.Point{}, fmt.Errorf("line %d: %w", lineNum, err)
	}

	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	return model.Point{Time: ts, Value: value * scale}, nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseTimestamp accepts zoned layouts, zone-less layouts interpreted in loc,
// and Unix epoch seconds.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, s); err != nil {
			continue
		}
		if loc == nil {
			return time.Time{}, fmt.Errorf("%q: %w", s, ErrNaiveTimestamp)
		}
		return time.ParseInLocation(layout, s, loc)
	}
	return parseUnixTimestamp(s)
}

// parseUnixTimestamp parses a Unix epoch float (seconds) into a time.Time.
func parseUnixTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q as timestamp: %w", s, err)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
