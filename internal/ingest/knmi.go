package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"heatpump_analysis/internal/model"
)

// KNMIParser parses KNMI hourly station exports (uurgeg_*.txt or the text
// output of the hourly data script service).
//
// Expected format:
//
//	# STN,YYYYMMDD,   HH,    T
//	  260,20240101,    1,   75
//
// Lines before the header are free text. T is in 0.1 °C. HH (1..24) labels
// the hour ending at HH UT.
type KNMIParser struct {
	// StationID keeps only rows of this station. Zero keeps all.
	StationID int
}

func (p *KNMIParser) Parse(r io.Reader) (model.Series, error) {
	series := model.NewSeries(model.KindTemperature)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var cols map[string]int
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if cols == nil {
			if h, ok := parseKNMIHeader(line); ok {
				if err := validateKNMIHeader(h); err != nil {
					return series, err
				}
				cols = h
			}
			continue
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		point, station, err := parseKNMIRecord(strings.Split(line, ","), cols, lineNum)
		if err != nil {
			// Skip rows without a temperature reading
			continue
		}
		if p.StationID != 0 && station != p.StationID {
			continue
		}
		series.Points = append(series.Points, point)
	}
	if err := scanner.Err(); err != nil {
		return series, fmt.Errorf("reading line %d: %w", lineNum, err)
	}
	if cols == nil {
		return series, fmt.Errorf("no \"STN,YYYYMMDD,HH\" header found: %w", ErrMissingColumn)
	}
	if len(series.Points) == 0 {
		return series, fmt.Errorf("station %d: %w", p.StationID, ErrNoData)
	}
	return series, nil
}

func parseKNMIHeader(line string) (map[string]int, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if !strings.HasPrefix(line, "STN,") {
		return nil, false
	}
	cols := make(map[string]int)
	for i, name := range strings.Split(line, ",") {
		cols[strings.TrimSpace(name)] = i
	}
	return cols, true
}

func validateKNMIHeader(cols map[string]int) error {
	for _, name := range []string{"STN", "YYYYMMDD", "HH", "T"} {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("expected column %q in KNMI header: %w", name, ErrMissingColumn)
		}
	}
	return nil
}

func parseKNMIRecord(fields []string, cols map[string]int, lineNum int) (model.Point, int, error) {
	field := func(name string) (string, error) {
		idx := cols[name]
		if idx >= len(fields) {
			return "", fmt.Errorf("line %d: missing %s field", lineNum, name)
		}
		return strings.TrimSpace(fields[idx]), nil
	}

	raw := make(map[string]int, 4)
	for _, name := range []string{"STN", "HH", "T"} {
		s, err := field(name)
		if err != nil {
			return model.Point{}, 0, err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.Point{}, 0, fmt.Errorf("line %d: parsing %s %q: %w", lineNum, name, s, err)
		}
		raw[name] = v
	}

	date, err := field("YYYYMMDD")
	if err != nil {
		return model.Point{}, 0, err
	}
	day, err := time.Parse("20060102", date)
	if err != nil {
		return model.Point{}, 0, fmt.Errorf("line %d: parsing date %q: %w", lineNum, date, err)
	}
	ts, err := KNMIHour(day, raw["HH"])
	if err != nil {
		return model.Point{}, 0, fmt.Errorf("line %d: %w", lineNum, err)
	}

	return model.Point{Time: ts, Value: TenthsToCelsius(raw["T"])}, raw["STN"], nil
}

// KNMIHour converts a KNMI day and hour label (1..24, hour ending at HH UT)
// into the UTC start of that hour.
func KNMIHour(day time.Time, hh int) (time.Time, error) {
	if hh < 1 || hh > 24 {
		return time.Time{}, fmt.Errorf("hour %d outside 1..24", hh)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hh-1, 0, 0, 0, time.UTC), nil
}

// TenthsToCelsius converts KNMI's 0.1 °C integer units.
func TenthsToCelsius(v int) float64 {
	return float64(v) * 0.1
}
