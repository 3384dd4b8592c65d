// Package config holds the settings of one analysis run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"heatpump_analysis/internal/aggregate"
	"heatpump_analysis/internal/model"
	"heatpump_analysis/internal/thermal"
)

const dateLayout = "2006-01-02"

// Source kinds.
const (
	SourceKNMIAPI      = "knmi-api"
	SourceKNMIFile     = "knmi-file"
	SourceFile         = "file"
	SourceEnergyCharts = "energy-charts"
)

// ColumnFile describes a CSV with one timestamp and one value column.
type ColumnFile struct {
	Path        string  `yaml:"path"`
	TimeColumn  string  `yaml:"time_column"`
	ValueColumn string  `yaml:"value_column"`
	Scale       float64 `yaml:"scale"`
	// Timezone applies to timestamps without an offset, e.g. "UTC" or
	// "Europe/Amsterdam".
	Timezone  string `yaml:"timezone"`
	Delimiter string `yaml:"delimiter"`
}

// Location resolves Timezone; nil when unset.
func (c ColumnFile) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Comma returns the delimiter rune, 0 for the csv default.
func (c ColumnFile) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

type TemperatureSource struct {
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	BaseURL string `yaml:"base_url"`
}

type PriceSource struct {
	Kind        string     `yaml:"kind"`
	BiddingZone string     `yaml:"bidding_zone"`
	BaseURL     string     `yaml:"base_url"`
	File        ColumnFile `yaml:"file"`
}

type Sources struct {
	Temperature TemperatureSource `yaml:"temperature"`
	Price       PriceSource       `yaml:"price"`
	Emissions   ColumnFile        `yaml:"emissions"`
}

type Output struct {
	Dir string `yaml:"dir"`
	// Name is the artifact base name; empty derives it from station and
	// period.
	Name        string `yaml:"name"`
	XLSX        bool   `yaml:"xlsx"`
	PDF         bool   `yaml:"pdf"`
	MetricsFile string `yaml:"metrics_file"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Settings is everything a run needs.
type Settings struct {
	StationID          int           `yaml:"station_id"`
	Start              string        `yaml:"start"`
	End                string        `yaml:"end"`
	Model              thermal.Model `yaml:"model"`
	GasKWhPerM3        float64       `yaml:"gas_kwh_per_m3"`
	AlignmentTolerance time.Duration `yaml:"alignment_tolerance"`
	TemperatureBinC    float64       `yaml:"temperature_bin_c"`
	HistogramBin       float64       `yaml:"histogram_bin"`
	Sources            Sources       `yaml:"sources"`
	Output             Output        `yaml:"output"`
	Log                Log           `yaml:"log"`
}

// Default returns De Bilt (station 260) for 2024 with the reference model.
func Default() Settings {
	return Settings{
		StationID:       260,
		Start:           "2024-01-01",
		End:             "2024-12-31",
		Model:           thermal.DefaultModel(),
		GasKWhPerM3:     aggregate.DefaultGasKWhPerM3,
		TemperatureBinC: 2,
		HistogramBin:    0.25,
		Sources: Sources{
			Temperature: TemperatureSource{Kind: SourceKNMIAPI},
			Price: PriceSource{
				Kind:        SourceEnergyCharts,
				BiddingZone: "NL",
				File: ColumnFile{
					TimeColumn:  "timestamp",
					ValueColumn: "price_eur_mwh",
					Scale:       1,
				},
			},
			Emissions: ColumnFile{
				Path:        "co2_emissions.csv",
				TimeColumn:  "validfrom (UTC)",
				ValueColumn: "emissionfactor",
				Scale:       1000, // kg/kWh → g/kWh
				Timezone:    "UTC",
			},
		},
		Output: Output{Dir: ".", XLSX: true, PDF: true},
		Log:    Log{Level: "info"},
	}
}

// Load reads a YAML file over Default. An empty path returns Default.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return s, nil
}

// Period returns [start day 00:00, day after end 00:00) in UTC.
func (s Settings) Period() (model.TimeRange, error) {
	start, err := time.Parse(dateLayout, s.Start)
	if err != nil {
		return model.TimeRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(dateLayout, s.End)
	if err != nil {
		return model.TimeRange{}, fmt.Errorf("end: %w", err)
	}
	return model.TimeRange{Start: start, End: end.AddDate(0, 0, 1)}, nil
}

// BaseName is the artifact file name without extension.
func (s Settings) BaseName() string {
	if s.Output.Name != "" {
		return s.Output.Name
	}
	compact := func(d string) string { return strings.ReplaceAll(d, "-", "") }
	return fmt.Sprintf("heatpump_%d_%s_%s", s.StationID, compact(s.Start), compact(s.End))
}

// ArtifactPath joins the output dir, base name and ext.
func (s Settings) ArtifactPath(ext string) string {
	return filepath.Join(s.Output.Dir, s.BaseName()+ext)
}

// Validate reports every problem at once.
func (s Settings) Validate() error {
	var errs []error

	if s.StationID <= 0 {
		errs = append(errs, fmt.Errorf("station_id must be positive, got %d", s.StationID))
	}
	if tr, err := s.Period(); err != nil {
		errs = append(errs, err)
	} else if !tr.End.After(tr.Start) {
		errs = append(errs, fmt.Errorf("end %s is before start %s", s.End, s.Start))
	}
	if err := s.Model.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.GasKWhPerM3 <= 0 {
		errs = append(errs, fmt.Errorf("gas_kwh_per_m3 must be positive, got %g", s.GasKWhPerM3))
	}
	if s.AlignmentTolerance < 0 {
		errs = append(errs, fmt.Errorf("alignment_tolerance must not be negative, got %s", s.AlignmentTolerance))
	}
	if s.TemperatureBinC <= 0 {
		errs = append(errs, fmt.Errorf("temperature_bin_c must be positive, got %g", s.TemperatureBinC))
	}
	if s.HistogramBin <= 0 {
		errs = append(errs, fmt.Errorf("histogram_bin must be positive, got %g", s.HistogramBin))
	}

	switch t := s.Sources.Temperature; t.Kind {
	case SourceKNMIAPI:
	case SourceKNMIFile:
		if t.Path == "" {
			errs = append(errs, errors.New("sources.temperature.path is required for knmi-file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown temperature source %q", t.Kind))
	}

	switch p := s.Sources.Price; p.Kind {
	case SourceEnergyCharts:
		if p.BiddingZone == "" {
			errs = append(errs, errors.New("sources.price.bidding_zone is required for energy-charts"))
		}
	case SourceFile:
		errs = append(errs, validateColumnFile("sources.price.file", p.File)...)
	default:
		errs = append(errs, fmt.Errorf("unknown price source %q", p.Kind))
	}
	errs = append(errs, validateColumnFile("sources.emissions", s.Sources.Emissions)...)

	if _, err := zapcore.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

func validateColumnFile(name string, c ColumnFile) []error {
	var errs []error
	if c.Path == "" {
		errs = append(errs, fmt.Errorf("%s.path is required", name))
	}
	if c.TimeColumn == "" || c.ValueColumn == "" {
		errs = append(errs, fmt.Errorf("%s needs time_column and value_column", name))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("%s.timezone: %w", name, err))
	}
	if utf8.RuneCountInString(c.Delimiter) > 1 {
		errs = append(errs, fmt.Errorf("%s.delimiter must be a single character", name))
	}
	return errs
}
