// Package report renders a finished analysis as a workbook, a chart PDF,
// a Prometheus textfile and console tables.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"heatpump_analysis/internal/aggregate"
	"heatpump_analysis/internal/config"
)

// Meta identifies the run an artifact belongs to.
type Meta struct {
	RunID     string
	Generated time.Time
	Settings  config.Settings
}

// modeMetric is one row of the per-mode summary table.
type modeMetric struct {
	label string
	value func(aggregate.ModeSummary) float64
}

var modeMetrics = []modeMetric{
	{"Thermal demand (kWh)", func(m aggregate.ModeSummary) float64 { return m.DemandKWh }},
	{"Mean demand (kW)", func(m aggregate.ModeSummary) float64 { return m.MeanDemandKW }},
	{"Mean demand when running (kW)", func(m aggregate.ModeSummary) float64 { return m.ActiveMeanKW }},
	{"Peak demand (kW)", func(m aggregate.ModeSummary) float64 { return m.PeakDemandKW }},
	{"Active hours", func(m aggregate.ModeSummary) float64 { return float64(m.ActiveHours) }},
	{"Electrical input (kWh)", func(m aggregate.ModeSummary) float64 { return m.InputKWh }},
	{"Mean input (kW)", func(m aggregate.ModeSummary) float64 { return m.MeanInputKW }},
	{"Mean input when running (kW)", func(m aggregate.ModeSummary) float64 { return m.ActiveMeanInputKW }},
	{"Peak input (kW)", func(m aggregate.ModeSummary) float64 { return m.PeakInputKW }},
	{"Seasonal COP", func(m aggregate.ModeSummary) float64 { return m.SeasonalCOP }},
	{"Min COP", func(m aggregate.ModeSummary) float64 { return m.MinCOP }},
	{"Max COP", func(m aggregate.ModeSummary) float64 { return m.MaxCOP }},
	{"Cost (EUR)", func(m aggregate.ModeSummary) float64 { return m.CostEUR }},
	{"Weighted price (EUR/MWh)", func(m aggregate.ModeSummary) float64 { return m.PriceEURPerMWh }},
	{"Emissions (kg CO2)", func(m aggregate.ModeSummary) float64 { return m.EmissionsKg }},
	{"Emission intensity (g/kWh)", func(m aggregate.ModeSummary) float64 { return m.IntensityGPerKWh }},
	{"Clamped COP hours", func(m aggregate.ModeSummary) float64 { return float64(m.ClampedHours) }},
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place, so a failed run never leaves a partial artifact.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving %s into place: %w", path, err)
	}
	return nil
}
