package report

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"heatpump_analysis/internal/aggregate"
	"heatpump_analysis/internal/pipeline"
)

// Metrics holds the annual summary as gauges on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	info         *prometheus.GaugeVec
	hours        prometheus.Gauge
	demand       *prometheus.GaugeVec
	input        *prometheus.GaugeVec
	seasonalCOP  *prometheus.GaugeVec
	cost         *prometheus.GaugeVec
	emissions    *prometheus.GaugeVec
	activeHours  *prometheus.GaugeVec
	clampedHours *prometheus.GaugeVec
	gas          prometheus.Gauge
	generated    prometheus.Gauge
}

func NewMetrics() *Metrics {
	mode := []string{"mode"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_analysis_info",
			Help: "Analysis run identity, always 1.",
		}, []string{"run_id", "station", "start", "end"}),
		hours: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heatpump_analysis_hours",
			Help: "Hours covered by the analysis.",
		}),
		demand: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_thermal_demand_kwh",
			Help: "Annual thermal demand by mode.",
		}, mode),
		input: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_electrical_input_kwh",
			Help: "Annual electrical input by mode.",
		}, mode),
		seasonalCOP: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_seasonal_cop",
			Help: "Thermal demand over electrical input by mode.",
		}, mode),
		cost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_cost_eur",
			Help: "Annual electricity cost at day-ahead prices by mode.",
		}, mode),
		emissions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_emissions_kg",
			Help: "Annual CO2 emissions of the electrical input by mode.",
		}, mode),
		activeHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_active_hours",
			Help: "Hours with non-zero demand by mode.",
		}, mode),
		clampedHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heatpump_cop_clamped_hours",
			Help: "Active hours whose COP was raised to the floor, by mode.",
		}, mode),
		gas: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heatpump_gas_equivalent_m3",
			Help: "Natural gas volume delivering the same heating demand.",
		}),
		generated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heatpump_analysis_generated_timestamp_seconds",
			Help: "Unix time the analysis finished.",
		}),
	}
	m.registry.MustRegister(
		m.info, m.hours, m.demand, m.input, m.seasonalCOP, m.cost,
		m.emissions, m.activeHours, m.clampedHours, m.gas, m.generated,
	)
	return m
}

// Update sets every gauge from res.
func (m *Metrics) Update(res *pipeline.Result, meta Meta) {
	s := res.Summary
	m.info.WithLabelValues(meta.RunID, strconv.Itoa(meta.Settings.StationID),
		meta.Settings.Start, meta.Settings.End).Set(1)
	m.hours.Set(float64(s.Hours))
	m.setMode("heating", s.Heating)
	m.setMode("cooling", s.Cooling)
	m.gas.Set(s.GasEquivalentM3(meta.Settings.GasKWhPerM3))
	m.generated.Set(float64(meta.Generated.Unix()))
}

func (m *Metrics) setMode(mode string, ms aggregate.ModeSummary) {
	m.demand.WithLabelValues(mode).Set(ms.DemandKWh)
	m.input.WithLabelValues(mode).Set(ms.InputKWh)
	m.seasonalCOP.WithLabelValues(mode).Set(ms.SeasonalCOP)
	m.cost.WithLabelValues(mode).Set(ms.CostEUR)
	m.emissions.WithLabelValues(mode).Set(ms.EmissionsKg)
	m.activeHours.WithLabelValues(mode).Set(float64(ms.ActiveHours))
	m.clampedHours.WithLabelValues(mode).Set(float64(ms.ClampedHours))
}

// WriteMetrics writes the summary in the node_exporter textfile format.
func WriteMetrics(path string, res *pipeline.Result, meta Meta) error {
	m := NewMetrics()
	m.Update(res, meta)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
