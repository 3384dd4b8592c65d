package report

import (
	"fmt"
	"io"

	"heatpump_analysis/internal/pipeline"
)

// PrintSummary writes the annual, monthly and per-temperature tables.
func PrintSummary(w io.Writer, res *pipeline.Result, meta Meta) {
	s := res.Summary
	fmt.Fprintln(w, "Heat Pump Annual Analysis")
	fmt.Fprintf(w, "  Station %d, %s to %s (%d h), run %s\n\n",
		meta.Settings.StationID, meta.Settings.Start, meta.Settings.End, s.Hours, meta.RunID)

	fmt.Fprintf(w, "  Temperature: mean %.1f °C, min %.1f °C, max %.1f °C\n", s.MeanTempC, s.MinTempC, s.MaxTempC)
	fmt.Fprintf(w, "  Day-ahead price: mean %.2f EUR/MWh; carbon intensity: mean %.0f g/kWh\n\n", s.MeanPrice, s.MeanCarbon)

	fmt.Fprintf(w, "   %-30s │ %12s │ %12s\n", "", "Heating", "Cooling")
	fmt.Fprintf(w, "  ────────────────────────────────┼──────────────┼─────────────\n")
	for _, m := range modeMetrics {
		fmt.Fprintf(w, "   %-30s │ %12.2f │ %12.2f\n", m.label, m.value(s.Heating), m.value(s.Cooling))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Total electrical input: %s\n", formatKWh(s.InputKWh))
	fmt.Fprintf(w, "  Total cost:             %.2f EUR (%.2f EUR/MWh)\n", s.CostEUR, s.AveragePriceEUR)
	fmt.Fprintf(w, "  Total emissions:        %.1f kg CO2\n", s.EmissionsKg)
	fmt.Fprintf(w, "  Gas equivalent:         %.0f m³/year\n\n", s.GasEquivalentM3(meta.Settings.GasKWhPerM3))

	if len(res.Monthly) > 0 {
		fmt.Fprintln(w, "  Monthly:")
		fmt.Fprintf(w, "   %7s │ %7s │ %10s │ %10s │ %6s │ %9s\n", "Month", "Temp", "Demand", "Input", "COP", "Cost")
		fmt.Fprintf(w, "  ─────────┼─────────┼────────────┼────────────┼────────┼──────────\n")
		for _, p := range res.Monthly {
			fmt.Fprintf(w, "   %7s │ %5.1f°C │ %10s │ %10s │ %6.2f │ %9.2f\n",
				p.Month.Format("2006-01"), p.MeanTempC, formatKWh(p.DemandKWh), formatKWh(p.InputKWh),
				p.COP(), p.CostEUR)
		}
		fmt.Fprintln(w)
	}

	if len(res.Bins) > 0 {
		fmt.Fprintln(w, "  COP by Temperature:")
		fmt.Fprintf(w, "   %16s │ %6s │ %7s │ %10s\n", "Temp Range", "COP", "Hours", "Input")
		fmt.Fprintf(w, "  ─────────────────┼────────┼─────────┼───────────\n")
		for _, b := range res.Bins {
			fmt.Fprintf(w, "   %4.0f to %3.0f °C  │ %6.2f │ %7d │ %10s\n",
				b.MinC, b.MaxC, b.COP, b.Hours, formatKWh(b.InputKWh))
		}
	}
}

func formatKWh(v float64) string {
	if v >= 1000 {
		return fmt.Sprintf("%.1f MWh", v/1000)
	}
	return fmt.Sprintf("%.1f kWh", v)
}
