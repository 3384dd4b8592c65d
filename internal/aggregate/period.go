package aggregate

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"heatpump_analysis/internal/thermal"
)

// Period is the summary of one calendar month (UTC).
type Period struct {
	Month time.Time
	Summary
}

// Monthly splits rows by calendar month. Rows must be in time order.
func Monthly(rows []thermal.Row) []Period {
	var periods []Period
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && sameMonth(rows[i].Time, rows[start].Time) {
			continue
		}
		t := rows[start].Time.UTC()
		periods = append(periods, Period{
			Month:   time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC),
			Summary: Summarize(rows[start:i]),
		})
		start = i
	}
	return periods
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// TemperatureBin groups hours whose outdoor temperature falls in
// [MinC, MaxC).
type TemperatureBin struct {
	MinC, MaxC    float64
	Hours         int
	HeatDemandKWh float64
	CoolDemandKWh float64
	InputKWh      float64
	COP           float64
	MeanPriceEUR  float64
	CostEUR       float64
	EmissionsKg   float64
}

// ByTemperature buckets rows by outdoor temperature in steps of width °C.
// Bins without hours are omitted.
func ByTemperature(rows []thermal.Row, width float64) []TemperatureBin {
	if width <= 0 || len(rows) == 0 {
		return nil
	}

	type accum struct {
		bin    TemperatureBin
		prices []float64
	}
	bins := make(map[int]*accum)
	for _, r := range rows {
		idx := int(math.Floor(r.TemperatureC / width))
		a, ok := bins[idx]
		if !ok {
			a = &accum{bin: TemperatureBin{MinC: float64(idx) * width, MaxC: float64(idx+1) * width}}
			bins[idx] = a
		}
		a.bin.Hours++
		a.bin.HeatDemandKWh += r.HeatDemandKW
		a.bin.CoolDemandKWh += r.CoolDemandKW
		a.bin.InputKWh += r.HeatInputKW + r.CoolInputKW
		a.bin.CostEUR += r.HeatCostEUR + r.CoolCostEUR
		a.bin.EmissionsKg += (r.HeatEmissionsG + r.CoolEmissionsG) / 1000
		a.prices = append(a.prices, r.PriceEURPerMWh)
	}

	indices := make([]int, 0, len(bins))
	for idx := range bins {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]TemperatureBin, 0, len(indices))
	for _, idx := range indices {
		a := bins[idx]
		a.bin.COP = safeDivide(a.bin.HeatDemandKWh+a.bin.CoolDemandKWh, a.bin.InputKWh)
		a.bin.MeanPriceEUR = stat.Mean(a.prices, nil)
		out = append(out, a.bin)
	}
	return out
}
