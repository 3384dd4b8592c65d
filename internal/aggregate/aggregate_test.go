package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatpump_analysis/internal/thermal"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// rows builds hourly rows from t0 at a constant price and carbon intensity.
func rows(m thermal.Model, price, carbon float64, temps ...float64) []thermal.Row {
	out := make([]thermal.Row, len(temps))
	for i, temp := range temps {
		out[i] = thermal.Row{
			Time:           t0.Add(time.Duration(i) * time.Hour),
			TemperatureC:   temp,
			PriceEURPerMWh: price,
			CarbonGPerKWh:  carbon,
			Hour:           m.Hour(temp, price, carbon),
		}
	}
	return out
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, s)
	assert.Zero(t, s.Heating.SeasonalCOP)
}

func TestSummarize_SeasonalCOPIsRatioOfSums(t *testing.T) {
	m := thermal.DefaultModel()
	rs := rows(m, 50, 400, 0, 10, 18)

	s := Summarize(rs)

	h0, h10 := m.Hour(0, 50, 400), m.Hour(10, 50, 400)
	demand := h0.HeatDemandKW + h10.HeatDemandKW
	input := h0.HeatInputKW + h10.HeatInputKW

	assert.Equal(t, 3, s.Hours)
	assert.Equal(t, 2, s.Heating.ActiveHours)
	assert.InDelta(t, demand, s.Heating.DemandKWh, 1e-9)
	assert.InDelta(t, input, s.Heating.InputKWh, 1e-9)
	assert.InDelta(t, demand/input, s.Heating.SeasonalCOP, 1e-9)
	// not the mean of hourly COPs
	assert.NotEqual(t, (h0.HeatCOP+h10.HeatCOP)/2, s.Heating.SeasonalCOP)

	assert.InDelta(t, h0.HeatCOP, s.Heating.MinCOP, 1e-9)
	assert.InDelta(t, h10.HeatCOP, s.Heating.MaxCOP, 1e-9)
	assert.InDelta(t, 6.0, s.Heating.PeakDemandKW, 1e-9)
	assert.InDelta(t, demand/3, s.Heating.MeanDemandKW, 1e-9)
	assert.InDelta(t, demand/2, s.Heating.ActiveMeanKW, 1e-9)

	assert.InDelta(t, 28.0/3, s.MeanTempC, 1e-9)
	assert.InDelta(t, 0.0, s.MinTempC, 1e-9)
	assert.InDelta(t, 18.0, s.MaxTempC, 1e-9)
	assert.Equal(t, t0, s.Start)
	assert.Equal(t, t0.Add(2*time.Hour), s.End)
}

func TestSummarize_ConstantPriceYear(t *testing.T) {
	m := thermal.DefaultModel()
	temps := make([]float64, 8760)
	for i := range temps {
		temps[i] = float64(i%40) - 5 // -5..34 °C, both modes active
	}
	rs := rows(m, 50, 300, temps...)

	s := Summarize(rs)

	var input float64
	for _, r := range rs {
		input += r.HeatInputKW + r.CoolInputKW
	}
	assert.Equal(t, 8760, s.Hours)
	assert.InDelta(t, input, s.InputKWh, 1e-6)
	assert.InDelta(t, input*0.05, s.CostEUR, 1e-6)
	assert.InDelta(t, 50.0, s.AveragePriceEUR, 1e-9)
	assert.InDelta(t, 50.0, s.Heating.PriceEURPerMWh, 1e-9)
	assert.InDelta(t, 50.0, s.Cooling.PriceEURPerMWh, 1e-9)
	assert.InDelta(t, 50.0, s.MeanPrice, 1e-9)

	assert.InDelta(t, input*300/1000, s.EmissionsKg, 1e-6)
	assert.InDelta(t, 300.0, s.Heating.IntensityGPerKWh, 1e-9)
	assert.Greater(t, s.Cooling.ActiveHours, 0)
	assert.Equal(t, 8760, s.Heating.ActiveHours+s.Cooling.ActiveHours+idleHours(rs))
}

func idleHours(rs []thermal.Row) int {
	n := 0
	for _, r := range rs {
		if r.HeatDemandKW == 0 && r.CoolDemandKW == 0 {
			n++
		}
	}
	return n
}

func TestSummarize_ZeroDenominatorsYieldZero(t *testing.T) {
	// 19 °C is inside both deadbands
	s := Summarize(rows(thermal.DefaultModel(), 50, 300, 19, 19))

	assert.Zero(t, s.Heating.SeasonalCOP)
	assert.Zero(t, s.Heating.PriceEURPerMWh)
	assert.Zero(t, s.Cooling.IntensityGPerKWh)
	assert.Zero(t, s.Heating.ActiveMeanKW)
	assert.Zero(t, s.AveragePriceEUR)
	assert.Zero(t, s.GasEquivalentM3(10))
	assert.Zero(t, s.COP())
}

func TestSummary_COPCombinesModes(t *testing.T) {
	m := thermal.DefaultModel()
	s := Summarize(rows(m, 50, 300, 0, 30))

	heat, cool := m.Hour(0, 50, 300), m.Hour(30, 50, 300)
	want := (heat.HeatDemandKW + cool.CoolDemandKW) / (heat.HeatInputKW + cool.CoolInputKW)
	assert.InDelta(t, want, s.COP(), 1e-9)
	assert.InDelta(t, s.DemandKWh/s.InputKWh, s.COP(), 1e-9)
}

func TestSummarize_CountsClampedHours(t *testing.T) {
	m := thermal.DefaultModel()
	m.MinCOP = 4 // COP at 0 °C is 3.0

	s := Summarize(rows(m, 50, 300, 0, 0, 15))

	assert.Equal(t, 2, s.Heating.ClampedHours)
	assert.InDelta(t, 4.0, s.Heating.MinCOP, 1e-9)
	assert.Zero(t, s.Cooling.ClampedHours)
}

func TestSummary_GasEquivalent(t *testing.T) {
	s := Summarize(rows(thermal.DefaultModel(), 50, 300, 0, 0))

	assert.InDelta(t, 1.2, s.GasEquivalentM3(10), 1e-9)
	assert.InDelta(t, 1.2, s.GasEquivalentM3(0), 1e-9)
	assert.InDelta(t, 1.5, s.GasEquivalentM3(8), 1e-9)
}

func TestMonthly(t *testing.T) {
	m := thermal.DefaultModel()
	rs := rows(m, 50, 300, 0, 1, 2, 3)
	start := time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC)
	for i := range rs {
		rs[i].Time = start.Add(time.Duration(i) * time.Hour)
	}

	periods := Monthly(rs)

	require.Len(t, periods, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), periods[0].Month)
	assert.Equal(t, 2, periods[0].Hours)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), periods[1].Month)
	assert.Equal(t, 2, periods[1].Hours)

	total := Summarize(rs)
	assert.InDelta(t, total.CostEUR, periods[0].CostEUR+periods[1].CostEUR, 1e-9)

	assert.Empty(t, Monthly(nil))
}

func TestByTemperature(t *testing.T) {
	m := thermal.DefaultModel()
	rs := rows(m, 50, 300, -0.5, 0.2, 0.7, 5)

	bins := ByTemperature(rs, 1)

	require.Len(t, bins, 3)
	assert.InDelta(t, -1.0, bins[0].MinC, 1e-9)
	assert.InDelta(t, 0.0, bins[0].MaxC, 1e-9)
	assert.Equal(t, 1, bins[0].Hours)
	assert.Equal(t, 2, bins[1].Hours)
	assert.InDelta(t, 5.0, bins[2].MinC, 1e-9)

	b := bins[1]
	assert.InDelta(t, rs[1].HeatDemandKW+rs[2].HeatDemandKW, b.HeatDemandKWh, 1e-9)
	assert.InDelta(t, b.HeatDemandKWh/b.InputKWh, b.COP, 1e-9)
	assert.InDelta(t, 50.0, b.MeanPriceEUR, 1e-9)

	assert.Nil(t, ByTemperature(rs, 0))
	assert.Nil(t, ByTemperature(nil, 1))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{2.0, 1.1, 1.0, 1.3}, 0.25)

	require.Len(t, bins, 5)
	assert.Equal(t, Bin{Lower: 1.0, Upper: 1.25, Count: 2}, bins[0])
	assert.Equal(t, 1, bins[1].Count)
	assert.Equal(t, 0, bins[2].Count)
	assert.Equal(t, 0, bins[3].Count)
	assert.Equal(t, Bin{Lower: 2.0, Upper: 2.25, Count: 1}, bins[4])

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 4, total)
}

func TestHistogram_Degenerate(t *testing.T) {
	assert.Nil(t, Histogram(nil, 0.25))
	assert.Nil(t, Histogram([]float64{1}, 0))

	bins := Histogram([]float64{3, 3, 3}, 0.25)
	require.Len(t, bins, 1)
	assert.Equal(t, 3, bins[0].Count)

	bins = Histogram([]float64{-0.3}, 0.25)
	require.Len(t, bins, 1)
	assert.InDelta(t, -0.5, bins[0].Lower, 1e-9)
}

func TestHistogram_InexactWidths(t *testing.T) {
	cases := []struct {
		values []float64
		width  float64
	}{
		{[]float64{1.7, 2.7}, 0.1},
		{[]float64{0.9, 2.1, 3.3}, 0.3},
		{[]float64{2.1, 4.9}, 0.7},
		{[]float64{-1.7, 0.3}, 0.1},
		{[]float64{1.2, 1.4, 1.6, 1.8}, 0.2},
	}
	for _, tc := range cases {
		var bins []Bin
		require.NotPanics(t, func() { bins = Histogram(tc.values, tc.width) }, "width %v", tc.width)
		require.NotEmpty(t, bins)

		assert.LessOrEqual(t, bins[0].Lower, tc.values[0])
		assert.Greater(t, bins[len(bins)-1].Upper, tc.values[len(tc.values)-1])
		total := 0
		for _, b := range bins {
			total += b.Count
		}
		assert.Equal(t, len(tc.values), total, "width %v", tc.width)
	}
}

func TestHistogram_SkipsNonFinite(t *testing.T) {
	bins := Histogram([]float64{math.NaN(), 1.0, math.Inf(1)}, 0.25)
	require.Len(t, bins, 1)
	assert.Equal(t, 1, bins[0].Count)

	assert.Nil(t, Histogram([]float64{math.NaN()}, 0.25))
	assert.Nil(t, Histogram([]float64{0, 1e9}, 1e-6))
}

func TestActive(t *testing.T) {
	values := []float64{3.0, 4.0, 5.0}
	demand := []float64{1.2, 0, 0.5}
	assert.Equal(t, []float64{3.0, 5.0}, Active(values, demand))
}
