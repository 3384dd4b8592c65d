// Package aggregate folds hourly rows into annual, monthly and
// per-temperature totals.
package aggregate

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"heatpump_analysis/internal/thermal"
)

// DefaultGasKWhPerM3 is the heat content of one cubic metre of natural gas.
const DefaultGasKWhPerM3 = 10.0

// ModeSummary holds the totals for heating or cooling. Energy is in kWh
// (one row is one hour at the given kW).
type ModeSummary struct {
	DemandKWh         float64
	MeanDemandKW      float64
	ActiveMeanKW      float64
	PeakDemandKW      float64
	ActiveHours       int
	InputKWh          float64
	MeanInputKW       float64
	ActiveMeanInputKW float64
	PeakInputKW       float64
	SeasonalCOP       float64
	MinCOP            float64
	MaxCOP            float64
	CostEUR           float64
	PriceEURPerMWh    float64 // volume weighted
	EmissionsKg       float64
	IntensityGPerKWh  float64 // volume weighted
	ClampedHours      int
}

type Summary struct {
	Hours           int
	Start, End      time.Time
	MeanTempC       float64
	MinTempC        float64
	MaxTempC        float64
	MeanPrice       float64
	MeanCarbon      float64
	Heating         ModeSummary
	Cooling         ModeSummary
	InputKWh        float64
	CostEUR         float64
	EmissionsKg     float64
	DemandKWh       float64
	AveragePriceEUR float64 // EUR/MWh over all input
}

// COP is the combined heating and cooling COP, total demand over total
// input. 0 without input.
func (s Summary) COP() float64 {
	return safeDivide(s.DemandKWh, s.InputKWh)
}

// GasEquivalentM3 is the gas volume that would deliver the heating demand.
func (s Summary) GasEquivalentM3(kWhPerM3 float64) float64 {
	if kWhPerM3 <= 0 {
		kWhPerM3 = DefaultGasKWhPerM3
	}
	return safeDivide(s.Heating.DemandKWh, kWhPerM3)
}

type modeAcc struct {
	demand, input, cost, emissions float64
	peakDemand, peakInput          float64
	minCOP, maxCOP                 float64
	active, clamped                int
}

func (a *modeAcc) add(demand, input, cop, cost, emissions float64, clamped bool) {
	if demand <= 0 {
		return
	}
	if clamped {
		a.clamped++
	}
	if a.active == 0 || cop < a.minCOP {
		a.minCOP = cop
	}
	if a.active == 0 || cop > a.maxCOP {
		a.maxCOP = cop
	}
	a.active++
	a.demand += demand
	a.input += input
	a.cost += cost
	a.emissions += emissions
	a.peakDemand = max(a.peakDemand, demand)
	a.peakInput = max(a.peakInput, input)
}

func (a *modeAcc) summary(hours int) ModeSummary {
	return ModeSummary{
		DemandKWh:         a.demand,
		MeanDemandKW:      safeDivide(a.demand, float64(hours)),
		ActiveMeanKW:      safeDivide(a.demand, float64(a.active)),
		PeakDemandKW:      a.peakDemand,
		ActiveHours:       a.active,
		InputKWh:          a.input,
		MeanInputKW:       safeDivide(a.input, float64(hours)),
		ActiveMeanInputKW: safeDivide(a.input, float64(a.active)),
		PeakInputKW:       a.peakInput,
		SeasonalCOP:       safeDivide(a.demand, a.input),
		MinCOP:            a.minCOP,
		MaxCOP:            a.maxCOP,
		CostEUR:           a.cost,
		PriceEURPerMWh:    safeDivide(a.cost*1000, a.input),
		EmissionsKg:       a.emissions / 1000,
		IntensityGPerKWh:  safeDivide(a.emissions, a.input),
		ClampedHours:      a.clamped,
	}
}

// Summarize folds rows in one pass. Ratios whose denominator is zero are
// reported as 0.
func Summarize(rows []thermal.Row) Summary {
	var s Summary
	if len(rows) == 0 {
		return s
	}

	temps := make([]float64, len(rows))
	prices := make([]float64, len(rows))
	carbon := make([]float64, len(rows))
	var heat, cool modeAcc
	for i, r := range rows {
		temps[i] = r.TemperatureC
		prices[i] = r.PriceEURPerMWh
		carbon[i] = r.CarbonGPerKWh
		heat.add(r.HeatDemandKW, r.HeatInputKW, r.HeatCOP, r.HeatCostEUR, r.HeatEmissionsG, r.HeatCOPClamped)
		cool.add(r.CoolDemandKW, r.CoolInputKW, r.CoolCOP, r.CoolCostEUR, r.CoolEmissionsG, r.CoolCOPClamped)
	}

	s.Hours = len(rows)
	s.Start = rows[0].Time
	s.End = rows[len(rows)-1].Time
	s.MeanTempC = stat.Mean(temps, nil)
	s.MinTempC = floats.Min(temps)
	s.MaxTempC = floats.Max(temps)
	s.MeanPrice = stat.Mean(prices, nil)
	s.MeanCarbon = stat.Mean(carbon, nil)
	s.Heating = heat.summary(s.Hours)
	s.Cooling = cool.summary(s.Hours)

	s.DemandKWh = s.Heating.DemandKWh + s.Cooling.DemandKWh
	s.InputKWh = s.Heating.InputKWh + s.Cooling.InputKWh
	s.CostEUR = s.Heating.CostEUR + s.Cooling.CostEUR
	s.EmissionsKg = s.Heating.EmissionsKg + s.Cooling.EmissionsKg
	s.AveragePriceEUR = safeDivide(s.CostEUR*1000, s.InputKWh)
	return s
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
