package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"heatpump_analysis/internal/pipeline"
)

const (
	sheetHourly   = "hourly"
	sheetSummary  = "summary"
	sheetMonthly  = "monthly"
	sheetBins     = "temperature_bins"
	sheetSettings = "settings"
)

var hourlyHeader = []interface{}{
	"Time (UTC)", "Temperature (°C)", "Price (EUR/MWh)", "Carbon intensity (g/kWh)",
	"Heating deficit (K)", "Cooling excess (K)",
	"Heat demand (kW)", "Cool demand (kW)",
	"Heat COP", "Cool COP", "Heat COP clamped", "Cool COP clamped",
	"Heat input (kW)", "Cool input (kW)",
	"Heating cost (EUR)", "Cooling cost (EUR)",
	"Heating emissions (g)", "Cooling emissions (g)",
}

// WriteWorkbook saves the hourly table and all summaries as an XLSX file.
func WriteWorkbook(path string, res *pipeline.Result, meta Meta) error {
	f, err := BuildWorkbook(res, meta)
	if err != nil {
		return err
	}
	defer f.Close()

	return writeAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

// BuildWorkbook assembles the workbook in memory.
func BuildWorkbook(res *pipeline.Result, meta Meta) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetHourly); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetSummary, sheetMonthly, sheetBins, sheetSettings} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	steps := []struct {
		name string
		fn   func(*excelize.File) error
	}{
		{sheetHourly, func(f *excelize.File) error { return writeHourly(f, res) }},
		{sheetSummary, func(f *excelize.File) error { return writeSummary(f, res, meta) }},
		{sheetMonthly, func(f *excelize.File) error { return writeMonthly(f, res) }},
		{sheetBins, func(f *excelize.File) error { return writeBins(f, res) }},
		{sheetSettings, func(f *excelize.File) error { return writeSettings(f, meta) }},
	}
	for _, step := range steps {
		if err := step.fn(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", step.name, err)
		}
	}
	return f, nil
}

func writeHourly(f *excelize.File, res *pipeline.Result) error {
	dateFmt := "yyyy-mm-dd hh:mm"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheetHourly)
	if err != nil {
		return err
	}
	if err := sw.SetColWidth(1, 1, 18); err != nil {
		return err
	}
	if err := sw.SetRow("A1", hourlyHeader); err != nil {
		return err
	}

	for i, r := range res.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			excelize.Cell{StyleID: dateStyle, Value: r.Time.UTC()},
			r.TemperatureC, r.PriceEURPerMWh, r.CarbonGPerKWh,
			r.HeatingDeficitK, r.CoolingExcessK,
			r.HeatDemandKW, r.CoolDemandKW,
			r.HeatCOP, r.CoolCOP, r.HeatCOPClamped, r.CoolCOPClamped,
			r.HeatInputKW, r.CoolInputKW,
			r.HeatCostEUR, r.CoolCostEUR,
			r.HeatEmissionsG, r.CoolEmissionsG,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeSummary(f *excelize.File, res *pipeline.Result, meta Meta) error {
	s := res.Summary
	rows := [][]interface{}{
		{"Metric", "Heating", "Cooling"},
	}
	for _, m := range modeMetrics {
		rows = append(rows, []interface{}{m.label, m.value(s.Heating), m.value(s.Cooling)})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Period start", s.Start.UTC().Format(time.RFC3339)},
		[]interface{}{"Period end", s.End.UTC().Format(time.RFC3339)},
		[]interface{}{"Hours", s.Hours},
		[]interface{}{"Mean temperature (°C)", s.MeanTempC},
		[]interface{}{"Min temperature (°C)", s.MinTempC},
		[]interface{}{"Max temperature (°C)", s.MaxTempC},
		[]interface{}{"Mean price (EUR/MWh)", s.MeanPrice},
		[]interface{}{"Mean carbon intensity (g/kWh)", s.MeanCarbon},
		[]interface{}{"Total thermal demand (kWh)", s.DemandKWh},
		[]interface{}{"Total electrical input (kWh)", s.InputKWh},
		[]interface{}{"Combined COP", s.COP()},
		[]interface{}{"Total cost (EUR)", s.CostEUR},
		[]interface{}{"Weighted price (EUR/MWh)", s.AveragePriceEUR},
		[]interface{}{"Total emissions (kg CO2)", s.EmissionsKg},
		[]interface{}{"Gas equivalent (m³)", s.GasEquivalentM3(meta.Settings.GasKWhPerM3)},
	)
	if err := setRows(f, sheetSummary, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheetSummary, "A", "A", 32)
}

func writeMonthly(f *excelize.File, res *pipeline.Result) error {
	rows := [][]interface{}{{
		"Month", "Hours", "Mean temperature (°C)",
		"Heat demand (kWh)", "Cool demand (kWh)", "Electrical input (kWh)",
		"Heating COP", "Cooling COP", "COP", "Cost (EUR)", "Weighted price (EUR/MWh)", "Emissions (kg CO2)",
	}}
	for _, p := range res.Monthly {
		rows = append(rows, []interface{}{
			p.Month.Format("2006-01"), p.Hours, p.MeanTempC,
			p.Heating.DemandKWh, p.Cooling.DemandKWh, p.InputKWh,
			p.Heating.SeasonalCOP, p.Cooling.SeasonalCOP, p.COP(), p.CostEUR, p.AveragePriceEUR, p.EmissionsKg,
		})
	}
	return setRows(f, sheetMonthly, rows)
}

func writeBins(f *excelize.File, res *pipeline.Result) error {
	rows := [][]interface{}{{
		"From (°C)", "To (°C)", "Hours", "Heat demand (kWh)", "Cool demand (kWh)",
		"Electrical input (kWh)", "COP", "Mean price (EUR/MWh)", "Cost (EUR)", "Emissions (kg CO2)",
	}}
	for _, b := range res.Bins {
		rows = append(rows, []interface{}{
			b.MinC, b.MaxC, b.Hours, b.HeatDemandKWh, b.CoolDemandKWh,
			b.InputKWh, b.COP, b.MeanPriceEUR, b.CostEUR, b.EmissionsKg,
		})
	}
	return setRows(f, sheetBins, rows)
}

func writeSettings(f *excelize.File, meta Meta) error {
	rows := [][]interface{}{
		{"Setting", "Value"},
		{"run_id", meta.RunID},
		{"generated", meta.Generated.UTC().Format(time.RFC3339)},
	}
	flat, err := flattenSettings(meta.Settings)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []interface{}{k, flat[k]})
	}
	if err := setRows(f, sheetSettings, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheetSettings, "A", "A", 36)
}

// flattenSettings turns the YAML form of v into dotted keys, e.g.
// "model.heating.setpoint_c".
func flattenSettings(v interface{}) (map[string]interface{}, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]interface{}) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
