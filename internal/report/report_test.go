package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"heatpump_analysis/internal/aggregate"
	"heatpump_analysis/internal/config"
	"heatpump_analysis/internal/model"
	"heatpump_analysis/internal/pipeline"
	"heatpump_analysis/internal/thermal"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// testResult covers 60 days of a temperature swinging between -5 and 30 °C.
func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	m := thermal.DefaultModel()
	hours := 60 * 24
	temps := make([]float64, hours)
	for i := range temps {
		temps[i] = float64(i%36) - 5
	}
	rows := make([]thermal.Row, hours)
	for i, temp := range temps {
		rows[i] = thermal.Row{
			Time:           t0.Add(time.Duration(i) * time.Hour),
			TemperatureC:   temp,
			PriceEURPerMWh: 50,
			CarbonGPerKWh:  300,
			Hour:           m.Hour(temp, 50, 300),
		}
	}
	return &pipeline.Result{
		Period:  model.TimeRange{Start: t0, End: t0.Add(time.Duration(hours) * time.Hour)},
		Rows:    rows,
		Summary: aggregate.Summarize(rows),
		Monthly: aggregate.Monthly(rows),
		Bins:    aggregate.ByTemperature(rows, 5),
	}
}

func testMeta() Meta {
	return Meta{
		RunID:     "0b7c6f7e-1111-4222-8333-444455556666",
		Generated: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Settings:  config.Default(),
	}
}

func TestWriteWorkbook(t *testing.T) {
	res := testResult(t)
	path := filepath.Join(t.TempDir(), "out", "analysis.xlsx")

	require.NoError(t, WriteWorkbook(path, res, testMeta()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetHourly, sheetSummary, sheetMonthly, sheetBins, sheetSettings}, f.GetSheetList())

	hourly, err := f.GetRows(sheetHourly)
	require.NoError(t, err)
	require.Len(t, hourly, len(res.Rows)+1)
	assert.Equal(t, "Time (UTC)", hourly[0][0])
	assert.Len(t, hourly[0], len(hourlyHeader))

	// 0 °C is at index 5: 6 kW demand
	demand, err := strconv.ParseFloat(hourly[6][6], 64)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, demand, 1e-9)

	label, err := f.GetCellValue(sheetSummary, "A11")
	require.NoError(t, err)
	assert.Equal(t, "Seasonal COP", label)
	cop, err := f.GetCellValue(sheetSummary, "B11")
	require.NoError(t, err)
	got, err := strconv.ParseFloat(cop, 64)
	require.NoError(t, err)
	assert.InDelta(t, res.Summary.Heating.SeasonalCOP, got, 1e-6)

	monthly, err := f.GetRows(sheetMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	assert.Equal(t, "2024-01", monthly[1][0])
	assert.Equal(t, "2024-02", monthly[2][0])
	assert.Equal(t, "COP", monthly[0][8])
	monthCOP, err := strconv.ParseFloat(monthly[1][8], 64)
	require.NoError(t, err)
	assert.InDelta(t, res.Monthly[0].COP(), monthCOP, 1e-6)

	bins, err := f.GetRows(sheetBins)
	require.NoError(t, err)
	assert.Len(t, bins, len(res.Bins)+1)

	settings, err := f.GetRows(sheetSettings)
	require.NoError(t, err)
	values := map[string]string{}
	for _, row := range settings[1:] {
		if len(row) == 2 {
			values[row[0]] = row[1]
		}
	}
	assert.Equal(t, testMeta().RunID, values["run_id"])
	assert.Equal(t, "260", values["station_id"])
	assert.Equal(t, "18", values["model.heating.setpoint_c"])
	assert.Equal(t, "energy-charts", values["sources.price.kind"])
}

func TestWriteWorkbook_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteWorkbook(filepath.Join(dir, "a.xlsx"), testResult(t), testMeta()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.xlsx", entries[0].Name())
}

func TestRenderCharts(t *testing.T) {
	pdf := renderCharts(testResult(t), testMeta())

	require.NoError(t, pdf.Error())
	// five panels, two per page
	assert.Equal(t, 3, pdf.PageNo())
}

func TestWriteCharts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.pdf")

	require.NoError(t, WriteCharts(path, testResult(t), testMeta()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestWriteCharts_NoCooling(t *testing.T) {
	res := testResult(t)
	res.Rows = res.Rows[:5] // -5..-1 °C only
	path := filepath.Join(t.TempDir(), "charts.pdf")

	assert.NoError(t, WriteCharts(path, res, testMeta()))
}

func TestDownsample(t *testing.T) {
	values := []float64{1, 3, 5, 7, 9}

	assert.Equal(t, values, downsample(values, 10))
	assert.Equal(t, []float64{2, 6, 9}, downsample(values, 3))
}

func TestWriteMetrics(t *testing.T) {
	res := testResult(t)
	path := filepath.Join(t.TempDir(), "textfile", "heatpump.prom")

	require.NoError(t, WriteMetrics(path, res, testMeta()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE heatpump_seasonal_cop gauge")
	assert.Contains(t, text, `heatpump_active_hours{mode="heating"} `+strconv.Itoa(res.Summary.Heating.ActiveHours))
	assert.Contains(t, text, `heatpump_analysis_hours 1440`)
	assert.Contains(t, text, `run_id="0b7c6f7e-1111-4222-8333-444455556666"`)
	assert.Contains(t, text, `heatpump_cop_clamped_hours{mode="cooling"} 0`)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer

	res := testResult(t)
	PrintSummary(&buf, res, testMeta())

	out := buf.String()
	assert.Contains(t, out, "Heat Pump Annual Analysis")
	assert.Contains(t, out, "Station 260")
	assert.Contains(t, out, "Seasonal COP")
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, fmt.Sprintf("│ %6.2f │", res.Monthly[1].COP()))
	assert.Contains(t, out, "COP by Temperature:")
}

func TestFormatKWh(t *testing.T) {
	assert.Equal(t, "999.0 kWh", formatKWh(999))
	assert.Equal(t, "1.5 MWh", formatKWh(1500))
}
