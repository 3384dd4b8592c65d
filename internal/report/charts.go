package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"

	"heatpump_analysis/internal/aggregate"
	"heatpump_analysis/internal/pipeline"
)

// maxChartPoints bounds the polyline length per series; a year of hourly
// data is averaged down to this many points.
const maxChartPoints = 730

type rgb struct{ r, g, b int }

var (
	colorBlue   = rgb{31, 119, 180}
	colorOrange = rgb{255, 127, 14}
	colorGreen  = rgb{44, 160, 44}
	colorRed    = rgb{214, 39, 40}
	colorPurple = rgb{148, 103, 189}
	colorGrey   = rgb{120, 120, 120}
)

type line struct {
	name   string
	values []float64
	color  rgb
}

type hist struct {
	name  string
	bins  []aggregate.Bin
	color rgb
}

type panel struct {
	title  string
	yLabel string
	times  []time.Time
	lines  []line
	hists  []hist
}

// WriteCharts renders the chart panels to a PDF.
func WriteCharts(path string, res *pipeline.Result, meta Meta) error {
	pdf := renderCharts(res, meta)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering charts: %w", err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		return pdf.Output(w)
	})
}

func renderCharts(res *pipeline.Result, meta Meta) *gofpdf.Fpdf {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Heat pump annual analysis", false)
	pdf.SetCreator("heatpump-analysis "+meta.RunID, false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := fmt.Sprintf("Heat pump annual analysis per hour, station %d, %s to %s",
		meta.Settings.StationID, meta.Settings.Start, meta.Settings.End)
	panels := chartPanels(res, meta.Settings.HistogramBin)

	const (
		margin = 12.0
		gap    = 16.0
	)
	pageW, pageH := pdf.GetPageSize()
	panelW := pageW - 2*margin
	panelH := (pageH - 2*margin - 10 - gap) / 2

	for i, p := range panels {
		if i%2 == 0 {
			pdf.AddPage()
			pdf.SetFont("Arial", "B", 12)
			pdf.SetXY(margin, margin-4)
			pdf.CellFormat(panelW, 8, tr(title), "", 0, "C", false, 0, "")
		}
		y := margin + 10 + float64(i%2)*(panelH+gap)
		if len(p.hists) > 0 {
			drawHistograms(pdf, tr, p, margin, y, panelW, panelH)
		} else {
			drawLines(pdf, tr, p, margin, y, panelW, panelH)
		}
	}
	return pdf
}

func chartPanels(res *pipeline.Result, binWidth float64) []panel {
	n := len(res.Rows)
	times := make([]time.Time, n)
	col := func(get func(i int) float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = get(i)
		}
		return out
	}
	for i, r := range res.Rows {
		times[i] = r.Time
	}
	rows := res.Rows

	heatDemand := col(func(i int) float64 { return rows[i].HeatDemandKW })
	heatCOP := col(func(i int) float64 { return rows[i].HeatCOP })
	heatInput := col(func(i int) float64 { return rows[i].HeatInputKW })

	return []panel{
		{
			title: "Outdoor temperature and heating deficit", yLabel: "°C / K", times: times,
			lines: []line{
				{"Temperature", col(func(i int) float64 { return rows[i].TemperatureC }), colorBlue},
				{"Heating deficit", col(func(i int) float64 { return rows[i].HeatingDeficitK }), colorRed},
			},
		},
		{
			title: "Demand, COP and electrical input", yLabel: "kW / COP", times: times,
			lines: []line{
				{"Heat demand", heatDemand, colorRed},
				{"Cool demand", col(func(i int) float64 { return rows[i].CoolDemandKW }), colorBlue},
				{"Heat COP", heatCOP, colorGreen},
				{"Heat input", heatInput, colorOrange},
			},
		},
		{
			title: fmt.Sprintf("Distribution over heating hours (bin %g)", binWidth),
			hists: []hist{
				{"Heat COP", aggregate.Histogram(aggregate.Active(heatCOP, heatDemand), binWidth), colorGreen},
				{"Heat demand (kW)", aggregate.Histogram(aggregate.Active(heatDemand, heatDemand), binWidth), colorRed},
				{"Heat input (kW)", aggregate.Histogram(aggregate.Active(heatInput, heatDemand), binWidth), colorOrange},
			},
		},
		{
			title: "Emissions and grid carbon intensity", yLabel: "g / g/kWh", times: times,
			lines: []line{
				{"Heating emissions (g)", col(func(i int) float64 { return rows[i].HeatEmissionsG }), colorPurple},
				{"Cooling emissions (g)", col(func(i int) float64 { return rows[i].CoolEmissionsG }), colorBlue},
				{"Carbon intensity", col(func(i int) float64 { return rows[i].CarbonGPerKWh }), colorGrey},
			},
		},
		{
			title: "Cost and day-ahead price", yLabel: "EUR / EUR/MWh", times: times,
			lines: []line{
				{"Heating cost (EUR)", col(func(i int) float64 { return rows[i].HeatCostEUR }), colorRed},
				{"Cooling cost (EUR)", col(func(i int) float64 { return rows[i].CoolCostEUR }), colorBlue},
				{"Price (EUR/MWh)", col(func(i int) float64 { return rows[i].PriceEURPerMWh }), colorGrey},
			},
		},
	}
}

func drawLines(pdf *gofpdf.Fpdf, tr func(string) string, p panel, x, y, w, h float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	series := make([][]float64, len(p.lines))
	for i, l := range p.lines {
		series[i] = downsample(l.values, maxChartPoints)
		for _, v := range series[i] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	lo, hi = padRange(lo, hi)

	plotX, plotW := x+14, w-14
	frame(pdf, tr, p.title, plotX, y, plotW, h)
	yAxis(pdf, lo, hi, plotX, y, plotW, h)
	if p.yLabel != "" {
		label := tr(p.yLabel)
		pdf.SetFont("Arial", "", 7)
		pdf.Text(plotX+plotW-pdf.GetStringWidth(label), y-1.5, label)
	}
	timeAxis(pdf, p.times, plotX, y+h, plotW)

	yOf := func(v float64) float64 { return y + h - (v-lo)/(hi-lo)*h }
	pdf.SetLineWidth(0.2)
	for i, l := range p.lines {
		pts := series[i]
		if len(pts) < 2 {
			continue
		}
		pdf.SetDrawColor(l.color.r, l.color.g, l.color.b)
		step := plotW / float64(len(pts)-1)
		for j := 1; j < len(pts); j++ {
			pdf.Line(plotX+float64(j-1)*step, yOf(pts[j-1]), plotX+float64(j)*step, yOf(pts[j]))
		}
	}
	legend(pdf, tr, p.lines, plotX+2, y+2)
}

func drawHistograms(pdf *gofpdf.Fpdf, tr func(string) string, p panel, x, y, w, h float64) {
	frame(pdf, tr, p.title, x, y, w, h)

	const pad = 6.0
	cellW := (w - pad*float64(len(p.hists)+1)) / float64(len(p.hists))
	for i, hs := range p.hists {
		cx := x + pad + float64(i)*(cellW+pad)
		cy, ch := y+8, h-16

		pdf.SetFont("Arial", "", 7)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(cx, y+5, tr(hs.name))
		if len(hs.bins) == 0 {
			pdf.Text(cx, cy+ch/2, "no active hours")
			continue
		}

		maxCount := 0
		for _, b := range hs.bins {
			maxCount = max(maxCount, b.Count)
		}
		barW := cellW / float64(len(hs.bins))
		pdf.SetFillColor(hs.color.r, hs.color.g, hs.color.b)
		for j, b := range hs.bins {
			if b.Count == 0 {
				continue
			}
			bh := float64(b.Count) / float64(maxCount) * ch
			pdf.Rect(cx+float64(j)*barW, cy+ch-bh, barW, bh, "F")
		}

		pdf.SetDrawColor(0, 0, 0)
		pdf.Line(cx, cy+ch, cx+cellW, cy+ch)
		pdf.Text(cx, cy+ch+4, fmt.Sprintf("%.2f", hs.bins[0].Lower))
		last := fmt.Sprintf("%.2f", hs.bins[len(hs.bins)-1].Upper)
		pdf.Text(cx+cellW-pdf.GetStringWidth(last), cy+ch+4, last)
		pdf.Text(cx+1, cy+3, fmt.Sprintf("max %d h", maxCount))
	}
}

func frame(pdf *gofpdf.Fpdf, tr func(string) string, title string, x, y, w, h float64) {
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Rect(x, y, w, h, "D")
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(x, y-1.5, tr(title))
}

func yAxis(pdf *gofpdf.Fpdf, lo, hi, x, y, w, h float64) {
	pdf.SetFont("Arial", "", 6)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	const ticks = 4
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/ticks
		ty := y + h - h*float64(i)/ticks
		if i > 0 && i < ticks {
			pdf.Line(x, ty, x+w, ty)
		}
		label := fmt.Sprintf("%.1f", v)
		pdf.Text(x-pdf.GetStringWidth(label)-1, ty+1, label)
	}
}

// timeAxis labels the first point of every month.
func timeAxis(pdf *gofpdf.Fpdf, times []time.Time, x, y, w float64) {
	if len(times) < 2 {
		return
	}
	pdf.SetFont("Arial", "", 6)
	step := w / float64(len(times)-1)
	var prev time.Month
	for i, t := range times {
		t = t.UTC()
		if i > 0 && t.Month() == prev {
			continue
		}
		prev = t.Month()
		pdf.Text(x+float64(i)*step, y+3.5, t.Format("Jan"))
	}
}

func legend(pdf *gofpdf.Fpdf, tr func(string) string, lines []line, x, y float64) {
	pdf.SetFont("Arial", "", 6)
	pdf.SetLineWidth(0.6)
	for _, l := range lines {
		pdf.SetDrawColor(l.color.r, l.color.g, l.color.b)
		pdf.Line(x, y+1, x+4, y+1)
		label := tr(l.name)
		pdf.Text(x+5, y+2, label)
		x += 8 + pdf.GetStringWidth(label)
	}
	pdf.SetLineWidth(0.2)
}

// downsample averages values into at most n buckets.
func downsample(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	stride := int(math.Ceil(float64(len(values)) / float64(n)))
	out := make([]float64, 0, n)
	for i := 0; i < len(values); i += stride {
		end := min(i+stride, len(values))
		var sum float64
		for _, v := range values[i:end] {
			sum += v
		}
		out = append(out, sum/float64(end-i))
	}
	return out
}

func padRange(lo, hi float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}
