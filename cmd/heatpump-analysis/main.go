// heatpump-analysis models a year of heat-pump operation from KNMI hourly
// temperature, day-ahead electricity prices and grid carbon intensity, and
// writes the hourly table, summaries and charts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"heatpump_analysis/internal/align"
	"heatpump_analysis/internal/config"
	"heatpump_analysis/internal/logging"
	"heatpump_analysis/internal/pipeline"
	"heatpump_analysis/internal/report"
)

type cliOptions struct {
	configPath      string
	temperatureFile string
	priceFile       string
	quiet           bool
}

func newFlagSet(s *config.Settings, o *cliOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("heatpump-analysis", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "YAML settings file")
	fs.IntVarP(&s.StationID, "station", "s", s.StationID, "KNMI station number (260 = De Bilt)")
	fs.StringVar(&s.Start, "start", s.Start, "first day (YYYY-MM-DD)")
	fs.StringVar(&s.End, "end", s.End, "last day, inclusive (YYYY-MM-DD)")
	fs.Float64Var(&s.Model.Heating.SetpointC, "heat-setpoint", s.Model.Heating.SetpointC, "heating setpoint (°C)")
	fs.Float64Var(&s.Model.Cooling.SetpointC, "cool-setpoint", s.Model.Cooling.SetpointC, "cooling setpoint (°C)")
	fs.Float64Var(&s.Model.MinCOP, "min-cop", s.Model.MinCOP, "COP floor")
	fs.Float64Var(&s.GasKWhPerM3, "gas-kwh-per-m3", s.GasKWhPerM3, "heat content of natural gas")
	fs.DurationVar(&s.AlignmentTolerance, "tolerance", s.AlignmentTolerance, "max distance to the nearest price/emission point (0 = unlimited)")
	fs.StringVar(&o.temperatureFile, "knmi-file", "", "read temperature from a KNMI uurgeg export instead of the API")
	fs.StringVar(&o.priceFile, "price-file", "", "read prices from a CSV instead of Energy-Charts")
	fs.StringVar(&s.Sources.Price.BiddingZone, "bidding-zone", s.Sources.Price.BiddingZone, "Energy-Charts bidding zone")
	fs.StringVar(&s.Sources.Emissions.Path, "emissions-file", s.Sources.Emissions.Path, "carbon intensity CSV")
	fs.StringVarP(&s.Output.Dir, "output", "o", s.Output.Dir, "output directory")
	fs.StringVar(&s.Output.Name, "name", s.Output.Name, "artifact base name")
	fs.BoolVar(&s.Output.XLSX, "xlsx", s.Output.XLSX, "write the workbook")
	fs.BoolVar(&s.Output.PDF, "pdf", s.Output.PDF, "write the chart PDF")
	fs.StringVar(&s.Output.MetricsFile, "metrics-file", s.Output.MetricsFile, "write a Prometheus textfile")
	fs.StringVar(&s.Log.Level, "log-level", s.Log.Level, "debug, info, warn or error")
	fs.BoolVar(&s.Log.Development, "dev", s.Log.Development, "human-readable logs")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "skip the console summary")
	return fs
}

// parseSettings layers defaults, the YAML file and flags, in that order.
func parseSettings(args []string) (config.Settings, cliOptions, error) {
	var opts cliOptions
	s := config.Default()
	fs := newFlagSet(&s, &opts)
	if err := fs.Parse(args); err != nil {
		return s, opts, err
	}

	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return s, opts, err
		}
		// replay the explicit flags on top of the file
		var ignored cliOptions
		over := newFlagSet(&loaded, &ignored)
		var setErr error
		fs.Visit(func(f *pflag.Flag) {
			if err := over.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
				setErr = fmt.Errorf("--%s: %w", f.Name, err)
			}
		})
		if setErr != nil {
			return s, opts, setErr
		}
		s = loaded
	}

	if opts.temperatureFile != "" {
		s.Sources.Temperature.Kind = config.SourceKNMIFile
		s.Sources.Temperature.Path = opts.temperatureFile
	}
	if opts.priceFile != "" {
		s.Sources.Price.Kind = config.SourceFile
		s.Sources.Price.File.Path = opts.priceFile
	}
	return s, opts, nil
}

// errSettings marks failures before any work starts.
var errSettings = errors.New("invalid settings")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
	case errors.Is(err, errSettings):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run performs one analysis. Artifacts are written only after the whole
// pipeline succeeded.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	settings, opts, err := parseSettings(args)
	if errors.Is(err, pflag.ErrHelp) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errSettings, err)
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w:\n%w", errSettings, err)
	}
	period, err := settings.Period()
	if err != nil {
		return fmt.Errorf("%w: %w", errSettings, err)
	}

	logger, err := logging.New(settings.Log.Level, settings.Log.Development)
	if err != nil {
		return fmt.Errorf("%w: %w", errSettings, err)
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	sources, err := buildSources(settings, logger)
	if err != nil {
		return fmt.Errorf("%w: sources: %w", errSettings, err)
	}

	logger.Info("starting analysis",
		zap.Int("station", settings.StationID),
		zap.String("start", settings.Start),
		zap.String("end", settings.End),
		zap.String("temperature", settings.Sources.Temperature.Kind),
		zap.String("price", settings.Sources.Price.Kind))

	res, err := pipeline.Run(ctx, sources, pipeline.Config{
		Period:          period,
		Model:           settings.Model,
		Alignment:       align.Options{Tolerance: settings.AlignmentTolerance},
		TemperatureBinC: settings.TemperatureBinC,
	}, logger)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		return fmt.Errorf("analysis: %w", err)
	}

	meta := report.Meta{RunID: runID, Generated: time.Now(), Settings: settings}
	if err := writeArtifacts(res, meta, logger); err != nil {
		logger.Error("writing output", zap.Error(err))
		return fmt.Errorf("writing output: %w", err)
	}
	if !opts.quiet {
		report.PrintSummary(stdout, res, meta)
	}
	return nil
}

func writeArtifacts(res *pipeline.Result, meta report.Meta, logger *zap.Logger) error {
	s := meta.Settings
	if s.Output.XLSX {
		path := s.ArtifactPath(".xlsx")
		if err := report.WriteWorkbook(path, res, meta); err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
		logger.Info("wrote workbook", zap.String("path", path), zap.Int("rows", len(res.Rows)))
	}
	if s.Output.PDF {
		path := s.ArtifactPath(".pdf")
		if err := report.WriteCharts(path, res, meta); err != nil {
			return fmt.Errorf("charts: %w", err)
		}
		logger.Info("wrote charts", zap.String("path", path))
	}
	if s.Output.MetricsFile != "" {
		if err := report.WriteMetrics(s.Output.MetricsFile, res, meta); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		logger.Info("wrote metrics", zap.String("path", s.Output.MetricsFile))
	}
	return nil
}
