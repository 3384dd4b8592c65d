// Package pipeline runs one annual analysis: fetch, align, model and
// aggregate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"heatpump_analysis/internal/aggregate"
	"heatpump_analysis/internal/align"
	"heatpump_analysis/internal/model"
	"heatpump_analysis/internal/thermal"
)

var ErrEmptySeries = errors.New("no temperature data in the requested period")

// Source supplies one hourly series for a period.
type Source interface {
	Fetch(ctx context.Context, tr model.TimeRange) (model.Series, error)
}

type Sources struct {
	Temperature Source
	Price       Source
	Emissions   Source
}

type Config struct {
	Period          model.TimeRange
	Model           thermal.Model
	Alignment       align.Options
	TemperatureBinC float64
}

type Result struct {
	Period      model.TimeRange
	Temperature model.Series
	Price       model.Series // aligned to Temperature
	Carbon      model.Series // aligned to Temperature
	Rows        []thermal.Row
	Summary     aggregate.Summary
	Monthly     []aggregate.Period
	Bins        []aggregate.TemperatureBin
}

// Run executes every stage and returns nothing on the first failure.
func Run(ctx context.Context, src Sources, cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Model.Validate(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	started := time.Now()
	var temp, price, carbon model.Series
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		temp, err = fetch(gctx, "temperature", src.Temperature, cfg.Period)
		return err
	})
	g.Go(func() (err error) {
		price, err = fetch(gctx, "price", src.Price, cfg.Period)
		return err
	})
	g.Go(func() (err error) {
		carbon, err = fetch(gctx, "emissions", src.Emissions, cfg.Period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("fetched inputs",
		zap.Int("temperature", temp.Len()),
		zap.Int("price", price.Len()),
		zap.Int("emissions", carbon.Len()),
		zap.Duration("took", time.Since(started)))

	temp = temp.UTC().Sorted().InRange(cfg.Period.Start, cfg.Period.End)
	if temp.Len() == 0 {
		return nil, fmt.Errorf("%s → %s: %w",
			cfg.Period.Start.Format(time.DateOnly), cfg.Period.End.Format(time.DateOnly), ErrEmptySeries)
	}
	if err := temp.Validate(); err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	if missing := cfg.Period.Hours() - temp.Len(); missing > 0 {
		logger.Warn("temperature series has gaps", zap.Int("missing_hours", missing))
	}

	alignedPrice, err := align.Nearest(temp, price.UTC().Sorted(), cfg.Alignment)
	if err != nil {
		return nil, fmt.Errorf("aligning prices: %w", err)
	}
	alignedCarbon, err := align.Nearest(temp, carbon.UTC().Sorted(), cfg.Alignment)
	if err != nil {
		return nil, fmt.Errorf("aligning emissions: %w", err)
	}

	rows, err := cfg.Model.Evaluate(temp, alignedPrice, alignedCarbon)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Period:      cfg.Period,
		Temperature: temp,
		Price:       alignedPrice,
		Carbon:      alignedCarbon,
		Rows:        rows,
		Summary:     aggregate.Summarize(rows),
		Monthly:     aggregate.Monthly(rows),
		Bins:        aggregate.ByTemperature(rows, cfg.TemperatureBinC),
	}

	if n := res.Summary.Heating.ClampedHours + res.Summary.Cooling.ClampedHours; n > 0 {
		logger.Warn("COP clamped to floor",
			zap.Float64("min_cop", cfg.Model.MinCOP),
			zap.Int("heating_hours", res.Summary.Heating.ClampedHours),
			zap.Int("cooling_hours", res.Summary.Cooling.ClampedHours))
	}
	logger.Info("analysis complete",
		zap.Int("hours", res.Summary.Hours),
		zap.Float64("heat_demand_kwh", res.Summary.Heating.DemandKWh),
		zap.Float64("input_kwh", res.Summary.InputKWh),
		zap.Float64("cost_eur", res.Summary.CostEUR))
	return res, nil
}

func fetch(ctx context.Context, name string, src Source, tr model.TimeRange) (model.Series, error) {
	if src == nil {
		return model.Series{}, fmt.Errorf("no %s source configured", name)
	}
	s, err := src.Fetch(ctx, tr)
	if err != nil {
		return model.Series{}, fmt.Errorf("fetching %s: %w", name, err)
	}
	return s, nil
}
