package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"heatpump_analysis/internal/config"
	"heatpump_analysis/internal/fetch"
	"heatpump_analysis/internal/ingest"
	"heatpump_analysis/internal/model"
	"heatpump_analysis/internal/pipeline"
)

func buildSources(s config.Settings, logger *zap.Logger) (pipeline.Sources, error) {
	var src pipeline.Sources
	client := fetch.NewClient(logger)

	switch t := s.Sources.Temperature; t.Kind {
	case config.SourceKNMIAPI:
		src.Temperature = &fetch.KNMIClient{
			Client:    client,
			BaseURL:   orDefault(t.BaseURL, fetch.DefaultKNMIBaseURL),
			StationID: s.StationID,
		}
	case config.SourceKNMIFile:
		src.Temperature = ingest.FileSource{
			Path:   t.Path,
			Parser: &ingest.KNMIParser{StationID: s.StationID},
		}
	default:
		return src, fmt.Errorf("unknown temperature source %q", t.Kind)
	}

	switch p := s.Sources.Price; p.Kind {
	case config.SourceEnergyCharts:
		src.Price = &fetch.EnergyChartsClient{
			Client:      client,
			BaseURL:     orDefault(p.BaseURL, fetch.DefaultEnergyChartsBaseURL),
			BiddingZone: p.BiddingZone,
			Pause:       time.Second,
		}
	case config.SourceFile:
		fs, err := columnSource(model.KindPrice, p.File)
		if err != nil {
			return src, fmt.Errorf("price file: %w", err)
		}
		src.Price = fs
	default:
		return src, fmt.Errorf("unknown price source %q", p.Kind)
	}

	fs, err := columnSource(model.KindCarbonIntensity, s.Sources.Emissions)
	if err != nil {
		return src, fmt.Errorf("emissions file: %w", err)
	}
	src.Emissions = fs
	return src, nil
}

func columnSource(kind model.Kind, c config.ColumnFile) (ingest.FileSource, error) {
	loc, err := c.Location()
	if err != nil {
		return ingest.FileSource{}, err
	}
	return ingest.FileSource{
		Path: c.Path,
		Parser: &ingest.ColumnParser{
			Kind:        kind,
			TimeColumn:  c.TimeColumn,
			ValueColumn: c.ValueColumn,
			Scale:       c.Scale,
			Location:    loc,
			Comma:       c.Comma(),
		},
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
