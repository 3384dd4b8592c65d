package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"heatpump_analysis/internal/model"
)

var (
	ErrMissingColumn  = errors.New("missing expected column")
	ErrNaiveTimestamp = errors.New("timestamp has no zone and no timezone is configured")
	ErrNoData         = errors.New("no usable rows")
)

// Parser reads one hourly series from a source.
type Parser interface {
	Parse(r io.Reader) (model.Series, error)
}

// FileSource loads a series from a local file. The whole file is returned
// sorted; clipping to the analysis window is left to the caller.
type FileSource struct {
	Path   string
	Parser Parser
}

func (s FileSource) Fetch(ctx context.Context, _ model.TimeRange) (model.Series, error) {
	if err := ctx.Err(); err != nil {
		return model.Series{}, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return model.Series{}, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	series, err := s.Parser.Parse(f)
	if err != nil {
		return model.Series{}, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	return series.Sorted(), nil
}
