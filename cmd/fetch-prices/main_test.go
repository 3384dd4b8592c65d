package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatpump_analysis/internal/ingest"
	"heatpump_analysis/internal/model"
)

func TestWriteCSV(t *testing.T) {
	series := model.NewSeries(model.KindPrice)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series.Points = []model.Point{
		{Time: t0, Value: 87.25},
		{Time: t0.Add(time.Hour), Value: -4.5},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, series))

	assert.Equal(t, "timestamp,price_eur_mwh\n2024-01-01T00:00:00Z,87.25\n2024-01-01T01:00:00Z,-4.5\n", buf.String())

	// the analysis reads it back with its default price columns
	parser := &ingest.ColumnParser{Kind: model.KindPrice, TimeColumn: "timestamp", ValueColumn: "price_eur_mwh"}
	parsed, err := parser.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, series.Values(), parsed.Values())
	assert.True(t, parsed.Points[1].Time.Equal(t0.Add(time.Hour)))
}
