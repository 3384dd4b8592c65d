// fetch-prices downloads historical day-ahead prices for a bidding zone from
// the Energy-Charts API (https://api.energy-charts.info) and writes a CSV
// the analysis reads with --price-file (timestamp,price_eur_mwh).
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"heatpump_analysis/internal/fetch"
	"heatpump_analysis/internal/logging"
	"heatpump_analysis/internal/model"
)

func main() {
	startDate := pflag.String("start", "2024-01-01", "start date (YYYY-MM-DD)")
	endDate := pflag.String("end", "", "end date, exclusive (YYYY-MM-DD), defaults to today")
	zone := pflag.String("zone", "NL", "Energy-Charts bidding zone")
	baseURL := pflag.String("base-url", fetch.DefaultEnergyChartsBaseURL, "API base URL")
	output := pflag.StringP("output", "o", "prices.csv", "output CSV path")
	logLevel := pflag.String("log-level", "info", "debug, info, warn or error")
	pflag.Parse()

	logger, err := logging.New(*logLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		logger.Fatal("invalid start date", zap.Error(err))
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endDate != "" {
		end, err = time.Parse("2006-01-02", *endDate)
		if err != nil {
			logger.Fatal("invalid end date", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := &fetch.EnergyChartsClient{
		Client:      fetch.NewClient(logger),
		BaseURL:     *baseURL,
		BiddingZone: *zone,
		Pause:       time.Second,
	}
	logger.Info("fetching spot prices",
		zap.String("zone", *zone),
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")))

	series, err := client.Fetch(ctx, model.TimeRange{Start: start, End: end})
	if err != nil {
		logger.Fatal("fetching prices", zap.Error(err))
	}

	f, err := os.Create(*output)
	if err != nil {
		logger.Fatal("creating output file", zap.Error(err))
	}
	if err := writeCSV(f, series); err != nil {
		f.Close()
		logger.Fatal("writing CSV", zap.Error(err))
	}
	if err := f.Close(); err != nil {
		logger.Fatal("closing output file", zap.Error(err))
	}

	logger.Info("wrote prices", zap.Int("records", series.Len()), zap.String("path", *output))
}

func writeCSV(w io.Writer, series model.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "price_eur_mwh"}); err != nil {
		return err
	}
	for _, p := range series.Points {
		record := []string{
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
