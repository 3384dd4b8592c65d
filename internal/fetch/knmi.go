package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"heatpump_analysis/internal/ingest"
	"heatpump_analysis/internal/model"
)

const DefaultKNMIBaseURL = "https://www.daggegevens.knmi.nl"

// KNMIClient fetches hourly temperature for one station from the KNMI
// hourly data service.
type KNMIClient struct {
	*Client
	BaseURL   string
	StationID int
}

type knmiRow struct {
	StationCode int    `json:"station_code"`
	Date        string `json:"date"`
	Hour        int    `json:"hour"`
	T           *int   `json:"T"`
}

// Fetch downloads [tr.Start, tr.End) in monthly requests.
func (k *KNMIClient) Fetch(ctx context.Context, tr model.TimeRange) (model.Series, error) {
	series := model.NewSeries(model.KindTemperature)
	start := tr.Start.UTC().Truncate(24 * time.Hour)
	end := tr.End.UTC()

	for _, chunk := range monthChunks(start, end) {
		rows, err := k.fetchChunk(ctx, chunk[0], chunk[1])
		if err != nil {
			return series, fmt.Errorf("fetching station %d %s → %s: %w",
				k.StationID, chunk[0].Format("2006-01-02"), chunk[1].Format("2006-01-02"), err)
		}

		before := series.Len()
		for _, row := range rows {
			point, ok := knmiPoint(row)
			if !ok || row.StationCode != k.StationID {
				continue
			}
			series.Points = append(series.Points, point)
		}
		k.Logger.Debug("fetched KNMI chunk",
			zap.Int("station", k.StationID),
			zap.String("from", chunk[0].Format("2006-01-02")),
			zap.Int("points", series.Len()-before))
	}

	return series.Sorted().InRange(tr.Start, tr.End), nil
}

func (k *KNMIClient) fetchChunk(ctx context.Context, start, end time.Time) ([]knmiRow, error) {
	// HH runs 1..24; the last hour of a day is labelled 24.
	last := end.Add(-time.Hour)
	form := url.Values{
		"stns":  {strconv.Itoa(k.StationID)},
		"vars":  {"TEMP"},
		"start": {start.Format("20060102") + "01"},
		"end":   {last.Format("20060102") + "24"},
		"fmt":   {"json"},
	}
	endpoint := strings.TrimRight(k.BaseURL, "/") + "/klimatologie/uurgegevens"

	body, err := k.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var rows []knmiRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return rows, nil
}

func knmiPoint(row knmiRow) (model.Point, bool) {
	if row.T == nil {
		return model.Point{}, false
	}
	day, err := time.Parse(time.RFC3339, row.Date)
	if err != nil {
		return model.Point{}, false
	}
	ts, err := ingest.KNMIHour(day.UTC(), row.Hour)
	if err != nil {
		return model.Point{}, false
	}
	return model.Point{Time: ts, Value: ingest.TenthsToCelsius(*row.T)}, true
}
