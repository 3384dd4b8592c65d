package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"heatpump_analysis/internal/model"
)

const DefaultEnergyChartsBaseURL = "https://api.energy-charts.info"

// EnergyChartsClient fetches day-ahead spot prices (EUR/MWh) for a bidding
// zone from the Energy-Charts API.
type EnergyChartsClient struct {
	*Client
	BaseURL     string
	BiddingZone string
	// Pause between monthly requests to stay within API limits.
	Pause time.Duration
}

type priceResponse struct {
	UnixSeconds []int64    `json:"unix_seconds"`
	Price       []*float64 `json:"price"`
	Unit        string     `json:"unit"`
}

// Fetch downloads [tr.Start, tr.End) in monthly requests.
func (e *EnergyChartsClient) Fetch(ctx context.Context, tr model.TimeRange) (model.Series, error) {
	series := model.NewSeries(model.KindPrice)

	chunks := monthChunks(tr.Start.UTC(), tr.End.UTC())
	for i, chunk := range chunks {
		data, err := e.fetchChunk(ctx, chunk[0], chunk[1])
		if err != nil {
			return series, fmt.Errorf("fetching %s prices %s → %s: %w",
				e.BiddingZone, chunk[0].Format("2006-01-02"), chunk[1].Format("2006-01-02"), err)
		}
		if unit := strings.ReplaceAll(data.Unit, " ", ""); unit != "" && !strings.EqualFold(unit, "EUR/MWh") {
			return series, fmt.Errorf("unexpected price unit %q", data.Unit)
		}

		for j, ts := range data.UnixSeconds {
			if data.Price[j] == nil {
				continue
			}
			series.Points = append(series.Points, model.Point{
				Time:  time.Unix(ts, 0).UTC(),
				Value: *data.Price[j],
			})
		}
		e.Logger.Debug("fetched price chunk",
			zap.String("zone", e.BiddingZone),
			zap.String("from", chunk[0].Format("2006-01-02")),
			zap.Int("points", len(data.UnixSeconds)))

		if e.Pause > 0 && i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return series, ctx.Err()
			case <-time.After(e.Pause):
			}
		}
	}

	return series.Sorted().InRange(tr.Start, tr.End), nil
}

func (e *EnergyChartsClient) fetchChunk(ctx context.Context, start, end time.Time) (priceResponse, error) {
	q := url.Values{
		"bzn":   {e.BiddingZone},
		"start": {start.Format("2006-01-02T15:04Z")},
		"end":   {end.Format("2006-01-02T15:04Z")},
	}
	endpoint := strings.TrimRight(e.BaseURL, "/") + "/price?" + q.Encode()

	body, err := e.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return priceResponse{}, err
	}

	var data priceResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return priceResponse{}, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(data.UnixSeconds) != len(data.Price) {
		return priceResponse{}, fmt.Errorf("mismatched arrays: %d timestamps, %d prices",
			len(data.UnixSeconds), len(data.Price))
	}
	return data, nil
}
