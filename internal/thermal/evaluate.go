package thermal

import (
	"errors"
	"fmt"
	"time"

	"heatpump_analysis/internal/model"
)

var ErrMisaligned = errors.New("input series are not on the same timeline")

// Row is one hour of the joined table: inputs plus derived values.
type Row struct {
	Time           time.Time
	TemperatureC   float64
	PriceEURPerMWh float64
	CarbonGPerKWh  float64
	Hour
}

// Evaluate applies the model to every hour of temp. price and carbon must
// already be aligned onto temp's timestamps.
func (m Model) Evaluate(temp, price, carbon model.Series) ([]Row, error) {
	if price.Len() != temp.Len() || carbon.Len() != temp.Len() {
		return nil, fmt.Errorf("%d temperature, %d price, %d carbon points: %w",
			temp.Len(), price.Len(), carbon.Len(), ErrMisaligned)
	}

	rows := make([]Row, temp.Len())
	for i, p := range temp.Points {
		if !price.Points[i].Time.Equal(p.Time) || !carbon.Points[i].Time.Equal(p.Time) {
			return nil, fmt.Errorf("point %d at %s: %w", i, p.Time.Format(time.RFC3339), ErrMisaligned)
		}
		rows[i] = Row{
			Time:           p.Time,
			TemperatureC:   p.Value,
			PriceEURPerMWh: price.Points[i].Value,
			CarbonGPerKWh:  carbon.Points[i].Value,
			Hour:           m.Hour(p.Value, price.Points[i].Value, carbon.Points[i].Value),
		}
	}
	return rows, nil
}
