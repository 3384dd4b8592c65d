package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

type Kind string

const (
	KindTemperature     Kind = "temperature"
	KindPrice           Kind = "price"
	KindCarbonIntensity Kind = "carbon_intensity"
)

// KindInfo holds display name and unit for a series kind.
type KindInfo struct {
	Name string
	Unit string
}

// Catalog maps every known Kind to its display name and unit.
var Catalog = map[Kind]KindInfo{
	KindTemperature:     {Name: "Ambient Temperature", Unit: "°C"},
	KindPrice:           {Name: "Day-Ahead Price", Unit: "EUR/MWh"},
	KindCarbonIntensity: {Name: "Grid Carbon Intensity", Unit: "gCO2/kWh"},
}

var (
	ErrEmpty         = errors.New("series is empty")
	ErrNotIncreasing = errors.New("series timestamps are not strictly increasing")
	ErrMixedZones    = errors.New("series mixes timezone representations")
)

type Point struct {
	Time  time.Time
	Value float64
}

// Series is an ordered run of (timestamp, value) points of one kind.
type Series struct {
	Kind   Kind
	Unit   string
	Points []Point
}

// NewSeries creates an empty series with the catalog unit for kind.
func NewSeries(kind Kind) Series {
	return Series{Kind: kind, Unit: Catalog[kind].Unit}
}

func (s Series) Len() int { return len(s.Points) }

// Values returns the point values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// TimeRange returns the first and last timestamp of the series.
func (s Series) TimeRange() (TimeRange, bool) {
	if len(s.Points) == 0 {
		return TimeRange{}, false
	}
	return TimeRange{
		Start: s.Points[0].Time,
		End:   s.Points[len(s.Points)-1].Time,
	}, true
}

// Sorted returns a copy ordered by timestamp. When two points share a
// timestamp the first one in input order is kept.
func (s Series) Sorted() Series {
	points := make([]Point, len(s.Points))
	copy(points, s.Points)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	deduped := points[:0]
	for i, p := range points {
		if i > 0 && p.Time.Equal(points[i-1].Time) {
			continue
		}
		deduped = append(deduped, p)
	}
	return Series{Kind: s.Kind, Unit: s.Unit, Points: deduped}
}

// InRange returns points between start (inclusive) and end (exclusive).
// The series must already be sorted.
func (s Series) InRange(start, end time.Time) Series {
	out := Series{Kind: s.Kind, Unit: s.Unit}

	startIdx := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Time.Before(start)
	})
	endIdx := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Time.Before(end)
	})
	if startIdx >= endIdx {
		return out
	}

	out.Points = make([]Point, endIdx-startIdx)
	copy(out.Points, s.Points[startIdx:endIdx])
	return out
}

// UTC returns a copy with every timestamp converted to UTC.
func (s Series) UTC() Series {
	out := Series{Kind: s.Kind, Unit: s.Unit, Points: make([]Point, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i] = Point{Time: p.Time.UTC(), Value: p.Value}
	}
	return out
}

// Zone is the location name of the series, e.g. "UTC" or
// "Europe/Amsterdam". An empty series has no zone.
func (s Series) Zone() string {
	if len(s.Points) == 0 {
		return ""
	}
	return s.Points[0].Time.Location().String()
}

// Validate checks the series is non-empty, strictly increasing and uses a
// single location throughout.
func (s Series) Validate() error {
	if len(s.Points) == 0 {
		return fmt.Errorf("%s: %w", s.Kind, ErrEmpty)
	}
	loc := s.Points[0].Time.Location().String()
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Time.After(s.Points[i-1].Time) {
			return fmt.Errorf("%s: point %d at %s: %w", s.Kind, i, s.Points[i].Time.Format(time.RFC3339), ErrNotIncreasing)
		}
		if s.Points[i].Time.Location().String() != loc {
			return fmt.Errorf("%s: point %d: %w", s.Kind, i, ErrMixedZones)
		}
	}
	return nil
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two closed ranges share at least one instant.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return !tr.End.Before(other.Start) && !other.End.Before(tr.Start)
}

// Hours returns the number of whole hours between Start and End.
func (tr TimeRange) Hours() int {
	return int(tr.End.Sub(tr.Start) / time.Hour)
}
