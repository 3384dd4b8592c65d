// Package align reindexes one hourly series onto another's timestamps.
package align

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"heatpump_analysis/internal/model"
)

var (
	ErrEmptySeries  = errors.New("cannot align an empty series")
	ErrNoOverlap    = errors.New("series time ranges do not overlap")
	ErrZoneMismatch = errors.New("series use different locations")
	ErrGapTooLarge  = errors.New("nearest point is beyond tolerance")
)

// Options tunes nearest-match alignment.
type Options struct {
	// Tolerance caps the distance to the nearest candidate point.
	// Zero accepts any distance.
	Tolerance time.Duration
}

// Nearest returns a series with ref's timestamps whose values are taken from
// the candidate point closest in time. On an exact tie the earlier candidate
// wins. Both series must be sorted and share a location (model.Series.Zone);
// see model.Series.UTC.
func Nearest(ref, cand model.Series, opts Options) (model.Series, error) {
	out := model.Series{Kind: cand.Kind, Unit: cand.Unit}

	refRange, ok := ref.TimeRange()
	if !ok {
		return out, fmt.Errorf("reference %s: %w", ref.Kind, ErrEmptySeries)
	}
	candRange, ok := cand.TimeRange()
	if !ok {
		return out, fmt.Errorf("candidate %s: %w", cand.Kind, ErrEmptySeries)
	}
	if ref.Zone() != cand.Zone() {
		return out, fmt.Errorf("%s is %q, %s is %q: %w", ref.Kind, ref.Zone(), cand.Kind, cand.Zone(), ErrZoneMismatch)
	}
	if !refRange.Overlaps(candRange) {
		return out, fmt.Errorf("%s %s..%s vs %s %s..%s: %w",
			ref.Kind, refRange.Start.Format(time.RFC3339), refRange.End.Format(time.RFC3339),
			cand.Kind, candRange.Start.Format(time.RFC3339), candRange.End.Format(time.RFC3339),
			ErrNoOverlap)
	}

	out.Points = make([]model.Point, len(ref.Points))
	for i, p := range ref.Points {
		idx, dist := nearestIndex(cand.Points, p.Time)
		if opts.Tolerance > 0 && dist > opts.Tolerance {
			return model.Series{Kind: cand.Kind, Unit: cand.Unit}, fmt.Errorf("%s at %s: nearest %s point is %s away (tolerance %s): %w",
				ref.Kind, p.Time.Format(time.RFC3339), cand.Kind, dist, opts.Tolerance, ErrGapTooLarge)
		}
		out.Points[i] = model.Point{Time: p.Time, Value: cand.Points[idx].Value}
	}
	return out, nil
}

// nearestIndex returns the index of the point closest to t and its distance.
// points must be non-empty and sorted.
func nearestIndex(points []model.Point, t time.Time) (int, time.Duration) {
	// first point at or after t
	idx := sort.Search(len(points), func(i int) bool {
		return !points[i].Time.Before(t)
	})

	if idx == 0 {
		return 0, points[0].Time.Sub(t)
	}
	if idx == len(points) {
		return idx - 1, t.Sub(points[idx-1].Time)
	}

	before := t.Sub(points[idx-1].Time)
	after := points[idx].Time.Sub(t)
	if before <= after {
		return idx - 1, before
	}
	return idx, after
}
