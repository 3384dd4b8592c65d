package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Bin counts values in [Lower, Upper).
type Bin struct {
	Lower, Upper float64
	Count        int
}

// maxBins bounds the bin count for a tiny width over a wide range.
const maxBins = 1e6

// Histogram counts values in fixed-width bins aligned to multiples of
// width. Non-finite values are skipped. Empty input, a non-positive width or
// more than maxBins bins yields nil.
func Histogram(values []float64, width float64) []Bin {
	if width <= 0 || math.IsInf(width, 0) || math.IsNaN(width) {
		return nil
	}
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	// floor(x/w)*w can round above x, stat.Histogram needs dividers[0] <= x[0]
	// and x[n-1] < dividers[last].
	first := math.Floor(lo / width)
	if (hi-lo)/width > maxBins || math.Abs(first) > 1<<52 {
		return nil
	}
	for first*width > lo {
		first--
	}
	dividers := []float64{first * width}
	for i := 1.0; dividers[len(dividers)-1] <= hi; i++ {
		next := (first + i) * width
		if next <= dividers[len(dividers)-1] {
			return nil
		}
		dividers = append(dividers, next)
	}

	counts := stat.Histogram(nil, dividers, sorted, nil)
	bins := make([]Bin, len(counts))
	for i, c := range counts {
		bins[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(c)}
	}
	return bins
}

// Active returns the values of hours where mask is positive, the set the
// histograms are drawn from.
func Active(values, mask []float64) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if i < len(mask) && mask[i] > 0 {
			out = append(out, v)
		}
	}
	return out
}
