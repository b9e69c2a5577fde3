// Package analysis summarizes computed WET fields for reporting: masked
// min/max/mean and the spread statistics the planning workflow prints
// after a ray-tracing pass.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of a scalar field inside a mask. All
// values share the unit of the input field (mm of water for WET).
type Summary struct {
	// Count is the number of voxels that entered the summary
	Count int

	Min    float64
	Max    float64
	Mean   float64
	StdDev float64

	// Median and the 5%/95% quantiles of the masked values
	Median float64
	Q05    float64
	Q95    float64
}

// Summarize computes the distribution of values restricted to the mask. A
// nil mask summarizes the whole field. An empty selection yields a zero
// Summary.
func Summarize(values []float64, mask []bool) Summary {
	selected := make([]float64, 0, len(values))
	for i, v := range values {
		if mask == nil || mask[i] {
			selected = append(selected, v)
		}
	}

	if len(selected) == 0 {
		return Summary{}
	}

	sort.Float64s(selected)
	return Summary{
		Count:  len(selected),
		Min:    floats.Min(selected),
		Max:    floats.Max(selected),
		Mean:   stat.Mean(selected, nil),
		StdDev: stat.StdDev(selected, nil),
		Median: stat.Quantile(0.5, stat.Empirical, selected, nil),
		Q05:    stat.Quantile(0.05, stat.Empirical, selected, nil),
		Q95:    stat.Quantile(0.95, stat.Empirical, selected, nil),
	}
}
