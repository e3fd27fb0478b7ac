package stats

import (
	"fmt"
	"math"
	"sort"
)

// ExactPercentile computes the linearly interpolated order statistic over a
// dense in-memory slice. Unlike Calculator.Percentile this is exact; callers
// choose it when the data volume allows holding every value.
func ExactPercentile(values []float64, p float64) (float64, error) {
	finite := finiteValues(values)
	if len(finite) == 0 {
		return 0, fmt.Errorf("percentile %g: no finite values", p)
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %g out of range [0, 100]", p)
	}
	sort.Float64s(finite)
	return interpolatedPercentile(finite, p), nil
}

// MeanStd computes the mean and Bessel-corrected standard deviation of a
// dense slice, ignoring non-finite values. Both are 0 for empty input; std
// is 0 for fewer than two values.
func MeanStd(values []float64) (mean, std float64) {
	finite := finiteValues(values)
	n := len(finite)
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range finite {
		sum += v
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, 0
	}
	var m2 float64
	for _, v := range finite {
		d := v - mean
		m2 += d * d
	}
	return mean, math.Sqrt(m2 / float64(n-1))
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
