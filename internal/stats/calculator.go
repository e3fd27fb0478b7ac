package stats

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// DefaultReservoirSize is the default number of samples retained per feature
// for approximate percentile queries.
const DefaultReservoirSize = 1000

// Calculator accumulates streaming statistics for a single feature without
// retaining the full value history. Mean and variance use Welford's
// numerically stable update; percentiles come from a fixed-capacity uniform
// reservoir sample, so memory stays O(reservoir size) regardless of how many
// values are fed in.
//
// Calculator is accumulate-only and not safe for concurrent writers; callers
// must serialize externally.
type Calculator struct {
	count int64
	mean  float64
	m2    float64

	reservoir []float64
	capacity  int
	rng       *rand.Rand
}

// NewCalculator creates a calculator with the given reservoir capacity and
// random source. The source drives reservoir replacement; pass a seeded
// source for reproducible percentile behavior. A nil rng gets a time-seeded
// source; capacity <= 0 falls back to DefaultReservoirSize.
func NewCalculator(capacity int, rng *rand.Rand) *Calculator {
	if capacity <= 0 {
		capacity = DefaultReservoirSize
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Calculator{
		reservoir: make([]float64, 0, capacity),
		capacity:  capacity,
		rng:       rng,
	}
}

// AddValue feeds one observation into the running statistics. Non-finite
// values (NaN, ±Inf) are ignored.
func (c *Calculator) AddValue(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}

	c.count++
	delta := x - c.mean
	c.mean += delta / float64(c.count)
	delta2 := x - c.mean
	c.m2 += delta * delta2

	// Reservoir sampling: keep the first `capacity` values, then replace a
	// uniformly random slot with probability capacity/count.
	if len(c.reservoir) < c.capacity {
		c.reservoir = append(c.reservoir, x)
		return
	}
	if j := c.rng.Int63n(c.count); j < int64(c.capacity) {
		c.reservoir[j] = x
	}
}

// Count returns the number of finite values accumulated.
func (c *Calculator) Count() int64 {
	return c.count
}

// Mean returns the running mean, or 0 if no values were accumulated.
func (c *Calculator) Mean() float64 {
	return c.mean
}

// Variance returns the Bessel-corrected sample variance, or 0 for fewer than
// two values.
func (c *Calculator) Variance() float64 {
	if c.count < 2 {
		return 0
	}
	return c.m2 / float64(c.count-1)
}

// Std returns the sample standard deviation.
func (c *Calculator) Std() float64 {
	return math.Sqrt(c.Variance())
}

// Percentile returns the linearly interpolated order statistic for p in
// [0, 100], computed over the current reservoir sample.
//
// The result is an approximation: accuracy scales with the reservoir size
// relative to the true distribution (roughly 1/sqrt(capacity) for central
// quantiles). It must never be treated as an exact percentile.
func (c *Calculator) Percentile(p float64) (float64, error) {
	if len(c.reservoir) == 0 {
		return 0, fmt.Errorf("percentile %g: no samples accumulated", p)
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %g out of range [0, 100]", p)
	}

	sorted := make([]float64, len(c.reservoir))
	copy(sorted, c.reservoir)
	sort.Float64s(sorted)

	return interpolatedPercentile(sorted, p), nil
}

// ReservoirLen returns the current number of retained samples.
func (c *Calculator) ReservoirLen() int {
	return len(c.reservoir)
}

// interpolatedPercentile computes the linearly interpolated order statistic
// over an ascending-sorted slice. Callers guarantee a non-empty slice and
// p in [0, 100].
func interpolatedPercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}

	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
