package ranges

import (
	"fmt"

	"gaitcheck/internal/stats"
)

// Kind enumerates the available range-derivation strategies.
type Kind int

const (
	// KindPercentile derives the range from lower/upper percentiles.
	KindPercentile Kind = iota
	// KindStdDev derives the range as mean ± k·std.
	KindStdDev
	// KindIQR derives the range as [Q1 − m·IQR, Q3 + m·IQR].
	KindIQR
)

// String returns the kind name used in logs and export metadata.
func (k Kind) String() string {
	switch k {
	case KindPercentile:
		return "percentile"
	case KindStdDev:
		return "std_dev"
	case KindIQR:
		return "iqr"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name back to its enumerated value.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "percentile":
		return KindPercentile, nil
	case "std_dev":
		return KindStdDev, nil
	case "iqr":
		return KindIQR, nil
	default:
		return 0, fmt.Errorf("unknown optimization method %q", name)
	}
}

// Method maps accumulated data to an acceptable (min, max) range. Each
// strategy works over either a streaming calculator (approximate, reservoir
// backed) or a dense slice (exact); the caller picks based on data volume.
type Method interface {
	RangeFromCalculator(c *stats.Calculator) (Range, error)
	RangeFromValues(values []float64) (Range, error)
	Name() string
}

// NewMethod creates a strategy for the given kind with its conventional
// default parameters: Percentile(5, 95), StdDev(2), IQR(1.5).
func NewMethod(kind Kind) (Method, error) {
	switch kind {
	case KindPercentile:
		return PercentileMethod{Lower: 5, Upper: 95}, nil
	case KindStdDev:
		return StdDevMethod{K: 2}, nil
	case KindIQR:
		return IQRMethod{Multiplier: 1.5}, nil
	default:
		return nil, fmt.Errorf("unknown method kind %d", kind)
	}
}

// PercentileMethod derives [P(lower), P(upper)].
type PercentileMethod struct {
	Lower float64
	Upper float64
}

// Name implements Method.
func (m PercentileMethod) Name() string {
	return fmt.Sprintf("percentile_%g_%g", m.Lower, m.Upper)
}

// RangeFromCalculator implements Method over the reservoir sample.
func (m PercentileMethod) RangeFromCalculator(c *stats.Calculator) (Range, error) {
	lo, err := c.Percentile(m.Lower)
	if err != nil {
		return Range{}, err
	}
	hi, err := c.Percentile(m.Upper)
	if err != nil {
		return Range{}, err
	}
	return Range{Min: lo, Max: hi}, nil
}

// RangeFromValues implements Method exactly over a dense slice.
func (m PercentileMethod) RangeFromValues(values []float64) (Range, error) {
	lo, err := stats.ExactPercentile(values, m.Lower)
	if err != nil {
		return Range{}, err
	}
	hi, err := stats.ExactPercentile(values, m.Upper)
	if err != nil {
		return Range{}, err
	}
	return Range{Min: lo, Max: hi}, nil
}

// StdDevMethod derives [mean − k·std, mean + k·std].
type StdDevMethod struct {
	K float64
}

// Name implements Method.
func (m StdDevMethod) Name() string {
	return fmt.Sprintf("std_dev_%g", m.K)
}

// RangeFromCalculator implements Method over the Welford state.
func (m StdDevMethod) RangeFromCalculator(c *stats.Calculator) (Range, error) {
	if c.Count() == 0 {
		return Range{}, fmt.Errorf("std_dev: no values accumulated")
	}
	mean, std := c.Mean(), c.Std()
	return Range{Min: mean - m.K*std, Max: mean + m.K*std}, nil
}

// RangeFromValues implements Method exactly over a dense slice.
func (m StdDevMethod) RangeFromValues(values []float64) (Range, error) {
	if len(values) == 0 {
		return Range{}, fmt.Errorf("std_dev: no values")
	}
	mean, std := stats.MeanStd(values)
	return Range{Min: mean - m.K*std, Max: mean + m.K*std}, nil
}

// IQRMethod derives [Q1 − m·IQR, Q3 + m·IQR] with IQR = Q3 − Q1.
type IQRMethod struct {
	Multiplier float64
}

// Name implements Method.
func (m IQRMethod) Name() string {
	return fmt.Sprintf("iqr_%g", m.Multiplier)
}

// RangeFromCalculator implements Method over the reservoir sample.
func (m IQRMethod) RangeFromCalculator(c *stats.Calculator) (Range, error) {
	q1, err := c.Percentile(25)
	if err != nil {
		return Range{}, err
	}
	q3, err := c.Percentile(75)
	if err != nil {
		return Range{}, err
	}
	iqr := q3 - q1
	return Range{Min: q1 - m.Multiplier*iqr, Max: q3 + m.Multiplier*iqr}, nil
}

// RangeFromValues implements Method exactly over a dense slice.
func (m IQRMethod) RangeFromValues(values []float64) (Range, error) {
	q1, err := stats.ExactPercentile(values, 25)
	if err != nil {
		return Range{}, err
	}
	q3, err := stats.ExactPercentile(values, 75)
	if err != nil {
		return Range{}, err
	}
	iqr := q3 - q1
	return Range{Min: q1 - m.Multiplier*iqr, Max: q3 + m.Multiplier*iqr}, nil
}
