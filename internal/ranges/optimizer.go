package ranges

import (
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"

	apperrors "gaitcheck/internal/errors"
	"gaitcheck/internal/stats"
)

// fpLadder is the fixed percentile ladder used to back-estimate false
// positive rates of existing ranges. Estimates are resolution-limited by the
// ladder spacing.
var fpLadder = []float64{1, 5, 10, 25, 50, 75, 90, 95, 99}

// FPRateConfig parameterizes the target false-positive-rate search.
type FPRateConfig struct {
	Target        float64 `validate:"gt=0,lt=0.5"`
	Tolerance     float64 `validate:"gt=0"`
	MaxIterations int     `validate:"gte=1"`
}

// DefaultFPRateConfig returns the conventional search settings.
func DefaultFPRateConfig() FPRateConfig {
	return FPRateConfig{
		Target:        0.05,
		Tolerance:     0.005,
		MaxIterations: 20,
	}
}

// Optimizer derives per-feature validation ranges from an aggregator's
// accumulated statistics. Output is flat per-feature; task and phase nesting
// is applied by the caller (see FromOptimized).
type Optimizer struct {
	agg      *stats.Aggregator
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOptimizer creates an optimizer over the given aggregator.
func NewOptimizer(agg *stats.Aggregator, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		agg:      agg,
		validate: validator.New(),
		logger:   logger,
	}
}

// OptimizeRanges computes a range per feature with the given method. Features
// with no accumulated data are skipped with a warning; a result with zero
// usable features is an empty map, never an error.
func (o *Optimizer) OptimizeRanges(method Method, features []string) map[string]Range {
	out := make(map[string]Range, len(features))

	for _, feature := range features {
		calc, ok := o.agg.Calculator(feature)
		if !ok || calc.Count() == 0 {
			o.logger.Warn("skipping feature with no accumulated data",
				slog.String("feature", feature),
				slog.String("method", method.Name()))
			continue
		}

		r, err := method.RangeFromCalculator(calc)
		if err != nil {
			o.logger.Warn("range computation failed",
				slog.String("feature", feature),
				slog.String("method", method.Name()),
				slog.String("error", err.Error()))
			continue
		}
		out[feature] = r
	}

	o.logger.Info("ranges optimized",
		slog.String("method", method.Name()),
		slog.Int("requested", len(features)),
		slog.Int("computed", len(out)))

	return out
}

// OptimizeForFPRate binary-searches, per feature, a symmetric percentile cut
// whose implied false positive rate hits cfg.Target. The cut c trims c% from
// each tail, so achieved = (c + (100 − (100 − c))) / 100 = 2c/100. Search
// starts from the bounds (0.1, 49.9) and halves toward the target; it stops
// when |achieved − target| ≤ cfg.Tolerance or after cfg.MaxIterations, and
// always keeps the best range seen even when tolerance was never met.
//
// This is an approximate procedure over the reservoir sample with no proven
// convergence bound. Callers needing exact rates must use dense data.
func (o *Optimizer) OptimizeForFPRate(features []string, cfg FPRateConfig) (map[string]Range, error) {
	if err := o.validate.Struct(cfg); err != nil {
		return nil, err
	}

	out := make(map[string]Range, len(features))

	for _, feature := range features {
		calc, ok := o.agg.Calculator(feature)
		if !ok || calc.Count() == 0 {
			o.logger.Warn("skipping feature with no accumulated data",
				slog.String("feature", feature),
				slog.String("error", apperrors.MissingFeature(feature).Error()))
			continue
		}

		r, achieved, iterations, found := o.searchSymmetricCut(calc, cfg)
		if !found {
			o.logger.Warn("false-positive search produced no range",
				slog.String("feature", feature))
			continue
		}

		o.logger.Debug("false-positive search converged",
			slog.String("feature", feature),
			slog.Float64("target", cfg.Target),
			slog.Float64("achieved", achieved),
			slog.Int("iterations", iterations))
		out[feature] = r
	}

	return out, nil
}

// searchSymmetricCut runs the per-feature binary search. Returns the best
// range seen, its achieved rate, and the iteration count.
func (o *Optimizer) searchSymmetricCut(calc *stats.Calculator, cfg FPRateConfig) (Range, float64, int, bool) {
	const (
		lowerBound = 0.1
		upperBound = 49.9
	)

	lo, hi := lowerBound, upperBound
	var (
		best     Range
		bestErr  = math.Inf(1)
		bestRate float64
		haveBest bool
	)
	var iteration int

	for iteration = 1; iteration <= cfg.MaxIterations; iteration++ {
		cut := (lo + hi) / 2
		lowerPct := cut
		upperPct := 100 - cut
		achieved := (lowerPct + (100 - upperPct)) / 100

		min, errLo := calc.Percentile(lowerPct)
		max, errHi := calc.Percentile(upperPct)
		if errLo != nil || errHi != nil {
			break
		}

		diff := math.Abs(achieved - cfg.Target)
		if diff < bestErr {
			bestErr = diff
			best = Range{Min: min, Max: max}
			bestRate = achieved
			haveBest = true
		}

		if diff <= cfg.Tolerance {
			break
		}
		if achieved > cfg.Target {
			hi = cut // trimming too much, cut less
		} else {
			lo = cut // trimming too little, cut more
		}
	}

	return best, bestRate, iteration, haveBest
}

// FalsePositiveRates back-estimates, per feature, the in-distribution mass an
// existing range would flag, by bracketing its bounds against the fixed
// percentile ladder with linear interpolation. Features without data are
// skipped.
func (o *Optimizer) FalsePositiveRates(current map[string]Range) map[string]float64 {
	out := make(map[string]float64, len(current))

	for feature, r := range current {
		calc, ok := o.agg.Calculator(feature)
		if !ok || calc.Count() == 0 {
			o.logger.Warn("skipping feature with no accumulated data",
				slog.String("feature", feature))
			continue
		}

		ladder, err := o.ladderValues(calc)
		if err != nil {
			continue
		}

		lowerTail := ladderCDF(ladder, r.Min)
		upperTail := 100 - ladderCDF(ladder, r.Max)
		out[feature] = (lowerTail + upperTail) / 100
	}

	return out
}

// ladderValues evaluates the reservoir percentiles at each ladder point.
func (o *Optimizer) ladderValues(calc *stats.Calculator) ([]float64, error) {
	values := make([]float64, len(fpLadder))
	for i, p := range fpLadder {
		v, err := calc.Percentile(p)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// ladderCDF estimates the cumulative percent at x by linear lookup between
// bracketing ladder points, clamped to the ladder's ends.
func ladderCDF(values []float64, x float64) float64 {
	if x <= values[0] {
		return fpLadder[0]
	}
	if x >= values[len(values)-1] {
		return fpLadder[len(fpLadder)-1]
	}
	for i := 1; i < len(values); i++ {
		if x <= values[i] {
			span := values[i] - values[i-1]
			if span == 0 {
				return fpLadder[i]
			}
			frac := (x - values[i-1]) / span
			return fpLadder[i-1] + frac*(fpLadder[i]-fpLadder[i-1])
		}
	}
	return fpLadder[len(fpLadder)-1]
}

// FeatureSummary is one feature's audit snapshot.
type FeatureSummary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	P5    float64 `json:"p5"`
	P95   float64 `json:"p95"`
}

// Summary is the optimizer's audit view: per-feature statistics plus the
// datasets that contributed and their advisory weights.
type Summary struct {
	Features map[string]FeatureSummary `json:"features"`
	Datasets []string                  `json:"datasets"`
	Weights  map[string]float64        `json:"weights"`
}

// Summary builds the audit snapshot from the aggregator's current state.
func (o *Optimizer) Summary() Summary {
	s := Summary{
		Features: make(map[string]FeatureSummary),
		Datasets: o.agg.DatasetNames(),
		Weights:  o.agg.Weights(),
	}

	for _, feature := range o.agg.Features() {
		calc, ok := o.agg.Calculator(feature)
		if !ok {
			continue
		}
		fs := FeatureSummary{
			Count: calc.Count(),
			Mean:  calc.Mean(),
			Std:   calc.Std(),
		}
		if p5, err := calc.Percentile(5); err == nil {
			fs.P5 = p5
		}
		if p95, err := calc.Percentile(95); err == nil {
			fs.P95 = p95
		}
		s.Features[feature] = fs
	}

	return s
}
