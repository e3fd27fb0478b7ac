package stats

import (
	"log/slog"
	"math/rand"
	"sort"
)

// Aggregator merges streaming statistics across any number of named datasets
// and chunks. It owns one Calculator per feature, created lazily on first
// ingestion; a feature's calculator reflects the union of every value added
// for that feature across every dataset and every chunk.
//
// The per-dataset weight is advisory metadata only: it is recorded, exposed
// through Weights, and carried into export metadata, but no statistic applies
// it multiplicatively.
//
// Aggregator is accumulate-only and not safe for concurrent writers.
type Aggregator struct {
	calculators map[string]*Calculator
	weights     map[string]float64
	order       []string

	reservoirCap int
	rng          *rand.Rand
	logger       *slog.Logger
}

// NewAggregator creates an aggregator whose calculators use the given
// reservoir capacity and are driven by a single seeded random source, so
// repeated runs over the same data produce identical reservoirs.
func NewAggregator(reservoirCap int, seed int64, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		calculators:  make(map[string]*Calculator),
		weights:      make(map[string]float64),
		reservoirCap: reservoirCap,
		rng:          rand.New(rand.NewSource(seed)),
		logger:       logger,
	}
}

// AddDataset registers a dataset under the given name and weight and feeds
// every value of every feature into that feature's calculator. Re-adding a
// name updates its weight and keeps accumulating.
func (a *Aggregator) AddDataset(name string, features map[string][]float64, weight float64) {
	a.register(name, weight)
	a.ingest(features)

	a.logger.Debug("dataset ingested",
		slog.String("dataset", name),
		slog.Float64("weight", weight),
		slog.Int("features", len(features)))
}

// AddChunk feeds a streamed chunk through the same ingestion path as
// AddDataset. The dataset is auto-registered with weight 1.0 on first use.
func (a *Aggregator) AddChunk(name string, features map[string][]float64) {
	if _, ok := a.weights[name]; !ok {
		a.register(name, 1.0)
	}
	a.ingest(features)
}

func (a *Aggregator) register(name string, weight float64) {
	if _, ok := a.weights[name]; !ok {
		a.order = append(a.order, name)
	}
	a.weights[name] = weight
}

// ingest feeds values calculator by calculator in sorted feature order. The
// shared random source hands out draws in ingestion order, so iteration must
// be deterministic for equal seeds to yield equal reservoirs.
func (a *Aggregator) ingest(features map[string][]float64) {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, feature := range names {
		calc, ok := a.calculators[feature]
		if !ok {
			calc = NewCalculator(a.reservoirCap, a.rng)
			a.calculators[feature] = calc
		}
		for _, v := range features[feature] {
			calc.AddValue(v)
		}
	}
}

// Calculator returns the calculator for a feature, or false if no data has
// been accumulated for it.
func (a *Aggregator) Calculator(feature string) (*Calculator, bool) {
	c, ok := a.calculators[feature]
	return c, ok
}

// Features returns the names of all features with accumulated data, sorted.
func (a *Aggregator) Features() []string {
	names := make([]string, 0, len(a.calculators))
	for name := range a.calculators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatasetNames returns registered dataset names in registration order.
func (a *Aggregator) DatasetNames() []string {
	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Weight returns the advisory weight recorded for a dataset.
func (a *Aggregator) Weight(name string) (float64, bool) {
	w, ok := a.weights[name]
	return w, ok
}

// Weights returns a copy of the dataset name to weight map.
func (a *Aggregator) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.weights))
	for k, v := range a.weights {
		out[k] = v
	}
	return out
}

// TotalObservations returns the sum of accumulated counts across all features.
func (a *Aggregator) TotalObservations() int64 {
	var total int64
	for _, c := range a.calculators {
		total += c.Count()
	}
	return total
}
