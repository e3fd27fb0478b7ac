// Package stats provides memory-bounded streaming statistics for range
// optimization: a per-feature Welford mean/variance calculator with a
// fixed-capacity reservoir sample for approximate percentiles, and an
// aggregator that merges calculators across weighted datasets and chunks.
//
// Everything here is single-writer and batch-oriented. Unbounded reference
// corpora are summarized without retaining raw samples, trading exact
// percentiles for O(reservoir) memory per feature.
package stats
