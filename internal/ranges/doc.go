// Package ranges owns the validation range table and the engine that derives
// it: per-feature (min, max) strategies over streaming or dense statistics,
// a target false-positive-rate search, and back-estimation of the false
// positive rate of an existing table.
//
// Range derivation over streamed data is approximate by construction (it
// reads the calculator's reservoir sample); the dense-slice path is exact.
package ranges
