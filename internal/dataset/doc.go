// Package dataset loads phase-normalized locomotion data from CSV files and
// reshapes it into per-stride cycle arrays.
//
// Input files carry one row per phase sample with required metadata columns
// (subject, task, step|cycle, phase|phase_percent) plus feature columns named
// <joint>_<motion>_<measurement>_<side>_<unit>. A (subject, task, step) group
// of exactly one cycle length forms one stride.
package dataset
