package validation

import (
	"log/slog"

	"gaitcheck/internal/dataset"
	apperrors "gaitcheck/internal/errors"
)

// PhaseLengthViolation records one (subject, task, step) group whose row
// count cannot form a valid cycle.
type PhaseLengthViolation struct {
	Subject        string `json:"subject"`
	Task           string `json:"task"`
	Step           int    `json:"step"`
	ActualLength   int    `json:"actual_length"`
	ExpectedLength int    `json:"expected_length"`
}

// StructureConfig controls the phase structure check.
type StructureConfig struct {
	// ExpectedLength is the samples-per-cycle invariant; <= 0 falls back to
	// dataset.DefaultCycleLength.
	ExpectedLength int
	// Strict requires exactly ExpectedLength rows per group. When false the
	// tolerant window [TolerantMin, TolerantMax] applies instead.
	Strict      bool
	TolerantMin int
	TolerantMax int
}

// DefaultStructureConfig returns the strict 150-sample check.
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		ExpectedLength: dataset.DefaultCycleLength,
		Strict:         true,
		TolerantMin:    140,
		TolerantMax:    160,
	}
}

// StructureValidator enforces the samples-per-cycle invariant over every
// (subject, task, step) group of a dataset. It never fails hard: violations
// are accumulated and feed the overall validity determination.
type StructureValidator struct {
	cfg    StructureConfig
	logger *slog.Logger
}

// NewStructureValidator creates a structure validator.
func NewStructureValidator(cfg StructureConfig, logger *slog.Logger) *StructureValidator {
	if cfg.ExpectedLength <= 0 {
		cfg.ExpectedLength = dataset.DefaultCycleLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StructureValidator{cfg: cfg, logger: logger}
}

// Validate groups the dataset's rows and returns one violation per group
// outside the accepted length.
func (v *StructureValidator) Validate(ds *dataset.Dataset) []PhaseLengthViolation {
	groups := ds.Groups()
	var violations []PhaseLengthViolation

	for _, key := range ds.GroupKeys() {
		size := len(groups[key])
		if v.accepts(size) {
			continue
		}
		v.logger.Debug("group cannot form a valid cycle",
			slog.String("error", apperrors.DataShape(key.Subject, key.Task, key.Step, size, v.cfg.ExpectedLength).Error()))
		violations = append(violations, PhaseLengthViolation{
			Subject:        key.Subject,
			Task:           key.Task,
			Step:           key.Step,
			ActualLength:   size,
			ExpectedLength: v.cfg.ExpectedLength,
		})
	}

	if len(violations) > 0 {
		v.logger.Warn("phase structure violations found",
			slog.Int("violations", len(violations)),
			slog.Int("groups", len(groups)),
			slog.Bool("strict", v.cfg.Strict))
	}

	return violations
}

func (v *StructureValidator) accepts(size int) bool {
	if v.cfg.Strict {
		return size == v.cfg.ExpectedLength
	}
	return size >= v.cfg.TolerantMin && size <= v.cfg.TolerantMax
}
