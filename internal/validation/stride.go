package validation

import (
	"log/slog"

	"gaitcheck/internal/dataset"
	apperrors "gaitcheck/internal/errors"
	"gaitcheck/internal/ranges"
)

// DefaultCheckpoints are the representative phase percentages checked per
// cycle. Validation samples these checkpoints only, not all phase points.
var DefaultCheckpoints = []int{0, 25, 50, 75}

// FailureRecord describes one out-of-range observation. A stride with zero
// associated FailureRecords is passing.
type FailureRecord struct {
	Subject     string  `json:"subject"`
	Task        string  `json:"task"`
	Step        int     `json:"step"`
	Feature     string  `json:"feature"`
	Phase       int     `json:"phase"`
	Value       float64 `json:"value"`
	ExpectedMin float64 `json:"expected_min"`
	ExpectedMax float64 `json:"expected_max"`
	Reason      string  `json:"reason"`
}

// StrideMeta carries the identity of one cycle in a 3D slice so failure
// records can name the originating subject and step.
type StrideMeta struct {
	Subject string
	Step    int
}

// halfCycleShift is the contralateral alignment offset in phase percent.
// Contralateral-side ranges are time-shifted by 50% of the cycle before
// comparison to align with the ipsilateral convention. This offset is a
// domain correctness rule and must not change.
const halfCycleShift = 50

// StrideValidator compares cycles against a validation range table at the
// representative phase checkpoints.
type StrideValidator struct {
	table       *ranges.Table
	checkpoints []int
	cycleLength int
	logger      *slog.Logger
}

// NewStrideValidator creates a stride validator. Nil checkpoints use
// DefaultCheckpoints; cycleLength <= 0 uses dataset.DefaultCycleLength.
func NewStrideValidator(table *ranges.Table, checkpoints []int, cycleLength int, logger *slog.Logger) *StrideValidator {
	if len(checkpoints) == 0 {
		checkpoints = DefaultCheckpoints
	}
	if cycleLength <= 0 {
		cycleLength = dataset.DefaultCycleLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StrideValidator{
		table:       table,
		checkpoints: checkpoints,
		cycleLength: cycleLength,
		logger:      logger,
	}
}

// ValidateCycles checks every cycle of one task slice against the table.
//
// The returned map holds stride index → failing feature names (each feature
// listed once per stride); a stride absent from the map is passing. The
// failure records carry the full per-violation detail. A task missing from
// the table is skipped with a warning, never a hard failure. meta may be nil
// or shorter than cycles; records then fall back to the stride index as step.
func (v *StrideValidator) ValidateCycles(task string, cycles [][][]float64, features []string, meta []StrideMeta) (map[int][]string, []FailureRecord) {
	failing := make(map[int][]string)

	tt, ok := v.table.Task(task)
	if !ok {
		v.logger.Warn("task missing from range table, skipping",
			slog.String("task", task),
			slog.Int("cycles", len(cycles)),
			slog.String("error", apperrors.MissingExpectations(task).Error()))
		return failing, nil
	}

	var records []FailureRecord
	for i, cycle := range cycles {
		seen := make(map[string]bool, len(features))
		for _, phase := range v.checkpoints {
			sample := phase * v.cycleLength / 100
			if sample < 0 || sample >= len(cycle) {
				continue
			}
			for j, feature := range features {
				r, found := tt.Lookup(feature, v.lookupPhase(feature, phase))
				if !found {
					continue
				}
				value := cycle[sample][j]
				if r.Contains(value) {
					continue
				}

				records = append(records, v.newRecord(task, i, meta, feature, phase, value, r))
				if !seen[feature] {
					seen[feature] = true
					failing[i] = append(failing[i], feature)
				}
			}
		}
	}

	if len(failing) > 0 {
		v.logger.Info("stride validation found failures",
			slog.String("task", task),
			slog.Int("failing_strides", len(failing)),
			slog.Int("total_strides", len(cycles)),
			slog.Int("violations", len(records)))
	}

	return failing, records
}

// lookupPhase applies the contralateral half-cycle shift.
func (v *StrideValidator) lookupPhase(feature string, phase int) int {
	if dataset.IsContralateral(feature) {
		return (phase + halfCycleShift) % 100
	}
	return phase
}

func (v *StrideValidator) newRecord(task string, stride int, meta []StrideMeta, feature string, phase int, value float64, r ranges.Range) FailureRecord {
	rec := FailureRecord{
		Task:        task,
		Step:        stride,
		Feature:     feature,
		Phase:       phase,
		Value:       value,
		ExpectedMin: r.Min,
		ExpectedMax: r.Max,
		Reason:      "above_max",
	}
	if value < r.Min {
		rec.Reason = "below_min"
	}
	if stride < len(meta) {
		rec.Subject = meta[stride].Subject
		rec.Step = meta[stride].Step
	}
	return rec
}
