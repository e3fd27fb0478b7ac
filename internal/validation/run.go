package validation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gaitcheck/internal/dataset"
	"gaitcheck/internal/ranges"
)

// RunState tracks the comprehensive validation run through its pipeline.
type RunState string

const (
	RunStateIdle           RunState = "idle"
	RunStateLoading        RunState = "loading"
	RunStateStructureCheck RunState = "structure_check"
	RunStateBiomechCheck   RunState = "biomech_check"
	RunStateDone           RunState = "done"
)

// Outcome is the terminal verdict of a run.
type Outcome string

const (
	OutcomeValid   Outcome = "valid"
	OutcomeInvalid Outcome = "invalid"
	OutcomeError   Outcome = "error"
)

// TaskResult holds the failing-strides map for one (subject, task) slice.
type TaskResult struct {
	Subject string           `json:"subject"`
	Task    string           `json:"task"`
	Strides int              `json:"strides"`
	Failing map[int][]string `json:"failing,omitempty"`
}

// Result is the structured outcome of a comprehensive validation run.
// Callers always receive a Result, never a raised error: any mid-pipeline
// failure terminates into OutcomeError with the message recorded.
type Result struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	State     RunState  `json:"state"`
	Outcome   Outcome   `json:"outcome"`
	IsValid   bool      `json:"is_valid"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	StructureViolations []PhaseLengthViolation `json:"structure_violations,omitempty"`
	TaskResults         []TaskResult           `json:"task_results,omitempty"`
	Failures            []FailureRecord        `json:"failures,omitempty"`

	TotalStrides   int     `json:"total_strides"`
	FailingStrides int     `json:"failing_strides"`
	PassRate       float64 `json:"pass_rate"`

	Error string `json:"error,omitempty"`
}

// RunConfig parameterizes a comprehensive validation run.
type RunConfig struct {
	Structure   StructureConfig
	Checkpoints []int
	CycleLength int
}

// DefaultRunConfig returns the strict default pipeline settings.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Structure:   DefaultStructureConfig(),
		Checkpoints: DefaultCheckpoints,
		CycleLength: dataset.DefaultCycleLength,
	}
}

// Runner executes the full validation pipeline against one dataset file:
// IDLE → LOADING → STRUCTURE_CHECK → BIOMECH_CHECK → DONE.
type Runner struct {
	table  *ranges.Table
	cfg    RunConfig
	files  *FileValidator
	logger *slog.Logger
}

// NewRunner creates a runner over the given range table.
func NewRunner(table *ranges.Table, cfg RunConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CycleLength <= 0 {
		cfg.CycleLength = dataset.DefaultCycleLength
	}
	if len(cfg.Checkpoints) == 0 {
		cfg.Checkpoints = DefaultCheckpoints
	}
	return &Runner{
		table:  table,
		cfg:    cfg,
		files:  NewFileValidator(logger),
		logger: logger,
	}
}

// Run validates the dataset at path end to end and always returns a
// structured result. Panics and load failures terminate into OutcomeError.
func (r *Runner) Run(path string) (result *Result) {
	result = &Result{
		ID:        uuid.NewString(),
		Dataset:   path,
		State:     RunStateIdle,
		StartTime: time.Now(),
	}

	defer func() {
		if rec := recover(); rec != nil {
			result.fail(fmt.Sprintf("validation pipeline panicked: %v", rec))
			r.logger.Error("validation run panicked",
				slog.String("run_id", result.ID),
				slog.String("dataset", path),
				slog.Any("panic", rec))
		}
	}()

	r.logger.Info("validation run started",
		slog.String("run_id", result.ID),
		slog.String("dataset", path))

	result.State = RunStateLoading
	if err := r.files.ValidateDatasetFile(path); err != nil {
		result.fail(err.Error())
		return result
	}
	ds, err := dataset.LoadCSV(path, r.logger)
	if err != nil {
		result.fail(err.Error())
		return result
	}

	result.State = RunStateStructureCheck
	sv := NewStructureValidator(r.cfg.Structure, r.logger)
	result.StructureViolations = sv.Validate(ds)

	result.State = RunStateBiomechCheck
	r.biomechCheck(ds, result)

	result.State = RunStateDone
	result.EndTime = time.Now()
	result.IsValid = len(result.StructureViolations) == 0 && result.FailingStrides == 0
	if result.IsValid {
		result.Outcome = OutcomeValid
	} else {
		result.Outcome = OutcomeInvalid
	}

	r.logger.Info("validation run finished",
		slog.String("run_id", result.ID),
		slog.String("outcome", string(result.Outcome)),
		slog.Int("total_strides", result.TotalStrides),
		slog.Int("failing_strides", result.FailingStrides),
		slog.Float64("pass_rate", result.PassRate))

	return result
}

// biomechCheck runs the stride validator over every (subject, task) slice.
func (r *Runner) biomechCheck(ds *dataset.Dataset, result *Result) {
	provider := dataset.NewProvider(ds, r.cfg.CycleLength, r.logger)
	validator := NewStrideValidator(r.table, r.cfg.Checkpoints, r.cfg.CycleLength, r.logger)

	for _, subject := range ds.Subjects() {
		for _, task := range ds.Tasks() {
			cycles, features, steps := provider.Cycles(subject, task, nil)
			if len(cycles) == 0 {
				continue
			}

			meta := make([]StrideMeta, len(cycles))
			for i, step := range steps {
				meta[i] = StrideMeta{Subject: subject, Step: step}
			}

			failing, records := validator.ValidateCycles(task, cycles, features, meta)
			result.TotalStrides += len(cycles)
			result.FailingStrides += len(failing)
			result.Failures = append(result.Failures, records...)
			result.TaskResults = append(result.TaskResults, TaskResult{
				Subject: subject,
				Task:    task,
				Strides: len(cycles),
				Failing: failing,
			})
		}
	}

	if result.TotalStrides > 0 {
		result.PassRate = float64(result.TotalStrides-result.FailingStrides) / float64(result.TotalStrides)
	}
}

// fail records an error terminal state.
func (res *Result) fail(msg string) {
	res.State = RunStateDone
	res.Outcome = OutcomeError
	res.IsValid = false
	res.Error = msg
	res.EndTime = time.Now()
}
