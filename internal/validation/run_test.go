package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaitcheck/internal/ranges"
)

// writeRunCSV writes one-subject, one-task gait data with the given number of
// full 150-sample strides. override can replace individual samples.
func writeRunCSV(t *testing.T, strides int, override func(stride, sample int) (float64, bool)) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("subject,task,step,phase,hip_flexion_angle_ipsi_rad\n")
	for stride := 0; stride < strides; stride++ {
		for sample := 0; sample < 150; sample++ {
			value := 0.0
			if override != nil {
				if v, ok := override(stride, sample); ok {
					value = v
				}
			}
			fmt.Fprintf(&sb, "S01,level_walking,%d,%.4f,%g\n",
				stride+1, float64(sample)*100/150, value)
		}
	}

	path := filepath.Join(t.TempDir(), "gait.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func fullCoverageTable(t *testing.T) *ranges.Table {
	t.Helper()
	pt := make(ranges.PhaseTable)
	for _, phase := range DefaultCheckpoints {
		pt[phase] = map[string]ranges.Range{ipsiFeature: {Min: -1, Max: 1}}
	}
	tbl, err := ranges.New(map[string]ranges.PhaseTable{"level_walking": pt})
	require.NoError(t, err)
	return tbl
}

func TestRunValidDataset(t *testing.T) {
	path := writeRunCSV(t, 2, nil)
	runner := NewRunner(fullCoverageTable(t), DefaultRunConfig(), discardLogger())

	result := runner.Run(path)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, RunStateDone, result.State)
	assert.Equal(t, OutcomeValid, result.Outcome)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.StructureViolations)
	assert.Equal(t, 2, result.TotalStrides)
	assert.Equal(t, 0, result.FailingStrides)
	assert.Equal(t, 1.0, result.PassRate)
	assert.False(t, result.EndTime.Before(result.StartTime))
}

func TestRunInvalidDataset(t *testing.T) {
	// Stride 2 violates the [-1, 1] range at the phase-25 checkpoint.
	path := writeRunCSV(t, 2, func(stride, sample int) (float64, bool) {
		if stride == 1 && sample == 37 {
			return 10.0, true
		}
		return 0, false
	})
	runner := NewRunner(fullCoverageTable(t), DefaultRunConfig(), discardLogger())

	result := runner.Run(path)

	assert.Equal(t, OutcomeInvalid, result.Outcome)
	assert.False(t, result.IsValid)
	assert.Equal(t, 2, result.TotalStrides)
	assert.Equal(t, 1, result.FailingStrides)
	assert.Equal(t, 0.5, result.PassRate)

	require.Len(t, result.TaskResults, 1)
	tr := result.TaskResults[0]
	assert.Equal(t, "S01", tr.Subject)
	assert.Equal(t, "level_walking", tr.Task)
	assert.Equal(t, map[int][]string{1: {ipsiFeature}}, tr.Failing)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Step)
}

func TestRunStructureViolation(t *testing.T) {
	// Truncate the second stride to 140 samples.
	path := writeRunCSV(t, 2, nil)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	trimmed := strings.Join(lines[:len(lines)-10], "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(trimmed), 0o644))

	runner := NewRunner(fullCoverageTable(t), DefaultRunConfig(), discardLogger())
	result := runner.Run(path)

	assert.Equal(t, OutcomeInvalid, result.Outcome)
	require.Len(t, result.StructureViolations, 1)
	assert.Equal(t, 140, result.StructureViolations[0].ActualLength)
	assert.Equal(t, 150, result.StructureViolations[0].ExpectedLength)
}

func TestRunMissingFile(t *testing.T) {
	runner := NewRunner(fullCoverageTable(t), DefaultRunConfig(), discardLogger())

	result := runner.Run(filepath.Join(t.TempDir(), "nope.csv"))

	assert.Equal(t, RunStateDone, result.State)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Error)
}

func TestRunUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gait.txt")
	require.NoError(t, os.WriteFile(path, []byte("subject,task,step,phase\n"), 0o644))

	runner := NewRunner(fullCoverageTable(t), DefaultRunConfig(), discardLogger())
	result := runner.Run(path)

	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "unsupported extension")
}

func TestRunMissingTaskInTable(t *testing.T) {
	tbl, err := ranges.New(map[string]ranges.PhaseTable{
		"stair_ascent": {25: {ipsiFeature: {Min: -1, Max: 1}}},
	})
	require.NoError(t, err)

	path := writeRunCSV(t, 2, func(stride, sample int) (float64, bool) {
		return 50.0, true // wildly out of any range, but no table for the task
	})
	runner := NewRunner(tbl, DefaultRunConfig(), discardLogger())
	result := runner.Run(path)

	// Absent expectations skip the task with a warning rather than failing.
	assert.Equal(t, OutcomeValid, result.Outcome)
	assert.Equal(t, 0, result.FailingStrides)
}

func TestFileValidatorOutputDirectory(t *testing.T) {
	fv := NewFileValidator(discardLogger())
	dir := filepath.Join(t.TempDir(), "out", "nested")

	require.NoError(t, fv.ValidateOutputDirectory(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRunRecoversMidPipelinePanic(t *testing.T) {
	// A nil table makes the biomech stage dereference a nil pointer; the run
	// must absorb the panic into an error outcome instead of propagating it.
	path := writeRunCSV(t, 1, nil)
	runner := NewRunner(nil, DefaultRunConfig(), discardLogger())

	var result *Result
	require.NotPanics(t, func() { result = runner.Run(path) })

	assert.Equal(t, RunStateDone, result.State)
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Error, "panicked")
	assert.False(t, result.EndTime.IsZero())
}
