package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gaitcheck/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeCycleCSV writes a CSV with the given strides; each stride produces
// `length` rows with a constant value per feature, overridable through
// override(step, sampleIdx, feature).
func writeCycleCSV(t *testing.T, length int, strides []GroupKey, features map[string]float64,
	override func(step, sample int, feature string) (float64, bool)) string {
	t.Helper()

	names := make([]string, 0, len(features))
	for f := range features {
		names = append(names, f)
	}

	var sb strings.Builder
	sb.WriteString("subject,task,step,phase_percent," + strings.Join(names, ",") + "\n")
	for _, st := range strides {
		for s := 0; s < length; s++ {
			phase := float64(s) * 100 / float64(length)
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%.4f", st.Subject, st.Task, st.Step, phase))
			for _, f := range names {
				v := features[f]
				if override != nil {
					if ov, ok := override(st.Step, s, f); ok {
						v = ov
					}
				}
				sb.WriteString(fmt.Sprintf(",%g", v))
			}
			sb.WriteString("\n")
		}
	}

	path := filepath.Join(t.TempDir(), "strides.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCycleCSV(t, 150,
		[]GroupKey{{Subject: "SUB01", Task: "level_walking", Step: 1}},
		map[string]float64{"hip_flexion_angle_ipsi_rad": 0.4}, nil)

	ds, err := LoadCSV(path, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "strides", ds.Name)
	assert.Len(t, ds.Rows, 150)
	assert.Equal(t, []string{"hip_flexion_angle_ipsi_rad"}, ds.Features)
	assert.Equal(t, []string{"SUB01"}, ds.Subjects())
	assert.Equal(t, []string{"level_walking"}, ds.Tasks())
	assert.Equal(t, 0.4, ds.Rows[0].Values["hip_flexion_angle_ipsi_rad"])
}

func TestLoadCSVCycleColumnAlias(t *testing.T) {
	content := "subject,task,cycle,phase,hip_flexion_angle_ipsi_rad\n" +
		"SUB01,walk,2,0,0.1\n"
	path := filepath.Join(t.TempDir(), "alias.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ds, err := LoadCSV(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows[0].Step)
}

func TestLoadCSVMissingRequiredColumn(t *testing.T) {
	content := "subject,task,phase_percent,hip_flexion_angle_ipsi_rad\nSUB01,walk,0,0.1\n"
	path := filepath.Join(t.TempDir(), "nostep.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadCSV(path, discardLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedInput))
	assert.Contains(t, err.Error(), "step")
}

func TestLoadCSVSkipsBadRows(t *testing.T) {
	content := "subject,task,step,phase,hip_flexion_angle_ipsi_rad\n" +
		"SUB01,walk,1,0,0.1\n" +
		"SUB01,walk,notanumber,1,0.2\n" +
		"SUB01,walk,1,2,0.3\n"
	path := filepath.Join(t.TempDir(), "badrow.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ds, err := LoadCSV(path, discardLogger())
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
}

func TestLoadCSVUnreadableFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"), discardLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeMalformedInput))
}

func TestLoadCSVEmptyCellsLeftAbsent(t *testing.T) {
	content := "subject,task,step,phase,hip_flexion_angle_ipsi_rad,knee_flexion_angle_ipsi_rad\n" +
		"SUB01,walk,1,0,0.1,\n"
	path := filepath.Join(t.TempDir(), "gaps.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ds, err := LoadCSV(path, discardLogger())
	require.NoError(t, err)

	_, present := ds.Rows[0].Values["knee_flexion_angle_ipsi_rad"]
	assert.False(t, present)

	values := ds.FeatureValues()
	assert.Len(t, values["hip_flexion_angle_ipsi_rad"], 1)
	assert.Empty(t, values["knee_flexion_angle_ipsi_rad"])
}

func TestEachFeatureChunk(t *testing.T) {
	path := writeCycleCSV(t, 10,
		[]GroupKey{
			{Subject: "SUB01", Task: "walk", Step: 1},
			{Subject: "SUB01", Task: "walk", Step: 2},
		},
		map[string]float64{"hip_flexion_angle_ipsi_rad": 1.0}, nil)

	ds, err := LoadCSV(path, discardLogger())
	require.NoError(t, err)

	var chunks int
	var total int
	err = ds.EachFeatureChunk(6, func(features map[string][]float64) error {
		chunks++
		total += len(features["hip_flexion_angle_ipsi_rad"])
		return nil
	})
	require.NoError(t, err)

	// 20 rows in chunks of 6 -> 4 chunks, all rows covered exactly once.
	assert.Equal(t, 4, chunks)
	assert.Equal(t, 20, total)
}

func TestGroupKeysDeterministic(t *testing.T) {
	path := writeCycleCSV(t, 3,
		[]GroupKey{
			{Subject: "SUB02", Task: "walk", Step: 1},
			{Subject: "SUB01", Task: "walk", Step: 2},
			{Subject: "SUB01", Task: "walk", Step: 1},
		},
		map[string]float64{"hip_flexion_angle_ipsi_rad": 1.0}, nil)

	ds, err := LoadCSV(path, discardLogger())
	require.NoError(t, err)

	keys := ds.GroupKeys()
	require.Len(t, keys, 3)
	assert.Equal(t, GroupKey{Subject: "SUB01", Task: "walk", Step: 1}, keys[0])
	assert.Equal(t, GroupKey{Subject: "SUB01", Task: "walk", Step: 2}, keys[1])
	assert.Equal(t, GroupKey{Subject: "SUB02", Task: "walk", Step: 1}, keys[2])
}
