package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 150, cfg.Validation.CycleLength)
	assert.True(t, cfg.Validation.Strict)
	assert.Equal(t, []int{0, 25, 50, 75}, cfg.Validation.Checkpoints)
	assert.Equal(t, 1000, cfg.Optimization.ReservoirSize)
	assert.InDelta(t, 0.05, cfg.Optimization.TargetFPRate, 1e-12)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
logging:
  level: debug
validation:
  cycle_length: 100
  tolerant_min: 90
  tolerant_max: 110
optimization:
  reservoir_size: 500
  target_fp_rate: 0.10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.Validation.CycleLength)
	assert.Equal(t, 500, cfg.Optimization.ReservoirSize)
	assert.InDelta(t, 0.10, cfg.Optimization.TargetFPRate, 1e-12)

	// Unset fields fall back to defaults.
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 20, cfg.Optimization.MaxIterations)
	assert.Equal(t, []int{0, 25, 50, 75}, cfg.Validation.Checkpoints)
}

func TestLoadFileCanDisableStrictMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
validation:
  strict: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// strict defaults to true; the file key alone must flip it off while the
	// untouched fields keep their defaults.
	assert.False(t, cfg.Validation.Strict)
	assert.Equal(t, 150, cfg.Validation.CycleLength)
	assert.Equal(t, 140, cfg.Validation.TolerantMin)
	assert.Equal(t, 160, cfg.Validation.TolerantMax)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"zero cycle length", func(c *Config) { c.Validation.CycleLength = 0 }},
		{"inverted tolerant window", func(c *Config) { c.Validation.TolerantMin = 160; c.Validation.TolerantMax = 140 }},
		{"checkpoint above 100", func(c *Config) { c.Validation.Checkpoints = []int{0, 150} }},
		{"fp target at half", func(c *Config) { c.Optimization.TargetFPRate = 0.5 }},
		{"no iterations", func(c *Config) { c.Optimization.MaxIterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("logging:\n  level: warn\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv("GAITCHECK_LOGGING_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{cfg.Paths.OutputDir, cfg.Paths.LogsDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLogFilePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "logs/gaitcheck.log", cfg.LogFilePath())

	cfg.Logging.FilePath = "run.log"
	assert.Equal(t, filepath.Join("logs", "run.log"), cfg.LogFilePath())

	cfg.Logging.FilePath = "/var/log/gaitcheck.log"
	assert.Equal(t, "/var/log/gaitcheck.log", cfg.LogFilePath())
}
