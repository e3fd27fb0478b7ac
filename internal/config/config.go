package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"gaitcheck/internal/dataset"
)

// Config represents the complete application configuration.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging" envconfig:"LOGGING"`
	Paths        PathsConfig        `yaml:"paths" envconfig:"PATHS"`
	Validation   ValidationConfig   `yaml:"validation" envconfig:"VALIDATION"`
	Optimization OptimizationConfig `yaml:"optimization" envconfig:"OPTIMIZATION"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration.
type PathsConfig struct {
	RangeTable string `yaml:"range_table" envconfig:"RANGE_TABLE"`
	OutputDir  string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ValidationConfig controls the stride validation pipeline.
type ValidationConfig struct {
	CycleLength int   `yaml:"cycle_length" envconfig:"CYCLE_LENGTH" validate:"gt=0"`
	Strict      bool  `yaml:"strict" envconfig:"STRICT"`
	TolerantMin int   `yaml:"tolerant_min" envconfig:"TOLERANT_MIN" validate:"gt=0"`
	TolerantMax int   `yaml:"tolerant_max" envconfig:"TOLERANT_MAX" validate:"gtefield=TolerantMin"`
	Checkpoints []int `yaml:"checkpoints" envconfig:"CHECKPOINTS" validate:"min=1,dive,gte=0,lte=100"`
}

// OptimizationConfig controls the streaming range-optimization engine.
type OptimizationConfig struct {
	ReservoirSize int     `yaml:"reservoir_size" envconfig:"RESERVOIR_SIZE" validate:"gt=0"`
	Seed          int64   `yaml:"seed" envconfig:"SEED"`
	TargetFPRate  float64 `yaml:"target_fp_rate" envconfig:"TARGET_FP_RATE" validate:"gt=0,lt=0.5"`
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"gte=1"`
	ChunkSize     int     `yaml:"chunk_size" envconfig:"CHUNK_SIZE" validate:"gte=0"`
}

// Load builds the configuration with precedence env > file > defaults.
//
// Defaults come from Default(); the optional YAML file overlays only the keys
// it actually sets (so a file can turn strict mode off or pin seed 0), then
// envconfig overlays only the variables present in the environment.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := findConfigFile(); configFile != "" {
		if err := overlayFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process("GAITCHECK", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from a specific YAML file over the defaults,
// ignoring the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := overlayFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// overlayFile unmarshals the YAML file into cfg in place. Keys absent from
// the file leave the corresponding fields untouched, which is what makes the
// overlay presence-aware rather than zero-value-based.
func overlayFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration against its struct tag rules.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// EnsureDirectories creates the output and logs directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the log file path, resolving a bare file name under the
// logs directory.
func (c *Config) LogFilePath() string {
	if filepath.IsAbs(c.Logging.FilePath) || filepath.Dir(c.Logging.FilePath) != "." {
		return c.Logging.FilePath
	}
	return filepath.Join(c.Paths.LogsDir, c.Logging.FilePath)
}

// findConfigFile checks the common config file locations.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/gaitcheck.log",
		},
		Paths: PathsConfig{
			RangeTable: "ranges.yaml",
			OutputDir:  "output",
			LogsDir:    "logs",
		},
		Validation: ValidationConfig{
			CycleLength: dataset.DefaultCycleLength,
			Strict:      true,
			TolerantMin: 140,
			TolerantMax: 160,
			Checkpoints: []int{0, 25, 50, 75},
		},
		Optimization: OptimizationConfig{
			ReservoirSize: 1000,
			Seed:          0,
			TargetFPRate:  0.05,
			Tolerance:     0.005,
			MaxIterations: 20,
			ChunkSize:     15000,
		},
	}
}
