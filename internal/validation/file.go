package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator performs the pre-load checks on dataset files and output
// locations shared by the validation and optimization entry points.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateDatasetFile checks that a dataset file exists, is readable, and
// carries a supported extension (.csv).
func (v *FileValidator) ValidateDatasetFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("dataset file does not exist", slog.String("file", path))
		return fmt.Errorf("dataset file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat dataset file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a dataset file", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("unsupported dataset extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("dataset file %s has unsupported extension %s (expected .csv)", path, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("dataset file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("dataset file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the output directory exists (creating it
// when needed) and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
