// Package exporter persists optimization results and validation failure
// records to disk, as JSON and CSV respectively.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gaitcheck/internal/dataset"
	"gaitcheck/internal/ranges"
	"gaitcheck/internal/validation"
)

// DatasetInfo describes one contributing dataset in the export metadata.
type DatasetInfo struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Weight   float64 `json:"weight"`
	Rows     int     `json:"rows"`
	Features int     `json:"features"`
}

// DatasetInfoFrom builds the metadata entry for one loaded dataset.
func DatasetInfoFrom(ds *dataset.Dataset, weight float64) DatasetInfo {
	return DatasetInfo{
		Name:     ds.Name,
		Path:     ds.Path,
		Weight:   weight,
		Rows:     len(ds.Rows),
		Features: len(ds.Features),
	}
}

// Metadata is the provenance block of an optimization export.
type Metadata struct {
	Generated         time.Time     `json:"generated"`
	Datasets          []DatasetInfo `json:"datasets"`
	TotalObservations int64         `json:"total_observations"`
}

// OptimizationExport is the JSON document written for one optimization run.
type OptimizationExport struct {
	Metadata        Metadata                `json:"metadata"`
	OptimizedRanges map[string]ranges.Range `json:"optimized_ranges"`
}

// NewOptimizationExport assembles an export document stamped with the current
// time.
func NewOptimizationExport(datasets []DatasetInfo, totalObservations int64, optimized map[string]ranges.Range) OptimizationExport {
	return OptimizationExport{
		Metadata: Metadata{
			Generated:         time.Now().UTC(),
			Datasets:          datasets,
			TotalObservations: totalObservations,
		},
		OptimizedRanges: optimized,
	}
}

// Writer persists export documents under a base output directory. Relative
// paths resolve against it; absolute paths are used as given.
type Writer struct {
	outputDir string
	logger    *slog.Logger
}

// NewWriter creates a writer rooted at outputDir.
func NewWriter(outputDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outputDir: outputDir, logger: logger}
}

// WriteOptimization writes the optimization export as indented JSON.
func (w *Writer) WriteOptimization(path string, export OptimizationExport) error {
	fullPath := w.resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode optimization export: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write optimization export: %w", err)
	}

	w.logger.Info("optimization export written",
		slog.String("path", fullPath),
		slog.Int("features", len(export.OptimizedRanges)),
		slog.Int("datasets", len(export.Metadata.Datasets)))
	return nil
}

// failureHeaders is the CSV column order for failure-record exports.
var failureHeaders = []string{
	"subject", "task", "step", "feature", "phase",
	"value", "expected_min", "expected_max", "reason",
}

// WriteFailures writes validation failure records as CSV, one row per
// out-of-range observation. A header row is always emitted, so an empty
// record list produces a header-only file.
func (w *Writer) WriteFailures(path string, records []validation.FailureRecord) error {
	fullPath := w.resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create failure export: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(failureHeaders); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Subject,
			rec.Task,
			strconv.Itoa(rec.Step),
			rec.Feature,
			strconv.Itoa(rec.Phase),
			formatFloat(rec.Value),
			formatFloat(rec.ExpectedMin),
			formatFloat(rec.ExpectedMax),
			rec.Reason,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV export: %w", err)
	}

	w.logger.Info("failure export written",
		slog.String("path", fullPath),
		slog.Int("records", len(records)))
	return nil
}

func (w *Writer) resolvePath(path string) string {
	if filepath.IsAbs(path) || w.outputDir == "" {
		return path
	}
	return filepath.Join(w.outputDir, path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
