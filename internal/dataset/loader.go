package dataset

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "gaitcheck/internal/errors"
)

// columnIndex maps the required metadata columns plus each feature column to
// its position in the CSV header.
type columnIndex struct {
	subject  int
	task     int
	step     int
	phase    int
	features map[string]int
}

// LoadCSV loads one phase-normalized dataset from a CSV file.
//
// Required columns: subject, task, step (or cycle), phase (or phase_percent).
// Every remaining column whose name follows the feature naming convention is
// treated as a feature. Unparseable rows are skipped with a warning so one
// bad row never discards the dataset; an unreadable file or a missing
// required column is a MALFORMED_INPUT error, fatal for this dataset only.
func LoadCSV(path string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}
	if len(records) < 2 {
		return nil, apperrors.New(apperrors.CodeMalformedInput,
			"dataset "+path+" has no data rows")
	}

	cols, err := resolveColumns(records[0])
	if err != nil {
		return nil, apperrors.MalformedInput(path, err)
	}

	ds := &Dataset{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:     path,
		Features: sortedFeatureNames(cols.features),
	}

	skipped := 0
	for i, record := range records[1:] {
		row, parseErr := parseRow(record, cols)
		if parseErr != nil {
			skipped++
			logger.Warn("skipping unparseable row",
				slog.String("file", filepath.Base(path)),
				slog.Int("line", i+2),
				slog.String("error", parseErr.Error()))
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}

	if len(ds.Rows) == 0 {
		return nil, apperrors.New(apperrors.CodeMalformedInput,
			"dataset "+path+" has no parseable rows")
	}

	logger.Info("dataset loaded",
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("skipped", skipped),
		slog.Int("features", len(ds.Features)))

	return ds, nil
}

func resolveColumns(header []string) (columnIndex, error) {
	cols := columnIndex{subject: -1, task: -1, step: -1, phase: -1, features: make(map[string]int)}

	for i, raw := range header {
		name := strings.TrimSpace(raw)
		switch strings.ToLower(name) {
		case "subject":
			cols.subject = i
		case "task":
			cols.task = i
		case "step", "cycle":
			cols.step = i
		case "phase", "phase_percent":
			cols.phase = i
		default:
			if IsFeatureColumn(name) {
				cols.features[name] = i
			}
		}
	}

	var missing []string
	if cols.subject < 0 {
		missing = append(missing, "subject")
	}
	if cols.task < 0 {
		missing = append(missing, "task")
	}
	if cols.step < 0 {
		missing = append(missing, "step|cycle")
	}
	if cols.phase < 0 {
		missing = append(missing, "phase|phase_percent")
	}
	if len(missing) > 0 {
		return cols, &missingColumnsError{columns: missing}
	}
	return cols, nil
}

type missingColumnsError struct {
	columns []string
}

func (e *missingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.columns, ", ")
}

func parseRow(record []string, cols columnIndex) (Row, error) {
	max := cols.phase
	for _, idx := range []int{cols.subject, cols.task, cols.step} {
		if idx > max {
			max = idx
		}
	}
	if len(record) <= max {
		return Row{}, &missingColumnsError{columns: []string{"(short record)"}}
	}

	step, err := strconv.Atoi(strings.TrimSpace(record[cols.step]))
	if err != nil {
		return Row{}, err
	}
	phase, err := strconv.ParseFloat(strings.TrimSpace(record[cols.phase]), 64)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Subject:      strings.TrimSpace(record[cols.subject]),
		Task:         strings.TrimSpace(record[cols.task]),
		Step:         step,
		PhasePercent: phase,
		Values:       make(map[string]float64, len(cols.features)),
	}
	if row.Subject == "" || row.Task == "" {
		return Row{}, &missingColumnsError{columns: []string{"subject/task empty"}}
	}

	for feature, idx := range cols.features {
		if idx >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[idx])
		if cell == "" {
			continue
		}
		v, parseErr := strconv.ParseFloat(cell, 64)
		if parseErr != nil {
			continue // leave the cell absent, the calculator ignores gaps
		}
		row.Values[feature] = v
	}

	return row, nil
}

func sortedFeatureNames(features map[string]int) []string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
