package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gaitcheck/internal/config"
	"gaitcheck/internal/dataset"
	"gaitcheck/internal/exporter"
	"gaitcheck/internal/infrastructure"
	"gaitcheck/internal/ranges"
	"gaitcheck/internal/stats"
	"gaitcheck/internal/validation"
)

func main() {
	mode := flag.String("mode", "validate", "run mode: validate or optimize")
	data := flag.String("data", "", "comma-separated dataset CSV paths")
	table := flag.String("table", "", "range table YAML path (validate mode, defaults to config)")
	out := flag.String("out", "", "output directory (defaults to config)")
	method := flag.String("method", "percentile", "optimization method: percentile, std_dev or iqr")
	targetFP := flag.Float64("target-fp", 0, "optimize for this false-positive rate instead of -method")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if *out != "" {
		cfg.Paths.OutputDir = *out
	}
	if *table != "" {
		cfg.Paths.RangeTable = *table
	}
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("failed to create required directories", "error", err)
		os.Exit(1)
	}
	cfg.Logging.FilePath = cfg.LogFilePath()

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	paths := splitPaths(*data)
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no datasets given: pass -data file.csv[,file.csv...]")
		flag.Usage()
		os.Exit(2)
	}

	writer := exporter.NewWriter(cfg.Paths.OutputDir, logger)

	var ok bool
	switch *mode {
	case "validate":
		ok = runValidate(cfg, logger, writer, paths)
	case "optimize":
		ok = runOptimize(cfg, logger, writer, paths, *method, *targetFP)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if !ok {
		os.Exit(1)
	}
}

// runValidate validates every dataset against the configured range table.
// Returns false when any run ends in error or an invalid dataset.
func runValidate(cfg *config.Config, logger *slog.Logger, writer *exporter.Writer, paths []string) bool {
	tbl, err := ranges.Load(cfg.Paths.RangeTable)
	if err != nil {
		logger.Error("failed to load range table",
			slog.String("path", cfg.Paths.RangeTable),
			slog.String("error", err.Error()))
		return false
	}

	runCfg := validation.RunConfig{
		Structure: validation.StructureConfig{
			ExpectedLength: cfg.Validation.CycleLength,
			Strict:         cfg.Validation.Strict,
			TolerantMin:    cfg.Validation.TolerantMin,
			TolerantMax:    cfg.Validation.TolerantMax,
		},
		Checkpoints: cfg.Validation.Checkpoints,
		CycleLength: cfg.Validation.CycleLength,
	}
	runner := validation.NewRunner(tbl, runCfg, logger)

	allValid := true
	for _, path := range paths {
		result := runner.Run(path)
		if result.Outcome == validation.OutcomeError {
			logger.Error("validation run failed",
				slog.String("dataset", path),
				slog.String("error", result.Error))
			allValid = false
			continue
		}
		if !result.IsValid {
			allValid = false
		}
		if len(result.Failures) > 0 {
			name := result.ID + "_failures.csv"
			if err := writer.WriteFailures(name, result.Failures); err != nil {
				logger.Error("failed to export failures", slog.String("error", err.Error()))
			}
		}
	}
	return allValid
}

// runOptimize aggregates every dataset and exports optimized ranges.
func runOptimize(cfg *config.Config, logger *slog.Logger, writer *exporter.Writer, paths []string, methodName string, targetFP float64) bool {
	agg := stats.NewAggregator(cfg.Optimization.ReservoirSize, cfg.Optimization.Seed, logger)

	var infos []exporter.DatasetInfo
	for _, path := range paths {
		ds, err := dataset.LoadCSV(path, logger)
		if err != nil {
			logger.Error("skipping unloadable dataset",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		err = ds.EachFeatureChunk(cfg.Optimization.ChunkSize, func(features map[string][]float64) error {
			agg.AddChunk(ds.Name, features)
			return nil
		})
		if err != nil {
			logger.Error("chunk ingestion failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		infos = append(infos, exporter.DatasetInfoFrom(ds, 1.0))
	}
	if len(infos) == 0 {
		logger.Error("no datasets loaded, nothing to optimize")
		return false
	}

	opt := ranges.NewOptimizer(agg, logger)
	features := agg.Features()

	var optimized map[string]ranges.Range
	if targetFP > 0 {
		fpCfg := ranges.FPRateConfig{
			Target:        targetFP,
			Tolerance:     cfg.Optimization.Tolerance,
			MaxIterations: cfg.Optimization.MaxIterations,
		}
		var err error
		optimized, err = opt.OptimizeForFPRate(features, fpCfg)
		if err != nil {
			logger.Error("false-positive optimization failed", slog.String("error", err.Error()))
			return false
		}
	} else {
		kind, err := ranges.ParseKind(methodName)
		if err != nil {
			logger.Error("unknown optimization method", slog.String("method", methodName))
			return false
		}
		m, err := ranges.NewMethod(kind)
		if err != nil {
			logger.Error("failed to build optimization method", slog.String("error", err.Error()))
			return false
		}
		optimized = opt.OptimizeRanges(m, features)
	}

	export := exporter.NewOptimizationExport(infos, agg.TotalObservations(), optimized)
	if err := writer.WriteOptimization("optimized_ranges.json", export); err != nil {
		logger.Error("failed to write optimization export", slog.String("error", err.Error()))
		return false
	}
	return true
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
