package dataset

import (
	"log/slog"
	"sort"
	"strings"
)

// Provider reshapes flat per-row data into 3D cycle arrays of shape
// (cycles, cycleLength, features) for a (subject, task, feature-set)
// selection.
//
// Results are memoized in an explicit cache keyed by the selection; the cache
// lifecycle is owned by the caller through Invalidate and InvalidateAll
// rather than by object lifetime.
type Provider struct {
	ds          *Dataset
	cycleLength int
	cache       map[string]cachedCycles
	logger      *slog.Logger
}

type cachedCycles struct {
	cycles   [][][]float64
	features []string
	steps    []int
}

// NewProvider creates a provider over a loaded dataset. cycleLength <= 0
// falls back to DefaultCycleLength.
func NewProvider(ds *Dataset, cycleLength int, logger *slog.Logger) *Provider {
	if cycleLength <= 0 {
		cycleLength = DefaultCycleLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		ds:          ds,
		cycleLength: cycleLength,
		cache:       make(map[string]cachedCycles),
		logger:      logger,
	}
}

// CycleLength returns the configured samples-per-cycle count.
func (p *Provider) CycleLength() int {
	return p.cycleLength
}

// Cycles returns the 3D cycle array for one (subject, task) slice restricted
// to the requested features, plus the resolved feature names and the step
// number of each cycle. Features absent from the dataset are dropped from
// the selection; an empty features slice selects every dataset feature.
//
// If the slice's row count is not a multiple of the cycle length, a warning
// is logged and (nil, nil, nil) is returned.
func (p *Provider) Cycles(subject, task string, features []string) ([][][]float64, []string, []int) {
	resolved := p.resolveFeatures(features)
	key := cacheKey(subject, task, resolved)
	if hit, ok := p.cache[key]; ok {
		return hit.cycles, hit.features, hit.steps
	}

	rows := p.sliceRows(subject, task)
	if len(rows) == 0 {
		return nil, nil, nil
	}
	if len(rows)%p.cycleLength != 0 {
		p.logger.Warn("row count does not form whole cycles",
			slog.String("subject", subject),
			slog.String("task", task),
			slog.Int("rows", len(rows)),
			slog.Int("cycle_length", p.cycleLength))
		return nil, nil, nil
	}

	numCycles := len(rows) / p.cycleLength
	cycles := make([][][]float64, numCycles)
	steps := make([]int, numCycles)
	for c := 0; c < numCycles; c++ {
		cycle := make([][]float64, p.cycleLength)
		base := c * p.cycleLength
		steps[c] = rows[base].Step
		for s := 0; s < p.cycleLength; s++ {
			sample := make([]float64, len(resolved))
			for f, name := range resolved {
				sample[f] = rows[base+s].Values[name]
			}
			cycle[s] = sample
		}
		cycles[c] = cycle
	}

	p.cache[key] = cachedCycles{cycles: cycles, features: resolved, steps: steps}
	return cycles, resolved, steps
}

// Invalidate drops the cached reshape for one selection.
func (p *Provider) Invalidate(subject, task string, features []string) {
	delete(p.cache, cacheKey(subject, task, p.resolveFeatures(features)))
}

// InvalidateAll clears the entire memoization map.
func (p *Provider) InvalidateAll() {
	p.cache = make(map[string]cachedCycles)
}

// CacheSize returns the number of memoized selections.
func (p *Provider) CacheSize() int {
	return len(p.cache)
}

// sliceRows returns the dataset rows for one (subject, task), ordered by
// step then phase so consecutive runs of cycleLength rows form one cycle.
func (p *Provider) sliceRows(subject, task string) []Row {
	var rows []Row
	for _, r := range p.ds.Rows {
		if r.Subject == subject && r.Task == task {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Step != rows[j].Step {
			return rows[i].Step < rows[j].Step
		}
		return rows[i].PhasePercent < rows[j].PhasePercent
	})
	return rows
}

func (p *Provider) resolveFeatures(requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(p.ds.Features))
		copy(out, p.ds.Features)
		return out
	}

	available := make(map[string]struct{}, len(p.ds.Features))
	for _, f := range p.ds.Features {
		available[f] = struct{}{}
	}
	var out []string
	for _, f := range requested {
		if _, ok := available[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

func cacheKey(subject, task string, features []string) string {
	return subject + "\x1f" + task + "\x1f" + strings.Join(features, ",")
}
