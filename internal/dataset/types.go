package dataset

import "sort"

// DefaultCycleLength is the number of phase-normalized samples that form one
// complete gait cycle.
const DefaultCycleLength = 150

// Row is a single phase sample for one (subject, task, step).
type Row struct {
	Subject      string
	Task         string
	Step         int
	PhasePercent float64
	Values       map[string]float64
}

// GroupKey identifies one stride's worth of rows.
type GroupKey struct {
	Subject string
	Task    string
	Step    int
}

// Dataset holds the parsed rows of one input file plus the feature columns
// discovered in its header.
type Dataset struct {
	Name     string
	Path     string
	Rows     []Row
	Features []string
}

// Groups partitions rows by (subject, task, step), preserving row order
// within each group.
func (d *Dataset) Groups() map[GroupKey][]Row {
	groups := make(map[GroupKey][]Row)
	for _, r := range d.Rows {
		key := GroupKey{Subject: r.Subject, Task: r.Task, Step: r.Step}
		groups[key] = append(groups[key], r)
	}
	return groups
}

// GroupKeys returns the group keys in deterministic order (subject, task,
// step ascending).
func (d *Dataset) GroupKeys() []GroupKey {
	seen := make(map[GroupKey]struct{})
	var keys []GroupKey
	for _, r := range d.Rows {
		key := GroupKey{Subject: r.Subject, Task: r.Task, Step: r.Step}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Subject != keys[j].Subject {
			return keys[i].Subject < keys[j].Subject
		}
		if keys[i].Task != keys[j].Task {
			return keys[i].Task < keys[j].Task
		}
		return keys[i].Step < keys[j].Step
	})
	return keys
}

// Subjects returns the distinct subject IDs, sorted.
func (d *Dataset) Subjects() []string {
	return distinct(d.Rows, func(r Row) string { return r.Subject })
}

// Tasks returns the distinct task names, sorted.
func (d *Dataset) Tasks() []string {
	return distinct(d.Rows, func(r Row) string { return r.Task })
}

func distinct(rows []Row, key func(Row) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// FeatureValues collects every value of every feature across all rows, in row
// order. Missing cells are skipped.
func (d *Dataset) FeatureValues() map[string][]float64 {
	out := make(map[string][]float64, len(d.Features))
	for _, r := range d.Rows {
		for _, f := range d.Features {
			if v, ok := r.Values[f]; ok {
				out[f] = append(out[f], v)
			}
		}
	}
	return out
}

// EachFeatureChunk iterates the dataset's rows in bounded-size row ranges,
// passing each range's feature values to fn. This is the sequential batch
// ingestion path: it caps peak memory per call without introducing any
// parallelism. chunkSize <= 0 processes everything in one chunk.
func (d *Dataset) EachFeatureChunk(chunkSize int, fn func(features map[string][]float64) error) error {
	if chunkSize <= 0 || chunkSize >= len(d.Rows) {
		return fn(d.FeatureValues())
	}

	for start := 0; start < len(d.Rows); start += chunkSize {
		end := start + chunkSize
		if end > len(d.Rows) {
			end = len(d.Rows)
		}

		chunk := make(map[string][]float64, len(d.Features))
		for _, r := range d.Rows[start:end] {
			for _, f := range d.Features {
				if v, ok := r.Values[f]; ok {
					chunk[f] = append(chunk[f], v)
				}
			}
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}
