package ranges

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"gaitcheck/internal/dataset"
)

// Range is an inclusive acceptable [Min, Max] interval for one feature at one
// phase checkpoint.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// PhaseTable maps phase checkpoint (0-100) to feature name to range.
type PhaseTable map[int]map[string]Range

// TaskTable holds one task's expectations, split into kinematic and kinetic
// sub-tables by feature classification. Lookups go to the sub-table matching
// the feature's class, so a feature filed under the wrong sub-table is never
// matched.
type TaskTable struct {
	kinematic PhaseTable
	kinetic   PhaseTable
	phases    []int
}

// Phases returns the task's phase checkpoints sorted ascending.
func (tt *TaskTable) Phases() []int {
	out := make([]int, len(tt.phases))
	copy(out, tt.phases)
	return out
}

// Lookup returns the range for a feature at a phase, consulting the
// sub-table selected by the feature's classification.
func (tt *TaskTable) Lookup(feature string, phase int) (Range, bool) {
	var sub PhaseTable
	switch dataset.Classify(feature) {
	case dataset.ClassKinematic:
		sub = tt.kinematic
	case dataset.ClassKinetic:
		sub = tt.kinetic
	default:
		return Range{}, false
	}

	features, ok := sub[phase]
	if !ok {
		return Range{}, false
	}
	r, ok := features[feature]
	return r, ok
}

// Table is the authoritative validation range table: task → phase → feature
// → {min, max}. It is immutable once built and safe for concurrent readers.
type Table struct {
	tasks map[string]*TaskTable
}

// New builds a table from the nested task → phase → feature → range mapping,
// enforcing min ≤ max and phases in [0, 100].
func New(raw map[string]PhaseTable) (*Table, error) {
	t := &Table{tasks: make(map[string]*TaskTable, len(raw))}

	for task, phases := range raw {
		tt := &TaskTable{
			kinematic: make(PhaseTable),
			kinetic:   make(PhaseTable),
		}
		for phase, features := range phases {
			if phase < 0 || phase > 100 {
				return nil, fmt.Errorf("task %q: phase %d out of range [0, 100]", task, phase)
			}
			for feature, r := range features {
				if r.Min > r.Max {
					return nil, fmt.Errorf("task %q phase %d feature %q: min %g exceeds max %g",
						task, phase, feature, r.Min, r.Max)
				}
				var sub PhaseTable
				switch dataset.Classify(feature) {
				case dataset.ClassKinetic:
					sub = tt.kinetic
				default:
					// Unclassifiable curated entries default to kinematic so
					// they remain visible in Phases and exports.
					sub = tt.kinematic
				}
				if sub[phase] == nil {
					sub[phase] = make(map[string]Range)
				}
				sub[phase][feature] = r
			}
			tt.phases = append(tt.phases, phase)
		}
		sort.Ints(tt.phases)
		t.tasks[task] = tt
	}

	return t, nil
}

// Load reads a curated range table from YAML:
//
//	level_walking:
//	  25:
//	    hip_flexion_angle_ipsi_rad: {min: -1.0, max: 1.0}
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read range table: %w", err)
	}

	var raw map[string]PhaseTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse range table %s: %w", path, err)
	}

	return New(raw)
}

// FromOptimized nests a flat per-feature optimizer result under one task,
// duplicating each feature's range at every given phase checkpoint.
func FromOptimized(task string, phases []int, flat map[string]Range) (*Table, error) {
	pt := make(PhaseTable, len(phases))
	for _, phase := range phases {
		features := make(map[string]Range, len(flat))
		for feature, r := range flat {
			features[feature] = r
		}
		pt[phase] = features
	}
	return New(map[string]PhaseTable{task: pt})
}

// Task returns one task's expectations, or false if the task is absent.
func (t *Table) Task(name string) (*TaskTable, bool) {
	tt, ok := t.tasks[name]
	return tt, ok
}

// Tasks returns the table's task names, sorted.
func (t *Table) Tasks() []string {
	names := make([]string, 0, len(t.tasks))
	for name := range t.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
