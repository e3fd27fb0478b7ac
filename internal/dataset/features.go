package dataset

import "strings"

// Class partitions features into the expectation sub-table they are checked
// against.
type Class int

const (
	// ClassUnknown marks a feature whose name does not follow the convention.
	ClassUnknown Class = iota
	// ClassKinematic covers joint angle and angular-velocity signals.
	ClassKinematic
	// ClassKinetic covers joint moment and force signals.
	ClassKinetic
)

// String returns the class name used in logs and reports.
func (c Class) String() string {
	switch c {
	case ClassKinematic:
		return "kinematic"
	case ClassKinetic:
		return "kinetic"
	default:
		return "unknown"
	}
}

// Feature columns follow <joint>_<motion>_<measurement>_<side>_<unit>,
// e.g. hip_flexion_angle_ipsi_rad or knee_flexion_velocity_contra_rad_s.
// Joint, motion, measurement, and side are single tokens; the unit may
// contain underscores, so tokens are indexed from the front.
const featureNameParts = 5

const (
	measurementToken = 2
	sideToken        = 3
)

// Classify derives a feature's class from its measurement token.
func Classify(feature string) Class {
	parts := strings.Split(feature, "_")
	if len(parts) < featureNameParts {
		return ClassUnknown
	}
	switch strings.ToLower(parts[measurementToken]) {
	case "angle", "velocity":
		return ClassKinematic
	case "moment", "force":
		return ClassKinetic
	default:
		return ClassUnknown
	}
}

// IsContralateral reports whether the feature's side token is "contra".
// Contralateral ranges are compared after a half-cycle time shift to align
// with the ipsilateral convention.
func IsContralateral(feature string) bool {
	parts := strings.Split(feature, "_")
	if len(parts) < featureNameParts {
		return false
	}
	return strings.ToLower(parts[sideToken]) == "contra"
}

// IsFeatureColumn reports whether a CSV column name looks like a feature
// following the naming convention rather than a metadata column.
func IsFeatureColumn(name string) bool {
	return Classify(name) != ClassUnknown
}
