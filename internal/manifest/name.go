package manifest

import (
	"fmt"
)

// DefaultFeatureName is the reserved identifier of the implicit default
// feature. It can never be used to construct a named feature.
const DefaultFeatureName = "default"

// FeatureName identifies a feature. The zero value is the default feature.
//
// Equality, map-key behavior and ordering all operate on the normalized
// string form returned by String.
type FeatureName struct {
	name string
}

// DefaultName returns the name of the implicit default feature.
func DefaultName() FeatureName {
	return FeatureName{}
}

// NamedFeature constructs the name of a user-defined feature. The reserved
// default identifier is rejected.
func NamedFeature(name string) (FeatureName, error) {
	if name == DefaultFeatureName {
		return FeatureName{}, fmt.Errorf("the name %q is reserved for the default feature", DefaultFeatureName)
	}
	if name == "" {
		return FeatureName{}, fmt.Errorf("feature name must not be empty")
	}
	return FeatureName{name: name}, nil
}

// FeatureNameFrom converts a raw string to a FeatureName, mapping the
// reserved identifier to the default feature instead of failing.
func FeatureNameFrom(s string) FeatureName {
	if s == DefaultFeatureName {
		return FeatureName{}
	}
	return FeatureName{name: s}
}

// IsDefault reports whether this is the default feature.
func (n FeatureName) IsDefault() bool {
	return n.name == ""
}

// Name returns the user-given name, or "" for the default feature.
func (n FeatureName) Name() string {
	return n.name
}

func (n FeatureName) String() string {
	if n.name == "" {
		return DefaultFeatureName
	}
	return n.name
}
