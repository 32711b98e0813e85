package manifest

import (
	"github.com/terrarium-dev/terrarium/internal/platform"
)

// DependencyMap maps conda package names to their requested specs.
//
// Maps returned by the resolution methods on Feature and Target may be
// shared with the manifest's internal storage and must be treated as
// read-only by callers.
type DependencyMap map[PackageName]Spec

// PyPiDependencyMap maps PyPI package names to their requirements.
type PyPiDependencyMap map[PyPiPackageName]PyPiRequirement

// TargetSelector scopes a target to a platform. Matching is exact: a
// selector applies only to the single platform it names.
type TargetSelector struct {
	Platform platform.Platform
}

// Matches reports whether the selector applies to the given platform.
func (s TargetSelector) Matches(p platform.Platform) bool {
	return s.Platform == p
}

// Target is a single configuration layer, optionally scoped by a selector.
//
// All maps distinguish nil (the manifest never mentioned the table) from
// empty (the manifest declared the table and left it empty). An empty
// table is an explicit override and participates in resolution.
type Target struct {
	// Dependencies holds the per-kind conda dependency maps. A kind that
	// is absent from the map was not declared for this target.
	Dependencies map[SpecType]DependencyMap

	// PyPiDependencies is nil when not declared.
	PyPiDependencies PyPiDependencyMap

	Activation *Activation

	Tasks map[TaskName]Task
}

// DependenciesFor returns the dependency map for a single kind, or the
// combination of all kinds when kind is nil. The returned map is a
// reference into the target when a single kind map backs it, and a fresh
// map when kinds had to be combined. Returns nil when nothing is declared.
func (t *Target) DependenciesFor(kind *SpecType) DependencyMap {
	if kind != nil {
		deps, ok := t.Dependencies[*kind]
		if !ok {
			return nil
		}
		return deps
	}

	var acc DependencyMap
	owned := false
	for _, st := range SpecTypes {
		deps, ok := t.Dependencies[st]
		if !ok {
			continue
		}
		switch {
		case acc == nil && !owned:
			acc = deps
		case !owned:
			merged := make(DependencyMap, len(acc)+len(deps))
			for name, spec := range acc {
				merged[name] = spec
			}
			for name, spec := range deps {
				merged[name] = spec
			}
			acc = merged
			owned = true
		default:
			for name, spec := range deps {
				acc[name] = spec
			}
		}
	}
	return acc
}

// HasPyPiDependencies reports whether this target declares at least one
// PyPI dependency.
func (t *Target) HasPyPiDependencies() bool {
	return len(t.PyPiDependencies) > 0
}

// Targets holds every configuration layer of a feature: the implicit
// default layer plus the selector-scoped layers in manifest order.
type Targets struct {
	defaultTarget Target
	selected      []selectedTarget
}

type selectedTarget struct {
	selector TargetSelector
	target   Target
}

// NewTargets builds a Targets collection around the default layer.
// Selector-scoped layers are appended with AddTarget in manifest order.
func NewTargets(defaultTarget Target) Targets {
	return Targets{defaultTarget: defaultTarget}
}

// AddTarget appends a selector-scoped layer, preserving declaration order.
func (t *Targets) AddTarget(selector TargetSelector, target Target) {
	t.selected = append(t.selected, selectedTarget{selector: selector, target: target})
}

// Default returns the default layer.
func (t *Targets) Default() *Target {
	return &t.defaultTarget
}

// DefaultMut returns the default layer for mutation.
func (t *Targets) DefaultMut() *Target {
	return &t.defaultTarget
}

// Resolve returns the layers that apply to the given platform ordered from
// most specific to least specific. The default layer is always included
// and always last. A nil platform resolves to the default layer only.
func (t *Targets) Resolve(p *platform.Platform) []*Target {
	var result []*Target
	if p != nil {
		// Later declarations are considered more specific, so walk the
		// selector-scoped layers in reverse manifest order.
		for i := len(t.selected) - 1; i >= 0; i-- {
			if t.selected[i].selector.Matches(*p) {
				result = append(result, &t.selected[i].target)
			}
		}
	}
	result = append(result, &t.defaultTarget)
	return result
}

// All returns every layer regardless of platform, default layer first.
func (t *Targets) All() []*Target {
	result := make([]*Target, 0, len(t.selected)+1)
	result = append(result, &t.defaultTarget)
	for i := range t.selected {
		result = append(result, &t.selected[i].target)
	}
	return result
}
