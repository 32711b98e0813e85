package manifest

import (
	"github.com/terrarium-dev/terrarium/internal/platform"
)

// Feature is a named bundle of configuration: dependencies, activation and
// tasks, possibly scoped to platforms via targets. Features cannot be
// installed directly; they are composed into environments, which are then
// locked and materialized.
type Feature struct {
	Name FeatureName

	// Platforms this feature is restricted to. nil means the feature does
	// not restrict platforms and the project default applies.
	Platforms []platform.Platform

	// Channels specific to this feature. nil means unset.
	Channels []PrioritizedChannel

	// ChannelPriority for the solver. nil means unset; an unset value must
	// never override a value set by another feature of the same
	// environment.
	ChannelPriority *ChannelPriority

	SystemRequirements SystemRequirements

	// PyPiOptions is nil when the feature declares none.
	PyPiOptions *PyPiOptions

	Targets Targets
}

// NewFeature constructs an empty feature with the given name.
func NewFeature(name FeatureName) *Feature {
	return &Feature{
		Name:    name,
		Targets: NewTargets(Target{}),
	}
}

// IsDefault reports whether this is the default feature.
func (f *Feature) IsDefault() bool {
	return f.Name.IsDefault()
}

// PlatformsMut returns the feature's platform set for mutation, creating
// it if unset.
func (f *Feature) PlatformsMut() *[]platform.Platform {
	if f.Platforms == nil {
		f.Platforms = []platform.Platform{}
	}
	return &f.Platforms
}

// ChannelsMut returns the feature's channel list for mutation, creating it
// if unset.
func (f *Feature) ChannelsMut() *[]PrioritizedChannel {
	if f.Channels == nil {
		f.Channels = []PrioritizedChannel{}
	}
	return &f.Channels
}

// Dependencies resolves the effective conda dependencies of the feature
// for a dependency kind and platform. A nil kind combines all kinds, a nil
// platform resolves against the default layer only.
//
// Layers are folded from least specific to most specific so that a package
// declared at several specificities ends up with the most specific spec.
// When exactly one layer contributes, the returned map is a reference into
// that layer (no allocation); when several contribute, it is freshly
// merged. The result is nil only when no layer declares anything for the
// requested kind, and must be treated as read-only either way.
func (f *Feature) Dependencies(kind *SpecType, p *platform.Platform) DependencyMap {
	layers := f.Targets.Resolve(p)

	var acc DependencyMap
	owned := false
	// Walk in reverse so extending the accumulator overwrites less
	// specific entries with more specific ones.
	for i := len(layers) - 1; i >= 0; i-- {
		deps := layers[i].DependenciesFor(kind)
		if deps == nil {
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

// PyPiDependencies resolves the effective PyPI dependencies of the feature
// for a platform, with the same fold order and borrow-or-own behavior as
// Dependencies.
func (f *Feature) PyPiDependencies(p *platform.Platform) PyPiDependencyMap {
	layers := f.Targets.Resolve(p)

	var acc PyPiDependencyMap
	owned := false
	for i := len(layers) - 1; i >= 0; i-- {
		deps := layers[i].PyPiDependencies
		if deps == nil {
			continue
		}
		switch {
		case acc == nil && !owned:
			acc = deps
		case !owned:
			merged := make(PyPiDependencyMap, len(acc)+len(deps))
			for name, req := range acc {
				merged[name] = req
			}
			for name, req := range deps {
				merged[name] = req
			}
			acc = merged
			owned = true
		default:
			for name, req := range deps {
				acc[name] = req
			}
		}
	}
	return acc
}

// ActivationScripts returns the activation scripts of the most specific
// layer that declares any, ignoring all less specific layers. Returns nil
// when no layer declares scripts.
func (f *Feature) ActivationScripts(p *platform.Platform) []string {
	for _, layer := range f.Targets.Resolve(p) {
		if layer.Activation != nil && layer.Activation.Scripts != nil {
			return layer.Activation.Scripts
		}
	}
	return nil
}

// ActivationEnv merges the activation environment variables of every
// applicable layer. Layers are visited from most specific to least
// specific and the first layer to define a key wins; keys from less
// specific layers are added only if not yet seen.
func (f *Feature) ActivationEnv(p *platform.Platform) map[string]string {
	acc := make(map[string]string)
	for _, layer := range f.Targets.Resolve(p) {
		if layer.Activation == nil || layer.Activation.Env == nil {
			continue
		}
		for key, value := range layer.Activation.Env {
			if _, seen := acc[key]; !seen {
				acc[key] = value
			}
		}
	}
	return acc
}

// HasPyPiDependencies reports whether any layer of the feature declares a
// non-empty PyPI dependency map, regardless of platform.
func (f *Feature) HasPyPiDependencies() bool {
	for _, target := range f.Targets.All() {
		if target.HasPyPiDependencies() {
			return true
		}
	}
	return false
}

// Tasks resolves the effective tasks for a platform, most specific
// definition winning per task name.
func (f *Feature) Tasks(p *platform.Platform) map[TaskName]Task {
	acc := make(map[TaskName]Task)
	for _, layer := range f.Targets.Resolve(p) {
		for name, task := range layer.Tasks {
			if _, seen := acc[name]; !seen {
				acc[name] = task
			}
		}
	}
	return acc
}
