package project

import (
	"fmt"
	"path/filepath"

	"github.com/terrarium-dev/terrarium/internal/errors"
	"github.com/terrarium-dev/terrarium/internal/manifest"
	"github.com/terrarium-dev/terrarium/internal/platform"
)

// Environment is a named composition of features, resolved against a
// concrete platform for locking and installation. The view borrows the
// project read-only.
type Environment struct {
	project  *Project
	name     string
	features []*manifest.Feature
}

// Name returns the environment name.
func (e *Environment) Name() string {
	return e.name
}

// Project returns the owning project.
func (e *Environment) Project() *Project {
	return e.project
}

// Features returns the features composing this environment, default
// feature first.
func (e *Environment) Features() []*manifest.Feature {
	return e.features
}

// Dir is the directory this environment installs into.
func (e *Environment) Dir() string {
	return filepath.Join(e.project.EnvironmentsDir(), e.name)
}

// Platforms returns the platforms this environment supports: the
// intersection of every feature's platform set, where an unset feature
// set does not restrict.
func (e *Environment) Platforms() []platform.Platform {
	var result []platform.Platform
	restricted := false
	for _, feature := range e.features {
		if feature.Platforms == nil {
			continue
		}
		if !restricted {
			result = append([]platform.Platform{}, feature.Platforms...)
			restricted = true
			continue
		}
		var kept []platform.Platform
		for _, p := range result {
			for _, q := range feature.Platforms {
				if p == q {
					kept = append(kept, p)
					break
				}
			}
		}
		result = kept
	}
	if !restricted {
		return e.project.Manifest.Project.Platforms
	}
	return result
}

// SupportsPlatform reports whether the environment supports a platform.
func (e *Environment) SupportsPlatform(p platform.Platform) bool {
	for _, q := range e.Platforms() {
		if p == q {
			return true
		}
	}
	return false
}

// BestPlatform picks the platform to materialize for on this machine:
// the current platform when supported, with an osx-64 fallback for Apple
// silicon. Unsupported platforms are returned as-is; the pipeline then
// downgrades the operation to lock-only.
func (e *Environment) BestPlatform() platform.Platform {
	current := platform.Current()
	if e.SupportsPlatform(current) {
		return current
	}
	if current == platform.OsxArm64 && e.SupportsPlatform(platform.Osx64) {
		return platform.Osx64
	}
	return current
}

// ChannelPriority folds the channel priority across features. A feature
// with an unset priority never overrides one that set it; two features
// setting different priorities is an error.
func (e *Environment) ChannelPriority() (*manifest.ChannelPriority, error) {
	var result *manifest.ChannelPriority
	var setBy manifest.FeatureName
	for _, feature := range e.features {
		if feature.ChannelPriority == nil {
			continue
		}
		if result != nil && *result != *feature.ChannelPriority {
			return nil, errors.New(errors.ErrCodeChannelPriorityConflict,
				fmt.Sprintf("features %q and %q define conflicting channel priorities (%s vs %s)",
					setBy, feature.Name, *result, *feature.ChannelPriority))
		}
		if result == nil {
			result = feature.ChannelPriority
			setBy = feature.Name
		}
	}
	return result, nil
}

// Channels returns the channels of every feature in order, deduplicated.
func (e *Environment) Channels() []manifest.PrioritizedChannel {
	var result []manifest.PrioritizedChannel
	seen := map[string]bool{}
	for _, feature := range e.features {
		for _, channel := range feature.Channels {
			if !seen[channel.Channel] {
				seen[channel.Channel] = true
				result = append(result, channel)
			}
		}
	}
	return result
}

// SystemRequirements is the union of every feature's requirements.
func (e *Environment) SystemRequirements() (manifest.SystemRequirements, error) {
	var result manifest.SystemRequirements
	for _, feature := range e.features {
		combined, err := result.Union(feature.SystemRequirements)
		if err != nil {
			return manifest.SystemRequirements{}, fmt.Errorf("environment %q: %w", e.name, err)
		}
		result = combined
	}
	return result, nil
}

// Dependencies folds the resolved conda dependencies of every feature.
// Features are visited in composition order (default first), so a package
// pinned by an explicitly listed feature overrides the default feature.
func (e *Environment) Dependencies(kind *manifest.SpecType, p *platform.Platform) manifest.DependencyMap {
	var acc manifest.DependencyMap
	for _, feature := range e.features {
		deps := feature.Dependencies(kind, p)
		if deps == nil {
			continue
		}
		if acc == nil {
			acc = make(manifest.DependencyMap, len(deps))
		}
		for name, spec := range deps {
			acc[name] = spec
		}
	}
	return acc
}

// PyPiDependencies folds the resolved PyPI dependencies of every feature.
func (e *Environment) PyPiDependencies(p *platform.Platform) manifest.PyPiDependencyMap {
	var acc manifest.PyPiDependencyMap
	for _, feature := range e.features {
		deps := feature.PyPiDependencies(p)
		if deps == nil {
			continue
		}
		if acc == nil {
			acc = make(manifest.PyPiDependencyMap, len(deps))
		}
		for name, req := range deps {
			acc[name] = req
		}
	}
	return acc
}

// HasPyPiDependencies reports whether any feature declares PyPI
// dependencies on any platform.
func (e *Environment) HasPyPiDependencies() bool {
	for _, feature := range e.features {
		if feature.HasPyPiDependencies() {
			return true
		}
	}
	return false
}

// ActivationEnv merges the activation environment variables of every
// feature for a platform. Later features in composition order win, so the
// default feature provides the base set.
func (e *Environment) ActivationEnv(p *platform.Platform) map[string]string {
	acc := make(map[string]string)
	for _, feature := range e.features {
		for key, value := range feature.ActivationEnv(p) {
			acc[key] = value
		}
	}
	return acc
}

// PyPiOptions overlays the PyPI options of every feature.
func (e *Environment) PyPiOptions() *manifest.PyPiOptions {
	var result *manifest.PyPiOptions
	for _, feature := range e.features {
		result = result.Union(feature.PyPiOptions)
	}
	return result
}
