package manifest

import (
	"fmt"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/terrarium-dev/terrarium/internal/platform"
)

// Manifest is the parsed project manifest (terrarium.toml) together with
// the raw document needed to write mutations back to disk.
type Manifest struct {
	// Path is the location of the manifest file on disk.
	Path string

	Project ProjectMetadata

	// Features holds every feature keyed by name, including the implicit
	// default feature built from the project-level tables.
	Features map[FeatureName]*Feature

	// Environments maps environment names to the features composing them.
	// The default environment is always present and contains at least the
	// default feature.
	Environments map[string][]FeatureName

	raw map[string]any
}

// ProjectMetadata is the [project] table of the manifest.
type ProjectMetadata struct {
	Name      string              `toml:"name"`
	Version   string              `toml:"version,omitempty"`
	Platforms []platform.Platform `toml:"platforms"`
}

// DefaultEnvironmentName names the implicit environment containing only
// the default feature.
const DefaultEnvironmentName = "default"

type tomlTarget struct {
	Dependencies      DependencyMap      `toml:"dependencies"`
	HostDependencies  DependencyMap      `toml:"host-dependencies"`
	BuildDependencies DependencyMap      `toml:"build-dependencies"`
	PyPiDependencies  PyPiDependencyMap  `toml:"pypi-dependencies"`
	Activation        *Activation        `toml:"activation"`
	Tasks             map[TaskName]Task  `toml:"tasks"`
}

type tomlFeature struct {
	Platforms          []string              `toml:"platforms"`
	Channels           []PrioritizedChannel  `toml:"channels"`
	ChannelPriority    string                `toml:"channel-priority"`
	SystemRequirements SystemRequirements    `toml:"system-requirements"`
	PyPiOptions        *PyPiOptions          `toml:"pypi-options"`
	Dependencies       DependencyMap         `toml:"dependencies"`
	HostDependencies   DependencyMap         `toml:"host-dependencies"`
	BuildDependencies  DependencyMap         `toml:"build-dependencies"`
	PyPiDependencies   PyPiDependencyMap     `toml:"pypi-dependencies"`
	Activation         *Activation           `toml:"activation"`
	Tasks              map[TaskName]Task     `toml:"tasks"`
	Target             map[string]tomlTarget `toml:"target"`
}

type tomlManifest struct {
	Project ProjectMetadata `toml:"project"`

	Channels        []PrioritizedChannel `toml:"channels"`
	ChannelPriority string               `toml:"channel-priority"`

	SystemRequirements SystemRequirements `toml:"system-requirements"`
	PyPiOptions        *PyPiOptions       `toml:"pypi-options"`

	Dependencies      DependencyMap     `toml:"dependencies"`
	HostDependencies  DependencyMap     `toml:"host-dependencies"`
	BuildDependencies DependencyMap     `toml:"build-dependencies"`
	PyPiDependencies  PyPiDependencyMap `toml:"pypi-dependencies"`
	Activation        *Activation       `toml:"activation"`
	Tasks             map[TaskName]Task `toml:"tasks"`

	Target  map[string]tomlTarget  `toml:"target"`
	Feature map[string]tomlFeature `toml:"feature"`

	Environments map[string][]string `toml:"environments"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses manifest contents. The path is recorded for diagnostics and
// later saves.
func Parse(data []byte, path string) (*Manifest, error) {
	var doc tomlManifest
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	m := &Manifest{
		Path:         path,
		Project:      doc.Project,
		Features:     make(map[FeatureName]*Feature),
		Environments: make(map[string][]FeatureName),
		raw:          raw,
	}

	defaultFeature, err := buildFeature(DefaultName(), tomlFeature{
		Channels:           doc.Channels,
		ChannelPriority:    doc.ChannelPriority,
		SystemRequirements: doc.SystemRequirements,
		PyPiOptions:        doc.PyPiOptions,
		Dependencies:       doc.Dependencies,
		HostDependencies:   doc.HostDependencies,
		BuildDependencies:  doc.BuildDependencies,
		PyPiDependencies:   doc.PyPiDependencies,
		Activation:         doc.Activation,
		Tasks:              doc.Tasks,
		Target:             doc.Target,
	})
	if err != nil {
		return nil, err
	}
	m.Features[DefaultName()] = defaultFeature

	for rawName, rawFeature := range doc.Feature {
		name, err := NamedFeature(rawName)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		feature, err := buildFeature(name, rawFeature)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: feature %q: %w", path, rawName, err)
		}
		m.Features[name] = feature
	}

	m.Environments[DefaultEnvironmentName] = []FeatureName{DefaultName()}
	for envName, featureNames := range doc.Environments {
		names := []FeatureName{}
		for _, rawName := range featureNames {
			name := FeatureNameFrom(rawName)
			if _, ok := m.Features[name]; !ok {
				return nil, fmt.Errorf("manifest %s: environment %q references unknown feature %q", path, envName, rawName)
			}
			names = append(names, name)
		}
		// Every environment implicitly includes the default feature. It
		// goes first so explicitly listed features override it when the
		// environment's configuration is folded.
		if !containsName(names, DefaultName()) {
			names = append([]FeatureName{DefaultName()}, names...)
		}
		m.Environments[envName] = names
	}

	return m, nil
}

func containsName(names []FeatureName, name FeatureName) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func buildFeature(name FeatureName, doc tomlFeature) (*Feature, error) {
	feature := NewFeature(name)

	if doc.Platforms != nil {
		platforms := make([]platform.Platform, 0, len(doc.Platforms))
		for _, raw := range doc.Platforms {
			p, err := platform.Parse(raw)
			if err != nil {
				return nil, err
			}
			platforms = append(platforms, p)
		}
		feature.Platforms = platforms
	}

	feature.Channels = doc.Channels
	if doc.ChannelPriority != "" {
		priority, err := ParseChannelPriority(doc.ChannelPriority)
		if err != nil {
			return nil, err
		}
		feature.ChannelPriority = &priority
	}
	feature.SystemRequirements = doc.SystemRequirements
	feature.PyPiOptions = doc.PyPiOptions

	feature.Targets = NewTargets(buildTarget(tomlTarget{
		Dependencies:      doc.Dependencies,
		HostDependencies:  doc.HostDependencies,
		BuildDependencies: doc.BuildDependencies,
		PyPiDependencies:  doc.PyPiDependencies,
		Activation:        doc.Activation,
		Tasks:             doc.Tasks,
	}))

	// TOML tables are unordered; sort selectors for a deterministic layer
	// order. Selectors are exact-match so ordering only matters for the
	// degenerate case of duplicate selectors, which TOML already forbids.
	selectors := make([]string, 0, len(doc.Target))
	for raw := range doc.Target {
		selectors = append(selectors, raw)
	}
	sort.Strings(selectors)
	for _, raw := range selectors {
		p, err := platform.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("target selector: %w", err)
		}
		feature.Targets.AddTarget(TargetSelector{Platform: p}, buildTarget(doc.Target[raw]))
	}

	return feature, nil
}

func buildTarget(doc tomlTarget) Target {
	target := Target{
		PyPiDependencies: doc.PyPiDependencies,
		Activation:       doc.Activation,
		Tasks:            doc.Tasks,
	}
	// Only kinds the manifest actually declares are stored; a declared but
	// empty table is kept as an explicit empty override.
	deps := make(map[SpecType]DependencyMap)
	if doc.Dependencies != nil {
		deps[SpecTypeRun] = doc.Dependencies
	}
	if doc.HostDependencies != nil {
		deps[SpecTypeHost] = doc.HostDependencies
	}
	if doc.BuildDependencies != nil {
		deps[SpecTypeBuild] = doc.BuildDependencies
	}
	if len(deps) > 0 {
		target.Dependencies = deps
	}
	return target
}

// DefaultFeature returns the implicit default feature.
func (m *Manifest) DefaultFeature() *Feature {
	return m.Features[DefaultName()]
}

// Feature looks up a feature by name.
func (m *Manifest) Feature(name FeatureName) (*Feature, bool) {
	feature, ok := m.Features[name]
	return feature, ok
}

// RemoveChannels removes channel entries from a feature's channel list.
// Removing a channel that the feature does not declare is an error so that
// typos do not silently succeed.
func (m *Manifest) RemoveChannels(channels []PrioritizedChannel, name FeatureName) error {
	feature, ok := m.Features[name]
	if !ok {
		return fmt.Errorf("feature %q is not defined in the manifest", name)
	}

	for _, channel := range channels {
		idx := -1
		for i, existing := range feature.Channels {
			if existing.Channel == channel.Channel {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("channel %q is not declared by feature %q", channel.Channel, name)
		}
		feature.Channels = append(feature.Channels[:idx], feature.Channels[idx+1:]...)
	}

	m.syncChannels(name, feature.Channels)
	return nil
}

// syncChannels mirrors a feature's channel list into the raw document so
// Save writes the mutation back.
func (m *Manifest) syncChannels(name FeatureName, channels []PrioritizedChannel) {
	values := make([]any, 0, len(channels))
	for _, channel := range channels {
		if channel.Priority == nil {
			values = append(values, channel.Channel)
		} else {
			values = append(values, map[string]any{
				"channel":  channel.Channel,
				"priority": *channel.Priority,
			})
		}
	}

	if name.IsDefault() {
		m.raw["channels"] = values
		return
	}
	features, _ := m.raw["feature"].(map[string]any)
	if features == nil {
		return
	}
	feature, _ := features[name.Name()].(map[string]any)
	if feature == nil {
		return
	}
	feature["channels"] = values
}

// Save writes the manifest document back to its path.
func (m *Manifest) Save() error {
	data, err := toml.Marshal(m.raw)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(m.Path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", m.Path, err)
	}
	return nil
}
