package manifest

import (
	"fmt"
	"strings"
)

// PackageName is the name of a conda package.
type PackageName string

// PyPiPackageName is the normalized name of a PyPI package.
type PyPiPackageName string

// NormalizePyPiName lowercases and collapses separators per PEP 503.
func NormalizePyPiName(s string) PyPiPackageName {
	replacer := strings.NewReplacer("_", "-", ".", "-")
	return PyPiPackageName(strings.ToLower(replacer.Replace(s)))
}

// Spec describes the requested constraints for a conda package.
type Spec struct {
	// Version is a matchspec version constraint, e.g. ">=1.2,<2".
	Version string `toml:"version,omitempty"`
	// Channel optionally pins the package to a specific channel.
	Channel string `toml:"channel,omitempty"`
	// Build optionally pins a build string.
	Build string `toml:"build,omitempty"`
}

// UnmarshalText allows the shorthand `foo = "1.0"` form in manifests.
func (s *Spec) UnmarshalText(text []byte) error {
	s.Version = string(text)
	return nil
}

func (s Spec) String() string {
	if s.Channel == "" && s.Build == "" {
		return s.Version
	}
	parts := []string{}
	if s.Version != "" {
		parts = append(parts, "version="+s.Version)
	}
	if s.Channel != "" {
		parts = append(parts, "channel="+s.Channel)
	}
	if s.Build != "" {
		parts = append(parts, "build="+s.Build)
	}
	return strings.Join(parts, ", ")
}

// PyPiRequirement describes the requested constraints for a PyPI package.
type PyPiRequirement struct {
	Version string   `toml:"version,omitempty"`
	Extras  []string `toml:"extras,omitempty"`
}

// UnmarshalText allows the shorthand `foo = ">=1.0"` form in manifests.
func (r *PyPiRequirement) UnmarshalText(text []byte) error {
	r.Version = string(text)
	return nil
}

// SpecType distinguishes the dependency kinds a target can declare.
type SpecType string

const (
	SpecTypeRun   SpecType = "run"
	SpecTypeHost  SpecType = "host"
	SpecTypeBuild SpecType = "build"
)

// SpecTypes lists the dependency kinds in their combination order: when
// kinds are combined into a single map, later kinds overwrite earlier ones.
var SpecTypes = []SpecType{SpecTypeRun, SpecTypeHost, SpecTypeBuild}

// ChannelPriority controls how the solver weighs packages across channels.
type ChannelPriority string

const (
	ChannelPriorityStrict   ChannelPriority = "strict"
	ChannelPriorityDisabled ChannelPriority = "disabled"
)

// ParseChannelPriority validates a channel priority string.
func ParseChannelPriority(s string) (ChannelPriority, error) {
	switch ChannelPriority(strings.ToLower(s)) {
	case ChannelPriorityStrict:
		return ChannelPriorityStrict, nil
	case ChannelPriorityDisabled:
		return ChannelPriorityDisabled, nil
	default:
		return "", fmt.Errorf("unknown channel priority: %q", s)
	}
}

// PrioritizedChannel is a channel with an optional solver priority.
type PrioritizedChannel struct {
	Channel  string `toml:"channel"`
	Priority *int   `toml:"priority,omitempty"`
}

// UnmarshalText allows the shorthand `channels = ["conda-forge"]` form.
func (c *PrioritizedChannel) UnmarshalText(text []byte) error {
	c.Channel = string(text)
	return nil
}

// SystemRequirements are the machine-level requirements of a feature.
type SystemRequirements struct {
	Linux    string `toml:"linux,omitempty"`
	Macos    string `toml:"macos,omitempty"`
	Cuda     string `toml:"cuda,omitempty"`
	Glibc    string `toml:"libc,omitempty"`
	ArchSpec string `toml:"archspec,omitempty"`
}

// Union combines requirements from two features. A value that is set in
// exactly one side wins; conflicting values are an error.
func (s SystemRequirements) Union(other SystemRequirements) (SystemRequirements, error) {
	combined := s
	merge := func(dst *string, src string, field string) error {
		if src == "" {
			return nil
		}
		if *dst != "" && *dst != src {
			return fmt.Errorf("conflicting system requirement %s: %q vs %q", field, *dst, src)
		}
		*dst = src
		return nil
	}
	if err := merge(&combined.Linux, other.Linux, "linux"); err != nil {
		return SystemRequirements{}, err
	}
	if err := merge(&combined.Macos, other.Macos, "macos"); err != nil {
		return SystemRequirements{}, err
	}
	if err := merge(&combined.Cuda, other.Cuda, "cuda"); err != nil {
		return SystemRequirements{}, err
	}
	if err := merge(&combined.Glibc, other.Glibc, "libc"); err != nil {
		return SystemRequirements{}, err
	}
	if err := merge(&combined.ArchSpec, other.ArchSpec, "archspec"); err != nil {
		return SystemRequirements{}, err
	}
	return combined, nil
}

// PyPiOptions configure how PyPI packages are resolved and installed.
type PyPiOptions struct {
	IndexURL         string   `toml:"index-url,omitempty"`
	ExtraIndexURLs   []string `toml:"extra-index-urls,omitempty"`
	// NoBuildIsolation lists packages that must be built against the
	// environment instead of an isolated build environment.
	NoBuildIsolation []string `toml:"no-build-isolation,omitempty"`
}

// Union overlays options from another feature; list fields append,
// scalar fields follow first-set-wins.
func (o *PyPiOptions) Union(other *PyPiOptions) *PyPiOptions {
	if o == nil {
		return other
	}
	if other == nil {
		return o
	}
	combined := &PyPiOptions{
		IndexURL:         o.IndexURL,
		ExtraIndexURLs:   append(append([]string{}, o.ExtraIndexURLs...), other.ExtraIndexURLs...),
		NoBuildIsolation: append(append([]string{}, o.NoBuildIsolation...), other.NoBuildIsolation...),
	}
	if combined.IndexURL == "" {
		combined.IndexURL = other.IndexURL
	}
	return combined
}

// TaskName identifies a task within a feature.
type TaskName string

// Task is a command that can be run inside an activated environment.
type Task struct {
	Cmd       string     `toml:"cmd"`
	DependsOn []TaskName `toml:"depends-on,omitempty"`
	Cwd       string     `toml:"cwd,omitempty"`
}

// UnmarshalText allows the shorthand `build = "make all"` form.
func (t *Task) UnmarshalText(text []byte) error {
	t.Cmd = string(text)
	return nil
}

// Activation describes how an environment is activated: scripts sourced
// into the shell and environment variables exported.
type Activation struct {
	// Scripts is nil when the manifest does not mention scripts at all;
	// an empty non-nil slice is an explicit "no scripts" override.
	Scripts []string          `toml:"scripts,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
}
