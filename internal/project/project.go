package project

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/terrarium-dev/terrarium/internal/errors"
	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/manifest"
)

// StateDirName is the project-local working directory of the tool.
const StateDirName = ".terrarium"

// ManifestFileName is the default manifest file name.
const ManifestFileName = "terrarium.toml"

// Project ties a parsed manifest to its location on disk and derives the
// paths everything else works with.
type Project struct {
	Manifest *manifest.Manifest

	// Root is the directory containing the manifest.
	Root string
}

// Load reads the manifest at the given path and wraps it in a Project.
func Load(manifestPath string) (*Project, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	return FromManifest(m), nil
}

// Discover walks upward from the start directory until it finds a
// manifest file, and loads the project it belongs to.
func Discover(start string) (*Project, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, errors.NewManifestNotFoundError(filepath.Join(start, ManifestFileName))
		}
		dir = parent
	}
}

// FromManifest wraps an already parsed manifest.
func FromManifest(m *manifest.Manifest) *Project {
	return &Project{
		Manifest: m,
		Root:     filepath.Dir(m.Path),
	}
}

// StateDir is the project-local working directory (.terrarium).
func (p *Project) StateDir() string {
	return filepath.Join(p.Root, StateDirName)
}

// EnvironmentsDir holds one installed prefix per environment.
func (p *Project) EnvironmentsDir() string {
	return filepath.Join(p.StateDir(), "envs")
}

// LockFilePath is the location of the lock file next to the manifest.
func (p *Project) LockFilePath() string {
	return filepath.Join(p.Root, lockfile.FileName)
}

// DefaultEnvironment returns the implicit environment containing only the
// default feature.
func (p *Project) DefaultEnvironment() *Environment {
	env, _ := p.Environment(manifest.DefaultEnvironmentName)
	return env
}

// Environment looks up a named environment.
func (p *Project) Environment(name string) (*Environment, error) {
	featureNames, ok := p.Manifest.Environments[name]
	if !ok {
		return nil, errors.NewEnvUnknownError(name)
	}
	features := make([]*manifest.Feature, 0, len(featureNames))
	for _, featureName := range featureNames {
		feature, ok := p.Manifest.Feature(featureName)
		if !ok {
			return nil, errors.NewEnvUnknownError(name)
		}
		features = append(features, feature)
	}
	return &Environment{
		project:  p,
		name:     name,
		features: features,
	}, nil
}

// EnvironmentNames lists all environments, sorted, default first.
func (p *Project) EnvironmentNames() []string {
	names := make([]string, 0, len(p.Manifest.Environments))
	for name := range p.Manifest.Environments {
		if name != manifest.DefaultEnvironmentName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{manifest.DefaultEnvironmentName}, names...)
}

// Save writes the manifest back to disk.
func (p *Project) Save() error {
	return p.Manifest.Save()
}
