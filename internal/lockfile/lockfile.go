package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/terrarium-dev/terrarium/internal/platform"
)

// FileName is the name of the lock file next to the manifest.
const FileName = "terrarium.lock"

// PackageKind distinguishes the two ecosystems a locked package can come
// from.
type PackageKind string

const (
	// KindConda is a binary package from the conda ecosystem.
	KindConda PackageKind = "conda"
	// KindPyPi is a package from the PyPI ecosystem, installed into the
	// environment's interpreter.
	KindPyPi PackageKind = "pypi"
)

// Package is one pinned package record in the lock file.
type Package struct {
	Kind PackageKind `json:"kind"`

	// Name is the package name as known to its ecosystem.
	Name string `json:"name"`
	// Version is the exact pinned version.
	Version string `json:"version,omitempty"`

	// Location is the URL or local path the package is fetched from.
	// Always present.
	Location string `json:"location"`

	// Sha256 and Md5 are the integrity digests of a conda package, hex
	// encoded. Either or both may be absent.
	Sha256 string `json:"sha256,omitempty"`
	Md5    string `json:"md5,omitempty"`

	// Editable and Extras describe how a PyPI package is installed.
	Editable bool     `json:"editable,omitempty"`
	Extras   []string `json:"extras,omitempty"`
}

// PyPiIndexes is the index configuration recorded for an environment's
// PyPI packages.
type PyPiIndexes struct {
	IndexURL       string   `json:"index_url,omitempty"`
	ExtraIndexURLs []string `json:"extra_index_urls,omitempty"`
}

// Environment is the locked state of one environment: the exact package
// set per platform, in the order the lock file stores them.
type Environment struct {
	Channels []string `json:"channels,omitempty"`

	// Packages preserves lock-file order per platform. The drift hash is
	// computed over this order as stored; it is deliberately not sorted.
	Packages map[platform.Platform][]Package `json:"packages"`

	Indexes *PyPiIndexes `json:"indexes,omitempty"`
}

// PackagesFor returns the ordered package list for a platform, or nil when
// the platform is not locked.
func (e *Environment) PackagesFor(p platform.Platform) []Package {
	if e == nil {
		return nil
	}
	return e.Packages[p]
}

// CondaPackagesFor returns only the conda packages for a platform, in lock
// order.
func (e *Environment) CondaPackagesFor(p platform.Platform) []Package {
	return e.filterFor(p, KindConda)
}

// PyPiPackagesFor returns only the PyPI packages for a platform, in lock
// order.
func (e *Environment) PyPiPackagesFor(p platform.Platform) []Package {
	return e.filterFor(p, KindPyPi)
}

func (e *Environment) filterFor(p platform.Platform, kind PackageKind) []Package {
	var result []Package
	for _, pkg := range e.PackagesFor(p) {
		if pkg.Kind == kind {
			result = append(result, pkg)
		}
	}
	return result
}

// LockFile is the pinned, solver-produced record of every environment.
type LockFile struct {
	Version      int                     `json:"version"`
	Environments map[string]*Environment `json:"environments"`
}

// Environment looks up the locked state of an environment by name.
func (l *LockFile) Environment(name string) *Environment {
	if l == nil {
		return nil
	}
	return l.Environments[name]
}

// Load reads a lock file from disk.
func Load(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lock file %s: %w", path, err)
	}
	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return &lock, nil
}

// Save writes a lock file to disk, creating parent directories as needed.
func Save(lock *LockFile, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create lock file directory: %w", err)
	}
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write lock file %s: %w", path, err)
	}
	return nil
}
