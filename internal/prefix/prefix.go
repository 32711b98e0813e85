package prefix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CondaMetaDir is the metadata directory inside an installed prefix.
const CondaMetaDir = "conda-meta"

// EnvFileName is the tool's own environment record inside conda-meta. It
// lives next to the package records but is not one.
const EnvFileName = "terrarium-env.json"

// Prefix is a handle on the directory an environment is installed into.
// A freshly constructed Prefix makes no claim about the directory being
// installed or even existing.
type Prefix struct {
	root string
}

// New creates a prefix handle bound to the given environment directory.
func New(root string) Prefix {
	return Prefix{root: root}
}

// Root returns the prefix directory.
func (p Prefix) Root() string {
	return p.root
}

// MetaDir returns the conda-meta directory of the prefix.
func (p Prefix) MetaDir() string {
	return filepath.Join(p.root, CondaMetaDir)
}

// Exists reports whether the prefix directory is present on disk.
func (p Prefix) Exists() bool {
	info, err := os.Stat(p.root)
	return err == nil && info.IsDir()
}

// Record is the installed state of one conda package, read from its
// conda-meta record file.
type Record struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Build    string `json:"build,omitempty"`
	Location string `json:"url,omitempty"`
	Sha256   string `json:"sha256,omitempty"`
	Md5      string `json:"md5,omitempty"`
}

// FindInstalledPackages reads every package record in the prefix's
// conda-meta directory. A prefix without a conda-meta directory has no
// installed packages.
func (p Prefix) FindInstalledPackages() ([]Record, error) {
	entries, err := os.ReadDir(p.MetaDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.MetaDir(), err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") || entry.Name() == EnvFileName {
			continue
		}
		path := filepath.Join(p.MetaDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read package record %s: %w", path, err)
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parse package record %s: %w", path, err)
		}
		// Foreign tools may drop unrelated json files into conda-meta;
		// only entries carrying a package name are records.
		if record.Name == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
