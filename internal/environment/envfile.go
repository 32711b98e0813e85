package environment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/log"
	"github.com/terrarium-dev/terrarium/internal/prefix"
)

// EnvironmentFileName is the name of the environment record inside the
// prefix's conda-meta directory. The prefix scanner knows this name and
// never reads the record as an installed package.
const EnvironmentFileName = prefix.EnvFileName

// EnvironmentFile records the provenance of an installed prefix. It is
// written after every successful conda install and lets a later run decide
// cheaply whether the prefix already matches the lock file.
type EnvironmentFile struct {
	// ManifestPath is the manifest the environment was created from.
	ManifestPath string `json:"manifest_path"`
	// EnvironmentName is the name of the environment.
	EnvironmentName string `json:"environment_name"`
	// TerrariumVersion is the tool version that created the environment.
	TerrariumVersion string `json:"terrarium_version"`
	// EnvironmentLockFileHash fingerprints the locked package set the
	// prefix was installed from.
	EnvironmentLockFileHash lockfile.EnvironmentHash `json:"environment_lock_file_hash"`
}

func environmentFilePath(environmentDir string) string {
	return filepath.Join(environmentDir, prefix.CondaMetaDir, EnvironmentFileName)
}

// WriteEnvironmentFile persists the environment record into the prefix.
// Failure to create the conda-meta directory is an error; failure to write
// the record itself is logged and swallowed, since the install it
// describes already succeeded.
func WriteEnvironmentFile(environmentDir string, envFile EnvironmentFile, logger *log.Logger) (string, error) {
	path := environmentFilePath(environmentDir)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create conda-meta directory for %s: %w", path, err)
	}

	contents, err := json.MarshalIndent(envFile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal environment file: %w", err)
	}

	if err := os.WriteFile(path, contents, 0o644); err != nil {
		logger.Debug("unable to write environment file", "path", path, "error", err)
		return path, nil
	}

	logger.Debug("wrote environment file", "path", path)
	return path, nil
}

// ReadEnvironmentFile reads the environment record of a prefix. A missing
// record yields nil. An unreadable or malformed record self-heals: the
// file is deleted and treated as absent, never surfaced as an error.
func ReadEnvironmentFile(environmentDir string, logger *log.Logger) *EnvironmentFile {
	path := environmentFilePath(environmentDir)

	contents, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("failed to read environment file, removing it", "path", path, "error", err)
			_ = os.Remove(path)
		}
		return nil
	}

	var envFile EnvironmentFile
	if err := json.Unmarshal(contents, &envFile); err != nil {
		logger.Debug("failed to parse environment file, removing it", "path", path, "error", err)
		_ = os.Remove(path)
		return nil
	}

	return &envFile
}
