package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/terrarium-dev/terrarium/internal/errors"
	"github.com/terrarium-dev/terrarium/internal/log"
	"github.com/terrarium-dev/terrarium/internal/prefix"
	"github.com/terrarium-dev/terrarium/internal/project"
	"github.com/terrarium-dev/terrarium/internal/tui"
)

// PrefixFileName is the marker file inside conda-meta recording where the
// prefix lived when it was created. Installed environments are not
// relocatable, so a divergence means the environment is broken.
const PrefixFileName = "terrarium"

// historyFileContents is static; the file only exists so that
// `conda run -p <prefix>` accepts the environment.
const historyFileContents = "// not relevant for terrarium but for `conda run -p`"

// Hooks for the interactive prompt, replaced in tests.
var (
	shouldPrompt = tui.ShouldPrompt
	confirm      = tui.Confirm
)

func prefixFilePath(environmentDir string) string {
	return filepath.Join(environmentDir, prefix.CondaMetaDir, PrefixFileName)
}

// VerifyPrefixLocationUnchanged checks that an installed environment has
// not moved on disk. A missing marker means a new or pre-marker
// environment and passes; an unreadable marker self-heals by deletion; a
// marker pointing elsewhere is only recoverable by recreating the
// environment, which requires interactive confirmation.
func VerifyPrefixLocationUnchanged(environmentDir string, logger *log.Logger) error {
	prefixFile := prefixFilePath(environmentDir)

	logger.Debug("verifying prefix location is unchanged", "prefix_file", prefixFile)

	contents, err := os.ReadFile(prefixFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("failed to read prefix file, removing it", "path", prefixFile, "error", err)
		_ = os.Remove(prefixFile)
		return nil
	}

	// The marker stores the conda-meta directory it was written into.
	// Compare whole path components; a byte-level prefix match would
	// accept sibling directories sharing a name prefix.
	recorded := strings.TrimSpace(string(contents))
	if recorded != "" && filepath.Clean(recorded) == filepath.Dir(prefixFile) {
		return nil
	}

	previousDir := filepath.Dir(recorded)
	if previousDir == "." || previousDir == "" {
		previousDir = recorded
	}
	return prefixLocationChanged(environmentDir, previousDir, logger)
}

// prefixLocationChanged handles a prefix that has moved: interactive users
// may delete the old directory and continue, anyone else gets a hard stop
// naming both paths.
func prefixLocationChanged(environmentDir, previousDir string, logger *log.Logger) error {
	if !shouldPrompt() {
		return errors.NewPrefixRelocatedError(previousDir, environmentDir)
	}

	message := fmt.Sprintf(
		"%s\n\n\t%s -> %s\n\nThis can be fixed by reinstalling the environment from the lock file in the new location.\n\nDo you want to automatically recreate the environment?",
		tui.StyleWarning("The environment directory seems to have moved! Environments are non-relocatable, moving them can cause issues."),
		tui.StylePath(previousDir),
		tui.StylePath(environmentDir),
	)

	recreate, err := confirm(message, true)
	if err != nil || !recreate {
		return errors.NewPrefixRelocatedError(previousDir, environmentDir)
	}

	logger.Info("removing old environment", "path", environmentDir)
	if err := os.RemoveAll(environmentDir); err != nil {
		return errors.Wrap(errors.ErrCodePrefixRemoveFailed,
			"failed to remove old environment directory", err)
	}
	return nil
}

// writeFile writes contents, creating the parent directory first.
func writeFile(path string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0o644)
}

// createPrefixLocationFile marks the prefix with the absolute parent
// directory path it was installed at. Rewriting is skipped when the
// recorded path already matches.
func createPrefixLocationFile(environmentDir string, logger *log.Logger) error {
	prefixFile := prefixFilePath(environmentDir)
	parentDir := filepath.Dir(prefixFile)

	if _, err := os.Stat(parentDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", parentDir, err)
	}

	if existing, err := os.ReadFile(prefixFile); err == nil && string(existing) == parentDir {
		logger.Debug("no update needed for the prefix file")
		return nil
	}

	if err := writeFile(prefixFile, []byte(parentDir)); err != nil {
		return errors.Wrap(errors.ErrCodePrefixMarkerWrite,
			fmt.Sprintf("failed to write prefix file %s", prefixFile), err)
	}
	logger.Debug("prefix file updated", "contents", parentDir)
	return nil
}

// createHistoryFile writes the static conda-meta/history placeholder.
func createHistoryFile(environmentDir string, logger *log.Logger) error {
	historyFile := filepath.Join(environmentDir, prefix.CondaMetaDir, "history")
	logger.Debug("verifying history file exists", "path", historyFile)
	if err := writeFile(historyFile, []byte(historyFileContents)); err != nil {
		return fmt.Errorf("write history file %s: %w", historyFile, err)
	}
	return nil
}

// SanityCheck verifies the project is in a sane state before any install:
// the default environment's prefix has not moved, the deprecated state
// layout is flagged, and the state directory exists and is ignored by
// version control.
func SanityCheck(p *project.Project, logger *log.Logger) error {
	if err := VerifyPrefixLocationUnchanged(p.DefaultEnvironment().Dir(), logger); err != nil {
		return err
	}

	// The single-prefix `env` layout predates per-environment prefixes
	// under `envs`.
	oldEnvDir := filepath.Join(p.StateDir(), "env")
	if _, err := os.Stat(oldEnvDir); err == nil {
		logger.Warn("deprecated directory layout detected, please remove it",
			"deprecated", oldEnvDir, "replacement", p.EnvironmentsDir())
	}

	return ensureStateDirAndGitignore(p.StateDir())
}

// ensureStateDirAndGitignore creates the state directory if needed and
// drops a `*` .gitignore into it so environments never end up committed.
func ensureStateDirAndGitignore(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed,
			fmt.Sprintf("failed to create state directory %s", stateDir), err)
	}

	gitignorePath := filepath.Join(stateDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte("*\n"), 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeFileWriteFailed,
				fmt.Sprintf("failed to create .gitignore at %s", gitignorePath), err)
		}
	}
	return nil
}
