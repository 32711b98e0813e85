package environment

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terrarium-dev/terrarium/internal/install"
	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/log"
	"github.com/terrarium-dev/terrarium/internal/prefix"
	"github.com/terrarium-dev/terrarium/internal/project"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Output: io.Discard})
}

const testManifest = `
channels = ["conda-forge"]

[project]
name = "test-project"
platforms = ["linux-64", "linux-aarch64", "osx-64", "osx-arm64", "win-64", "win-arm64"]

[dependencies]
python = "3.11.*"

[pypi-dependencies]
requests = ">=2"
`

// testProject writes a manifest into a fresh directory and loads it.
func testProject(t *testing.T) *project.Project {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, project.ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o644))

	p, err := project.Load(path)
	require.NoError(t, err)
	return p
}

type fakeConda struct {
	result *install.TransactionResult
	err    error

	calls   int
	lastReq install.CondaRequest
}

func (f *fakeConda) Install(ctx context.Context, req install.CondaRequest) (*install.TransactionResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &install.TransactionResult{}, nil
}

type fakePyPi struct {
	syncErr      error
	uninstallErr error

	syncReqs    []install.PyPiRequest
	uninstalled []string
}

func (f *fakePyPi) Sync(ctx context.Context, req install.PyPiRequest) error {
	f.syncReqs = append(f.syncReqs, req)
	return f.syncErr
}

func (f *fakePyPi) Uninstall(ctx context.Context, dist prefix.InstalledDist) error {
	if f.uninstallErr != nil {
		return f.uninstallErr
	}
	f.uninstalled = append(f.uninstalled, dist.Name)
	return nil
}

type fakeLockService struct {
	lock *lockfile.LockFile
	err  error

	calls    int
	lastOpts UpdateLockFileOptions
}

func (f *fakeLockService) UpdateLockFile(ctx context.Context, p *project.Project, opts UpdateLockFileOptions) (*lockfile.LockFile, error) {
	f.calls++
	f.lastOpts = opts
	return f.lock, f.err
}

func updaterPrefix(env *project.Environment) prefix.Prefix {
	return prefix.New(env.Dir())
}

func testUpdater(conda *fakeConda, pypi *fakePyPi, locks *fakeLockService) *Updater {
	return &Updater{
		LockFiles:   locks,
		Conda:       conda,
		PyPi:        pypi,
		Cache:       install.PackageCache{Dir: "unused"},
		IOLimit:     install.NewIOLimit(4),
		ToolVersion: "0.0.0-test",
		Logger:      testLogger(),
	}
}
