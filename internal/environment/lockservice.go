package environment

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/terrarium-dev/terrarium/internal/errors"
	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/log"
	"github.com/terrarium-dev/terrarium/internal/project"
)

// Solver produces a fresh lock file for a project. The solve algorithm is
// an external collaborator; terrarium only consumes its output.
type Solver interface {
	Solve(ctx context.Context, p *project.Project) (*lockfile.LockFile, error)
}

// PinnedLockFiles is the default LockFileService: it reads the lock file
// next to the manifest, judges its freshness against the manifest's
// environments and platforms, and refreshes it through the solver when
// the usage policy allows.
type PinnedLockFiles struct {
	// Solver refreshes a stale lock file. When nil, a stale lock file
	// under the Update policy is an error instead of a refresh.
	Solver Solver

	Logger *log.Logger
}

func (s *PinnedLockFiles) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.DefaultLogger()
}

// UpdateLockFile implements LockFileService.
func (s *PinnedLockFiles) UpdateLockFile(ctx context.Context, p *project.Project, opts UpdateLockFileOptions) (*lockfile.LockFile, error) {
	path := p.LockFilePath()

	lock, err := lockfile.Load(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeLockFileInvalid,
				fmt.Sprintf("failed to load lock file %s", path), err)
		}
		lock = nil
	}

	if !opts.Usage.ShouldCheckIfOutOfDate() {
		if lock == nil {
			return nil, errors.New(errors.ErrCodeLockFileNotFound,
				fmt.Sprintf("no lock file found at %s", path)).
				WithSuggestion("Run without --frozen to create one")
		}
		return lock, nil
	}

	reason, stale := s.outOfDate(lock, p)
	if !stale {
		return lock, nil
	}

	if !opts.Usage.AllowsLockFileUpdates() {
		return nil, errors.NewLockFileStaleError(reason)
	}

	if s.Solver == nil {
		return nil, errors.New(errors.ErrCodeLockFileStale,
			fmt.Sprintf("the lock file is out of date (%s) and no solver is configured", reason))
	}

	s.logger().Info("refreshing lock file", "reason", reason)
	fresh, err := s.Solver.Solve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("solve environments: %w", err)
	}
	if err := lockfile.Save(fresh, path); err != nil {
		return nil, err
	}
	return fresh, nil
}

// outOfDate reports whether the lock file covers every environment and
// platform the manifest declares. Spec-level drift (changed dependencies)
// is the solver's own check and happens during Solve.
func (s *PinnedLockFiles) outOfDate(lock *lockfile.LockFile, p *project.Project) (string, bool) {
	if lock == nil {
		return "lock file does not exist", true
	}
	for _, name := range p.EnvironmentNames() {
		env, err := p.Environment(name)
		if err != nil {
			continue
		}
		locked := lock.Environment(name)
		if locked == nil {
			return fmt.Sprintf("environment %q is not locked", name), true
		}
		for _, pl := range env.Platforms() {
			if _, ok := locked.Packages[pl]; !ok {
				return fmt.Sprintf("environment %q is not locked for platform %s", name, pl), true
			}
		}
	}
	return "", false
}
