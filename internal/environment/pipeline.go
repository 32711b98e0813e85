package environment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/terrarium-dev/terrarium/internal/errors"
	"github.com/terrarium-dev/terrarium/internal/install"
	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/log"
	"github.com/terrarium-dev/terrarium/internal/platform"
	"github.com/terrarium-dev/terrarium/internal/prefix"
	"github.com/terrarium-dev/terrarium/internal/project"
)

// PyPiInstallerName is the installer identity terrarium records for the
// PyPI distributions it installs. Only distributions carrying this marker
// are ever purged; anything else belongs to a foreign tool.
const PyPiInstallerName = "terrarium-uv"

// UpdateLockFileOptions controls the lock-file refresh step.
type UpdateLockFileOptions struct {
	Usage lockfile.Usage
	// NoInstall is true when the operation will not install anything, so
	// the refresh may skip install-only work.
	NoInstall bool
}

// LockFileService refreshes and loads the project lock file per the usage
// policy. The solver behind it is an external collaborator; the pipeline
// only consumes the resulting per-platform package record sets.
type LockFileService interface {
	UpdateLockFile(ctx context.Context, p *project.Project, opts UpdateLockFileOptions) (*lockfile.LockFile, error)
}

// Updater drives the materialization of environments. All state is local
// to one invocation except the shared io permit pool.
type Updater struct {
	LockFiles LockFileService
	Conda     install.CondaInstaller
	PyPi      install.PyPiInstaller
	Cache     install.PackageCache
	IOLimit   *install.IOLimit

	// ToolVersion is recorded into the environment file of every prefix
	// this updater installs.
	ToolVersion string

	Logger *log.Logger
}

func (u *Updater) logger() *log.Logger {
	if u.Logger != nil {
		return u.Logger
	}
	return log.DefaultLogger()
}

// GetUpdateLockFileAndPrefix materializes one environment: it sanity
// checks the project, refreshes the lock file per the usage policy, and
// returns the lock file together with the environment's prefix. The
// prefix is installed unless noInstall is forced, either by the caller or
// because the current platform is not supported by the environment.
func (u *Updater) GetUpdateLockFileAndPrefix(
	ctx context.Context,
	env *project.Environment,
	usage lockfile.Usage,
	noInstall bool,
	mode lockfile.UpdateMode,
) (*lockfile.LockFile, prefix.Prefix, error) {
	logger := u.logger().With(
		"operation", uuid.NewString(),
		"environment", env.Name(),
	)

	currentPlatform := env.BestPlatform()

	// Not supporting the current platform downgrades the operation to
	// lock-only. This is a warning, not an error.
	if !noInstall && !env.SupportsPlatform(currentPlatform) {
		logger.Warn("not installing on current platform as it is not part of this environment's supported platforms",
			"platform", currentPlatform)
		noInstall = true
	}

	if err := SanityCheck(env.Project(), logger); err != nil {
		return nil, prefix.Prefix{}, err
	}

	lock, err := u.LockFiles.UpdateLockFile(ctx, env.Project(), UpdateLockFileOptions{
		Usage:     usage,
		NoInstall: noInstall,
	})
	if err != nil {
		return nil, prefix.Prefix{}, err
	}

	if noInstall {
		return lock, prefix.New(env.Dir()), nil
	}

	locked := lock.Environment(env.Name())
	if locked == nil {
		return nil, prefix.Prefix{}, errors.NewEnvNotLockedError(env.Name())
	}

	pfx, err := u.installedPrefix(ctx, env, locked, currentPlatform, mode, logger)
	if err != nil {
		return nil, prefix.Prefix{}, err
	}
	return lock, pfx, nil
}

// installedPrefix returns a ready prefix for the environment, installing
// or updating it when the persisted environment record does not match the
// lock file.
func (u *Updater) installedPrefix(
	ctx context.Context,
	env *project.Environment,
	locked *lockfile.Environment,
	p platform.Platform,
	mode lockfile.UpdateMode,
	logger *log.Logger,
) (prefix.Prefix, error) {
	pfx := prefix.New(env.Dir())
	hash := lockfile.HashEnvironment(locked, p)

	if mode == lockfile.UpdateModeQuickValidate && pfx.Exists() {
		if envFile := ReadEnvironmentFile(env.Dir(), logger); envFile != nil &&
			envFile.EnvironmentLockFileHash == hash {
			logger.Debug("environment is up to date with the lock file", "hash", hash)
			return pfx, nil
		}
	}

	installed, err := pfx.FindInstalledPackages()
	if err != nil {
		return prefix.Prefix{}, errors.Wrap(errors.ErrCodeEnvInstallFailed,
			fmt.Sprintf("failed to read installed packages of %q", env.Name()), err)
	}

	status, err := u.UpdatePrefixConda(ctx, pfx, installed, locked.CondaPackagesFor(p), p, logger)
	if err != nil {
		return prefix.Prefix{}, err
	}

	if err := u.UpdatePrefixPyPi(ctx, env, pfx, status, locked, p, logger); err != nil {
		return prefix.Prefix{}, err
	}

	if _, err := WriteEnvironmentFile(env.Dir(), EnvironmentFile{
		ManifestPath:            env.Project().Manifest.Path,
		EnvironmentName:         env.Name(),
		TerrariumVersion:        u.ToolVersion,
		EnvironmentLockFileHash: hash,
	}, logger); err != nil {
		return prefix.Prefix{}, err
	}

	return pfx, nil
}

// UpdatePrefixConda brings the conda packages of a prefix in line with the
// locked records by delegating to the transactional installer, then marks
// the prefix location and writes the conda interop history file. It
// returns the interpreter transition derived from the transaction.
func (u *Updater) UpdatePrefixConda(
	ctx context.Context,
	pfx prefix.Prefix,
	installed []prefix.Record,
	desired []lockfile.Package,
	p platform.Platform,
	logger *log.Logger,
) (PythonStatus, error) {
	// Large transactions link many files at once.
	install.TryIncreaseRlimitToSensible()

	result, err := u.Conda.Install(ctx, install.CondaRequest{
		TargetPrefix: pfx.Root(),
		Installed:    installed,
		Desired:      desired,
		Platform:     p,
		Cache:        u.Cache,
		IOLimit:      u.IOLimit,
	})
	if err != nil {
		return PythonStatus{}, errors.Wrap(errors.ErrCodeEnvInstallFailed,
			fmt.Sprintf("failed to install packages into %s", pfx.Root()), err)
	}

	logger.Debug("applied conda transaction",
		"linked", result.Linked, "unlinked", result.Unlinked)

	if err := createPrefixLocationFile(pfx.Root(), logger); err != nil {
		return PythonStatus{}, err
	}
	if err := createHistoryFile(pfx.Root(), logger); err != nil {
		return PythonStatus{}, err
	}

	return PythonStatusFromTransaction(result), nil
}

// UpdatePrefixPyPi synchronizes the PyPI packages of a prefix, gated
// entirely by the interpreter transition:
//
//   - a removed interpreter purges terrarium-managed distributions from
//     its old site-packages and stops;
//   - a changed interpreter purges the old site-packages first (unless the
//     path is version independent, as on Windows) and then syncs;
//   - an unchanged or added interpreter with nothing to install purges any
//     leftovers and stops;
//   - no interpreter at all is a no-op.
func (u *Updater) UpdatePrefixPyPi(
	ctx context.Context,
	env *project.Environment,
	pfx prefix.Prefix,
	status PythonStatus,
	locked *lockfile.Environment,
	p platform.Platform,
	logger *log.Logger,
) error {
	desired := locked.PyPiPackagesFor(p)

	var info *install.PythonInfo
	switch status.Kind {
	case PythonRemoved:
		// Without an interpreter there is nothing to sync against; drop
		// whatever the old interpreter had and stop.
		return u.purgeSitePackages(ctx, pfx, status.Old.SitePackagesPath, logger)

	case PythonChanged:
		if status.Old.SitePackagesPath != status.New.SitePackagesPath {
			if err := u.purgeSitePackages(ctx, pfx, status.Old.SitePackagesPath, logger); err != nil {
				return err
			}
		}
		info = status.New

	case PythonUnchanged, PythonAdded:
		if len(desired) == 0 {
			return u.purgeSitePackages(ctx, pfx, status.New.SitePackagesPath, logger)
		}
		info = status.New

	case PythonDoesNotExist:
		return nil
	}

	sysReq, err := env.SystemRequirements()
	if err != nil {
		return err
	}

	envVars := env.ActivationEnv(&p)
	options := env.PyPiOptions()
	var noBuildIsolation []string
	if options != nil {
		noBuildIsolation = options.NoBuildIsolation
	}

	logger.Info("updating pypi packages", "count", len(desired))
	if err := u.PyPi.Sync(ctx, install.PyPiRequest{
		TargetPrefix:         pfx.Root(),
		LockFileDir:          env.Project().Root,
		CondaPackages:        locked.CondaPackagesFor(p),
		Desired:              desired,
		PythonPath:           filepath.Join(pfx.Root(), info.Path),
		SitePackagesPath:     info.SitePackagesPath,
		SystemRequirements:   sysReq,
		Indexes:              locked.Indexes,
		EnvironmentVariables: envVars,
		Platform:             p,
		NoBuildIsolation:     noBuildIsolation,
	}); err != nil {
		return errors.Wrap(errors.ErrCodeEnvInstallFailed,
			fmt.Sprintf("failed to update pypi packages in %q", env.Name()), err)
	}
	return nil
}

// purgeSitePackages removes every terrarium-installed distribution from a
// site-packages directory. Distributions installed by other tools are left
// untouched, and a distribution whose installer cannot be determined is
// conservatively kept with a warning. Any uninstall failure is fatal.
func (u *Updater) purgeSitePackages(ctx context.Context, pfx prefix.Prefix, sitePackagesPath string, logger *log.Logger) error {
	sitePackages := filepath.Join(pfx.Root(), sitePackagesPath)
	if _, err := os.Stat(sitePackages); os.IsNotExist(err) {
		return nil
	}

	dists, err := prefix.FindInstalledDists(sitePackages)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEnvUninstallFailed,
			"failed to inspect outdated site-packages", err)
	}

	for _, dist := range dists {
		if dist.Installer == "" {
			logger.Warn("could not determine the installer of a distribution, leaving it in place",
				"distribution", dist.Name)
			continue
		}
		if dist.Installer != PyPiInstallerName {
			continue
		}
		if err := u.PyPi.Uninstall(ctx, dist); err != nil {
			return errors.Wrap(errors.ErrCodeEnvUninstallFailed,
				fmt.Sprintf("failed to uninstall outdated distribution %q", dist.Name), err)
		}
		logger.Debug("uninstalled outdated distribution", "distribution", dist.Name)
	}
	return nil
}
