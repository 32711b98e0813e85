package install

import (
	"context"
	"strings"

	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/manifest"
	"github.com/terrarium-dev/terrarium/internal/platform"
	"github.com/terrarium-dev/terrarium/internal/prefix"
)

// PythonInfo describes the interpreter found in a prefix.
type PythonInfo struct {
	// Path is the interpreter location relative to the prefix root.
	Path string
	// Version is the full interpreter version, e.g. "3.11.4".
	Version string
	// ShortVersion is the major.minor truncation, e.g. "3.11". Interpreter
	// change detection compares short versions so patch releases do not
	// churn the environment.
	ShortVersion string
	// SitePackagesPath is the package directory relative to the prefix
	// root, e.g. "lib/python3.11/site-packages".
	SitePackagesPath string
}

// ShortVersionOf truncates a full version string to major.minor.
func ShortVersionOf(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return version
	}
	return parts[0] + "." + parts[1]
}

// TransactionResult reports the outcome of an applied conda transaction.
type TransactionResult struct {
	// PreviousPython is the interpreter before the transaction, nil when
	// the prefix had none.
	PreviousPython *PythonInfo
	// CurrentPython is the interpreter after the transaction, nil when the
	// prefix ends up without one.
	CurrentPython *PythonInfo

	// Linked and Unlinked count the applied operations.
	Linked   int
	Unlinked int
}

// PackageCache locates the content store packages are linked from.
type PackageCache struct {
	Dir string
}

// CondaRequest carries everything the transactional conda installer needs
// to move a prefix from its current to its desired state.
type CondaRequest struct {
	// TargetPrefix is the root directory of the environment.
	TargetPrefix string
	// Installed are the package records currently present in the prefix.
	Installed []prefix.Record
	// Desired are the locked conda records the prefix should contain,
	// in lock-file order.
	Desired []lockfile.Package

	Platform platform.Platform
	Cache    PackageCache

	// IOLimit bounds concurrent link/copy operations. Shared across all
	// simultaneous installer invocations.
	IOLimit *IOLimit
}

// CondaInstaller computes and applies the link/unlink/update transaction
// for a prefix. Implementations live outside this module; the pipeline
// only orchestrates them.
type CondaInstaller interface {
	Install(ctx context.Context, req CondaRequest) (*TransactionResult, error)
}

// PyPiRequest carries the full context for synchronizing the PyPI packages
// of an environment.
type PyPiRequest struct {
	// TargetPrefix is the root directory of the environment.
	TargetPrefix string
	// LockFileDir is the directory the lock file lives in; relative paths
	// of editable installs resolve against it.
	LockFileDir string

	// CondaPackages are the locked conda records of the environment, used
	// to exclude conda-managed distributions from PyPI resolution.
	CondaPackages []lockfile.Package
	// Desired are the locked PyPI records, in lock-file order.
	Desired []lockfile.Package

	// PythonPath is the absolute path of the interpreter to install into.
	PythonPath string
	// SitePackagesPath is the interpreter's package directory relative to
	// the prefix root.
	SitePackagesPath string

	SystemRequirements manifest.SystemRequirements
	Indexes            *lockfile.PyPiIndexes
	// EnvironmentVariables is the activation environment the installer
	// runs under.
	EnvironmentVariables map[string]string
	Platform             platform.Platform
	// NoBuildIsolation lists packages exempted from build isolation.
	NoBuildIsolation []string
}

// PyPiInstaller resolves and installs PyPI packages into a prefix, and
// removes individual installed distributions.
type PyPiInstaller interface {
	Sync(ctx context.Context, req PyPiRequest) error
	Uninstall(ctx context.Context, dist prefix.InstalledDist) error
}
