package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terrarium-dev/terrarium/internal/environment"
	"github.com/terrarium-dev/terrarium/internal/install"
	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/manifest"
	"github.com/terrarium-dev/terrarium/internal/tui"
	"github.com/terrarium-dev/terrarium/internal/version"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install an environment from the lock file",
	Long: `Install materializes an environment into .terrarium/envs: the lock file
is refreshed when allowed by the usage flags, conda packages are linked
from the package cache, and PyPI packages are synchronized into the
environment's interpreter.`,
	RunE: runInstall,
}

var (
	installEnvironment string
	installFrozen      bool
	installLocked      bool
	installRevalidate  bool
)

func init() {
	installCmd.Flags().StringVarP(&installEnvironment, "environment", "e", manifest.DefaultEnvironmentName, "environment to install")
	installCmd.Flags().BoolVar(&installFrozen, "frozen", false, "use the lock file as is, without checking it against the manifest")
	installCmd.Flags().BoolVar(&installLocked, "locked", false, "require the lock file to be up to date, fail instead of updating it")
	installCmd.Flags().BoolVar(&installRevalidate, "revalidate", false, "reinstall even when the environment already matches the lock file")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	if installFrozen && installLocked {
		return fmt.Errorf("--frozen and --locked are mutually exclusive")
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	env, err := p.Environment(installEnvironment)
	if err != nil {
		return err
	}

	usage := lockfile.UsageUpdate
	switch {
	case installFrozen:
		usage = lockfile.UsageFrozen
	case installLocked:
		usage = lockfile.UsageLocked
	}
	mode := lockfile.UpdateModeQuickValidate
	if installRevalidate {
		mode = lockfile.UpdateModeRevalidate
	}

	updater := newUpdater()
	_, pfx, err := updater.GetUpdateLockFileAndPrefix(cmd.Context(), env, usage, false, mode)
	if err != nil {
		return err
	}

	fmt.Printf("✓ The %s environment has been installed to %s\n", env.Name(), tui.StylePath(pfx.Root()))
	return nil
}

// newUpdater wires the materialization pipeline from the user
// configuration.
func newUpdater() *environment.Updater {
	return &environment.Updater{
		LockFiles: &environment.PinnedLockFiles{},
		Conda:     install.LinkingInstaller{},
		PyPi: &install.UvInstaller{
			InstallerName: environment.PyPiInstallerName,
		},
		Cache:       install.PackageCache{Dir: toolConfig.CacheDir},
		IOLimit:     install.NewIOLimit(toolConfig.MaxConcurrentLinks),
		ToolVersion: version.GetInfo().Version,
	}
}
