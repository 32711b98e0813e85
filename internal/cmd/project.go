package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/manifest"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Modify the project manifest",
}

var projectChannelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage the channels of the project",
}

var channelRemoveCmd = &cobra.Command{
	Use:   "remove <channel>...",
	Short: "Remove channels from the manifest and re-materialize the lock file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChannelRemove,
}

var (
	channelRemoveFeature   string
	channelRemoveNoInstall bool
)

func init() {
	channelRemoveCmd.Flags().StringVar(&channelRemoveFeature, "feature", manifest.DefaultFeatureName, "feature to remove the channels from")
	channelRemoveCmd.Flags().BoolVar(&channelRemoveNoInstall, "no-install", false, "update the lock file without installing the environment")

	projectChannelCmd.AddCommand(channelRemoveCmd)
	projectCmd.AddCommand(projectChannelCmd)
	rootCmd.AddCommand(projectCmd)
}

func runChannelRemove(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	channels := make([]manifest.PrioritizedChannel, 0, len(args))
	for _, arg := range args {
		channels = append(channels, manifest.PrioritizedChannel{Channel: arg})
	}

	featureName := manifest.FeatureNameFrom(channelRemoveFeature)
	if err := p.Manifest.RemoveChannels(channels, featureName); err != nil {
		return err
	}

	// Re-lock (and install) against the modified manifest before persisting
	// it, so a failed solve leaves the manifest on disk untouched.
	updater := newUpdater()
	env := p.DefaultEnvironment()
	if _, _, err := updater.GetUpdateLockFileAndPrefix(
		cmd.Context(), env, lockfile.UsageUpdate, channelRemoveNoInstall, lockfile.UpdateModeRevalidate,
	); err != nil {
		return err
	}

	if err := p.Save(); err != nil {
		return err
	}

	fmt.Printf("✓ Removed channel(s) %s\n", strings.Join(args, ", "))
	return nil
}
