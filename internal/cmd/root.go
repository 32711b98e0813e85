package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/terrarium-dev/terrarium/internal/config"
	"github.com/terrarium-dev/terrarium/internal/log"
	"github.com/terrarium-dev/terrarium/internal/project"
	"github.com/terrarium-dev/terrarium/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "terrarium",
	Short: "Reproducible conda and PyPI environments from a single manifest",
	Long: `terrarium manages project environments that mix conda and PyPI packages.
It reads a terrarium.toml manifest describing features, platforms and
environments, keeps a lock file of exact package records next to it, and
materializes environments under .terrarium/envs.`,

	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	flagManifestPath string
	flagVerbose      bool
	flagQuiet        bool

	// toolConfig is loaded once per invocation in setup.
	toolConfig config.Config
)

// ExecuteContext runs the root command with the given context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagManifestPath, "manifest-path", "", "path to terrarium.toml (default: search upward from the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")
}

// setup loads the user configuration and configures the process-wide
// logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	toolConfig = cfg

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	switch {
	case flagVerbose:
		logCfg = log.VerboseConfig()
	case flagQuiet:
		logCfg.Level = log.LevelError
	}
	log.SetDefaultLogger(log.New(logCfg))

	tui.SetNonInteractive(cfg.NonInteractive)
	return nil
}

// loadProject locates and parses the project manifest, honoring the
// --manifest-path flag.
func loadProject() (*project.Project, error) {
	if flagManifestPath != "" {
		return project.Load(flagManifestPath)
	}
	return project.Discover(".")
}
