// Package cmd implements the ftpfinder command line.
package cmd

import (
	"context"
	"errors"
	"io/fs"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/config"
	"github.com/3leaps/ftpfinder/internal/observability"
)

var (
	cfgFile  string
	apiURL   string
	logLevel string
	verbose  bool
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

var rootCmd = &cobra.Command{
	Use:   "ftpfinder",
	Short: "Admin client for the FTP Finder index server",
	Long: `ftpfinder administers an FTP Finder index server: it configures the
admin password, manages crawl sources, starts indexing jobs and watches
them until they finish, and searches the resulting index.

Run "ftpfinder admin" for the interactive dashboard.

Configuration is read from ftpfinder.yaml (current directory or the user
config directory), FTPFINDER_* environment variables and flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./ftpfinder.yaml or <user config dir>/ftpfinder/ftpfinder.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Index server base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (same as --log-level debug)")
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func initApp(cmd *cobra.Command, _ []string) error {
	overrides := map[string]any{}
	if apiURL != "" {
		overrides["api"] = map[string]any{"base_url": apiURL}
	}
	switch {
	case verbose:
		overrides["logging"] = map[string]any{"level": "debug"}
	case logLevel != "":
		overrides["logging"] = map[string]any{"level": logLevel}
	}

	cfg, err := config.LoadFile(cmd.Context(), cfgFile, overrides)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "Config file not found", err)
		}
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if err := observability.Configure(observability.Options{
		Service: config.AppName,
		Level:   cfg.Logging.Level,
		Profile: cfg.Logging.Profile,
		Output:  cmd.ErrOrStderr(),
	}); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("api_url", cfg.API.BaseURL),
		zap.Duration("api_timeout", cfg.API.Timeout))
	return nil
}
