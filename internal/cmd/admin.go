package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/config"
	"github.com/3leaps/ftpfinder/internal/observability"
	"github.com/3leaps/ftpfinder/internal/tui"
	"github.com/3leaps/ftpfinder/pkg/session"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Open the interactive admin dashboard",
	Long: `Open the admin dashboard: password setup or login, source management and
live indexing progress.

While the dashboard owns the terminal, logs go to logging.file
(default: $XDG_DATA_HOME/ftpfinder/ftpfinder.log).`,
	Args: cobra.NoArgs,
	RunE: runAdmin,
}

func init() {
	rootCmd.AddCommand(adminCmd)
}

func runAdmin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}

	closeLog, err := observability.InitFileLogger(config.AppName, cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Could not open log file", err)
	}
	defer func() { _ = closeLog() }()

	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	logger := observability.CLILogger
	gw := session.NewGateway(client, logger.Named("session"))
	poller := newPoller(cfg, client, gw)
	defer poller.Close()

	logger.Info("Starting admin dashboard", zap.String("api_url", cfg.API.BaseURL))
	err = tui.Run(ctx, tui.Deps{
		Session:        gw,
		Sources:        newRegistry(client, gw),
		Watcher:        poller,
		MessageTTL:     cfg.UI.MessageTTL,
		RequestTimeout: cfg.API.Timeout,
		Logger:         logger.Named("tui"),
	})
	if err != nil {
		logger.Error("Dashboard exited with error", zap.Error(err))
		return fmt.Errorf("dashboard: %w", err)
	}
	logger.Info("Dashboard closed")
	return nil
}
