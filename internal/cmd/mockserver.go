package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/observability"
	"github.com/3leaps/ftpfinder/internal/server"
)

var (
	mockHost      string
	mockPort      int
	mockIndexStep time.Duration
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory index server for local testing",
	Long: `Run an in-memory implementation of the index server API. It keeps the
password, sources and index in memory and simulates crawls over a fixed
directory tree, so the dashboard and the other commands can be exercised
without a real backend.

Examples:
  ftpfinder mock-server
  ftpfinder mock-server --port 9000 --index-step 500ms`,
	Args: cobra.NoArgs,
	RunE: runMockServer,
}

func init() {
	rootCmd.AddCommand(mockServerCmd)
	mockServerCmd.Flags().StringVar(&mockHost, "host", "", "Listen host (overrides server.host)")
	mockServerCmd.Flags().IntVar(&mockPort, "port", 0, "Listen port (overrides server.port)")
	mockServerCmd.Flags().DurationVar(&mockIndexStep, "index-step", 0, "Delay per simulated crawl step, e.g. 200ms (overrides server.index_step)")
}

func runMockServer(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}

	host := cfg.Server.Host
	if mockHost != "" {
		host = mockHost
	}
	port := cfg.Server.Port
	if mockPort != 0 {
		port = mockPort
	}
	step := cfg.Server.IndexStep
	if mockIndexStep < 0 {
		return exitError(foundry.ExitInvalidArgument, "Invalid --index-step",
			fmt.Errorf("must not be negative (got %s)", mockIndexStep))
	}
	if mockIndexStep > 0 {
		step = mockIndexStep
	}

	logger := observability.CLILogger.Named("server")
	srv := server.New(host, port,
		server.WithLogger(logger),
		server.WithIndexStep(step),
	)
	defer srv.Close()

	ready := make(chan string, 1)
	go func() {
		if addr, ok := <-ready; ok {
			logger.Info("Mock index server listening", zap.String("addr", addr))
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s (Ctrl+C to stop)\n", addr)
		}
	}()

	if err := srv.Start(ctx, ready); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Mock server failed", err)
	}
	return nil
}
