package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/observability"
	"github.com/3leaps/ftpfinder/pkg/api"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks against the local setup and the index server.

Examples:
  ftpfinder doctor
  ftpfinder doctor --api-url http://10.0.0.5:8000`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := observability.CLILogger
	log.Info("=== ftpfinder doctor ===")
	log.Info("Running diagnostic checks...")

	allChecks := true
	checkNum := 1
	const totalChecks = 6

	// Check 1: environment
	log.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s %s/%s", checkNum, totalChecks, runtime.Version(), runtime.GOOS, runtime.GOARCH),
		zap.String("go_version", runtime.Version()))
	checkNum++

	// Check 2: exit code catalog
	version := crucible.GetVersion()
	if version.Crucible != "" {
		log.Info(fmt.Sprintf("[%d/%d] Checking Crucible catalog... ✅ v%s", checkNum, totalChecks, version.Crucible),
			zap.String("crucible_version", version.Crucible))
	} else {
		log.Warn(fmt.Sprintf("[%d/%d] Checking Crucible catalog... ⚠️  version unknown", checkNum, totalChecks))
	}
	checkNum++

	// Check 3: configuration
	cfg, err := loadedConfig(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking configuration... ❌ %v", checkNum, totalChecks, err))
		return err
	}
	if err := cfg.Validate(); err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking configuration... ❌ %v", checkNum, totalChecks, err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	log.Info(fmt.Sprintf("[%d/%d] Checking configuration... ✅ %s", checkNum, totalChecks, cfg.API.BaseURL),
		zap.Any("config", cfg.Redacted()))
	checkNum++

	// Check 4: dashboard log directory
	logDir := filepath.Dir(cfg.Logging.File)
	if err := checkWritableDir(logDir); err != nil {
		log.Warn(fmt.Sprintf("[%d/%d] Checking log directory... ⚠️  %v", checkNum, totalChecks, err))
		allChecks = false
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking log directory... ✅ %s", checkNum, totalChecks, logDir))
	}
	checkNum++

	// Check 5: server reachability
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	status, err := client.AuthStatus(ctx)
	if err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking server... ❌ %s unreachable", checkNum, totalChecks, cfg.API.BaseURL),
			zap.Error(err))
		log.Info("")
		log.Info("Start the index server, or point at it with --api-url / FTPFINDER_API_URL.")
		log.Info("For local testing: ftpfinder mock-server")
		return exitError(foundry.ExitExternalServiceUnavailable, "Index server unreachable", err)
	}
	if status.Configured {
		log.Info(fmt.Sprintf("[%d/%d] Checking server... ✅ reachable, admin password set", checkNum, totalChecks))
	} else {
		log.Warn(fmt.Sprintf("[%d/%d] Checking server... ⚠️  reachable, no admin password (run: ftpfinder auth setup)", checkNum, totalChecks))
		allChecks = false
	}
	checkNum++

	// Check 6: job status endpoint
	if err := checkJobStatus(ctx, client); err != nil {
		log.Error(fmt.Sprintf("[%d/%d] Checking job status... ❌ %v", checkNum, totalChecks, err))
		allChecks = false
	} else {
		log.Info(fmt.Sprintf("[%d/%d] Checking job status... ✅ readable", checkNum, totalChecks))
	}

	log.Info("")
	if allChecks {
		log.Info("✅ All checks passed!")
	} else {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	log.Info("=== End Diagnostics ===")
	return nil
}

type statusReader interface {
	IndexStatus(ctx context.Context) (*api.JobSnapshot, error)
}

func checkJobStatus(ctx context.Context, client statusReader) error {
	_, err := client.IndexStatus(ctx)
	return err
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
