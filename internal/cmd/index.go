package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/internal/observability"
	"github.com/3leaps/ftpfinder/pkg/api"
	"github.com/3leaps/ftpfinder/pkg/display"
	"github.com/3leaps/ftpfinder/pkg/jobwatch"
	"github.com/3leaps/ftpfinder/pkg/output"
)

const statusLogLines = 10

var (
	indexWatch    bool
	indexJSONL    bool
	indexJSON     bool
	indexPassword string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Start and watch indexing jobs",
	Long: `Start and watch the server's indexing job.

The server runs at most one job at a time. Progress is read by polling
/index/status; every poll returns the full job state so far.`,
}

var indexRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an indexing job",
	Long: `Start an indexing job. Requires the admin password.

With --watch the command polls until the job finishes. --jsonl prints one
JSON record per line (snapshot, error, finished) instead of log lines.

Examples:
  ftpfinder index run --watch
  ftpfinder index run --watch --jsonl | jq -c 'select(.type == "ftpfinder.finished.v1")'`,
	Args: cobra.NoArgs,
	RunE: runIndexRun,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the indexing job status once",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a job that is already running",
	Args:  cobra.NoArgs,
	RunE:  runIndexWatch,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRunCmd, indexStatusCmd, indexWatchCmd)

	indexRunCmd.Flags().StringVar(&indexPassword, "password", "", "Admin password (overrides auth.password)")
	indexRunCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "Poll until the job finishes")
	indexRunCmd.Flags().BoolVar(&indexJSONL, "jsonl", false, "Emit JSONL records while watching")

	indexWatchCmd.Flags().BoolVar(&indexJSONL, "jsonl", false, "Emit JSONL records")

	indexStatusCmd.Flags().BoolVar(&indexJSON, "json", false, "Output as JSON")
}

func runIndexRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	gw, err := login(ctx, client, adminPassword(cfg, indexPassword))
	if err != nil {
		return err
	}

	poller := newPoller(cfg, client, gw)
	defer poller.Close()

	cycle, err := poller.Trigger(ctx)
	if err != nil {
		return apiExit("Could not start indexing", err)
	}
	if !indexJSONL {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Indexing started")
	}
	if !indexWatch {
		return nil
	}
	return watchJob(ctx, cmd.OutOrStdout(), poller, cycle, indexJSONL)
}

func runIndexWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	poller := newPoller(cfg, client, nil)
	defer poller.Close()

	running, err := poller.Resume(ctx)
	if err != nil {
		return apiExit("Could not read job status", err)
	}
	if !running {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No indexing job is running")
		return nil
	}
	return watchJob(ctx, cmd.OutOrStdout(), poller, poller.Cycle(), indexJSONL)
}

// jobSummary tracks what a watch has seen so far.
type jobSummary struct {
	started     time.Time
	snapshots   int
	fetchErrors int
	seenLogs    int
}

// watchJob prints poller events for cycle until the job finishes or ctx
// ends.
func watchJob(ctx context.Context, out io.Writer, poller *jobwatch.Poller, cycle uint64, jsonl bool) error {
	var w output.Writer
	if jsonl {
		jw := output.NewJSONLWriter(out, uuid.NewString())
		defer func() { _ = jw.Close() }()
		w = jw
	}

	sum := &jobSummary{started: time.Now()}
	for {
		select {
		case <-ctx.Done():
			return exitError(foundry.ExitSignalInt, "Watch cancelled", ctx.Err())
		case <-poller.Done():
			return nil
		case ev := <-poller.Events():
			if ev.Cycle != cycle {
				continue
			}
			done, err := handleWatchEvent(ctx, out, w, sum, ev)
			if err != nil {
				return exitError(foundry.ExitFileWriteError, "Could not write output", err)
			}
			if done {
				return nil
			}
		}
	}
}

func handleWatchEvent(ctx context.Context, out io.Writer, w output.Writer, sum *jobSummary, ev jobwatch.Event) (bool, error) {
	switch ev.Kind {
	case jobwatch.EventSnapshot:
		sum.snapshots++
		phase := jobwatch.PhaseIdle
		if ev.Snapshot.IsRunning {
			phase = jobwatch.PhaseRunning
		}
		rec := output.NewSnapshotRecord(phase.String(), ev.Snapshot, sum.seenLogs)
		sum.seenLogs = len(ev.Snapshot.Logs)
		if w != nil {
			return false, w.WriteSnapshot(ctx, ev.Cycle, rec)
		}
		for _, line := range rec.NewLogs {
			_, _ = fmt.Fprintf(out, "  %s\n", display.SafeDecode(line))
		}
		return false, nil

	case jobwatch.EventFetchFailed:
		sum.fetchErrors++
		if w != nil {
			return false, w.WriteError(ctx, ev.Cycle, output.NewErrorRecord(ev.Err))
		}
		observability.CLILogger.Warn("Status check failed", zap.Error(ev.Err))
		return false, nil

	case jobwatch.EventTriggerFailed:
		// Trigger already returned the error to the caller.
		return true, nil

	case jobwatch.EventFinished:
		elapsed := time.Since(sum.started)
		found := 0
		if ev.Snapshot != nil {
			found = ev.Snapshot.DirectoriesFound
		}
		if w != nil {
			return true, w.WriteFinished(ctx, ev.Cycle, &output.FinishedRecord{
				DirectoriesFound: found,
				Snapshots:        sum.snapshots,
				FetchErrors:      sum.fetchErrors,
				Duration:         elapsed,
				DurationHuman:    elapsed.Round(time.Millisecond).String(),
			})
		}
		_, _ = fmt.Fprintf(out, "Indexing finished: %s directories (started %s)\n",
			display.Count(found), humanize.Time(sum.started))
		return true, nil
	}
	return false, nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	poller := newPoller(cfg, client, nil)
	defer poller.Close()

	snap, err := poller.Refresh(ctx)
	if err != nil {
		return apiExit("Could not read job status", err)
	}
	if indexJSON {
		return writeJSON(cmd.OutOrStdout(), snap)
	}
	printJobStatus(cmd.OutOrStdout(), snap)
	return nil
}

func printJobStatus(out io.Writer, snap *api.JobSnapshot) {
	state := "idle"
	if snap.IsRunning {
		state = "running"
	}
	_, _ = fmt.Fprintf(out, "Status:  %s\n", state)
	_, _ = fmt.Fprintf(out, "Found:   %s dirs\n", display.Count(snap.DirectoriesFound))
	if snap.IsRunning {
		source := snap.CurrentSource
		if source == "" {
			source = "Preparing..."
		}
		_, _ = fmt.Fprintf(out, "Source:  %s\n", source)
		if snap.CurrentPath != "" {
			_, _ = fmt.Fprintf(out, "Path:    %s\n", display.SafeDecode(snap.CurrentPath))
		}
	}
	if len(snap.Logs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "Logs (newest first):")
	for _, line := range display.Tail(snap.Logs, statusLogLines) {
		_, _ = fmt.Fprintf(out, "  %s\n", display.SafeDecode(line))
	}
}
