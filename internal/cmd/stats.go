package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/3leaps/ftpfinder/pkg/display"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index totals",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig(cmd.Context())
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	stats, err := client.Stats(cmd.Context())
	if err != nil {
		return apiExit("Could not read stats", err)
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return writeJSON(out, stats)
	}
	_, _ = fmt.Fprintf(out, "Sources:      %s\n", display.Count(stats.Sources))
	_, _ = fmt.Fprintf(out, "Directories:  %s\n", display.Count(stats.Directories))
	if stats.LastUpdated == nil {
		_, _ = fmt.Fprintln(out, "Last updated: never")
		return nil
	}
	_, _ = fmt.Fprintf(out, "Last updated: %s (%s)\n",
		display.TimeAgo(stats.LastUpdated, time.Now()),
		stats.LastUpdated.Format(time.RFC3339))
	return nil
}
