package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/3leaps/ftpfinder/pkg/display"
)

var (
	searchJSON  bool
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search indexed directory names",
	Long: `Search the index. Every word of the query must appear in the directory
name. Names and links are percent-decoded for display.

Examples:
  ftpfinder search ubuntu iso
  ftpfinder search "my files" --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Show at most this many results (0 = all)")
}

type searchRow struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Link     string `json:"original_link"`
	SourceID int64  `json:"source_id,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	out := cmd.OutOrStdout()

	rows := []searchRow{}
	if query != "" {
		cfg, err := loadedConfig(cmd.Context())
		if err != nil {
			return err
		}
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}
		results, err := client.Search(cmd.Context(), query)
		if err != nil {
			return apiExit("Search failed", err)
		}
		for _, r := range results {
			rows = append(rows, searchRow{
				ID:       r.ID,
				Name:     display.SafeDecode(r.Name),
				Link:     display.SafeDecode(r.OriginalLink),
				SourceID: r.SourceID,
			})
		}
	}
	total := len(rows)
	if searchLimit > 0 && len(rows) > searchLimit {
		rows = rows[:searchLimit]
	}

	if searchJSON {
		return writeJSON(out, rows)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "No results")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tLINK")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, display.Truncate(r.Name, 60), r.Link)
	}
	_ = w.Flush()
	if total > len(rows) {
		_, _ = fmt.Fprintf(out, "(%s of %s results)\n", display.Count(len(rows)), display.Count(total))
	}
	return nil
}
