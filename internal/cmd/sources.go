package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/ftpfinder/pkg/api"
	"github.com/3leaps/ftpfinder/pkg/display"
	"github.com/3leaps/ftpfinder/pkg/match"
	"github.com/3leaps/ftpfinder/pkg/registry"
)

var (
	sourcesFormat   string
	sourcesMatch    []string
	sourcesExclude  []string
	sourcesFold     bool
	sourcesLabel    string
	sourcesURL      string
	sourcesYes      bool
	sourcesPassword string
)

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"src"},
	Short:   "Manage crawl sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crawl sources",
	Long: `List the sources the server crawls. Listing does not require a login.

--match and --exclude filter by label using doublestar glob semantics.
Both may be repeated; a label must match one --match and no --exclude.

Examples:
  ftpfinder sources list
  ftpfinder sources list --match 'Mirror*' --format json
  ftpfinder sources list --exclude '*staging*' -i`,
	Args: cobra.NoArgs,
	RunE: runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a crawl source",
	Long: `Add a source. Requires the admin password.

Examples:
  ftpfinder sources add --label "Mirror" --url ftp://ftp.example.org/pub/`,
	Args: cobra.NoArgs,
	RunE: runSourcesAdd,
}

var sourcesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a source and its indexed directories",
	Long: `Delete a source. Every directory indexed from it is deleted too, so the
command asks for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesRm,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesRmCmd)

	sourcesCmd.PersistentFlags().StringVar(&sourcesPassword, "password", "", "Admin password (overrides auth.password)")

	sourcesListCmd.Flags().StringVar(&sourcesFormat, "format", formatTable, "Output format: table, json, yaml")
	sourcesListCmd.Flags().StringSliceVar(&sourcesMatch, "match", nil, "Only sources whose label matches this glob (repeatable)")
	sourcesListCmd.Flags().StringSliceVar(&sourcesExclude, "exclude", nil, "Skip sources whose label matches this glob (repeatable)")
	sourcesListCmd.Flags().BoolVarP(&sourcesFold, "ignore-case", "i", false, "Match labels case-insensitively")

	sourcesAddCmd.Flags().StringVar(&sourcesLabel, "label", "", "Display label (required)")
	sourcesAddCmd.Flags().StringVar(&sourcesURL, "url", "", "Source URL (required)")

	sourcesRmCmd.Flags().BoolVarP(&sourcesYes, "yes", "y", false, "Skip the confirmation prompt")
}

// sourceRow is the printed shape of a source.
type sourceRow struct {
	ID        int64  `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	URL       string `json:"url" yaml:"url"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

func toSourceRows(sources []api.Source) []sourceRow {
	rows := make([]sourceRow, 0, len(sources))
	for _, s := range sources {
		rows = append(rows, sourceRow{ID: s.ID, Label: s.Label, URL: s.URL, CreatedAt: s.CreatedAt})
	}
	return rows
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(sourcesFormat); err != nil {
		return err
	}
	matcher, err := match.New(match.Config{
		Includes:   sourcesMatch,
		Excludes:   sourcesExclude,
		IgnoreCase: sourcesFold,
	})
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --match or --exclude pattern", err)
	}

	cfg, err := loadedConfig(cmd.Context())
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	sources, err := newRegistry(client, nil).List(cmd.Context())
	if err != nil {
		return apiExit("Could not list sources", err)
	}
	sources = filterSources(sources, matcher)

	out := cmd.OutOrStdout()
	if sourcesFormat != formatTable {
		return writeFormatted(out, sourcesFormat, toSourceRows(sources))
	}
	printSourceTable(out, sources, time.Now())
	return nil
}

func filterSources(sources []api.Source, m *match.Matcher) []api.Source {
	if m == nil || m.MatchAll() {
		return sources
	}
	out := make([]api.Source, 0, len(sources))
	for _, s := range sources {
		if m.Match(s.Label) {
			out = append(out, s)
		}
	}
	return out
}

func printSourceTable(out io.Writer, sources []api.Source, now time.Time) {
	if len(sources) == 0 {
		_, _ = fmt.Fprintln(out, "No sources configured")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL\tURL\tADDED")
	for _, s := range sources {
		added := "-"
		if ts, ok := api.ParseTimestamp(s.CreatedAt); ok {
			added = display.TimeAgo(&ts, now)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Label, s.URL, added)
	}
	_ = w.Flush()
}

func runSourcesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if _, err := registry.ValidateSource(sourcesLabel, sourcesURL); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid source", err)
	}

	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	gw, err := login(ctx, client, adminPassword(cfg, sourcesPassword))
	if err != nil {
		return err
	}

	reg := newRegistry(client, gw)
	before, err := reg.List(ctx)
	if err != nil {
		return apiExit("Could not list sources", err)
	}
	if err := reg.Create(ctx, sourcesLabel, sourcesURL); err != nil {
		return apiExit("Could not add source", err)
	}
	after, err := reg.List(ctx)
	if err != nil {
		return apiExit("Source added but the list could not be reloaded", err)
	}

	added := newSources(before, after)
	out := cmd.OutOrStdout()
	if len(added) == 0 {
		_, _ = fmt.Fprintln(out, "Source added")
		return nil
	}
	printSourceTable(out, added, time.Now())
	return nil
}

// newSources returns the entries of after whose id is not in before.
func newSources(before, after []api.Source) []api.Source {
	known := make(map[int64]struct{}, len(before))
	for _, s := range before {
		known[s.ID] = struct{}{}
	}
	var out []api.Source
	for _, s := range after {
		if _, ok := known[s.ID]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func runSourcesRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return exitError(foundry.ExitInvalidArgument, "Source id must be a positive integer",
			fmt.Errorf("invalid id %q", args[0]))
	}

	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	gw, err := login(ctx, client, adminPassword(cfg, sourcesPassword))
	if err != nil {
		return err
	}

	var confirm registry.Confirmer = newStdinConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
	if sourcesYes {
		confirm = registry.ConfirmFunc(func(string) bool { return true })
	}

	out := cmd.OutOrStdout()
	reg := newRegistry(client, gw)
	err = reg.Delete(ctx, id, confirm)
	switch {
	case errors.Is(err, registry.ErrDeleteDeclined):
		_, _ = fmt.Fprintln(out, "Delete cancelled")
		return nil
	case err != nil:
		return apiExit("Could not delete source", err)
	}

	_, _ = fmt.Fprintf(out, "Source %d deleted\n", id)
	if remaining, err := reg.List(ctx); err == nil {
		_, _ = fmt.Fprintf(out, "%d source(s) remaining\n", len(remaining))
	}
	return nil
}
