package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayr-records/recordsearch/internal/usage"
)

var (
	statsPath   string
	statsDays   int
	statsOutput string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local usage statistics",
	Long: `Show how many searches, dry runs, loads and index operations this machine
has run. Counts are kept in a local SQLite database (USAGE_STATS_PATH,
default ~/.recordsearch/usage.db) and do not need OpenSearch.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsPath, "db", "", "Usage database path (defaults to USAGE_STATS_PATH or ~/.recordsearch/usage.db)")
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "Only count the last N days (0 for all time)")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", outputText, "Output format: text|json|yaml")
}

func runStats(cmd *cobra.Command, args []string) error {
	path := statsPath
	if path == "" {
		path = os.Getenv("USAGE_STATS_PATH")
	}
	if path == "" {
		var err error
		if path, err = usage.DefaultPath(); err != nil {
			return err
		}
	}

	store, err := usage.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return printStats(cmd.OutOrStdout(), store, statsDays, statsOutput, time.Now())
}

func printStats(w io.Writer, store *usage.Store, days int, format string, now time.Time) error {
	if err := validateOutput(format); err != nil {
		return err
	}

	var (
		totals map[usage.Event]int64
		err    error
	)
	if days > 0 {
		totals, err = store.TotalsSince(now.AddDate(0, 0, -(days - 1)))
	} else {
		totals, err = store.Totals()
	}
	if err != nil {
		return err
	}

	switch format {
	case outputJSON:
		return writeJSON(w, totals)
	case outputYAML:
		return writeYAML(w, totals)
	}

	if days > 0 {
		fmt.Fprintf(w, "Usage over the last %d days:\n", days)
	} else {
		fmt.Fprintln(w, "Usage since first run:")
	}
	for _, event := range usage.Events {
		fmt.Fprintf(w, "  %-16s %d\n", event, totals[event])
	}
	return nil
}
