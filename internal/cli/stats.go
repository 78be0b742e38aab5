package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brensch/rensa/store"
)

var (
	statsDirs []string
	statsJSON bool

	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgWhite)
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise recorded self-play games",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Summarize(cmd.Context(), statsDirs)
		if err != nil {
			return fmt.Errorf("summarize %v: %w", statsDirs, err)
		}
		return printSummary(cmd.OutOrStdout(), s, statsJSON)
	},
}

func init() {
	statsCmd.Flags().StringSliceVar(&statsDirs, "dir", []string{getEnvOrDefault("OUT_DIR", "data/selfplay")}, "Directories holding parquet batches")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statsCmd)
}

func printSummary(w io.Writer, s store.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	_, _ = headerColor.Fprintln(w, "▸ Self-play summary")
	label := func(name string) { _, _ = labelColor.Fprintf(w, "%-12s", name) }
	label("games")
	fmt.Fprintf(w, "%d (%d rows)\n", s.Games, s.Rows)
	label("wins")
	fmt.Fprintf(w, "%d - %d (draws %d)\n", s.Wins[0], s.Wins[1], s.Draws)
	label("mean turns")
	fmt.Fprintf(w, "%.1f\n", s.MeanTurns)
	label("max chains")
	fmt.Fprintf(w, "%d\n", s.MaxChains)

	modes := make([]string, 0, len(s.Modes))
	for m := range s.Modes {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	for _, m := range modes {
		fmt.Fprintf(w, "  %-16s %d\n", m, s.Modes[m])
	}
	return nil
}
