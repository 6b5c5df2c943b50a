package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/search"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewFindCmd creates the 'find' command for full-text search over bodies.
func NewFindCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "find <text>...",
		Short: "Find expansions by the text they contain",
		Long: `Full-text search over expansion bodies and descriptions. Matching is
word based and tolerates one typo per word; frequently used expansions get a
small boost.`,
		Example: `  textshortcutter find regards
  textshortcutter find "meeting link" --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, strings.Join(args, " "), limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

type findResult struct {
	Shortcut string  `json:"shortcut"`
	Score    float64 `json:"score"`
	Body     string  `json:"body"`
}

func runFind(cmd *cobra.Command, text string, limit int, jsonOutput bool) error {
	return withStore(cmd, func(_ *store.Store, snap store.Snapshot) error {
		ft, err := search.NewFullText()
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		defer ft.Close()

		if err := ft.Rebuild(snap.Expansions); err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}

		hits, err := ft.Find(text, limit, search.DefaultFusionConfig)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			res := make([]findResult, 0, len(hits))
			for _, h := range hits {
				res = append(res, findResult{Shortcut: h.Expansion.Shortcut, Score: h.Score, Body: h.Expansion.Body})
			}
			return writeJSON(out, res)
		}

		if len(hits) == 0 {
			fmt.Fprintf(out, "Nothing contains '%s'.\n", text)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  SHORTCUT\tSCORE\tTEXT")
		for _, h := range hits {
			fmt.Fprintf(tw, "  %s\t%.2f\t%s\n", h.Expansion.Shortcut, h.Score, oneLine(h.Expansion.Body, previewWidth))
		}
		return tw.Flush()
	})
}
