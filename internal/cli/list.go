package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/search"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

const previewWidth = 48

// NewListCmd creates the 'list' command.
func NewListCmd() *cobra.Command {
	var (
		jsonOutput bool
		all        bool
	)

	cmd := &cobra.Command{
		Use:     "list [prefix]",
		Aliases: []string{"ls"},
		Short:   "List expansions in picker order",
		Long: `List expansions the way the picker shows them: most used first, or
filtered by a shortcut prefix. Disabled expansions are included with --all.`,
		Example: `  textshortcutter list
  textshortcutter ls sig
  textshortcutter list --all --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runList(cmd, query, all, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled expansions")

	return cmd
}

// runList prints the ranked expansions.
func runList(cmd *cobra.Command, query string, all, jsonOutput bool) error {
	return withStore(cmd, func(_ *store.Store, snap store.Snapshot) error {
		ix := search.NewIndex(snap.Expansions)
		results := ix.Ranked(query, !all)
		out := cmd.OutOrStdout()

		if jsonOutput {
			exps := make([]store.Expansion, 0, len(results))
			for _, r := range results {
				exps = append(exps, r.Expansion)
			}
			return writeJSON(out, exps)
		}

		if len(snap.Expansions) == 0 {
			fmt.Fprintln(out, "No expansions yet.")
			fmt.Fprintln(out, "Run 'textshortcutter add <shortcut> <text>' to create one.")
			return nil
		}
		if len(results) == 0 {
			fmt.Fprintf(out, "No expansions match '%s'.\n", query)
			return nil
		}

		fmt.Fprintf(out, "Expansions (%d):\n\n", len(results))
		return printResults(out, results, false)
	})
}

// printResults writes a table of results; withTier adds the match column.
func printResults(w io.Writer, results []search.Result, withTier bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if withTier {
		fmt.Fprintln(tw, "  SHORTCUT\tMATCH\tUSES\tTEXT")
	} else {
		fmt.Fprintln(tw, "  SHORTCUT\tUSES\tTEXT")
	}

	for _, r := range results {
		name := r.Shortcut
		if !r.Enabled {
			name += dimStyle.Render(" (disabled)")
		}
		text := oneLine(r.Body, previewWidth)
		if withTier {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n", name, r.Tier, r.UseCount, text)
		} else {
			fmt.Fprintf(tw, "  %s\t%d\t%s\n", name, r.UseCount, text)
		}
	}

	return tw.Flush()
}
