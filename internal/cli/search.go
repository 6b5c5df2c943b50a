package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/search"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewSearchCmd creates the 'search' command: the picker's query, with the
// kind of match shown.
func NewSearchCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search shortcuts and descriptions",
		Long: `Search the way the picker does. Shortcuts starting with the query come
first, then shortcuts containing it, then expansions whose description
contains it. Within each group the most used come first.`,
		Example: `  textshortcutter search addr`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled expansions")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, all bool) error {
	return withStore(cmd, func(_ *store.Store, snap store.Snapshot) error {
		results := search.NewIndex(snap.Expansions).Ranked(query, !all)
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintf(out, "No expansions match '%s'.\n", query)
			return nil
		}
		return printResults(out, results, true)
	})
}
