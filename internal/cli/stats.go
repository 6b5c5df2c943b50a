package cli

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewStatsCmd creates the 'stats' command.
func NewStatsCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, top)
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 5, "Number of most used expansions to show")
	return cmd
}

func runStats(cmd *cobra.Command, top int) error {
	return withStore(cmd, func(_ *store.Store, snap store.Snapshot) error {
		var (
			enabled  int
			uses     int64
			lastUsed time.Time
			lastName string
		)
		for _, e := range snap.Expansions {
			if e.Enabled {
				enabled++
			}
			uses += e.UseCount
			if e.LastUsedAt.After(lastUsed) {
				lastUsed, lastName = e.LastUsedAt, e.Shortcut
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Expansions: %d (%d enabled, limit %d)\n", len(snap.Expansions), enabled, snap.Config.MaxExpansions)
		fmt.Fprintf(out, "Total uses: %d\n", uses)
		if lastName != "" {
			fmt.Fprintf(out, "Last used:  %s at %s\n", lastName, lastUsed.Local().Format("2006-01-02 15:04"))
		}

		used := slices.DeleteFunc(slices.Clone(snap.Expansions), func(e store.Expansion) bool {
			return e.UseCount == 0
		})
		if len(used) == 0 || top <= 0 {
			return nil
		}
		slices.SortStableFunc(used, func(a, b store.Expansion) int {
			return cmp.Compare(b.UseCount, a.UseCount)
		})
		if len(used) > top {
			used = used[:top]
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Most used:")
		for i, e := range used {
			fmt.Fprintf(out, "  %d. %-20s %d\n", i+1, e.Shortcut, e.UseCount)
		}
		return nil
	})
}
