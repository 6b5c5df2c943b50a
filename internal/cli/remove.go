package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewRemoveCmd creates the 'remove' command.
func NewRemoveCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove <shortcut>",
		Aliases: []string{"rm"},
		Short:   "Remove an expansion",
		Long:    `Delete an expansion from the store. This cannot be undone.`,
		Example: `  textshortcutter remove sig
  textshortcutter rm sig --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args[0], yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

// runRemove deletes the expansion named by ref.
func runRemove(cmd *cobra.Command, ref string, yes bool) error {
	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		e, err := lookup(st, ref)
		if err != nil {
			return err
		}

		if !yes && !confirm(cmd, fmt.Sprintf("Remove '%s'?", e.Shortcut), false) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		if err := st.Delete(e.ID); err != nil {
			return fmt.Errorf("failed to remove expansion: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed '%s'\n", okMark, e.Shortcut)
		return nil
	})
}
