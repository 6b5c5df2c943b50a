package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewEnableCmd creates the 'enable' command.
func NewEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "enable <shortcut>...",
		Short:   "Show expansions in the picker again",
		Example: `  textshortcutter enable sig addr`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(cmd, args, true)
		},
	}
}

// NewDisableCmd creates the 'disable' command.
func NewDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <shortcut>...",
		Short: "Hide expansions from the picker without deleting them",
		Example: `  textshortcutter disable sig
  textshortcutter list --all`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(cmd, args, false)
		},
	}
}

func runSetEnabled(cmd *cobra.Command, refs []string, enabled bool) error {
	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}

	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		for _, ref := range refs {
			e, err := lookup(st, ref)
			if err != nil {
				return err
			}
			if _, err := st.SetEnabled(e.ID, enabled); err != nil {
				return fmt.Errorf("failed to update '%s': %w", e.Shortcut, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s '%s'\n", okMark, verb, e.Shortcut)
		}
		return nil
	})
}
