package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewShowCmd creates the 'show' command.
func NewShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		bodyOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "show <shortcut>",
		Short: "Show one expansion",
		Example: `  textshortcutter show sig
  textshortcutter show sig --body | wl-copy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], jsonOutput, bodyOnly)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().BoolVarP(&bodyOnly, "body", "b", false, "Print only the body")

	return cmd
}

func runShow(cmd *cobra.Command, ref string, jsonOutput, bodyOnly bool) error {
	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		e, err := lookup(st, ref)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case jsonOutput:
			return writeJSON(out, e)
		case bodyOnly:
			_, err := fmt.Fprint(out, e.Body)
			return err
		}

		fmt.Fprintf(out, "Shortcut:    %s\n", e.Shortcut)
		fmt.Fprintf(out, "ID:          %s\n", e.ID)
		if e.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", e.Description)
		}
		fmt.Fprintf(out, "Enabled:     %t\n", e.Enabled)
		fmt.Fprintf(out, "Uses:        %d\n", e.UseCount)
		if !e.LastUsedAt.IsZero() {
			fmt.Fprintf(out, "Last used:   %s\n", e.LastUsedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(out, "Created:     %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintln(out)
		fmt.Fprintln(out, e.Body)
		return nil
	})
}
