package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewEditCmd creates the 'edit' command. Only flags that are set change.
func NewEditCmd() *cobra.Command {
	var (
		shortcut    string
		body        string
		description string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "edit <shortcut>",
		Short: "Change an expansion",
		Long: `Change the shortcut, body or description of an expansion.
Fields whose flag is not given keep their value; the use count is preserved.`,
		Example: `  textshortcutter edit sig --body "Kind regards"
  textshortcutter edit sig --shortcut signature
  textshortcutter edit addr --file ~/new-address.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p store.Patch
			flags := cmd.Flags()

			if flags.Changed("shortcut") {
				p.Shortcut = &shortcut
			}
			if flags.Changed("body") && flags.Changed("file") {
				return fmt.Errorf("use either --body or --file")
			}
			if flags.Changed("body") {
				p.Body = &body
			}
			if flags.Changed("file") {
				text, err := bodyFrom(cmd, nil, file)
				if err != nil {
					return err
				}
				p.Body = &text
			}
			if flags.Changed("description") {
				p.Description = &description
			}
			if p == (store.Patch{}) {
				return fmt.Errorf("nothing to change: set --shortcut, --body, --file or --description")
			}
			return runEdit(cmd, args[0], p)
		},
	}

	cmd.Flags().StringVarP(&shortcut, "shortcut", "s", "", "New shortcut")
	cmd.Flags().StringVarP(&body, "body", "b", "", "New body")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the new body from this file")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")

	return cmd
}

func runEdit(cmd *cobra.Command, ref string, p store.Patch) error {
	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		e, err := lookup(st, ref)
		if err != nil {
			return err
		}
		updated, err := st.Edit(e.ID, p)
		if err != nil {
			return fmt.Errorf("failed to edit expansion: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Updated '%s'\n", okMark, updated.Shortcut)
		return nil
	})
}
