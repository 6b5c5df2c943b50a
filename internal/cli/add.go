package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewAddCmd creates the 'add' command.
//
// The body comes from the second argument, --file, or standard input. When
// standard input is a terminal the body is typed line by line and ends at
// the first empty line.
func NewAddCmd() *cobra.Command {
	var (
		description string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "add <shortcut> [body]",
		Short: "Add an expansion",
		Long: `Add an expansion to the encrypted store.

Shortcuts are case-insensitive, at most 64 characters, without whitespace.
When the body is omitted it is read from --file or standard input.`,
		Example: `  textshortcutter add sig "Best regards,
Ana"
  textshortcutter add addr --file ~/address.txt -d "postal address"
  pbpaste | textshortcutter add snippet`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := bodyFrom(cmd, args, file)
			if err != nil {
				return err
			}
			return runAdd(cmd, args[0], body, description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Optional description, searchable in the picker")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the body from this file")

	return cmd
}

func bodyFrom(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) > 1 && file != "":
		return "", fmt.Errorf("give the body either as argument or with --file, not both")
	case len(args) > 1:
		return args[1], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return string(data), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(cmd.OutOrStdout(), "Type the expansion text, finish with an empty line:")
		return readMultilineInput(in), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func runAdd(cmd *cobra.Command, shortcut, body, description string) error {
	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		e, err := st.Add(shortcut, body, description)
		if err != nil {
			return fmt.Errorf("failed to add expansion: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Added '%s' (%d characters)\n", okMark, e.Shortcut, len([]rune(e.Body)))
		return nil
	})
}
