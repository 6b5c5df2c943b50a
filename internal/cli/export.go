package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bobersnip/TextShortcutter/internal/seal"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewExportCmd creates the 'export' command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a passphrase-protected backup",
		Long: `Write every expansion and the configuration to a file encrypted with a
passphrase. Unlike the store itself, the backup can be imported on another
machine.

The passphrase is prompted for on a terminal, or read from the first line of
standard input otherwise.`,
		Example: `  textshortcutter export ~/expansions.tsx
  echo "$PASS" | textshortcutter export backup.tsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}

	return cmd
}

func runExport(cmd *cobra.Command, path string) error {
	pass, err := readPassphrase(cmd, true)
	if err != nil {
		return err
	}
	defer seal.Wipe(pass)

	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		n, err := st.Export(path, pass)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d expansion(s) to %s\n", okMark, n, path)
		return nil
	})
}

// NewImportCmd creates the 'import' command.
func NewImportCmd() *cobra.Command {
	var (
		policy     string
		withConfig bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a backup written by 'export'",
		Long: `Merge the expansions of a backup into the store.

When a shortcut already exists the import stops without changing anything,
unless --policy says how to resolve it:
  skip       keep the existing expansion
  overwrite  replace it with the imported one
  rename     import under a free name (sig-2, sig-3, ...)

The configuration (trigger, security level, app filter) is only replaced
with --with-config.`,
		Example: `  textshortcutter import backup.tsx
  textshortcutter import backup.tsx --policy rename
  textshortcutter import backup.tsx --policy overwrite --with-config`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParsePolicy(policy)
			if err != nil {
				return err
			}
			return runImport(cmd, args[0], store.ImportOptions{Policy: p, WithConfig: withConfig})
		},
	}

	cmd.Flags().StringVarP(&policy, "policy", "p", "", "Conflict policy: skip, overwrite or rename")
	cmd.Flags().BoolVar(&withConfig, "with-config", false, "Also replace the configuration")

	return cmd
}

func runImport(cmd *cobra.Command, path string, opts store.ImportOptions) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	pass, err := readPassphrase(cmd, false)
	if err != nil {
		return err
	}
	defer seal.Wipe(pass)

	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		res, err := st.Import(path, pass, opts)
		if err != nil {
			var conflict *store.ImportConflictError
			if errors.As(err, &conflict) {
				return err
			}
			return fmt.Errorf("import failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Imported from %s\n", okMark, path)
		fmt.Fprintf(out, "  Added:       %d\n", res.Added)
		if res.Overwritten > 0 {
			fmt.Fprintf(out, "  Overwritten: %d\n", res.Overwritten)
		}
		if res.Renamed > 0 {
			fmt.Fprintf(out, "  Renamed:     %d\n", res.Renamed)
		}
		if res.Skipped > 0 {
			fmt.Fprintf(out, "  Skipped:     %d\n", res.Skipped)
		}
		if res.Config {
			fmt.Fprintln(out, "  Configuration replaced")
		}
		return nil
	})
}

// readPassphrase prompts on a terminal, asking twice when repeat is set, and
// reads one line from a non-terminal stdin.
func readPassphrase(cmd *cobra.Command, repeat bool) ([]byte, error) {
	in := cmd.InOrStdin()
	out := cmd.ErrOrStderr()

	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadBytes('\n')
		if err != nil && len(line) == 0 {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		pass := bytes.TrimRight(line, "\r\n")
		if len(pass) == 0 {
			return nil, seal.ErrEmptyPassphrase
		}
		return pass, nil
	}

	fmt.Fprint(out, "Passphrase: ")
	pass, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, seal.ErrEmptyPassphrase
	}

	if repeat {
		fmt.Fprint(out, "Repeat passphrase: ")
		again, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			seal.Wipe(pass)
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		defer seal.Wipe(again)
		if !bytes.Equal(pass, again) {
			seal.Wipe(pass)
			return nil, fmt.Errorf("passphrases do not match")
		}
	}

	return pass, nil
}
