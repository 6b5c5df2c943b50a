/*
Package cli implements the command-line interface for textshortcutter.

Each command is implemented as a separate function that returns a *cobra.Command,
allowing for clean separation and easy testing.
*/
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/version"
)

type settingsKey struct{}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var settingsPath string

	rootCmd := &cobra.Command{
		Use:   "textshortcutter",
		Short: "Expand saved snippets into any application with a hotkey",
		Long: `textshortcutter keeps a private, encrypted collection of text snippets
("expansions") and pastes the one you pick into the focused application.

Press the trigger combination (ctrl+space by default) while 'textshortcutter run'
is active, type a few letters of the shortcut, and hit enter. The clipboard is
restored after the paste.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(cmd, settingsPath)
			if err != nil {
				return err
			}
			if err := logging.Setup(s.LogLevel, s.LogFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, settingsKey{}, s))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&settingsPath, "settings", "", "Settings file (default: <config dir>/textshortcutter/settings.yaml)")
	pf.String("data-dir", "", "Directory holding the encrypted store and audit log")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewAddCmd())
	rootCmd.AddCommand(NewEditCmd())
	rootCmd.AddCommand(NewRemoveCmd())
	rootCmd.AddCommand(NewEnableCmd())
	rootCmd.AddCommand(NewDisableCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewFindCmd())
	rootCmd.AddCommand(NewShowCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewImportCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewStatsCmd())
	rootCmd.AddCommand(NewAuditCmd())
	rootCmd.AddCommand(NewVerifyCmd())
	rootCmd.AddCommand(NewSettingsCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
