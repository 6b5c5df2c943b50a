package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/config"
)

// NewSettingsCmd creates the 'settings' command group for the plain-text
// runtime settings file.
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage settings.yaml (paths, logging, paste timing)",
		Long: `Runtime settings are read from settings.yaml in the user config directory,
then from TEXTSHORTCUTTER_* environment variables, then from flags.

Keys:
  data_dir          where the store and audit log live
  log_level         debug, info, warn or error
  log_format        text or json
  restore_delay     wait after the paste before restoring the clipboard (20ms-2s)
  restore_timeout   give up restoring after this long
  persist_debounce  batch usage-count writes within this window
  injector          auto, xdotool, osascript or powershell (X11 or XWayland on Linux)
  notifications     desktop notifications on errors
  audit_retention   drop audit entries older than this`,
	}

	cmd.AddCommand(newSettingsInitCmd())
	cmd.AddCommand(newSettingsShowCmd())

	return cmd
}

func newSettingsInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the current values",
		Example: `  textshortcutter settings init
  textshortcutter --settings ./dev.yaml --data-dir ./data settings init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settingsFrom(cmd)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("settings")
			if path == "" {
				if path, err = config.DefaultSettingsPath(); err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return fmt.Errorf("failed to create settings directory: %w", err)
			}
			if err := config.WriteSettings(path, s); err != nil {
				return fmt.Errorf("failed to write settings: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", okMark, path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settingsFrom(cmd)
			if err != nil {
				return err
			}
			data, err := config.MarshalSettings(s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
