package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/keys"
	"github.com/bobersnip/TextShortcutter/internal/policy"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewConfigCmd creates the 'config' command group for the encrypted
// configuration record.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the trigger, security level, privacy mode and app filter",
		Long: `The configuration lives inside the encrypted store. A running
'textshortcutter run' picks up changes immediately.

Commands:
  show      Print the configuration
  trigger   Set the trigger combination (e.g. ctrl+space, ctrl+shift+e)
  security  Set the security level (1-10; 8 and above ask before pasting)
  privacy   Turn privacy mode on or off (audit log keeps counts only)
  filter    Manage the application allow/block list`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigTriggerCmd())
	cmd.AddCommand(newConfigSecurityCmd())
	cmd.AddCommand(newConfigPrivacyCmd())
	cmd.AddCommand(newConfigFilterCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(_ *store.Store, snap store.Snapshot) error {
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), snap.Config)
				}
				printConfig(cmd, snap.Config)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func printConfig(cmd *cobra.Command, c config.Configuration) {
	out := cmd.OutOrStdout()

	confirmNote := ""
	if c.SecurityLevel >= policy.ConfirmationLevel {
		confirmNote = " (asks before pasting)"
	}
	apps := "none"
	if len(c.AppFilter.Apps) > 0 {
		parts := make([]string, len(c.AppFilter.Apps))
		for i, a := range c.AppFilter.Apps {
			parts[i] = string(a)
		}
		apps = strings.Join(parts, ", ")
	}

	fmt.Fprintf(out, "Trigger:          %s\n", c.TriggerCombo)
	fmt.Fprintf(out, "Security level:   %d%s\n", c.SecurityLevel, confirmNote)
	fmt.Fprintf(out, "Privacy mode:     %s\n", onOff(c.PrivacyMode))
	fmt.Fprintf(out, "App filter:       %s list: %s\n", c.AppFilter.Mode, apps)
	fmt.Fprintf(out, "Empty bodies:     %s\n", allowed(c.AllowEmptyBody))
	fmt.Fprintf(out, "Max expansions:   %d\n", c.MaxExpansions)
}

// updateConfig applies fn, then prints what changed.
func updateConfig(cmd *cobra.Command, what string, fn func(*config.Configuration) error) error {
	return withStore(cmd, func(st *store.Store, _ store.Snapshot) error {
		c, err := st.UpdateConfig(fn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okMark, what)
		printConfig(cmd, c)
		return nil
	})
}

func newConfigTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <combo>",
		Short: "Set the trigger combination",
		Long: `Set the key combination that opens the picker. Keys are joined with '+';
modifiers are ctrl, shift, alt and super (cmd, win and meta are accepted).`,
		Example: `  textshortcutter config trigger ctrl+space
  textshortcutter config trigger ctrl+shift+e`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			combo, err := keys.ParseCombo(args[0])
			if err != nil {
				return &config.InvalidConfigError{
					Field:   "trigger_combo",
					Message: err.Error(),
					Hint:    "use something like ctrl+space or ctrl+shift+e",
				}
			}
			return updateConfig(cmd, "Trigger updated", func(c *config.Configuration) error {
				c.TriggerCombo = combo
				return nil
			})
		},
	}
}

func newConfigSecurityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "security <level>",
		Short: "Set the security level (1-10)",
		Example: `  textshortcutter config security 8  # confirm every paste
  textshortcutter config security 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil {
				return &config.InvalidConfigError{
					Field:   "security_level",
					Message: fmt.Sprintf("%q is not a number", args[0]),
				}
			}
			return updateConfig(cmd, "Security level updated", func(c *config.Configuration) error {
				c.SecurityLevel = level
				return nil
			})
		},
	}
}

func newConfigPrivacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "privacy <on|off>",
		Short:     "Turn privacy mode on or off",
		Long:      `In privacy mode the audit log and log output omit application and shortcut names.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return updateConfig(cmd, "Privacy mode "+onOff(on), func(c *config.Configuration) error {
				c.PrivacyMode = on
				return nil
			})
		},
	}
}

func newConfigFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Manage the application filter",
		Long: `In block mode (the default) expansions work everywhere except in the
listed applications. In allow mode they work only in the listed ones.

Applications are matched by executable name, case-insensitively: 'Firefox',
'C:\Apps\Banking.exe' and '/usr/bin/code' become firefox, banking.exe and code.`,
		Example: `  textshortcutter config filter add keepassxc
  textshortcutter config filter mode allow
  textshortcutter config filter remove keepassxc`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "mode <allow|block>",
		Short:     "Choose allow-list or block-list behaviour",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(config.FilterAllow), string(config.FilterBlock)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := config.FilterMode(strings.ToLower(args[0]))
			return updateConfig(cmd, "Filter mode updated", func(c *config.Configuration) error {
				c.AppFilter.Mode = mode
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <app>...",
		Short: "Add applications to the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, "Filter updated", func(c *config.Configuration) error {
				for _, raw := range args {
					c.AppFilter.Add(config.CanonicalApp(raw))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <app>...",
		Aliases: []string{"rm"},
		Short:   "Remove applications from the list",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, "Filter updated", func(c *config.Configuration) error {
				for _, raw := range args {
					app := config.CanonicalApp(raw)
					if !c.AppFilter.Remove(app) {
						return fmt.Errorf("%s is not in the filter list", app)
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(cmd, "Filter cleared", func(c *config.Configuration) error {
				c.AppFilter.Apps = nil
				return nil
			})
		},
	})

	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func allowed(b bool) string {
	if b {
		return "allowed"
	}
	return "rejected"
}
