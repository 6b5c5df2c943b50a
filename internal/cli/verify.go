package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/clipboard"
	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/desktop"
	"github.com/bobersnip/TextShortcutter/internal/hotkey"
	"github.com/bobersnip/TextShortcutter/internal/storage"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

// NewVerifyCmd creates the 'verify' command for checking the setup.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the store and the desktop integrations",
		Long: `Verify that the encrypted store opens with this machine's key and that
the helpers 'run' depends on are present: keyboard access, clipboard and a
paste injector.

Exits with status 2 when the store exists but cannot be decrypted.`,
		Example: `  textshortcutter verify`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd)
		},
	}

	return cmd
}

// probes are the environment checks; tests replace them.
var (
	keyboardProbe  = func() (bool, string) { return hotkey.NewSystemSource().Available() }
	clipboardProbe = func() bool { return clipboard.System{}.Available() }
	injectorProbe  = func(tool string) (string, error) {
		return desktop.NewExecInjector(tool, desktop.DefaultTimeout).Resolve()
	}
)

// runVerify prints one line per check. Only a store failure is an error.
func runVerify(cmd *cobra.Command) error {
	s, err := settingsFrom(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	pass := func(format string, args ...any) {
		fmt.Fprintf(out, "%s %s\n", okMark, fmt.Sprintf(format, args...))
	}
	fail := func(format string, args ...any) {
		fmt.Fprintf(out, "%s %s\n", failMark, fmt.Sprintf(format, args...))
	}

	storeErr := verifyStore(s, pass, fail)

	if err := config.CheckWritePermission(filepath.Join(s.DataDir, storage.DBFileName)); err != nil {
		fail("Data directory %s: %v", s.DataDir, err)
	} else {
		pass("Data directory: %s", s.DataDir)
	}

	if ok, reason := keyboardProbe(); ok {
		pass("Keyboard: %s", reason)
	} else {
		fail("Keyboard: %s", reason)
	}

	if clipboardProbe() {
		pass("Clipboard: available")
	} else {
		fail("Clipboard: no clipboard helper found (install xclip, xsel or wl-clipboard)")
	}

	if tool, err := injectorProbe(s.Injector); err == nil {
		pass("Paste injector: %s", tool)
	} else {
		fail("Paste injector: %v", err)
	}

	db := storage.NewStorage(s.DataDir)
	if err := db.Init(); err != nil {
		fail("Audit log: %v", err)
	} else {
		pass("Audit log: %s", db.Path())
	}
	db.Close()

	return storeErr
}

func verifyStore(s config.Settings, pass, fail func(string, ...any)) error {
	st, err := store.Open(s.DataDir, store.Options{})
	if err != nil {
		fail("Store: %v", err)
		return err
	}
	defer st.Close()

	snap, err := st.Load()
	switch {
	case errors.Is(err, store.ErrStoreMissing):
		pass("Store: not created yet (first 'run' or 'add' creates it)")
		return nil
	case err != nil:
		fail("Store: %v", err)
		return err
	}

	pass("Store: %s (%d expansions)", st.Path(), len(snap.Expansions))
	if err := snap.Config.Validate(); err != nil {
		fail("Configuration: %v", err)
		return err
	}
	pass("Configuration: trigger %s, security level %d", snap.Config.TriggerCombo, snap.Config.SecurityLevel)
	return nil
}
