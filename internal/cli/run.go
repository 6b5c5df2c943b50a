package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/app"
	"github.com/bobersnip/TextShortcutter/internal/logging"
)

// NewRunCmd creates the 'run' command that listens for the trigger.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for the trigger and expand snippets",
		Long: `Load the encrypted store and listen for the trigger combination.

On each trigger a picker lists your expansions ranked by shortcut match and
use count. The chosen text is pasted into the application that had focus, and
the previous clipboard content is put back afterwards.

Reading the keyboard needs access to /dev/input (the 'input' group on most
distributions). Run 'textshortcutter verify' to check the setup.`,
		Example: `  textshortcutter run
  textshortcutter run --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd)
		},
	}

	return cmd
}

// runService starts the service and shuts it down on SIGINT/SIGTERM/SIGQUIT.
func runService(cmd *cobra.Command) error {
	s, err := settingsFrom(cmd)
	if err != nil {
		return err
	}

	a, err := app.New(s, app.SystemDeps(s))
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		logging.Infof("received %v, shutting down", sig)
		cancel()
		if err := <-errChan; err != nil {
			return err
		}
		logging.Infof("shutdown complete")
		return nil

	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("service stopped: %w", err)
		}
		return nil
	}
}
