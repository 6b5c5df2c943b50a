package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/storage"
)

// NewAuditCmd creates the audit command group.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect or clear the activation log",
		Long: `Every trigger is recorded in a local SQLite log (audit.db in the data
directory) with its outcome: pasted, cancelled, denied by the app filter, and
so on. In privacy mode only the outcome and time are kept.

Commands:
  status  Outcome counts and the latest activations
  clear   Delete the log`,
	}

	cmd.AddCommand(newAuditStatusCmd())
	cmd.AddCommand(newAuditClearCmd())

	return cmd
}

// openAudit opens the audit database in the data directory.
func openAudit(cmd *cobra.Command) (*storage.SQLiteStorage, error) {
	s, err := settingsFrom(cmd)
	if err != nil {
		return nil, err
	}
	db := storage.NewStorage(s.DataDir)
	if err := db.Init(); err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return db, nil
}

func newAuditStatusCmd() *cobra.Command {
	var (
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show outcome counts and recent activations",
		Example: `  textshortcutter audit status
  textshortcutter audit status --since 24h --recent 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openAudit(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := db.Counts(time.Now().Add(-since))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Activation Log")
			fmt.Fprintln(out, "==============")
			fmt.Fprintf(out, "File:   %s\n", db.Path())
			fmt.Fprintf(out, "Window: last %s\n\n", since)

			var total int64
			for _, o := range storage.Outcomes {
				fmt.Fprintf(out, "  %-15s %d\n", o, counts[o])
				total += counts[o]
			}
			fmt.Fprintf(out, "  %-15s %d\n", "total", total)

			if recent <= 0 {
				return nil
			}
			rows, err := db.Recent(recent)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  TIME\tOUTCOME\tAPP\tSHORTCUT")
			for _, a := range rows {
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
					a.Timestamp.Local().Format("2006-01-02 15:04:05"), a.Outcome, dash(a.App), dash(a.Shortcut))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "Count activations newer than this")
	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "Number of recent activations to list")

	return cmd
}

func newAuditClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every logged activation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "This will delete the activation log. Continue?", false) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			db, err := openAudit(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Activation log cleared\n", okMark)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
