package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bobersnip/TextShortcutter/internal/app"
	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("✗")
	dimStyle = lipgloss.NewStyle().Faint(true)
)

// settingsFrom returns the settings loaded by the root command, loading
// them directly when cmd runs outside the tree.
func settingsFrom(cmd *cobra.Command) (config.Settings, error) {
	if ctx := cmd.Context(); ctx != nil {
		if s, ok := ctx.Value(settingsKey{}).(config.Settings); ok {
			return s, nil
		}
	}
	return config.LoadSettings(cmd, "")
}

// openStore opens the store for a one-shot command. Callers must Close it so
// pending writes land.
func openStore(cmd *cobra.Command) (*store.Store, store.Snapshot, error) {
	s, err := settingsFrom(cmd)
	if err != nil {
		return nil, store.Snapshot{}, err
	}
	st, snap, err := app.OpenStore(s, store.Options{Debounce: s.PersistDebounce})
	if err != nil {
		return nil, store.Snapshot{}, fmt.Errorf("failed to open store: %w", err)
	}
	return st, snap, nil
}

// withStore runs fn against an open store and closes it afterwards.
func withStore(cmd *cobra.Command, fn func(st *store.Store, snap store.Snapshot) error) error {
	st, snap, err := openStore(cmd)
	if err != nil {
		return err
	}
	fnErr := fn(st, snap)
	if err := st.Close(); err != nil && fnErr == nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return fnErr
}

// lookup resolves ref as a shortcut first and as an id second.
func lookup(st *store.Store, ref string) (store.Expansion, error) {
	e, err := st.FindShortcut(ref)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrInvalidExpansion) {
		return store.Expansion{}, err
	}
	if e, idErr := st.Get(ref); idErr == nil {
		return e, nil
	}
	return store.Expansion{}, fmt.Errorf("%w: %s", store.ErrNotFound, ref)
}

// confirm asks a yes/no question on cmd's streams. Empty input takes def.
func confirm(cmd *cobra.Command, question string, def bool) bool {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s ", question, hint)

	reader := bufio.NewReader(cmd.InOrStdin())
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return def
	}
	return response == "y" || response == "yes"
}

// readMultilineInput reads lines until an empty line or EOF.
func readMultilineInput(r io.Reader) string {
	reader := bufio.NewReader(r)
	var lines []string

	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}

	return strings.Join(lines, "\n")
}

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// oneLine shortens body for tables.
func oneLine(body string, width int) string {
	body = strings.Join(strings.Fields(body), " ")
	r := []rune(body)
	if len(r) <= width {
		return body
	}
	return string(r[:width-1]) + "…"
}
