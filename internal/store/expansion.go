package store

import (
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bobersnip/TextShortcutter/internal/config"
)

// MaxShortcutLen bounds shortcut length in runes.
const MaxShortcutLen = 64

// Expansion maps a short name to the text it expands to. UseCount and
// LastUsedAt are its usage record.
type Expansion struct {
	ID          string    `json:"id"`
	Shortcut    string    `json:"shortcut"`
	Body        string    `json:"body"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	UseCount    int64     `json:"use_count"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at,omitzero"`
}

// Patch holds the fields of an edit; nil fields are left unchanged.
type Patch struct {
	Shortcut    *string
	Body        *string
	Description *string
	Enabled     *bool
}

// NormalizeShortcut trims and lowercases a shortcut and checks its shape.
func NormalizeShortcut(s string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	switch {
	case n == "":
		return "", invalid("shortcut is empty")
	case strings.ContainsFunc(n, unicode.IsSpace):
		return "", invalid("shortcut %q contains whitespace", n)
	case utf8.RuneCountInString(n) > MaxShortcutLen:
		return "", invalid("shortcut is longer than %d characters", MaxShortcutLen)
	}
	return n, nil
}

func checkBody(body string, cfg config.Configuration) error {
	if body == "" && !cfg.AllowEmptyBody {
		return invalid("expansion text is empty (enable allow_empty_body to permit this)")
	}
	return nil
}

// state is the authoritative in-memory content of the store.
type state struct {
	cfg  config.Configuration
	exps map[string]Expansion
}

func (st state) clone() state {
	return state{cfg: st.cfg.Clone(), exps: maps.Clone(st.exps)}
}

func (st state) byShortcut() map[string]string {
	idx := make(map[string]string, len(st.exps))
	for id, e := range st.exps {
		idx[e.Shortcut] = id
	}
	return idx
}

func (st state) sorted() []Expansion {
	out := slices.Collect(maps.Values(st.exps))
	slices.SortFunc(out, func(a, b Expansion) int { return strings.Compare(a.Shortcut, b.Shortcut) })
	return out
}

// validate checks cross-record invariants after a load or import.
func (st state) validate() error {
	if err := st.cfg.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(st.exps))
	for id, e := range st.exps {
		if id != e.ID || id == "" {
			return invalid("expansion id mismatch for %q", e.Shortcut)
		}
		n, err := NormalizeShortcut(e.Shortcut)
		if err != nil {
			return err
		}
		if n != e.Shortcut {
			return invalid("shortcut %q is not normalized", e.Shortcut)
		}
		if seen[n] {
			return invalid("%v: %s", ErrDuplicateShortcut, n)
		}
		seen[n] = true
		if err := checkBody(e.Body, st.cfg); err != nil {
			return err
		}
		if e.UseCount < 0 {
			return invalid("negative use count for %q", e.Shortcut)
		}
	}
	if len(st.exps) > st.cfg.MaxExpansions {
		return ErrLimitReached
	}
	return nil
}

// Snapshot is an immutable copy of the store content.
type Snapshot struct {
	Config     config.Configuration
	Expansions []Expansion // sorted by shortcut
}
