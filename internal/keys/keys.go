/*
Package keys defines logical key identifiers and trigger combinations.

Raw key names coming from configuration or the command line are normalized
here, once, into a Combo: an ordered set of logical keys with at least one
modifier. Nothing past this package handles key names as free-form strings.
*/
package keys

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Key is a logical key. Left and right variants of a modifier share one Key.
type Key string

// Modifiers, in canonical order.
const (
	Ctrl  Key = "ctrl"
	Shift Key = "shift"
	Alt   Key = "alt"
	Super Key = "super"
)

// Named keys used by defaults and tests.
const (
	Space Key = "space"
	Enter Key = "enter"
	Esc   Key = "esc"
	Tab   Key = "tab"
)

var modifierOrder = []Key{Ctrl, Shift, Alt, Super}

// IsModifier reports whether k is one of ctrl, shift, alt or super.
func (k Key) IsModifier() bool {
	return slices.Contains(modifierOrder, k)
}

var (
	ErrEmptyCombo   = errors.New("trigger combination is empty")
	ErrNoModifier   = errors.New("trigger combination must include a modifier (ctrl, shift, alt or super)")
	ErrDuplicateKey = errors.New("trigger combination repeats a key")
)

// UnknownKeyError reports a key name that does not map to any logical key.
type UnknownKeyError struct {
	Name string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %q", e.Name)
}

var aliases = map[string]Key{
	"control":  Ctrl,
	"ctl":      Ctrl,
	"cmd":      Super,
	"command":  Super,
	"meta":     Super,
	"win":      Super,
	"windows":  Super,
	"option":   Alt,
	"opt":      Alt,
	"altgr":    Alt,
	"return":   Enter,
	"escape":   Esc,
	"spacebar": Space,
	"del":      "delete",
	"ins":      "insert",
	"pgup":     "pageup",
	"pgdn":     "pagedown",
}

// Lookup normalizes a single key name.
func Lookup(name string) (Key, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", &UnknownKeyError{Name: name}
	}
	if k, ok := aliases[n]; ok {
		return k, nil
	}
	k := Key(n)
	if _, ok := known[k]; !ok {
		return "", &UnknownKeyError{Name: name}
	}
	return k, nil
}

// Combo is an ordered set of logical keys: modifiers first in fixed order,
// then the remaining keys sorted by name.
type Combo []Key

// ParseCombo parses strings like "Ctrl+Space" or "super + shift + v".
func ParseCombo(s string) (Combo, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyCombo
	}

	seen := make(map[Key]bool)
	var c Combo
	for _, part := range strings.Split(s, "+") {
		k, err := Lookup(part)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, k)
		}
		seen[k] = true
		c = append(c, k)
	}

	c.sort()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustParseCombo is ParseCombo for compile-time constants.
func MustParseCombo(s string) Combo {
	c, err := ParseCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks the combo is non-empty and carries a modifier.
func (c Combo) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCombo
	}
	for _, k := range c {
		if k.IsModifier() {
			return nil
		}
	}
	return ErrNoModifier
}

func (c Combo) sort() {
	rank := func(k Key) int {
		if i := slices.Index(modifierOrder, k); i >= 0 {
			return i
		}
		return len(modifierOrder)
	}
	slices.SortFunc(c, func(a, b Key) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(string(a), string(b))
	})
}

// Contains reports whether k is part of the combo.
func (c Combo) Contains(k Key) bool {
	return slices.Contains(c, k)
}

// Equal compares two canonical combos.
func (c Combo) Equal(o Combo) bool {
	return slices.Equal(c, o)
}

func (c Combo) String() string {
	parts := make([]string, len(c))
	for i, k := range c {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}

// MarshalText renders the canonical form.
func (c Combo) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses and normalizes.
func (c *Combo) UnmarshalText(b []byte) error {
	parsed, err := ParseCombo(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
