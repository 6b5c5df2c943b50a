/*
Package config defines the live Configuration record and runtime settings.

The Configuration record lives encrypted inside the secure store, next to the
expansions. Exactly one instance is live per installation; the store owns it
and hands out copies.

Record layout (JSON, before encryption):

	{
	  "trigger_combo": "ctrl+space",
	  "security_level": 5,
	  "privacy_mode": false,
	  "app_filter": {"mode": "block", "apps": ["banking.exe"]},
	  "allow_empty_body": false,
	  "max_expansions": 1000
	}

Runtime settings (data directory, logging, paste timings) are separate and
read from settings.yaml, the environment and flags; see settings.go.
*/
package config

import (
	"path"
	"slices"
	"strings"

	"github.com/bobersnip/TextShortcutter/internal/keys"
)

const (
	// DefaultTrigger is the combo installed on first run.
	DefaultTrigger = "ctrl+space"

	MinSecurityLevel     = 1
	MaxSecurityLevel     = 10
	DefaultSecurityLevel = 5

	DefaultMaxExpansions = 1000
	maxExpansionsCeiling = 100000
)

// AppID is a canonical application identifier: the lowercased base name of
// the foreground program, e.g. "banking.exe" or "firefox".
type AppID string

// CanonicalApp normalizes raw names and paths into an AppID.
func CanonicalApp(raw string) AppID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.TrimRight(s, "/")
	return AppID(strings.ToLower(path.Base(s)))
}

// FilterMode selects how AppFilter.Apps is interpreted.
type FilterMode string

const (
	FilterAllow FilterMode = "allow"
	FilterBlock FilterMode = "block"
)

// AppFilter is an allow or block list of applications.
type AppFilter struct {
	Mode FilterMode `json:"mode"`
	Apps []AppID    `json:"apps"`
}

// Contains reports whether app is listed.
func (f AppFilter) Contains(app AppID) bool {
	return slices.Contains(f.Apps, app)
}

// Add inserts app, keeping the list sorted and unique.
func (f *AppFilter) Add(app AppID) bool {
	if app == "" || f.Contains(app) {
		return false
	}
	f.Apps = append(f.Apps, app)
	slices.Sort(f.Apps)
	return true
}

// Remove deletes app from the list.
func (f *AppFilter) Remove(app AppID) bool {
	i := slices.Index(f.Apps, app)
	if i < 0 {
		return false
	}
	f.Apps = slices.Delete(f.Apps, i, i+1)
	return true
}

// Configuration is the single live configuration record.
type Configuration struct {
	TriggerCombo   keys.Combo `json:"trigger_combo"`
	SecurityLevel  int        `json:"security_level"`
	PrivacyMode    bool       `json:"privacy_mode"`
	AppFilter      AppFilter  `json:"app_filter"`
	AllowEmptyBody bool       `json:"allow_empty_body"`
	MaxExpansions  int        `json:"max_expansions"`
}

// Default returns the first-run configuration.
func Default() Configuration {
	return Configuration{
		TriggerCombo:  keys.MustParseCombo(DefaultTrigger),
		SecurityLevel: DefaultSecurityLevel,
		AppFilter:     AppFilter{Mode: FilterBlock, Apps: []AppID{}},
		MaxExpansions: DefaultMaxExpansions,
	}
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	out := c
	out.TriggerCombo = slices.Clone(c.TriggerCombo)
	out.AppFilter.Apps = slices.Clone(c.AppFilter.Apps)
	if out.AppFilter.Apps == nil {
		out.AppFilter.Apps = []AppID{}
	}
	return out
}
