package config

import (
	"fmt"
	"slices"
)

// Validate checks every invariant of the record and canonicalizes the app
// list in place.
func (c *Configuration) Validate() error {
	if err := c.TriggerCombo.Validate(); err != nil {
		return &InvalidConfigError{
			Field:   "trigger_combo",
			Message: err.Error(),
			Hint:    "Use a combination such as ctrl+space or super+shift+v",
		}
	}

	if c.SecurityLevel < MinSecurityLevel || c.SecurityLevel > MaxSecurityLevel {
		return &InvalidConfigError{
			Field:   "security_level",
			Message: fmt.Sprintf("%d is outside %d-%d", c.SecurityLevel, MinSecurityLevel, MaxSecurityLevel),
		}
	}

	switch c.AppFilter.Mode {
	case FilterAllow, FilterBlock:
	default:
		return &InvalidConfigError{
			Field:   "app_filter.mode",
			Message: fmt.Sprintf("unknown mode %q", c.AppFilter.Mode),
			Hint:    "Mode must be 'allow' or 'block'",
		}
	}

	apps := make([]AppID, 0, len(c.AppFilter.Apps))
	for _, app := range c.AppFilter.Apps {
		id := CanonicalApp(string(app))
		if id == "" {
			return &InvalidConfigError{Field: "app_filter.apps", Message: "empty application identifier"}
		}
		apps = append(apps, id)
	}
	slices.Sort(apps)
	c.AppFilter.Apps = slices.Compact(apps)

	if c.MaxExpansions < 1 || c.MaxExpansions > maxExpansionsCeiling {
		return &InvalidConfigError{
			Field:   "max_expansions",
			Message: fmt.Sprintf("%d is outside 1-%d", c.MaxExpansions, maxExpansionsCeiling),
		}
	}

	return nil
}
