// Package policy decides whether a trigger activation may proceed in the
// current foreground application. It performs no I/O.
package policy

import (
	"github.com/bobersnip/TextShortcutter/internal/config"
)

// ConfirmationLevel is the lowest security level at which a selected
// expansion needs an explicit confirmation before it is pasted.
const ConfirmationLevel = 8

// AuditDetail is how much of an activation may be recorded.
type AuditDetail int

const (
	// DetailFull records the application and the shortcut.
	DetailFull AuditDetail = iota
	// DetailCountsOnly records the outcome only.
	DetailCountsOnly
)

func (d AuditDetail) String() string {
	if d == DetailCountsOnly {
		return "counts-only"
	}
	return "full"
}

// Reason explains a denial.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonBlocked    Reason = "app is on the block list"
	ReasonNotAllowed Reason = "app is not on the allow list"
)

// Decision is the result of evaluating one activation.
type Decision struct {
	Permitted            bool
	RequiresConfirmation bool
	Detail               AuditDetail
	Reason               Reason
}

// Evaluate checks the app filter, then the security level, then privacy
// mode. An empty app identifier is never listed.
func Evaluate(app config.AppID, cfg config.Configuration) Decision {
	d := Decision{Permitted: true, Detail: DetailFull}
	if cfg.PrivacyMode {
		d.Detail = DetailCountsOnly
	}

	listed := app != "" && cfg.AppFilter.Contains(app)
	switch cfg.AppFilter.Mode {
	case config.FilterAllow:
		if !listed {
			d.Permitted, d.Reason = false, ReasonNotAllowed
			return d
		}
	default:
		if listed {
			d.Permitted, d.Reason = false, ReasonBlocked
			return d
		}
	}

	d.RequiresConfirmation = cfg.SecurityLevel >= ConfirmationLevel
	return d
}

// Permit reports whether an activation in app is allowed at all.
func Permit(app config.AppID, cfg config.Configuration) bool {
	return Evaluate(app, cfg).Permitted
}
