package storage

import "time"

// Outcome is how an activation ended.
type Outcome string

const (
	OutcomeDenied          Outcome = "denied"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeUnconfirmed     Outcome = "unconfirmed"
	OutcomePasted          Outcome = "pasted"
	OutcomePasteFailed     Outcome = "paste_failed"
	OutcomeSelectionFailed Outcome = "selection_failed"
	OutcomeRestoreFailed   Outcome = "restore_failed"
)

// Outcomes lists every outcome in display order.
var Outcomes = []Outcome{
	OutcomePasted,
	OutcomeRestoreFailed,
	OutcomePasteFailed,
	OutcomeSelectionFailed,
	OutcomeCancelled,
	OutcomeUnconfirmed,
	OutcomeDenied,
}

// Activation is one row of the audit trail. App and Shortcut are empty for
// activations recorded in privacy mode.
type Activation struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   Outcome   `json:"outcome"`
	App       string    `json:"app,omitempty"`
	Shortcut  string    `json:"shortcut,omitempty"`
}
