/*
Package ui is the boundary between the trigger controller and the person at
the keyboard: the selection popup, the confirmation prompt and desktop
notifications.
*/
package ui

import (
	"context"

	"github.com/bobersnip/TextShortcutter/internal/store"
)

// Selection is the answer to a popup: an expansion id, or a cancellation.
type Selection struct {
	ID        string
	Cancelled bool
}

// Cancel is the cancelled selection.
var Cancel = Selection{Cancelled: true}

// Kind classifies a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notifier shows non-blocking messages.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Boundary is what the trigger controller needs from a UI.
type Boundary interface {
	// RenderSelection shows the ranked list and waits for a choice. It
	// returns when the user chooses, dismisses, or ctx is done.
	RenderSelection(ctx context.Context, ranked []store.Expansion) (Selection, error)

	// Confirm asks whether e may be pasted.
	Confirm(ctx context.Context, e store.Expansion) (bool, error)

	Notifier
}
