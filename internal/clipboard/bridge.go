/*
Package clipboard pastes text into the focused application without losing the
user's clipboard.

A paste runs four steps: snapshot the clipboard, write the expansion, send the
paste keystroke, restore the snapshot. The restore runs on every exit path
once a snapshot was taken, including injection failure and cancellation.
*/
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/desktop"
	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/seal"
)

const (
	DefaultRestoreDelay   = 150 * time.Millisecond
	DefaultRestoreTimeout = time.Second
)

// Clipboard is read and written as text.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Injector synthesizes the paste keystroke into a window.
type Injector interface {
	SendPaste(ctx context.Context, target desktop.Window) error
}

// Kind classifies a PasteError.
type Kind string

const (
	PasteInjectionFailed Kind = "paste_injection_failed"
	RestoreFailed        Kind = "restore_failed"
	WriteFailed          Kind = "clipboard_write_failed"
	// ClipboardBusy means the restore of an earlier paste is still stuck in
	// the clipboard; nothing was written.
	ClipboardBusy Kind = "clipboard_busy"
)

// PasteError reports which step of a paste failed.
type PasteError struct {
	Kind Kind
	Err  error
}

func (e *PasteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PasteError) Unwrap() error { return e.Err }

// IsKind reports whether err is a PasteError of kind k.
func IsKind(err error, k Kind) bool {
	var pe *PasteError
	return errors.As(err, &pe) && pe.Kind == k
}

// ErrRestoreTimeout is wrapped when the clipboard does not accept the
// restore in time.
var ErrRestoreTimeout = errors.New("restore timed out")

// Result describes a finished paste.
type Result struct {
	// Pasted is true when the keystroke was delivered.
	Pasted bool
	// SnapshotUnavailable is set when the clipboard could not be read, so
	// nothing was restored.
	SnapshotUnavailable bool
	// Restored is true when the original content was written back.
	Restored bool
	// RestoreErr is the non-fatal restore failure, if any.
	RestoreErr error
}

// Bridge runs paste sequences one at a time.
type Bridge struct {
	cb       Clipboard
	injector Injector

	restoreDelay   time.Duration
	restoreTimeout time.Duration

	mu      sync.Mutex
	pending *pendingRestore
}

// pendingRestore is a restore write that outlived its paste. original is
// kept until the write is known to have landed.
type pendingRestore struct {
	done     <-chan error
	original []byte
}

// NewBridge returns a bridge. Zero durations select the defaults.
func NewBridge(cb Clipboard, injector Injector, restoreDelay, restoreTimeout time.Duration) *Bridge {
	if restoreDelay <= 0 {
		restoreDelay = DefaultRestoreDelay
	}
	if restoreTimeout <= 0 {
		restoreTimeout = DefaultRestoreTimeout
	}
	return &Bridge{
		cb:             cb,
		injector:       injector,
		restoreDelay:   restoreDelay,
		restoreTimeout: restoreTimeout,
	}
}

// Paste writes text to the clipboard, pastes it into target and restores the
// previous clipboard. An injection or write failure is returned as a
// *PasteError; a restore failure alone is reported in Result.RestoreErr with
// a nil error, since the text may already have been pasted.
func (b *Bridge) Paste(ctx context.Context, text string, target desktop.Window) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res Result

	original, carried, err := b.settle(ctx)
	if err != nil {
		return res, &PasteError{Kind: ClipboardBusy, Err: err}
	}
	if !carried {
		snap, err := b.cb.ReadText()
		if err != nil {
			logging.Debugf("clipboard unreadable, continuing without snapshot: %v", err)
			res.SnapshotUnavailable = true
		}
		original = []byte(snap)
	}
	// A restore still in flight takes over the snapshot.
	handedOff := false
	defer func() {
		if !handedOff {
			seal.Wipe(original)
		}
	}()

	if err := b.cb.WriteText(text); err != nil {
		// The clipboard may be partially written; put the original back.
		handedOff = b.restore(ctx, &res, original, false)
		return res, &PasteError{Kind: WriteFailed, Err: err}
	}

	var injectErr error
	if err := ctx.Err(); err != nil {
		injectErr = err
	} else {
		injectErr = b.injector.SendPaste(ctx, target)
	}
	res.Pasted = injectErr == nil

	// Give the target time to read the clipboard before it changes back.
	handedOff = b.restore(ctx, &res, original, res.Pasted)

	if injectErr != nil {
		return res, &PasteError{Kind: PasteInjectionFailed, Err: injectErr}
	}
	return res, nil
}

// settle waits for a restore left running by the previous paste. When that
// restore failed, the clipboard still holds the previous expansion, so the
// previous snapshot is returned to be restored this time.
func (b *Bridge) settle(ctx context.Context) ([]byte, bool, error) {
	p := b.pending
	if p == nil {
		return nil, false, nil
	}

	t := time.NewTimer(b.restoreTimeout)
	defer t.Stop()
	select {
	case err := <-p.done:
		b.pending = nil
		if err != nil {
			logging.Debugf("late clipboard restore failed: %v", err)
			return p.original, true, nil
		}
		seal.Wipe(p.original)
		return nil, false, nil
	case <-t.C:
		return nil, false, fmt.Errorf("previous %w", ErrRestoreTimeout)
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// restore writes original back. It reports whether the write outlived
// restoreTimeout, in which case b.pending owns original.
func (b *Bridge) restore(ctx context.Context, res *Result, original []byte, wait bool) bool {
	if res.SnapshotUnavailable {
		return false
	}

	if wait {
		t := time.NewTimer(b.restoreDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- b.cb.WriteText(string(original))
	}()

	t := time.NewTimer(b.restoreTimeout)
	defer t.Stop()
	select {
	case err := <-done:
		if err != nil {
			res.RestoreErr = &PasteError{Kind: RestoreFailed, Err: err}
			return false
		}
		res.Restored = true
		return false
	case <-t.C:
		res.RestoreErr = &PasteError{Kind: RestoreFailed, Err: ErrRestoreTimeout}
		b.pending = &pendingRestore{done: done, original: original}
		return true
	}
}
