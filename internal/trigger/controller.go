/*
Package trigger runs the activation state machine.

	Idle ──trigger, permitted──▶ AwaitingSelection ──selected──▶ Pasting
	 ▲                                │                            │
	 └──────cancel / trigger again────┘◀───────────always──────────┘

One activation is in flight at a time. The popup and the paste run on helper
goroutines; their results come back to the Run loop tagged with the
activation's sequence number, and results of an activation that was already
abandoned are discarded.
*/
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/audit"
	"github.com/bobersnip/TextShortcutter/internal/clipboard"
	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/desktop"
	"github.com/bobersnip/TextShortcutter/internal/hotkey"
	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/policy"
	"github.com/bobersnip/TextShortcutter/internal/storage"
	"github.com/bobersnip/TextShortcutter/internal/store"
	"github.com/bobersnip/TextShortcutter/internal/ui"
)

// State of the controller.
type State int32

const (
	Idle State = iota
	AwaitingSelection
	Pasting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSelection:
		return "awaiting-selection"
	case Pasting:
		return "pasting"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrSecurityDenied marks activations refused by the policy. It is logged
// and audited, never shown.
var ErrSecurityDenied = errors.New("activation denied by security policy")

// ProbeTimeout bounds the foreground-window lookup.
const ProbeTimeout = 2 * time.Second

// ConfigSource supplies the live configuration.
type ConfigSource interface {
	Config() config.Configuration
}

// Expansions is the read side of the expansion index.
type Expansions interface {
	Listing(query string) []store.Expansion
	Get(id string) (store.Expansion, bool)
}

// Prober finds the foreground window.
type Prober interface {
	Foreground(ctx context.Context) (desktop.Window, error)
}

// Paster runs the clipboard paste sequence.
type Paster interface {
	Paste(ctx context.Context, text string, target desktop.Window) (clipboard.Result, error)
}

// UsageRecorder counts uses.
type UsageRecorder interface {
	RecordUse(id string) error
}

// Auditor records outcomes.
type Auditor interface {
	Track(e audit.Event, detail policy.AuditDetail)
}

// Deps are the controller's collaborators. Auditor may be nil.
type Deps struct {
	Config  ConfigSource
	Index   Expansions
	Probe   Prober
	UI      ui.Boundary
	Paster  Paster
	Usage   UsageRecorder
	Auditor Auditor
}

type selectionResult struct {
	seq       uint64
	exp       store.Expansion
	cancelled bool
	declined  bool
	err       error
}

type pasteResult struct {
	seq uint64
	exp store.Expansion
	res clipboard.Result
	err error
}

// activation is the in-flight activation, owned by the Run goroutine.
type activation struct {
	seq      uint64
	window   desktop.Window
	decision policy.Decision
	cancel   context.CancelFunc
}

// Controller is the trigger state machine.
type Controller struct {
	deps Deps

	state        atomic.Int32
	onTransition func(from, to State)

	seq     uint64
	current *activation

	selections chan selectionResult
	pastes     chan pasteResult
	done       chan struct{}
	wg         sync.WaitGroup
}

// New returns an idle controller.
func New(deps Deps) *Controller {
	return &Controller{
		deps:       deps,
		selections: make(chan selectionResult, 4),
		pastes:     make(chan pasteResult, 4),
		done:       make(chan struct{}),
	}
}

// OnTransition installs a hook called on the Run goroutine for every state
// change. Set it before Run.
func (c *Controller) OnTransition(fn func(from, to State)) {
	c.onTransition = fn
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(to State) {
	from := State(c.state.Swap(int32(to)))
	if from == to {
		return
	}
	logging.Debugf("trigger %s -> %s", from, to)
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
}

// Run consumes activations until ctx is done. It returns after helper
// goroutines have finished. A controller runs once.
func (c *Controller) Run(ctx context.Context, activations <-chan hotkey.Activation) error {
	defer func() {
		close(c.done)
		c.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			if c.current != nil {
				c.current.cancel()
				c.current = nil
			}
			c.setState(Idle)
			return nil

		case _, ok := <-activations:
			if !ok {
				activations = nil
				continue
			}
			c.onTrigger(ctx)

		case r := <-c.selections:
			if c.current == nil || r.seq != c.current.seq {
				continue
			}
			c.onSelection(ctx, r)

		case r := <-c.pastes:
			if c.current == nil || r.seq != c.current.seq {
				continue
			}
			c.onPasted(r)
		}
	}
}

func (c *Controller) onTrigger(ctx context.Context) {
	switch c.State() {
	case AwaitingSelection:
		// A second trigger dismisses the popup.
		c.finish(c.current.decision, storage.OutcomeCancelled, "", ui.KindInfo, "")
		return
	case Pasting:
		logging.Debugf("trigger ignored while pasting")
		return
	}

	cfg := c.deps.Config.Config()

	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	window, err := c.deps.Probe.Foreground(probeCtx)
	cancel()
	if err != nil {
		logging.Debugf("foreground window unknown: %v", err)
	}

	decision := policy.Evaluate(window.App, cfg)
	if !decision.Permitted {
		logging.Debugf("%v: %s", ErrSecurityDenied, decision.Reason)
		c.record(decision, storage.OutcomeDenied, string(window.App), "")
		return
	}

	c.seq++
	selCtx, selCancel := context.WithCancel(ctx)
	c.current = &activation{seq: c.seq, window: window, decision: decision, cancel: selCancel}
	c.setState(AwaitingSelection)

	seq := c.seq
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		r := c.awaitSelection(selCtx, seq, decision)
		select {
		case c.selections <- r:
		case <-c.done:
		}
	}()
}

// awaitSelection shows the popup and, when required, the confirmation.
func (c *Controller) awaitSelection(ctx context.Context, seq uint64, decision policy.Decision) selectionResult {
	r := selectionResult{seq: seq}

	sel, err := c.deps.UI.RenderSelection(ctx, c.deps.Index.Listing(""))
	switch {
	case err != nil:
		r.err = err
		return r
	case sel.Cancelled || ctx.Err() != nil:
		r.cancelled = true
		return r
	}

	e, ok := c.deps.Index.Get(sel.ID)
	if !ok {
		r.err = fmt.Errorf("%w: %s", store.ErrNotFound, sel.ID)
		return r
	}
	r.exp = e

	if decision.RequiresConfirmation {
		yes, err := c.deps.UI.Confirm(ctx, e)
		if err != nil {
			r.err = err
			return r
		}
		if !yes || ctx.Err() != nil {
			r.declined = true
		}
	}
	return r
}

func (c *Controller) onSelection(ctx context.Context, r selectionResult) {
	cur := c.current
	switch {
	case r.err != nil:
		c.finish(cur.decision, storage.OutcomeSelectionFailed, "", ui.KindError, fmt.Sprintf("Selection failed: %v", r.err))
		return
	case r.cancelled:
		c.finish(cur.decision, storage.OutcomeCancelled, "", ui.KindInfo, "")
		return
	case r.declined:
		c.finish(cur.decision, storage.OutcomeUnconfirmed, r.exp.Shortcut, ui.KindInfo, "")
		return
	}

	c.setState(Pasting)

	seq, window, exp := cur.seq, cur.window, r.exp
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.deps.Paster.Paste(ctx, exp.Body, window)
		select {
		case c.pastes <- pasteResult{seq: seq, exp: exp, res: res, err: err}:
		case <-c.done:
		}
	}()
}

func (c *Controller) onPasted(r pasteResult) {
	cur := c.current

	if r.res.Pasted {
		if err := c.deps.Usage.RecordUse(r.exp.ID); err != nil {
			logging.Warnf("could not record use: %v", err)
		}
	}

	switch {
	case clipboard.IsKind(r.err, clipboard.PasteInjectionFailed):
		c.finish(cur.decision, storage.OutcomePasteFailed, r.exp.Shortcut, ui.KindWarning,
			fmt.Sprintf("Paste failed: %v. Your clipboard was restored.", errors.Unwrap(r.err)))
	case r.err != nil:
		c.finish(cur.decision, storage.OutcomePasteFailed, r.exp.Shortcut, ui.KindWarning,
			fmt.Sprintf("Paste failed: %v", r.err))
	case r.res.RestoreErr != nil:
		c.finish(cur.decision, storage.OutcomeRestoreFailed, r.exp.Shortcut, ui.KindWarning,
			"Pasted, but your previous clipboard could not be restored.")
	default:
		c.finish(cur.decision, storage.OutcomePasted, r.exp.Shortcut, ui.KindInfo, "")
	}
}

// finish ends the current activation and returns to Idle.
func (c *Controller) finish(d policy.Decision, outcome storage.Outcome, shortcut string, kind ui.Kind, message string) {
	cur := c.current
	c.current = nil
	if cur != nil {
		cur.cancel()
	}

	var app string
	if cur != nil {
		app = string(cur.window.App)
	}
	c.record(d, outcome, app, shortcut)

	if message != "" {
		c.deps.UI.Notify(kind, message)
	}
	c.setState(Idle)
}

func (c *Controller) record(d policy.Decision, outcome storage.Outcome, app, shortcut string) {
	logging.Activation(d.Detail == policy.DetailCountsOnly, string(outcome), app, shortcut)
	if c.deps.Auditor != nil {
		c.deps.Auditor.Track(audit.Event{Outcome: outcome, App: app, Shortcut: shortcut}, d.Detail)
	}
}
