// Package app assembles the long-running expansion service from its parts:
// the encrypted store, the search index, the hotkey listener, the trigger
// controller and the clipboard bridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bobersnip/TextShortcutter/internal/audit"
	"github.com/bobersnip/TextShortcutter/internal/clipboard"
	"github.com/bobersnip/TextShortcutter/internal/config"
	"github.com/bobersnip/TextShortcutter/internal/desktop"
	"github.com/bobersnip/TextShortcutter/internal/hotkey"
	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/search"
	"github.com/bobersnip/TextShortcutter/internal/storage"
	"github.com/bobersnip/TextShortcutter/internal/store"
	"github.com/bobersnip/TextShortcutter/internal/trigger"
	"github.com/bobersnip/TextShortcutter/internal/ui"
)

// Deps are the platform collaborators. Zero fields are filled by
// SystemDeps.
type Deps struct {
	Source    hotkey.Source
	Clipboard clipboard.Clipboard
	Injector  clipboard.Injector
	Probe     trigger.Prober
	Notifier  ui.Notifier
	UI        ui.Boundary
	Audit     storage.Storage
	In        io.Reader
	Out       io.Writer
}

// SystemDeps returns the real desktop integrations for s.
func SystemDeps(s config.Settings) Deps {
	return Deps{}.withDefaults(s)
}

func (d Deps) withDefaults(s config.Settings) Deps {
	if d.Source == nil {
		d.Source = hotkey.NewSystemSource()
	}
	if d.Clipboard == nil {
		d.Clipboard = clipboard.System{}
	}
	if d.Injector == nil {
		d.Injector = desktop.NewExecInjector(s.Injector, desktop.DefaultTimeout)
	}
	if d.Probe == nil {
		d.Probe = desktop.NewProbe(trigger.ProbeTimeout)
	}
	if d.Notifier == nil {
		d.Notifier = ui.NewNotifier(s.Notifications)
	}
	if d.Audit == nil {
		d.Audit = storage.NewStorage(s.DataDir)
	}
	if d.In == nil {
		d.In = os.Stdin
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	return d
}

// OpenStore opens and loads the store under s.DataDir, creating the default
// store on first run. A corrupt store is returned as an error wrapping
// store.ErrStoreCorrupt and is left untouched on disk.
func OpenStore(s config.Settings, opts store.Options) (*store.Store, store.Snapshot, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = s.PersistDebounce
	}

	st, err := store.Open(s.DataDir, opts)
	if err != nil {
		return nil, store.Snapshot{}, err
	}

	snap, err := st.Load()
	if errors.Is(err, store.ErrStoreMissing) {
		logging.Infof("no store found in %s, creating defaults", s.DataDir)
		snap, err = st.InitDefaults()
	}
	if err != nil {
		st.Close()
		return nil, store.Snapshot{}, err
	}
	return st, snap, nil
}

// App is the running service.
type App struct {
	Settings   config.Settings
	Store      *store.Store
	Index      *search.Index
	Listener   *hotkey.Listener
	Controller *trigger.Controller
	Bridge     *clipboard.Bridge
	Tracker    *audit.Tracker

	source   hotkey.Source
	notifier ui.Notifier
	audit    storage.Storage

	closeOnce sync.Once
	closeErr  error
}

// New loads the store and wires every component. Nothing runs until Run.
func New(s config.Settings, deps Deps) (*App, error) {
	deps = deps.withDefaults(s)

	a := &App{
		Settings: s,
		source:   deps.Source,
		notifier: deps.Notifier,
		audit:    deps.Audit,
	}

	st, snap, err := OpenStore(s, store.Options{
		Debounce: s.PersistDebounce,
		OnPersistError: func(err error) {
			logging.Errorf("failed to save usage counts: %v", err)
			a.notifier.Notify(ui.KindError, "Usage counts could not be saved.")
		},
	})
	if err != nil {
		return nil, err
	}
	a.Store = st

	a.Index = search.NewIndex(snap.Expansions)
	st.Subscribe(a.Index.Sync)

	a.Listener = hotkey.NewListener(deps.Source, snap.Config.TriggerCombo)
	st.Subscribe(func(snap store.Snapshot) {
		if !a.Listener.Combo().Equal(snap.Config.TriggerCombo) {
			logging.Infof("trigger combo changed to %s", snap.Config.TriggerCombo)
			a.Listener.SetCombo(snap.Config.TriggerCombo)
		}
	})

	a.Tracker = audit.NewTracker(deps.Audit)
	if a.Tracker.IsEnabled() && s.AuditRetention > 0 {
		if n, err := deps.Audit.Cleanup(s.AuditRetention); err != nil {
			logging.Warnf("audit cleanup failed: %v", err)
		} else if n > 0 {
			logging.Debugf("removed %d expired audit entries", n)
		}
	}

	boundary := deps.UI
	if boundary == nil {
		boundary = ui.NewPicker(a.Index, deps.Notifier, deps.In, deps.Out)
	}

	a.Bridge = clipboard.NewBridge(deps.Clipboard, deps.Injector, s.RestoreDelay, s.RestoreTimeout)

	a.Controller = trigger.New(trigger.Deps{
		Config:  st,
		Index:   a.Index,
		Probe:   deps.Probe,
		UI:      boundary,
		Paster:  a.Bridge,
		Usage:   st,
		Auditor: a.Tracker,
	})
	a.Controller.OnTransition(func(from, to trigger.State) {
		logging.Debugf("controller %s -> %s", from, to)
	})

	return a, nil
}

// Run starts the listener, the controller and the store watcher, and blocks
// until ctx is done or the listener fails. The app is closed on return.
func (a *App) Run(ctx context.Context) error {
	if ok, reason := a.source.Available(); !ok {
		a.Close()
		return fmt.Errorf("%w: %s", hotkey.ErrNotAvailable, reason)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := a.Listener.Run(ctx); err != nil {
			errChan <- fmt.Errorf("hotkey listener: %w", err)
		}
		cancel()
	}()
	go func() {
		defer wg.Done()
		a.Controller.Run(ctx, a.Listener.Activations())
	}()
	go func() {
		defer wg.Done()
		if err := a.Store.Watch(ctx); err != nil {
			logging.Warnf("store changes from other processes will not be picked up: %v", err)
		}
	}()

	logging.Infof("listening for %s", a.Listener.Combo())

	<-ctx.Done()
	wg.Wait()

	var runErr error
	select {
	case runErr = <-errChan:
	default:
	}

	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close flushes pending usage counts and releases every resource. It is safe
// to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.Tracker.Stop()
		if err := a.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audit log: %w", err))
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
