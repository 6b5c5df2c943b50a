package hotkey

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/keys"
	"github.com/bobersnip/TextShortcutter/internal/logging"
)

// ErrNotAvailable is returned when no keyboard source works on this system.
var ErrNotAvailable = errors.New("global key events are not available on this system")

// Source delivers key transitions until ctx is done.
type Source interface {
	Events(ctx context.Context) (<-chan KeyEvent, error)
	// Available reports whether the source can run, with a reason.
	Available() (bool, string)
}

// Activation is one detected trigger.
type Activation struct {
	At time.Time
}

// Listener drives a Detector from a Source on a single goroutine.
type Listener struct {
	src Source
	out chan Activation

	mu  sync.Mutex
	det *Detector

	dropped atomic.Int64
	now     func() time.Time
}

// NewListener returns a listener for combo.
func NewListener(src Source, combo keys.Combo) *Listener {
	return &Listener{
		src: src,
		out: make(chan Activation),
		det: NewDetector(combo),
		now: time.Now,
	}
}

// Activations is read by exactly one consumer. An activation the consumer is
// not ready to receive is dropped.
func (l *Listener) Activations() <-chan Activation { return l.out }

// SetCombo switches to a new combination and forgets the current key state.
func (l *Listener) SetCombo(c keys.Combo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.det.Combo().Equal(c) {
		return
	}
	l.det = NewDetector(c)
	logging.Infof("trigger combination set to %s", c)
}

// Combo returns the active combination.
func (l *Listener) Combo() keys.Combo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.det.Combo()
}

// Dropped counts activations nobody was waiting for.
func (l *Listener) Dropped() int64 { return l.dropped.Load() }

// Run blocks until ctx is done or the source ends.
func (l *Listener) Run(ctx context.Context) error {
	events, err := l.src.Events(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !l.observe(ev) {
				continue
			}
			select {
			case l.out <- Activation{At: l.now()}:
			default:
				l.dropped.Add(1)
				logging.Debugf("trigger ignored: controller busy")
			}
		}
	}
}

func (l *Listener) observe(ev KeyEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.det.Observe(ev)
}
