/*
Package audit records trigger activations in the background.

Track never blocks the trigger path: events go onto a bounded queue and a
worker writes them to storage in batches. In privacy mode the application
and shortcut are removed before the event is queued, so only counts reach
the disk.
*/
package audit

import (
	"sync"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/logging"
	"github.com/bobersnip/TextShortcutter/internal/policy"
	"github.com/bobersnip/TextShortcutter/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 256

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 16

	// flushInterval is how often pending events are written.
	flushInterval = 250 * time.Millisecond
)

// Event is one activation outcome.
type Event struct {
	At       time.Time
	Outcome  storage.Outcome
	App      string
	Shortcut string
}

// Strip removes what privacy mode must not record.
func (e Event) Strip(detail policy.AuditDetail) Event {
	if detail == policy.DetailCountsOnly {
		e.App, e.Shortcut = "", ""
	}
	return e
}

func (e Event) toStorage() storage.Activation {
	return storage.Activation{
		Timestamp: e.At,
		Outcome:   e.Outcome,
		App:       e.App,
		Shortcut:  e.Shortcut,
	}
}

// Tracker queues events and writes them in batches.
type Tracker struct {
	storage    storage.Storage
	eventQueue chan Event
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
	now        func() time.Time
}

// NewTracker initializes s and starts the background writer. A storage that
// fails to initialize leaves the tracker disabled.
func NewTracker(s storage.Storage) *Tracker {
	t := &Tracker{
		storage:    s,
		eventQueue: make(chan Event, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    true,
		now:        time.Now,
	}

	if err := t.storage.Init(); err != nil {
		logging.Warnf("audit storage initialization failed: %v", err)
		t.enabled = false
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues e after stripping it to detail. It never blocks.
func (t *Tracker) Track(e Event, detail policy.AuditDetail) {
	if !t.IsEnabled() {
		return
	}
	if e.At.IsZero() {
		e.At = t.now()
	}
	e = e.Strip(detail)

	select {
	case t.eventQueue <- e:
	default:
		logging.Warnf("audit queue full, dropping %s event", e.Outcome)
	}
}

// Stop flushes queued events and stops the writer.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled && t.storage != nil
}

// QueueLen returns the number of events waiting to be written.
func (t *Tracker) QueueLen() int {
	return len(t.eventQueue)
}

func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case e := <-t.eventQueue:
			batch = append(batch, e)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-t.stopChan:
			for {
				select {
				case e := <-t.eventQueue:
					batch = append(batch, e)
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

func (t *Tracker) flush(events []Event) {
	if len(events) == 0 {
		return
	}
	rows := make([]storage.Activation, len(events))
	for i, e := range events {
		rows[i] = e.toStorage()
	}
	if err := t.storage.RecordActivations(rows); err != nil {
		logging.Warnf("failed to record %d activations: %v", len(rows), err)
	}
}
