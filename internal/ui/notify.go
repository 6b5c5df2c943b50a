package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bobersnip/TextShortcutter/internal/logging"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"

	appName       = "TextShortcutter"
	expireTimeout = int32(5000)

	// notifyTimeout bounds a bus call; Notify runs on the trigger loop.
	notifyTimeout = 500 * time.Millisecond
)

// LogNotifier writes notifications to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(kind Kind, message string) {
	switch kind {
	case KindError:
		logging.Errorf("%s", message)
	case KindWarning:
		logging.Warnf("%s", message)
	default:
		logging.Infof("%s", message)
	}
}

// DBusNotifier sends freedesktop notifications over the session bus and
// falls back to the log when the bus call fails.
type DBusNotifier struct {
	obj     dbus.BusObject
	timeout time.Duration

	mu   sync.Mutex
	last uint32
}

// NewDBusNotifier connects to the session bus.
func NewDBusNotifier() (*DBusNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBusNotifier{
		obj:     conn.Object(notifyDest, dbus.ObjectPath(notifyPath)),
		timeout: notifyTimeout,
	}, nil
}

func urgency(kind Kind) byte {
	switch kind {
	case KindError:
		return 2
	case KindWarning:
		return 1
	}
	return 0
}

func (n *DBusNotifier) Notify(kind Kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency(kind))}
	// Replace the previous popup instead of stacking them.
	call := n.obj.CallWithContext(ctx, notifyMethod, 0, appName, n.last, "", appName, message, []string{}, hints, expireTimeout)
	if call.Err != nil {
		logging.Debugf("desktop notification failed: %v", call.Err)
		LogNotifier{}.Notify(kind, message)
		return
	}
	if err := call.Store(&n.last); err != nil {
		n.last = 0
	}
}

// NewNotifier returns a desktop notifier when enabled and reachable, and a
// LogNotifier otherwise.
func NewNotifier(enabled bool) Notifier {
	if !enabled {
		return LogNotifier{}
	}
	n, err := NewDBusNotifier()
	if err != nil {
		logging.Debugf("desktop notifications unavailable: %v", err)
		return LogNotifier{}
	}
	return n
}
