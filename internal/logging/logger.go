/*
Package logging holds the process-wide structured logger.

Components log through the helper functions so the output format and level
are decided once, at startup, by Setup.
*/
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger.
var L = clog.NewWithOptions(os.Stderr, clog.Options{
	Prefix:          "textshortcutter",
	ReportTimestamp: true,
	TimeFormat:      time.TimeOnly,
})

// Setup configures level and formatter. Unknown levels fall back to info.
func Setup(level, format string, out io.Writer) error {
	if out != nil {
		L.SetOutput(out)
	}

	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		L.SetLevel(clog.InfoLevel)
		return fmt.Errorf("unknown log level %q: %w", level, err)
	}
	L.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		L.SetFormatter(clog.JSONFormatter)
	case "logfmt":
		L.SetFormatter(clog.LogfmtFormatter)
	default:
		L.SetFormatter(clog.TextFormatter)
	}
	return nil
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...interface{}) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...interface{}) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...interface{}) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...interface{}) {
	L.Error(fmt.Sprintf(format, v...))
}

// Activation logs the outcome of one trigger activation. With privacy set,
// the application and shortcut are left out of the line entirely.
func Activation(privacy bool, outcome, app, shortcut string) {
	if privacy {
		L.Info("activation", "outcome", outcome)
		return
	}
	L.Info("activation", "outcome", outcome, "app", app, "shortcut", shortcut)
}
