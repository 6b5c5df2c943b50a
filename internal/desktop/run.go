/*
Package desktop talks to the desktop session through small helper programs:
it identifies the foreground window and synthesizes the paste keystroke.

Each helper runs under a timeout and is killed when the timeout or the
caller's context expires first. Supported helpers:
  - Linux: xdotool (X11 and XWayland)
  - macOS: osascript
  - Windows: powershell
*/
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single helper invocation.
const DefaultTimeout = 2 * time.Second

var (
	// ErrHelperMissing is returned when no usable helper is installed.
	ErrHelperMissing = errors.New("desktop helper not found")
	// ErrHelperTimeout is returned when a helper outlives its timeout.
	ErrHelperTimeout = errors.New("desktop helper timed out")
	// ErrNoForeground is returned when no focused window can be found.
	ErrNoForeground = errors.New("no foreground window")
)

// HelperError carries a failed helper's stderr.
type HelperError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *HelperError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *HelperError) Unwrap() error { return e.Err }

// execCommand is a variable that allows tests to mock exec.Command
var execCommand = exec.Command

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// run starts name with args and returns its trimmed stdout.
func run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cmd := execCommand(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &HelperError{Tool: name, Err: ErrHelperMissing}
		}
		return "", &HelperError{Tool: name, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", &HelperError{Tool: name, Err: err, Stderr: strings.TrimSpace(stderr.String())}
		}
		return strings.TrimSpace(stdout.String()), nil

	case <-time.After(timeout):
		cmd.Process.Kill()
		<-done
		return "", &HelperError{Tool: name, Err: ErrHelperTimeout}

	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		return "", &HelperError{Tool: name, Err: ctx.Err()}
	}
}

func available(tool string) bool {
	_, err := lookPath(tool)
	return err == nil
}
