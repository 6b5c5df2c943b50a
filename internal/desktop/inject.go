package desktop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Injector tools. Each one can return focus to the captured window before
// pasting; the picker holds focus while the user chooses.
const (
	ToolAuto       = "auto"
	ToolXdotool    = "xdotool"
	ToolOsascript  = "osascript"
	ToolPowershell = "powershell"
)

// ErrNoDisplay is returned on Linux without an X display. Pure Wayland
// sessions give no way to refocus another client's window; XWayland does.
var ErrNoDisplay = errors.New("no X display (DISPLAY is unset); paste needs X11 or XWayland")

// ExecInjector refocuses the captured window and synthesizes the platform
// paste chord with a helper program.
type ExecInjector struct {
	Tool    string
	Timeout time.Duration

	goos string
}

// NewExecInjector returns an injector using tool, or the platform helper
// when tool is "auto" or empty.
func NewExecInjector(tool string, timeout time.Duration) *ExecInjector {
	return &ExecInjector{Tool: tool, Timeout: timeout, goos: runtime.GOOS}
}

// Resolve picks the helper this injector will run.
func (in *ExecInjector) Resolve() (string, error) {
	tool := in.Tool
	if tool == "" || tool == ToolAuto {
		switch in.goos {
		case "darwin":
			tool = ToolOsascript
		case "windows":
			tool = ToolPowershell
		default:
			tool = ToolXdotool
		}
	}

	switch tool {
	case ToolXdotool:
		if os.Getenv("DISPLAY") == "" {
			return "", ErrNoDisplay
		}
	case ToolOsascript, ToolPowershell:
	default:
		return "", fmt.Errorf("unsupported injector %q (want auto, xdotool, osascript or powershell)", tool)
	}
	if !available(tool) {
		return "", &HelperError{Tool: tool, Err: ErrHelperMissing}
	}
	return tool, nil
}

// SendPaste returns focus to target and delivers the paste keystroke. A
// target that cannot be identified fails with ErrNoForeground rather than
// pasting into whatever holds focus now.
func (in *ExecInjector) SendPaste(ctx context.Context, target Window) error {
	tool, err := in.Resolve()
	if err != nil {
		return err
	}

	switch tool {
	case ToolXdotool:
		if target.ID == "" {
			return fmt.Errorf("%w: cannot return focus to it", ErrNoForeground)
		}
		if _, err := run(ctx, in.Timeout, "xdotool", "windowactivate", "--sync", target.ID); err != nil {
			return fmt.Errorf("refocus window %s: %w", target.ID, err)
		}
		_, err = run(ctx, in.Timeout, "xdotool", "key", "--clearmodifiers", "ctrl+v")

	case ToolOsascript:
		if target.PID <= 0 {
			return fmt.Errorf("%w: cannot return focus to it", ErrNoForeground)
		}
		script := `tell application "System Events"
set frontmost of (first process whose unix id is ` + strconv.Itoa(target.PID) + `) to true
keystroke "v" using command down
end tell`
		_, err = run(ctx, in.Timeout, "osascript", "-e", script)

	case ToolPowershell:
		if target.PID <= 0 {
			return fmt.Errorf("%w: cannot return focus to it", ErrNoForeground)
		}
		script := `$s = New-Object -ComObject WScript.Shell; ` +
			`[void]$s.AppActivate(` + strconv.Itoa(target.PID) + `); Start-Sleep -Milliseconds 50; ` +
			`$s.SendKeys('^v')`
		_, err = run(ctx, in.Timeout, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	}
	return err
}
