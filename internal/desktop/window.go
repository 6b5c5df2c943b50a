package desktop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bobersnip/TextShortcutter/internal/config"
)

// Window identifies the window that held focus when the trigger fired.
type Window struct {
	ID    string
	App   config.AppID
	Title string
	PID   int
}

// Probe finds the foreground window.
type Probe struct {
	Timeout time.Duration

	goos     string
	procRoot string
}

// NewProbe returns a probe for the running OS.
func NewProbe(timeout time.Duration) *Probe {
	return &Probe{Timeout: timeout, goos: runtime.GOOS, procRoot: "/proc"}
}

const darwinFrontmost = `tell application "System Events"
set p to first application process whose frontmost is true
return (unix id of p as text) & tab & (name of p)
end tell`

const windowsForeground = `Add-Type @"
using System;
using System.Runtime.InteropServices;
public class Fg {
  [DllImport("user32.dll")] public static extern IntPtr GetForegroundWindow();
  [DllImport("user32.dll")] public static extern uint GetWindowThreadProcessId(IntPtr h, out uint pid);
}
"@
$h = [Fg]::GetForegroundWindow()
$fgpid = 0
[void][Fg]::GetWindowThreadProcessId($h, [ref]$fgpid)
$p = Get-Process -Id $fgpid
"$h` + "`t" + `$fgpid` + "`t" + `$($p.ProcessName).exe` + "`t" + `$($p.MainWindowTitle)"`

// Foreground returns the focused window. The App field is always canonical.
func (p *Probe) Foreground(ctx context.Context) (Window, error) {
	switch p.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return p.foregroundX11(ctx)
	case "darwin":
		return p.foregroundDarwin(ctx)
	case "windows":
		return p.foregroundWindows(ctx)
	}
	return Window{}, fmt.Errorf("%w: unsupported platform %s", ErrNoForeground, p.goos)
}

func (p *Probe) foregroundX11(ctx context.Context) (Window, error) {
	if os.Getenv("DISPLAY") == "" {
		return Window{}, fmt.Errorf("%w: %w", ErrNoForeground, ErrNoDisplay)
	}
	id, err := run(ctx, p.Timeout, "xdotool", "getactivewindow")
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrNoForeground, err)
	}
	w := Window{ID: id}

	if out, err := run(ctx, p.Timeout, "xdotool", "getwindowpid", id); err == nil {
		if pid, err := strconv.Atoi(out); err == nil {
			w.PID = pid
			w.App = p.appFromProc(pid)
		}
	}
	if title, err := run(ctx, p.Timeout, "xdotool", "getwindowname", id); err == nil {
		w.Title = title
	}
	return w, nil
}

// appFromProc resolves a pid to its program name via /proc.
func (p *Probe) appFromProc(pid int) config.AppID {
	if exe, err := os.Readlink(filepath.Join(p.procRoot, strconv.Itoa(pid), "exe")); err == nil {
		return config.CanonicalApp(exe)
	}
	comm, err := os.ReadFile(filepath.Join(p.procRoot, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return config.CanonicalApp(string(comm))
}

func (p *Probe) foregroundDarwin(ctx context.Context) (Window, error) {
	out, err := run(ctx, p.Timeout, "osascript", "-e", darwinFrontmost)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrNoForeground, err)
	}
	pidText, name, ok := strings.Cut(out, "\t")
	if !ok {
		return Window{}, fmt.Errorf("%w: unexpected osascript output %q", ErrNoForeground, out)
	}
	pid, _ := strconv.Atoi(pidText)
	return Window{ID: pidText, PID: pid, App: config.CanonicalApp(name)}, nil
}

func (p *Probe) foregroundWindows(ctx context.Context) (Window, error) {
	out, err := run(ctx, p.Timeout, "powershell", "-NoProfile", "-NonInteractive", "-Command", windowsForeground)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrNoForeground, err)
	}
	fields := strings.SplitN(out, "\t", 4)
	if len(fields) < 3 {
		return Window{}, fmt.Errorf("%w: unexpected powershell output %q", ErrNoForeground, out)
	}
	pid, _ := strconv.Atoi(fields[1])
	w := Window{ID: fields[0], PID: pid, App: config.CanonicalApp(fields[2])}
	if len(fields) == 4 {
		w.Title = fields[3]
	}
	return w, nil
}
