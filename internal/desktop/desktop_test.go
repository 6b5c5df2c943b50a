package desktop

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHelpers struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   []string
}

func (f *fakeHelpers) command(name string, args ...string) *exec.Cmd {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	f.calls = append(f.calls, key)
	out, ok := f.outputs[key]
	f.mu.Unlock()
	if !ok {
		return exec.Command("true")
	}
	return exec.Command("printf", "%s", out)
}

// installFakes swaps the exec seams for the duration of the test.
func installFakes(t *testing.T, outputs map[string]string, installed ...string) *fakeHelpers {
	t.Helper()
	f := &fakeHelpers{outputs: outputs}

	origExec, origLook := execCommand, lookPath
	execCommand = f.command
	lookPath = func(file string) (string, error) {
		for _, name := range installed {
			if name == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
	t.Cleanup(func() { execCommand, lookPath = origExec, origLook })
	return f
}

func TestRunCapturesOutput(t *testing.T) {
	out, err := run(context.Background(), time.Second, "echo", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunReportsStderr(t *testing.T) {
	_, err := run(context.Background(), time.Second, "sh", "-c", "echo oops >&2; exit 3")
	var he *HelperError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "sh", he.Tool)
	assert.Equal(t, "oops", he.Stderr)
}

func TestRunMissingHelper(t *testing.T) {
	_, err := run(context.Background(), time.Second, "textshortcutter-no-such-helper")
	assert.ErrorIs(t, err, ErrHelperMissing)
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	_, err := run(context.Background(), 50*time.Millisecond, "sleep", "5")
	assert.ErrorIs(t, err, ErrHelperTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	_, err := run(ctx, 5*time.Second, "sleep", "5")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForegroundX11(t *testing.T) {
	procRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(procRoot, "77"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(procRoot, "77", "comm"), []byte("Banking.EXE\n"), 0644))

	installFakes(t, map[string]string{
		"xdotool getactivewindow":    "4242\n",
		"xdotool getwindowpid 4242":  "77",
		"xdotool getwindowname 4242": "My Bank",
	}, "xdotool")
	t.Setenv("DISPLAY", ":0")

	p := &Probe{Timeout: time.Second, goos: "linux", procRoot: procRoot}
	w, err := p.Foreground(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Window{ID: "4242", PID: 77, App: "banking.exe", Title: "My Bank"}, w)
}

func TestForegroundDarwin(t *testing.T) {
	installFakes(t, map[string]string{
		"osascript -e " + darwinFrontmost: "123\tSafari",
	}, "osascript")

	p := &Probe{Timeout: time.Second, goos: "darwin"}
	w, err := p.Foreground(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 123, w.PID)
	assert.Equal(t, "safari", string(w.App))
}

func TestForegroundWindows(t *testing.T) {
	installFakes(t, map[string]string{
		"powershell -NoProfile -NonInteractive -Command " + windowsForeground: "655\t4000\tBanking.exe\tAccounts",
	}, "powershell")

	p := &Probe{Timeout: time.Second, goos: "windows"}
	w, err := p.Foreground(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Window{ID: "655", PID: 4000, App: "banking.exe", Title: "Accounts"}, w)
}

func TestForegroundUnsupported(t *testing.T) {
	p := &Probe{goos: "plan9"}
	_, err := p.Foreground(context.Background())
	assert.ErrorIs(t, err, ErrNoForeground)
}

func TestResolveUsesXdotoolUnderXWayland(t *testing.T) {
	installFakes(t, nil, "xdotool")
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	t.Setenv("DISPLAY", ":1")

	in := &ExecInjector{Tool: ToolAuto, goos: "linux"}
	tool, err := in.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ToolXdotool, tool)
}

func TestResolvePureWaylandFails(t *testing.T) {
	installFakes(t, nil, "xdotool")
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	t.Setenv("DISPLAY", "")

	_, err := (&ExecInjector{goos: "linux"}).Resolve()
	assert.ErrorIs(t, err, ErrNoDisplay)

	_, err = (&Probe{goos: "linux"}).Foreground(context.Background())
	assert.ErrorIs(t, err, ErrNoForeground)
	assert.ErrorIs(t, err, ErrNoDisplay)
}

func TestResolveRejectsUnknownTool(t *testing.T) {
	installFakes(t, nil, "wtype")

	_, err := (&ExecInjector{Tool: "wtype", goos: "linux"}).Resolve()
	assert.ErrorContains(t, err, "unsupported injector")
}

func TestResolveMissing(t *testing.T) {
	installFakes(t, nil)
	t.Setenv("DISPLAY", ":0")

	_, err := (&ExecInjector{Tool: ToolXdotool, goos: "linux"}).Resolve()
	assert.ErrorIs(t, err, ErrHelperMissing)

	_, err = (&ExecInjector{goos: "darwin"}).Resolve()
	assert.ErrorIs(t, err, ErrHelperMissing)
}

func TestSendPasteXdotoolRefocuses(t *testing.T) {
	f := installFakes(t, nil, "xdotool")
	t.Setenv("DISPLAY", ":0")

	in := &ExecInjector{Tool: ToolXdotool, Timeout: time.Second, goos: "linux"}
	require.NoError(t, in.SendPaste(context.Background(), Window{ID: "4242"}))

	assert.Equal(t, []string{
		"xdotool windowactivate --sync 4242",
		"xdotool key --clearmodifiers ctrl+v",
	}, f.calls)
}

func TestSendPasteNeedsCapturedWindow(t *testing.T) {
	f := installFakes(t, nil, "xdotool", "osascript", "powershell")
	t.Setenv("DISPLAY", ":0")

	for _, goos := range []string{"linux", "darwin", "windows"} {
		in := &ExecInjector{Timeout: time.Second, goos: goos}
		err := in.SendPaste(context.Background(), Window{})
		assert.ErrorIs(t, err, ErrNoForeground, goos)
	}
	assert.Empty(t, f.calls, "nothing is typed into the window that has focus now")
}

func TestSendPasteDarwinActivatesProcess(t *testing.T) {
	f := installFakes(t, nil, "osascript")

	in := &ExecInjector{Timeout: time.Second, goos: "darwin"}
	require.NoError(t, in.SendPaste(context.Background(), Window{PID: 77}))
	require.Len(t, f.calls, 1)
	assert.Contains(t, f.calls[0], "unix id is 77")
}

func TestSendPasteFailure(t *testing.T) {
	installFakes(t, nil, "xdotool")
	execCommand = func(name string, args ...string) *exec.Cmd {
		return exec.Command("false")
	}

	t.Setenv("DISPLAY", ":0")

	in := &ExecInjector{Tool: ToolXdotool, Timeout: time.Second, goos: "linux"}
	err := in.SendPaste(context.Background(), Window{ID: "4242"})
	var he *HelperError
	assert.ErrorAs(t, err, &he)
}
