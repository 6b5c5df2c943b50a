package main

import (
	"os"
	"path/filepath"
	"testing"
)

func runWith(t *testing.T, args ...string) int {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"textshortcutter"}, args...)
	return run()
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("AppData", home)
	t.Setenv("TEXTSHORTCUTTER_NOTIFICATIONS", "false")
	return t.TempDir()
}

func TestExitStatus(t *testing.T) {
	dataDir := isolate(t)

	if code := runWith(t, "--data-dir", dataDir, "add", "omg", "Oh my gosh!"); code != 0 {
		t.Fatalf("add exit status = %d, want 0", code)
	}
	if code := runWith(t, "--data-dir", dataDir, "no-such-command"); code != 1 {
		t.Errorf("unknown command exit status = %d, want 1", code)
	}
}

func TestExitStatusCorruptStore(t *testing.T) {
	dataDir := isolate(t)

	if code := runWith(t, "--data-dir", dataDir, "add", "omg", "Oh my gosh!"); code != 0 {
		t.Fatalf("add exit status = %d, want 0", code)
	}

	path := filepath.Join(dataDir, "store.sealed")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	truncated := data[:len(data)/2]
	if err := os.WriteFile(path, truncated, 0600); err != nil {
		t.Fatalf("truncate store: %v", err)
	}

	for _, args := range [][]string{{"run"}, {"list"}} {
		code := runWith(t, append([]string{"--data-dir", dataDir}, args...)...)
		if code != 2 {
			t.Errorf("%s exit status = %d, want 2", args[0], code)
		}
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if string(after) != string(truncated) {
		t.Error("corrupt store was modified")
	}
}
