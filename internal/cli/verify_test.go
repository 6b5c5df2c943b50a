package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewVerifyCmd(t *testing.T) {
	cmd := NewVerifyCmd()

	if cmd == nil {
		t.Fatal("NewVerifyCmd() returned nil")
	}

	if cmd.Use != "verify" {
		t.Errorf("Expected Use='verify', got %q", cmd.Use)
	}
}

func TestVerifyCommandHelp(t *testing.T) {
	cmd := NewVerifyCmd()
	cmd.SetArgs([]string{"--help"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help failed: %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"verify", "Verify", "store", "status 2"} {
		if !strings.Contains(output, expected) {
			t.Errorf("Help output missing %q", expected)
		}
	}
}
