package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewAddCmd(t *testing.T) {
	cmd := NewAddCmd()

	if cmd == nil {
		t.Fatal("NewAddCmd() returned nil")
	}

	if cmd.Use != "add <shortcut> [body]" {
		t.Errorf("Expected Use='add <shortcut> [body]', got %q", cmd.Use)
	}
}

func TestAddCommandHelp(t *testing.T) {
	cmd := NewAddCmd()
	cmd.SetArgs([]string{"--help"})

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help failed: %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"add", "Add", "expansion", "--description", "--file"} {
		if !strings.Contains(output, expected) {
			t.Errorf("Help output missing %q", expected)
		}
	}
}

func TestAddCommandFlagShortcuts(t *testing.T) {
	cmd := NewAddCmd()

	tests := []struct {
		long  string
		short string
	}{
		{"description", "d"},
		{"file", "f"},
	}

	for _, tt := range tests {
		flag := cmd.Flags().Lookup(tt.long)
		if flag == nil {
			t.Errorf("Flag %q not found", tt.long)
			continue
		}
		if flag.Shorthand != tt.short {
			t.Errorf("Flag %q shorthand = %q, want %q", tt.long, flag.Shorthand, tt.short)
		}
	}
}

func TestAddCommandValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"help flag", []string{"--help"}, false},
		{"no shortcut", []string{}, true},
		{"too many arguments", []string{"a", "b", "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewAddCmd()
			cmd.SetArgs(tt.args)

			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadMultilineInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"stops at empty line", "first\nsecond\n\nignored\n", "first\nsecond"},
		{"eof without newline", "only", "only"},
		{"crlf", "a\r\nb\r\n\r\n", "a\nb"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readMultilineInput(strings.NewReader(tt.input)); got != tt.want {
				t.Errorf("readMultilineInput() = %q, want %q", got, tt.want)
			}
		})
	}
}
