package cli

import (
	"strings"
	"testing"
)

func TestNewListCmd(t *testing.T) {
	cmd := NewListCmd()

	if cmd == nil {
		t.Fatal("NewListCmd() returned nil")
	}

	if cmd.Use != "list [prefix]" {
		t.Errorf("Expected Use='list [prefix]', got %q", cmd.Use)
	}

	aliases := cmd.Aliases
	if len(aliases) == 0 || aliases[0] != "ls" {
		t.Errorf("Expected alias 'ls', got %v", aliases)
	}

	if !strings.Contains(cmd.Short, "List") {
		t.Errorf("Short description doesn't mention listing: %q", cmd.Short)
	}
}

func TestListCommandFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantJSON bool
		wantAll  bool
	}{
		{"no flags", []string{}, false, false},
		{"json flag", []string{"--json"}, true, false},
		{"all flag", []string{"--all"}, false, true},
		{"short flags", []string{"-j", "-a"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewListCmd()

			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() failed: %v", err)
			}

			jsonFlag, _ := cmd.Flags().GetBool("json")
			if jsonFlag != tt.wantJSON {
				t.Errorf("json flag = %v, want %v", jsonFlag, tt.wantJSON)
			}

			allFlag, _ := cmd.Flags().GetBool("all")
			if allFlag != tt.wantAll {
				t.Errorf("all flag = %v, want %v", allFlag, tt.wantAll)
			}
		})
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		body  string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"two\nlines", 20, "two lines"},
		{"abcdefghij", 5, "abcd…"},
	}

	for _, tt := range tests {
		if got := oneLine(tt.body, tt.width); got != tt.want {
			t.Errorf("oneLine(%q, %d) = %q, want %q", tt.body, tt.width, got, tt.want)
		}
	}
}
