/*
Package main is the entry point for the textshortcutter CLI.

textshortcutter keeps an encrypted collection of text snippets and pastes
the chosen one into the focused application when the trigger combination
is pressed.

Usage:

	textshortcutter [command]

Examples:

	# Save a snippet and start listening for ctrl+space
	textshortcutter add sig "Best regards"
	textshortcutter run

Exit status is 2 when the store exists but cannot be decrypted, 1 on any
other error.
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bobersnip/TextShortcutter/internal/cli"
	"github.com/bobersnip/TextShortcutter/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, store.ErrStoreCorrupt) {
			return 2
		}
		return 1
	}
	return 0
}
