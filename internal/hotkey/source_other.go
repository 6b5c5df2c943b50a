//go:build !linux

package hotkey

import (
	"context"
	"runtime"
)

type unsupportedSource struct{}

// NewSystemSource returns the platform key-event source.
func NewSystemSource() Source { return unsupportedSource{} }

func (unsupportedSource) Available() (bool, string) {
	return false, "global key events are not implemented on " + runtime.GOOS
}

func (unsupportedSource) Events(context.Context) (<-chan KeyEvent, error) {
	return nil, ErrNotAvailable
}
