package clipboard

import (
	"github.com/atotto/clipboard"
)

// System is the OS clipboard.
type System struct{}

// Available reports whether a clipboard helper exists on this system.
func (System) Available() bool {
	return !clipboard.Unsupported
}

func (System) ReadText() (string, error) {
	return clipboard.ReadAll()
}

func (System) WriteText(text string) error {
	return clipboard.WriteAll(text)
}
