package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreMissing means no store exists yet; initialize defaults.
	ErrStoreMissing = errors.New("store not found")

	// ErrStoreCorrupt means the store could not be decrypted or failed
	// validation. The file on disk is left as is.
	ErrStoreCorrupt = errors.New("store is corrupt or unreadable")

	// ErrStorePersistFailed means a write did not complete; the previous
	// durable state is intact.
	ErrStorePersistFailed = errors.New("failed to persist store")

	// ErrImportConflict is matched by *ImportConflictError.
	ErrImportConflict = errors.New("import conflicts with existing shortcuts")

	ErrNotLoaded         = errors.New("store is not loaded")
	ErrNotFound          = errors.New("expansion not found")
	ErrDuplicateShortcut = errors.New("shortcut already exists")
	ErrInvalidExpansion  = errors.New("invalid expansion")
	ErrLimitReached      = errors.New("maximum number of expansions reached")
)

// ImportConflictError lists the incoming shortcuts that already exist.
type ImportConflictError struct {
	Shortcuts []string
}

func (e *ImportConflictError) Error() string {
	return fmt.Sprintf("%v: %s (choose --policy skip, overwrite or rename)",
		ErrImportConflict, strings.Join(e.Shortcuts, ", "))
}

func (e *ImportConflictError) Unwrap() error {
	return ErrImportConflict
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStoreCorrupt, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidExpansion, fmt.Sprintf(format, args...))
}
