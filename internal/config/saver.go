package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bobersnip/TextShortcutter/internal/logging"
)

// WriteFileAtomic replaces path with data in four steps: permission check,
// temp write with fsync, verify on the temp file, rename. Until the rename,
// the existing file is never touched; on any failure the temp file is
// removed. The previous content is copied to path+".bak" first.
func WriteFileAtomic(path string, data []byte, perm os.FileMode, verify func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := CheckWritePermission(path); err != nil {
		return err
	}

	if err := backupFile(path, perm); err != nil {
		logging.Warnf("failed to create backup of %s: %v", path, err)
	}

	tmpPath := path + ".tmp"
	if err := writeSynced(tmpPath, data, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if verify != nil {
		if err := verify(tmpPath); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("verification of %s failed: %w", tmpPath, err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeSynced(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func backupFile(path string, perm os.FileMode) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // First run, no backup needed
		}
		return err
	}
	return os.WriteFile(path+".bak", data, perm)
}

// CheckWritePermission verifies the directory and, if present, the file
// itself are writable.
func CheckWritePermission(path string) error {
	dir := filepath.Dir(path)

	if err := checkDirectoryWritable(dir); err != nil {
		return &PermissionError{
			Path:    dir,
			Op:      "write",
			Fix:     getWritePermissionFix(dir),
			Details: "Cannot write to data directory",
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := checkFileWritable(path); err != nil {
			return &PermissionError{
				Path:    path,
				Op:      "write",
				Fix:     getWritePermissionFix(path),
				Details: "File is read-only",
			}
		}
	}

	return nil
}

func checkDirectoryWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func checkFileWritable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

func getWritePermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s -> Properties -> Security -> Grant 'Write' permission", path)
	default:
		return fmt.Sprintf("Run: chmod u+w %s", path)
	}
}
