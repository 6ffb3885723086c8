package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it over path. An existing file keeps its permissions.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".~word-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Writable reports whether path can be saved: the file must be writable if
// it exists, and its directory must accept new files otherwise. The message
// explains a negative answer.
func Writable(path string) (bool, string) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return false, fmt.Sprintf("%s is a directory", path)
		}
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return false, fmt.Sprintf("File %s is not writeable", path)
		}
		f.Close()
		return true, ""
	case !os.IsNotExist(err):
		return false, fmt.Sprintf("Cannot access %s: %v", path, err)
	}
	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false, fmt.Sprintf("Directory %s does not exist", filepath.Dir(path))
		}
		dir = parent
	}
	probe, err := os.CreateTemp(dir, ".~probe-*")
	if err != nil {
		return false, fmt.Sprintf("Cannot create file in directory %s", dir)
	}
	probe.Close()
	os.Remove(probe.Name())
	return true, ""
}
