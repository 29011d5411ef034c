package utils

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// ErrNotADirectory is returned if a storage location exists but is not a directory.
var ErrNotADirectory = errors.New("not a directory")

// EnsureDirectory ensures that the given directory exists and that is has the given permissions set.
// If a directory is created, also all missing directories up to the required one are created with the given permissions.
// Existing files are never removed.
func EnsureDirectory(path string, perm os.FileMode) error {
	f, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(path, perm); err != nil {
			return fmt.Errorf("could not create dir %s: %w", path, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to access %s: %w", path, err)
	case !f.IsDir():
		return fmt.Errorf("%s: %w", path, ErrNotADirectory)
	}

	if f.Mode().Perm() != perm {
		if runtime.GOOS == "windows" {
			return nil
		}
		return os.Chmod(path, perm)
	}

	return nil
}
