// Package filex contains file helpers for write-once evidence files.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrExists is returned by WriteExclusive when the target already exists.
var ErrExists = fs.ErrExist

// EnsureDir creates dir and its parents with perm. It fails if dir exists
// and is not a directory.
func EnsureDir(dir string, perm fs.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// WriteExclusive creates path, which must not exist, writes data and syncs
// it to disk. A partially written file is removed.
func WriteExclusive(path string, data []byte, perm fs.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
