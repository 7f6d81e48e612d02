package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/filex"
)

const (
	dirPerm      fs.FileMode = 0o750
	writePerm    fs.FileMode = 0o600
	readOnlyPerm fs.FileMode = 0o440
)

// FSBackend stores blobs as read-only files below a root directory.
type FSBackend struct {
	root string
}

func NewFSBackend(root string) (*FSBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := filex.EnsureDir(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSBackend{root: abs}, nil
}

func (b *FSBackend) path(locator string) (string, error) {
	if !ValidLocator(locator) {
		return "", common.Errorf(common.ErrStorage, "invalid locator %q", locator)
	}
	return filepath.Join(b.root, filepath.FromSlash(locator)), nil
}

// Put creates the file exclusively, syncs it and marks it read-only.
func (b *FSBackend) Put(ctx context.Context, locator string, data []byte) error {
	full, err := b.path(locator)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := filex.EnsureDir(filepath.Dir(full), dirPerm); err != nil {
		return fmt.Errorf("create partition: %w", err)
	}
	if err := filex.WriteExclusive(full, data, writePerm); err != nil {
		return err
	}
	if err := os.Chmod(full, readOnlyPerm); err != nil {
		_ = os.Remove(full)
		return fmt.Errorf("chmod file: %w", err)
	}
	return nil
}

func (b *FSBackend) Get(ctx context.Context, locator string) ([]byte, error) {
	full, err := b.path(locator)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Walk visits files under the root whose relative path is a valid locator.
func (b *FSBackend) Walk(ctx context.Context, fn func(locator string) error) error {
	return filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		locator := filepath.ToSlash(rel)
		if !ValidLocator(locator) {
			return nil
		}
		return fn(locator)
	})
}
