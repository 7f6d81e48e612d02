// Package contentstore keeps encrypted evidence content. Ciphertext is
// written once under a date-partitioned random locator and is never
// overwritten or deleted; the ledger keeps the locator and IV as a
// back-reference.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/cryptox"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/dmitrijs2005/evidencevault/internal/server/models"
)

// Backend persists opaque blobs by locator.
type Backend interface {
	// Put writes data at locator. It must fail if the locator already exists.
	Put(ctx context.Context, locator string, data []byte) error
	// Get returns the blob, or an error matching common.ErrNotFound.
	Get(ctx context.Context, locator string) ([]byte, error)
	// Walk calls fn for every stored locator.
	Walk(ctx context.Context, fn func(locator string) error) error
}

var locatorPattern = regexp.MustCompile(`^[0-9]{4}/[0-9]{2}/[0-9]{2}/[0-9a-f]{32}\.bin$`)

// ValidLocator reports whether p has the yyyy/MM/dd/<32 hex>.bin shape.
// Anything else, including traversal attempts, is rejected by the backends.
func ValidLocator(p string) bool {
	return locatorPattern.MatchString(p)
}

// Locator builds the locator for id under the UTC date of t.
func Locator(t time.Time, id string) string {
	t = t.UTC()
	return fmt.Sprintf("%04d/%02d/%02d/%s.bin", t.Year(), int(t.Month()), t.Day(), id)
}

// Store encrypts content with a single process-wide key and hands the
// ciphertext to a Backend.
type Store struct {
	backend Backend
	key     []byte
	log     logging.Logger
	now     func() time.Time
	newID   func() (string, error)
}

// New builds a Store. key must be 32 bytes.
func New(backend Backend, key []byte, log logging.Logger) (*Store, error) {
	if len(key) != cryptox.KeySize {
		return nil, common.Errorf(common.ErrCrypto, "encryption key must be %d bytes", cryptox.KeySize)
	}
	return &Store{
		backend: backend,
		key:     key,
		log:     log.With("module", "contentstore"),
		now:     time.Now,
		newID:   func() (string, error) { return common.MakeRandHexString(16) },
	}, nil
}

// Save digests and encrypts plaintext and writes the ciphertext under a fresh
// locator. originalFileName is only logged; it never influences the locator.
func (s *Store) Save(ctx context.Context, plaintext []byte, originalFileName string) (*models.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sha, md := cryptox.Digest(plaintext)

	ciphertext, iv, err := cryptox.EncryptCBC(plaintext, s.key)
	if err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, common.Wrap(common.ErrStorage, err, "failed to name stored file")
	}
	locator := Locator(s.now(), id)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.backend.Put(ctx, locator, ciphertext); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, common.Wrap(common.ErrStorage, err, "failed to store evidence content")
	}

	s.log.Info(ctx, "content stored", "path", locator, "size", len(plaintext), "original_name", originalFileName)

	return &models.StoredFile{
		Path:      locator,
		SHA256:    sha,
		MD5:       md,
		SizeBytes: int64(len(plaintext)),
		IV:        cryptox.EncodeIV(iv),
	}, nil
}

// Read loads the ciphertext at path and decrypts it with ivBase64.
func (s *Store) Read(ctx context.Context, path, ivBase64 string) ([]byte, error) {
	iv, err := cryptox.DecodeIV(ivBase64)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.backend.Get(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			return nil, common.Wrap(common.ErrNotFound, err, "stored file not found")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			return nil, common.Wrap(common.ErrStorage, err, "failed to read evidence content")
		}
	}

	return cryptox.DecryptCBC(ciphertext, s.key, iv)
}

// Walk enumerates every locator held by the backend.
func (s *Store) Walk(ctx context.Context, fn func(locator string) error) error {
	return s.backend.Walk(ctx, fn)
}
