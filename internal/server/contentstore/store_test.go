package contentstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/dmitrijs2005/evidencevault/internal/cryptox"
	"github.com/dmitrijs2005/evidencevault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend is a write-once map used to exercise Store without I/O.
type memBackend struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
	getErr error
}

func newMemBackend() *memBackend {
	return &memBackend{blobs: map[string][]byte{}}
}

func (b *memBackend) Put(ctx context.Context, locator string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	if _, ok := b.blobs[locator]; ok {
		return errors.New("exists")
	}
	b.blobs[locator] = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) Get(ctx context.Context, locator string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	data, ok := b.blobs[locator]
	if !ok {
		return nil, common.ErrNotFound
	}
	return data, nil
}

func (b *memBackend) Walk(ctx context.Context, fn func(string) error) error {
	b.mu.Lock()
	keys := make([]string, 0, len(b.blobs))
	for k := range b.blobs {
		keys = append(keys, k)
	}
	b.mu.Unlock()
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func testKey() []byte {
	k := make([]byte, cryptox.KeySize)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func newTestStore(t *testing.T, b Backend) *Store {
	t.Helper()
	s, err := New(b, testKey(), logging.Nop())
	require.NoError(t, err)
	return s
}

func TestNew_RejectsBadKey(t *testing.T) {
	_, err := New(newMemBackend(), []byte("short"), logging.Nop())
	assert.ErrorIs(t, err, common.ErrCrypto)
}

func TestLocator(t *testing.T) {
	loc := Locator(time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("x", -3*3600)), "0123456789abcdef0123456789abcdef")
	assert.Equal(t, "2025/03/08/0123456789abcdef0123456789abcdef.bin", loc)
	assert.True(t, ValidLocator(loc))
}

func TestValidLocator(t *testing.T) {
	for _, bad := range []string{
		"",
		"../etc/passwd",
		"2025/03/08/../../x.bin",
		"/2025/03/08/0123456789abcdef0123456789abcdef.bin",
		"2025/03/08/0123456789ABCDEF0123456789abcdef.bin",
		"2025/03/08/note.txt",
		"2025\\03\\08\\0123456789abcdef0123456789abcdef.bin",
	} {
		assert.False(t, ValidLocator(bad), bad)
	}
}

func TestSaveRead_RoundTrip(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(t, b)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	plaintext := []byte("0123456789")
	sf, err := s.Save(ctx, plaintext, "note.txt")
	require.NoError(t, err)

	sha, md := cryptox.Digest(plaintext)
	assert.Equal(t, sha, sf.SHA256)
	assert.Equal(t, md, sf.MD5)
	assert.Equal(t, int64(10), sf.SizeBytes)
	assert.Regexp(t, `^2025/03/01/[0-9a-f]{32}\.bin$`, sf.Path)
	assert.NotContains(t, sf.Path, "note")

	assert.NotEqual(t, plaintext, b.blobs[sf.Path], "content must be encrypted at rest")

	got, err := s.Read(ctx, sf.Path, sf.IV)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	gotSHA, gotMD5 := cryptox.Digest(got)
	assert.Equal(t, sf.SHA256, gotSHA)
	assert.Equal(t, sf.MD5, gotMD5)
}

func TestSave_SameContentGetsDistinctPathAndIV(t *testing.T) {
	s := newTestStore(t, newMemBackend())
	ctx := context.Background()

	a, err := s.Save(ctx, []byte("same"), "a.txt")
	require.NoError(t, err)
	b, err := s.Save(ctx, []byte("same"), "a.txt")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	assert.NotEqual(t, a.IV, b.IV)
	assert.Equal(t, a.SHA256, b.SHA256)
}

func TestSave_CancelledContextWritesNothing(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, []byte("x"), "x.txt")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.blobs)
}

func TestSave_BackendFailureIsStorageError(t *testing.T) {
	b := newMemBackend()
	b.putErr = errors.New("disk full")
	s := newTestStore(t, b)

	_, err := s.Save(context.Background(), []byte("x"), "x.txt")
	require.ErrorIs(t, err, common.ErrStorage)
	assert.NotContains(t, common.SafeMessage(err), "disk full")
}

func TestRead_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing path", func(t *testing.T) {
		s := newTestStore(t, newMemBackend())
		_, err := s.Read(ctx, "2025/03/01/0123456789abcdef0123456789abcdef.bin", cryptox.EncodeIV(make([]byte, 16)))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("bad iv", func(t *testing.T) {
		s := newTestStore(t, newMemBackend())
		_, err := s.Read(ctx, "2025/03/01/0123456789abcdef0123456789abcdef.bin", "%%%")
		assert.ErrorIs(t, err, common.ErrCrypto)
	})

	t.Run("io failure", func(t *testing.T) {
		b := newMemBackend()
		b.getErr = errors.New("eio")
		s := newTestStore(t, b)
		_, err := s.Read(ctx, "2025/03/01/0123456789abcdef0123456789abcdef.bin", cryptox.EncodeIV(make([]byte, 16)))
		assert.ErrorIs(t, err, common.ErrStorage)
	})

	t.Run("wrong key", func(t *testing.T) {
		b := newMemBackend()
		s := newTestStore(t, b)
		sf, err := s.Save(ctx, []byte("secret evidence"), "e.txt")
		require.NoError(t, err)

		other := make([]byte, cryptox.KeySize)
		s2, err := New(b, other, logging.Nop())
		require.NoError(t, err)

		got, err := s2.Read(ctx, sf.Path, sf.IV)
		if err == nil {
			// CBC with a wrong key can still unpad by chance; content must differ.
			assert.NotEqual(t, []byte("secret evidence"), got)
			return
		}
		assert.ErrorIs(t, err, common.ErrCrypto)
	})
}

func TestWalk_DelegatesToBackend(t *testing.T) {
	b := newMemBackend()
	s := newTestStore(t, b)
	sf, err := s.Save(context.Background(), []byte("x"), "x.txt")
	require.NoError(t, err)

	var seen []string
	require.NoError(t, s.Walk(context.Background(), func(l string) error {
		seen = append(seen, l)
		return nil
	}))
	assert.Equal(t, []string{sf.Path}, seen)
}
