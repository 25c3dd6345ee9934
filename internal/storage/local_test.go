package storage

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBytes int64, exts []string) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), maxBytes, exts)
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, 0, nil)
	ctx := context.Background()
	content := []byte("the quick brown fox jumps over the lazy dog")

	key, size, err := store.Save(ctx, bytes.NewReader(content), "report.pdf", int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	// {year}/{month}/{uuid}_{sanitizedName}
	assert.Regexp(t, regexp.MustCompile(`^\d{4}/\d{2}/[0-9a-f-]{36}_report\.pdf$`), key)

	reader, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalStoreUniqueKeysForSameName(t *testing.T) {
	store := newTestStore(t, 0, nil)
	ctx := context.Background()

	key1, _, err := store.Save(ctx, strings.NewReader("first"), "dup.txt", 5)
	require.NoError(t, err)
	key2, _, err := store.Save(ctx, strings.NewReader("second"), "dup.txt", 6)
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestLocalStoreRejectsEmptyInput(t *testing.T) {
	store := newTestStore(t, 0, nil)
	ctx := context.Background()

	_, _, err := store.Save(ctx, nil, "a.txt", 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, _, err = store.Save(ctx, strings.NewReader(""), "a.txt", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// Declared size lies but the stream is actually empty.
	_, _, err = store.Save(ctx, strings.NewReader(""), "a.txt", 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestLocalStoreEnforcesMaxSize(t *testing.T) {
	store := newTestStore(t, 10, nil)
	ctx := context.Background()

	// Declared size over the limit fails before any I/O.
	_, _, err := store.Save(ctx, strings.NewReader("x"), "big.bin", 11)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")

	// Understated declared size still gets caught while streaming.
	_, _, err = store.Save(ctx, strings.NewReader(strings.Repeat("x", 20)), "big.bin", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")

	// At the limit is fine.
	_, size, err := store.Save(ctx, strings.NewReader(strings.Repeat("x", 10)), "ok.bin", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestLocalStoreExtensionAllowList(t *testing.T) {
	store := newTestStore(t, 0, []string{"pdf", "jpg"})
	ctx := context.Background()

	_, _, err := store.Save(ctx, strings.NewReader("data"), "notes.txt", 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")

	_, _, err = store.Save(ctx, strings.NewReader("data"), "scan.PDF", 4)
	assert.NoError(t, err)
}

func TestLocalStoreOpenMissingKey(t *testing.T) {
	store := newTestStore(t, 0, nil)

	_, err := store.Open(context.Background(), "2026/01/no-such-key_file.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestLocalStoreDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t, 0, nil)
	ctx := context.Background()

	key, _, err := store.Save(ctx, strings.NewReader("bytes"), "gone.txt", 5)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))
	// Second delete of the same key is a no-op.
	require.NoError(t, store.Delete(ctx, key))
	// And a delete of a never-existing key too.
	require.NoError(t, store.Delete(ctx, "2026/01/never-existed_x.txt"))

	_, err = store.Open(ctx, key)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestLocalStoreResolveContainment(t *testing.T) {
	store := newTestStore(t, 0, nil)

	for _, key := range []string{
		"../escape.txt",
		"2026/01/../../../etc/passwd",
		"/etc/passwd",
		"..",
		"",
	} {
		_, err := store.Resolve(key)
		assert.Error(t, err, "key %q must not resolve", key)
	}

	// Out-of-root keys fail the same way on every operation.
	_, err := store.Open(context.Background(), "../../secrets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	err = store.Delete(context.Background(), "../../secrets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeName("report.pdf"))
	assert.Equal(t, "myfile.txt", sanitizeName("my file!.txt"))
	assert.Equal(t, "file", sanitizeName("???"))
	assert.Equal(t, "data-set_v2.csv", sanitizeName("data-set_v2.csv"))
}
