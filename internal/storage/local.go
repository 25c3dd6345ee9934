package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/filedock/backend/internal/apperrors"
)

// LocalStore keeps file content on the local filesystem under a single
// root directory. Writes are whole-file and exclusive-create; an
// existing path is never silently overwritten.
type LocalStore struct {
	root        string
	maxBytes    int64
	allowedExts map[string]struct{}
}

// NewLocalStore creates the root directory if needed and resolves it to
// an absolute path so containment checks have a stable base.
func NewLocalStore(root string, maxBytes int64, allowedExts []string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", abs, err)
	}
	return &LocalStore{
		root:        abs,
		maxBytes:    maxBytes,
		allowedExts: extSet(allowedExts),
	}, nil
}

func (s *LocalStore) Save(ctx context.Context, r io.Reader, declaredName string, declaredSize int64) (string, int64, error) {
	if err := checkUploadable(r, declaredName, declaredSize, s.maxBytes, s.allowedExts); err != nil {
		return "", 0, err
	}

	key := GenerateKey(declaredName)
	fullPath, err := s.Resolve(key)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", 0, apperrors.Wrap(apperrors.KindStorage, "create storage shard directory", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, apperrors.Wrap(apperrors.KindStorage, "create storage file", err)
	}

	limit := r
	if s.maxBytes > 0 {
		limit = io.LimitReader(r, s.maxBytes+1)
	}
	size, err := io.Copy(f, limit)
	if err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", 0, apperrors.Wrap(apperrors.KindStorage, "write storage file", err)
	}
	if size == 0 {
		f.Close()
		os.Remove(fullPath)
		return "", 0, apperrors.New(apperrors.KindValidation, "cannot store an empty file")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		f.Close()
		os.Remove(fullPath)
		return "", 0, apperrors.Newf(apperrors.KindValidation, "file exceeds maximum size of %d bytes", s.maxBytes)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", 0, apperrors.Wrap(apperrors.KindStorage, "sync storage file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return "", 0, apperrors.Wrap(apperrors.KindStorage, "close storage file", err)
	}

	return key, size, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.Resolve(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "no content stored at key %s", key)
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "open storage file", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.Resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.KindStorage, "delete storage file", err)
	}
	return nil
}

// Resolve canonicalizes root+key and verifies the result stays under
// the storage root. This must hold even for attacker-influenced keys.
func (s *LocalStore) Resolve(key string) (string, error) {
	if key == "" {
		return "", apperrors.New(apperrors.KindValidation, "storage key cannot be empty")
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return "", apperrors.Newf(apperrors.KindStorage, "access denied: storage key %q resolves outside the storage root", key)
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, s.root+string(os.PathSeparator)) {
		return "", apperrors.Newf(apperrors.KindStorage, "access denied: storage key %q resolves outside the storage root", key)
	}
	return fullPath, nil
}
