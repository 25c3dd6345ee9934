// Package storage provides durable byte storage addressed by opaque,
// date-sharded keys. Every resolution re-validates that the key lands
// inside the configured root, regardless of how the key was produced.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/google/uuid"
)

// ContentStore is the byte storage contract used by the file pipeline.
type ContentStore interface {
	// Save streams the content to storage under a freshly generated key.
	// declaredSize is the caller-declared byte count, checked before any
	// I/O; the returned size is the count actually persisted.
	Save(ctx context.Context, r io.Reader, declaredName string, declaredSize int64) (key string, size int64, err error)
	// Open returns a reader over the stored bytes. Missing key -> not found.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the stored bytes. Missing key is a no-op.
	Delete(ctx context.Context, key string) error
	// Resolve maps a key to its backend locator, enforcing containment.
	Resolve(key string) (string, error)
}

// GenerateKey builds a storage key of the form
// {year}/{month}/{uuid}_{sanitizedName}. Date sharding bounds
// per-directory fan-out and the uuid guarantees uniqueness even for
// repeated uploads of an identical name.
func GenerateKey(declaredName string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%04d/%02d/%s_%s", now.Year(), int(now.Month()), uuid.New().String(), sanitizeName(declaredName))
}

// sanitizeName strips filesystem-invalid characters from a declared
// name, keeping only letters, digits, dash, underscore and the
// extension dot. Falls back to "file" if nothing survives.
func sanitizeName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		clean = "file"
	}
	if len(clean) > 100 {
		clean = clean[:100]
	}

	cleanExt := ""
	for _, r := range strings.TrimPrefix(ext, ".") {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cleanExt += string(r)
		}
	}
	if cleanExt != "" {
		return clean + "." + cleanExt
	}
	return clean
}

// checkUploadable runs the pre-I/O guards shared by all backends.
func checkUploadable(r io.Reader, declaredName string, declaredSize, maxBytes int64, allowedExts map[string]struct{}) error {
	if r == nil {
		return apperrors.New(apperrors.KindValidation, "no content provided")
	}
	if declaredSize <= 0 {
		return apperrors.New(apperrors.KindValidation, "cannot store an empty file")
	}
	if maxBytes > 0 && declaredSize > maxBytes {
		return apperrors.Newf(apperrors.KindValidation, "file exceeds maximum size of %d bytes", maxBytes)
	}
	if len(allowedExts) > 0 {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(declaredName), "."))
		if _, ok := allowedExts[ext]; !ok {
			return apperrors.Newf(apperrors.KindValidation, "file extension %q is not allowed", ext)
		}
	}
	return nil
}

// extSet builds the lookup set for an extension allow-list.
func extSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return set
}
