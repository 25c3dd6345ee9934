// Package validation holds the pure accept/reject checks that run before
// any side effect, so a rejected request leaves no trace beyond its
// failure audit entry.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/filedock/backend/internal/apperrors"
)

const (
	MaxFileNameLength    = 255
	MaxDescriptionLength = 5000
	MaxSearchTermLength  = 1000
)

// reservedFileNameChars are rejected in file names on top of path
// separators: they are invalid on common filesystems and useless in a
// display name.
const reservedFileNameChars = `<>:"|?*`

// ValidateFileName rejects names that are empty, too long, contain
// control characters, traversal sequences, path separators, reserved
// punctuation, or start with a dot.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.New(apperrors.KindValidation, "file name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxFileNameLength {
		return apperrors.Newf(apperrors.KindValidation, "file name exceeds %d characters", MaxFileNameLength)
	}
	if strings.Contains(name, "..") {
		return apperrors.New(apperrors.KindValidation, "file name cannot contain '..'")
	}
	if strings.ContainsAny(name, "/\\") {
		return apperrors.New(apperrors.KindValidation, "file name cannot contain path separators")
	}
	if strings.ContainsAny(name, reservedFileNameChars) {
		return apperrors.New(apperrors.KindValidation, "file name contains reserved characters")
	}
	if strings.HasPrefix(name, ".") {
		return apperrors.New(apperrors.KindValidation, "file name cannot start with a dot")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return apperrors.New(apperrors.KindValidation, "file name contains control characters")
		}
	}
	return nil
}

// ValidateDescription rejects descriptions that are too long or contain
// NUL bytes. Empty descriptions are valid.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperrors.Newf(apperrors.KindValidation, "description exceeds %d characters", MaxDescriptionLength)
	}
	if strings.ContainsRune(description, 0) {
		return apperrors.New(apperrors.KindValidation, "description cannot contain NUL bytes")
	}
	return nil
}

// ValidateSearchTerm rejects terms that are too long or contain NUL
// bytes. An empty term is valid and matches everything.
func ValidateSearchTerm(term string) error {
	if utf8.RuneCountInString(term) > MaxSearchTermLength {
		return apperrors.Newf(apperrors.KindValidation, "search term exceeds %d characters", MaxSearchTermLength)
	}
	if strings.ContainsRune(term, 0) {
		return apperrors.New(apperrors.KindValidation, "search term cannot contain NUL bytes")
	}
	return nil
}
