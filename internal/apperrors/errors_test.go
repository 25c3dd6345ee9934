package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	base := New(KindQuotaExceeded, "no room")
	assert.True(t, IsKind(base, KindQuotaExceeded))
	assert.False(t, IsKind(base, KindValidation))
	assert.Equal(t, KindQuotaExceeded, KindOf(base))

	// Kind survives wrapping with %w.
	wrapped := fmt.Errorf("upload failed: %w", base)
	assert.True(t, IsKind(wrapped, KindQuotaExceeded))
	assert.Equal(t, KindQuotaExceeded, KindOf(wrapped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindTransientDownstream, "authority unreachable", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsKind(err, KindTransientDownstream))
	assert.Contains(t, err.Error(), "authority unreachable")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindValidation))
}
